package kafka

import "context"

// TurnEvent is one writer slot transition. It never carries buffer text.
type TurnEvent struct {
	Type      string `json:"type"` // "granted" | "refreshed" | "handed_off" | "released"
	RoomID    string `json:"room_id"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	Reason    string `json:"reason,omitempty"` // set for releases and handoffs
	Timestamp int64  `json:"timestamp"`        // unix milliseconds
}

// TurnEventProducer publishes turn events keyed by room id.
type TurnEventProducer interface {
	ProduceTurnEvent(ctx context.Context, event *TurnEvent) error
	Close() error
}
