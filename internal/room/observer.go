package room

import (
	"time"

	"github.com/weiawesome/wes-io-live/turn-service/internal/domain"
)

// Publisher receives the outbound events of one operation. It is called while
// the room is still locked, so events of a room arrive in order; it must not
// block.
type Publisher interface {
	Publish(roomID string, events []domain.Event)
}

// TurnChangeKind classifies a writer slot transition.
type TurnChangeKind string

const (
	TurnGranted   TurnChangeKind = "granted"
	TurnRefreshed TurnChangeKind = "refreshed"
	TurnHandedOff TurnChangeKind = "handed_off"
	TurnReleased  TurnChangeKind = "released"
)

// TurnChange describes one writer slot transition.
type TurnChange struct {
	RoomID string
	Kind   TurnChangeKind
	From   string
	To     string
	Reason domain.ReleaseReason
	At     time.Time
}

// Observer is told about room lifecycle and writer slot transitions. Like
// Publisher it runs inside the room's critical section and must not block.
// RoomOpened and RoomClosed also run under the registry lock, so an Observer
// must never call back into the Registry.
type Observer interface {
	RoomOpened(roomID string)
	RoomClosed(roomID string)
	TurnChanged(change TurnChange)
	Denied(roomID string, op domain.Operation)
}

// NopObserver ignores everything. Embed it to implement part of Observer.
type NopObserver struct{}

func (NopObserver) RoomOpened(string)               {}
func (NopObserver) RoomClosed(string)               {}
func (NopObserver) TurnChanged(TurnChange)          {}
func (NopObserver) Denied(string, domain.Operation) {}

// Observers fans every call out to each member in order.
type Observers []Observer

func (o Observers) RoomOpened(roomID string) {
	for _, obs := range o {
		obs.RoomOpened(roomID)
	}
}

func (o Observers) RoomClosed(roomID string) {
	for _, obs := range o {
		obs.RoomClosed(roomID)
	}
}

func (o Observers) TurnChanged(change TurnChange) {
	for _, obs := range o {
		obs.TurnChanged(change)
	}
}

func (o Observers) Denied(roomID string, op domain.Operation) {
	for _, obs := range o {
		obs.Denied(roomID, op)
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, []domain.Event) {}

// Noticer renders localized system notices.
type Noticer interface {
	Notice(kind domain.NoticeKind, displayName string) string
}
