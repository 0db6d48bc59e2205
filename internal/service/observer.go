package service

import (
	"context"

	"github.com/weiawesome/wes-io-live/turn-service/internal/audit"
	"github.com/weiawesome/wes-io-live/turn-service/internal/directory"
	"github.com/weiawesome/wes-io-live/turn-service/internal/domain"
	"github.com/weiawesome/wes-io-live/turn-service/internal/kafka"
	"github.com/weiawesome/wes-io-live/turn-service/internal/room"
	pkglog "github.com/weiawesome/wes-io-live/turn-service/pkg/log"
)

// EventRelay forwards room lifecycle and writer transitions to the audit log,
// the turn event stream and the room directory. Both sinks only enqueue, so
// it is safe inside a room's critical section.
type EventRelay struct {
	ctx       context.Context // carries the logger; never cancelled mid-call
	producer  kafka.TurnEventProducer
	directory directory.Directory
}

// NewEventRelay builds a relay. A nil producer disables the event stream and
// a nil directory disables announcements.
func NewEventRelay(ctx context.Context, producer kafka.TurnEventProducer, dir directory.Directory) *EventRelay {
	if dir == nil {
		dir = directory.Nop{}
	}
	return &EventRelay{ctx: ctx, producer: producer, directory: dir}
}

var _ room.Observer = (*EventRelay)(nil)

func (r *EventRelay) RoomOpened(roomID string) {
	r.directory.Announce(roomID)
	audit.Log(r.ctx, audit.ActionRoomOpened, roomID, "", "room opened")
}

func (r *EventRelay) RoomClosed(roomID string) {
	r.directory.Withdraw(roomID)
	audit.Log(r.ctx, audit.ActionRoomEvicted, roomID, "", "room evicted")
}

func (r *EventRelay) TurnChanged(change room.TurnChange) {
	switch change.Kind {
	case room.TurnGranted:
		audit.Log(r.ctx, audit.ActionGrant, change.RoomID, change.To, "writer granted")
	case room.TurnHandedOff:
		audit.LogWithDetail(r.ctx, audit.ActionHandoff, change.RoomID, change.From, change.To, "turn handed off")
	case room.TurnReleased:
		audit.LogWithDetail(r.ctx, audit.ActionRelease, change.RoomID, change.From, string(change.Reason), "writer released")
	}

	if r.producer == nil {
		return
	}
	event := &kafka.TurnEvent{
		Type:      string(change.Kind),
		RoomID:    change.RoomID,
		From:      change.From,
		To:        change.To,
		Reason:    string(change.Reason),
		Timestamp: change.At.UnixMilli(),
	}
	if err := r.producer.ProduceTurnEvent(r.ctx, event); err != nil {
		l := pkglog.Ctx(r.ctx)
		l.Warn().Err(err).Str(pkglog.FieldRoomID, change.RoomID).Msg("failed to produce turn event")
	}
}

func (r *EventRelay) Denied(string, domain.Operation) {}
