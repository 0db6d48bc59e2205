package room

import (
	"github.com/weiawesome/wes-io-live/turn-service/internal/domain"
)

// RequestWrite grants the writer slot when it is free or already held by
// connectionID. A fresh grant starts from an empty buffer; a refresh keeps the
// buffer and only bumps the activity time. A denial re-broadcasts the true
// writer so stale clients correct themselves.
func (r *Registry) RequestWrite(roomID, connectionID string) bool {
	return r.withRoom(roomID, false, func(t *txn) bool {
		p, ok := t.room.Participants[connectionID]
		if !ok {
			t.denied(domain.OpRequestWrite)
			return false
		}

		switch t.room.ActiveWriterID {
		case "":
			t.room.ActiveWriterID = connectionID
			t.room.Buffer = ""
			p.RequestingTurn = false
			t.turnChanged(TurnGranted, "", connectionID, "")
		case connectionID:
			t.turnChanged(TurnRefreshed, connectionID, connectionID, "")
		default:
			t.denied(domain.OpRequestWrite)
			t.broadcast(domain.NewWriterChanged(domain.NewWriterInfo(t.writer())), "")
			return false
		}

		t.room.LastActivityAt = t.now
		t.broadcast(domain.NewWriterChanged(domain.NewWriterInfo(p)), "")
		return true
	})
}

// Release vacates the writer slot if connectionID holds it. Releasing on
// behalf of a connection that is not the writer is a no-op.
func (r *Registry) Release(roomID, connectionID string, reason domain.ReleaseReason) bool {
	return r.withRoom(roomID, false, func(t *txn) bool {
		return t.release(connectionID, reason)
	})
}

// StopWriting is Release with the Stopped reason.
func (r *Registry) StopWriting(roomID, connectionID string) bool {
	return r.Release(roomID, connectionID, domain.ReasonStopped)
}

// UpdateBuffer replaces the buffer when connectionID is the writer. Anyone
// else is told who the writer really is.
func (r *Registry) UpdateBuffer(roomID, connectionID, text string) bool {
	return r.withRoom(roomID, false, func(t *txn) bool {
		if connectionID == "" || t.room.ActiveWriterID != connectionID {
			t.resync(connectionID, domain.OpUpdateBuffer)
			return false
		}

		w := t.writer()
		t.room.Buffer = text
		t.room.LastActivityAt = t.now
		t.broadcast(domain.NewMessageUpdate(text, w.Color, w.DisplayName), "")
		return true
	})
}

// Submit publishes the buffer as final, releases the slot and tells the room
// to clear its display.
func (r *Registry) Submit(roomID, connectionID string) bool {
	return r.withRoom(roomID, false, func(t *txn) bool {
		if connectionID == "" || t.room.ActiveWriterID != connectionID {
			t.resync(connectionID, domain.OpSubmit)
			return false
		}

		w := t.writer()
		t.broadcast(domain.NewMessageUpdate(t.room.Buffer, w.Color, w.DisplayName), "")
		t.release(connectionID, domain.ReasonSubmitted)
		t.broadcast(domain.NewMessageCleared(), "")
		t.broadcast(t.roomState(), "")
		return true
	})
}

// writer returns the participant holding the slot, or nil.
func (t *txn) writer() *domain.Participant {
	if !t.room.HasWriter() {
		return nil
	}
	return t.room.Participants[t.room.ActiveWriterID]
}

// release clears the slot and its buffer. The notice names the departing
// writer, so on leave it must run before the participant is removed.
func (t *txn) release(connectionID string, reason domain.ReleaseReason) bool {
	if connectionID == "" || t.room.ActiveWriterID != connectionID {
		return false
	}

	w := t.writer()
	t.room.ActiveWriterID = ""
	t.room.Buffer = ""
	t.turnChanged(TurnReleased, connectionID, "", reason)

	t.broadcast(domain.NewWriterChanged(nil), "")
	if kind, ok := reason.NoticeFor(); ok && w != nil {
		t.broadcast(t.notice(kind, w.DisplayName), "")
	}
	return true
}

// resync sends the current writer, or null, straight to a caller whose view
// of the slot is wrong.
func (t *txn) resync(connectionID string, op domain.Operation) {
	t.denied(op)
	if _, ok := t.room.Participants[connectionID]; !ok {
		return
	}
	t.direct(connectionID, domain.NewWriterChanged(domain.NewWriterInfo(t.writer())))
}
