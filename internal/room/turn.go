package room

import (
	"github.com/weiawesome/wes-io-live/turn-service/internal/domain"
)

// RequestTurn flags connectionID as waiting for the slot and lets the room,
// the writer's client in particular, know. The writer itself cannot request.
func (r *Registry) RequestTurn(roomID, connectionID string) bool {
	return r.withRoom(roomID, false, func(t *txn) bool {
		p, ok := t.room.Participants[connectionID]
		if !ok || t.room.ActiveWriterID == connectionID {
			t.denied(domain.OpRequestTurn)
			return false
		}

		p.RequestingTurn = true
		t.broadcast(t.presence(), "")
		t.broadcast(domain.NewTurnRequested(p.ConnectionID, p.DisplayName), "")
		return true
	})
}

// GrantTurn hands the slot from the current writer straight to target. The
// new writer starts from an empty buffer.
func (r *Registry) GrantTurn(roomID, grantingID, targetID string) bool {
	return r.withRoom(roomID, false, func(t *txn) bool {
		target, ok := t.room.Participants[targetID]
		if !ok || grantingID == "" || grantingID == targetID || t.room.ActiveWriterID != grantingID {
			t.denied(domain.OpGrantTurn)
			return false
		}

		target.RequestingTurn = false
		t.room.ActiveWriterID = targetID
		t.room.Buffer = ""
		t.room.LastActivityAt = t.now
		t.turnChanged(TurnHandedOff, grantingID, targetID, domain.ReasonTurnGranted)

		t.broadcast(domain.NewWriterChanged(domain.NewWriterInfo(target)), "")
		t.broadcast(t.presence(), "")
		return true
	})
}
