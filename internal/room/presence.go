package room

import (
	"github.com/weiawesome/wes-io-live/turn-service/internal/domain"
)

// Roster derives the public participant map of a room.
func Roster(room *domain.Room) domain.Roster {
	roster := make(domain.Roster, len(room.Participants))
	for id, p := range room.Participants {
		roster[id] = domain.ParticipantView{
			DisplayName:    p.DisplayName,
			Color:          p.Color,
			RequestingTurn: p.RequestingTurn,
		}
	}
	return roster
}

func (t *txn) presence() *domain.PresenceUpdateMessage {
	return domain.NewPresenceUpdate(Roster(t.room))
}

func (t *txn) roomState() *domain.RoomStateMessage {
	return domain.NewRoomState(t.room.ID, t.room.Buffer, t.room.ActiveWriterID, t.room.LastActivityAt, Roster(t.room))
}
