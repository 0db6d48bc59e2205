package domain

import "time"

// ReleaseReason explains why a writer slot was vacated.
type ReleaseReason string

const (
	ReasonSubmitted   ReleaseReason = "submitted"
	ReasonStopped     ReleaseReason = "stopped"
	ReasonLeft        ReleaseReason = "left"
	ReasonInactivity  ReleaseReason = "inactivity"
	ReasonTurnGranted ReleaseReason = "turn_granted"
)

// NoticeKind identifies a localized system notice.
type NoticeKind string

const (
	NoticeJoined     NoticeKind = "joined"
	NoticeLeft       NoticeKind = "left"
	NoticeStopped    NoticeKind = "stopped"
	NoticeWriterLeft NoticeKind = "writer_left"
	NoticeInactivity NoticeKind = "inactivity"
)

// NoticeFor returns the notice a release emits. Submitted and TurnGranted are
// normal transitions and have none.
func (r ReleaseReason) NoticeFor() (NoticeKind, bool) {
	switch r {
	case ReasonStopped:
		return NoticeStopped, true
	case ReasonLeft:
		return NoticeWriterLeft, true
	case ReasonInactivity:
		return NoticeInactivity, true
	default:
		return "", false
	}
}

// Operation names a core call, used for denial accounting and logs.
type Operation string

const (
	OpRequestWrite Operation = "request_write"
	OpUpdateBuffer Operation = "update_buffer"
	OpSubmit       Operation = "submit"
	OpStopWriting  Operation = "stop_writing"
	OpRequestTurn  Operation = "request_turn"
	OpGrantTurn    Operation = "grant_turn"
)

// Participant is one connection joined to a room.
type Participant struct {
	ConnectionID   string    `json:"connection_id"`
	DisplayName    string    `json:"display_name"`
	Color          string    `json:"color"`
	RequestingTurn bool      `json:"requesting_turn"`
	JoinedAt       time.Time `json:"joined_at"`
}

// Room is the passive state of one room. It carries no locking of its own;
// the registry serializes every access.
type Room struct {
	ID             string
	Buffer         string
	ActiveWriterID string
	LastActivityAt time.Time
	Participants   map[string]*Participant
	CreatedAt      time.Time

	// EmptySince is set while the room has no participants.
	EmptySince time.Time
}

// NewRoom returns an empty room with no writer.
func NewRoom(id string, now time.Time) *Room {
	return &Room{
		ID:             id,
		LastActivityAt: now,
		Participants:   make(map[string]*Participant),
		CreatedAt:      now,
		EmptySince:     now,
	}
}

// HasWriter reports whether the writer slot is taken.
func (r *Room) HasWriter() bool {
	return r.ActiveWriterID != ""
}

// Snapshot copies the room so it can leave the critical section.
func (r *Room) Snapshot() RoomSnapshot {
	participants := make(map[string]Participant, len(r.Participants))
	for id, p := range r.Participants {
		participants[id] = *p
	}
	return RoomSnapshot{
		ID:             r.ID,
		Buffer:         r.Buffer,
		ActiveWriterID: r.ActiveWriterID,
		LastActivityAt: r.LastActivityAt,
		Participants:   participants,
	}
}

// RoomSnapshot is an immutable copy of a room.
type RoomSnapshot struct {
	ID             string                 `json:"id"`
	Buffer         string                 `json:"buffer"`
	ActiveWriterID string                 `json:"active_writer_id,omitempty"`
	LastActivityAt time.Time              `json:"last_activity_at"`
	Participants   map[string]Participant `json:"participants"`
}
