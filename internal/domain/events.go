package domain

import "time"

// Outbound message types. These are the only messages the core produces.
const (
	MsgTypeRoomState      = "room_state"
	MsgTypePresenceUpdate = "presence_update"
	MsgTypeWriterChanged  = "writer_changed"
	MsgTypeMessageUpdate  = "message_update"
	MsgTypeMessageCleared = "message_cleared"
	MsgTypeSystemNotice   = "system_notice"
	MsgTypeTurnRequested  = "turn_requested"
)

// OutboundMessage is the closed set of messages the core emits. The unexported
// method keeps implementations inside this package.
type OutboundMessage interface {
	MessageType() string
	outbound()
}

// Event is one outbound message plus its routing. A non-empty Target means
// direct delivery to that connection; otherwise the message fans out to the
// room, skipping Exclude.
type Event struct {
	Message OutboundMessage
	Target  string
	Exclude string
}

// IsDirect reports whether the event goes to a single connection.
func (e Event) IsDirect() bool {
	return e.Target != ""
}

// ParticipantView is the roster entry clients see.
type ParticipantView struct {
	DisplayName    string `json:"display_name"`
	Color          string `json:"color"`
	RequestingTurn bool   `json:"requesting_turn"`
}

// Roster maps connection id to its public view.
type Roster map[string]ParticipantView

// WriterInfo identifies the active writer.
type WriterInfo struct {
	ConnectionID string `json:"connection_id"`
	Color        string `json:"color"`
	DisplayName  string `json:"display_name"`
}

// NewWriterInfo builds the writer identity for p.
func NewWriterInfo(p *Participant) *WriterInfo {
	if p == nil {
		return nil
	}
	return &WriterInfo{
		ConnectionID: p.ConnectionID,
		Color:        p.Color,
		DisplayName:  p.DisplayName,
	}
}

// RoomStateMessage is the full room snapshot.
type RoomStateMessage struct {
	Type           string  `json:"type"`
	RoomID         string  `json:"room_id"`
	Buffer         string  `json:"buffer"`
	ActiveWriterID *string `json:"active_writer_id"`
	LastActivityAt int64   `json:"last_activity_at"`
	Participants   Roster  `json:"participants"`
}

func NewRoomState(roomID, buffer, writerID string, lastActivity time.Time, roster Roster) *RoomStateMessage {
	msg := &RoomStateMessage{
		Type:           MsgTypeRoomState,
		RoomID:         roomID,
		Buffer:         buffer,
		LastActivityAt: lastActivity.UnixMilli(),
		Participants:   roster,
	}
	if writerID != "" {
		msg.ActiveWriterID = &writerID
	}
	return msg
}

// PresenceUpdateMessage carries the full roster.
type PresenceUpdateMessage struct {
	Type         string `json:"type"`
	Participants Roster `json:"participants"`
}

func NewPresenceUpdate(roster Roster) *PresenceUpdateMessage {
	return &PresenceUpdateMessage{Type: MsgTypePresenceUpdate, Participants: roster}
}

// WriterChangedMessage announces the writer; a nil Writer means the slot is free.
type WriterChangedMessage struct {
	Type   string      `json:"type"`
	Writer *WriterInfo `json:"writer"`
}

func NewWriterChanged(w *WriterInfo) *WriterChangedMessage {
	return &WriterChangedMessage{Type: MsgTypeWriterChanged, Writer: w}
}

// MessageUpdateMessage mirrors the live buffer.
type MessageUpdateMessage struct {
	Type       string `json:"type"`
	Text       string `json:"text"`
	Color      string `json:"color"`
	AuthorName string `json:"author_name"`
}

func NewMessageUpdate(text, color, author string) *MessageUpdateMessage {
	return &MessageUpdateMessage{Type: MsgTypeMessageUpdate, Text: text, Color: color, AuthorName: author}
}

// MessageClearedMessage tells clients to drop the displayed buffer.
type MessageClearedMessage struct {
	Type string `json:"type"`
}

func NewMessageCleared() *MessageClearedMessage {
	return &MessageClearedMessage{Type: MsgTypeMessageCleared}
}

// SystemNoticeMessage is a localized human-readable notice.
type SystemNoticeMessage struct {
	Type   string     `json:"type"`
	Notice NoticeKind `json:"notice"`
	Text   string     `json:"text"`
}

func NewSystemNotice(kind NoticeKind, text string) *SystemNoticeMessage {
	return &SystemNoticeMessage{Type: MsgTypeSystemNotice, Notice: kind, Text: text}
}

// TurnRequestedMessage is aimed at the current writer's client.
type TurnRequestedMessage struct {
	Type         string `json:"type"`
	ConnectionID string `json:"connection_id"`
	DisplayName  string `json:"display_name"`
}

func NewTurnRequested(connectionID, displayName string) *TurnRequestedMessage {
	return &TurnRequestedMessage{Type: MsgTypeTurnRequested, ConnectionID: connectionID, DisplayName: displayName}
}

func (m *RoomStateMessage) MessageType() string      { return m.Type }
func (m *PresenceUpdateMessage) MessageType() string { return m.Type }
func (m *WriterChangedMessage) MessageType() string  { return m.Type }
func (m *MessageUpdateMessage) MessageType() string  { return m.Type }
func (m *MessageClearedMessage) MessageType() string { return m.Type }
func (m *SystemNoticeMessage) MessageType() string   { return m.Type }
func (m *TurnRequestedMessage) MessageType() string  { return m.Type }

func (*RoomStateMessage) outbound()      {}
func (*PresenceUpdateMessage) outbound() {}
func (*WriterChangedMessage) outbound()  {}
func (*MessageUpdateMessage) outbound()  {}
func (*MessageClearedMessage) outbound() {}
func (*SystemNoticeMessage) outbound()   {}
func (*TurnRequestedMessage) outbound()  {}
