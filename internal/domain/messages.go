package domain

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// WebSocket message types from client.
const (
	MsgTypeJoinRoom     = "join_room"
	MsgTypeLeaveRoom    = "leave_room"
	MsgTypeRequestWrite = "request_write"
	MsgTypeUpdateBuffer = "update_buffer"
	MsgTypeStopWriting  = "stop_writing"
	MsgTypeSubmit       = "submit"
	MsgTypeRequestTurn  = "request_turn"
	MsgTypeGrantTurn    = "grant_turn"
	MsgTypePing         = "ping"
)

// WebSocket message types to client that are produced by the gateway itself.
const (
	MsgTypeWelcome = "welcome"
	MsgTypeError   = "error"
	MsgTypePong    = "pong"
)

// Error codes
const (
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeNotInRoom     = "NOT_IN_ROOM"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Boundary limits.
const (
	MaxDisplayNameRunes = 64
	MaxColorLength      = 32
	MaxRoomIDLength     = 128
)

var (
	ErrMissingRoomID      = errors.New("room_id is required")
	ErrRoomIDTooLong      = errors.New("room_id is too long")
	ErrMissingDisplayName = errors.New("display_name is required")
	ErrDisplayNameTooLong = errors.New("display_name is too long")
	ErrMissingColor       = errors.New("color is required")
	ErrColorTooLong       = errors.New("color is too long")
	ErrBufferTooLarge     = errors.New("text exceeds the buffer limit")
	ErrMissingTarget      = errors.New("target_id is required")
)

// BaseMessage is the base structure for all WebSocket messages.
type BaseMessage struct {
	Type string `json:"type"`
}

// Client -> Server messages

// JoinRoomMessage binds the connection to a room under a display identity.
type JoinRoomMessage struct {
	Type        string `json:"type"`
	RoomID      string `json:"room_id"`
	DisplayName string `json:"display_name"`
	Color       string `json:"color"`
}

// Validate trims the fields in place and checks them.
func (m *JoinRoomMessage) Validate() error {
	m.RoomID = strings.TrimSpace(m.RoomID)
	m.DisplayName = strings.TrimSpace(m.DisplayName)
	m.Color = strings.TrimSpace(m.Color)

	switch {
	case m.RoomID == "":
		return ErrMissingRoomID
	case len(m.RoomID) > MaxRoomIDLength:
		return ErrRoomIDTooLong
	case m.DisplayName == "":
		return ErrMissingDisplayName
	case utf8.RuneCountInString(m.DisplayName) > MaxDisplayNameRunes:
		return ErrDisplayNameTooLong
	case m.Color == "":
		return ErrMissingColor
	case len(m.Color) > MaxColorLength:
		return ErrColorTooLong
	}
	return nil
}

// UpdateBufferMessage replaces the shared buffer with Text.
type UpdateBufferMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Validate checks the text against maxBytes; zero disables the limit.
func (m *UpdateBufferMessage) Validate(maxBytes int) error {
	if maxBytes > 0 && len(m.Text) > maxBytes {
		return fmt.Errorf("%w: %d > %d bytes", ErrBufferTooLarge, len(m.Text), maxBytes)
	}
	return nil
}

// GrantTurnMessage hands the writer role to TargetID.
type GrantTurnMessage struct {
	Type     string `json:"type"`
	TargetID string `json:"target_id"`
}

func (m *GrantTurnMessage) Validate() error {
	m.TargetID = strings.TrimSpace(m.TargetID)
	if m.TargetID == "" {
		return ErrMissingTarget
	}
	return nil
}

// Server -> Client messages

// WelcomeMessage tells a fresh connection its id.
type WelcomeMessage struct {
	Type         string `json:"type"`
	ConnectionID string `json:"connection_id"`
}

func NewWelcomeMessage(connectionID string) *WelcomeMessage {
	return &WelcomeMessage{Type: MsgTypeWelcome, ConnectionID: connectionID}
}

// PongMessage answers a ping.
type PongMessage struct {
	Type string `json:"type"`
}

func NewPongMessage() *PongMessage {
	return &PongMessage{Type: MsgTypePong}
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{
		Type:    MsgTypeError,
		Code:    code,
		Message: message,
	}
}
