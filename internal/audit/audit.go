package audit

import (
	"context"

	"github.com/weiawesome/wes-io-live/turn-service/pkg/log"
)

// Audit actions for turn-service.
const (
	ActionJoinRoom    = "turn.join_room"
	ActionLeaveRoom   = "turn.leave_room"
	ActionDisconnect  = "turn.disconnect"
	ActionGrant       = "turn.grant"
	ActionHandoff     = "turn.handoff"
	ActionRelease     = "turn.release"
	ActionRoomOpened  = "turn.room_opened"
	ActionRoomEvicted = "turn.room_evicted"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action, roomID, connectionID, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldRoomID, roomID).
		Str(log.FieldConnectionID, connectionID).
		Msg(msg)
}

// LogWithDetail emits an audit log with an extra detail field.
func LogWithDetail(ctx context.Context, action, roomID, connectionID, detail, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldRoomID, roomID).
		Str(log.FieldConnectionID, connectionID).
		Str(FieldDetail, detail).
		Msg(msg)
}
