package service

import (
	"context"

	"github.com/weiawesome/wes-io-live/turn-service/internal/audit"
	"github.com/weiawesome/wes-io-live/turn-service/internal/domain"
	"github.com/weiawesome/wes-io-live/turn-service/internal/hub"
	"github.com/weiawesome/wes-io-live/turn-service/internal/room"
	pkglog "github.com/weiawesome/wes-io-live/turn-service/pkg/log"
)

type turnService struct {
	hub      *hub.Hub
	registry *room.Registry
}

// NewTurnService creates a TurnService over the hub and the room registry.
func NewTurnService(h *hub.Hub, reg *room.Registry) TurnService {
	return &turnService{hub: h, registry: reg}
}

func (s *turnService) HandleJoin(ctx context.Context, c *hub.Client, msg *domain.JoinRoomMessage) error {
	if prev := c.Session.GetCurrentRoom(); prev != "" && prev != msg.RoomID {
		s.leave(ctx, c, c.Session.TakeRoom(), audit.ActionLeaveRoom)
	}

	// Fan-out membership comes first so the presence broadcast reaches the joiner.
	s.hub.JoinRoom(c, msg.RoomID)
	c.Session.JoinRoom(msg.RoomID, msg.DisplayName)
	s.registry.Join(msg.RoomID, c.ID, msg.DisplayName, msg.Color)

	audit.LogWithDetail(ctx, audit.ActionJoinRoom, msg.RoomID, c.ID, msg.DisplayName, "joined room")
	return nil
}

func (s *turnService) HandleLeave(ctx context.Context, c *hub.Client) error {
	roomID := c.Session.TakeRoom()
	if roomID == "" {
		return s.notInRoom(c)
	}
	s.leave(ctx, c, roomID, audit.ActionLeaveRoom)
	return nil
}

func (s *turnService) HandleDisconnect(ctx context.Context, c *hub.Client) error {
	if roomID := c.Session.TakeRoom(); roomID != "" {
		s.leave(ctx, c, roomID, audit.ActionDisconnect)
	}
	return nil
}

func (s *turnService) leave(ctx context.Context, c *hub.Client, roomID, action string) {
	if roomID == "" {
		return
	}
	s.hub.LeaveRoom(c, roomID)
	if s.registry.Leave(roomID, c.ID) {
		audit.Log(ctx, action, roomID, c.ID, "left room")
	}
}

func (s *turnService) HandleRequestWrite(ctx context.Context, c *hub.Client) error {
	return s.inRoom(ctx, c, func(roomID string) bool {
		return s.registry.RequestWrite(roomID, c.ID)
	}, domain.OpRequestWrite)
}

func (s *turnService) HandleUpdateBuffer(ctx context.Context, c *hub.Client, text string) error {
	return s.inRoom(ctx, c, func(roomID string) bool {
		return s.registry.UpdateBuffer(roomID, c.ID, text)
	}, domain.OpUpdateBuffer)
}

func (s *turnService) HandleStopWriting(ctx context.Context, c *hub.Client) error {
	return s.inRoom(ctx, c, func(roomID string) bool {
		return s.registry.StopWriting(roomID, c.ID)
	}, domain.OpStopWriting)
}

func (s *turnService) HandleSubmit(ctx context.Context, c *hub.Client) error {
	return s.inRoom(ctx, c, func(roomID string) bool {
		return s.registry.Submit(roomID, c.ID)
	}, domain.OpSubmit)
}

func (s *turnService) HandleRequestTurn(ctx context.Context, c *hub.Client) error {
	return s.inRoom(ctx, c, func(roomID string) bool {
		return s.registry.RequestTurn(roomID, c.ID)
	}, domain.OpRequestTurn)
}

func (s *turnService) HandleGrantTurn(ctx context.Context, c *hub.Client, targetID string) error {
	return s.inRoom(ctx, c, func(roomID string) bool {
		return s.registry.GrantTurn(roomID, c.ID, targetID)
	}, domain.OpGrantTurn)
}

// inRoom runs op against the client's room. A false result needs no reply:
// the core has already resynchronized whoever needs it.
func (s *turnService) inRoom(ctx context.Context, c *hub.Client, op func(roomID string) bool, name domain.Operation) error {
	roomID := c.Session.GetCurrentRoom()
	if roomID == "" {
		return s.notInRoom(c)
	}
	if !op(roomID) {
		l := pkglog.Ctx(ctx)
		l.Debug().Str(pkglog.FieldRoomID, roomID).Str(pkglog.FieldEventType, string(name)).Msg("operation refused")
	}
	return nil
}

func (s *turnService) notInRoom(c *hub.Client) error {
	return s.hub.SendToClient(c.ID, domain.NewErrorMessage(domain.ErrCodeNotInRoom, "Join a room first"))
}
