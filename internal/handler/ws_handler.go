package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/weiawesome/wes-io-live/turn-service/internal/domain"
	"github.com/weiawesome/wes-io-live/turn-service/internal/hub"
	"github.com/weiawesome/wes-io-live/turn-service/internal/service"
	pkglog "github.com/weiawesome/wes-io-live/turn-service/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // rooms are open to any page that knows the id
	},
}

// WSHandler handles WebSocket connections.
type WSHandler struct {
	hub            *hub.Hub
	service        service.TurnService
	maxBufferBytes int
}

// NewWSHandler creates a new WebSocket handler.
func NewWSHandler(h *hub.Hub, svc service.TurnService, maxBufferBytes int) *WSHandler {
	return &WSHandler{
		hub:            h,
		service:        svc,
		maxBufferBytes: maxBufferBytes,
	}
}

// HandleWebSocket handles WebSocket upgrade and message routing.
func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	l := pkglog.L()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(h.hub, conn, uuid.New().String())

	// Leave runs here so a dropped connection never keeps the writer role.
	client.SetDisconnectHandler(func(c *hub.Client) {
		ctx := pkglog.WithConnection(context.Background(), c.ID, "")
		if err := h.service.HandleDisconnect(ctx, c); err != nil {
			l.Error().Err(err).Str(pkglog.FieldConnectionID, c.ID).Msg("disconnect handler error")
		}
	})

	h.hub.Register(client)
	h.send(client, domain.NewWelcomeMessage(client.ID))

	go client.WritePump()
	go client.ReadPump(h.handleMessage)
}

func (h *WSHandler) handleMessage(client *hub.Client, message []byte) {
	roomID, displayName := client.Session.Binding()
	ctx := pkglog.WithConnection(context.Background(), client.ID, roomID)
	if displayName != "" {
		ctx = pkglog.WithLogger(ctx, pkglog.Ctx(ctx).With().Str(pkglog.FieldDisplayName, displayName).Logger())
	}
	l := pkglog.Ctx(ctx)

	var base domain.BaseMessage
	if err := json.Unmarshal(message, &base); err != nil {
		h.badRequest(client, "Invalid message format")
		return
	}

	var err error
	switch base.Type {
	case domain.MsgTypeJoinRoom:
		var msg domain.JoinRoomMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			h.badRequest(client, "Invalid join_room message")
			return
		}
		if err := msg.Validate(); err != nil {
			h.badRequest(client, err.Error())
			return
		}
		err = h.service.HandleJoin(ctx, client, &msg)

	case domain.MsgTypeLeaveRoom:
		err = h.service.HandleLeave(ctx, client)

	case domain.MsgTypeRequestWrite:
		err = h.service.HandleRequestWrite(ctx, client)

	case domain.MsgTypeUpdateBuffer:
		var msg domain.UpdateBufferMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			h.badRequest(client, "Invalid update_buffer message")
			return
		}
		if err := msg.Validate(h.maxBufferBytes); err != nil {
			h.badRequest(client, err.Error())
			return
		}
		err = h.service.HandleUpdateBuffer(ctx, client, msg.Text)

	case domain.MsgTypeStopWriting:
		err = h.service.HandleStopWriting(ctx, client)

	case domain.MsgTypeSubmit:
		err = h.service.HandleSubmit(ctx, client)

	case domain.MsgTypeRequestTurn:
		err = h.service.HandleRequestTurn(ctx, client)

	case domain.MsgTypeGrantTurn:
		var msg domain.GrantTurnMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			h.badRequest(client, "Invalid grant_turn message")
			return
		}
		if err := msg.Validate(); err != nil {
			h.badRequest(client, err.Error())
			return
		}
		err = h.service.HandleGrantTurn(ctx, client, msg.TargetID)

	case domain.MsgTypePing:
		h.send(client, domain.NewPongMessage())

	default:
		h.badRequest(client, "Unknown message type")
	}

	if err != nil {
		l.Error().Err(err).Str(pkglog.FieldEventType, base.Type).Msg("failed to handle message")
		h.send(client, domain.NewErrorMessage(domain.ErrCodeInternalError, "Failed to process message"))
	}
}

func (h *WSHandler) badRequest(client *hub.Client, message string) {
	h.send(client, domain.NewErrorMessage(domain.ErrCodeBadRequest, message))
}

func (h *WSHandler) send(client *hub.Client, message interface{}) {
	if err := h.hub.SendToClient(client.ID, message); err != nil {
		l := pkglog.L()
		l.Error().Err(err).Str(pkglog.FieldConnectionID, client.ID).Msg("failed to send message")
	}
}

// RegisterRoutes registers the WebSocket route.
func (h *WSHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws", gin.WrapF(h.HandleWebSocket))
}
