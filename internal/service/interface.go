package service

import (
	"context"

	"github.com/weiawesome/wes-io-live/turn-service/internal/domain"
	"github.com/weiawesome/wes-io-live/turn-service/internal/hub"
)

// TurnService maps each inbound event of a connection to one room operation.
type TurnService interface {
	// HandleJoin binds the client to a room, leaving any other room first.
	HandleJoin(ctx context.Context, client *hub.Client, msg *domain.JoinRoomMessage) error

	// HandleLeave unbinds the client from its room.
	HandleLeave(ctx context.Context, client *hub.Client) error

	HandleRequestWrite(ctx context.Context, client *hub.Client) error
	HandleUpdateBuffer(ctx context.Context, client *hub.Client, text string) error
	HandleStopWriting(ctx context.Context, client *hub.Client) error
	HandleSubmit(ctx context.Context, client *hub.Client) error
	HandleRequestTurn(ctx context.Context, client *hub.Client) error
	HandleGrantTurn(ctx context.Context, client *hub.Client, targetID string) error

	// HandleDisconnect runs the leave path for a closed connection.
	HandleDisconnect(ctx context.Context, client *hub.Client) error
}
