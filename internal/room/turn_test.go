package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-io-live/turn-service/internal/domain"
)

func TestRequestAndGrantTurn(t *testing.T) {
	f := twoInRoom(t)
	require.True(t, f.reg.RequestWrite("r1", "c1"))
	require.True(t, f.reg.UpdateBuffer("r1", "c1", "leftover"))
	f.rec.take()

	require.True(t, f.reg.RequestTurn("r1", "c2"))
	events := f.rec.take()
	require.Equal(t, []string{domain.MsgTypePresenceUpdate, domain.MsgTypeTurnRequested}, types(events))
	assert.True(t, events[0].Message.(*domain.PresenceUpdateMessage).Participants["c2"].RequestingTurn)
	assert.Equal(t, domain.NewTurnRequested("c2", "Bob"), events[1].Message)

	require.True(t, f.reg.GrantTurn("r1", "c1", "c2"))
	events = f.rec.take()
	require.Equal(t, []string{domain.MsgTypeWriterChanged, domain.MsgTypePresenceUpdate}, types(events))
	assert.Equal(t, "c2", events[0].Message.(*domain.WriterChangedMessage).Writer.ConnectionID)
	assert.False(t, events[1].Message.(*domain.PresenceUpdateMessage).Participants["c2"].RequestingTurn)

	snap, _ := f.reg.Lookup("r1")
	assert.Equal(t, "c2", snap.ActiveWriterID)
	assert.Empty(t, snap.Buffer)
	assert.False(t, snap.Participants["c2"].RequestingTurn)

	last := f.obs.changes[len(f.obs.changes)-1]
	assert.Equal(t, TurnChange{
		RoomID: "r1",
		Kind:   TurnHandedOff,
		From:   "c1",
		To:     "c2",
		Reason: domain.ReasonTurnGranted,
		At:     f.clock.Now(),
	}, last)
}

func TestGrantTurnWithoutRequest(t *testing.T) {
	f := twoInRoom(t)
	require.True(t, f.reg.RequestWrite("r1", "c1"))
	assert.True(t, f.reg.GrantTurn("r1", "c1", "c2"))
}

func TestGrantTurnRejected(t *testing.T) {
	tests := []struct {
		name     string
		granting string
		target   string
	}{
		{"not the writer", "c2", "c1"},
		{"unknown target", "c1", "ghost"},
		{"self", "c1", "c1"},
		{"empty granting", "", "c2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := twoInRoom(t)
			require.True(t, f.reg.RequestWrite("r1", "c1"))
			require.True(t, f.reg.UpdateBuffer("r1", "c1", "keep"))
			f.rec.take()

			assert.False(t, f.reg.GrantTurn("r1", tt.granting, tt.target))
			assert.Empty(t, f.rec.take())

			snap, _ := f.reg.Lookup("r1")
			assert.Equal(t, "c1", snap.ActiveWriterID)
			assert.Equal(t, "keep", snap.Buffer)
		})
	}
}

func TestRequestTurnRejected(t *testing.T) {
	f := twoInRoom(t)
	require.True(t, f.reg.RequestWrite("r1", "c1"))
	f.rec.take()

	assert.False(t, f.reg.RequestTurn("r1", "c1"))
	assert.False(t, f.reg.RequestTurn("r1", "ghost"))
	assert.Empty(t, f.rec.take())
	assert.Equal(t, []domain.Operation{domain.OpRequestTurn, domain.OpRequestTurn}, f.obs.denied)
}

func TestRequestTurnWithFreeSlot(t *testing.T) {
	f := twoInRoom(t)
	require.True(t, f.reg.RequestTurn("r1", "c2"))
	snap, _ := f.reg.Lookup("r1")
	assert.True(t, snap.Participants["c2"].RequestingTurn)
}
