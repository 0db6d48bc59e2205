package hub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-io-live/turn-service/internal/config"
	"github.com/weiawesome/wes-io-live/turn-service/internal/domain"
)

func startHub(t *testing.T, sendBuffer int) *Hub {
	t.Helper()
	h := NewHub(config.WebSocketConfig{SendBuffer: sendBuffer})
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- h.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-errc)
	})
	return h
}

func newTestClient(h *Hub, id string) *Client {
	c := NewClient(h, nil, id)
	h.Register(c)
	return c
}

func drain(c *Client) []string {
	var out []string
	for {
		select {
		case data, ok := <-c.Send:
			if !ok {
				return out
			}
			var msg struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(data, &msg); err == nil {
				out = append(out, msg.Type)
			}
		default:
			return out
		}
	}
}

func TestPublishRouting(t *testing.T) {
	h := startHub(t, 16)
	a := newTestClient(h, "a")
	b := newTestClient(h, "b")
	other := newTestClient(h, "other")
	h.JoinRoom(a, "r1")
	h.JoinRoom(b, "r1")
	h.JoinRoom(other, "r2")

	h.Publish("r1", []domain.Event{
		{Message: domain.NewRoomState("r1", "", "", time.Now(), domain.Roster{}), Target: "a"},
		{Message: domain.NewPresenceUpdate(domain.Roster{})},
		{Message: domain.NewSystemNotice(domain.NoticeJoined, "a joined"), Exclude: "a"},
	})

	assert.Equal(t, []string{domain.MsgTypeRoomState, domain.MsgTypePresenceUpdate}, drain(a))
	assert.Equal(t, []string{domain.MsgTypePresenceUpdate, domain.MsgTypeSystemNotice}, drain(b))
	assert.Empty(t, drain(other))
}

func TestPublishToUnknownTargetIsDropped(t *testing.T) {
	h := startHub(t, 4)
	h.Publish("r1", []domain.Event{{Message: domain.NewMessageCleared(), Target: "ghost"}})
	assert.Zero(t, h.Dropped())
}

func TestLeaveRoomStopsFanOut(t *testing.T) {
	h := startHub(t, 4)
	a := newTestClient(h, "a")
	h.JoinRoom(a, "r1")
	assert.Equal(t, []string{"a"}, h.RoomMembers("r1"))

	h.LeaveRoom(a, "r1")
	h.Publish("r1", []domain.Event{{Message: domain.NewMessageCleared()}})
	assert.Empty(t, drain(a))
	assert.Empty(t, h.RoomMembers("r1"))
}

func TestFullQueueEvictsClient(t *testing.T) {
	h := startHub(t, 1)
	slow := newTestClient(h, "slow")
	h.JoinRoom(slow, "r1")

	h.Publish("r1", []domain.Event{
		{Message: domain.NewMessageCleared()},
		{Message: domain.NewMessageCleared()},
	})

	assert.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, uint64(1), h.Dropped())
	assert.Empty(t, h.RoomMembers("r1"))

	// The queue is closed once the client is gone.
	<-slow.Send
	_, ok := <-slow.Send
	assert.False(t, ok)
}

func TestUnregisterTwice(t *testing.T) {
	h := startHub(t, 4)
	a := newTestClient(h, "a")
	h.Unregister(a)
	h.Unregister(a)
	assert.Zero(t, h.ClientCount())
}

func TestRunCancelClosesQueues(t *testing.T) {
	h := NewHub(config.WebSocketConfig{SendBuffer: 4})
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- h.Run(ctx) }()

	a := newTestClient(h, "a")
	cancel()
	require.NoError(t, <-errc)

	_, ok := <-a.Send
	assert.False(t, ok)

	// Late calls after shutdown apply directly.
	h.Unregister(a)
	b := newTestClient(h, "b")
	assert.Equal(t, 1, h.ClientCount())
	h.Unregister(b)
	assert.Zero(t, h.ClientCount())
}

func TestSendToClient(t *testing.T) {
	h := startHub(t, 4)
	a := newTestClient(h, "a")
	require.NoError(t, h.SendToClient("a", domain.NewWelcomeMessage("a")))
	require.NoError(t, h.SendToClient("ghost", domain.NewWelcomeMessage("ghost")))
	assert.Equal(t, []string{domain.MsgTypeWelcome}, drain(a))
}

func TestRegisterIsImmediatelyAddressable(t *testing.T) {
	h := startHub(t, 4)
	for i := 0; i < 100; i++ {
		c := NewClient(h, nil, "c")
		h.Register(c)
		require.NoError(t, h.SendToClient("c", domain.NewWelcomeMessage("c")))
		require.Equal(t, []string{domain.MsgTypeWelcome}, drain(c))
		h.Unregister(c)
	}
}
