package room

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-io-live/turn-service/internal/domain"
)

func TestSweepReclaimsIdleWriter(t *testing.T) {
	f := twoInRoom(t)
	require.True(t, f.reg.RequestWrite("r1", "c1"))
	require.True(t, f.reg.UpdateBuffer("r1", "c1", "abandoned"))
	f.rec.take()

	f.clock.Advance(time.Minute)
	assert.Equal(t, SweepResult{}, f.reg.Reaper().Sweep(f.clock.Now()))

	f.clock.Advance(time.Second)
	assert.Equal(t, SweepResult{Reclaimed: 1}, f.reg.Reaper().Sweep(f.clock.Now()))

	events := f.rec.take()
	require.Equal(t, []string{domain.MsgTypeWriterChanged, domain.MsgTypeSystemNotice}, types(events))
	assert.Nil(t, events[0].Message.(*domain.WriterChangedMessage).Writer)
	n := events[1].Message.(*domain.SystemNoticeMessage)
	assert.Equal(t, domain.NoticeInactivity, n.Notice)
	assert.Contains(t, n.Text, "Ann")

	assert.False(t, f.reg.UpdateBuffer("r1", "c1", "x"))
	snap, _ := f.reg.Lookup("r1")
	assert.Empty(t, snap.ActiveWriterID)
	assert.Empty(t, snap.Buffer)
}

func TestSweepActivityResetsTimer(t *testing.T) {
	f := twoInRoom(t)
	require.True(t, f.reg.RequestWrite("r1", "c1"))

	f.clock.Advance(50 * time.Second)
	require.True(t, f.reg.UpdateBuffer("r1", "c1", "still here"))
	f.clock.Advance(50 * time.Second)

	assert.Equal(t, SweepResult{}, f.reg.Reaper().Sweep(f.clock.Now()))
	snap, _ := f.reg.Lookup("r1")
	assert.Equal(t, "c1", snap.ActiveWriterID)
}

func TestSweepAfterClientRelease(t *testing.T) {
	f := twoInRoom(t)
	require.True(t, f.reg.RequestWrite("r1", "c1"))
	f.clock.Advance(2 * time.Minute)

	require.True(t, f.reg.StopWriting("r1", "c1"))
	f.rec.take()
	assert.Equal(t, SweepResult{}, f.reg.Reaper().Sweep(f.clock.Now()))
	assert.Empty(t, f.rec.take())
}

func TestSweepEvictsNeverJoinedRoom(t *testing.T) {
	f := newFixture()
	f.reg.GetOrCreate("lobby")

	f.clock.Advance(DefaultEmptyRoomTTL)
	assert.Equal(t, SweepResult{}, f.reg.Reaper().Sweep(f.clock.Now()))

	f.clock.Advance(time.Second)
	assert.Equal(t, SweepResult{Evicted: 1}, f.reg.Reaper().Sweep(f.clock.Now()))
	_, ok := f.reg.Lookup("lobby")
	assert.False(t, ok)
	assert.Equal(t, []string{"lobby"}, f.obs.closed)
}

func TestSweepCustomTimeout(t *testing.T) {
	clock := newFakeClock()
	reg := NewRegistry(Options{Clock: clock, InactivityTimeout: 5 * time.Second})
	reg.Join("r1", "c1", "Ann", "#f00")
	require.True(t, reg.RequestWrite("r1", "c1"))

	clock.Advance(6 * time.Second)
	assert.Equal(t, 1, reg.Reaper().Sweep(clock.Now()).Reclaimed)
}

func TestReaperRunStopsOnCancel(t *testing.T) {
	reg := NewRegistry(Options{SweepInterval: 5 * time.Millisecond, InactivityTimeout: 10 * time.Millisecond})
	reg.Join("r1", "c1", "Ann", "#f00")
	require.True(t, reg.RequestWrite("r1", "c1"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- reg.Reaper().Run(ctx) }()

	assert.Eventually(t, func() bool {
		snap, _ := reg.Lookup("r1")
		return snap.ActiveWriterID == ""
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop")
	}
}
