package directory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-io-live/turn-service/internal/config"
)

type fakeStore struct {
	mu     sync.Mutex
	keys   map[string]string
	sets   int
	failOn string
	closed bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{keys: make(map[string]string)}
}

func (s *fakeStore) Set(_ context.Context, key, value string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key == s.failOn {
		return errors.New("boom")
	}
	s.keys[key] = value
	s.sets++
	return nil
}

func (s *fakeStore) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	return nil
}

func (s *fakeStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fakeStore) get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.keys[key]
	return v, ok
}

func (s *fakeStore) setCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets
}

func testConfig() config.RedisConfig {
	return config.RedisConfig{
		DirectoryPrefix:   "turn:rooms:",
		AdvertiseAddress:  "node-1:8090",
		KeyTTL:            time.Second,
		HeartbeatInterval: 10 * time.Millisecond,
	}
}

func runDirectory(t *testing.T, d *RedisDirectory) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		assert.NoError(t, d.Run(ctx))
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel
}

func TestAnnounceAndWithdraw(t *testing.T) {
	store := newFakeStore()
	d := newDirectory(store, testConfig(), 8)
	runDirectory(t, d)

	d.Announce("r1")
	assert.Eventually(t, func() bool {
		v, ok := store.get("turn:rooms:r1")
		return ok && v == "node-1:8090"
	}, time.Second, 5*time.Millisecond)

	d.Withdraw("r1")
	assert.Eventually(t, func() bool {
		_, ok := store.get("turn:rooms:r1")
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestHeartbeatRefreshesLiveRooms(t *testing.T) {
	store := newFakeStore()
	d := newDirectory(store, testConfig(), 8)
	d.Announce("r1")
	runDirectory(t, d)

	assert.Eventually(t, func() bool { return store.setCount() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestShutdownWithdrawsOwnedKeys(t *testing.T) {
	store := newFakeStore()
	d := newDirectory(store, testConfig(), 8)
	cancel := runDirectory(t, d)

	d.Announce("r1")
	d.Announce("r2")
	assert.Eventually(t, func() bool {
		_, ok1 := store.get("turn:rooms:r1")
		_, ok2 := store.get("turn:rooms:r2")
		return ok1 && ok2
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.Eventually(t, func() bool {
		_, ok1 := store.get("turn:rooms:r1")
		_, ok2 := store.get("turn:rooms:r2")
		return !ok1 && !ok2
	}, time.Second, 5*time.Millisecond)
}

func TestFullQueueDropsWithoutBlocking(t *testing.T) {
	d := newDirectory(newFakeStore(), testConfig(), 1)
	d.Announce("r1")
	d.Announce("r2")
	d.Withdraw("r2")
	assert.Equal(t, uint64(2), d.Dropped())
	assert.ElementsMatch(t, []string{"r1"}, d.snapshot())
}

func TestStoreErrorIsNotFatal(t *testing.T) {
	store := newFakeStore()
	store.failOn = "turn:rooms:bad"
	d := newDirectory(store, testConfig(), 8)
	runDirectory(t, d)

	d.Announce("bad")
	d.Announce("good")
	assert.Eventually(t, func() bool {
		_, ok := store.get("turn:rooms:good")
		return ok
	}, time.Second, 5*time.Millisecond)
}

func TestClose(t *testing.T) {
	store := newFakeStore()
	d := newDirectory(store, testConfig(), 8)
	require.NoError(t, d.Close())
	assert.True(t, store.closed)
}

func TestNop(t *testing.T) {
	var d Directory = Nop{}
	d.Announce("r1")
	d.Withdraw("r1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, d.Run(ctx))
	assert.NoError(t, d.Close())
}
