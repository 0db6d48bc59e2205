// Package directory advertises the rooms live on this instance in redis, so
// an operator or a router can tell where a room is being served.
package directory

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/weiawesome/wes-io-live/turn-service/internal/config"
	"github.com/weiawesome/wes-io-live/turn-service/pkg/log"
)

// Directory announces and withdraws live rooms. Announce and Withdraw never
// block; the I/O happens in Run.
type Directory interface {
	Announce(roomID string)
	Withdraw(roomID string)
	Run(ctx context.Context) error
	Close() error
}

// Nop is the directory used when redis is disabled.
type Nop struct{}

func (Nop) Announce(string) {}
func (Nop) Withdraw(string) {}

func (Nop) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (Nop) Close() error { return nil }

type keyStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Close() error
}

type redisStore struct {
	client *redis.Client
}

func (s redisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s redisStore) Del(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s redisStore) Close() error {
	return s.client.Close()
}

const queueSize = 1024

type op struct {
	roomID string
	live   bool
}

// RedisDirectory keeps one TTL key per live room, refreshed on a heartbeat.
type RedisDirectory struct {
	store             keyStore
	advertiseAddress  string
	prefix            string
	keyTTL            time.Duration
	heartbeatInterval time.Duration

	ops     chan op
	mu      sync.Mutex
	live    map[string]struct{}
	dropped atomic.Uint64
}

func NewRedisDirectory(cfg config.RedisConfig) (*RedisDirectory, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if cfg.AdvertiseAddress == "" {
		host, err := os.Hostname()
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to resolve advertise address: %w", err)
		}
		cfg.AdvertiseAddress = host
	}
	return newDirectory(redisStore{client: client}, cfg, queueSize), nil
}

func newDirectory(store keyStore, cfg config.RedisConfig, size int) *RedisDirectory {
	return &RedisDirectory{
		store:             store,
		advertiseAddress:  cfg.AdvertiseAddress,
		prefix:            cfg.DirectoryPrefix,
		keyTTL:            cfg.KeyTTL,
		heartbeatInterval: cfg.HeartbeatInterval,
		ops:               make(chan op, size),
		live:              make(map[string]struct{}),
	}
}

func (d *RedisDirectory) keyFor(roomID string) string {
	return d.prefix + roomID
}

// Announce marks roomID live. A dropped write is repaired by the next heartbeat.
func (d *RedisDirectory) Announce(roomID string) {
	d.mu.Lock()
	d.live[roomID] = struct{}{}
	d.mu.Unlock()
	d.enqueue(op{roomID: roomID, live: true})
}

// Withdraw removes roomID. A dropped delete expires with the key TTL.
func (d *RedisDirectory) Withdraw(roomID string) {
	d.mu.Lock()
	delete(d.live, roomID)
	d.mu.Unlock()
	d.enqueue(op{roomID: roomID})
}

func (d *RedisDirectory) enqueue(o op) {
	select {
	case d.ops <- o:
	default:
		d.dropped.Add(1)
	}
}

// Dropped returns how many writes were skipped because the queue was full.
func (d *RedisDirectory) Dropped() uint64 {
	return d.dropped.Load()
}

// Run applies queued writes and refreshes every live key until ctx is done,
// then deletes the keys it owns.
func (d *RedisDirectory) Run(ctx context.Context) error {
	l := log.Ctx(ctx)
	ticker := time.NewTicker(d.heartbeatInterval)
	defer ticker.Stop()

	l.Info().Dur("interval", d.heartbeatInterval).Dur("ttl", d.keyTTL).Msg("room directory heartbeat started")
	for {
		select {
		case <-ctx.Done():
			d.withdrawAll()
			return nil
		case o := <-d.ops:
			d.apply(ctx, o)
		case <-ticker.C:
			d.refreshKeys(ctx)
		}
	}
}

func (d *RedisDirectory) apply(ctx context.Context, o op) {
	l := log.L()
	key := d.keyFor(o.roomID)
	if o.live {
		if err := d.store.Set(ctx, key, d.advertiseAddress, d.keyTTL); err != nil {
			l.Error().Err(err).Str(log.FieldRoomID, o.roomID).Msg("failed to announce room")
		}
		return
	}
	if err := d.store.Del(ctx, key); err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, o.roomID).Msg("failed to withdraw room")
	}
}

func (d *RedisDirectory) snapshot() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	rooms := make([]string, 0, len(d.live))
	for roomID := range d.live {
		rooms = append(rooms, roomID)
	}
	return rooms
}

func (d *RedisDirectory) refreshKeys(ctx context.Context) {
	l := log.L()
	for _, roomID := range d.snapshot() {
		if err := d.store.Set(ctx, d.keyFor(roomID), d.advertiseAddress, d.keyTTL); err != nil {
			l.Error().Str(log.FieldRoomID, roomID).Err(err).Msg("failed to refresh key")
		}
	}
}

func (d *RedisDirectory) withdrawAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	l := log.L()
	for _, roomID := range d.snapshot() {
		if err := d.store.Del(ctx, d.keyFor(roomID)); err != nil {
			l.Warn().Str(log.FieldRoomID, roomID).Err(err).Msg("failed to withdraw room on shutdown")
		}
	}
}

func (d *RedisDirectory) Close() error {
	return d.store.Close()
}
