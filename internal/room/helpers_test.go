package room

import (
	"sync"
	"time"

	"github.com/weiawesome/wes-io-live/turn-service/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type published struct {
	roomID string
	event  domain.Event
}

type recorder struct {
	mu     sync.Mutex
	events []published
}

func (r *recorder) Publish(roomID string, events []domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range events {
		r.events = append(r.events, published{roomID: roomID, event: e})
	}
}

// take returns and clears everything recorded so far.
func (r *recorder) take() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Event, 0, len(r.events))
	for _, p := range r.events {
		out = append(out, p.event)
	}
	r.events = nil
	return out
}

func ofType[T domain.OutboundMessage](events []domain.Event) []T {
	var out []T
	for _, e := range events {
		if m, ok := e.Message.(T); ok {
			out = append(out, m)
		}
	}
	return out
}

func types(events []domain.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Message.MessageType())
	}
	return out
}

type countingObserver struct {
	mu      sync.Mutex
	opened  []string
	closed  []string
	changes []TurnChange
	denied  []domain.Operation
}

func (o *countingObserver) RoomOpened(roomID string) {
	o.mu.Lock()
	o.opened = append(o.opened, roomID)
	o.mu.Unlock()
}

func (o *countingObserver) RoomClosed(roomID string) {
	o.mu.Lock()
	o.closed = append(o.closed, roomID)
	o.mu.Unlock()
}

func (o *countingObserver) TurnChanged(c TurnChange) {
	o.mu.Lock()
	o.changes = append(o.changes, c)
	o.mu.Unlock()
}

func (o *countingObserver) Denied(_ string, op domain.Operation) {
	o.mu.Lock()
	o.denied = append(o.denied, op)
	o.mu.Unlock()
}

type fixture struct {
	reg   *Registry
	clock *fakeClock
	rec   *recorder
	obs   *countingObserver
}

func newFixture() *fixture {
	f := &fixture{clock: newFakeClock(), rec: &recorder{}, obs: &countingObserver{}}
	f.reg = NewRegistry(Options{
		Clock:     f.clock,
		Publisher: f.rec,
		Observer:  f.obs,
	})
	return f
}
