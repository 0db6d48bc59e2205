// Package room is the per-room coordination engine: the room registry, the
// single-writer arbiter, turn handoff, inactivity reclaim and presence.
package room

import (
	"sync"
	"time"

	"github.com/weiawesome/wes-io-live/turn-service/internal/domain"
	"github.com/weiawesome/wes-io-live/turn-service/internal/notice"
)

const (
	DefaultInactivityTimeout = 60 * time.Second
	DefaultSweepInterval     = time.Second
	DefaultEmptyRoomTTL      = 5 * time.Minute
)

// Options configures a Registry. Zero values fall back to the defaults.
type Options struct {
	Clock     Clock
	Publisher Publisher
	Observer  Observer
	Notices   Noticer

	InactivityTimeout time.Duration
	SweepInterval     time.Duration
	EmptyRoomTTL      time.Duration
}

// Registry owns every room in the process. Each room is guarded by its own
// mutex held for the whole of an operation; the map has a separate lock that
// is never acquired before a room lock is released, only after.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*entry

	clock    Clock
	pub      Publisher
	observer Observer
	notices  Noticer

	inactivityTimeout time.Duration
	emptyRoomTTL      time.Duration
	reaper            *Reaper
}

type entry struct {
	mu      sync.Mutex
	room    *domain.Room
	evicted bool
}

// Stats is a point-in-time count across all rooms.
type Stats struct {
	Rooms         int `json:"rooms"`
	Participants  int `json:"participants"`
	ActiveWriters int `json:"active_writers"`
}

func NewRegistry(opts Options) *Registry {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Publisher == nil {
		opts.Publisher = nopPublisher{}
	}
	if opts.Observer == nil {
		opts.Observer = NopObserver{}
	}
	if opts.Notices == nil {
		opts.Notices = notice.MustNew(notice.DefaultLocale)
	}
	if opts.InactivityTimeout <= 0 {
		opts.InactivityTimeout = DefaultInactivityTimeout
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.EmptyRoomTTL <= 0 {
		opts.EmptyRoomTTL = DefaultEmptyRoomTTL
	}

	r := &Registry{
		rooms:             make(map[string]*entry),
		clock:             opts.Clock,
		pub:               opts.Publisher,
		observer:          opts.Observer,
		notices:           opts.Notices,
		inactivityTimeout: opts.InactivityTimeout,
		emptyRoomTTL:      opts.EmptyRoomTTL,
	}
	r.reaper = &Reaper{reg: r, interval: opts.SweepInterval}
	return r
}

// Reaper returns the inactivity sweep owned by this registry.
func (r *Registry) Reaper() *Reaper {
	return r.reaper
}

// GetOrCreate returns a snapshot of the room, creating it empty if absent.
func (r *Registry) GetOrCreate(roomID string) domain.RoomSnapshot {
	var snap domain.RoomSnapshot
	r.withRoom(roomID, true, func(t *txn) bool {
		snap = t.room.Snapshot()
		return true
	})
	return snap
}

// Join inserts or replaces the participant keyed by connectionID. A replaced
// participant keeps its writer role but not a pending turn request. The
// joiner gets the room state directly; the room gets a presence update and,
// except for the joiner, a joined notice.
func (r *Registry) Join(roomID, connectionID, displayName, color string) domain.RoomSnapshot {
	var snap domain.RoomSnapshot
	r.withRoom(roomID, true, func(t *txn) bool {
		joinedAt := t.now
		if prev, ok := t.room.Participants[connectionID]; ok {
			joinedAt = prev.JoinedAt
		}
		t.room.Participants[connectionID] = &domain.Participant{
			ConnectionID: connectionID,
			DisplayName:  displayName,
			Color:        color,
			JoinedAt:     joinedAt,
		}
		t.room.EmptySince = time.Time{}

		snap = t.room.Snapshot()
		t.direct(connectionID, t.roomState())
		if w := t.writer(); w != nil {
			t.direct(connectionID, domain.NewWriterChanged(domain.NewWriterInfo(w)))
		}
		t.broadcast(t.presence(), "")
		t.broadcast(t.notice(domain.NoticeJoined, displayName), connectionID)
		return true
	})
	return snap
}

// Leave removes the participant, releasing the writer role first if held.
// The room is evicted once its last participant is gone.
func (r *Registry) Leave(roomID, connectionID string) bool {
	return r.withRoom(roomID, false, func(t *txn) bool {
		p, ok := t.room.Participants[connectionID]
		if !ok {
			return false
		}

		t.release(connectionID, domain.ReasonLeft)
		delete(t.room.Participants, connectionID)

		t.broadcast(t.presence(), "")
		t.broadcast(t.notice(domain.NoticeLeft, p.DisplayName), "")

		if len(t.room.Participants) == 0 {
			t.room.EmptySince = t.now
			t.evict = true
		}
		return true
	})
}

// Lookup returns a snapshot of an existing room.
func (r *Registry) Lookup(roomID string) (domain.RoomSnapshot, bool) {
	e := r.existing(roomID)
	if e == nil {
		return domain.RoomSnapshot{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicted {
		return domain.RoomSnapshot{}, false
	}
	return e.room.Snapshot(), true
}

// Stats counts rooms, participants and active writers.
func (r *Registry) Stats() Stats {
	var s Stats
	for _, e := range r.entries() {
		e.mu.Lock()
		if !e.evicted {
			s.Rooms++
			s.Participants += len(e.room.Participants)
			if e.room.HasWriter() {
				s.ActiveWriters++
			}
		}
		e.mu.Unlock()
	}
	return s
}

func (r *Registry) existing(roomID string) *entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms[roomID]
}

func (r *Registry) getOrCreate(roomID string) *entry {
	if e := r.existing(roomID); e != nil {
		return e
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.rooms[roomID]; ok {
		return e
	}
	e := &entry{room: domain.NewRoom(roomID, r.clock.Now())}
	r.rooms[roomID] = e
	r.observer.RoomOpened(roomID)
	return e
}

func (r *Registry) entries() []*entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entry, 0, len(r.rooms))
	for _, e := range r.rooms {
		out = append(out, e)
	}
	return out
}

// withRoom runs fn with the room locked. Without create, a missing room
// makes the call a no-op that returns false. An entry evicted between the
// map lookup and the lock is retried against a fresh room.
func (r *Registry) withRoom(roomID string, create bool, fn func(*txn) bool) bool {
	for {
		var e *entry
		if create {
			e = r.getOrCreate(roomID)
		} else if e = r.existing(roomID); e == nil {
			return false
		}

		e.mu.Lock()
		if e.evicted {
			e.mu.Unlock()
			if !create {
				return false
			}
			continue
		}
		ok := r.exec(e, r.clock.Now(), fn)
		e.mu.Unlock()
		return ok
	}
}

// exec requires e.mu held.
func (r *Registry) exec(e *entry, now time.Time, fn func(*txn) bool) bool {
	t := &txn{reg: r, room: e.room, now: now}
	ok := fn(t)
	if len(t.events) > 0 {
		r.pub.Publish(e.room.ID, t.events)
	}
	if t.evict {
		r.evictLocked(e)
	}
	return ok
}

// evictLocked requires e.mu held. RoomClosed runs under r.mu, like
// RoomOpened, so observers see open and close of one id in map order.
func (r *Registry) evictLocked(e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.evicted = true
	if r.rooms[e.room.ID] != e {
		return
	}
	delete(r.rooms, e.room.ID)
	r.observer.RoomClosed(e.room.ID)
}

// txn accumulates the outbound events of one operation on one room.
type txn struct {
	reg    *Registry
	room   *domain.Room
	now    time.Time
	events []domain.Event
	evict  bool
}

func (t *txn) broadcast(msg domain.OutboundMessage, exclude string) {
	t.events = append(t.events, domain.Event{Message: msg, Exclude: exclude})
}

func (t *txn) direct(target string, msg domain.OutboundMessage) {
	t.events = append(t.events, domain.Event{Message: msg, Target: target})
}

func (t *txn) notice(kind domain.NoticeKind, displayName string) *domain.SystemNoticeMessage {
	return domain.NewSystemNotice(kind, t.reg.notices.Notice(kind, displayName))
}

func (t *txn) turnChanged(kind TurnChangeKind, from, to string, reason domain.ReleaseReason) {
	t.reg.observer.TurnChanged(TurnChange{
		RoomID: t.room.ID,
		Kind:   kind,
		From:   from,
		To:     to,
		Reason: reason,
		At:     t.now,
	})
}

func (t *txn) denied(op domain.Operation) {
	t.reg.observer.Denied(t.room.ID, op)
}
