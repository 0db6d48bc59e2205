package room

import (
	"context"
	"time"

	"github.com/weiawesome/wes-io-live/turn-service/internal/domain"
	pkglog "github.com/weiawesome/wes-io-live/turn-service/pkg/log"
)

// Reaper is the only time-driven mutation path. Each sweep reclaims writer
// slots idle past the inactivity timeout and evicts rooms left empty past
// the empty-room TTL.
type Reaper struct {
	reg      *Registry
	interval time.Duration
}

// SweepResult counts what one sweep changed.
type SweepResult struct {
	Reclaimed int
	Evicted   int
}

// Interval returns the tick period used by Run.
func (p *Reaper) Interval() time.Duration {
	return p.interval
}

// Run sweeps on every tick until ctx is done.
func (p *Reaper) Run(ctx context.Context) error {
	l := pkglog.Ctx(ctx)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	l.Info().Dur("interval", p.interval).Dur("timeout", p.reg.inactivityTimeout).Msg("inactivity reaper started")
	for {
		select {
		case <-ctx.Done():
			l.Info().Msg("inactivity reaper stopped")
			return nil
		case <-ticker.C:
			res := p.Sweep(p.reg.clock.Now())
			if res.Reclaimed > 0 || res.Evicted > 0 {
				l.Debug().
					Int("reclaimed", res.Reclaimed).
					Int("evicted", res.Evicted).
					Msg("reaper sweep")
			}
		}
	}
}

// Sweep runs one pass at the given time. Rooms are visited one at a time
// under their own lock, so a sweep never blocks unrelated rooms for long.
func (p *Reaper) Sweep(now time.Time) SweepResult {
	var res SweepResult
	for _, e := range p.reg.entries() {
		e.mu.Lock()
		if !e.evicted {
			p.reg.exec(e, now, func(t *txn) bool {
				room := t.room
				if room.HasWriter() && now.Sub(room.LastActivityAt) > p.reg.inactivityTimeout {
					if t.release(room.ActiveWriterID, domain.ReasonInactivity) {
						res.Reclaimed++
					}
				}
				if len(room.Participants) == 0 && now.Sub(room.EmptySince) > p.reg.emptyRoomTTL {
					t.evict = true
					res.Evicted++
				}
				return true
			})
		}
		e.mu.Unlock()
	}
	return res
}
