// Package reaper sweeps idle telnet sessions on a cron schedule, following
// internal/scheduler/scheduler.go's cron.New(cron.WithSeconds()) +
// concurrency-bounded execution shape, repurposed from running configured
// external events to closing connections that have gone idle too long.
package reaper

import (
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Tracked is the subset of telnetd.Conn the reaper needs: idle duration and
// a way to close it. telnetd.Conn satisfies this directly.
type Tracked interface {
	Idle() time.Duration
	Close() error
}

type entry struct {
	conn Tracked
	addr string
}

// Reaper periodically closes sessions idle past a configured timeout.
type Reaper struct {
	mu      sync.Mutex
	entries map[string]entry

	idleTimeout time.Duration
	schedule    string

	cron *cron.Cron
	sem  chan struct{}
}

// New creates a Reaper. idleTimeout <= 0 disables sweeping entirely (Start
// becomes a no-op), matching SessionIdleTimeoutMinutes == 0 in config.
func New(idleTimeout time.Duration) *Reaper {
	return &Reaper{
		entries:     make(map[string]entry),
		idleTimeout: idleTimeout,
		schedule:    "@every 30s",
		sem:         make(chan struct{}, 8),
	}
}

// Register tracks conn under id (typically the session ID) until Forget is
// called or the reaper closes it for idleness.
func (r *Reaper) Register(id string, conn Tracked, addr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = entry{conn: conn, addr: addr}
}

// Forget stops tracking id, called when a session ends on its own.
func (r *Reaper) Forget(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// Start begins the sweep schedule. It returns immediately; call Stop to
// shut it down.
func (r *Reaper) Start() {
	if r.idleTimeout <= 0 {
		log.Printf("INFO: Idle session reaper disabled (no timeout configured)")
		return
	}

	r.cron = cron.New(cron.WithSeconds())
	if _, err := r.cron.AddFunc(r.schedule, r.sweep); err != nil {
		log.Printf("ERROR: Failed to schedule idle session reaper: %v", err)
		return
	}
	r.cron.Start()
	log.Printf("INFO: Idle session reaper running (timeout %s, schedule %q)", r.idleTimeout, r.schedule)
}

// Stop halts the sweep schedule and waits for any in-flight sweep to finish.
func (r *Reaper) Stop() {
	if r.cron == nil {
		return
	}
	ctx := r.cron.Stop()
	<-ctx.Done()
}

func (r *Reaper) sweep() {
	r.mu.Lock()
	victims := make(map[string]entry)
	for id, e := range r.entries {
		if e.conn.Idle() >= r.idleTimeout {
			victims[id] = e
			delete(r.entries, id)
		}
	}
	r.mu.Unlock()

	for id, v := range victims {
		select {
		case r.sem <- struct{}{}:
			v := v
			go func() {
				defer func() { <-r.sem }()
				log.Printf("INFO: Closing idle session %s (idle %s)", v.addr, r.idleTimeout)
				if err := v.conn.Close(); err != nil {
					log.Printf("WARN: Error closing idle session %s: %v", v.addr, err)
				}
			}()
		default:
			// At concurrency limit: put it back so the next sweep retries
			// instead of silently forgetting this session.
			log.Printf("WARN: Idle reaper at max concurrency, deferring close of %s to next sweep", v.addr)
			r.mu.Lock()
			r.entries[id] = v
			r.mu.Unlock()
		}
	}
}

// Count returns the number of currently tracked sessions, for monitoring.
func (r *Reaper) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
