package signal

import (
	"context"
	"sync"
	"time"
)

type window struct {
	start time.Time
	count int
}

// AdmissionLimiter counts admits per source in fixed windows. The counter
// for a source resets once its window has elapsed.
type AdmissionLimiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	limit    int
	interval time.Duration
	now      func() time.Time
}

func NewAdmissionLimiter(limit int, interval time.Duration) *AdmissionLimiter {
	return &AdmissionLimiter{
		windows:  make(map[string]*window),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

// Allow records one admit for source and reports whether it is within quota.
func (rl *AdmissionLimiter) Allow(source string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[source]
	if !ok || now.Sub(w.start) >= rl.interval {
		w = &window{start: now}
		rl.windows[source] = w
	}
	if w.count >= rl.limit {
		return false
	}
	w.count++
	return true
}

// Sweep forgets sources whose window has elapsed.
func (rl *AdmissionLimiter) Sweep() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	n := 0
	for src, w := range rl.windows {
		if now.Sub(w.start) >= rl.interval {
			delete(rl.windows, src)
			n++
		}
	}
	return n
}

// Run sweeps once per window until ctx is done.
func (rl *AdmissionLimiter) Run(ctx context.Context) {
	t := time.NewTicker(rl.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			rl.Sweep()
		}
	}
}
