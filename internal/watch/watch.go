// Package watch is the periodic trigger loop: the scan cycle every few
// hours and the digest once a week. Jobs run from a single goroutine so
// no two cycles can ever overlap.
package watch

import (
	"context"
	"log"
	"time"
)

// Jobs are the callbacks the watcher triggers.
type Jobs struct {
	Cycle  func(ctx context.Context)
	Digest func(ctx context.Context)
}

// Watcher fires jobs on a fixed cadence.
type Watcher struct {
	every      time.Duration
	jobs       Jobs
	lastCycle  time.Time
	lastDigest string // YYYY-MM-DD of the last digest run
}

// New creates a watcher running the cycle at the given interval and the
// digest on Friday mornings.
func New(every time.Duration, jobs Jobs) *Watcher {
	if every <= 0 {
		every = 6 * time.Hour
	}
	return &Watcher{every: every, jobs: jobs}
}

// Run blocks until the context is canceled, checking the schedule once a
// minute. The first cycle fires immediately.
func (w *Watcher) Run(ctx context.Context) {
	log.Printf("Watcher online: cycle every %s, digest Fridays at 09:00", w.every)

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	w.tick(ctx, time.Now())
	for {
		select {
		case t := <-ticker.C:
			w.tick(ctx, t)
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) tick(ctx context.Context, now time.Time) {
	if w.jobs.Cycle != nil && now.Sub(w.lastCycle) >= w.every {
		w.lastCycle = now
		log.Println("Watcher: starting scan cycle")
		w.jobs.Cycle(ctx)
	}

	if w.jobs.Digest != nil && w.digestDue(now) {
		w.lastDigest = now.Format("2006-01-02")
		log.Println("Watcher: starting weekly digest")
		w.jobs.Digest(ctx)
	}
}

// digestDue reports whether the Friday 09:00 slot has arrived and the
// digest has not already run today.
func (w *Watcher) digestDue(now time.Time) bool {
	if now.Weekday() != time.Friday || now.Hour() != 9 {
		return false
	}
	return w.lastDigest != now.Format("2006-01-02")
}
