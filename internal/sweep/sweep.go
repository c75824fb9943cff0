// Package sweep removes archived signals that aged out without ever
// reaching dispatch value.
package sweep

import (
	"fmt"
	"log"
	"time"

	"github.com/mkowalchik/civicsignal/internal/store"
)

// Result holds the counters of one sweep run.
type Result struct {
	Deleted int64
	Batches int
}

// Sweeper hard-deletes archived signals older than the retention window.
// Deletion runs in bounded batches so a single sweep never holds an
// unbounded transaction. Unread and notified signals are never touched.
type Sweeper struct {
	db        *store.DB
	window    time.Duration
	batchSize int
}

// New creates a sweeper with the given retention window and batch size.
func New(db *store.DB, window time.Duration, batchSize int) *Sweeper {
	if batchSize <= 0 {
		batchSize = 400
	}
	return &Sweeper{db: db, window: window, batchSize: batchSize}
}

// Run deletes batch after batch until no archived signal older than the
// window remains.
func (s *Sweeper) Run(now time.Time) (*Result, error) {
	cutoff := now.Add(-s.window)
	r := &Result{}

	for {
		n, err := s.db.DeleteArchivedSignalsBefore(cutoff, s.batchSize)
		if err != nil {
			return r, fmt.Errorf("deleting archived signals: %w", err)
		}
		if n == 0 {
			break
		}
		r.Deleted += n
		r.Batches++
	}

	if r.Deleted > 0 {
		log.Printf("Retention sweep removed %d archived signals in %d batches", r.Deleted, r.Batches)
	}
	return r, nil
}
