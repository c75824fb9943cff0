// Package cycle drives one full intelligence cycle: scan every board of
// every organization for new content, score what changed against all
// active interest profiles, then dispatch alerts and sweep out aged
// archived signals.
package cycle

import (
	"context"
	"fmt"
	"time"

	"github.com/mkowalchik/civicsignal/internal/config"
	"github.com/mkowalchik/civicsignal/internal/dispatch"
	"github.com/mkowalchik/civicsignal/internal/llm"
	"github.com/mkowalchik/civicsignal/internal/mail"
	"github.com/mkowalchik/civicsignal/internal/portal"
	"github.com/mkowalchik/civicsignal/internal/score"
	"github.com/mkowalchik/civicsignal/internal/store"
	"github.com/mkowalchik/civicsignal/internal/sweep"
)

// StepResult holds the result of a single cycle step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full cycle run.
type Result struct {
	Steps []StepResult
}

// Cycle orchestrates the scan -> dispatch -> sweep pipeline. All client
// handles are injected at construction; nothing here is ambient state.
type Cycle struct {
	cfg        *config.Config
	db         *store.DB
	scorer     *score.Scorer
	dispatcher *dispatch.Dispatcher
	sweeper    *sweep.Sweeper
	htmlPortal portal.Portal
	feedPortal portal.Portal
}

// New creates a cycle from configuration and injected collaborators.
func New(cfg *config.Config, db *store.DB, provider llm.Provider, mailer mail.Mailer) *Cycle {
	pl := cfg.Pipeline
	return &Cycle{
		cfg:    cfg,
		db:     db,
		scorer: score.NewScorer(provider, cfg.Scoring.MaxTokens),
		dispatcher: dispatch.New(db, mailer, cfg.Mail.From,
			pl.DispatchThreshold, pl.DedupPrefixLen),
		sweeper: sweep.New(db,
			time.Duration(pl.RetentionDays)*24*time.Hour, pl.SweepBatchSize),
		htmlPortal: portal.NewHTTPPortal(
			time.Duration(pl.PeekTimeoutSec)*time.Second, pl.ExtractMaxChars),
		feedPortal: portal.NewFeedPortal(
			time.Duration(pl.PeekTimeoutSec)*time.Second, pl.ExtractMaxChars),
	}
}

// Run executes the full three-step cycle. A failed scan step still lets
// dispatch and sweep run: earlier cycles may have left deliverable signals.
func (c *Cycle) Run(ctx context.Context) *Result {
	r := &Result{}

	r.Steps = append(r.Steps, c.runScan(ctx))
	r.Steps = append(r.Steps, c.runDispatch(ctx))
	r.Steps = append(r.Steps, c.runSweep())

	return r
}

func (c *Cycle) runScan(ctx context.Context) StepResult {
	result := c.Scan(ctx)
	return StepResult{
		Name: "Scan",
		Summary: fmt.Sprintf("%d boards checked: %d changed, %d unchanged, %d signals created, %d noise, %d errors",
			result.BoardsChecked, result.BoardsProcessed, result.BoardsUnchanged,
			result.SignalsCreated, result.NoiseFiltered, result.Errors),
	}
}

func (c *Cycle) runDispatch(ctx context.Context) StepResult {
	result, err := c.dispatcher.Run(ctx)
	if err != nil {
		return StepResult{Name: "Dispatch", Err: err}
	}
	return StepResult{
		Name: "Dispatch",
		Summary: fmt.Sprintf("%d alerts sent, %d deduped, %d skipped, %d failed",
			result.Sent, result.Deduped, result.SkippedSubscriber, result.Failed),
	}
}

func (c *Cycle) runSweep() StepResult {
	result, err := c.sweeper.Run(time.Now())
	if err != nil {
		return StepResult{Name: "Sweep", Err: err}
	}
	return StepResult{
		Name:    "Sweep",
		Summary: fmt.Sprintf("%d aged archived signals removed", result.Deleted),
	}
}
