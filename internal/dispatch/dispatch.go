// Package dispatch delivers unread high-score signals to their subscribers
// and keeps the write-once dedup ledger.
package dispatch

import (
	"context"
	"fmt"
	"html/template"
	"log"
	"strings"

	"github.com/mkowalchik/civicsignal/internal/mail"
	"github.com/mkowalchik/civicsignal/internal/store"
)

// Result holds the counters of one dispatch run.
type Result struct {
	Sent              int
	Deduped           int
	SkippedSubscriber int
	Failed            int
}

// Dispatcher selects eligible signals and sends alert mail. Each signal is
// dispatched independently; there is no batching per subscriber.
type Dispatcher struct {
	db        *store.DB
	mailer    mail.Mailer
	from      string
	threshold int
	prefixLen int
}

// New creates a dispatcher. threshold is the minimum score for delivery;
// prefixLen is the dedup hash prefix length.
func New(db *store.DB, mailer mail.Mailer, from string, threshold, prefixLen int) *Dispatcher {
	return &Dispatcher{
		db:        db,
		mailer:    mailer,
		from:      from,
		threshold: threshold,
		prefixLen: prefixLen,
	}
}

// Run processes every unread signal at or above the threshold.
//
// For each signal: resolve the subscriber (skip silently when missing or
// inactive); consult the dedup ledger (a hit marks the signal notified
// without sending); otherwise send, then record the ledger entry and mark
// notified. A send failure leaves the signal unread so the next scheduled
// run retries it.
func (d *Dispatcher) Run(ctx context.Context) (*Result, error) {
	signals, err := d.db.GetDispatchableSignals(d.threshold)
	if err != nil {
		return nil, fmt.Errorf("selecting dispatchable signals: %w", err)
	}

	r := &Result{}
	for _, sig := range signals {
		sub, err := d.db.GetSubscriber(sig.SubscriberID)
		if err != nil {
			log.Printf("Error resolving subscriber %s: %v", sig.SubscriberID, err)
			r.Failed++
			continue
		}
		if sub == nil || sub.Status != "active" {
			r.SkippedSubscriber++
			continue
		}

		key := DedupKey(sig.SubscriberID, sig.Analysis, d.prefixLen)
		seen, err := d.db.HasNotification(key)
		if err != nil {
			log.Printf("Error checking dedup ledger for signal %d: %v", sig.ID, err)
			r.Failed++
			continue
		}
		if seen {
			// Prior delivery of this content suffices. Mark notified so the
			// signal leaves the dispatch queue without a second send.
			if err := d.db.MarkSignalNotified(sig.ID); err != nil {
				log.Printf("Error marking signal %d notified: %v", sig.ID, err)
				r.Failed++
				continue
			}
			r.Deduped++
			log.Printf("Already sent similar content to %s, marked signal %d notified", sub.Email, sig.ID)
			continue
		}

		msg := mail.Message{
			From:     d.from,
			To:       []string{sub.Email},
			Subject:  fmt.Sprintf("PRIORITY [%d/10]: %s Intelligence Alert", sig.Score, sig.Industry),
			HTMLBody: renderAlertHTML(sig),
		}
		if err := d.mailer.Send(ctx, msg); err != nil {
			// Leave the signal unread; the next run retries.
			log.Printf("Send failed for signal %d to %s: %v", sig.ID, sub.Email, err)
			r.Failed++
			continue
		}

		if err := d.db.RecordNotification(key, sig.SubscriberID, sig.ID); err != nil {
			log.Printf("Error recording dedup entry for signal %d: %v", sig.ID, err)
		}
		if err := d.db.MarkSignalNotified(sig.ID); err != nil {
			log.Printf("Error marking signal %d notified: %v", sig.ID, err)
			r.Failed++
			continue
		}
		r.Sent++
		log.Printf("Alert sent to %s (industry %s, score %d)", sub.Email, sig.Industry, sig.Score)
	}

	log.Printf("Dispatch complete: %d sent, %d deduped, %d skipped, %d failed",
		r.Sent, r.Deduped, r.SkippedSubscriber, r.Failed)
	return r, nil
}

const alertBody = `<div style="background-color:#f4f7f9;padding:40px 10px;font-family:sans-serif;">
  <div style="max-width:600px;margin:0 auto;background-color:#ffffff;border-radius:8px;border-top:6px solid #1a2a40;">
    <div style="padding:30px;">
      <p style="text-transform:uppercase;letter-spacing:2px;color:#64748b;font-size:11px;font-weight:700;margin-bottom:5px;">CivicSignal Municipal Intelligence</p>
      <h1 style="color:#1a2a40;font-size:22px;margin:0;">Executive Briefing: %s</h1>
    </div>
    <div style="background-color:#1a2a40;padding:15px 30px;color:#ffffff;">
      <span style="background:#e2e8f0;color:#1a2a40;padding:3px 10px;border-radius:3px;font-weight:800;margin-right:10px;">SCORE: %d/10</span>
      <span style="font-size:12px;text-transform:uppercase;color:#94a3b8;">Priority Signal Detected</span>
    </div>
    <div style="padding:30px;color:#334155;line-height:1.8;">
      <div style="background:#f8fafc;padding:20px;border-radius:6px;border-left:4px solid #cbd5e1;">%s</div>
    </div>
    <div style="padding:20px;text-align:center;background:#f8fafc;">
      <p style="font-size:11px;color:#94a3b8;">You received this because your interest profile matches recent board activity.</p>
    </div>
  </div>
</div>`

// renderAlertHTML escapes the analysis text and preserves its line breaks.
func renderAlertHTML(sig store.Signal) string {
	analysis := template.HTMLEscapeString(sig.Analysis)
	analysis = strings.ReplaceAll(analysis, "\n", "<br>")
	return fmt.Sprintf(alertBody, template.HTMLEscapeString(sig.Industry), sig.Score, analysis)
}
