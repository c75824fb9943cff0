// Package digest writes the weekly intelligence letter from the trailing
// window of signals, independent of the per-cycle alert path.
package digest

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/mkowalchik/civicsignal/internal/config"
	"github.com/mkowalchik/civicsignal/internal/llm"
	"github.com/mkowalchik/civicsignal/internal/mail"
	"github.com/mkowalchik/civicsignal/internal/store"
)

const letterPrompt = `You are writing a weekly municipal intelligence brief for local business leaders.

Write the brief in Markdown with this structure:
- A punchy title line (# heading)
- "The Big Story" section telling the week's main development
- "By The Numbers" section with 2-4 notable figures
- "On The Radar" section: one bullet per board with pending action
- "Blind Spot" section covering a low-scoring risk most readers would miss

Keep it under 600 words. No preamble, return only the Markdown.

SIGNALS FROM THE PAST WEEK:
%s

If the signal list is empty, write a short "quiet week" brief instead.`

var md = goldmark.New()

// Generator produces, stores, and optionally mails the weekly digest.
type Generator struct {
	db       *store.DB
	provider llm.Provider
	mailer   mail.Mailer
	cfg      *config.Config
}

// New creates a digest generator.
func New(db *store.DB, provider llm.Provider, mailer mail.Mailer, cfg *config.Config) *Generator {
	return &Generator{db: db, provider: provider, mailer: mailer, cfg: cfg}
}

// Run gathers the trailing signal window, drafts the letter, renders it to
// HTML, and stores it as both "latest" and a dated history entry. Returns
// nil without error when the window held no signals.
func (g *Generator) Run(ctx context.Context, now time.Time) (*store.Digest, error) {
	if g.provider == nil {
		return nil, fmt.Errorf("no inference provider configured")
	}

	lookback := g.cfg.Digest.LookbackDays
	if lookback <= 0 {
		lookback = 7
	}
	weekStart := now.AddDate(0, 0, -lookback)

	signals, err := g.db.GetSignalsSince(weekStart)
	if err != nil {
		return nil, fmt.Errorf("fetching weekly signals: %w", err)
	}
	if len(signals) == 0 {
		log.Println("No signals in the digest window, skipping")
		return nil, nil
	}

	prompt := fmt.Sprintf(letterPrompt, formatSignals(signals))
	markdown, err := g.provider.Generate(ctx, prompt, g.cfg.Scoring.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("drafting digest: %w", err)
	}
	markdown = stripFences(markdown)

	var htmlBuf bytes.Buffer
	if err := md.Convert([]byte(markdown), &htmlBuf); err != nil {
		return nil, fmt.Errorf("rendering digest: %w", err)
	}

	ws := weekStart.Format("2006-01-02")
	we := now.Format("2006-01-02")
	d := store.Digest{
		Title:        fmt.Sprintf("Weekly Brief: %s", now.Format("Jan 2, 2006")),
		BodyMarkdown: markdown,
		BodyHTML:     htmlBuf.String(),
		WeekStart:    &ws,
		WeekEnd:      &we,
	}

	d.ID = "latest"
	if err := g.db.UpsertDigest(d); err != nil {
		return nil, fmt.Errorf("storing digest: %w", err)
	}
	d.ID = now.Format("20060102")
	if err := g.db.UpsertDigest(d); err != nil {
		return nil, fmt.Errorf("storing digest history: %w", err)
	}
	log.Printf("Digest %s stored (%d signals)", d.ID, len(signals))

	g.deliver(ctx, &d)
	return &d, nil
}

// deliver mails the digest to configured recipients. Failures are logged,
// never fatal: the digest is already stored.
func (g *Generator) deliver(ctx context.Context, d *store.Digest) {
	if !g.cfg.Digest.Enabled || len(g.cfg.Digest.Recipients) == 0 || g.mailer == nil {
		return
	}
	msg := mail.Message{
		From:     g.cfg.Mail.From,
		To:       g.cfg.Digest.Recipients,
		Subject:  d.Title,
		HTMLBody: d.BodyHTML,
	}
	if err := g.mailer.Send(ctx, msg); err != nil {
		log.Printf("Digest delivery failed: %v", err)
		return
	}
	log.Printf("Digest mailed to %d recipients", len(g.cfg.Digest.Recipients))
}

// formatSignals renders the window as the flat entry list the letter
// prompt expects.
func formatSignals(signals []store.Signal) string {
	var entries []string
	for _, s := range signals {
		date := ""
		if s.CreatedAt != nil && len(*s.CreatedAt) >= 10 {
			date = (*s.CreatedAt)[:10]
		}
		entries = append(entries, fmt.Sprintf("DATE: %s\nTOPIC: %s\nSCORE: %d\nANALYSIS: %s\n---",
			date, s.Industry, s.Score, s.Analysis))
	}
	return strings.Join(entries, "\n")
}

// stripFences removes a wrapping markdown code fence if the model added one.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	end := len(lines) - 1
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			end = i
			break
		}
	}
	return strings.TrimSpace(strings.Join(lines[1:end], "\n"))
}
