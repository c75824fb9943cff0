package digest

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mkowalchik/civicsignal/internal/config"
	"github.com/mkowalchik/civicsignal/internal/mail"
	"github.com/mkowalchik/civicsignal/internal/store"
)

type mockProvider struct {
	response string
	err      error
	prompt   string
}

func (m *mockProvider) Generate(_ context.Context, prompt string, _ int) (string, error) {
	m.prompt = prompt
	return m.response, m.err
}

func (m *mockProvider) IsConfigured() bool { return true }

type mockMailer struct {
	sent []mail.Message
}

func (m *mockMailer) Send(_ context.Context, msg mail.Message) error {
	m.sent = append(m.sent, msg)
	return nil
}

func (m *mockMailer) IsConfigured() bool { return true }

func openTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		Scoring: config.Scoring{MaxTokens: 2048},
		Mail:    config.Mail{From: "alerts@example.com"},
		Digest:  config.Digest{LookbackDays: 7},
	}
}

const letterMarkdown = `# Quiet Streets, Busy Chambers

## The Big Story
The council advanced the downtown rezoning.

## By The Numbers
- 3 variances approved

## On The Radar
- Planning Commission: final vote next week

## Blind Spot
Sidewalk repair assessments.`

func TestDigestRun(t *testing.T) {
	db := openTestDB(t)
	db.InsertSignal("sub1", nil, "Coffee Retail", 8, "Rezoning near Main St.", nil, 7)
	db.InsertSignal("sub2", nil, "Dining", 4, "Minor permit change.", nil, 7)

	provider := &mockProvider{response: letterMarkdown}
	g := New(db, provider, &mockMailer{}, testConfig())

	now := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	d, err := g.Run(context.Background(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d == nil {
		t.Fatal("expected a digest")
	}

	if d.ID != "20250110" {
		t.Errorf("unexpected digest id: %q", d.ID)
	}
	if !strings.Contains(d.BodyHTML, "<h1>") {
		t.Error("expected markdown rendered to HTML")
	}
	// Both signals appear in the prompt regardless of score.
	if !strings.Contains(provider.prompt, "Rezoning near Main St.") ||
		!strings.Contains(provider.prompt, "Minor permit change.") {
		t.Error("expected all window signals in the prompt")
	}

	// Stored under both "latest" and the dated id.
	latest, _ := db.GetDigest("latest")
	if latest == nil || latest.Title != d.Title {
		t.Error("expected latest digest stored")
	}
	dated, _ := db.GetDigest("20250110")
	if dated == nil {
		t.Error("expected dated digest stored")
	}
}

func TestDigestSkipsEmptyWindow(t *testing.T) {
	db := openTestDB(t)

	g := New(db, &mockProvider{response: letterMarkdown}, &mockMailer{}, testConfig())
	d, err := g.Run(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != nil {
		t.Error("expected nil digest for empty window")
	}
}

func TestDigestStripsFences(t *testing.T) {
	db := openTestDB(t)
	db.InsertSignal("sub1", nil, "Retail", 8, "analysis", nil, 7)

	provider := &mockProvider{response: "```markdown\n# Title\n\nBody text.\n```"}
	g := New(db, provider, &mockMailer{}, testConfig())

	d, err := g.Run(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(d.BodyMarkdown, "```") {
		t.Errorf("expected fences stripped, got %q", d.BodyMarkdown)
	}
	if !strings.HasPrefix(d.BodyMarkdown, "# Title") {
		t.Errorf("unexpected markdown: %q", d.BodyMarkdown)
	}
}

func TestDigestDelivery(t *testing.T) {
	db := openTestDB(t)
	db.InsertSignal("sub1", nil, "Retail", 8, "analysis", nil, 7)

	cfg := testConfig()
	cfg.Digest.Enabled = true
	cfg.Digest.Recipients = []string{"owner@example.com"}

	mailer := &mockMailer{}
	g := New(db, &mockProvider{response: letterMarkdown}, mailer, cfg)
	if _, err := g.Run(context.Background(), time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(mailer.sent) != 1 {
		t.Fatalf("expected 1 digest mail, got %d", len(mailer.sent))
	}
	if mailer.sent[0].To[0] != "owner@example.com" {
		t.Errorf("unexpected recipient: %v", mailer.sent[0].To)
	}
}

func TestDigestNotMailedWhenDisabled(t *testing.T) {
	db := openTestDB(t)
	db.InsertSignal("sub1", nil, "Retail", 8, "analysis", nil, 7)

	mailer := &mockMailer{}
	g := New(db, &mockProvider{response: letterMarkdown}, mailer, testConfig())
	g.Run(context.Background(), time.Now())

	if len(mailer.sent) != 0 {
		t.Errorf("expected no mail when digest delivery disabled, got %d", len(mailer.sent))
	}
}
