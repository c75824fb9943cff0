package store

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedOrg(t *testing.T, db *DB) {
	t.Helper()
	if err := db.UpsertOrganization(Organization{ID: "org1", Name: "Test Town", PortalURL: "https://example.com/portal"}); err != nil {
		t.Fatalf("seeding org: %v", err)
	}
	if err := db.UpsertBoard("org1", "council", "City Council", 0); err != nil {
		t.Fatalf("seeding board: %v", err)
	}
}

func TestBookmarkLifecycle(t *testing.T) {
	db := openTestDB(t)
	seedOrg(t, db)

	mark, err := db.GetBookmark("org1", "council")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mark != "" {
		t.Errorf("expected empty bookmark for fresh board, got %q", mark)
	}

	if err := db.SetBookmark("org1", "council", "2025-01-05 Council Meeting"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mark, _ = db.GetBookmark("org1", "council")
	if mark != "2025-01-05 Council Meeting" {
		t.Errorf("expected bookmark to advance, got %q", mark)
	}
}

func TestSetBookmarkUnknownBoard(t *testing.T) {
	db := openTestDB(t)
	seedOrg(t, db)

	if err := db.SetBookmark("org1", "planning", "fp"); err == nil {
		t.Error("expected error for unknown board")
	}
}

func TestGetBookmarkUnknownBoard(t *testing.T) {
	db := openTestDB(t)

	mark, err := db.GetBookmark("org1", "council")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mark != "" {
		t.Errorf("expected empty bookmark for unknown board, got %q", mark)
	}
}

func TestResetBookmarks(t *testing.T) {
	db := openTestDB(t)
	seedOrg(t, db)
	db.UpsertBoard("org1", "planning", "Planning Commission", 1)
	db.SetBookmark("org1", "council", "a")
	db.SetBookmark("org1", "planning", "b")

	n, err := db.ResetBookmarks("org1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 bookmarks reset, got %d", n)
	}
	mark, _ := db.GetBookmark("org1", "council")
	if mark != "" {
		t.Errorf("expected cleared bookmark, got %q", mark)
	}
}

func TestUpsertBoardKeepsBookmark(t *testing.T) {
	db := openTestDB(t)
	seedOrg(t, db)
	db.SetBookmark("org1", "council", "fp")

	if err := db.UpsertBoard("org1", "council", "Renamed Council", 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mark, _ := db.GetBookmark("org1", "council")
	if mark != "fp" {
		t.Errorf("expected bookmark to survive board upsert, got %q", mark)
	}
}

func TestInsertSignalThreshold(t *testing.T) {
	db := openTestDB(t)

	_, status, err := db.InsertSignal("sub1", nil, "Coffee Retail", 7, "analysis", nil, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusUnread {
		t.Errorf("expected score at threshold to be unread, got %q", status)
	}

	_, status, err = db.InsertSignal("sub1", nil, "Coffee Retail", 6, "analysis", nil, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusArchived {
		t.Errorf("expected score below threshold to be archived, got %q", status)
	}
}

func TestDispatchableSignalsOrdering(t *testing.T) {
	db := openTestDB(t)
	first, _, _ := db.InsertSignal("sub1", nil, "Retail", 9, "first", nil, 7)
	db.InsertSignal("sub1", nil, "Retail", 5, "low score", nil, 7)
	second, _, _ := db.InsertSignal("sub2", nil, "Dining", 8, "second", nil, 7)

	signals, err := db.GetDispatchableSignals(7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(signals) != 2 {
		t.Fatalf("expected 2 dispatchable signals, got %d", len(signals))
	}
	if signals[0].ID != first || signals[1].ID != second {
		t.Errorf("expected oldest-first order %d,%d, got %d,%d",
			first, second, signals[0].ID, signals[1].ID)
	}
}

func TestMarkSignalNotified(t *testing.T) {
	db := openTestDB(t)
	id, _, _ := db.InsertSignal("sub1", nil, "Retail", 9, "analysis", nil, 7)

	if err := db.MarkSignalNotified(id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sig, _ := db.GetSignal(id)
	if sig.Status != StatusNotified {
		t.Errorf("expected notified, got %q", sig.Status)
	}

	signals, _ := db.GetDispatchableSignals(7)
	if len(signals) != 0 {
		t.Errorf("expected notified signal to leave dispatch queue, got %d", len(signals))
	}
}

// backdateSignal rewrites a signal's created_at, simulating age.
func backdateSignal(t *testing.T, db *DB, id int64, age time.Duration) {
	t.Helper()
	ts := time.Now().UTC().Add(-age).Format(timeLayout)
	if _, err := db.conn.Exec(`UPDATE signals SET created_at = ? WHERE id = ?`, ts, id); err != nil {
		t.Fatalf("backdating signal: %v", err)
	}
}

func TestDeleteArchivedSignalsBefore(t *testing.T) {
	db := openTestDB(t)
	old, _, _ := db.InsertSignal("sub1", nil, "Retail", 3, "old archived", nil, 7)
	fresh, _, _ := db.InsertSignal("sub1", nil, "Retail", 3, "fresh archived", nil, 7)
	oldUnread, _, _ := db.InsertSignal("sub1", nil, "Retail", 9, "old unread", nil, 7)

	backdateSignal(t, db, old, 22*24*time.Hour)
	backdateSignal(t, db, fresh, 20*24*time.Hour)
	backdateSignal(t, db, oldUnread, 30*24*time.Hour)

	cutoff := time.Now().Add(-21 * 24 * time.Hour)
	n, err := db.DeleteArchivedSignalsBefore(cutoff, 400)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 deletion, got %d", n)
	}

	if sig, _ := db.GetSignal(old); sig != nil {
		t.Error("expected aged archived signal to be deleted")
	}
	if sig, _ := db.GetSignal(fresh); sig == nil {
		t.Error("expected in-window archived signal to survive")
	}
	if sig, _ := db.GetSignal(oldUnread); sig == nil {
		t.Error("expected unread signal to survive regardless of age")
	}
}

func TestDeleteArchivedSignalsBatchLimit(t *testing.T) {
	db := openTestDB(t)
	for i := 0; i < 5; i++ {
		id, _, _ := db.InsertSignal("sub1", nil, "Retail", 2, "aged", nil, 7)
		backdateSignal(t, db, id, 30*24*time.Hour)
	}

	cutoff := time.Now().Add(-21 * 24 * time.Hour)
	n, err := db.DeleteArchivedSignalsBefore(cutoff, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected batch of 2 deletions, got %d", n)
	}
}

func TestNotificationLedgerWriteOnce(t *testing.T) {
	db := openTestDB(t)

	seen, err := db.HasNotification("key1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen {
		t.Error("expected empty ledger")
	}

	if err := db.RecordNotification("key1", "sub1", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Second write for the same key is a no-op, not an error.
	if err := db.RecordNotification("key1", "sub1", 2); err != nil {
		t.Fatalf("unexpected error on duplicate record: %v", err)
	}

	seen, _ = db.HasNotification("key1")
	if !seen {
		t.Error("expected ledger hit after record")
	}
	n, _ := db.CountNotifications()
	if n != 1 {
		t.Errorf("expected 1 ledger entry, got %d", n)
	}
}

func TestLedgerSurvivesSignalDeletion(t *testing.T) {
	db := openTestDB(t)
	id, _, _ := db.InsertSignal("sub1", nil, "Retail", 3, "analysis", nil, 7)
	db.RecordNotification("key1", "sub1", id)
	backdateSignal(t, db, id, 30*24*time.Hour)

	db.DeleteArchivedSignalsBefore(time.Now(), 400)
	seen, _ := db.HasNotification("key1")
	if !seen {
		t.Error("expected ledger entry to outlive its signal")
	}
}

func TestProfileRoundtrip(t *testing.T) {
	db := openTestDB(t)
	db.UpsertSubscriber(Subscriber{ID: "sub1", Email: "a@b.c", Status: "active", Tier: "basic"})

	p := InterestProfile{
		ID:           "p1",
		SubscriberID: "sub1",
		Industry:     "Coffee Retail",
		Keywords:     []string{"zoning", "road closure"},
		Exclusions:   []string{"school board"},
		Active:       true,
	}
	if err := db.UpsertProfile(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := db.GetProfile("p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("expected profile")
	}
	if len(got.Keywords) != 2 || got.Keywords[0] != "zoning" {
		t.Errorf("unexpected keywords: %v", got.Keywords)
	}
	if len(got.Exclusions) != 1 || got.Exclusions[0] != "school board" {
		t.Errorf("unexpected exclusions: %v", got.Exclusions)
	}
	if !got.Active {
		t.Error("expected active profile")
	}
}

func TestToggleProfile(t *testing.T) {
	db := openTestDB(t)
	db.UpsertSubscriber(Subscriber{ID: "sub1", Email: "a@b.c", Status: "active", Tier: "basic"})
	db.UpsertProfile(InterestProfile{ID: "p1", SubscriberID: "sub1", Industry: "Retail", Active: true})

	if err := db.ToggleProfile("p1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	active, _ := db.GetActiveProfiles()
	if len(active) != 0 {
		t.Errorf("expected 0 active profiles after toggle, got %d", len(active))
	}

	db.ToggleProfile("p1")
	active, _ = db.GetActiveProfiles()
	if len(active) != 1 {
		t.Errorf("expected 1 active profile after second toggle, got %d", len(active))
	}
}

func TestGetStats(t *testing.T) {
	db := openTestDB(t)
	seedOrg(t, db)
	db.UpsertSubscriber(Subscriber{ID: "sub1", Email: "a@b.c", Status: "active", Tier: "pro"})
	db.UpsertProfile(InterestProfile{ID: "p1", SubscriberID: "sub1", Industry: "Retail", Active: true})
	db.InsertSignal("sub1", nil, "Retail", 9, "hit", nil, 7)
	db.InsertSignal("sub1", nil, "Retail", 2, "miss", nil, 7)

	stats, err := db.GetStats()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Organizations != 1 || stats.Boards != 1 {
		t.Errorf("unexpected org/board counts: %+v", stats)
	}
	if stats.TotalSignals != 2 || stats.UnreadSignals != 1 {
		t.Errorf("unexpected signal counts: %+v", stats)
	}
}
