package store

import "database/sql"

// Migration is a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS organizations (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    portal_url TEXT NOT NULL,
    feed_url TEXT,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS boards (
    org_id TEXT NOT NULL REFERENCES organizations(id),
    board_id TEXT NOT NULL,
    name TEXT NOT NULL,
    position INTEGER DEFAULT 0,
    bookmark TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (org_id, board_id)
);

CREATE TABLE IF NOT EXISTS subscribers (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'active',
    tier TEXT NOT NULL DEFAULT 'basic',
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS interest_profiles (
    id TEXT PRIMARY KEY,
    subscriber_id TEXT NOT NULL REFERENCES subscribers(id),
    industry TEXT NOT NULL,
    keywords TEXT,
    exclusions TEXT,
    active INTEGER NOT NULL DEFAULT 1,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS signals (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    subscriber_id TEXT NOT NULL,
    profile_id TEXT,
    industry TEXT NOT NULL,
    score INTEGER NOT NULL,
    analysis TEXT NOT NULL,
    status TEXT NOT NULL CHECK(status IN ('unread', 'notified', 'archived')),
    meeting_record_id TEXT,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS sent_notifications (
    dedup_key TEXT PRIMARY KEY,
    subscriber_id TEXT NOT NULL,
    signal_id INTEGER NOT NULL,
    sent_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS meeting_records (
    id TEXT PRIMARY KEY,
    org_id TEXT NOT NULL,
    board_name TEXT NOT NULL,
    summary TEXT NOT NULL,
    topics TEXT,
    keywords TEXT,
    score INTEGER DEFAULT 0,
    raw_snippet TEXT,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS digests (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    body_markdown TEXT NOT NULL,
    body_html TEXT NOT NULL,
    week_start TEXT,
    week_end TEXT,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_signals_status ON signals(status);
CREATE INDEX IF NOT EXISTS idx_signals_subscriber ON signals(subscriber_id);
CREATE INDEX IF NOT EXISTS idx_signals_created ON signals(created_at);
CREATE INDEX IF NOT EXISTS idx_profiles_active ON interest_profiles(active);
CREATE INDEX IF NOT EXISTS idx_meetings_org ON meeting_records(org_id);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
