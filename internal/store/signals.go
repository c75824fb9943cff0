package store

import (
	"database/sql"
	"time"
)

// InsertSignal persists a new signal. The initial status is decided here,
// once, by comparing the score against the dispatch threshold: at or above
// goes to the dispatch queue as unread, below is archived immediately.
func (db *DB) InsertSignal(subscriberID string, profileID *string, industry string,
	score int, analysis string, meetingRecordID *string, threshold int) (int64, string, error) {

	status := StatusArchived
	if score >= threshold {
		status = StatusUnread
	}

	res, err := db.conn.Exec(
		`INSERT INTO signals (subscriber_id, profile_id, industry, score, analysis, status, meeting_record_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		subscriberID, profileID, industry, score, analysis, status, meetingRecordID,
	)
	if err != nil {
		return 0, "", err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, "", err
	}
	return id, status, nil
}

// GetSignal returns a signal by id, or nil if absent.
func (db *DB) GetSignal(id int64) (*Signal, error) {
	row := db.conn.QueryRow(
		`SELECT id, subscriber_id, profile_id, industry, score, analysis, status, meeting_record_id, created_at
		FROM signals WHERE id = ?`, id,
	)
	s, err := scanSignal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetDispatchableSignals returns unread signals meeting the score
// threshold, oldest first so retries keep their original order.
func (db *DB) GetDispatchableSignals(threshold int) ([]Signal, error) {
	return db.querySignals(
		`SELECT id, subscriber_id, profile_id, industry, score, analysis, status, meeting_record_id, created_at
		FROM signals WHERE status = ? AND score >= ? ORDER BY created_at, id`,
		StatusUnread, threshold,
	)
}

// GetSignalsSince returns all signals created at or after the cutoff,
// newest first. Used by the weekly digest.
func (db *DB) GetSignalsSince(cutoff time.Time) ([]Signal, error) {
	return db.querySignals(
		`SELECT id, subscriber_id, profile_id, industry, score, analysis, status, meeting_record_id, created_at
		FROM signals WHERE created_at >= ? ORDER BY created_at DESC, id DESC`,
		cutoff.UTC().Format(timeLayout),
	)
}

// GetRecentSignals returns the most recent signals up to the given limit.
func (db *DB) GetRecentSignals(limit int) ([]Signal, error) {
	return db.querySignals(
		`SELECT id, subscriber_id, profile_id, industry, score, analysis, status, meeting_record_id, created_at
		FROM signals ORDER BY created_at DESC, id DESC LIMIT ?`, limit,
	)
}

// MarkSignalNotified transitions a signal to notified after a successful
// send, or after a dedup-ledger hit showed the content was already sent.
func (db *DB) MarkSignalNotified(id int64) error {
	_, err := db.conn.Exec(
		`UPDATE signals SET status = ? WHERE id = ?`, StatusNotified, id,
	)
	return err
}

// DeleteArchivedSignalsBefore hard-deletes up to limit archived signals
// created before the cutoff and reports how many rows went away. Unread
// and notified signals are never touched, by construction of the filter.
func (db *DB) DeleteArchivedSignalsBefore(cutoff time.Time, limit int) (int64, error) {
	res, err := db.conn.Exec(
		`DELETE FROM signals WHERE id IN (
			SELECT id FROM signals WHERE status = ? AND created_at < ? LIMIT ?
		)`,
		StatusArchived, cutoff.UTC().Format(timeLayout), limit,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// timeLayout matches SQLite's datetime('now') text format (UTC).
const timeLayout = "2006-01-02 15:04:05"

func scanSignal(row rowScanner) (*Signal, error) {
	var s Signal
	if err := row.Scan(&s.ID, &s.SubscriberID, &s.ProfileID, &s.Industry, &s.Score,
		&s.Analysis, &s.Status, &s.MeetingRecordID, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (db *DB) querySignals(query string, args ...any) ([]Signal, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []Signal
	for rows.Next() {
		s, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		signals = append(signals, *s)
	}
	return signals, rows.Err()
}
