package store

import "database/sql"

// HasNotification reports whether the dedup ledger already holds a record
// for the given key, meaning that content has been delivered to that
// subscriber before.
func (db *DB) HasNotification(dedupKey string) (bool, error) {
	var one int
	err := db.conn.QueryRow(
		`SELECT 1 FROM sent_notifications WHERE dedup_key = ?`, dedupKey,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// RecordNotification writes a dedup ledger entry after a successful send.
// The ledger is write-once: a second insert for the same key is a no-op,
// and entries survive deletion of the originating signal.
func (db *DB) RecordNotification(dedupKey, subscriberID string, signalID int64) error {
	_, err := db.conn.Exec(
		`INSERT INTO sent_notifications (dedup_key, subscriber_id, signal_id)
		VALUES (?, ?, ?) ON CONFLICT(dedup_key) DO NOTHING`,
		dedupKey, subscriberID, signalID,
	)
	return err
}

// CountNotifications returns the total number of ledger entries.
func (db *DB) CountNotifications() (int, error) {
	var n int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM sent_notifications`).Scan(&n)
	return n, err
}
