package store

import "database/sql"

// UpsertSubscriber creates or replaces a subscriber.
func (db *DB) UpsertSubscriber(sub Subscriber) error {
	_, err := db.conn.Exec(
		`INSERT INTO subscribers (id, email, status, tier) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET email = excluded.email,
			status = excluded.status, tier = excluded.tier`,
		sub.ID, sub.Email, sub.Status, sub.Tier,
	)
	return err
}

// GetSubscriber returns a subscriber by id, or nil if absent. A missing
// subscriber is not an error: the dispatcher skips stale references.
func (db *DB) GetSubscriber(id string) (*Subscriber, error) {
	row := db.conn.QueryRow(
		`SELECT id, email, status, tier, created_at FROM subscribers WHERE id = ?`, id,
	)
	var s Subscriber
	err := row.Scan(&s.ID, &s.Email, &s.Status, &s.Tier, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSubscribers returns all subscribers ordered by id.
func (db *DB) GetSubscribers() ([]Subscriber, error) {
	rows, err := db.conn.Query(
		`SELECT id, email, status, tier, created_at FROM subscribers ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []Subscriber
	for rows.Next() {
		var s Subscriber
		if err := rows.Scan(&s.ID, &s.Email, &s.Status, &s.Tier, &s.CreatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}
