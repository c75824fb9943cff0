package store

import "database/sql"

// UpsertDigest stores a weekly digest under its id. The "latest" id is
// overwritten each week; dated ids form the history.
func (db *DB) UpsertDigest(d Digest) error {
	_, err := db.conn.Exec(
		`INSERT INTO digests (id, title, body_markdown, body_html, week_start, week_end)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title,
			body_markdown = excluded.body_markdown, body_html = excluded.body_html,
			week_start = excluded.week_start, week_end = excluded.week_end,
			created_at = datetime('now')`,
		d.ID, d.Title, d.BodyMarkdown, d.BodyHTML, d.WeekStart, d.WeekEnd,
	)
	return err
}

// GetDigest returns a digest by id, or nil if absent.
func (db *DB) GetDigest(id string) (*Digest, error) {
	row := db.conn.QueryRow(
		`SELECT id, title, body_markdown, body_html, week_start, week_end, created_at
		FROM digests WHERE id = ?`, id,
	)
	var d Digest
	err := row.Scan(&d.ID, &d.Title, &d.BodyMarkdown, &d.BodyHTML, &d.WeekStart, &d.WeekEnd, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDigests returns all digests, newest first.
func (db *DB) GetDigests() ([]Digest, error) {
	rows, err := db.conn.Query(
		`SELECT id, title, body_markdown, body_html, week_start, week_end, created_at
		FROM digests ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var digests []Digest
	for rows.Next() {
		var d Digest
		if err := rows.Scan(&d.ID, &d.Title, &d.BodyMarkdown, &d.BodyHTML,
			&d.WeekStart, &d.WeekEnd, &d.CreatedAt); err != nil {
			return nil, err
		}
		digests = append(digests, d)
	}
	return digests, rows.Err()
}
