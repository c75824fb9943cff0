package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// InsertMeetingRecord persists one board change event's holistic summary.
func (db *DB) InsertMeetingRecord(rec MeetingRecord) error {
	topics, err := json.Marshal(rec.Topics)
	if err != nil {
		return fmt.Errorf("encoding topics: %w", err)
	}
	keywords, err := json.Marshal(rec.Keywords)
	if err != nil {
		return fmt.Errorf("encoding keywords: %w", err)
	}

	_, err = db.conn.Exec(
		`INSERT INTO meeting_records (id, org_id, board_name, summary, topics, keywords, score, raw_snippet)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.OrgID, rec.BoardName, rec.Summary, string(topics), string(keywords),
		rec.Score, rec.RawSnippet,
	)
	return err
}

// GetMeetingRecord returns a meeting record by id, or nil if absent.
func (db *DB) GetMeetingRecord(id string) (*MeetingRecord, error) {
	row := db.conn.QueryRow(
		`SELECT id, org_id, board_name, summary, topics, keywords, score, raw_snippet, created_at
		FROM meeting_records WHERE id = ?`, id,
	)
	rec, err := scanMeetingRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// GetRecentMeetingRecords returns the most recent records up to limit.
func (db *DB) GetRecentMeetingRecords(limit int) ([]MeetingRecord, error) {
	rows, err := db.conn.Query(
		`SELECT id, org_id, board_name, summary, topics, keywords, score, raw_snippet, created_at
		FROM meeting_records ORDER BY created_at DESC, id LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []MeetingRecord
	for rows.Next() {
		rec, err := scanMeetingRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

func scanMeetingRecord(row rowScanner) (*MeetingRecord, error) {
	var rec MeetingRecord
	var topics, keywords sql.NullString
	if err := row.Scan(&rec.ID, &rec.OrgID, &rec.BoardName, &rec.Summary, &topics,
		&keywords, &rec.Score, &rec.RawSnippet, &rec.CreatedAt); err != nil {
		return nil, err
	}
	if topics.Valid && topics.String != "" {
		json.Unmarshal([]byte(topics.String), &rec.Topics)
	}
	if keywords.Valid && keywords.String != "" {
		json.Unmarshal([]byte(keywords.String), &rec.Keywords)
	}
	return &rec, nil
}
