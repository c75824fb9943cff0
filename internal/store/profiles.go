package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// UpsertProfile creates or replaces an interest profile.
func (db *DB) UpsertProfile(p InterestProfile) error {
	keywords, err := json.Marshal(p.Keywords)
	if err != nil {
		return fmt.Errorf("encoding keywords: %w", err)
	}
	exclusions, err := json.Marshal(p.Exclusions)
	if err != nil {
		return fmt.Errorf("encoding exclusions: %w", err)
	}

	active := 0
	if p.Active {
		active = 1
	}
	_, err = db.conn.Exec(
		`INSERT INTO interest_profiles (id, subscriber_id, industry, keywords, exclusions, active)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET subscriber_id = excluded.subscriber_id,
			industry = excluded.industry, keywords = excluded.keywords,
			exclusions = excluded.exclusions, active = excluded.active`,
		p.ID, p.SubscriberID, p.Industry, string(keywords), string(exclusions), active,
	)
	return err
}

// GetActiveProfiles returns every active interest profile. The pipeline
// evaluates each one independently against the same extracted text.
func (db *DB) GetActiveProfiles() ([]InterestProfile, error) {
	return db.queryProfiles(
		`SELECT id, subscriber_id, industry, keywords, exclusions, active, created_at
		FROM interest_profiles WHERE active = 1 ORDER BY id`,
	)
}

// GetAllProfiles returns every interest profile, active or not.
func (db *DB) GetAllProfiles() ([]InterestProfile, error) {
	return db.queryProfiles(
		`SELECT id, subscriber_id, industry, keywords, exclusions, active, created_at
		FROM interest_profiles ORDER BY id`,
	)
}

// GetProfile returns a profile by id, or nil if absent.
func (db *DB) GetProfile(id string) (*InterestProfile, error) {
	row := db.conn.QueryRow(
		`SELECT id, subscriber_id, industry, keywords, exclusions, active, created_at
		FROM interest_profiles WHERE id = ?`, id,
	)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ToggleProfile flips a profile's active flag.
func (db *DB) ToggleProfile(id string) error {
	_, err := db.conn.Exec(
		`UPDATE interest_profiles SET active = 1 - active WHERE id = ?`, id,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*InterestProfile, error) {
	var p InterestProfile
	var keywords, exclusions sql.NullString
	var active int
	if err := row.Scan(&p.ID, &p.SubscriberID, &p.Industry, &keywords, &exclusions,
		&active, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Active = active != 0
	if keywords.Valid && keywords.String != "" {
		json.Unmarshal([]byte(keywords.String), &p.Keywords)
	}
	if exclusions.Valid && exclusions.String != "" {
		json.Unmarshal([]byte(exclusions.String), &p.Exclusions)
	}
	return &p, nil
}

func (db *DB) queryProfiles(query string, args ...any) ([]InterestProfile, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []InterestProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}
