package store

import (
	"database/sql"
	"fmt"
)

// UpsertOrganization creates or replaces an organization. Boards are
// managed separately so re-seeding an org never clobbers bookmarks.
func (db *DB) UpsertOrganization(org Organization) error {
	_, err := db.conn.Exec(
		`INSERT INTO organizations (id, name, portal_url, feed_url) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name,
			portal_url = excluded.portal_url, feed_url = excluded.feed_url`,
		org.ID, org.Name, org.PortalURL, org.FeedURL,
	)
	return err
}

// GetOrganizations returns all organizations ordered by id.
func (db *DB) GetOrganizations() ([]Organization, error) {
	rows, err := db.conn.Query(
		`SELECT id, name, portal_url, feed_url, created_at FROM organizations ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orgs []Organization
	for rows.Next() {
		var o Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.PortalURL, &o.FeedURL, &o.CreatedAt); err != nil {
			return nil, err
		}
		orgs = append(orgs, o)
	}
	return orgs, rows.Err()
}

// GetOrganization returns a single organization, or nil if absent.
func (db *DB) GetOrganization(orgID string) (*Organization, error) {
	row := db.conn.QueryRow(
		`SELECT id, name, portal_url, feed_url, created_at FROM organizations WHERE id = ?`, orgID,
	)
	var o Organization
	err := row.Scan(&o.ID, &o.Name, &o.PortalURL, &o.FeedURL, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// UpsertBoard creates a board or updates its display name and position.
// The bookmark is deliberately left untouched on conflict.
func (db *DB) UpsertBoard(orgID, boardID, name string, position int) error {
	_, err := db.conn.Exec(
		`INSERT INTO boards (org_id, board_id, name, position) VALUES (?, ?, ?, ?)
		ON CONFLICT(org_id, board_id) DO UPDATE SET name = excluded.name,
			position = excluded.position`,
		orgID, boardID, name, position,
	)
	return err
}

// GetBoards returns an organization's boards in configured order.
func (db *DB) GetBoards(orgID string) ([]Board, error) {
	rows, err := db.conn.Query(
		`SELECT org_id, board_id, name, position, bookmark
		FROM boards WHERE org_id = ? ORDER BY position, board_id`, orgID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var boards []Board
	for rows.Next() {
		var b Board
		if err := rows.Scan(&b.OrgID, &b.BoardID, &b.Name, &b.Position, &b.Bookmark); err != nil {
			return nil, err
		}
		boards = append(boards, b)
	}
	return boards, rows.Err()
}

// GetBookmark returns the last fully processed fingerprint for a board.
// A board that has never been processed yields the empty string.
func (db *DB) GetBookmark(orgID, boardID string) (string, error) {
	var bookmark string
	err := db.conn.QueryRow(
		`SELECT bookmark FROM boards WHERE org_id = ? AND board_id = ?`, orgID, boardID,
	).Scan(&bookmark)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return bookmark, err
}

// SetBookmark advances a single board's bookmark. This is a single-column
// update so concurrent updates to sibling boards never race.
func (db *DB) SetBookmark(orgID, boardID, fingerprint string) error {
	res, err := db.conn.Exec(
		`UPDATE boards SET bookmark = ? WHERE org_id = ? AND board_id = ?`,
		fingerprint, orgID, boardID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("board %s/%s not found", orgID, boardID)
	}
	return nil
}

// ResetBookmarks clears every bookmark for an organization so the next
// cycle reprocesses all boards from scratch.
func (db *DB) ResetBookmarks(orgID string) (int64, error) {
	res, err := db.conn.Exec(`UPDATE boards SET bookmark = '' WHERE org_id = ?`, orgID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
