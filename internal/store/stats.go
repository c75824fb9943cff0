package store

// GetStats returns aggregate counts for the status command and dashboard.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}
	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM organizations`, &s.Organizations},
		{`SELECT COUNT(*) FROM boards`, &s.Boards},
		{`SELECT COUNT(*) FROM subscribers`, &s.Subscribers},
		{`SELECT COUNT(*) FROM interest_profiles WHERE active = 1`, &s.ActiveProfiles},
		{`SELECT COUNT(*) FROM signals`, &s.TotalSignals},
		{`SELECT COUNT(*) FROM signals WHERE status = 'unread'`, &s.UnreadSignals},
		{`SELECT COUNT(*) FROM sent_notifications`, &s.SentAlerts},
		{`SELECT COUNT(*) FROM meeting_records`, &s.MeetingRecords},
		{`SELECT COUNT(*) FROM digests`, &s.Digests},
	}
	for _, c := range counts {
		if err := db.conn.QueryRow(c.query).Scan(c.dest); err != nil {
			return nil, err
		}
	}
	return s, nil
}
