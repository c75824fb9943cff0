package store

// Organization is a monitored publisher with one portal and several boards.
type Organization struct {
	ID        string
	Name      string
	PortalURL string
	FeedURL   *string
	CreatedAt *string
}

// Board is a single publication stream inside an organization's portal.
// Bookmark holds the fingerprint of the last fully processed item.
type Board struct {
	OrgID    string
	BoardID  string
	Name     string
	Position int
	Bookmark string
}

// Subscriber is a person receiving alerts.
type Subscriber struct {
	ID        string
	Email     string
	Status    string // "active" or "inactive"
	Tier      string // "basic" or "pro"
	CreatedAt *string
}

// InterestProfile describes what a subscriber wants to hear about.
// A subscriber may hold several profiles; each is scored independently.
type InterestProfile struct {
	ID           string
	SubscriberID string
	Industry     string
	Keywords     []string
	Exclusions   []string
	Active       bool
	CreatedAt    *string
}

// Signal statuses. A signal is born unread or archived depending on its
// score; unread signals become notified after dispatch. Archived signals
// are eventually hard-deleted by the retention sweep.
const (
	StatusUnread   = "unread"
	StatusNotified = "notified"
	StatusArchived = "archived"
)

// Signal is one (subscriber, content) relevance judgment.
type Signal struct {
	ID              int64
	SubscriberID    string
	ProfileID       *string
	Industry        string
	Score           int
	Analysis        string
	Status          string
	MeetingRecordID *string
	CreatedAt       *string
}

// SentNotification is one row of the write-once dedup ledger. Existence of
// a row for a dedup key means that content has been delivered to that
// subscriber and must not be delivered again.
type SentNotification struct {
	DedupKey     string
	SubscriberID string
	SignalID     int64
	SentAt       *string
}

// MeetingRecord is the subscriber-independent summary of one board change
// event, used for the dashboard and the weekly digest, never for dispatch.
type MeetingRecord struct {
	ID         string
	OrgID      string
	BoardName  string
	Summary    string
	Topics     []string
	Keywords   []string
	Score      int
	RawSnippet *string
	CreatedAt  *string
}

// Digest is one stored weekly digest.
type Digest struct {
	ID           string
	Title        string
	BodyMarkdown string
	BodyHTML     string
	WeekStart    *string
	WeekEnd      *string
	CreatedAt    *string
}

// Stats contains aggregate database statistics for the status command.
type Stats struct {
	Organizations  int
	Boards         int
	Subscribers    int
	ActiveProfiles int
	TotalSignals   int
	UnreadSignals  int
	SentAlerts     int
	MeetingRecords int
	Digests        int
}
