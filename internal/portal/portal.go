// Package portal is the boundary to external publication portals. A Portal
// can cheaply peek at a board's most recent item to derive a comparable
// fingerprint, and fully extract the board's content when the fingerprint
// says something changed. Peeking never mutates any state.
package portal

import (
	"context"
	"errors"
	"strings"
)

// ErrBoardNotVisible means the board's region could not be located on the
// portal. Not an error condition for the cycle: the board is skipped this
// round and its bookmark is left alone.
var ErrBoardNotVisible = errors.New("board not visible on portal")

// Target describes where an organization publishes. FeedURL is optional;
// when set, the feed variant is preferred over HTML scraping.
type Target struct {
	PortalURL string
	FeedURL   string
}

// Portal peeks at and extracts board content.
//
// Peek returns an opaque, order-sensitive fingerprint of the newest item
// visible for the board. Two renders of the same unchanged state yield
// byte-identical fingerprints.
//
// Extract returns the board's full visible text, truncated to the
// configured cap.
type Portal interface {
	Peek(ctx context.Context, target Target, boardName string) (string, error)
	Extract(ctx context.Context, target Target, boardName string) (string, error)
}

// normalize collapses all whitespace runs to single spaces so fingerprints
// and extracted text are stable across renders.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate caps text length to respect inference input limits.
func truncate(s string, max int) string {
	if max > 0 && len(s) > max {
		return s[:max]
	}
	return s
}
