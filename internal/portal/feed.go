package portal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// FeedPortal reads portals that mirror their boards through an RSS/Atom
// feed. Cheaper and far more stable than HTML scraping when available.
type FeedPortal struct {
	parser   *gofeed.Parser
	html     *HTTPPortal
	maxChars int
}

// NewFeedPortal creates a feed-backed portal reader. Item detail pages are
// fetched through the HTML reader.
func NewFeedPortal(timeout time.Duration, maxChars int) *FeedPortal {
	return &FeedPortal{
		parser:   gofeed.NewParser(),
		html:     NewHTTPPortal(timeout, maxChars),
		maxChars: maxChars,
	}
}

// Peek fingerprints the newest feed item belonging to the board: its title
// plus publication date, whitespace-normalized.
func (p *FeedPortal) Peek(ctx context.Context, target Target, boardName string) (string, error) {
	item, err := p.latestItem(ctx, target.FeedURL, boardName)
	if err != nil {
		return "", err
	}

	fp := item.Title
	if item.PublishedParsed != nil {
		fp += " " + item.PublishedParsed.Format("2006-01-02")
	} else if item.Published != "" {
		fp += " " + item.Published
	}
	return normalize(fp), nil
}

// Extract fetches the newest item's linked page and extracts its text,
// falling back to the feed entry's own content.
func (p *FeedPortal) Extract(ctx context.Context, target Target, boardName string) (string, error) {
	item, err := p.latestItem(ctx, target.FeedURL, boardName)
	if err != nil {
		return "", err
	}

	if item.Link != "" {
		if text, err := p.html.extractReadable(ctx, item.Link); err == nil && text != "" {
			return truncate(text, p.maxChars), nil
		}
	}

	text := normalize(stripTags(item.Content))
	if text == "" {
		text = normalize(stripTags(item.Description))
	}
	if text == "" {
		return "", fmt.Errorf("no extractable content for board %q", boardName)
	}
	return truncate(text, p.maxChars), nil
}

// latestItem returns the newest feed item whose title mentions the board.
func (p *FeedPortal) latestItem(ctx context.Context, feedURL, boardName string) (*gofeed.Item, error) {
	feed, err := p.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parsing feed %s: %w", feedURL, err)
	}

	for _, item := range feed.Items {
		if strings.Contains(item.Title, boardName) {
			return item, nil
		}
	}
	return nil, ErrBoardNotVisible
}

// stripTags removes HTML tags and decodes the common entities found in
// feed content blocks.
func stripTags(text string) string {
	var b strings.Builder
	inTag := false
	for _, r := range text {
		switch {
		case r == '<':
			inTag = true
			b.WriteRune(' ')
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}

	s := b.String()
	for entity, repl := range map[string]string{
		"&nbsp;": " ", "&amp;": "&", "&lt;": "<", "&gt;": ">", "&quot;": `"`, "&#39;": "'",
	} {
		s = strings.ReplaceAll(s, entity, repl)
	}
	return s
}
