package portal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

const userAgent = "CivicSignal/1.0 (portal monitor)"

// HTTPPortal reads portals as plain HTML: the board's newest-item card is
// located by its heading text, and full extraction follows the card's link
// to the detail page.
type HTTPPortal struct {
	client   *http.Client
	maxChars int
}

// NewHTTPPortal creates an HTML portal reader. maxChars caps extracted text.
func NewHTTPPortal(timeout time.Duration, maxChars int) *HTTPPortal {
	if timeout == 0 {
		timeout = 45 * time.Second
	}
	return &HTTPPortal{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		maxChars: maxChars,
	}
}

// Peek fetches the portal page and fingerprints the board's top card.
func (p *HTTPPortal) Peek(ctx context.Context, target Target, boardName string) (string, error) {
	doc, err := p.fetchDocument(ctx, target.PortalURL)
	if err != nil {
		return "", err
	}

	card := findBoardCard(doc, boardName)
	if card == nil {
		return "", ErrBoardNotVisible
	}

	fp := normalize(card.Text())
	if fp == "" {
		return "", ErrBoardNotVisible
	}
	return fp, nil
}

// Extract pulls the board's full text. When the board card links to a
// detail page, that page is fetched and run through readability; otherwise
// the portal page itself is used.
func (p *HTTPPortal) Extract(ctx context.Context, target Target, boardName string) (string, error) {
	doc, err := p.fetchDocument(ctx, target.PortalURL)
	if err != nil {
		return "", err
	}

	card := findBoardCard(doc, boardName)
	if card == nil {
		return "", ErrBoardNotVisible
	}

	if href, ok := cardLink(card); ok {
		detailURL, err := resolveURL(target.PortalURL, href)
		if err == nil {
			if text, err := p.extractReadable(ctx, detailURL); err == nil && text != "" {
				return truncate(text, p.maxChars), nil
			}
			// Detail page failed; fall through to the portal page text.
		}
	}

	text := normalize(doc.Find("body").Text())
	if text == "" {
		return "", fmt.Errorf("no extractable text for board %q", boardName)
	}
	return truncate(text, p.maxChars), nil
}

func (p *HTTPPortal) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	body, err := p.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing portal page: %w", err)
	}
	return doc, nil
}

func (p *HTTPPortal) get(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("fetching %s: HTTP %d", pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", pageURL, err)
	}
	return string(body), nil
}

func (p *HTTPPortal) extractReadable(ctx context.Context, pageURL string) (string, error) {
	body, err := p.get(ctx, pageURL)
	if err != nil {
		return "", err
	}

	parsed, _ := url.Parse(pageURL)
	article, err := readability.FromReader(strings.NewReader(body), parsed)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}

	text := normalize(article.TextContent)
	if len(text) < 100 {
		return "", nil
	}
	return text, nil
}

// findBoardCard locates the container of the board's newest item: the
// closest card-like ancestor of a heading whose text contains the board
// name. Returns nil when the board is not visible.
func findBoardCard(doc *goquery.Document, boardName string) *goquery.Selection {
	var card *goquery.Selection
	doc.Find("h1, h2, h3, h4").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if !strings.Contains(normalize(h.Text()), boardName) {
			return true
		}
		c := h.Closest("div, section, article, li")
		if c.Length() == 0 {
			c = h.Parent()
		}
		if c.Length() == 0 {
			c = h
		}
		card = c
		return false
	})
	return card
}

// cardLink returns the first href inside the card, if any.
func cardLink(card *goquery.Selection) (string, bool) {
	link := card.Find("a[href]").First()
	if link.Length() == 0 {
		return "", false
	}
	href, ok := link.Attr("href")
	href = strings.TrimSpace(href)
	return href, ok && href != "" && !strings.HasPrefix(href, "#")
}

func resolveURL(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(r).String(), nil
}
