package cycle

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/mkowalchik/civicsignal/internal/portal"
	"github.com/mkowalchik/civicsignal/internal/store"
)

// ScanResult holds the counters of one scan pass.
type ScanResult struct {
	BoardsChecked   int
	BoardsUnchanged int
	BoardsSkipped   int
	BoardsProcessed int
	SignalsCreated  int
	NoiseFiltered   int
	Errors          int
}

// Scan walks every organization and board: peek for a fingerprint, compare
// against the bookmark, and on change extract, summarize, and score against
// every active profile before advancing the bookmark. A failure on one
// board never aborts the others.
func (c *Cycle) Scan(ctx context.Context) *ScanResult {
	r := &ScanResult{}

	orgs, err := c.db.GetOrganizations()
	if err != nil {
		log.Printf("Error listing organizations: %v", err)
		r.Errors++
		return r
	}

	for _, org := range orgs {
		boards, err := c.db.GetBoards(org.ID)
		if err != nil {
			log.Printf("Error listing boards for %s: %v", org.ID, err)
			r.Errors++
			continue
		}

		target := portal.Target{PortalURL: org.PortalURL}
		p := c.htmlPortal
		if org.FeedURL != nil && *org.FeedURL != "" {
			target.FeedURL = *org.FeedURL
			p = c.feedPortal
		}

		for _, board := range boards {
			r.BoardsChecked++
			c.processBoard(ctx, p, target, org, board, r)
		}
	}

	log.Printf("Scan complete: %d boards checked, %d processed, %d signals created",
		r.BoardsChecked, r.BoardsProcessed, r.SignalsCreated)
	return r
}

// processBoard handles one board end to end. The bookmark advances only
// after every active profile has been scored without a failure; any
// recorded failure leaves the bookmark alone so the next cycle retries the
// same content.
func (c *Cycle) processBoard(ctx context.Context, p portal.Portal, target portal.Target,
	org store.Organization, board store.Board, r *ScanResult) {

	peekCtx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.Pipeline.PeekTimeoutSec)*time.Second)
	fingerprint, err := p.Peek(peekCtx, target, board.Name)
	cancel()
	if errors.Is(err, portal.ErrBoardNotVisible) {
		log.Printf("Board %q not visible on %s, skipping this cycle", board.Name, org.ID)
		r.BoardsSkipped++
		return
	}
	if err != nil {
		log.Printf("Peek failed for %s/%s: %v", org.ID, board.BoardID, err)
		r.Errors++
		return
	}

	if fingerprint == board.Bookmark {
		r.BoardsUnchanged++
		return
	}

	log.Printf("New content on %s/%s", org.ID, board.Name)

	extractCtx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.Pipeline.ExtractTimeoutSec)*time.Second)
	text, err := p.Extract(extractCtx, target, board.Name)
	cancel()
	if err != nil {
		// No partial findings from partial extraction: skip the board and
		// leave the bookmark so the next cycle retries.
		log.Printf("Extraction failed for %s/%s: %v", org.ID, board.BoardID, err)
		r.Errors++
		return
	}

	meetingID := c.recordMeeting(ctx, org, board, text)

	profiles, err := c.db.GetActiveProfiles()
	if err != nil {
		log.Printf("Error listing active profiles: %v", err)
		r.Errors++
		return
	}

	failed := false
	for _, profile := range profiles {
		scoreCtx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.Pipeline.ScoreTimeoutSec)*time.Second)
		judgment, err := c.scorer.Score(scoreCtx, text, profile)
		cancel()
		if err != nil {
			// Keep evaluating the remaining profiles, but the bookmark must
			// not advance: the next cycle re-extracts and re-scores them all.
			log.Printf("Scoring failed for profile %s: %v", profile.ID, err)
			r.Errors++
			failed = true
			continue
		}

		if !judgment.Relevant {
			r.NoiseFiltered++
			continue
		}

		profileID := profile.ID
		_, status, err := c.db.InsertSignal(profile.SubscriberID, &profileID,
			profile.Industry, judgment.Score, judgment.Analysis, meetingID,
			c.cfg.Pipeline.DispatchThreshold)
		if err != nil {
			log.Printf("Signal write failed for profile %s: %v", profile.ID, err)
			r.Errors++
			failed = true
			break
		}
		r.SignalsCreated++
		log.Printf("Signal recorded for %s (score %d, %s)", profile.Industry, judgment.Score, status)
	}

	if failed {
		return
	}

	if err := c.db.SetBookmark(org.ID, board.BoardID, fingerprint); err != nil {
		log.Printf("Bookmark update failed for %s/%s: %v", org.ID, board.BoardID, err)
		r.Errors++
		return
	}
	r.BoardsProcessed++
}

// recordMeeting stores the holistic meeting record for the change event.
// Purely an enrichment: any failure here is logged and the scoring pass
// continues without a linked record.
func (c *Cycle) recordMeeting(ctx context.Context, org store.Organization,
	board store.Board, text string) *string {

	sumCtx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.Pipeline.ScoreTimeoutSec)*time.Second)
	summary, err := c.scorer.Summarize(sumCtx, text)
	cancel()
	if err != nil {
		log.Printf("Meeting summary failed for %s/%s: %v", org.ID, board.BoardID, err)
		return nil
	}

	snippet := text
	if len(snippet) > 1000 {
		snippet = snippet[:1000]
	}

	rec := store.MeetingRecord{
		ID:         uuid.NewString(),
		OrgID:      org.ID,
		BoardName:  board.Name,
		Summary:    summary.Summary,
		Topics:     summary.Topics,
		Keywords:   summary.Keywords,
		Score:      summary.Score,
		RawSnippet: &snippet,
	}
	if err := c.db.InsertMeetingRecord(rec); err != nil {
		log.Printf("Meeting record write failed for %s/%s: %v", org.ID, board.BoardID, err)
		return nil
	}
	return &rec.ID
}
