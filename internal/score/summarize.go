package score

import (
	"context"
	"fmt"
	"strings"

	"github.com/mkowalchik/civicsignal/internal/llm"
)

const summaryPrompt = `You are summarizing newly published municipal meeting content for a public dashboard.

Respond with ONLY this JSON:
{
    "summary": "3-5 sentence holistic summary of the meeting content",
    "topics": ["topic 1", "topic 2"],
    "keywords": ["keyword 1", "keyword 2"],
    "public_interest_score": 1-10
}

public_interest_score: 10 = major city-wide impact, 1 = routine procedure.

TEXT:
%s`

// Summary is the subscriber-independent digest of one board change event.
type Summary struct {
	Summary  string
	Topics   []string
	Keywords []string
	Score    int
}

// Summarize produces a holistic meeting summary. A response that cannot be
// parsed degrades to a truncated raw-text summary instead of failing, so
// meeting records never block the scoring pass.
func (s *Scorer) Summarize(ctx context.Context, text string) (*Summary, error) {
	if s.provider == nil {
		return nil, fmt.Errorf("no inference provider configured")
	}

	output, err := s.provider.Generate(ctx, fmt.Sprintf(summaryPrompt, text), s.maxTokens)
	if err != nil {
		return nil, fmt.Errorf("summarizing: %w", err)
	}

	parsed := llm.ParseJSONResponse(output)
	if parsed == nil {
		fallback := text
		if len(fallback) > 500 {
			fallback = fallback[:500]
		}
		return &Summary{Summary: strings.TrimSpace(fallback)}, nil
	}

	sum := &Summary{
		Summary:  getString(parsed, "summary"),
		Topics:   getStrings(parsed, "topics", 10),
		Keywords: getStrings(parsed, "keywords", 10),
		Score:    getInt(parsed, "public_interest_score"),
	}
	if sum.Score < 0 {
		sum.Score = 0
	} else if sum.Score > 10 {
		sum.Score = 10
	}
	return sum, nil
}

func getString(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getStrings(m map[string]any, key string, max int) []string {
	v, ok := m[key]
	if !ok {
		return nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
		if len(out) >= max {
			break
		}
	}
	return out
}

func getInt(m map[string]any, key string) int {
	if v, ok := m[key]; ok {
		if n, ok := v.(float64); ok {
			return int(n)
		}
	}
	return 0
}
