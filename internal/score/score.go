// Package score turns extracted portal text into per-profile relevance
// judgments via the inference provider.
package score

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mkowalchik/civicsignal/internal/llm"
	"github.com/mkowalchik/civicsignal/internal/store"
)

// NoSignal is the literal sentinel the model returns when the text holds
// nothing for the profile's industry.
const NoSignal = "NO_SIGNAL"

const scorePrompt = `Analyze the following municipal meeting text for the %s industry.
User Keywords: %s
Exclusions: %s

Return your response in this EXACT format:
SCORE: [1-10]
REASON: [Short explanation of the score]
ANALYSIS: [Full professional briefing]

If the text is entirely irrelevant to the user's industry, return: NO_SIGNAL

TEXT: %s`

// Judgment is the structured result of one scoring call. Relevant is false
// when the model returned the sentinel; the remaining fields are only
// meaningful when Relevant is true.
type Judgment struct {
	Relevant bool
	Score    int
	Reason   string
	Analysis string
}

// Scorer evaluates text against interest profiles, one call per profile.
// Intentionally unbatched: each call embeds that profile's keywords and
// exclusions, trading inference cost for prompt customization.
type Scorer struct {
	provider  llm.Provider
	maxTokens int
}

// NewScorer creates a relevance scorer.
func NewScorer(provider llm.Provider, maxTokens int) *Scorer {
	if maxTokens == 0 {
		maxTokens = 1024
	}
	return &Scorer{provider: provider, maxTokens: maxTokens}
}

// Score judges the text's relevance for one profile. An error means the
// inference call itself failed; a malformed response never errors, it
// degrades to a zero score so a formatting slip cannot abort the cycle.
func (s *Scorer) Score(ctx context.Context, text string, profile store.InterestProfile) (*Judgment, error) {
	if s.provider == nil {
		return nil, fmt.Errorf("no inference provider configured")
	}

	prompt := fmt.Sprintf(scorePrompt,
		profile.Industry,
		strings.Join(profile.Keywords, ", "),
		strings.Join(profile.Exclusions, ", "),
		text,
	)

	output, err := s.provider.Generate(ctx, prompt, s.maxTokens)
	if err != nil {
		return nil, fmt.Errorf("scoring for %s: %w", profile.Industry, err)
	}

	return ParseJudgment(output), nil
}

var (
	scoreRe  = regexp.MustCompile(`(?m)^\s*SCORE:\s*\[?(\d+)`)
	reasonRe = regexp.MustCompile(`(?m)^\s*REASON:\s*(.+)$`)
)

// ParseJudgment applies the sentinel/field contract to raw model output.
// The sentinel anywhere in the output means not relevant. Otherwise the
// SCORE and REASON fields are extracted tolerantly: an absent or malformed
// score defaults to 0, which sits below any dispatch threshold.
func ParseJudgment(output string) *Judgment {
	if strings.Contains(output, NoSignal) {
		return &Judgment{Relevant: false}
	}

	j := &Judgment{Relevant: true, Analysis: strings.TrimSpace(output)}

	if m := scoreRe.FindStringSubmatch(output); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			if n > 10 {
				n = 10
			}
			j.Score = n
		}
	}

	if m := reasonRe.FindStringSubmatch(output); m != nil {
		j.Reason = strings.TrimSpace(strings.Trim(m[1], "[]"))
	}

	return j
}
