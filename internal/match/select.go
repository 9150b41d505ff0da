// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/bibrefine/pkg/types"
)

// ErrNoMatch is wrapped by Outcome.Err for records left unchanged.
var ErrNoMatch = errors.New("no matching candidate")

// Outcome is the result of selecting among candidates: either a matched
// candidate or NotFound with a reason.
type Outcome struct {
	// Candidate is nil when nothing was selected.
	Candidate *types.Candidate

	// Score is the similarity of the chosen candidate, or of the best
	// rejected one.
	Score float64

	// Reason explains a NotFound outcome.
	Reason string
}

// NotFound builds an unmatched outcome.
func NotFound(reason string) Outcome {
	return Outcome{Reason: reason}
}

// Matched reports whether a candidate was selected.
func (o Outcome) Matched() bool { return o.Candidate != nil }

// Err returns nil for a match and an error wrapping ErrNoMatch otherwise.
func (o Outcome) Err() error {
	if o.Matched() {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrNoMatch, o.Reason)
}

// Selector picks the best candidate for a title. The zero value is not
// usable; set Threshold.
type Selector struct {
	// Threshold is the minimum accepted score. Scores equal to the
	// threshold are accepted.
	Threshold float64

	// Score compares normalized titles. Nil uses DefaultScore.
	Score Scorer

	// KeepPreprints allows arXiv/CoRR candidates to be chosen.
	KeepPreprints bool
}

// Select scores every candidate against title and returns the highest
// scoring one at or above the threshold. Ties go to the candidate listed
// first, which preserves the service's relevance order.
func (s Selector) Select(title string, candidates []types.Candidate) Outcome {
	if len(candidates) == 0 {
		return NotFound("no candidates")
	}
	score := s.Score
	if score == nil {
		score = DefaultScore
	}

	query := Normalize(title)
	best := -1
	bestScore := 0.0
	considered := 0
	for i, c := range candidates {
		if !s.KeepPreprints && IsPreprint(c) {
			continue
		}
		considered++
		sc := score(query, Normalize(c.Title))
		if best < 0 || sc > bestScore {
			best = i
			bestScore = sc
		}
	}

	if considered == 0 {
		return NotFound(fmt.Sprintf("all %d candidates are preprints", len(candidates)))
	}
	if bestScore < s.Threshold {
		return Outcome{
			Score:  bestScore,
			Reason: fmt.Sprintf("best score %.2f below threshold %.2f", bestScore, s.Threshold),
		}
	}
	chosen := candidates[best]
	return Outcome{Candidate: &chosen, Score: bestScore}
}

// IsPreprint reports whether a candidate is an arXiv or CoRR listing.
func IsPreprint(c types.Candidate) bool {
	venue := strings.ToLower(c.Venue)
	if strings.Contains(venue, "arxiv") {
		return true
	}
	for _, w := range strings.FieldsFunc(venue, func(r rune) bool { return r == ' ' || r == ',' || r == '.' }) {
		if w == "corr" {
			return true
		}
	}
	return false
}
