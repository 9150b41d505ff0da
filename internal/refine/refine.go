// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package refine runs the per-record refinement loop: extract the title,
// search for candidates, select a match, and rewrite the record. Records are
// processed strictly one at a time in input order.
package refine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/pdiddy/bibrefine/internal/bibtex"
	"github.com/pdiddy/bibrefine/internal/logging"
	"github.com/pdiddy/bibrefine/internal/lookup"
	"github.com/pdiddy/bibrefine/internal/match"
	"github.com/pdiddy/bibrefine/internal/rewrite"
	"github.com/pdiddy/bibrefine/pkg/types"
)

// ErrMissingTitle marks records that have no title to search for.
var ErrMissingTitle = errors.New("missing title")

// Status is the final state of one record.
type Status string

const (
	StatusUpdated     Status = "updated"
	StatusNotFound    Status = "not_found"
	StatusLookupError Status = "lookup_error"
	StatusNoTitle     Status = "no_title"
)

// Result describes what happened to one record.
type Result struct {
	Key          string
	Status       Status
	Title        string
	MatchedTitle string
	MatchedURL   string
	Score        float64

	// Err is nil for updated records, wraps match.ErrNoMatch for
	// not-found ones and holds the *lookup.LookupError for lookup failures.
	Err error
}

// Failed reports whether the record was left unchanged.
func (r Result) Failed() bool { return r.Status != StatusUpdated }

// Summary is the outcome of a run.
type Summary struct {
	// Records holds every output record, directives included, in input
	// order.
	Records []types.Record

	// Results holds one entry per looked-up record, in input order.
	Results []Result
}

// Total returns the number of records considered for lookup.
func (s Summary) Total() int { return len(s.Results) }

// Updated returns the number of rewritten records.
func (s Summary) Updated() int { return s.Total() - s.Failed() }

// Failed returns the number of records left unchanged.
func (s Summary) Failed() int {
	n := 0
	for _, r := range s.Results {
		if r.Failed() {
			n++
		}
	}
	return n
}

// HasFailures reports whether any record failed.
func (s Summary) HasFailures() bool { return s.Failed() > 0 }

// FailedKeys lists the keys of failed records in input order.
func (s Summary) FailedKeys() []string {
	var keys []string
	for _, r := range s.Results {
		if r.Failed() {
			keys = append(keys, r.Key)
		}
	}
	return keys
}

// Refiner drives lookups for a record set.
type Refiner struct {
	searcher lookup.Searcher
	selector match.Selector
	logger   *slog.Logger
	w        io.Writer
}

// New creates a Refiner. Progress lines go to w; diagnostics go to logger.
// Either may be nil.
func New(searcher lookup.Searcher, cfg types.MatchConfig, logger *slog.Logger, w io.Writer) *Refiner {
	if logger == nil {
		logger = logging.Discard()
	}
	if w == nil {
		w = io.Discard
	}
	return &Refiner{
		searcher: searcher,
		selector: match.Selector{Threshold: cfg.Threshold, KeepPreprints: cfg.KeepPreprints},
		logger:   logger,
		w:        w,
	}
}

// Refine processes records in order and returns the rewritten set.
// Per-record failures are recorded in the summary; only cancellation of ctx
// stops the loop early, in which case the error is returned.
func (r *Refiner) Refine(ctx context.Context, records []types.Record) (Summary, error) {
	var entries int
	for _, rec := range records {
		if !rec.IsDirective() {
			entries++
		}
	}

	sum := Summary{Records: make([]types.Record, 0, len(records))}
	for _, rec := range records {
		if rec.IsDirective() {
			sum.Records = append(sum.Records, rec.Clone())
			continue
		}
		fmt.Fprintf(r.w, "Processing entry %d/%d: %s\n", len(sum.Results)+1, entries, rec.Key)

		out, res, err := r.refineRecord(ctx, rec)
		if err != nil {
			return sum, err
		}
		sum.Records = append(sum.Records, out)
		sum.Results = append(sum.Results, res)
	}
	return sum, nil
}

func (r *Refiner) refineRecord(ctx context.Context, rec types.Record) (types.Record, Result, error) {
	title := bibtex.Title(rec)
	res := Result{Key: rec.Key, Title: title}
	if title == "" {
		res.Status = StatusNoTitle
		res.Err = ErrMissingTitle
		fmt.Fprintf(r.w, "  skipped: no title\n")
		return rec.Clone(), res, nil
	}

	cands, err := r.searcher.Search(ctx, title)
	if err != nil {
		if ctx.Err() != nil {
			return types.Record{}, res, ctx.Err()
		}
		res.Status = StatusLookupError
		res.Err = err
		r.logger.Warn("lookup failed", slog.String("key", rec.Key), slog.Any("error", err))
		fmt.Fprintf(r.w, "  lookup error: %v\n", err)
		return rec.Clone(), res, nil
	}

	outcome := r.selector.Select(title, cands)
	res.Score = outcome.Score
	if !outcome.Matched() {
		res.Status = StatusNotFound
		res.Err = outcome.Err()
		r.logger.Info("no match", slog.String("key", rec.Key), slog.String("reason", outcome.Reason))
		fmt.Fprintf(r.w, "  not found: %s\n", outcome.Reason)
		return rewrite.Apply(rec, outcome), res, nil
	}

	res.Status = StatusUpdated
	res.MatchedTitle = outcome.Candidate.Title
	res.MatchedURL = outcome.Candidate.URL
	fmt.Fprintf(r.w, "  updated: %q (score %.2f)\n", outcome.Candidate.Title, outcome.Score)
	return rewrite.Apply(rec, outcome), res, nil
}

// RunFile reads input, refines every record, and writes output. A parse or
// read failure returns before anything is written. The output file is
// replaced atomically.
func (r *Refiner) RunFile(ctx context.Context, input, output string) (Summary, error) {
	records, err := bibtex.ReadFile(input)
	if err != nil {
		return Summary{}, fmt.Errorf("read input: %w", err)
	}
	r.logger.Debug("parsed input", slog.String("path", input), slog.Int("records", len(records)))

	sum, err := r.Refine(ctx, records)
	if err != nil {
		return sum, err
	}
	if err := bibtex.WriteFile(output, sum.Records); err != nil {
		return sum, fmt.Errorf("write output: %w", err)
	}
	return sum, nil
}
