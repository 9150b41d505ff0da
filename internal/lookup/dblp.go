// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package lookup queries the DBLP publication search API for candidate
// records matching a title.
package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/pdiddy/bibrefine/internal/httputil"
	"github.com/pdiddy/bibrefine/internal/logging"
	"github.com/pdiddy/bibrefine/pkg/types"
)

// Searcher returns candidates for a title in the service's relevance order.
type Searcher interface {
	Search(ctx context.Context, title string) ([]types.Candidate, error)
}

// Cache stores decoded responses keyed by query string.
type Cache interface {
	Get(ctx context.Context, query string) ([]types.Candidate, bool, error)
	Put(ctx context.Context, query string, candidates []types.Candidate) error
}

// Client is a throttled DBLP search client.
type Client struct {
	cfg      types.LookupConfig
	http     *http.Client
	throttle *Throttle
	cache    Cache
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client. The default uses cfg.Timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithCache enables response caching.
func WithCache(cache Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a DBLP client. Requests are spaced at least cfg.Delay
// apart, measured from the end of the previous request.
func NewClient(cfg types.LookupConfig, opts ...Option) *Client {
	c := &Client{
		cfg:      cfg,
		http:     &http.Client{Timeout: cfg.Timeout},
		throttle: NewThrottle(cfg.Delay),
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search looks the title up as a quoted phrase first and, when that finds
// nothing, as plain words. An empty title yields no candidates and no
// request. A non-nil error is always a *LookupError or a context error.
func (c *Client) Search(ctx context.Context, title string) ([]types.Candidate, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, nil
	}
	for _, q := range []string{`"` + title + `"`, title} {
		cands, err := c.query(ctx, q)
		if err != nil {
			return nil, err
		}
		if len(cands) > 0 {
			return cands, nil
		}
	}
	return nil, nil
}

// query runs one search with caching and retries of temporary failures.
func (c *Client) query(ctx context.Context, q string) ([]types.Candidate, error) {
	if c.cache != nil {
		cands, ok, err := c.cache.Get(ctx, q)
		if err != nil {
			c.logger.Warn("cache read failed", slog.String("query", q), slog.Any("error", err))
		} else if ok {
			c.logger.Debug("cache hit", slog.String("query", q), slog.Int("candidates", len(cands)))
			return cands, nil
		}
	}

	attempts := c.cfg.MaxRetries
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := c.throttle.Wait(ctx); err != nil {
			return nil, err
		}
		cands, err := c.fetch(ctx, q)
		c.throttle.Mark()
		if err == nil {
			if c.cache != nil {
				if perr := c.cache.Put(ctx, q, cands); perr != nil {
					c.logger.Warn("cache write failed", slog.String("query", q), slog.Any("error", perr))
				}
			}
			return cands, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		var le *LookupError
		if !errors.As(err, &le) || !le.Temporary() {
			break
		}
		if attempt < attempts {
			c.logger.Warn("lookup attempt failed, retrying",
				slog.String("query", q),
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", attempts),
				slog.Duration("delay", c.cfg.Delay),
				slog.Any("error", err),
			)
		}
	}
	return nil, lastErr
}

func (c *Client) fetch(ctx context.Context, q string) ([]types.Candidate, error) {
	hits := c.cfg.MaxHits
	if hits <= 0 {
		hits = 10
	}
	params := url.Values{
		"q":      {q},
		"format": {"json"},
		"h":      {strconv.Itoa(hits)},
	}
	reqURL := c.cfg.Endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &LookupError{Query: q, Err: fmt.Errorf("creating request: %w", err)}
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	req.Header.Set("Accept", "application/json")

	retrier := &httputil.Retrier{Client: c.http, Logger: c.logger}
	resp, err := retrier.Do(ctx, req)
	if err != nil {
		return nil, &LookupError{Query: q, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &LookupError{Query: q, StatusCode: resp.StatusCode}
	}

	var dr dblpResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return nil, &LookupError{Query: q, Err: fmt.Errorf("parsing DBLP response: %w", err)}
	}

	cands := make([]types.Candidate, 0, len(dr.Result.Hits.Hit))
	for _, h := range dr.Result.Hits.Hit {
		cands = append(cands, h.Info.candidate())
	}
	return cands, nil
}

// entryTypes maps DBLP publication types to standard entry types.
var entryTypes = map[string]string{
	"journal articles":                "article",
	"conference and workshop papers":  "inproceedings",
	"parts in books or collections":   "incollection",
	"books and theses":                "book",
	"editorship":                      "proceedings",
	"informal and other publications": "misc",
	"informal publications":           "misc",
	"reference works":                 "misc",
}

func (info dblpInfo) candidate() types.Candidate {
	c := types.Candidate{
		Title:     strings.TrimSuffix(strings.TrimSpace(string(info.Title)), "."),
		Venue:     strings.TrimSpace(string(info.Venue)),
		Year:      strings.TrimSpace(string(info.Year)),
		Volume:    strings.TrimSpace(string(info.Volume)),
		Number:    strings.TrimSpace(string(info.Number)),
		Pages:     strings.TrimSpace(string(info.Pages)),
		EntryType: entryTypes[strings.ToLower(strings.TrimSpace(string(info.Type)))],
		URL:       strings.TrimSpace(string(info.URL)),
	}
	for _, a := range info.Authors.Author {
		if name := stripDisambiguation(string(a)); name != "" {
			c.Authors = append(c.Authors, name)
		}
	}
	return c
}

// stripDisambiguation removes DBLP's homonym suffix, as in "Wei Wang 0001".
func stripDisambiguation(name string) string {
	fields := strings.Fields(name)
	if n := len(fields); n > 1 && isDigits(fields[n-1]) {
		fields = fields[:n-1]
	}
	return strings.Join(fields, " ")
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
