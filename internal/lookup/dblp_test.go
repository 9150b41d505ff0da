// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package lookup

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/bibrefine/pkg/types"
)

const sampleDBLPJSON = `{
  "result": {
    "query": "Attention Is All You Need",
    "status": {"@code": "200", "text": "OK"},
    "hits": {
      "@total": "3", "@computed": "3", "@sent": "3", "@first": "0",
      "hit": [
        {
          "@score": "10", "@id": "1",
          "info": {
            "authors": {"author": [
              {"@pid": "1", "text": "Ashish Vaswani"},
              {"@pid": "2", "text": "Noam Shazeer"},
              {"@pid": "3", "text": "Lukasz Kaiser 0001"}
            ]},
            "title": "Attention is All you Need.",
            "venue": "NIPS",
            "pages": "5998-6008",
            "year": "2017",
            "type": "Conference and Workshop Papers",
            "url": "https://dblp.org/rec/conf/nips/VaswaniSPUJGKP17"
          }
        },
        {
          "@score": "8", "@id": "2",
          "info": {
            "authors": {"author": {"@pid": "9", "text": "Jane Doe"}},
            "title": "Attention Is All You Need In Speech Separation.",
            "venue": ["ICASSP", "(1)"],
            "volume": 12,
            "number": "3",
            "year": "2021",
            "type": "Journal Articles"
          }
        },
        {
          "@score": "5", "@id": "3",
          "info": {
            "title": "Attention Is All You Need.",
            "venue": "CoRR",
            "volume": "abs/1706.03762",
            "year": "2017",
            "type": "Informal and Other Publications"
          }
        }
      ]
    }
  }
}`

const emptyDBLPJSON = `{"result": {"hits": {"@total": "0", "@computed": "0", "@sent": "0", "@first": "0"}}}`

func testCfg(endpoint string) types.LookupConfig {
	return types.LookupConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   5 * time.Second,
			UserAgent: "test/0.1",
		},
		Endpoint:   endpoint,
		Delay:      0,
		MaxRetries: 3,
		MaxHits:    10,
	}
}

func TestSearchDecodesCandidates(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, sampleDBLPJSON)
	}))
	defer ts.Close()

	c := NewClient(testCfg(ts.URL), WithHTTPClient(ts.Client()))
	cands, err := c.Search(context.Background(), "Attention Is All You Need")
	require.NoError(t, err)
	require.Len(t, cands, 3)

	assert.Equal(t, types.Candidate{
		Title:     "Attention is All you Need",
		Authors:   []string{"Ashish Vaswani", "Noam Shazeer", "Lukasz Kaiser"},
		Venue:     "NIPS",
		Year:      "2017",
		Pages:     "5998-6008",
		EntryType: "inproceedings",
		URL:       "https://dblp.org/rec/conf/nips/VaswaniSPUJGKP17",
	}, cands[0])

	assert.Equal(t, []string{"Jane Doe"}, cands[1].Authors)
	assert.Equal(t, "ICASSP (1)", cands[1].Venue)
	assert.Equal(t, "12", cands[1].Volume)
	assert.Equal(t, "3", cands[1].Number)
	assert.Equal(t, "article", cands[1].EntryType)

	assert.Empty(t, cands[2].Authors)
	assert.Equal(t, "CoRR", cands[2].Venue)
	assert.Equal(t, "misc", cands[2].EntryType)
}

func TestSearchRequestParams(t *testing.T) {
	var captured *http.Request
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r
		fmt.Fprint(w, sampleDBLPJSON)
	}))
	defer ts.Close()

	cfg := testCfg(ts.URL)
	cfg.MaxHits = 7
	c := NewClient(cfg, WithHTTPClient(ts.Client()))
	_, err := c.Search(context.Background(), "  Deep Residual Learning  ")
	require.NoError(t, err)

	q := captured.URL.Query()
	assert.Equal(t, `"Deep Residual Learning"`, q.Get("q"))
	assert.Equal(t, "json", q.Get("format"))
	assert.Equal(t, "7", q.Get("h"))
	assert.Equal(t, "test/0.1", captured.Header.Get("User-Agent"))
}

func TestSearchFallsBackToUnquotedQuery(t *testing.T) {
	var mu sync.Mutex
	var queries []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		mu.Lock()
		queries = append(queries, q)
		mu.Unlock()
		if strings.HasPrefix(q, `"`) {
			fmt.Fprint(w, emptyDBLPJSON)
			return
		}
		fmt.Fprint(w, sampleDBLPJSON)
	}))
	defer ts.Close()

	c := NewClient(testCfg(ts.URL), WithHTTPClient(ts.Client()))
	cands, err := c.Search(context.Background(), "Attention Is All You Need")
	require.NoError(t, err)
	assert.Len(t, cands, 3)
	assert.Equal(t, []string{`"Attention Is All You Need"`, "Attention Is All You Need"}, queries)
}

func TestSearchNoHits(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, emptyDBLPJSON)
	}))
	defer ts.Close()

	c := NewClient(testCfg(ts.URL), WithHTTPClient(ts.Client()))
	cands, err := c.Search(context.Background(), "No Such Paper")
	require.NoError(t, err)
	assert.Empty(t, cands)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestSearchEmptyTitleSkipsRequest(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer ts.Close()

	c := NewClient(testCfg(ts.URL), WithHTTPClient(ts.Client()))
	cands, err := c.Search(context.Background(), "   ")
	require.NoError(t, err)
	assert.Nil(t, cands)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestSearchHTTPErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantCalls int32
	}{
		{"client error not retried", http.StatusNotFound, 1},
		{"server error retried", http.StatusBadGateway, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
			}))
			defer ts.Close()

			c := NewClient(testCfg(ts.URL), WithHTTPClient(ts.Client()))
			_, err := c.Search(context.Background(), "Some Title")
			require.Error(t, err)

			var le *LookupError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, tt.status, le.StatusCode)
			assert.Contains(t, err.Error(), fmt.Sprintf("HTTP %d", tt.status))
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
		})
	}
}

func TestSearchMalformedResponseRetried(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			fmt.Fprint(w, `{"result": {"hits": `)
			return
		}
		fmt.Fprint(w, sampleDBLPJSON)
	}))
	defer ts.Close()

	c := NewClient(testCfg(ts.URL), WithHTTPClient(ts.Client()))
	cands, err := c.Search(context.Background(), "Attention Is All You Need")
	require.NoError(t, err)
	assert.Len(t, cands, 3)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestSearchNetworkFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	cfg := testCfg(url)
	cfg.MaxRetries = 2
	c := NewClient(cfg)
	_, err := c.Search(context.Background(), "Anything")
	require.Error(t, err)

	var le *LookupError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, 0, le.StatusCode)
	assert.True(t, le.Temporary())
	assert.NotNil(t, errors.Unwrap(le))
}

func TestSearchRespectsDelayBetweenRequests(t *testing.T) {
	const delay = 100 * time.Millisecond

	var mu sync.Mutex
	var arrivals []time.Time
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		arrivals = append(arrivals, time.Now())
		mu.Unlock()
		fmt.Fprint(w, sampleDBLPJSON)
	}))
	defer ts.Close()

	cfg := testCfg(ts.URL)
	cfg.Delay = delay
	c := NewClient(cfg, WithHTTPClient(ts.Client()))

	_, err := c.Search(context.Background(), "First Title")
	require.NoError(t, err)
	_, err = c.Search(context.Background(), "Second Title")
	require.NoError(t, err)

	require.Len(t, arrivals, 2)
	assert.GreaterOrEqual(t, arrivals[1].Sub(arrivals[0]), delay)
}

func TestSearchContextCancelledDuringThrottle(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleDBLPJSON)
	}))
	defer ts.Close()

	cfg := testCfg(ts.URL)
	cfg.Delay = time.Hour
	c := NewClient(cfg, WithHTTPClient(ts.Client()))
	_, err := c.Search(context.Background(), "First")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Search(ctx, "Second")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type mapCache struct {
	entries map[string][]types.Candidate
	puts    int
}

func (m *mapCache) Get(_ context.Context, q string) ([]types.Candidate, bool, error) {
	c, ok := m.entries[q]
	return c, ok, nil
}

func (m *mapCache) Put(_ context.Context, q string, cands []types.Candidate) error {
	m.entries[q] = cands
	m.puts++
	return nil
}

func TestSearchUsesCache(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, sampleDBLPJSON)
	}))
	defer ts.Close()

	cache := &mapCache{entries: map[string][]types.Candidate{}}
	cfg := testCfg(ts.URL)
	cfg.Delay = time.Hour // a cache hit must not wait on the throttle
	c := NewClient(cfg, WithHTTPClient(ts.Client()), WithCache(cache))

	first, err := c.Search(context.Background(), "Attention Is All You Need")
	require.NoError(t, err)

	start := time.Now()
	second, err := c.Search(context.Background(), "Attention Is All You Need")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 1, cache.puts)
}

func TestStripDisambiguation(t *testing.T) {
	assert.Equal(t, "Wei Wang", stripDisambiguation("Wei Wang 0001"))
	assert.Equal(t, "Wei Wang", stripDisambiguation("  Wei   Wang "))
	assert.Equal(t, "2Pac", stripDisambiguation("2Pac"))
	assert.Equal(t, "1234", stripDisambiguation("1234"))
}
