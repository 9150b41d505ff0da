package types

import (
	"fmt"
	"time"
)

// HTTPConfig holds shared HTTP settings for the lookup client.
type HTTPConfig struct {
	// Timeout bounds a single request including reading the body.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// LookupConfig holds settings for the bibliographic search client.
type LookupConfig struct {
	HTTPConfig `yaml:",inline"`

	// Endpoint is the publication search URL.
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// Delay is the minimum time between the end of one request and the
	// start of the next (default 10s).
	Delay time.Duration `json:"delay" yaml:"delay"`

	// MaxRetries is the number of attempts for a request that fails with a
	// network or decode error (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// MaxHits is the number of hits requested per query (default 10).
	MaxHits int `json:"max_hits" yaml:"max_hits"`
}

// MatchConfig holds the title-matching policy.
type MatchConfig struct {
	// Threshold is the minimum similarity score in (0, 1] a candidate must
	// reach to be accepted (default 0.85).
	Threshold float64 `json:"threshold" yaml:"threshold"`

	// KeepPreprints allows arXiv/CoRR hits to be selected.
	KeepPreprints bool `json:"keep_preprints" yaml:"keep_preprints"`
}

// CacheConfig configures the optional on-disk lookup cache.
type CacheConfig struct {
	// Path is the SQLite database file. Empty disables caching.
	Path string `json:"path" yaml:"path"`

	// TTL expires entries older than this. Zero keeps entries forever.
	TTL time.Duration `json:"ttl" yaml:"ttl"`
}

// LogConfig selects the diagnostic log level and format.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Config is the full run configuration.
type Config struct {
	Input  string `json:"input" yaml:"input"`
	Output string `json:"output" yaml:"output"`

	// Report is an optional path for the YAML run report.
	Report string `json:"report,omitempty" yaml:"report,omitempty"`

	Lookup LookupConfig `json:"lookup" yaml:"lookup"`
	Match  MatchConfig  `json:"match" yaml:"match"`
	Cache  CacheConfig  `json:"cache" yaml:"cache"`
	Log    LogConfig    `json:"log" yaml:"log"`
}

const (
	DefaultInput     = "ref_input.bib"
	DefaultOutput    = "ref_output.bib"
	DefaultEndpoint  = "https://dblp.org/search/publ/api"
	DefaultUserAgent = "bibrefine/0.1 (bibliography refiner)"
	DefaultDelay     = 10 * time.Second
	DefaultTimeout   = 10 * time.Second
	DefaultThreshold = 0.85
)

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Input:  DefaultInput,
		Output: DefaultOutput,
		Lookup: LookupConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   DefaultTimeout,
				UserAgent: DefaultUserAgent,
			},
			Endpoint:   DefaultEndpoint,
			Delay:      DefaultDelay,
			MaxRetries: 3,
			MaxHits:    10,
		},
		Match: MatchConfig{
			Threshold: DefaultThreshold,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate rejects configurations that cannot produce a meaningful run.
func (c Config) Validate() error {
	if c.Input == "" {
		return fmt.Errorf("input path is empty")
	}
	if c.Output == "" {
		return fmt.Errorf("output path is empty")
	}
	if c.Lookup.Endpoint == "" {
		return fmt.Errorf("lookup endpoint is empty")
	}
	if c.Lookup.Delay < 0 {
		return fmt.Errorf("delay must not be negative, got %v", c.Lookup.Delay)
	}
	if c.Lookup.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Lookup.Timeout)
	}
	if c.Lookup.MaxRetries < 1 {
		return fmt.Errorf("max retries must be at least 1, got %d", c.Lookup.MaxRetries)
	}
	if c.Lookup.MaxHits < 1 {
		return fmt.Errorf("max hits must be at least 1, got %d", c.Lookup.MaxHits)
	}
	if c.Match.Threshold <= 0 || c.Match.Threshold > 1 {
		return fmt.Errorf("threshold must be in (0, 1], got %v", c.Match.Threshold)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache ttl must not be negative, got %v", c.Cache.TTL)
	}
	return nil
}
