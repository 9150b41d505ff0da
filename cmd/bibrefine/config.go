package main

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/bibrefine/pkg/types"
)

// Configuration keys. Nested keys map to BIBREFINE_<SECTION>_<NAME> in the
// environment and to sections in bibrefine.yaml.
const (
	keyInput         = "input"
	keyOutput        = "output"
	keyReport        = "report"
	keyEndpoint      = "lookup.endpoint"
	keyDelay         = "lookup.delay"
	keyTimeout       = "lookup.timeout"
	keyMaxRetries    = "lookup.max_retries"
	keyMaxHits       = "lookup.max_hits"
	keyUserAgent     = "lookup.user_agent"
	keyThreshold     = "match.threshold"
	keyKeepPreprints = "match.keep_preprints"
	keyCachePath     = "cache.path"
	keyCacheTTL      = "cache.ttl"
	keyLogLevel      = "log.level"
	keyLogFormat     = "log.format"
)

// bindFlags declares the refine flags on cmd and binds each to its key in v,
// so flags override config file and environment values only when set.
func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	def := types.DefaultConfig()
	f := cmd.Flags()

	f.Float64("delay", def.Lookup.Delay.Seconds(), "minimum seconds between DBLP requests")
	f.Float64("threshold", def.Match.Threshold, "minimum title similarity in (0, 1] to accept a match")
	f.Duration("timeout", def.Lookup.Timeout, "HTTP request timeout")
	f.Int("max-retries", def.Lookup.MaxRetries, "attempts per query on network or server errors")
	f.Int("max-hits", def.Lookup.MaxHits, "number of DBLP hits to request per query")
	f.String("endpoint", def.Lookup.Endpoint, "DBLP publication search URL")
	f.String("user-agent", def.Lookup.UserAgent, "User-Agent header for DBLP requests")
	f.Bool("keep-preprints", false, "allow arXiv/CoRR listings to be chosen as matches")
	f.String("cache", "", "SQLite file caching DBLP responses (empty disables)")
	f.Duration("cache-ttl", 0, "expire cached responses older than this (0 keeps them)")
	f.String("report", "", "write a YAML run report to this path")
	f.String("log-level", def.Log.Level, "log level: debug, info, warn, error")
	f.String("log-format", def.Log.Format, "log format: text or json")

	for key, flag := range map[string]string{
		keyDelay:         "delay",
		keyThreshold:     "threshold",
		keyTimeout:       "timeout",
		keyMaxRetries:    "max-retries",
		keyMaxHits:       "max-hits",
		keyEndpoint:      "endpoint",
		keyUserAgent:     "user-agent",
		keyKeepPreprints: "keep-preprints",
		keyCachePath:     "cache",
		keyCacheTTL:      "cache-ttl",
		keyReport:        "report",
		keyLogLevel:      "log-level",
		keyLogFormat:     "log-format",
	} {
		_ = v.BindPFlag(key, f.Lookup(flag))
	}

	v.SetDefault(keyInput, def.Input)
	v.SetDefault(keyOutput, def.Output)
}

// loadConfig materializes the configuration from v. Positional arguments
// override the input and output paths.
func loadConfig(v *viper.Viper, args []string) types.Config {
	cfg := types.DefaultConfig()

	cfg.Input = v.GetString(keyInput)
	cfg.Output = v.GetString(keyOutput)
	if len(args) > 0 {
		cfg.Input = args[0]
	}
	if len(args) > 1 {
		cfg.Output = args[1]
	}
	cfg.Report = v.GetString(keyReport)

	cfg.Lookup.Endpoint = v.GetString(keyEndpoint)
	cfg.Lookup.Delay = seconds(v.GetFloat64(keyDelay))
	cfg.Lookup.Timeout = v.GetDuration(keyTimeout)
	cfg.Lookup.MaxRetries = v.GetInt(keyMaxRetries)
	cfg.Lookup.MaxHits = v.GetInt(keyMaxHits)
	cfg.Lookup.UserAgent = v.GetString(keyUserAgent)

	cfg.Match.Threshold = v.GetFloat64(keyThreshold)
	cfg.Match.KeepPreprints = v.GetBool(keyKeepPreprints)

	cfg.Cache.Path = v.GetString(keyCachePath)
	cfg.Cache.TTL = v.GetDuration(keyCacheTTL)

	cfg.Log.Level = v.GetString(keyLogLevel)
	cfg.Log.Format = v.GetString(keyLogFormat)
	return cfg
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
