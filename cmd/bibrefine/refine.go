package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/bibrefine/internal/cache"
	"github.com/pdiddy/bibrefine/internal/logging"
	"github.com/pdiddy/bibrefine/internal/lookup"
	"github.com/pdiddy/bibrefine/internal/refine"
)

func runRefine(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(viper.GetViper(), args)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	opts := []lookup.Option{lookup.WithLogger(logger)}
	if cfg.Cache.Path != "" {
		store, err := cache.Open(cfg.Cache)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, lookup.WithCache(store))
		if n, err := store.Len(cmd.Context()); err == nil {
			logger.Debug("lookup cache enabled",
				slog.String("path", cfg.Cache.Path),
				slog.Duration("ttl", cfg.Cache.TTL),
				slog.Int("entries", n),
			)
		}
	}
	client := lookup.NewClient(cfg.Lookup, opts...)

	out := cmd.OutOrStdout()
	r := refine.New(client, cfg.Match, logger, out)
	sum, err := r.RunFile(cmd.Context(), cfg.Input, cfg.Output)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nWrote %d records to %s\n", len(sum.Records), cfg.Output)
	refine.PrintSummary(out, sum, isTerminal(out))

	if cfg.Report != "" {
		if err := refine.WriteReport(cfg.Report, sum); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Fprintf(out, "Report written to %s\n", cfg.Report)
	}
	return nil
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
