// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the bibrefine CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// envKeyReplacer maps config keys such as lookup.max_retries to
// BIBREFINE_LOOKUP_MAX_RETRIES.
var envKeyReplacer = strings.NewReplacer(".", "_", "-", "_")

// rootCmd refines a bibliography file against DBLP.
var rootCmd = &cobra.Command{
	Use:   "bibrefine [input] [output]",
	Short: "Standardize BibTeX entries with metadata from DBLP",
	Long: `bibrefine reads a BibTeX file, looks each entry's title up on DBLP, and
rewrites entries that match with DBLP's authors, venue, year, pages, volume,
and number. Citation keys are never changed. Entries without a confident
match are written unchanged and listed at the end of the run.

Input defaults to ref_input.bib and output to ref_output.bib. Lookups are
spaced at least --delay seconds apart to respect DBLP's fair-use policy.`,
	Args:         cobra.MaximumNArgs(2),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading .env: %w", err)
		}
		return nil
	},
	RunE: runRefine,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./bibrefine.yaml or ~/.config/bibrefine/bibrefine.yaml)")
	bindFlags(rootCmd, viper.GetViper())
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("bibrefine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "bibrefine"))
		}
	}

	viper.SetEnvPrefix("BIBREFINE")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
