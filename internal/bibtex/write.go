// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bibtex

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/bibrefine/pkg/types"
)

// FormatRecord renders one record. Fields are written one per line in
// record order using the delimiter style they were parsed with.
func FormatRecord(r types.Record) string {
	if r.IsDirective() {
		return r.Raw + "\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "@%s{%s,\n", r.Type, r.Key)
	for _, f := range r.Fields {
		fmt.Fprintf(&b, "  %s = %s,\n", f.Name, formatValue(f))
	}
	b.WriteString("}\n")
	return b.String()
}

// Format renders records in order, separated by blank lines.
func Format(records []types.Record) string {
	entries := make([]string, len(records))
	for i, r := range records {
		entries[i] = FormatRecord(r)
	}
	return strings.Join(entries, "\n")
}

// Write renders records to w.
func Write(w io.Writer, records []types.Record) error {
	_, err := io.WriteString(w, Format(records))
	return err
}

// WriteFile writes records to path through a temporary file in the same
// directory, so an interrupted write never leaves a truncated file behind.
func WriteFile(path string, records []types.Record) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".bibrefine-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	writeErr := Write(tmp, records)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing records: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func formatValue(f types.Field) string {
	switch f.Style {
	case types.StyleQuoted:
		return `"` + f.Value + `"`
	case types.StyleBare:
		return f.Value
	default:
		return "{" + f.Value + "}"
	}
}
