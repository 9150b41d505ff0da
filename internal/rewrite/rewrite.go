// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rewrite builds standardized records from selected candidates.
package rewrite

import (
	"strings"

	"github.com/pdiddy/bibrefine/internal/bibtex"
	"github.com/pdiddy/bibrefine/internal/match"
	"github.com/pdiddy/bibrefine/pkg/types"
)

// EssentialFields is the order in which rewritten records list their fields.
var EssentialFields = []string{"author", "title", "booktitle", "journal", "year", "pages", "volume", "number"}

// impliedTypes are candidate entry types that override the record's own.
// Informal listings ("misc") do not.
var impliedTypes = map[string]bool{
	"article":       true,
	"inproceedings": true,
	"incollection":  true,
	"book":          true,
	"proceedings":   true,
}

// Apply returns the record to write for an outcome: a rebuilt record when a
// candidate matched, otherwise an unchanged copy of rec. The key is never
// altered.
func Apply(rec types.Record, out match.Outcome) types.Record {
	if !out.Matched() {
		return rec.Clone()
	}
	return FromCandidate(rec, *out.Candidate)
}

// FromCandidate replaces rec's fields with the candidate's metadata.
func FromCandidate(rec types.Record, c types.Candidate) types.Record {
	entryType := rec.Type
	if impliedTypes[c.EntryType] {
		entryType = c.EntryType
	}

	values := map[string]string{
		"author": strings.Join(c.Authors, " and "),
		"title":  c.Title,
		"year":   c.Year,
		"pages":  formatPages(c.Pages),
		"volume": c.Volume,
		"number": c.Number,
	}
	if values["title"] == "" {
		values["title"] = bibtex.Title(rec)
	}
	if venue := strings.TrimSpace(c.Venue); venue != "" {
		if field := VenueField(entryType); field == "booktitle" {
			values[field] = cleanBooktitle(venue)
		} else {
			values[field] = venue
		}
	}

	out := types.Record{Key: rec.Key, Type: entryType}
	for _, name := range EssentialFields {
		v := balanceBraces(escapeSpecials(strings.TrimSpace(values[name])))
		if strings.TrimSpace(v) == "" {
			continue
		}
		out.Fields = append(out.Fields, types.Field{
			Name:  name,
			Value: v,
			Style: types.StyleBraced,
		})
	}
	return out
}

// VenueField returns the field that holds the venue for an entry type.
func VenueField(entryType string) string {
	switch entryType {
	case "inproceedings", "incollection", "inbook", "conference", "proceedings":
		return "booktitle"
	default:
		return "journal"
	}
}

// cleanBooktitle keeps the part before the first comma, which drops the
// location and date suffixes proceedings titles tend to carry.
func cleanBooktitle(v string) string {
	if i := strings.IndexByte(v, ','); i >= 0 {
		v = v[:i]
	}
	return strings.Join(strings.Fields(v), " ")
}

// formatPages turns a single-hyphen page range into an en-dash range.
func formatPages(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || strings.Contains(p, "--") {
		return p
	}
	return strings.ReplaceAll(p, "-", "--")
}

// escapeSpecials escapes characters that are active in LaTeX and common in
// service metadata, leaving already-escaped ones alone.
func escapeSpecials(v string) string {
	var b strings.Builder
	for i := 0; i < len(v); i++ {
		c := v[i]
		if (c == '&' || c == '%' || c == '#') && (i == 0 || v[i-1] != '\\') {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}

// balanceBraces drops closing braces without a matching opener and appends
// closers for any left open, so the value always re-parses. Braces are
// counted literally, the same way the parser counts them. Trailing
// backslashes are dropped so they cannot escape the closing delimiter in
// LaTeX.
func balanceBraces(v string) string {
	v = strings.TrimRight(v, "\\")
	var b strings.Builder
	depth := 0
	for i := 0; i < len(v); i++ {
		c := v[i]
		switch c {
		case '{':
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
		}
		b.WriteByte(c)
	}
	b.WriteString(strings.Repeat("}", depth))
	return b.String()
}
