// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package match scores search candidates against a record title and picks
// the best one above a similarity threshold.
package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// latexAccents drops accent commands such as \"{u}, \'e or \H{o} down to the
// base letter so that LaTeX-encoded titles compare equal to Unicode ones.
// Letter-named accents only match when followed by a brace or a space, so
// words starting with those letters are left alone.
var latexAccents = strings.NewReplacer(
	`\"`, "", `\'`, "", "\\`", "", `\^`, "", `\~`, "", `\=`, "", `\.`, "",
	`\H{`, "{", `\c{`, "{", `\v{`, "{", `\u{`, "{", `\r{`, "{",
	`\k{`, "{", `\d{`, "{", `\b{`, "{", `\t{`, "{",
	`\H `, "", `\c `, "", `\v `, "", `\u `, "", `\r `, "",
	`\k `, "", `\d `, "", `\b `, "", `\t `, "",
)

// Normalize lowercases a title, folds diacritics, drops braces and
// backslashes, turns other punctuation into spaces, and collapses whitespace.
func Normalize(title string) string {
	title = latexAccents.Replace(title)
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		title,
	)
	if err == nil {
		title = folded
	}

	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case r == '{' || r == '}' || r == '\\':
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
