package bibtex

import (
	"strings"

	"github.com/pdiddy/bibrefine/pkg/types"
)

var latexUnescaper = strings.NewReplacer(
	`\&`, "&",
	`\%`, "%",
	`\$`, "$",
	`\#`, "#",
	`\_`, "_",
	`\{`, "",
	`\}`, "",
)

// Title returns the record's title as plain text: braces removed, common
// LaTeX escapes undone, and whitespace collapsed. It returns "" when the
// record has no title.
func Title(r types.Record) string {
	v, ok := r.Get("title")
	if !ok {
		return ""
	}
	return PlainText(v)
}

// PlainText strips grouping braces and simple escapes from a field value.
func PlainText(v string) string {
	v = latexUnescaper.Replace(v)
	v = strings.NewReplacer("{", "", "}", "").Replace(v)
	return strings.Join(strings.Fields(v), " ")
}
