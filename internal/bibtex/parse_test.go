// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bibtex

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/bibrefine/pkg/types"
)

const sampleBib = `% exported from a reference manager
@article{vaswani2017,
  title = {Attention Is {All} You Need},
  author = "Ashish Vaswani and Noam Shazeer",
  year = 2017,
  journal = {Advances in {Neural {Information}} Processing Systems}
}

Free text between entries is a comment; mail me at someone@example.org.

@InProceedings{he2016deep,
  Title={Deep Residual Learning
         for Image Recognition},
  booktitle = {CVPR},
  pages={770--778},
}
`

func TestParseSample(t *testing.T) {
	recs, err := Parse(sampleBib)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "vaswani2017", recs[0].Key)
	assert.Equal(t, "article", recs[0].Type)
	assert.Equal(t, []types.Field{
		{Name: "title", Value: "Attention Is {All} You Need", Style: types.StyleBraced},
		{Name: "author", Value: "Ashish Vaswani and Noam Shazeer", Style: types.StyleQuoted},
		{Name: "year", Value: "2017", Style: types.StyleBare},
		{Name: "journal", Value: "Advances in {Neural {Information}} Processing Systems", Style: types.StyleBraced},
	}, recs[0].Fields)

	assert.Equal(t, "he2016deep", recs[1].Key)
	assert.Equal(t, "inproceedings", recs[1].Type)
	title, ok := recs[1].Get("title")
	require.True(t, ok)
	assert.Equal(t, "Deep Residual Learning\n         for Image Recognition", title)
	pages, _ := recs[1].Get("pages")
	assert.Equal(t, "770--778", pages)
}

func TestParseSingleLineRecord(t *testing.T) {
	recs, err := Parse(`@article{abc, title={Attention Is All You Need}}`)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "abc", recs[0].Key)
	assert.Equal(t, "Attention Is All You Need", Title(recs[0]))
}

func TestParseParenthesisDelimiters(t *testing.T) {
	recs, err := Parse(`@misc(key1, note = {a (b) c}, year = 2020)`)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	note, _ := recs[0].Get("note")
	assert.Equal(t, "a (b) c", note)
	year, _ := recs[0].Get("year")
	assert.Equal(t, "2020", year)
}

func TestParseEscapedBraces(t *testing.T) {
	recs, err := Parse(`@article{k, title = {Sets \{x\} and {Y}}}`)
	require.NoError(t, err)
	v, _ := recs[0].Get("title")
	assert.Equal(t, `Sets \{x\} and {Y}`, v)

	// A trailing backslash does not escape the closing brace.
	recs, err = Parse("@misc{k, url = {C:\\}, title = {Y}}\n@misc{j, title={Z}}\n")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	url, _ := recs[0].Get("url")
	assert.Equal(t, `C:\`, url)
	assert.Equal(t, "Y", Title(recs[0]))
	assert.Equal(t, "j", recs[1].Key)

	recs, err = Parse(`@misc{k, note = "ends in \", year = 2001}`)
	require.NoError(t, err)
	note, _ := recs[0].Get("note")
	assert.Equal(t, `ends in \`, note)
}

func TestParseQuotedValueWithBracedQuote(t *testing.T) {
	recs, err := Parse(`@article{k, title = "The {"}Quoted{"} Word"}`)
	require.NoError(t, err)
	v, _ := recs[0].Get("title")
	assert.Equal(t, `The {"}Quoted{"} Word`, v)
}

func TestParseConcatenation(t *testing.T) {
	recs, err := Parse("@article{k,\n  journal = acm # \" Journal, vol\",\n  year = 1999\n}")
	require.NoError(t, err)
	v, _ := recs[0].Get("journal")
	assert.Equal(t, `acm # " Journal, vol"`, v)
	assert.Equal(t, types.StyleBare, recs[0].Fields[0].Style)
}

func TestParseConcatenationAcrossLines(t *testing.T) {
	recs, err := Parse("@article{k,\n  journal = acm #\n    \" Journal\",\n  title = {X},\n}\n")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	v, _ := recs[0].Get("journal")
	assert.Equal(t, "acm #\n    \" Journal\"", v)
	assert.Equal(t, "X", Title(recs[0]))
}

func TestParseEntryWithoutFields(t *testing.T) {
	recs, err := Parse(`@misc{lonely}`)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "lonely", recs[0].Key)
	assert.Nil(t, recs[0].Fields)
}

func TestParseDirectives(t *testing.T) {
	input := `@comment{ignore {me} please}
@string{acm = "Association for Computing Machinery"}
@preamble{"\newcommand{\noop}[1]{}"}
@article{k, publisher = acm}`
	recs, err := Parse(input)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.True(t, recs[0].IsDirective())
	assert.Equal(t, "string", recs[0].Type)
	assert.Equal(t, `@string{acm = "Association for Computing Machinery"}`, recs[0].Raw)
	assert.Equal(t, "preamble", recs[1].Type)
	assert.Equal(t, "k", recs[2].Key)
}

func TestParseEmptyInput(t *testing.T) {
	recs, err := Parse("  \n% nothing here\n")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantLine int
	}{
		{"missing closing brace", "@article{abc,\n  title = {Attention}\n", 1},
		{"missing closing brace before next entry", "@article{a, title={X},\n@article{b, title={Y}}", 2},
		{"missing key", "\n@article{, title={X}}", 2},
		{"empty entry", "@misc{}", 1},
		{"unbalanced value", "@article{a,\n\n  title = {Open {brace}\n", 3},
		{"unterminated quote", "@article{a, title = \"open}", 1},
		{"missing equals", "@article{a, title {X}}", 1},
		{"missing comma after key", "@article{a title={X}}", 1},
		{"missing comma between fields", "@article{a, title={X} year={2000}}", 1},
		{"unclosed comment", "@comment{never closed", 1},
		{"missing value", "@article{a, year = ,}", 1},
		{"bare value runs into next entry", "@article{a,\n  year = 1999\n@article{b, title={Y}}", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.Error(t, err)
			var pe *ParseError
			require.True(t, errors.As(err, &pe), "want *ParseError, got %T", err)
			assert.Equal(t, tt.wantLine, pe.Line)
		})
	}
}

func TestDecodeLatin1Fallback(t *testing.T) {
	// "Müller" in ISO-8859-1.
	text, err := Decode([]byte{'M', 0xfc, 'l', 'l', 'e', 'r'})
	require.NoError(t, err)
	assert.Equal(t, "Müller", text)
}

func TestDecodeStripsBOM(t *testing.T) {
	text, err := Decode([]byte("\xef\xbb\xbf@misc{k}"))
	require.NoError(t, err)
	assert.Equal(t, "@misc{k}", text)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.bib")
	require.NoError(t, os.WriteFile(path, []byte(sampleBib), 0o644))

	recs, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.bib"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestTitle(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"plain", "Attention Is All You Need", "Attention Is All You Need"},
		{"protected caps", "{BERT}: Pre-training of {Deep} Bidirectional Transformers", "BERT: Pre-training of Deep Bidirectional Transformers"},
		{"multiline", "Deep Residual\n   Learning", "Deep Residual Learning"},
		{"escapes", `Fast \& Accurate 100\% Recall`, "Fast & Accurate 100% Recall"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := types.Record{Key: "k", Fields: []types.Field{{Name: "title", Value: tt.value}}}
			assert.Equal(t, tt.want, Title(r))
		})
	}

	assert.Equal(t, "", Title(types.Record{Key: "k"}))
}
