// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package bibtex reads and writes the @type{key, field = {value}, ...}
// reference-list format.
//
// Values are scanned with an explicit brace-depth counter so that nested
// braces and multi-line values survive a parse/format round trip unchanged.
// Braces are counted literally, as BibTeX does: a backslash does not escape
// them.
package bibtex

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/pdiddy/bibrefine/pkg/types"
)

// ParseError reports malformed input. Line is 1-based and points at the
// construct that could not be completed.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d: %s", e.Line, e.Msg)
}

// ReadFile reads and parses a bibliography file. Content that is not valid
// UTF-8 is decoded as Latin-1.
func ReadFile(path string) ([]types.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	text, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return Parse(text)
}

// Decode converts raw file bytes to a string, stripping a UTF-8 byte order
// mark and falling back to Latin-1 for invalid UTF-8.
func Decode(data []byte) (string, error) {
	if utf8.Valid(data) {
		return strings.TrimPrefix(string(data), "\uFEFF"), nil
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Parse splits text into records in input order. Text outside entries is
// ignored, @comment blocks are dropped, and @string/@preamble blocks are
// kept verbatim as directive records.
func Parse(text string) ([]types.Record, error) {
	p := &parser{s: text}
	var records []types.Record
	for {
		rec, ok, err := p.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if rec != nil {
			records = append(records, *rec)
		}
	}
	return records, nil
}

type parser struct {
	s string
	i int
}

func (p *parser) eof() bool { return p.i >= len(p.s) }

func (p *parser) peek() byte { return p.s[p.i] }

func (p *parser) lineAt(pos int) int {
	if pos > len(p.s) {
		pos = len(p.s)
	}
	return 1 + strings.Count(p.s[:pos], "\n")
}

func (p *parser) errorf(pos int, format string, args ...any) error {
	return &ParseError{Line: p.lineAt(pos), Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) skipSpace() {
	for !p.eof() && isSpace(p.peek()) {
		p.i++
	}
}

// next advances to the following entry. It returns ok=false at end of input
// and a nil record for blocks that produce no output (comments).
func (p *parser) next() (*types.Record, bool, error) {
	for {
		at := strings.IndexByte(p.s[p.i:], '@')
		if at < 0 {
			p.i = len(p.s)
			return nil, false, nil
		}
		start := p.i + at
		p.i = start + 1
		p.skipSpace()
		typ := strings.ToLower(p.readWhile(isIdentChar))
		p.skipSpace()
		if typ == "" || p.eof() || (p.peek() != '{' && p.peek() != '(') {
			// A stray '@' in free text, such as an e-mail address.
			continue
		}
		open := p.peek()
		closer := byte('}')
		if open == '(' {
			closer = ')'
		}

		switch typ {
		case "comment":
			if _, err := p.skipBlock(start, open, closer); err != nil {
				return nil, false, err
			}
			return nil, true, nil
		case "string", "preamble":
			end, err := p.skipBlock(start, open, closer)
			if err != nil {
				return nil, false, err
			}
			return &types.Record{Type: typ, Raw: p.s[start:end]}, true, nil
		}

		p.i++ // opening delimiter
		rec, err := p.entry(start, typ, closer)
		if err != nil {
			return nil, false, err
		}
		return rec, true, nil
	}
}

// skipBlock consumes a balanced block starting at the opening delimiter and
// returns the offset just past its closing delimiter.
func (p *parser) skipBlock(start int, open, closer byte) (int, error) {
	depth := 0
	for ; !p.eof(); p.i++ {
		switch p.peek() {
		case open:
			depth++
		case closer:
			depth--
			if depth == 0 {
				p.i++
				return p.i, nil
			}
		}
	}
	return 0, p.errorf(start, "missing closing %q", closer)
}

func (p *parser) entry(start int, typ string, closer byte) (*types.Record, error) {
	p.skipSpace()
	key := p.readWhile(isKeyChar)
	if key == "" {
		return nil, p.errorf(start, "@%s entry has no cite key", typ)
	}
	rec := &types.Record{Key: key, Type: typ}

	p.skipSpace()
	if p.eof() {
		return nil, p.errorf(start, "entry %q is missing closing %q", key, closer)
	}
	if p.peek() == closer {
		p.i++
		return rec, nil
	}
	if p.peek() != ',' {
		return nil, p.errorf(p.i, "expected ',' after cite key %q, found %q", key, p.peek())
	}
	p.i++

	for {
		p.skipSpace()
		if p.eof() {
			return nil, p.errorf(start, "entry %q is missing closing %q", key, closer)
		}
		if p.peek() == closer {
			p.i++
			return rec, nil
		}

		fieldStart := p.i
		name := strings.ToLower(p.readWhile(isFieldChar))
		if name == "" {
			return nil, p.errorf(p.i, "entry %q: expected field name, found %q", key, p.peek())
		}
		p.skipSpace()
		if p.eof() || p.peek() != '=' {
			return nil, p.errorf(p.i, "entry %q: expected '=' after field %q", key, name)
		}
		p.i++
		p.skipSpace()

		field, err := p.value(name, closer)
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) && pe.Line == 0 {
				pe.Line = p.lineAt(fieldStart)
				pe.Msg = fmt.Sprintf("entry %q: %s", key, pe.Msg)
			}
			return nil, err
		}
		rec.Fields = append(rec.Fields, field)

		p.skipSpace()
		if p.eof() {
			return nil, p.errorf(start, "entry %q is missing closing %q", key, closer)
		}
		switch p.peek() {
		case ',':
			p.i++
		case closer:
			p.i++
			return rec, nil
		default:
			return nil, p.errorf(p.i, "entry %q: expected ',' or %q after field %q, found %q", key, closer, name, p.peek())
		}
	}
}

// value scans one field value. Errors carry Line 0 and are positioned by
// the caller.
func (p *parser) value(name string, closer byte) (types.Field, error) {
	if p.eof() {
		return types.Field{}, &ParseError{Msg: fmt.Sprintf("field %q has no value", name)}
	}
	switch p.peek() {
	case '{':
		p.i++
		start := p.i
		depth := 1
		for !p.eof() {
			switch p.peek() {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					v := p.s[start:p.i]
					p.i++
					return types.Field{Name: name, Value: v, Style: types.StyleBraced}, nil
				}
			}
			p.i++
		}
		return types.Field{}, &ParseError{Msg: fmt.Sprintf("unbalanced braces in field %q", name)}
	case '"':
		p.i++
		start := p.i
		depth := 0
		for !p.eof() {
			switch p.peek() {
			case '{':
				depth++
			case '}':
				depth--
			case '"':
				if depth <= 0 {
					v := p.s[start:p.i]
					p.i++
					return types.Field{Name: name, Value: v, Style: types.StyleQuoted}, nil
				}
			}
			p.i++
		}
		return types.Field{}, &ParseError{Msg: fmt.Sprintf("unterminated quoted value in field %q", name)}
	}

	// Bare tokens and concatenations such as `acm # " Journal"` run to the
	// next separator outside braces and quotes and may span lines. An '@'
	// at that level means the entry was never closed.
	start := p.i
	depth := 0
	quoted := false
	for !p.eof() {
		c := p.peek()
		switch {
		case c == '"' && depth == 0:
			quoted = !quoted
		case c == '{':
			depth++
		case c == '}' && depth > 0:
			depth--
		case !quoted && depth == 0 && c == '@':
			return types.Field{}, &ParseError{Msg: fmt.Sprintf("unexpected '@' in value of field %q", name)}
		case !quoted && depth == 0 && (c == ',' || c == closer):
			v := strings.TrimSpace(p.s[start:p.i])
			if v == "" {
				return types.Field{}, &ParseError{Msg: fmt.Sprintf("field %q has no value", name)}
			}
			return types.Field{Name: name, Value: v, Style: types.StyleBare}, nil
		}
		p.i++
	}
	return types.Field{}, &ParseError{Msg: fmt.Sprintf("unterminated value in field %q", name)}
}

func (p *parser) readWhile(ok func(byte) bool) string {
	start := p.i
	for !p.eof() && ok(p.peek()) {
		p.i++
	}
	return p.s[start:p.i]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isIdentChar(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isFieldChar(c byte) bool {
	return isIdentChar(c) || ('0' <= c && c <= '9') || c == '_' || c == '-' || c == '.' || c == ':'
}

func isKeyChar(c byte) bool {
	return !isSpace(c) && !strings.ContainsRune(",{}()=\"#%", rune(c))
}
