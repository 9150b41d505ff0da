// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the data structures shared by the bibrefine stages:
// parsed bibliography records, lookup candidates, and run configuration.
package types

import "strings"

// FieldStyle records how a field value was delimited in the source text so
// that serialization can reproduce it.
type FieldStyle int

const (
	// StyleBraced is a value wrapped in {...}. It is the default for new fields.
	StyleBraced FieldStyle = iota
	// StyleQuoted is a value wrapped in "...".
	StyleQuoted
	// StyleBare is an undelimited token such as a number or @string macro.
	StyleBare
)

// Field is a single name/value pair of a Record. Name is lowercase.
// Value is the raw text between the delimiters.
type Field struct {
	Name  string     `json:"name" yaml:"name"`
	Value string     `json:"value" yaml:"value"`
	Style FieldStyle `json:"style,omitempty" yaml:"style,omitempty"`
}

// Record is one bibliography entry. Key is the cite key and is never altered
// by any stage. Fields keep their source order.
//
// Directive blocks (@string, @preamble) are carried as records with an empty
// Key and their verbatim source in Raw; they are serialized unchanged and
// never looked up.
type Record struct {
	Key    string  `json:"key" yaml:"key"`
	Type   string  `json:"type" yaml:"type"`
	Fields []Field `json:"fields" yaml:"fields"`
	Raw    string  `json:"raw,omitempty" yaml:"raw,omitempty"`
}

// IsDirective reports whether the record is an @string or @preamble block.
func (r Record) IsDirective() bool {
	return r.Raw != ""
}

// Get returns the value of the named field.
func (r Record) Get(name string) (string, bool) {
	name = strings.ToLower(name)
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	c := r
	if r.Fields != nil {
		c.Fields = make([]Field, len(r.Fields))
		copy(c.Fields, r.Fields)
	}
	return c
}
