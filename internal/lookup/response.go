// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package lookup

import (
	"bytes"
	"encoding/json"
	"strings"
)

// DBLP search API JSON structures. Several fields switch between a single
// value and an array depending on the hit, so they decode leniently.
type dblpResponse struct {
	Result dblpResult `json:"result"`
}

type dblpResult struct {
	Hits dblpHits `json:"hits"`
}

type dblpHits struct {
	Hit oneOrMany[dblpHit] `json:"hit"`
}

type dblpHit struct {
	Info dblpInfo `json:"info"`
}

type dblpInfo struct {
	Authors dblpAuthors `json:"authors"`
	Title   flexString  `json:"title"`
	Venue   flexString  `json:"venue"`
	Volume  flexString  `json:"volume"`
	Number  flexString  `json:"number"`
	Pages   flexString  `json:"pages"`
	Year    flexString  `json:"year"`
	Type    flexString  `json:"type"`
	URL     flexString  `json:"url"`
}

type dblpAuthors struct {
	Author oneOrMany[flexString] `json:"author"`
}

// oneOrMany decodes either a JSON array or a single element.
type oneOrMany[T any] []T

func (m *oneOrMany[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = nil
		return nil
	}
	if data[0] == '[' {
		var many []T
		if err := json.Unmarshal(data, &many); err != nil {
			return err
		}
		*m = many
		return nil
	}
	var one T
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*m = oneOrMany[T]{one}
	return nil
}

// flexString decodes strings, numbers, {"text": ...} objects, and arrays of
// those (joined with a space) into plain text.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*f = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
	case data[0] == '[':
		var parts []flexString
		if err := json.Unmarshal(data, &parts); err != nil {
			return err
		}
		ss := make([]string, 0, len(parts))
		for _, p := range parts {
			if p != "" {
				ss = append(ss, string(p))
			}
		}
		*f = flexString(strings.Join(ss, " "))
	case data[0] == '{':
		var obj struct {
			Text flexString `json:"text"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*f = obj.Text
	default:
		*f = flexString(data)
	}
	return nil
}
