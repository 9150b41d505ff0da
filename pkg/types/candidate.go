// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Candidate is one hit returned by the bibliographic search service. It only
// lives between the lookup and the rewrite of a single record. Absent fields
// in the service response are left empty.
type Candidate struct {
	// Title is the publication title as returned by the service, without
	// the trailing period DBLP appends.
	Title string `json:"title" yaml:"title"`

	// Authors lists the authors in service order with disambiguation
	// suffixes removed.
	Authors []string `json:"authors" yaml:"authors"`

	// Venue is the journal or proceedings short name.
	Venue string `json:"venue" yaml:"venue"`

	Year   string `json:"year" yaml:"year"`
	Volume string `json:"volume" yaml:"volume"`
	Number string `json:"number" yaml:"number"`
	Pages  string `json:"pages" yaml:"pages"`

	// EntryType is the standard entry type implied by the service's
	// publication type ("article", "inproceedings", ...). Empty when the
	// service type is unknown.
	EntryType string `json:"entry_type,omitempty" yaml:"entry_type,omitempty"`

	// URL is the service's landing page for the publication.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
}
