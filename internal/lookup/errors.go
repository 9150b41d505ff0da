// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package lookup

import (
	"fmt"
	"net/http"
)

// LookupError reports a failed search request: a network failure, an
// undecodable response, or an HTTP error status. StatusCode is zero when no
// response status was received.
type LookupError struct {
	Query      string
	StatusCode int
	Err        error
}

func (e *LookupError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("lookup %q: HTTP %d %s", e.Query, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("lookup %q: %v", e.Query, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// Temporary reports whether repeating the request may succeed: network and
// decode failures and 5xx statuses are retried, other statuses are not.
func (e *LookupError) Temporary() bool {
	return e.StatusCode == 0 || e.StatusCode >= http.StatusInternalServerError
}
