// ABOUTME: TransportError - the single failure type the agent gateway returns
// ABOUTME: Covers network errors, non-2xx statuses and undecodable payloads

package agent

import "fmt"

// TransportError reports that the endpoint could not be reached or its
// reply could not be used. It never carries a partial result and the
// gateway does not retry.
type TransportError struct {
	Op         string // "request", "status", "decode"
	StatusCode int    // set for Op "status"
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("agent transport %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("agent transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
