package runtimeapi

import "fmt"

// ProtocolError reports a control-plane exchange that failed or returned
// something the runtime cannot work with: a transport failure, a non-2xx
// status, or a missing header.
type ProtocolError struct {
	Op         string
	StatusCode int
	Header     string
	Body       string
	Err        error
}

func (e *ProtocolError) Error() string {
	switch {
	case e.Header != "":
		return fmt.Sprintf("runtimeapi: %s: missing or invalid header %s", e.Op, e.Header)
	case e.Err != nil:
		return fmt.Sprintf("runtimeapi: %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("runtimeapi: %s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
	}
}

func (e *ProtocolError) Unwrap() error { return e.Err }
