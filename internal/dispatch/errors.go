package dispatch

import "fmt"

// DispatchError reports a handler that could not be found or did not return
// a usable result.
type DispatchError struct {
	Action string
	Err    error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("action %s: %v", e.Action, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// TransportError reports a failed API call: a network failure, a timeout or
// a non-2xx status.
type TransportError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
	Timeout    bool
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("%s %s timed out: %v", e.Method, e.URL, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s %s failed: %v", e.Method, e.URL, e.Err)
	default:
		return fmt.Sprintf("%d | %s", e.StatusCode, e.Body)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }
