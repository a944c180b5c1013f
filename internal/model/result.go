package model

import "fmt"

// Result is the outcome of one executed action. Its Parameters are merged
// into the run context; Data, Success and Message are visible to the next
// action.
type Result struct {
	Success    bool         `json:"success"`
	Message    string       `json:"message"`
	Data       any          `json:"data,omitempty"`
	Parameters []*Parameter `json:"parameters,omitempty"`
	// RepeatAction asks the user whether to run the same action again.
	RepeatAction bool `json:"repeat_action,omitempty"`
	// RepeatLoop, when set, answers the next loop-repeat question in place
	// of the user.
	RepeatLoop *bool `json:"repeat_loop,omitempty"`
	// Err keeps the typed error behind a failed result.
	Err error `json:"-"`
}

// Succeeded builds a successful result carrying outputs.
func Succeeded(message string, outputs ...*Parameter) *Result {
	return &Result{Success: true, Message: message, Parameters: outputs}
}

// Failed builds a failed result from err.
func Failed(err error) *Result {
	return &Result{Success: false, Message: err.Error(), Err: err}
}

// Failedf builds a failed result from a formatted message.
func Failedf(format string, args ...any) *Result {
	return Failed(fmt.Errorf(format, args...))
}

// WithRepeatLoop sets the loop decision carried by r and returns r.
func (r *Result) WithRepeatLoop(again bool) *Result {
	r.RepeatLoop = &again
	return r
}
