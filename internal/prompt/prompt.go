// Package prompt defines how the interpreter asks the user for input.
package prompt

import (
	"context"
	"errors"
)

// ErrAborted is returned when the user abandons a prompt (Ctrl+C, Ctrl+D or
// end of input).
var ErrAborted = errors.New("aborted by user")

// Prompt describes one free-text question.
type Prompt struct {
	Title       string
	Description string
	// Default is returned when the user submits an empty answer.
	Default  string
	Validate func(string) error
}

// Option is one entry of a selection.
type Option struct {
	Label string
	Value string
}

// Prompter asks the user questions. Implementations block until answered.
type Prompter interface {
	Input(ctx context.Context, p Prompt) (string, error)
	Confirm(ctx context.Context, title string) (bool, error)
	Select(ctx context.Context, title string, options []Option) (string, error)
}
