package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/huh"

	"github.com/gyaneshwarpardhi/omtree/internal/prompt"
)

// Prompter asks questions with charmbracelet/huh forms. It needs a terminal.
type Prompter struct {
	theme *huh.Theme
}

var _ prompt.Prompter = (*Prompter)(nil)

// NewPrompter creates a huh-backed Prompter.
func NewPrompter() *Prompter {
	return &Prompter{theme: huh.ThemeCharm()}
}

func (p *Prompter) run(ctx context.Context, field huh.Field) error {
	err := huh.NewForm(huh.NewGroup(field)).WithTheme(p.theme).RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return prompt.ErrAborted
	}
	return err
}

func (p *Prompter) Input(ctx context.Context, q prompt.Prompt) (string, error) {
	var value string
	input := huh.NewInput().
		Title(q.Title).
		Description(q.Description).
		Placeholder(q.Default).
		Value(&value)
	if q.Validate != nil {
		input.Validate(func(s string) error {
			if s == "" {
				s = q.Default
			}
			return q.Validate(s)
		})
	}
	if err := p.run(ctx, input); err != nil {
		return "", err
	}
	if value == "" {
		value = q.Default
	}
	return value, nil
}

func (p *Prompter) Confirm(ctx context.Context, title string) (bool, error) {
	var ok bool
	confirm := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&ok)
	if err := p.run(ctx, confirm); err != nil {
		return false, err
	}
	return ok, nil
}

func (p *Prompter) Select(ctx context.Context, title string, options []prompt.Option) (string, error) {
	var value string
	opts := make([]huh.Option[string], 0, len(options))
	for _, o := range options {
		opts = append(opts, huh.NewOption(o.Label, o.Value))
	}
	sel := huh.NewSelect[string]().
		Title(title).
		Options(opts...).
		Value(&value)
	if err := p.run(ctx, sel); err != nil {
		return "", err
	}
	return value, nil
}
