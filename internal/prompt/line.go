package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Line is a Prompter over plain line-oriented streams. It is used when stdin
// is not a terminal and in tests.
type Line struct {
	in  *bufio.Reader
	out io.Writer
}

// NewLine creates a Line prompter reading answers from in and writing
// questions to out.
func NewLine(in io.Reader, out io.Writer) *Line {
	return &Line{in: bufio.NewReader(in), out: out}
}

func (l *Line) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s, err := l.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && s != "" {
			return strings.TrimRight(s, "\r\n"), nil
		}
		if errors.Is(err, io.EOF) {
			return "", ErrAborted
		}
		return "", err
	}
	return strings.TrimRight(s, "\r\n"), nil
}

// Input asks a free-text question, retrying while Validate rejects the answer.
func (l *Line) Input(ctx context.Context, p Prompt) (string, error) {
	for {
		if p.Default != "" {
			fmt.Fprintf(l.out, "%s [%s]: ", p.Title, p.Default)
		} else {
			fmt.Fprintf(l.out, "%s: ", p.Title)
		}
		answer, err := l.readLine(ctx)
		if err != nil {
			return "", err
		}
		if answer == "" {
			answer = p.Default
		}
		if p.Validate != nil {
			if verr := p.Validate(answer); verr != nil {
				fmt.Fprintf(l.out, "%v\n", verr)
				continue
			}
		}
		return answer, nil
	}
}

// Confirm asks a y/n question until answered with y or n.
func (l *Line) Confirm(ctx context.Context, title string) (bool, error) {
	for {
		fmt.Fprintf(l.out, "%s (y/n): ", title)
		answer, err := l.readLine(ctx)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Fprintln(l.out, "Invalid answer, please answer with y or n")
	}
}

// Select lists the options numbered from 1 and accepts a number, a label or
// a value.
func (l *Line) Select(ctx context.Context, title string, options []Option) (string, error) {
	if len(options) == 0 {
		return "", errors.New("nothing to select")
	}
	for {
		fmt.Fprintln(l.out, title)
		for i, o := range options {
			fmt.Fprintf(l.out, "  %d) %s\n", i+1, o.Label)
		}
		fmt.Fprint(l.out, "> ")
		answer, err := l.readLine(ctx)
		if err != nil {
			return "", err
		}
		answer = strings.TrimSpace(answer)
		if n, convErr := strconv.Atoi(answer); convErr == nil && n >= 1 && n <= len(options) {
			return options[n-1].Value, nil
		}
		for _, o := range options {
			if answer == o.Value || strings.EqualFold(answer, o.Label) {
				return o.Value, nil
			}
		}
		fmt.Fprintf(l.out, "Invalid choice %q\n", answer)
	}
}
