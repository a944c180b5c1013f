package tui

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/gyaneshwarpardhi/omtree/internal/prompt"
)

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// PrompterFor returns the huh prompter when in is a terminal and a
// line-oriented prompter otherwise.
func PrompterFor(in *os.File, out io.Writer) prompt.Prompter {
	if IsTerminal(in) {
		return NewPrompter()
	}
	return prompt.NewLine(in, out)
}
