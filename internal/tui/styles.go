// Package tui renders the interactive terminal surface.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Italic(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB000"))
	replayStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(0, 1)
)

// Title renders a menu or section heading.
func Title(s string) string { return titleStyle.Render(s) }

// Help renders secondary help text.
func Help(s string) string { return helpStyle.Render(s) }

// Info renders neutral output such as printed parameters.
func Info(s string) string { return infoStyle.Render(s) }

// Outcome renders the final message of an action or operation.
func Outcome(success bool, message string) string {
	if success {
		return successStyle.Render("✓ " + message)
	}
	return errorStyle.Render("✗ " + message)
}

// Replay renders the replay command in a box.
func Replay(command string) string {
	return replayStyle.Render(fmt.Sprintf("Replay with:\n%s", strings.TrimSpace(command)))
}
