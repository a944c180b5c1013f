package tui

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/omtree/internal/prompt"
)

func TestOutcome(t *testing.T) {
	assert.Contains(t, Outcome(true, "done"), "done")
	assert.Contains(t, Outcome(false, "boom"), "boom")
	assert.Contains(t, Replay(`omcli -o "x"`), `omcli -o "x"`)
}

func TestPrompterForRegularFileIsLine(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "answers"))
	require.NoError(t, err)
	defer f.Close()

	assert.False(t, IsTerminal(f))
	_, ok := PrompterFor(f, os.Stdout).(*prompt.Line)
	assert.True(t, ok)
}
