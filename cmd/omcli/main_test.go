package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/omtree/internal/navigator"
)

const greetTree = `
name: Greetings
operations:
  - operation_id: greet
    menu_title: Greet
    actions:
      - name: replace_text
        type: FUNCTION_CALL
        parameters:
          - name: text
            command_parameter: true
          - name: search_text
            preset_value: world
          - name: replace_text
            command_parameter: true
          - name: replaced_text
            type: AUTO
      - name: print_parameter
        type: FUNCTION_CALL
        parameters:
          - name: replaced_text
            override_parameter_name: parameter_value
  - operation_id: broken
    menu_title: Broken
    actions:
      - name: print_parameter
        type: FUNCTION_CALL
        parameters:
          - name: parameter_value
            preset_value: ""
`

func writeTree(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tree.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunOperationNonInteractive(t *testing.T) {
	path := writeTree(t, greetTree)
	out, err := execute(t, "-t", path, "-o", "greet", "text=hello world", "replace_text=gopher")
	require.NoError(t, err)
	assert.Contains(t, out, "hello gopher")
}

func TestRunOperationFailureIsReported(t *testing.T) {
	path := writeTree(t, greetTree)
	out, err := execute(t, "-t", path, "-o", "broken")
	assert.True(t, errors.Is(err, errOperationFailed))
	assert.Contains(t, out, "found no parameter value to print")
}

func TestRunMissingOperation(t *testing.T) {
	path := writeTree(t, greetTree)
	_, err := execute(t, "-t", path, "-o", "nope")
	assert.True(t, errors.Is(err, navigator.ErrOperationNotFound))
}

func TestRunMissingNonInteractiveParameter(t *testing.T) {
	path := writeTree(t, greetTree)
	out, err := execute(t, "-t", path, "-o", "greet", "text=hello world")
	assert.True(t, errors.Is(err, errOperationFailed))
	assert.Contains(t, out, "replace_text")
}

func TestReplay(t *testing.T) {
	path := writeTree(t, greetTree)
	out, err := execute(t, "replay", `omcli -t "`+path+`" -o "greet" text="hello world" replace_text="Go \"fans\""`)
	require.NoError(t, err)
	assert.Contains(t, out, `hello Go "fans"`)
}

func TestValidateCommand(t *testing.T) {
	path := writeTree(t, greetTree)
	out, err := execute(t, "validate", "-t", path)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid: 2 operations")

	bad := writeTree(t, `
operations:
  - operation_id: a
    actions:
      - name: no_such_handler
        type: FUNCTION_CALL
  - operation_id: a
`)
	out, err = execute(t, "validate", "-t", bad)
	assert.ErrorContains(t, err, "2 validation errors")
	assert.Contains(t, out, "no_such_handler")
}

func TestParseParameters(t *testing.T) {
	got, err := parseParameters([]string{"a=1", "b=x=y", "a=2", "empty="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "2", "b": "x=y", "empty": ""}, got)

	_, err = parseParameters([]string{"novalue"})
	assert.Error(t, err)
	_, err = parseParameters([]string{"=v"})
	assert.Error(t, err)
}

func TestReplayArgs(t *testing.T) {
	got, err := replayArgs(`omcli -c "/tmp/my custom" -o "deploy" env="prod east" count=3`)
	require.NoError(t, err)
	assert.Equal(t, []string{"-c", "/tmp/my custom", "-o", "deploy", "env=prod east", "count=3"}, got)

	_, err = replayArgs(`omcli -t tree.yaml`)
	assert.ErrorContains(t, err, "no -o")

	_, err = replayArgs(`omcli serve --addr :9090`)
	assert.ErrorContains(t, err, "subcommand")
}

func TestReplayPrefix(t *testing.T) {
	a := &app{flags: flags{customPath: "/srv/custom", mockPath: "mocks.json", skipLooping: true}}
	assert.Equal(t, `omcli -c "/srv/custom" -m "mocks.json" --skip-looping`, a.replayPrefix())
}
