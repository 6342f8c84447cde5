package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testModels = `package models

model: user: {
	defaults: {
		name: "ada"
		age:  36
	}
	options: timestamps: false
}
`

const passingScenario = `name: passing
description: "queue then exhausted"
models:
  - ../models
setup:
  - target: db
    result: 42
flow:
  - call: query
    args: ["SELECT 1"]
    expect:
      value: 42
  - call: user.findOne
    expect:
      value: { name: ada }
assertions:
  - type: strategy_order
    strategies: [queue, fallback]
`

const failingScenario = `name: failing
description: "expects a value the queue never returns"
models:
  - ../models
setup:
  - target: db
    result: 1
flow:
  - call: query
    args: ["SELECT 1"]
    expect:
      value: 2
`

// writeFile writes content to dir/name, creating parent directories.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// scenarioTree lays out models/ and scenarios/ under a temp dir and returns
// the scenarios directory.
func scenarioTree(t *testing.T, scenarios map[string]string) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "models/models.cue", testModels)
	for name, body := range scenarios {
		writeFile(t, root, filepath.Join("scenarios", name), body)
	}
	return filepath.Join(root, "scenarios")
}

func TestRootCommandHasSubcommands(t *testing.T) {
	cmd := NewRootCommand()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"validate", "test", "run", "trace"}, names)
}

func TestRootCommandRejectsInvalidFormat(t *testing.T) {
	modelsDir := t.TempDir()
	writeFile(t, modelsDir, "models.cue", testModels)

	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--format", "xml", "validate", modelsDir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad path")))

	wrapped := WrapExitError(ExitFailure, "outer", errors.New("inner"))
	assert.Equal(t, "outer: inner", wrapped.Error())
	assert.Equal(t, ExitFailure, GetExitCode(wrapped))
}

func TestOutputFormatterText(t *testing.T) {
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf, ErrWriter: errBuf, Verbose: true}

	require.NoError(t, f.Error("E005", "not found", "detail"))
	f.VerboseLog("loaded %d", 3)

	assert.Equal(t, "Error [E005]: not found\nDetails: detail\n", buf.String())
	assert.Equal(t, "loaded 3\n", errBuf.String())
}
