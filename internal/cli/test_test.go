package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runTestCmd(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestTestCommandAllPass(t *testing.T) {
	dir := scenarioTree(t, map[string]string{"passing.yaml": passingScenario})

	out, err := runTestCmd(t, "text", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ passing")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommandFailure(t *testing.T) {
	dir := scenarioTree(t, map[string]string{
		"passing.yaml": passingScenario,
		"failing.yaml": failingScenario,
	})

	out, err := runTestCmd(t, "json", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  CLIError   `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Passed)
	assert.Equal(t, 1, resp.Data.Failed)

	for _, sr := range resp.Data.Scenarios {
		if sr.Name == "failing" {
			assert.False(t, sr.Pass)
			require.NotEmpty(t, sr.Errors)
			assert.Contains(t, sr.Errors[0], "value mismatch")
		}
	}
}

func TestTestCommandFilter(t *testing.T) {
	dir := scenarioTree(t, map[string]string{
		"passing.yaml": passingScenario,
		"failing.yaml": failingScenario,
	})

	out, err := runTestCmd(t, "text", "--filter", "pass*", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "1 total")
	assert.NotContains(t, out, "failing")

	_, err = runTestCmd(t, "text", "--filter", "[", dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandGolden(t *testing.T) {
	dir := scenarioTree(t, map[string]string{"passing.yaml": passingScenario})
	goldenPath := filepath.Join(dir, "golden", "passing.golden")

	out, err := runTestCmd(t, "text", "--update", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ passing (golden updated)")

	data, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario_name":"passing"`)

	out, err = runTestCmd(t, "json", dir)
	require.NoError(t, err)
	var resp struct {
		Data TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Scenarios, 1, "golden directory is not scanned for scenarios")
	assert.Equal(t, "match", resp.Data.Scenarios[0].Golden)

	require.NoError(t, os.WriteFile(goldenPath, []byte(`{"scenario_name":"passing","trace":[]}`), 0o644))
	out, err = runTestCmd(t, "text", dir)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestCommandLoadError(t *testing.T) {
	dir := scenarioTree(t, map[string]string{"broken.yaml": "name: broken\n"})

	out, err := runTestCmd(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestCommandMissingDirectory(t *testing.T) {
	_, err := runTestCmd(t, "text", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandEmptyDirectory(t *testing.T) {
	out, err := runTestCmd(t, "text", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}
