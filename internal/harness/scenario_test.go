package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenario writes content to dir/name and returns the path.
func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "models"), 0755))

	path := writeScenario(t, dir, "test.yaml", `
name: test_scenario
description: "Test scenario for validation"
models:
  - models
options:
  auto_query_fallback: false
setup:
  - target: user
    result: { name: ada }
    was_created: true
  - target: db
    failure: boom
    error_kind: timeout
handlers:
  - target: user
    operation: findAll
    result: []
flow:
  - call: user.findOne
    args: [{ where: { name: ada } }]
    expect:
      value: { name: ada }
assertions:
  - type: strategy_count
    strategy: queue
    count: 1
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, []string{filepath.Join(dir, "models")}, scenario.Models, "model dirs resolve against the file")
	require.NotNil(t, scenario.Options.AutoQueryFallback)
	assert.False(t, *scenario.Options.AutoQueryFallback)
	assert.Nil(t, scenario.Options.StopPropagation)

	require.Len(t, scenario.Setup, 2)
	assert.True(t, scenario.Setup[0].hasResult)
	assert.False(t, scenario.Setup[0].hasFailure)
	assert.Equal(t, map[string]any{"name": "ada"}, scenario.Setup[0].Result)
	assert.True(t, scenario.Setup[1].hasFailure)
	assert.Equal(t, "timeout", scenario.Setup[1].ErrorKind)

	require.Len(t, scenario.Handlers, 1)
	assert.Equal(t, "findAll", scenario.Handlers[0].Operation)
	assert.True(t, scenario.Handlers[0].hasResult)

	require.Len(t, scenario.Flow, 1)
	assert.Equal(t, "user.findOne", scenario.Flow[0].Call)
	require.NotNil(t, scenario.Flow[0].Expect)
	assert.Equal(t, map[string]any{"name": "ada"}, scenario.Flow[0].Expect.Value)
}

func TestLoadScenario_NullResultIsQueued(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: null_result
description: "null is a result"
setup:
  - target: db
    result: null
flow:
  - call: query
    args: ["SELECT 1"]
`))
	require.NoError(t, err)
	assert.True(t, scenario.Setup[0].hasResult)
	assert.Nil(t, scenario.Setup[0].Result)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read scenario file")
}

func TestLoadScenario_MissingModelsDir(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, "test.yaml", `
name: x
description: "x"
models: [nowhere]
flow:
  - call: query
`)
	_, err := LoadScenario(path)
	assert.ErrorContains(t, err, "models directory not found")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "malformed yaml",
			content: "name: [",
			wantErr: "failed to parse YAML",
		},
		{
			name:    "unknown field",
			content: "name: x\ndescription: x\nflw: []\n",
			wantErr: "field flw not found",
		},
		{
			name:    "unknown setup field",
			content: "name: x\ndescription: x\nsetup: [{target: db, result: 1, wascreated: true}]\nflow: [{call: query}]\n",
			wantErr: "field wascreated not found",
		},
		{
			name:    "missing name",
			content: "description: x\nflow: [{call: query}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: x\nflow: [{call: query}]\n",
			wantErr: "description is required",
		},
		{
			name:    "empty flow",
			content: "name: x\ndescription: x\n",
			wantErr: "flow list is required",
		},
		{
			name:    "setup without target",
			content: "name: x\ndescription: x\nsetup: [{result: 1}]\nflow: [{call: query}]\n",
			wantErr: "setup[0]: target is required",
		},
		{
			name:    "setup with both result and failure",
			content: "name: x\ndescription: x\nsetup: [{target: db, result: 1, failure: 2}]\nflow: [{call: query}]\n",
			wantErr: "exactly one of result and failure",
		},
		{
			name:    "setup with neither",
			content: "name: x\ndescription: x\nsetup: [{target: db}]\nflow: [{call: query}]\n",
			wantErr: "exactly one of result and failure",
		},
		{
			name:    "error kind on a result",
			content: "name: x\ndescription: x\nsetup: [{target: db, result: 1, error_kind: timeout}]\nflow: [{call: query}]\n",
			wantErr: "error_kind requires failure",
		},
		{
			name:    "unknown error kind",
			content: "name: x\ndescription: x\nhandlers: [{target: db, failure: x, error_kind: nope}]\nflow: [{call: query}]\n",
			wantErr: `handlers[0]: unknown error kind "nope"`,
		},
		{
			name:    "bad call",
			content: "name: x\ndescription: x\nflow: [{call: findAll}]\n",
			wantErr: "call must be <model>.<operation>",
		},
		{
			name:    "unknown expected error",
			content: "name: x\ndescription: x\nflow: [{call: query, expect: {error: nope}}]\n",
			wantErr: `flow[0].expect: unknown error kind "nope"`,
		},
		{
			name:    "unknown assertion",
			content: "name: x\ndescription: x\nflow: [{call: query}]\nassertions: [{type: trace_contains}]\n",
			wantErr: `unknown assertion type "trace_contains"`,
		},
		{
			name:    "unknown strategy",
			content: "name: x\ndescription: x\nflow: [{call: query}]\nassertions: [{type: strategy_count, strategy: cache}]\n",
			wantErr: `unknown strategy "cache"`,
		},
		{
			name:    "empty strategy order",
			content: "name: x\ndescription: x\nflow: [{call: query}]\nassertions: [{type: strategy_order}]\n",
			wantErr: "strategies list is required",
		},
		{
			name:    "queue length without target",
			content: "name: x\ndescription: x\nflow: [{call: query}]\nassertions: [{type: queue_length, count: 0}]\n",
			wantErr: "target is required for queue_length",
		},
		{
			name:    "negative count",
			content: "name: x\ndescription: x\nflow: [{call: query}]\nassertions: [{type: resolution_count, count: -1}]\n",
			wantErr: "count must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseScenario_ErrorNamesAccepted(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: x
description: x
flow:
  - call: query
    expect:
      error: SequelizeMockEmptyQueryQueueError
`))
	assert.NoError(t, err)
}

func TestLoadExampleScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			_, err := LoadScenario(path)
			require.NoError(t, err)
		})
	}
}
