package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runValidateCmd(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestValidateValidModels(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "models.cue", testModels)

	out, err := runValidateCmd(t, "text", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ 1 model(s) valid")
}

func TestValidateValidModelsJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "models.cue", testModels)

	out, err := runValidateCmd(t, "json", dir)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, []string{"user"}, resp.Data.Models)
}

func TestValidateNonExistentDirectory(t *testing.T) {
	out, err := runValidateCmd(t, "text", "/nonexistent/directory/path")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNotFound)
	assert.Contains(t, out, "not found")
}

func TestValidateEmptyDirectory(t *testing.T) {
	_, err := runValidateCmd(t, "text", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNoFiles)
}

func TestValidateNoModels(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "empty.cue", "package models\n\nother: 1\n")

	out, err := runValidateCmd(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNoModels)
}

func TestValidateInvalidModels(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "models.cue", `package models

model: user: {
	types: token: "bogus"
	options: paranoid: true
}
`)

	out, err := runValidateCmd(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, `E102: model.user.options.paranoid`)
	assert.Contains(t, out, `E103: model.user.types.token: unknown data type "bogus"`)
}

func TestValidateStrictTargets(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "models.cue", `package models

model: user: associations: [{kind: "hasMany", target: "post"}]
`)

	_, err := runValidateCmd(t, "text", dir)
	require.NoError(t, err, "undefined targets are allowed by default")

	out, err := runValidateCmd(t, "json", "--strict", dir)
	require.Error(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  CLIError         `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Errors, 1)
	assert.Equal(t, "E109", resp.Error.Code)
	assert.Equal(t, "model.user.associations[0].target", resp.Data.Errors[0].Field)
}

func TestMapFieldToErrorCode(t *testing.T) {
	tests := map[string]string{
		"defaults.name":          ErrCodeInvalidDefaults,
		"types.token":            ErrCodeInvalidTypes,
		"options":                ErrCodeInvalidOptions,
		"associations[0].target": ErrCodeInvalidAssociations,
		"cue":                    ErrCodeBuildFailed,
		"model":                  ErrCodeGeneric,
	}
	for field, want := range tests {
		assert.Equal(t, want, MapFieldToErrorCode(field), field)
	}
}
