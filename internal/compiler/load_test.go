package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCUE(t *testing.T, dir, name, src string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644))
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeCUE(t, dir, "user.cue", `package models

model: user: {
	defaults: { name: "ada" }
	associations: [{ kind: "hasMany", target: "post" }]
}
`)
	writeCUE(t, dir, "post.cue", `package models

model: post: defaults: { title: "hello" }
`)

	inst, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, inst.FileCount)

	specs, errs := CompileModels(inst.Value, false)
	require.Empty(t, errs)
	require.Len(t, specs, 2)

	names := []string{specs[0].Name, specs[1].Name}
	assert.ElementsMatch(t, []string{"user", "post"}, names)
}

func TestLoadDir_Errors(t *testing.T) {
	_, err := LoadDir(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	empty := t.TempDir()
	_, err = LoadDir(empty)
	assert.ErrorContains(t, err, "no CUE files")

	file := filepath.Join(empty, "x.cue")
	writeCUE(t, empty, "x.cue", "package x\n")
	_, err = LoadDir(file)
	assert.ErrorContains(t, err, "not a directory")

	bad := t.TempDir()
	writeCUE(t, bad, "bad.cue", "package bad\nmodel: user: defaults: { n: 1 & 2 }\n")
	_, err = LoadDir(bad)
	assert.Error(t, err)
}

func TestCompileModels_CollectsOrStops(t *testing.T) {
	v := cuecontext.New().CompileString(`
		model: a: types: "bad"
		model: b: {}
		model: c: options: "bad"
	`)
	require.NoError(t, v.Err())

	specs, errs := CompileModels(v, false)
	assert.Len(t, specs, 1)
	assert.Len(t, errs, 2)

	specs, errs = CompileModels(v, true)
	assert.Empty(t, specs)
	assert.Len(t, errs, 1)

	none, errs := CompileModels(cuecontext.New().CompileString(`x: 1`), false)
	assert.Nil(t, none)
	assert.Nil(t, errs)
}
