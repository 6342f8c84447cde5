package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

// Instance is a built CUE package directory.
type Instance struct {
	Value     cue.Value
	FileCount int
}

// LoadDir builds the CUE package in dir. It fails if dir holds no .cue files.
func LoadDir(dir string) (*Instance, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("models directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("error scanning directory: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no CUE files found in %s", dir)
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded")
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("loading CUE files: %w", inst.Err)
	}

	value := ctx.BuildInstance(inst)
	if err := value.Validate(); err != nil {
		return nil, fmt.Errorf("building CUE value: %w", formatCUEError(err))
	}

	return &Instance{Value: value, FileCount: len(files)}, nil
}

// CompileModels compiles every struct under model: in v, in declaration order.
// With failFast it stops at the first error; otherwise it collects them all.
func CompileModels(v cue.Value, failFast bool) ([]ModelSpec, []error) {
	modelsVal := v.LookupPath(cue.ParsePath("model"))
	if !modelsVal.Exists() {
		return nil, nil
	}

	iter, err := modelsVal.Fields()
	if err != nil {
		return nil, []error{&CompileError{Field: "model", Message: "model must be a struct", Pos: modelsVal.Pos()}}
	}

	var specs []ModelSpec
	var errs []error
	for iter.Next() {
		spec, err := CompileModel(iter.Value())
		if err != nil {
			errs = append(errs, err)
			if failFast {
				return specs, errs
			}
			continue
		}
		specs = append(specs, *spec)
	}
	return specs, errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
