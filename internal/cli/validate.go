package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ormock/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Models []string                   `json:"models,omitempty"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

type validateOptions struct {
	strict bool
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate <models-dir>",
		Short: "Validate CUE model definitions",
		Long: `Compile and validate the CUE model definitions in a directory.

Checks that defaults are concrete, data types and options are known and
associations are well formed. With --strict, associations whose target is
not one of the loaded models are also reported.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.strict, "strict", false, "report associations to undefined models")

	return cmd
}

func runValidate(rootOpts *RootOptions, opts *validateOptions, modelsDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	errs, models, err := ValidateModelsDir(modelsDir, opts.strict)
	if err != nil {
		code := ErrCodeGeneric
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			code = loadErr.Code
		}
		return formatter.CommandError(code, "validate", err, nil)
	}

	formatter.VerboseLog("Loaded %d model(s) from %s", len(models), modelsDir)

	if len(errs) > 0 {
		return outputValidationErrors(formatter, models, errs)
	}

	if formatter.IsJSON() {
		return formatter.Success(ValidationResult{Valid: true, Models: models})
	}
	fmt.Fprintf(formatter.Writer, "✓ %d model(s) valid\n", len(models))
	return nil
}

// ValidateModelsDir loads every model in dir and validates it. Compile errors
// are folded into the returned validation errors; the error return is only
// set when the directory cannot be loaded at all.
func ValidateModelsDir(dir string, strict bool) ([]compiler.ValidationError, []string, error) {
	result, loadErrs := LoadModels(dir, LoadModeCollectAll)
	if result == nil {
		return nil, nil, loadErrs[0]
	}

	var errs []compiler.ValidationError
	for _, err := range loadErrs {
		errs = append(errs, loadErrorToValidation(err))
	}

	names := make([]string, 0, len(result.Models))
	for _, spec := range result.Models {
		names = append(names, spec.Name)
	}

	errs = append(errs, compiler.Validate(result.Models)...)
	if strict {
		errs = append(errs, compiler.ValidateTargets(result.Models)...)
	}
	return errs, names, nil
}

func loadErrorToValidation(err error) compiler.ValidationError {
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		return compiler.ValidationError{Field: "load", Message: err.Error(), Code: ErrCodeGeneric}
	}
	line := 0
	if loadErr.Pos.IsValid() {
		line = loadErr.Pos.Line()
	}
	return compiler.ValidationError{
		Field:   "load",
		Message: loadErr.Message,
		Code:    loadErr.Code,
		Line:    line,
	}
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, models []string, errs []compiler.ValidationError) error {
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.IsJSON() {
		err := formatter.Encode(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Models: models, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		})
		if err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}
	return failure
}
