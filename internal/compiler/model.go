// Package compiler turns CUE model definitions into model specs the mock
// database can define.
//
// A model file looks like:
//
//	model: user: {
//		defaults: { name: "ada", active: true }
//		types: { token: "uuidv4", joined: "now" }
//		options: { auto_query_fallback: true, timestamps: false }
//		associations: [{ kind: "hasMany", target: "post" }]
//	}
package compiler

import (
	"fmt"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// Option names accepted under options.
const (
	OptionAutoQueryFallback = "auto_query_fallback"
	OptionStopPropagation   = "stop_propagation"
	OptionCreatedDefault    = "created_default"
	OptionTimestamps        = "timestamps"
	OptionPrimaryKey        = "primary_key"
)

var knownOptions = []string{
	OptionAutoQueryFallback,
	OptionStopPropagation,
	OptionCreatedDefault,
	OptionTimestamps,
	OptionPrimaryKey,
}

// ModelSpec is a compiled model definition.
type ModelSpec struct {
	Name         string            `json:"name"`
	Defaults     map[string]any    `json:"defaults"`
	Types        map[string]string `json:"types,omitempty"`
	Options      map[string]bool   `json:"options,omitempty"`
	Associations []AssociationSpec `json:"associations,omitempty"`
	Pos          token.Pos         `json:"-"`
}

// AssociationSpec is one entry of a model's associations list.
type AssociationSpec struct {
	Kind   string `json:"kind"`
	Target string `json:"target"`
	As     string `json:"as,omitempty"`
}

// CompileModel parses a CUE value into a ModelSpec.
//
// The CUE value should be the model struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`model: user: { defaults: { name: "ada" } }`)
//	spec, err := CompileModel(v.LookupPath(cue.ParsePath("model.user")))
func CompileModel(v cue.Value) (*ModelSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ModelSpec{
		Defaults: map[string]any{},
		Pos:      v.Pos(),
	}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = labels[len(labels)-1].Unquoted()
	}

	if defaults := v.LookupPath(cue.ParsePath("defaults")); defaults.Exists() {
		decoded, err := decodeStruct(defaults, "defaults")
		if err != nil {
			return nil, err
		}
		spec.Defaults = decoded
	}

	var err error
	if spec.Types, err = parseTypes(v); err != nil {
		return nil, err
	}
	if spec.Options, err = parseOptions(v); err != nil {
		return nil, err
	}
	if spec.Associations, err = parseAssociations(v); err != nil {
		return nil, err
	}

	return spec, nil
}

// parseTypes reads types: { attr: "<data type key>" }.
func parseTypes(v cue.Value) (map[string]string, error) {
	typesVal := v.LookupPath(cue.ParsePath("types"))
	if !typesVal.Exists() {
		return nil, nil
	}

	iter, err := typesVal.Fields()
	if err != nil {
		return nil, &CompileError{Field: "types", Message: "types must be a struct", Pos: typesVal.Pos()}
	}

	types := make(map[string]string)
	for iter.Next() {
		key, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{
				Field:   "types." + iter.Selector().Unquoted(),
				Message: "data type must be a string",
				Pos:     iter.Value().Pos(),
			}
		}
		types[iter.Selector().Unquoted()] = key
	}
	return types, nil
}

// parseOptions reads options: { name: bool }. Unknown names are kept so
// Validate can report them.
func parseOptions(v cue.Value) (map[string]bool, error) {
	optsVal := v.LookupPath(cue.ParsePath("options"))
	if !optsVal.Exists() {
		return nil, nil
	}

	iter, err := optsVal.Fields()
	if err != nil {
		return nil, &CompileError{Field: "options", Message: "options must be a struct", Pos: optsVal.Pos()}
	}

	opts := make(map[string]bool)
	for iter.Next() {
		b, err := iter.Value().Bool()
		if err != nil {
			return nil, &CompileError{
				Field:   "options." + iter.Selector().Unquoted(),
				Message: "option must be a bool",
				Pos:     iter.Value().Pos(),
			}
		}
		opts[iter.Selector().Unquoted()] = b
	}
	return opts, nil
}

// parseAssociations reads associations: [{ kind, target, as? }].
func parseAssociations(v cue.Value) ([]AssociationSpec, error) {
	assocVal := v.LookupPath(cue.ParsePath("associations"))
	if !assocVal.Exists() {
		return nil, nil
	}

	iter, err := assocVal.List()
	if err != nil {
		return nil, &CompileError{Field: "associations", Message: "associations must be a list", Pos: assocVal.Pos()}
	}

	var assocs []AssociationSpec
	for i := 0; iter.Next(); i++ {
		item := iter.Value()
		var a AssociationSpec
		for _, f := range []struct {
			name     string
			dst      *string
			required bool
		}{
			{"kind", &a.Kind, true},
			{"target", &a.Target, true},
			{"as", &a.As, false},
		} {
			fv := item.LookupPath(cue.ParsePath(f.name))
			if !fv.Exists() {
				if f.required {
					return nil, &CompileError{
						Field:   fmt.Sprintf("associations[%d].%s", i, f.name),
						Message: f.name + " is required",
						Pos:     item.Pos(),
					}
				}
				continue
			}
			s, err := fv.String()
			if err != nil {
				return nil, &CompileError{
					Field:   fmt.Sprintf("associations[%d].%s", i, f.name),
					Message: f.name + " must be a string",
					Pos:     fv.Pos(),
				}
			}
			*f.dst = s
		}
		assocs = append(assocs, a)
	}
	return assocs, nil
}

// decodeStruct converts a concrete CUE struct into plain Go values: string,
// int64, float64, bool, nil, []any and map[string]any.
func decodeStruct(v cue.Value, field string) (map[string]any, error) {
	decoded, err := decodeValue(v, field)
	if err != nil {
		return nil, err
	}
	m, ok := decoded.(map[string]any)
	if !ok {
		return nil, &CompileError{Field: field, Message: "must be a struct", Pos: v.Pos()}
	}
	return m, nil
}

func decodeValue(v cue.Value, field string) (any, error) {
	if !v.IsConcrete() {
		return nil, &CompileError{Field: field, Message: "value must be concrete", Pos: v.Pos()}
	}

	switch v.Kind() {
	case cue.NullKind:
		return nil, nil
	case cue.BoolKind:
		return v.Bool()
	case cue.StringKind:
		return v.String()
	case cue.IntKind:
		return v.Int64()
	case cue.FloatKind, cue.NumberKind:
		return v.Float64()
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out := []any{}
		for i := 0; iter.Next(); i++ {
			elem, err := decodeValue(iter.Value(), fmt.Sprintf("%s[%d]", field, i))
			if err != nil {
				return nil, err
			}
			out = append(out, elem)
		}
		return out, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out := map[string]any{}
		for iter.Next() {
			name := iter.Selector().Unquoted()
			elem, err := decodeValue(iter.Value(), field+"."+name)
			if err != nil {
				return nil, err
			}
			out[name] = elem
		}
		return out, nil
	default:
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("unsupported value kind %s", v.Kind()),
			Pos:     v.Pos(),
		}
	}
}

// SortedOptionNames returns the option names accepted under options.
func SortedOptionNames() []string {
	return slices.Sorted(slices.Values(knownOptions))
}

// CompileError is a compile failure with its CUE position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
