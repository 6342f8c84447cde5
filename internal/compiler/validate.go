package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/ormock/internal/datatype"
	"github.com/roach88/ormock/internal/model"
)

// Validation error codes (E100-E199)
const (
	ErrUnsupportedType = "E100" // unsupported type for validation

	ErrModelNameEmpty          = "E101" // model name is required
	ErrUnknownOption           = "E102" // option name not recognized
	ErrUnknownDataType         = "E103" // data type key not recognized
	ErrInvalidAssociationKind  = "E104" // association kind not recognized
	ErrAssociationTargetEmpty  = "E105" // association target is required
	ErrDuplicateAssociation    = "E106" // two associations produce the same accessors
	ErrTypeShadowsDefault      = "E107" // attribute has both a default and a data type
	ErrDuplicateModel          = "E108" // model defined twice
	ErrUnknownAssociatedTarget = "E109" // association target is not a defined model
)

// ValidationError represents a model validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate validates compiled model specs. Returns all errors found (does not
// fail-fast). Accepts a *ModelSpec, a ModelSpec or a []ModelSpec; a slice is
// also checked for duplicate names.
func Validate(v any) []ValidationError {
	switch spec := v.(type) {
	case *ModelSpec:
		return validateModel(spec)
	case ModelSpec:
		return validateModel(&spec)
	case []ModelSpec:
		return validateModels(spec)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type: %T", v),
			Code:    ErrUnsupportedType,
		}}
	}
}

func validateModels(specs []ModelSpec) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool)
	for i := range specs {
		spec := &specs[i]
		if seen[spec.Name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("model.%s", spec.Name),
				Message: fmt.Sprintf("duplicate model name: %q", spec.Name),
				Code:    ErrDuplicateModel,
				Line:    spec.Pos.Line(),
			})
		}
		seen[spec.Name] = true
		errs = append(errs, validateModel(spec)...)
	}
	return errs
}

func validateModel(spec *ModelSpec) []ValidationError {
	var errs []ValidationError
	line := spec.Pos.Line()
	prefix := "model." + spec.Name

	// E101: name is required
	if strings.TrimSpace(spec.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "model",
			Message: "model name is required",
			Code:    ErrModelNameEmpty,
			Line:    line,
		})
	}

	// E102: option names
	for _, name := range sortedKeys(spec.Options) {
		if !slices.Contains(knownOptions, name) {
			errs = append(errs, ValidationError{
				Field:   prefix + ".options." + name,
				Message: fmt.Sprintf("unknown option %q (expected one of %s)", name, strings.Join(SortedOptionNames(), ", ")),
				Code:    ErrUnknownOption,
				Line:    line,
			})
		}
	}

	for _, attr := range sortedKeys(spec.Types) {
		// E103: data type keys
		if _, ok := datatype.ParseKind(spec.Types[attr]); !ok {
			errs = append(errs, ValidationError{
				Field:   prefix + ".types." + attr,
				Message: fmt.Sprintf("unknown data type %q", spec.Types[attr]),
				Code:    ErrUnknownDataType,
				Line:    line,
			})
		}
		// E107: a typed attribute is generated, so a default would be ignored
		if _, ok := spec.Defaults[attr]; ok {
			errs = append(errs, ValidationError{
				Field:   prefix + ".types." + attr,
				Message: fmt.Sprintf("attribute %q has both a default and a data type", attr),
				Code:    ErrTypeShadowsDefault,
				Line:    line,
			})
		}
	}

	accessors := make(map[string]int)
	for i, a := range spec.Associations {
		field := fmt.Sprintf("%s.associations[%d]", prefix, i)

		// E104: kind
		if !model.AssociationKind(a.Kind).Valid() {
			errs = append(errs, ValidationError{
				Field:   field + ".kind",
				Message: fmt.Sprintf("unknown association kind %q", a.Kind),
				Code:    ErrInvalidAssociationKind,
				Line:    line,
			})
		}

		// E105: target
		if strings.TrimSpace(a.Target) == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".target",
				Message: "association target is required",
				Code:    ErrAssociationTargetEmpty,
				Line:    line,
			})
			continue
		}

		// E106: accessor collisions
		name := a.Target
		if a.As != "" {
			name = a.As
		}
		if prev, ok := accessors[name]; ok {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("association %q duplicates associations[%d]", name, prev),
				Code:    ErrDuplicateAssociation,
				Line:    line,
			})
			continue
		}
		accessors[name] = i
	}

	return errs
}

// ValidateTargets reports associations whose target is not one of the given
// models. Targets outside the set still work (they build detached records),
// so callers decide whether this is fatal.
func ValidateTargets(specs []ModelSpec) []ValidationError {
	defined := make(map[string]bool, len(specs))
	for _, s := range specs {
		defined[s.Name] = true
	}

	var errs []ValidationError
	for _, s := range specs {
		for i, a := range s.Associations {
			if a.Target != "" && !defined[a.Target] {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("model.%s.associations[%d].target", s.Name, i),
					Message: fmt.Sprintf("target %q is not a defined model", a.Target),
					Code:    ErrUnknownAssociatedTarget,
					Line:    s.Pos.Line(),
				})
			}
		}
	}
	return errs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
