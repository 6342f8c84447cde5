package compiler

import (
	"fmt"
	"maps"

	"github.com/roach88/ormock/internal/datatype"
	"github.com/roach88/ormock/internal/mockdb"
	"github.com/roach88/ormock/internal/model"
)

// ModelOptions converts spec options into model options. Unknown names are
// ignored; Validate reports them.
func (s *ModelSpec) ModelOptions() []model.Option {
	var opts []model.Option
	for _, name := range sortedKeys(s.Options) {
		on := s.Options[name]
		switch name {
		case OptionAutoQueryFallback:
			opts = append(opts, model.WithAutoQueryFallback(on))
		case OptionStopPropagation:
			opts = append(opts, model.WithStopPropagation(on))
		case OptionCreatedDefault:
			opts = append(opts, model.WithCreatedDefault(on))
		case OptionTimestamps:
			if !on {
				opts = append(opts, model.WithoutTimestamps())
			}
		case OptionPrimaryKey:
			if !on {
				opts = append(opts, model.WithoutPrimaryKey())
			}
		}
	}
	return opts
}

// ModelDefaults returns the defaults with typed attributes replaced by data type
// placeholders, generated fresh for every built record.
func (s *ModelSpec) ModelDefaults() (map[string]any, error) {
	defaults := maps.Clone(s.Defaults)
	if defaults == nil {
		defaults = map[string]any{}
	}
	for _, attr := range sortedKeys(s.Types) {
		kind, ok := datatype.ParseKind(s.Types[attr])
		if !ok {
			return nil, fmt.Errorf("model %s: attribute %s: unknown data type %q", s.Name, attr, s.Types[attr])
		}
		defaults[attr] = datatype.Of(kind)
	}
	return defaults, nil
}

// Define defines every spec on db, then wires associations. Targets that name
// one of the specs bind to that model; other targets build detached records.
func Define(db *mockdb.DB, specs []ModelSpec) (map[string]*model.Model, error) {
	models := make(map[string]*model.Model, len(specs))
	for i := range specs {
		spec := &specs[i]
		defaults, err := spec.ModelDefaults()
		if err != nil {
			return nil, err
		}
		models[spec.Name] = db.Define(spec.Name, defaults, spec.ModelOptions()...)
	}

	for i := range specs {
		spec := &specs[i]
		m := models[spec.Name]
		for j, a := range spec.Associations {
			kind := model.AssociationKind(a.Kind)
			if !kind.Valid() {
				return nil, fmt.Errorf("model %s: associations[%d]: unknown kind %q", spec.Name, j, a.Kind)
			}
			var target model.Target = model.Named(a.Target)
			if t, ok := models[a.Target]; ok {
				target = t
			}
			var opts []model.AssociationOption
			if a.As != "" {
				opts = append(opts, model.As(a.As))
			}
			if _, err := m.Associate(kind, target, opts...); err != nil {
				return nil, err
			}
		}
	}
	return models, nil
}
