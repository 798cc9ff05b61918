package attribute

import (
	"sort"

	"labledger.io/lims/internal/domain"
)

// UnknownKeyMessage is reported for keys that match no active or legacy config.
const UnknownKeyMessage = "is not a recognized custom attribute"

// Result is the outcome of validating a custom_attributes map.
type Result struct {
	Valid bool `json:"valid"`
	// Violations maps attr_name to messages. Never nil.
	Violations map[string][]string `json:"violations"`
	// Normalized holds coerced values for active keys and untouched values
	// for tolerated legacy keys. Absent values are omitted.
	Normalized map[string]any `json:"normalized"`
}

// Schema validates a custom_attributes map for one entity type.
type Schema struct {
	fields     map[string]*FieldValidator
	names      []string
	legacy     map[string]struct{}
	duplicates []string
}

type schemaOptions struct {
	historical []string
}

// SchemaOption configures CompileSchema.
type SchemaOption func(*schemaOptions)

// WithHistoricalKeys tolerates keys that were once valid but have no config
// left in the snapshot, e.g. names found on stored entities.
func WithHistoricalKeys(keys ...string) SchemaOption {
	return func(o *schemaOptions) {
		o.historical = append(o.historical, keys...)
	}
}

// CompileSchema builds a validator from the configs of one entity type.
//
// Active configs define the allowed keys. Keys of inactive configs, plus any
// historical keys, are tolerated: their values pass through unvalidated. When
// two active configs share an attr_name the later one wins and the name is
// reported by Duplicates.
func CompileSchema(configs []domain.AttributeConfig, opts ...SchemaOption) *Schema {
	var o schemaOptions
	for _, opt := range opts {
		opt(&o)
	}

	s := &Schema{
		fields: make(map[string]*FieldValidator),
		legacy: make(map[string]struct{}),
	}
	dup := make(map[string]bool)
	for _, cfg := range configs {
		if !cfg.Active {
			s.legacy[cfg.AttrName] = struct{}{}
			continue
		}
		if _, seen := s.fields[cfg.AttrName]; seen {
			if !dup[cfg.AttrName] {
				s.duplicates = append(s.duplicates, cfg.AttrName)
				dup[cfg.AttrName] = true
			}
		} else {
			s.names = append(s.names, cfg.AttrName)
		}
		s.fields[cfg.AttrName] = CompileField(cfg)
	}
	for _, k := range o.historical {
		s.legacy[k] = struct{}{}
	}
	for name := range s.fields {
		delete(s.legacy, name)
	}
	sort.Strings(s.duplicates)
	return s
}

// Field returns the compiled validator for an active attr_name.
func (s *Schema) Field(name string) (*FieldValidator, bool) {
	f, ok := s.fields[name]
	return f, ok
}

// Fields returns active attr_names in config order.
func (s *Schema) Fields() []string {
	return append([]string(nil), s.names...)
}

// Duplicates returns active attr_names defined more than once.
func (s *Schema) Duplicates() []string {
	return append([]string(nil), s.duplicates...)
}

// IsLegacy reports whether name is tolerated without validation.
func (s *Schema) IsLegacy(name string) bool {
	_, ok := s.legacy[name]
	return ok
}

// Validate checks values against the schema. Every key is visited; the
// result lists all violations, not only the first.
func (s *Schema) Validate(values map[string]any) Result {
	res := Result{
		Violations: make(map[string][]string),
		Normalized: make(map[string]any, len(values)),
	}

	for name, raw := range values {
		if f, ok := s.fields[name]; ok {
			fr := f.Validate(raw)
			if len(fr.Violations) > 0 {
				res.Violations[name] = fr.Violations
				continue
			}
			if fr.Present {
				res.Normalized[name] = fr.Value
			}
			continue
		}
		if _, ok := s.legacy[name]; ok {
			if raw != nil {
				res.Normalized[name] = raw
			}
			continue
		}
		res.Violations[name] = []string{UnknownKeyMessage}
	}

	res.Valid = len(res.Violations) == 0
	return res
}

// ViolationKeys returns the keys of r.Violations in sorted order.
func (r Result) ViolationKeys() []string {
	keys := make([]string, 0, len(r.Violations))
	for k := range r.Violations {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
