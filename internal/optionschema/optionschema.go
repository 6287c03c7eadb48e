// Package optionschema declares and validates the static per-provider
// option schemas referenced by §4.2: each provider exposes a set of
// (name, value-kind, required?) tuples that every AliasSpec.options
// tree must satisfy.
package optionschema

import (
	"github.com/tidwall/gjson"

	"github.com/modelrt/modelrt/internal/rterrors"
)

// Kind is the closed set of value kinds a schema field may declare.
type Kind int

// Supported value kinds.
const (
	KindString Kind = iota
	KindBool
	KindIntMin
	KindEnum
	KindStringArray
)

// Field describes one allowed option key.
type Field struct {
	Name     string
	Kind     Kind
	Required bool

	// Min is consulted only when Kind == KindIntMin.
	Min int64

	// Enum is consulted only when Kind == KindEnum.
	Enum []string
}

// Schema is the full set of fields a provider declares for its options
// tree. A Schema with no fields accepts an absent options tree or an
// empty object, and rejects any key.
type Schema struct {
	Fields []Field
}

// Registry maps provider_id to its declared Schema. The zero value is
// usable; providers register their schema once at init time, mirroring
// the blank-import idiom used by internal/providerdir.
type Registry struct {
	schemas map[string]Schema
}

// NewRegistry creates an empty schema registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]Schema)}
}

// Register associates a Schema with a provider_id. Re-registering the
// same id overwrites the prior schema, which is useful in tests but
// should not happen in a production binary wiring providers once.
func (r *Registry) Register(providerID string, schema Schema) {
	r.schemas[providerID] = schema
}

// Validate checks rawOptions (raw JSON bytes, possibly nil/empty for
// "absent") against the schema registered for providerID. It rejects
// unknown keys, wrong value kinds, and out-of-range values; it
// tolerates an absent options tree iff every declared field is
// optional.
func (r *Registry) Validate(providerID, alias string, rawOptions []byte) error {
	schema, ok := r.schemas[providerID]
	if !ok {
		// No declared schema: accept anything. Providers that never call
		// Register are treated as schema-less, not as a validation error.
		return nil
	}

	if len(rawOptions) == 0 {
		for _, f := range schema.Fields {
			if f.Required {
				return rterrors.Configf("optionschema: alias %q: provider %q requires option %q but options are absent",
					alias, providerID, f.Name)
			}
		}
		return nil
	}

	parsed := gjson.ParseBytes(rawOptions)
	if !parsed.IsObject() {
		return rterrors.Configf("optionschema: alias %q: options must be a JSON object", alias)
	}

	declared := make(map[string]Field, len(schema.Fields))
	for _, f := range schema.Fields {
		declared[f.Name] = f
	}

	seen := make(map[string]bool)
	var firstErr error
	parsed.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		seen[name] = true
		field, ok := declared[name]
		if !ok {
			firstErr = rterrors.Configf("optionschema: alias %q: provider %q does not declare option %q",
				alias, providerID, name)
			return false
		}
		if err := validateKind(alias, providerID, field, value); err != nil {
			firstErr = err
			return false
		}
		return true
	})
	if firstErr != nil {
		return firstErr
	}

	for _, f := range schema.Fields {
		if f.Required && !seen[f.Name] {
			return rterrors.Configf("optionschema: alias %q: provider %q requires option %q",
				alias, providerID, f.Name)
		}
	}

	return nil
}

func validateKind(alias, providerID string, field Field, value gjson.Result) error {
	switch field.Kind {
	case KindString:
		if value.Type != gjson.String {
			return rterrors.Configf("optionschema: alias %q: option %q must be a string", alias, field.Name)
		}
	case KindBool:
		if value.Type != gjson.True && value.Type != gjson.False {
			return rterrors.Configf("optionschema: alias %q: option %q must be a bool", alias, field.Name)
		}
	case KindIntMin:
		if value.Type != gjson.Number {
			return rterrors.Configf("optionschema: alias %q: option %q must be a number", alias, field.Name)
		}
		if value.Int() < field.Min {
			return rterrors.Configf("optionschema: alias %q: option %q must be >= %d (got %v)",
				alias, field.Name, field.Min, value.Int())
		}
	case KindEnum:
		if value.Type != gjson.String {
			return rterrors.Configf("optionschema: alias %q: option %q must be a string", alias, field.Name)
		}
		if !containsString(field.Enum, value.String()) {
			return rterrors.Configf("optionschema: alias %q: option %q must be one of %v (got %q)",
				alias, field.Name, field.Enum, value.String())
		}
	case KindStringArray:
		if !value.IsArray() {
			return rterrors.Configf("optionschema: alias %q: option %q must be an array of strings", alias, field.Name)
		}
		for _, elem := range value.Array() {
			if elem.Type != gjson.String {
				return rterrors.Configf("optionschema: alias %q: option %q must be an array of strings", alias, field.Name)
			}
		}
	default:
		return rterrors.Configf("optionschema: alias %q: provider %q declares option %q with unknown kind",
			alias, providerID, field.Name)
	}
	return nil
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
