package schema

import (
	"sort"
	"sync"

	"github.com/samber/lo"

	"github.com/owenffff/infotransform-engine/internal/apperrors"
)

// Registry is the static, process-wide Schema Registry. It is
// constructed explicitly at startup (spec.md §9's "avoid hidden
// globals") and passed via the orchestrator's context struct rather
// than referenced as a package-level singleton.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*Schema
}

// NewRegistry builds a Registry from a fixed set of schemas. Schema
// definition files themselves are out of scope (spec.md §1); callers
// supply Schema values however their own deployment sources them.
func NewRegistry(schemas ...*Schema) *Registry {
	r := &Registry{schemas: make(map[string]*Schema, len(schemas))}
	for _, s := range schemas {
		r.schemas[s.Key] = s
	}
	return r
}

// Register adds or replaces a schema at runtime.
func (r *Registry) Register(s *Schema) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[s.Key] = s
}

// Get looks up a schema by key.
func (r *Registry) Get(key string) (*Schema, *apperrors.Error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[key]
	if !ok {
		return nil, apperrors.InvalidSchemaKey(key)
	}
	return s, nil
}

// List returns every registered schema's descriptor, sorted by key for
// stable output ordering.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := lo.Keys(r.schemas)
	sort.Strings(keys)

	descriptors := make([]Descriptor, 0, len(keys))
	for _, k := range keys {
		descriptors = append(descriptors, describe(r.schemas[k]))
	}
	return descriptors
}

// OutputShape reports whether a schema is flat or nested.
func OutputShape(s *Schema) Shape {
	return s.Shape()
}

func describe(s *Schema) Descriptor {
	fields := make(map[string]FieldDescriptor, len(s.Fields))
	for _, f := range s.Fields {
		fields[f.Name] = FieldDescriptor{
			Type:        string(f.Kind),
			Description: f.Description,
			Required:    f.Required,
			Constraints: f.EnumValues,
		}
	}
	return Descriptor{
		Key:         s.Key,
		Name:        s.Name,
		Description: s.Description,
		Fields:      fields,
	}
}
