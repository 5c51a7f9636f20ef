package blocks

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-pageblocks/pkg/interfaces"
)

// Registry is the immutable set of block types available to a process. It is
// built once at startup and only read afterwards.
type Registry struct {
	order []string
	types map[string]Type
}

// TypeSchema is the editor facing export of one type.
type TypeSchema struct {
	Name        string                     `json:"name"`
	Description string                     `json:"description"`
	Container   bool                       `json:"container"`
	Fields      map[string]FieldDefinition `json:"fields"`
	Order       []string                   `json:"order"`
}

// NewRegistry registers types and exposes the ones named in available, in
// that order. An empty available list selects DefaultTypeIDs. Naming a type
// that was not registered fails with *UnknownTypeError.
func NewRegistry(available []string, types ...Type) (*Registry, error) {
	registered := make(map[string]Type, len(types))
	for _, t := range types {
		if t == nil {
			continue
		}
		if err := checkType(t); err != nil {
			return nil, err
		}
		id := t.Meta().ID
		if _, exists := registered[id]; exists {
			return nil, fmt.Errorf("%w: duplicate type %q", ErrInvalidType, id)
		}
		registered[id] = t
	}

	if len(available) == 0 {
		available = DefaultTypeIDs()
	}

	r := &Registry{types: make(map[string]Type, len(available))}
	for _, raw := range available {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		t, ok := registered[id]
		if !ok {
			return nil, &UnknownTypeError{TypeID: id}
		}
		if _, dup := r.types[id]; dup {
			continue
		}
		r.types[id] = t
		r.order = append(r.order, id)
	}
	return r, nil
}

func checkType(t Type) error {
	meta := t.Meta()
	if strings.TrimSpace(meta.ID) == "" {
		return fmt.Errorf("%w: type id is required", ErrInvalidType)
	}
	seen := map[string]bool{}
	for _, f := range t.Fields() {
		if strings.TrimSpace(f.ID) == "" {
			return fmt.Errorf("%w: %s has a field without id", ErrInvalidType, meta.ID)
		}
		if seen[f.ID] {
			return fmt.Errorf("%w: %s declares field %q twice", ErrInvalidType, meta.ID, f.ID)
		}
		seen[f.ID] = true
		if f.Kind == KindBlockStream && !meta.Container {
			return fmt.Errorf("%w: %s has a blockstream field but is not a container", ErrInvalidType, meta.ID)
		}
	}
	return nil
}

func (r *Registry) Resolve(id string) (Type, error) {
	if t, ok := r.types[id]; ok {
		return t, nil
	}
	return nil, &UnknownTypeError{TypeID: id}
}

// Available returns the exposed types in allow-list order.
func (r *Registry) Available() []Type {
	out := make([]Type, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.types[id])
	}
	return out
}

func (r *Registry) AvailableIDs() []string {
	return append([]string(nil), r.order...)
}

// Schema exports every available type for editor clients.
func (r *Registry) Schema(logger interfaces.Logger) map[string]TypeSchema {
	out := make(map[string]TypeSchema, len(r.order))
	for _, id := range r.order {
		t := r.types[id]
		meta := t.Meta()
		fields := t.Fields()
		schema := TypeSchema{
			Name:        meta.Name,
			Description: meta.Description,
			Container:   meta.Container,
			Fields:      make(map[string]FieldDefinition, len(fields)),
			Order:       make([]string, 0, len(fields)),
		}
		for _, f := range fields {
			schema.Fields[f.ID] = f.Describe(r, logger)
			schema.Order = append(schema.Order, f.ID)
		}
		out[id] = schema
	}
	return out
}
