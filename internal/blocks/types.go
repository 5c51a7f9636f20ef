package blocks

import (
	"context"
	"slices"
)

// Meta describes a block type to the registry and to editors.
type Meta struct {
	ID          string
	Name        string
	Description string
	// Template is the renderer template name. Empty means the type cannot be
	// rendered.
	Template    string
	Container   bool
	Scripts     []string
	Stylesheets []string
}

// Type is the contract every block type implements. Behaviour beyond the
// declarative metadata is opted into through the hook interfaces below.
type Type interface {
	Meta() Meta
	Fields() []Field
}

// Representer adjusts stored data before it is handed to clients.
type Representer interface {
	Represent(ctx context.Context, inst *Instance, data map[string]any) (map[string]any, error)
}

// Cleaner runs type specific validation after field checks. Returning a
// *FieldValidationError lets the caller attach the tree position.
type Cleaner interface {
	Clean(ctx context.Context, inst *Instance, data map[string]any) (map[string]any, error)
}

// InternalConverter transforms cleaned data into its stored form.
type InternalConverter interface {
	ToInternal(ctx context.Context, inst *Instance, data map[string]any) (map[string]any, error)
}

// Releaser frees external resources held by a removed block record.
type Releaser interface {
	Release(ctx context.Context, rec *Record) error
}

// RenderContexter adds entries to the template context of a block.
type RenderContexter interface {
	RenderContext(ctx context.Context, inst *Instance, view map[string]any) error
}

// BaseType is a declarative Type with no hooks. Custom types embed it.
type BaseType struct {
	meta   Meta
	fields []Field
}

func NewType(meta Meta, fields ...Field) BaseType {
	return BaseType{meta: meta, fields: fields}
}

func (t BaseType) Meta() Meta {
	meta := t.meta
	meta.Scripts = slices.Clone(t.meta.Scripts)
	meta.Stylesheets = slices.Clone(t.meta.Stylesheets)
	return meta
}

func (t BaseType) Fields() []Field {
	return slices.Clone(t.fields)
}

func fieldByID(t Type, id string) (Field, bool) {
	for _, f := range t.Fields() {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}
