package blocks

import (
	"slices"
	"strings"

	"github.com/goliatone/go-pageblocks/pkg/interfaces"
)

// FieldKind is the editor input a field is edited with.
type FieldKind string

const (
	KindText        FieldKind = "text"
	KindTextarea    FieldKind = "textarea"
	KindHTML        FieldKind = "html"
	KindMarkdown    FieldKind = "markdown"
	KindImage       FieldKind = "image"
	KindBlockStream FieldKind = "blockstream"
)

// Field declares one entry of a block type's data payload.
type Field struct {
	ID           string
	Label        string
	Kind         FieldKind
	Required     bool
	MultiLingual bool
	Class        string
	// BlockTypes restricts which types may be nested in a blockstream field.
	// Empty means every available type.
	BlockTypes []string
}

// FieldDefinition is the client facing projection of a Field.
type FieldDefinition struct {
	Required     bool      `json:"required"`
	InputType    FieldKind `json:"input_type"`
	MultiLingual bool      `json:"multi_lingual"`
	Label        string    `json:"label"`
	Class        string    `json:"class"`
	Initial      any       `json:"initial,omitempty"`
	BlockTypes   []string  `json:"block_types,omitempty"`
}

// TypeResolver is the registry surface fields need to describe nested
// block lists.
type TypeResolver interface {
	Resolve(id string) (Type, error)
	AvailableIDs() []string
}

// Describe projects the field for an editor schema. Nested type ids that do
// not resolve are logged and skipped.
func (f Field) Describe(resolver TypeResolver, logger interfaces.Logger) FieldDefinition {
	def := FieldDefinition{
		Required:     f.Required,
		InputType:    f.Kind,
		MultiLingual: f.MultiLingual,
		Label:        f.Label,
		Class:        f.Class,
	}
	if strings.TrimSpace(def.Label) == "" {
		def.Label = f.ID
	}
	if f.Kind != KindBlockStream {
		return def
	}

	def.Initial = []any{}
	def.BlockTypes = []string{}
	if resolver == nil {
		def.BlockTypes = append(def.BlockTypes, f.BlockTypes...)
		return def
	}
	for _, id := range f.allowedTypes(resolver) {
		if _, err := resolver.Resolve(id); err != nil {
			if logger != nil {
				logger.Warn("blocks.field.describe.unresolved_type", "field", f.ID, "type", id, "error", err)
			}
			continue
		}
		def.BlockTypes = append(def.BlockTypes, id)
	}
	return def
}

func (f Field) allowedTypes(resolver TypeResolver) []string {
	if len(f.BlockTypes) > 0 {
		return f.BlockTypes
	}
	if resolver == nil {
		return nil
	}
	return resolver.AvailableIDs()
}

func (f Field) allows(resolver TypeResolver, typeID string) bool {
	return slices.Contains(f.allowedTypes(resolver), typeID)
}

// JSONSchema is the shape a submitted value must have. Null is accepted for
// every kind; emptiness is checked separately through Required.
func (f Field) JSONSchema() map[string]any {
	if f.Kind == KindBlockStream {
		return map[string]any{
			"type": []any{"array", "null"},
			"items": map[string]any{
				"type":     "object",
				"required": []any{"type"},
				"properties": map[string]any{
					"type": map[string]any{"type": "string", "minLength": 1},
					"data": map[string]any{"type": []any{"object", "null"}},
				},
			},
		}
	}
	return map[string]any{"type": []any{"string", "null"}}
}

func isEmptyValue(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case []Submission:
		return len(v) == 0
	case []map[string]any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	}
	return false
}
