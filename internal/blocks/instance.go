package blocks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/goliatone/go-pageblocks/internal/validation"
)

// Submission is one node of a tree posted by an editor. Nested nodes live in
// the data of blockstream fields.
type Submission struct {
	ID       *uuid.UUID                `json:"id,omitempty"`
	Type     string                    `json:"type"`
	Data     map[string]any            `json:"data"`
	I18NData map[string]map[string]any `json:"i18n_data,omitempty"`
}

// UnmarshalJSON accepts empty or null ids as "new block".
func (s *Submission) UnmarshalJSON(raw []byte) error {
	var wire struct {
		ID       *string                   `json:"id"`
		Type     string                    `json:"type"`
		Data     map[string]any            `json:"data"`
		I18NData map[string]map[string]any `json:"i18n_data"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return err
	}
	*s = Submission{Type: wire.Type, Data: wire.Data, I18NData: wire.I18NData}
	if wire.ID != nil && *wire.ID != "" {
		id, err := uuid.Parse(*wire.ID)
		if err != nil {
			return fmt.Errorf("blocks: invalid block id %q: %w", *wire.ID, err)
		}
		s.ID = &id
	}
	return nil
}

// DecodeSubmissions reads a nested block list out of a data payload. It
// accepts decoded JSON, typed submissions and representations.
func DecodeSubmissions(value any) ([]Submission, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []Submission:
		return v, nil
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out []Submission
	decoder := json.NewDecoder(bytes.NewReader(encoded))
	if err := decoder.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// Representation is the client facing view of a stored block.
type Representation struct {
	ID       uuid.UUID                 `json:"id"`
	Type     string                    `json:"type"`
	Index    int                       `json:"index"`
	ParentID *uuid.UUID                `json:"parent_id,omitempty"`
	Data     map[string]any            `json:"data"`
	I18NData map[string]map[string]any `json:"i18n_data,omitempty"`
}

// Instance binds a Type to one node, either submitted or loaded.
type Instance struct {
	Type   Type
	ID     *uuid.UUID
	Data   map[string]any
	I18N   map[string]map[string]any
	Record *Record

	proc *Processor
}

func (i *Instance) Processor() *Processor { return i.proc }

// Represent projects the instance for clients. Container fields are replaced
// by the representation of the stored children.
func (i *Instance) Represent(ctx context.Context) (Representation, error) {
	data, err := i.representData(ctx, true)
	if err != nil {
		return Representation{}, err
	}
	rep := Representation{
		Type:     i.Type.Meta().ID,
		Data:     data,
		I18NData: cloneI18N(i.I18N),
	}
	if i.ID != nil {
		rep.ID = *i.ID
	}
	if i.Record != nil {
		rep.Index = i.Record.Index
		rep.ParentID = i.Record.ParentID
	}
	return rep, nil
}

func (i *Instance) representData(ctx context.Context, withChildren bool) (map[string]any, error) {
	data := maps.Clone(i.Data)
	if data == nil {
		data = map[string]any{}
	}
	if i.Type.Meta().Container {
		for _, f := range i.Type.Fields() {
			if f.Kind != KindBlockStream {
				continue
			}
			if !withChildren || i.Record == nil {
				delete(data, f.ID)
				continue
			}
			children, err := i.proc.children(ctx, i.Record)
			if err != nil {
				return nil, err
			}
			reps, err := i.proc.ListToRepresentation(ctx, children)
			if err != nil {
				return nil, err
			}
			data[f.ID] = reps
		}
	}
	if r, ok := i.Type.(Representer); ok {
		return r.Represent(ctx, i, data)
	}
	return data, nil
}

// Clean validates the instance at path and returns its cleaned data. Nested
// block lists are validated recursively and returned as []Submission. Clean
// stops at the first failure.
func (i *Instance) Clean(ctx context.Context, path []int) (map[string]any, error) {
	data := maps.Clone(i.Data)
	if data == nil {
		data = map[string]any{}
	}
	fail := func(fieldID, message string, cause error) error {
		return &FieldValidationError{Path: slices.Clone(path), FieldID: fieldID, Message: message, Err: cause}
	}

	for _, f := range i.Type.Fields() {
		value := data[f.ID]
		if f.Required && isEmptyValue(value) {
			return nil, fail(f.ID, requiredMessage, nil)
		}
		if value == nil {
			continue
		}
		if err := validation.ValidatePayload(f.JSONSchema(), value); err != nil {
			return nil, fail(f.ID, validation.FirstMessage(err), err)
		}
		if f.Kind != KindBlockStream {
			continue
		}

		children, err := DecodeSubmissions(value)
		if err != nil {
			return nil, fail(f.ID, "Invalid block list", err)
		}
		for idx, child := range children {
			if f.allows(i.proc.registry, child.Type) {
				continue
			}
			if _, err := i.proc.registry.Resolve(child.Type); err != nil {
				return nil, err
			}
			return nil, &FieldValidationError{
				Path:    append(slices.Clone(path), idx),
				FieldID: "type",
				Message: fmt.Sprintf("Block type %s is not allowed here", child.Type),
			}
		}
		cleaned, err := i.proc.ValidateList(ctx, children, path)
		if err != nil {
			return nil, err
		}
		data[f.ID] = cleaned
	}

	if c, ok := i.Type.(Cleaner); ok {
		cleaned, err := c.Clean(ctx, i, data)
		if err != nil {
			var fieldErr *FieldValidationError
			if errors.As(err, &fieldErr) && fieldErr.Path == nil {
				fieldErr.Path = slices.Clone(path)
			}
			return nil, err
		}
		data = cleaned
	}

	overrides, err := i.cleanI18N(path)
	if err != nil {
		return nil, err
	}
	i.I18N = overrides
	return data, nil
}

// cleanI18N validates each language's overrides on their own. Required is not
// enforced since an empty override falls back to the primary value.
func (i *Instance) cleanI18N(path []int) (map[string]map[string]any, error) {
	if len(i.I18N) == 0 {
		return nil, nil
	}
	out := make(map[string]map[string]any, len(i.I18N))
	for _, lang := range slices.Sorted(maps.Keys(i.I18N)) {
		overrides := i.I18N[lang]
		for _, key := range slices.Sorted(maps.Keys(overrides)) {
			fail := func(message string, cause error) error {
				return &FieldValidationError{Path: slices.Clone(path), FieldID: key, Message: message, Language: lang, Err: cause}
			}
			f, ok := fieldByID(i.Type, key)
			if !ok {
				return nil, fail("Unknown field", nil)
			}
			if !f.MultiLingual || f.Kind == KindBlockStream {
				return nil, fail("This field cannot be translated", nil)
			}
			if value := overrides[key]; value != nil {
				if err := validation.ValidatePayload(f.JSONSchema(), value); err != nil {
					return nil, fail(validation.FirstMessage(err), err)
				}
			}
		}
		if len(overrides) > 0 {
			out[lang] = maps.Clone(overrides)
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// Persist writes the instance at target. Blockstream children are written
// first under this instance's id, then the instance itself. The result holds
// this record followed by every descendant.
func (i *Instance) Persist(ctx context.Context, target SaveTarget) ([]*Record, error) {
	if i.proc == nil || i.proc.store == nil {
		return nil, ErrStoreRequired
	}
	id := i.proc.newID()
	if i.ID != nil {
		id = *i.ID
	}
	i.ID = &id

	data := maps.Clone(i.Data)
	if data == nil {
		data = map[string]any{}
	}

	var descendants []*Record
	for _, f := range i.Type.Fields() {
		if f.Kind != KindBlockStream {
			continue
		}
		children, err := DecodeSubmissions(data[f.ID])
		if err != nil {
			return nil, fmt.Errorf("blocks: decode %s.%s: %w", i.Type.Meta().ID, f.ID, err)
		}
		delete(data, f.ID)
		rows, err := i.proc.saveList(ctx, target.under(id), children)
		if err != nil {
			return nil, err
		}
		descendants = append(descendants, rows...)
	}

	if conv, ok := i.Type.(InternalConverter); ok {
		converted, err := conv.ToInternal(ctx, i, data)
		if err != nil {
			return nil, err
		}
		data = converted
	}

	rec := &Record{
		ID:       id,
		PageID:   target.PageID,
		Language: target.Language,
		ParentID: target.ParentID,
		Index:    target.Index,
		Type:     i.Type.Meta().ID,
		Data:     data,
		I18NData: cloneI18N(i.I18N),
	}
	if i.Record != nil {
		rec.CreatedAt = i.Record.CreatedAt
	}
	saved, err := i.proc.store.Upsert(ctx, rec)
	if err != nil {
		return nil, err
	}
	i.Record = saved
	i.Data = saved.Data
	return append([]*Record{saved}, descendants...), nil
}

// templateLookup is implemented by renderers that can tell whether a template
// exists before executing it.
type templateLookup interface {
	HasTemplate(name string) bool
}

// Render renders a stored instance for locale.
func (i *Instance) Render(ctx context.Context, locale string) (string, error) {
	meta := i.Type.Meta()
	if meta.Template == "" {
		return "", &RenderingUndefinedError{TypeID: meta.ID}
	}
	if i.proc == nil || i.proc.renderer == nil {
		return "", ErrRendererRequired
	}
	if lookup, ok := i.proc.renderer.(templateLookup); ok && !lookup.HasTemplate(meta.Template) {
		return "", &RenderingUndefinedError{TypeID: meta.ID, Template: meta.Template}
	}
	view, err := i.RenderContext(ctx, locale)
	if err != nil {
		return "", err
	}
	return i.proc.renderer.Render(meta.Template, view)
}

// RenderContext builds the template data: "block" holds the representation
// merged with the locale overrides, "instance" the record, and containers get
// their rendered children under "children".
func (i *Instance) RenderContext(ctx context.Context, locale string) (map[string]any, error) {
	data, err := i.representData(ctx, false)
	if err != nil {
		return nil, err
	}
	for key, value := range i.I18N[locale] {
		if !isEmptyValue(value) {
			data[key] = value
		}
	}
	view := map[string]any{
		"block":    data,
		"instance": i.Record,
		"locale":   locale,
	}
	if i.Type.Meta().Container && i.Record != nil {
		children, err := i.proc.children(ctx, i.Record)
		if err != nil {
			return nil, err
		}
		markup, err := i.proc.Render(ctx, children, locale)
		if err != nil {
			return nil, err
		}
		view["children"] = template.HTML(markup)
	}
	if rc, ok := i.Type.(RenderContexter); ok {
		if err := rc.RenderContext(ctx, i, view); err != nil {
			return nil, err
		}
	}
	return view, nil
}

func (i *Instance) Scripts() []string     { return i.Type.Meta().Scripts }
func (i *Instance) Stylesheets() []string { return i.Type.Meta().Stylesheets }

func cloneI18N(in map[string]map[string]any) map[string]map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]map[string]any, len(in))
	for lang, overrides := range in {
		out[lang] = maps.Clone(overrides)
	}
	return out
}
