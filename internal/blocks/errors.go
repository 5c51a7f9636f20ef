package blocks

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrUnknownType              = errors.New("blocks: unknown block type")
	ErrFieldValidation          = errors.New("blocks: field validation failed")
	ErrRenderingUndefined       = errors.New("blocks: rendering undefined")
	ErrInvalidImageData         = errors.New("blocks: invalid image data")
	ErrNotFound                 = errors.New("blocks: not found")
	ErrInvalidType              = errors.New("blocks: invalid block type definition")
	ErrStoreRequired            = errors.New("blocks: store is required")
	ErrRendererRequired         = errors.New("blocks: template renderer is required")
	ErrImageStoreRequired       = errors.New("blocks: image store is required")
	ErrMarkdownRendererRequired = errors.New("blocks: markdown renderer is required")
)

const (
	requiredMessage    = "This field is required"
	duplicateIDMessage = "Duplicate block id"
)

// UnknownTypeError reports a type id the registry cannot resolve. It aborts
// whole operations rather than being surfaced per field.
type UnknownTypeError struct {
	TypeID string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("blocks: unknown block type %q", e.TypeID)
}

func (e *UnknownTypeError) Unwrap() error { return ErrUnknownType }

// FieldValidationError locates a failed field inside a submitted tree. Path
// holds the sibling index at every depth, outermost first.
type FieldValidationError struct {
	Path     []int
	FieldID  string
	Message  string
	Language string
	Err      error
}

func (e *FieldValidationError) Error() string {
	return "B:" + FormatPath(e.Path) + ":" + e.FieldID + ":" + e.Message
}

func (e *FieldValidationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrFieldValidation, e.Err}
	}
	return []error{ErrFieldValidation}
}

// FormatPath renders a positional path as comma joined indexes.
func FormatPath(path []int) string {
	parts := make([]string, len(path))
	for i, idx := range path {
		parts[i] = strconv.Itoa(idx)
	}
	return strings.Join(parts, ",")
}

// RenderingUndefinedError reports a type without a template, or whose
// template the renderer does not know.
type RenderingUndefinedError struct {
	TypeID   string
	Template string
}

func (e *RenderingUndefinedError) Error() string {
	if e.Template != "" {
		return fmt.Sprintf("blocks: template %q of %q not found", e.Template, e.TypeID)
	}
	return fmt.Sprintf("blocks: no template defined for %q", e.TypeID)
}

func (e *RenderingUndefinedError) Unwrap() error { return ErrRenderingUndefined }

type InvalidImageDataError struct {
	Err error
}

func (e *InvalidImageDataError) Error() string {
	if e.Err == nil {
		return "Invalid image data"
	}
	return "Invalid image data: " + e.Err.Error()
}

func (e *InvalidImageDataError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidImageData}
	}
	return []error{ErrInvalidImageData, e.Err}
}

// NotFoundError reports a missing block, or one that exists outside the
// expected page, language or parent scope.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	resource := e.Resource
	if resource == "" {
		resource = "block"
	}
	return fmt.Sprintf("%s %q not found", resource, e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }
