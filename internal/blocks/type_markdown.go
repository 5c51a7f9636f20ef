package blocks

import (
	"context"
	"html/template"
)

// MarkdownRenderer converts markdown source to HTML.
type MarkdownRenderer interface {
	ToHTML(source string) (string, error)
}

// MarkdownType stores markdown source and renders it to HTML at render time.
type MarkdownType struct {
	BaseType
	md MarkdownRenderer
}

var _ RenderContexter = (*MarkdownType)(nil)

func NewMarkdownType(md MarkdownRenderer) *MarkdownType {
	return &MarkdownType{
		BaseType: NewType(Meta{
			ID:          TypeMarkdown,
			Name:        "Markdown",
			Description: "Content written in markdown",
			Template:    "blocks/markdown.html",
		},
			Field{ID: "markdown", Label: "Content", Kind: KindMarkdown, Required: true, MultiLingual: true},
			Field{ID: "class", Label: "Class", Kind: KindText},
		),
		md: md,
	}
}

// RenderContext exposes the converted markup as "html".
func (t *MarkdownType) RenderContext(_ context.Context, _ *Instance, view map[string]any) error {
	if t.md == nil {
		return ErrMarkdownRendererRequired
	}
	block, _ := view["block"].(map[string]any)
	source, _ := block["markdown"].(string)
	markup, err := t.md.ToHTML(source)
	if err != nil {
		return err
	}
	view["html"] = template.HTML(markup)
	return nil
}
