package blocks

const (
	TypeHTML      = "HTMLBlock"
	TypeImage     = "ImageBlock"
	TypeContainer = "ContainerBlock"
	TypeMarkdown  = "MarkdownBlock"
)

// DefaultTypeIDs is the allow-list used when none is configured.
func DefaultTypeIDs() []string {
	return []string{TypeHTML, TypeImage, TypeContainer, TypeMarkdown}
}

// DefaultTypes builds the built-in types. images and md may be nil, in which
// case saving images or rendering markdown fails at use time.
func DefaultTypes(images ImageStore, md MarkdownRenderer) []Type {
	return []Type{
		NewHTMLType(),
		NewImageType(images),
		NewContainerType(),
		NewMarkdownType(md),
	}
}

func NewHTMLType() BaseType {
	return NewType(Meta{
		ID:          TypeHTML,
		Name:        "HTML",
		Description: "Raw HTML content",
		Template:    "blocks/html.html",
	}, Field{
		ID:           "html",
		Label:        "Content",
		Kind:         KindHTML,
		Required:     true,
		MultiLingual: true,
		Class:        "html",
	})
}

// NewContainerType holds an ordered list of nested blocks, for layouts such
// as columns. Any available type may be nested.
func NewContainerType(allowed ...string) BaseType {
	return NewType(Meta{
		ID:          TypeContainer,
		Name:        "Container",
		Description: "A container that contains other blocks",
		Template:    "blocks/container.html",
		Container:   true,
	},
		Field{ID: "class", Label: "Class", Kind: KindText},
		Field{ID: "blocks", Label: "Blocks", Kind: KindBlockStream, Required: true, BlockTypes: allowed},
	)
}
