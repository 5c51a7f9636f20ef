package markdowncmd

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const importMarkdownMessageType = "pageblocks.markdown.import"

// ImportMarkdownCommand imports one markdown file as a page holding a single
// markdown block. Locale defaults to the frontmatter locale, then to the
// default locale.
type ImportMarkdownCommand struct {
	// Path is the markdown file to read.
	Path string `json:"path"`
	// Locale selects the language tree the markdown block is written to.
	Locale string `json:"locale,omitempty"`
}

// Type implements command.Message.
func (ImportMarkdownCommand) Type() string { return importMarkdownMessageType }

// Validate ensures a path is present before handlers execute.
func (cmd ImportMarkdownCommand) Validate() error {
	return validation.ValidateStruct(&cmd,
		validation.Field(&cmd.Path, validation.Required, validation.By(func(value any) error {
			if strings.TrimSpace(value.(string)) == "" {
				return validation.NewError("pageblocks.markdown.import.path_required", "path is required")
			}
			return nil
		})),
	)
}
