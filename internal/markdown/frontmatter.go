package markdown

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/adrg/frontmatter"
)

// Document is a markdown file split into its frontmatter and body.
type Document struct {
	Path    string
	Title   string
	Slug    string
	Locale  string
	Summary string
	Extra   map[string]any
	Body    string
}

type frontMatter struct {
	Title   string         `yaml:"title"`
	Slug    string         `yaml:"slug"`
	Locale  string         `yaml:"locale"`
	Summary string         `yaml:"summary"`
	Extra   map[string]any `yaml:",inline"`
}

// ParseDocument reads YAML frontmatter followed by a markdown body. Sources
// without frontmatter yield an empty header and the whole source as body.
func ParseDocument(source []byte) (*Document, error) {
	var meta frontMatter
	body, err := frontmatter.Parse(bytes.NewReader(source), &meta)
	if err != nil {
		return nil, fmt.Errorf("markdown: parse frontmatter: %w", err)
	}
	return &Document{
		Title:   strings.TrimSpace(meta.Title),
		Slug:    strings.TrimSpace(meta.Slug),
		Locale:  strings.TrimSpace(meta.Locale),
		Summary: strings.TrimSpace(meta.Summary),
		Extra:   meta.Extra,
		Body:    strings.TrimSpace(string(body)),
	}, nil
}

// LoadDocument reads and parses the file at path.
func LoadDocument(path string) (*Document, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("markdown: read %s: %w", path, err)
	}
	doc, err := ParseDocument(source)
	if err != nil {
		return nil, err
	}
	doc.Path = path
	return doc, nil
}
