package interfaces

import "io"

// TemplateRenderer renders a named template with the supplied data. When out
// writers are given the markup is also written to them.
type TemplateRenderer interface {
	Render(name string, data any, out ...io.Writer) (string, error)
}
