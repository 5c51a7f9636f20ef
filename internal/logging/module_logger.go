package logging

import (
	"context"
	"maps"
	"strings"

	"github.com/goliatone/go-pageblocks/pkg/interfaces"
)

const (
	RootModule     = "pageblocks"
	BlocksModule   = "pageblocks.blocks"
	PagesModule    = "pageblocks.pages"
	MediaModule    = "pageblocks.media"
	CommandsModule = "pageblocks.commands"
	MarkdownModule = "pageblocks.markdown"
)

// ModuleLogger resolves the logger for module from provider and tags it with
// a "module" field. A nil provider yields a no-op logger.
func ModuleLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	module = strings.TrimSpace(module)
	if module == "" {
		module = RootModule
	}

	var logger interfaces.Logger = noopLogger{}
	if provider != nil {
		if resolved := provider.GetLogger(module); resolved != nil {
			logger = resolved
		}
	}
	return WithFields(logger, map[string]any{"module": module})
}

// WithFields attaches fields when logger supports interfaces.FieldsLogger and
// returns logger unchanged otherwise.
func WithFields(logger interfaces.Logger, fields map[string]any) interfaces.Logger {
	if logger == nil || len(fields) == 0 {
		return logger
	}
	if fl, ok := logger.(interfaces.FieldsLogger); ok {
		return fl.WithFields(maps.Clone(fields))
	}
	return logger
}

// WithPage scopes logger to a page and, when set, a language.
func WithPage(logger interfaces.Logger, pageID, language string) interfaces.Logger {
	fields := map[string]any{}
	if pageID != "" {
		fields["page_id"] = pageID
	}
	if language != "" {
		fields["language"] = language
	}
	return WithFields(logger, fields)
}

// NoOp returns a logger that discards everything.
func NoOp() interfaces.Logger {
	return noopLogger{}
}

type noopLogger struct{}

var (
	_ interfaces.Logger       = noopLogger{}
	_ interfaces.FieldsLogger = noopLogger{}
)

func (noopLogger) Trace(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Fatal(string, ...any) {}

func (n noopLogger) WithFields(map[string]any) interfaces.Logger   { return n }
func (n noopLogger) WithContext(context.Context) interfaces.Logger { return n }
