package blocks

import (
	"context"
	"fmt"
	"strings"
)

// Scripts collects script references depth first, parents before children,
// keeping the first occurrence of each exact string.
func (p *Processor) Scripts(ctx context.Context, records []*Record) ([]string, error) {
	return p.collect(ctx, records, (*Instance).Scripts)
}

func (p *Processor) Stylesheets(ctx context.Context, records []*Record) ([]string, error) {
	return p.collect(ctx, records, (*Instance).Stylesheets)
}

// ScriptTags renders Scripts as HTML, wrapping bare URLs in script tags.
func (p *Processor) ScriptTags(ctx context.Context, records []*Record) (string, error) {
	scripts, err := p.Scripts(ctx, records)
	if err != nil {
		return "", err
	}
	return joinTags(scripts, `<script type="text/javascript" src="%s"></script>`), nil
}

// StylesheetTags renders Stylesheets as HTML, wrapping bare URLs in link tags.
func (p *Processor) StylesheetTags(ctx context.Context, records []*Record) (string, error) {
	sheets, err := p.Stylesheets(ctx, records)
	if err != nil {
		return "", err
	}
	return joinTags(sheets, `<link href="%s" rel="stylesheet" />`), nil
}

func (p *Processor) collect(ctx context.Context, records []*Record, assets func(*Instance) []string) ([]string, error) {
	var out []string
	seen := map[string]bool{}
	var walk func([]*Record) error
	walk = func(level []*Record) error {
		for _, rec := range sortByIndex(level) {
			inst, err := p.FromRecord(rec)
			if err != nil {
				return err
			}
			for _, ref := range assets(inst) {
				if ref == "" || seen[ref] {
					continue
				}
				seen[ref] = true
				out = append(out, ref)
			}
			if !inst.Type.Meta().Container {
				continue
			}
			children, err := p.children(ctx, rec)
			if err != nil {
				return err
			}
			if err := walk(children); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(records); err != nil {
		return nil, err
	}
	return out, nil
}

func joinTags(refs []string, wrapper string) string {
	tags := make([]string, 0, len(refs))
	for _, ref := range refs {
		if !strings.HasPrefix(ref, "<") {
			ref = fmt.Sprintf(wrapper, ref)
		}
		tags = append(tags, ref)
	}
	return strings.Join(tags, "\n")
}
