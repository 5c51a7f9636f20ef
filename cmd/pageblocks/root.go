package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-pageblocks"
	"github.com/goliatone/go-pageblocks/internal/blocks"
	markdowncmd "github.com/goliatone/go-pageblocks/internal/commands/markdown"
	"github.com/goliatone/go-pageblocks/internal/markdown"
)

type cliOptions struct {
	configPath string
	locale     string
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}
	root := &cobra.Command{
		Use:           "pageblocks",
		Short:         "Manage pages built from typed content blocks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML configuration file")

	root.AddCommand(
		newSchemaCmd(opts),
		newImportCmd(opts),
		newSaveCmd(opts),
		newRenderCmd(opts),
		newDeleteCmd(opts),
	)
	return root
}

func openModule(ctx context.Context, opts *cliOptions) (*pageblocks.Module, error) {
	cfg, err := pageblocks.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	return pageblocks.New(ctx, cfg)
}

func withModule(opts *cliOptions, fn func(cmd *cobra.Command, module *pageblocks.Module, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		module, err := openModule(cmd.Context(), opts)
		if err != nil {
			return err
		}
		defer module.Close()
		return fn(cmd, module, args)
	}
}

func newSchemaCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the available block types as JSON",
		Args:  cobra.NoArgs,
		RunE: withModule(opts, func(cmd *cobra.Command, module *pageblocks.Module, _ []string) error {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(module.Schema())
		}),
	}
}

func newImportCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a markdown file as a page",
		Args:  cobra.ExactArgs(1),
		RunE: withModule(opts, func(cmd *cobra.Command, module *pageblocks.Module, args []string) error {
			path := args[0]
			err := module.ImportMarkdown(cmd.Context(), pageblocks.ImportMarkdownCommand{Path: path, Locale: opts.locale})
			if err != nil {
				return err
			}
			doc, err := markdown.LoadDocument(path)
			if err != nil {
				return err
			}
			slug, err := markdowncmd.DocumentSlug(doc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s\n", slug)
			return nil
		}),
	}
	cmd.Flags().StringVar(&opts.locale, "locale", "", "language tree to write (defaults to frontmatter, then default locale)")
	return cmd
}

func newSaveCmd(opts *cliOptions) *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "save <slug> <tree.json>",
		Short: "Save a page from a JSON block tree",
		Long: `Save a page from a JSON file. The file holds either an object mapping
languages to block lists, or a single block list written to --locale.`,
		Args: cobra.ExactArgs(2),
		RunE: withModule(opts, func(cmd *cobra.Command, module *pageblocks.Module, args []string) error {
			slug := args[0]
			raw, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			save, err := saveCommand(cmd.Context(), module, slug, raw, opts.locale)
			if err != nil {
				return err
			}
			if title != "" {
				save.Title[save.Locale] = title
			}
			if err := module.SavePage(cmd.Context(), save); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", slug)
			return nil
		}),
	}
	cmd.Flags().StringVar(&opts.locale, "locale", "", "language of a single block list (defaults to the default locale)")
	cmd.Flags().StringVar(&title, "title", "", "page title in --locale")
	return cmd
}

// saveCommand builds the save for slug. Languages the file does not mention
// keep their stored trees.
func saveCommand(ctx context.Context, module *pageblocks.Module, slug string, raw []byte, locale string) (pageblocks.SavePageCommand, error) {
	svc := module.Pages()
	if locale == "" {
		locale = svc.DefaultLocale()
	}
	save := pageblocks.SavePageCommand{
		Slug:   slug,
		Locale: locale,
		Title:  map[string]string{},
		Blocks: map[string][]pageblocks.Submission{},
	}

	var byLanguage map[string][]pageblocks.Submission
	if err := json.Unmarshal(raw, &byLanguage); err != nil {
		var list []pageblocks.Submission
		if listErr := json.Unmarshal(raw, &list); listErr != nil {
			return save, fmt.Errorf("decode block tree: %w", err)
		}
		byLanguage = map[string][]pageblocks.Submission{locale: list}
	}

	page, err := svc.GetBySlug(ctx, slug)
	switch {
	case err == nil:
		save.ID = &page.ID
		for lang, value := range page.Title {
			save.Title[lang] = value
		}
		current, err := svc.BlocksByLanguage(ctx, page.ID)
		if err != nil {
			return save, err
		}
		for lang, reps := range current {
			subs, err := blocks.DecodeSubmissions(reps)
			if err != nil {
				return save, err
			}
			save.Blocks[lang] = subs
		}
	case !errors.Is(err, pageblocks.ErrPageNotFound):
		return save, err
	}

	for lang, subs := range byLanguage {
		save.Blocks[lang] = subs
	}
	return save, nil
}

func newRenderCmd(opts *cliOptions) *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "render <slug>",
		Short: "Render a page to HTML",
		Args:  cobra.ExactArgs(1),
		RunE: withModule(opts, func(cmd *cobra.Command, module *pageblocks.Module, args []string) error {
			rendered, err := module.RenderBySlug(cmd.Context(), args[0], opts.locale)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if full {
				fmt.Fprint(out, rendered.Stylesheets)
			}
			fmt.Fprintln(out, rendered.Markup)
			if full {
				fmt.Fprint(out, rendered.Scripts)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&opts.locale, "locale", "", "locale to render (defaults to the default locale)")
	cmd.Flags().BoolVar(&full, "full", false, "include stylesheet and script tags")
	return cmd
}

func newDeleteCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <slug>",
		Short: "Delete a page and all of its blocks",
		Args:  cobra.ExactArgs(1),
		RunE: withModule(opts, func(cmd *cobra.Command, module *pageblocks.Module, args []string) error {
			page, err := module.Pages().GetBySlug(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := module.DeletePage(cmd.Context(), page.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		}),
	}
}
