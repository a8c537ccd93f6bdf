package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Earthondev/hanaihang/internal/app"
	dombatch "github.com/Earthondev/hanaihang/internal/domain/batch"
	searchuc "github.com/Earthondev/hanaihang/internal/usecase/search"
)

type importItem struct {
	Path   string `json:"path"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type importOutput struct {
	Items []importItem `json:"items"`
	dombatch.Summary
}

func newImportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Load malls and stores from a YAML or JSON fixture",
		Long: `Import upserts every mall and store in the fixture, recomputing their
search fields. Invalid entries are reported and skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(filepath.Clean(args[0]))
			if err != nil {
				return fmt.Errorf("open fixture: %w", err)
			}
			defer func() { _ = f.Close() }()

			return opts.run(cmd, func(ctx context.Context, a *app.App) error {
				results, err := a.Indexing.Import(ctx, f)
				if err != nil {
					return fmt.Errorf("import: %w", err)
				}
				out := importOutput{Items: make([]importItem, len(results)), Summary: dombatch.Summarize(results)}
				for i, r := range results {
					out.Items[i] = importItem{Path: r.Path(), Status: string(r.Status())}
					if r.Err() != nil {
						out.Items[i].Error = r.Err().Error()
					}
				}
				if err := printJSON(cmd.OutOrStdout(), out); err != nil {
					return err
				}
				if out.Failed > 0 {
					return fmt.Errorf("%d of %d items failed", out.Failed, len(results))
				}
				return nil
			})
		},
	}
}

func newReindexCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Recompute search fields for every mall and store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app.App) error {
				report, err := a.Indexing.Reindex(ctx)
				if err != nil {
					return fmt.Errorf("reindex: %w", err)
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
}

func newInvalidateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate [prefix]",
		Short: "Drop cached search results",
		Long: `Invalidate removes cached search results whose key starts with prefix
(default "search:"). It only reaches a shared cache, i.e. cache.driver: redis.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := searchuc.CachePrefix
			if len(args) == 1 && args[0] != "" {
				prefix = args[0]
			}
			return opts.run(cmd, func(ctx context.Context, a *app.App) error {
				n := a.Search.Invalidate(ctx, prefix)
				return printJSON(cmd.OutOrStdout(), map[string]any{"prefix": prefix, "removed": n})
			})
		},
	}
}
