package cmd

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	kberrors "github.com/Aman-CERP/kbsearch/internal/errors"
	"github.com/Aman-CERP/kbsearch/internal/output"
	"github.com/Aman-CERP/kbsearch/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	bases       []string
	limit       int
	format      string
	withContent bool
	snippet     bool
	highlights  bool
	dirs        []string
	threshold   float64
}

func newSearchCmd(a *app) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search knowledge bases",
		Long: `Search enabled knowledge bases, or only those named with --kb.

Results from every searched knowledge base are ranked together by BM25 score.

Examples:
  kbsearch search "connection pool timeout"
  kbsearch search "搜索引擎" --kb wiki --limit 5
  kbsearch search "rollout" --dirs runbooks/ --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("limit") && opts.limit <= 0 {
				return kberrors.New(kberrors.ErrCodeInvalidInput, "--limit must be a positive number", nil)
			}
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), a, cmd.OutOrStdout(), query, opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.bases, "kb", "k", nil, "Knowledge bases to search (repeatable, default all enabled)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.withContent, "with-content", false, "Include the full document text")
	cmd.Flags().BoolVar(&opts.snippet, "snippet", true, "Show a snippet around the first match")
	cmd.Flags().BoolVar(&opts.highlights, "highlights", false, "Show up to 3 passages, one per matched query term")
	cmd.Flags().StringSliceVar(&opts.dirs, "dirs", nil, "Keep results whose path contains one of these directories")
	cmd.Flags().Float64Var(&opts.threshold, "threshold", 0, "Drop results scoring below this value (default from config)")
	return cmd
}

func runSearch(ctx context.Context, a *app, w io.Writer, query string, opts searchOptions) error {
	format, err := output.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	e, err := a.openEngine()
	if err != nil {
		return err
	}

	limit := opts.limit
	if limit == 0 {
		limit = e.Config().Search.DefaultLimit
	}

	slog.Info("search_started", slog.String("query", query), slog.Int("limit", limit))
	resp, err := e.Search(ctx, search.Request{
		Query:          query,
		Bases:          opts.bases,
		Limit:          limit,
		IncludeSnippet: opts.snippet,
		Highlights:     opts.highlights,
		WithContent:    opts.withContent,
		Dirs:           opts.dirs,
		Threshold:      opts.threshold,
	})
	if err != nil {
		return err
	}
	return output.New(w).SearchResults(resp, format)
}
