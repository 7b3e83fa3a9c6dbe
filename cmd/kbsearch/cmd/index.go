package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/kbsearch/internal/index"
	"github.com/Aman-CERP/kbsearch/internal/output"
	"github.com/Aman-CERP/kbsearch/internal/ui"
	"github.com/Aman-CERP/kbsearch/pkg/kbsearch"
)

type indexOptions struct {
	force  bool
	noTUI  bool
	format string
}

func newIndexCmd(a *app) *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index [name]",
		Short: "Build or update knowledge base indexes",
		Long: `Build or update the index of one knowledge base, or of every enabled
knowledge base when no name is given.

Indexing is incremental: only added, changed and deleted files are processed.
Use --force to discard the index and rebuild it from scratch.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			name := ""
			if len(args) > 0 {
				name = args[0]
			}
			return runIndex(ctx, a, cmd.OutOrStdout(), name, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.force, "force", false, "Discard the existing index and rebuild from scratch")
	cmd.Flags().BoolVar(&opts.noTUI, "no-tui", false, "Disable TUI mode, use plain text output")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	return cmd
}

func runIndex(ctx context.Context, a *app, w io.Writer, name string, opts indexOptions) error {
	format, err := output.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	e, err := a.openEngine()
	if err != nil {
		return err
	}

	req := kbsearch.IndexRequest{Name: name, Force: opts.force}

	// JSON output carries no progress display.
	if format == output.FormatJSON {
		summaries, err := e.Index(ctx, req)
		if werr := output.New(w).IndexSummaries(summaries, format); werr != nil && err == nil {
			err = werr
		}
		return err
	}

	title := name
	if title == "" {
		title = "all enabled knowledge bases"
	}
	renderer := ui.NewRenderer(ui.NewConfig(w,
		ui.WithForcePlain(opts.noTUI),
		ui.WithTitle(title),
	))
	if err := renderer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start progress display: %w", err)
	}

	req.Progress = progressBridge(renderer, name == "")
	summaries, err := e.Index(ctx, req)

	for _, s := range summaries {
		for _, fe := range s.Errors {
			renderer.AddError(ui.ErrorEvent{File: fe.Path, Err: errors.New(fe.Error), IsWarn: true})
		}
		renderer.Complete(completionStats(s))
	}
	_ = renderer.Stop()

	if len(summaries) == 0 && err == nil {
		output.New(w).Warning("No enabled knowledge bases to index. Run 'kbsearch add <name> <path>' to add one.")
	}
	if err != nil {
		slog.Warn("index_failed", slog.String("name", name), slog.String("error", err.Error()))
	}
	return err
}

// progressBridge forwards indexer progress to a renderer. When several
// knowledge bases are built the base name prefixes each message.
func progressBridge(r ui.Renderer, withBase bool) index.ProgressFunc {
	return func(p index.Progress) {
		msg := p.Path
		if withBase {
			if msg == "" {
				msg = p.Base
			} else {
				msg = p.Base + ": " + msg
			}
		}
		r.UpdateProgress(ui.ProgressEvent{
			Stage:       uiStage(p.Stage),
			Current:     p.Current,
			Total:       p.Total,
			CurrentFile: p.Path,
			Message:     msg,
		})
	}
}

func uiStage(s index.Stage) ui.Stage {
	switch s {
	case index.StageScanning:
		return ui.StageScanning
	case index.StageExtracting:
		return ui.StageExtracting
	default:
		return ui.StageWriting
	}
}

func completionStats(s index.Summary) ui.CompletionStats {
	return ui.CompletionStats{
		Base:      s.Base,
		Documents: s.Documents,
		Added:     s.Added,
		Updated:   s.Updated,
		Removed:   s.Removed,
		Unchanged: s.Unchanged,
		Skipped:   s.Skipped,
		Duration:  s.Duration,
		Rebuilt:   s.Rebuilt,
	}
}
