package ui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// PlainRenderer writes one line per event with no styling. It is used when
// output is not a terminal, under CI, and with --no-tui.
type PlainRenderer struct {
	mu    sync.Mutex
	out   io.Writer
	title string
}

// NewPlainRenderer returns a PlainRenderer writing to cfg.Output.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	return &PlainRenderer{out: cfg.Output, title: cfg.Title}
}

func (r *PlainRenderer) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintf(r.out, format, args...)
}

// Start prints the header.
func (r *PlainRenderer) Start(context.Context) error {
	if r.title != "" {
		r.printf("Indexing %s\n", r.title)
	}
	return nil
}

// UpdateProgress prints "[TAG] current/total - item", or "[TAG] item" when
// the stage has no total. Events with neither are dropped.
func (r *PlainRenderer) UpdateProgress(event ProgressEvent) {
	item := event.Message
	if item == "" {
		item = event.CurrentFile
	}
	switch {
	case event.Total > 0:
		r.printf("[%s] %d/%d - %s\n", event.Stage.Icon(), event.Current, event.Total, item)
	case item != "":
		r.printf("[%s] %s\n", event.Stage.Icon(), item)
	}
}

// AddError prints the failure prefixed by ERROR or WARN.
func (r *PlainRenderer) AddError(event ErrorEvent) {
	level := "ERROR"
	if event.IsWarn {
		level = "WARN"
	}
	if event.File == "" {
		r.printf("%s: %v\n", level, event.Err)
		return
	}
	r.printf("%s: %s: %v\n", level, event.File, event.Err)
}

// Complete prints the build summary of one knowledge base.
func (r *PlainRenderer) Complete(stats CompletionStats) {
	counts := []string{
		fmt.Sprintf("%d added", stats.Added),
		fmt.Sprintf("%d updated", stats.Updated),
		fmt.Sprintf("%d removed", stats.Removed),
		fmt.Sprintf("%d unchanged", stats.Unchanged),
	}
	if stats.Skipped > 0 {
		counts = append(counts, fmt.Sprintf("%d skipped", stats.Skipped))
	}
	r.printf("Complete: %s: %d documents in %s (%s)\n",
		stats.Base, stats.Documents, stats.Duration.Round(100*time.Millisecond), strings.Join(counts, ", "))
	if stats.Rebuilt {
		r.printf("Note: the previous index was corrupt and has been rebuilt\n")
	}
}

// Stop is a no-op.
func (r *PlainRenderer) Stop() error {
	return nil
}
