package ui

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// BaseRow is one knowledge base in a status table.
type BaseRow struct {
	Name        string
	Enabled     bool
	Documents   int
	Path        string
	LastIndexed *time.Time
}

// StatusInfo summarizes the registered knowledge bases.
type StatusInfo struct {
	Total     int
	Enabled   int
	Disabled  int
	Documents int
	Bases     []BaseRow
}

// StatusRenderer displays knowledge base status.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
	now    func() time.Time
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{
		out:    out,
		styles: GetStyles(noColor || DetectNoColor()),
		now:    time.Now,
	}
}

// Render displays the status table.
func (r *StatusRenderer) Render(info StatusInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("Knowledge Bases"))

	if len(info.Bases) == 0 {
		_, _ = fmt.Fprintln(r.out, "  No knowledge bases registered. Run 'kbsearch add <name> <path>' to add one.")
		return nil
	}

	nameWidth := len("NAME")
	for _, b := range info.Bases {
		nameWidth = max(nameWidth, len(b.Name))
	}

	_, _ = fmt.Fprintf(r.out, "  %-*s  %-8s  %9s  %-16s  %s\n", nameWidth, "NAME", "STATE", "DOCUMENTS", "LAST INDEXED", "PATH")
	for _, b := range info.Bases {
		last := "never"
		if b.LastIndexed != nil {
			last = r.formatTime(*b.LastIndexed)
		}
		_, _ = fmt.Fprintf(r.out, "  %-*s  %s  %9d  %-16s  %s\n",
			nameWidth, b.Name, r.renderState(b.Enabled), b.Documents, last, b.Path)
	}

	_, _ = fmt.Fprintln(r.out)
	_, _ = fmt.Fprintf(r.out, "  %d knowledge bases (%d enabled, %d disabled), %d documents\n",
		info.Total, info.Enabled, info.Disabled, info.Documents)
	return nil
}

// renderState pads before styling so ANSI codes do not break alignment.
func (r *StatusRenderer) renderState(enabled bool) string {
	if enabled {
		return r.styles.Success.Render(fmt.Sprintf("%-8s", "enabled"))
	}
	return r.styles.Warning.Render(fmt.Sprintf("%-8s", "disabled"))
}

// formatTime formats a time relative to now.
func (r *StatusRenderer) formatTime(t time.Time) string {
	diff := r.now().Sub(t)

	plural := func(n int, unit string) string {
		if n == 1 {
			return "1 " + unit + " ago"
		}
		return fmt.Sprintf("%d %ss ago", n, unit)
	}

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour")
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day")
	default:
		return t.Local().Format("2006-01-02 15:04")
	}
}

// FormatBytes formats bytes to human-readable format.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// Truncate shortens s to n runes with a trailing ellipsis.
func Truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}
