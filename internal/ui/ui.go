// Package ui renders index build progress and knowledge base status in the
// terminal.
package ui

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

// Stage represents an index build stage.
type Stage int

const (
	// StageScanning walks the knowledge base directory.
	StageScanning Stage = iota
	// StageExtracting extracts and tokenizes changed files.
	StageExtracting
	// StageWriting persists the index.
	StageWriting
	// StageComplete indicates the build finished.
	StageComplete
)

// String returns the stage name shown in the TUI.
func (s Stage) String() string {
	switch s {
	case StageScanning:
		return "Scanning"
	case StageExtracting:
		return "Extracting"
	case StageWriting:
		return "Writing"
	case StageComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// Icon returns the bracketed tag used by the plain renderer.
func (s Stage) Icon() string {
	switch s {
	case StageScanning:
		return "SCAN"
	case StageExtracting:
		return "EXTRACT"
	case StageWriting:
		return "WRITE"
	case StageComplete:
		return "DONE"
	default:
		return "???"
	}
}

// ProgressEvent reports how far a stage has advanced.
type ProgressEvent struct {
	Stage       Stage
	Current     int
	Total       int
	CurrentFile string
	Message     string
}

// ErrorEvent represents a file that failed during a build.
type ErrorEvent struct {
	File   string
	Err    error
	IsWarn bool
}

// CompletionStats summarizes a finished build of one knowledge base.
type CompletionStats struct {
	Base      string
	Documents int
	Added     int
	Updated   int
	Removed   int
	Unchanged int
	Skipped   int
	Duration  time.Duration
	// Rebuilt is set when a corrupt index was rebuilt from scratch.
	Rebuilt bool
}

// Renderer displays the progress of one index command. Complete may be
// called once per knowledge base; Stop is called once at the end.
type Renderer interface {
	Start(ctx context.Context) error
	UpdateProgress(event ProgressEvent)
	AddError(event ErrorEvent)
	Complete(stats CompletionStats)
	Stop() error
}

// Config selects and configures a Renderer.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
	// Title names what is being indexed in the header line.
	Title string
}

// ConfigOption sets one Config field.
type ConfigOption func(*Config)

// WithForcePlain disables the TUI.
func WithForcePlain(force bool) ConfigOption {
	return func(c *Config) {
		c.ForcePlain = force
	}
}

// WithNoColor strips ANSI styling.
func WithNoColor(noColor bool) ConfigOption {
	return func(c *Config) {
		c.NoColor = noColor
	}
}

// WithTitle sets the header title.
func WithTitle(title string) ConfigOption {
	return func(c *Config) {
		c.Title = title
	}
}

// NewConfig applies opts over a Config writing to output.
func NewConfig(output io.Writer, opts ...ConfigOption) Config {
	cfg := Config{Output: output}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// NewRenderer returns a TUI renderer for interactive terminals and a plain
// text renderer for CI, pipes, or when plain output is forced.
func NewRenderer(cfg Config) Renderer {
	if cfg.ForcePlain || !IsTTY(cfg.Output) || DetectCI() {
		return NewPlainRenderer(cfg)
	}

	tui, err := NewTUIRenderer(cfg)
	if err != nil {
		return NewPlainRenderer(cfg)
	}
	return tui
}

// IsTTY reports whether w is an interactive terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// DetectNoColor reports whether NO_COLOR is present in the environment.
func DetectNoColor() bool {
	return envSet("NO_COLOR")
}

// ciEnvVars are set by common CI systems.
var ciEnvVars = []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS", "BUILDKITE"}

// DetectCI reports whether the process runs under a CI system.
func DetectCI() bool {
	for _, name := range ciEnvVars {
		if envSet(name) {
			return true
		}
	}
	return false
}

func envSet(name string) bool {
	_, ok := os.LookupEnv(name)
	return ok
}
