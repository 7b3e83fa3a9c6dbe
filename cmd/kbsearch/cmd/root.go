// Package cmd provides the CLI commands for kbsearch.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/kbsearch/internal/config"
	kberrors "github.com/Aman-CERP/kbsearch/internal/errors"
	"github.com/Aman-CERP/kbsearch/internal/logging"
	"github.com/Aman-CERP/kbsearch/internal/output"
	"github.com/Aman-CERP/kbsearch/pkg/kbsearch"
	"github.com/Aman-CERP/kbsearch/pkg/version"
)

// app carries the state shared by every command of one invocation.
type app struct {
	debug bool

	// workDir is where .kbsearch.yaml and a local registry are looked up.
	// Empty means the process working directory.
	workDir string

	cfg            *config.Config
	logger         *slog.Logger
	loggingCleanup func()
	engine         *kbsearch.Engine
}

// NewRootCmd creates the root command for the kbsearch CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{})
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kbsearch",
		Short: "Keyword search over local knowledge bases",
		Long: `kbsearch indexes directories of documents into named knowledge bases
and ranks them with BM25. English and Chinese text are both supported.

Register a directory, index it, then search:

  kbsearch add notes ~/notes
  kbsearch index notes
  kbsearch search "retry backoff"`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			a.teardown()
			return nil
		},
	}

	cmd.SetVersionTemplate("kbsearch version {{.Version}}\n")
	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging to stderr and ~/.kbsearch/logs/")

	for _, sub := range commands(a) {
		cmd.AddCommand(sub)
	}
	return cmd
}

// Execute runs the root command and prints any error to stderr.
func Execute() error {
	a := &app{}
	defer a.teardown()

	root := newRootCmd(a)
	cmd, err := root.ExecuteC()
	if err != nil {
		if a.logger != nil {
			a.logger.LogAttrs(context.Background(), slog.LevelError, "command_failed",
				append([]slog.Attr{slog.String("command", cmd.CommandPath())}, kberrors.LogAttrs(err)...)...)
		}
		reportError(cmd, err)
	}
	return err
}

// reportError prints err to stderr, as JSON when the command was asked for
// JSON output.
func reportError(cmd *cobra.Command, err error) {
	out := output.New(cmd.ErrOrStderr())
	if f := cmd.Flags().Lookup("format"); f != nil && f.Value.String() == string(output.FormatJSON) {
		out.ErrorJSON(err)
		return
	}
	out.Error(err)
}

// setup loads configuration and starts logging. Commands that never touch
// knowledge bases skip it.
func (a *app) setup(cmd *cobra.Command) error {
	if cmd.Annotations[annotationNoSetup] == "true" {
		return nil
	}

	dir := a.workDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = wd
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	a.cfg = cfg

	var logCfg logging.Config
	switch {
	case cmd.Annotations[annotationServe] == "true":
		// stdout belongs to the MCP transport.
		logCfg = logging.ServeConfig(cfg.Logging.Level)
		if a.debug {
			logCfg.Level = "debug"
		}
	case a.debug:
		logCfg = logging.DebugConfig()
	default:
		logCfg = logging.DefaultConfig()
		logCfg.Level = cfg.Logging.Level
	}
	if cfg.Logging.File != "" {
		logCfg.FilePath = cfg.Logging.File
	}

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		// An unwritable log directory must not break the CLI.
		logger, cleanup = logging.Discard(), func() {}
	}
	a.logger = logger
	a.loggingCleanup = cleanup
	slog.SetDefault(logger)

	if a.debug {
		logger.Debug("debug logging enabled",
			slog.String("log_file", logCfg.FilePath),
			slog.String("version", version.Short()))
	}
	return nil
}

// openEngine returns the engine, opening it on first use.
func (a *app) openEngine() (*kbsearch.Engine, error) {
	if a.engine != nil {
		return a.engine, nil
	}
	if a.cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	e, err := kbsearch.Open(a.cfg, kbsearch.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	a.engine = e
	return e, nil
}

func (a *app) teardown() {
	if a.engine != nil {
		_ = a.engine.Close()
		a.engine = nil
	}
	if a.loggingCleanup != nil {
		a.loggingCleanup()
		a.loggingCleanup = nil
	}
}
