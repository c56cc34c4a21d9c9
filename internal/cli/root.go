// Package cli is the layoutpub operator command line: seeding drafts,
// inspecting and validating publication candidates, publishing, reverting
// and processing geometry change remarks.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"layoutpub/internal/config"
	"layoutpub/internal/core"
	"layoutpub/internal/publication"
	"layoutpub/pkg/domain"
)

// RootOptions holds the global flags.
type RootOptions struct {
	ConfigPath  string
	Format      string
	Verbose     bool
	Design      int64
	User        string
	MetricsFile string
	Trace       bool
}

// ValidFormats are the accepted --format values.
var ValidFormats = []string{"text", "json"}

// Branch is the branch selected by --design.
func (o *RootOptions) Branch() domain.Branch {
	if o.Design > 0 {
		return domain.DesignBranch(domain.NewIntID(o.Design))
	}
	return domain.MainBranch
}

// App is what a command works with: the service and the store under it.
type App struct {
	Service *publication.Service
	Store   domain.LayoutStore
	Logger  *slog.Logger
	close   func() error
}

// Close releases the backends.
func (a *App) Close() error {
	if a.close == nil {
		return nil
	}
	return a.close()
}

// Opener builds the App for one command run.
type Opener func(ctx context.Context, opts *RootOptions, stderr io.Writer) (*App, error)

// NewRootCommand creates the layoutpub command tree backed by the configured
// storage.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWith(OpenApp)
}

// NewRootCommandWith creates the command tree with a custom opener.
func NewRootCommandWith(open Opener) *cobra.Command {
	opts := &RootOptions{}
	cmd := &cobra.Command{
		Use:   "layoutpub",
		Short: "Publish railway layout drafts",
		Long: `layoutpub manages the draft to official publication workflow of a railway
track layout: listing candidates, validating them as a unit, publishing,
reverting and reviewing the publication log.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return &ExitError{Code: ExitCommandError, Message: fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats)}
			}
			if opts.Design < 0 {
				return &ExitError{Code: ExitCommandError, Message: "--design must be positive"}
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default $LAYOUTPUB_CONFIG or ./layoutpub.yaml)")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging on stderr")
	flags.Int64Var(&opts.Design, "design", 0, "work in the design branch with this id instead of main")
	flags.StringVar(&opts.User, "user", "layoutpub", "user recorded on changes")
	flags.StringVar(&opts.MetricsFile, "metrics-file", "", "write metrics to this file when done (Prometheus text or expvar JSON)")
	flags.BoolVar(&opts.Trace, "trace", false, "write operation spans as JSON lines on stderr")

	cmd.AddCommand(
		newSeedCommand(opts, open),
		newCandidatesCommand(opts, open),
		newValidateCommand(opts, open),
		newPublishCommand(opts, open),
		newRevertCommand(opts, open),
		newRemarksCommand(opts, open),
		newPublicationsCommand(opts, open),
	)
	return cmd
}

// OpenApp loads the configuration and opens its backends.
func OpenApp(ctx context.Context, opts *RootOptions, stderr io.Writer) (*App, error) {
	cfg, path, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	logger := NewLogger(cfg.Logging, opts.Verbose, stderr)
	logger.Debug("config loaded", "path", path, "storage", cfg.Storage.Driver, "lock", cfg.Lock.Driver)

	backends, err := core.OpenBackends(ctx, cfg)
	if err != nil {
		return nil, err
	}

	metrics, err := core.NewMetrics(cfg.Metrics)
	if err != nil {
		_ = backends.Close()
		return nil, err
	}
	svcOpts := []core.Option{
		core.WithLogger(logger),
		core.WithMetricsRecorder(metrics.Recorder),
	}
	if opts.Trace {
		svcOpts = append(svcOpts, core.WithTracer(core.NewJSONTracer(stderr)))
	}
	svc := publication.NewService(publication.DepsFrom(backends), publication.ConfigFrom(cfg), svcOpts...)

	return &App{
		Service: svc,
		Store:   backends.Store,
		Logger:  logger,
		close: func() error {
			if opts.MetricsFile != "" {
				if err := metrics.WriteFile(opts.MetricsFile); err != nil {
					logger.Warn("write metrics", "path", opts.MetricsFile, "error", err)
				}
			}
			return backends.Close()
		},
	}, nil
}

// NewLogger builds the slog logger for cfg. --verbose forces debug level.
func NewLogger(cfg config.LoggingConfig, verbose bool, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// run opens the app, hands it to fn and always closes it.
func run(cmd *cobra.Command, opts *RootOptions, open Opener, fn func(ctx context.Context, app *App, out *OutputFormatter) error) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := open(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return out.Fail("open backends", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			out.VerboseLog("close: %v", err)
		}
	}()
	return fn(ctx, app, out)
}
