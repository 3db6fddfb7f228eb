// Package commands implements the nblink CLI subcommands.
package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/nblink/internal/build"
	"git.home.luguber.info/inful/nblink/internal/config"
	"git.home.luguber.info/inful/nblink/internal/depstore"
	nberrors "git.home.luguber.info/inful/nblink/internal/foundation/errors"
	"git.home.luguber.info/inful/nblink/internal/logfields"
	"git.home.luguber.info/inful/nblink/internal/metrics"
)

// Global carries state shared by all subcommands.
type Global struct {
	Out io.Writer
}

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"nblink.yaml" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Build every descriptor below the documentation root"`
	Resolve ResolveCmd `cmd:"" help:"Print the resolution of a single descriptor as JSON"`
	Cat     CatCmd     `cmd:"" help:"Print the notebook a descriptor links to"`
	Watch   WatchCmd   `cmd:"" help:"Build, then rebuild whenever sources change"`
	Init    InitCmd    `cmd:"" help:"Write an example configuration file"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := config.LogLevelInfo
	if c.Verbose {
		level = config.LogLevelDebug
	}
	setupLogging(level, config.LogFormatText)
	return nil
}

// loadConfig loads the configuration and applies its logging section. The
// verbose flag takes precedence over logging.level.
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	level := cfg.Logging.Level
	if c.Verbose {
		level = config.LogLevelDebug
	}
	setupLogging(level, cfg.Logging.Format)
	return cfg, nil
}

func setupLogging(level config.LogLevel, format config.LogFormat) {
	opts := &slog.HandlerOptions{Level: level.SlogLevel()}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// session bundles a builder with the resources it holds open.
type session struct {
	builder *build.Builder
	store   *depstore.Store
}

func (s *session) Close() {
	if s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		slog.Warn("Failed to close dependency store", logfields.Error(err))
	}
}

// openSession creates the builder for cfg. withStore opens the dependency
// store; a Prometheus recorder is attached when a metrics textfile is set.
func openSession(cfg *config.Config, withStore bool) (*session, error) {
	s := &session{}
	opts := []build.Option{build.WithLogger(slog.Default())}

	if withStore {
		store, err := depstore.Open(cfg.Build.StateDB)
		if err != nil {
			return nil, nberrors.WrapError(err, nberrors.CategoryStore, "failed to open dependency store").
				WithContext("path", cfg.Build.StateDB).
				Build()
		}
		s.store = store
		opts = append(opts, build.WithStore(store))
	}
	if cfg.Metrics.Textfile != "" {
		opts = append(opts, build.WithRecorder(metrics.NewPrometheusRecorder(nil)))
	}

	b, err := build.New(cfg, opts...)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.builder = b
	return s, nil
}
