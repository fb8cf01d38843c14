package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/clarabennett2626/logtail/internal/config"
	"github.com/clarabennett2626/logtail/internal/source"
	"github.com/clarabennett2626/logtail/internal/tail"
	"github.com/clarabennett2626/logtail/internal/tui"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

var errNoTerminal = errors.New("--tui requires stdout to be a terminal")

// runEnv carries the process boundary so tests can swap it out.
type runEnv struct {
	fs        afero.Fs
	stdout    io.Writer
	stderr    io.Writer
	terminal  bool
	newSource func(logger logrus.FieldLogger) (source.Source, error)
}

func defaultEnv() runEnv {
	fd := os.Stdout.Fd()
	return runEnv{
		fs:       afero.NewOsFs(),
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		terminal: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd),
		newSource: func(logger logrus.FieldLogger) (source.Source, error) {
			return source.NewFSNotifySource(source.FSNotifyConfig{Logger: logger})
		},
	}
}

// run validates cfg, starts watching, seeds the registry and tails until
// ctx is cancelled.
func run(ctx context.Context, cfg config.Config, env runEnv) error {
	cfg.Normalize()
	if err := cfg.Validate(env.fs); err != nil {
		return err
	}
	if cfg.TUI && !env.terminal {
		return errNoTerminal
	}
	if !env.terminal {
		cfg.Plain = true
	}

	logger := cfg.NewLogger(env.stderr)

	src, err := env.newSource(logger)
	if err != nil {
		return fmt.Errorf("initializing watcher: %w", err)
	}
	defer src.Close()

	// Watch before scanning so files created in between are not missed.
	if err := src.Watch(cfg.Directory, cfg.Recursive); err != nil {
		return fmt.Errorf("initializing watcher: %w", err)
	}

	renderer := tui.NewRenderer(renderConfig(cfg))
	registry := tail.NewRegistry(env.fs, tail.WithTruncationReset(cfg.DetectTruncation))
	opts := tail.Options{
		Filter:          tail.NewFilter(cfg.Extension),
		Cooldown:        cfg.Cooldown,
		MaxReadFailures: cfg.MaxReadFailures,
		Logger:          logger,
	}

	if cfg.TUI {
		return runTUI(ctx, cfg, logger, src, renderer, registry, opts)
	}

	sink := tail.MultiSink{tui.NewConsoleSink(env.stdout, renderer), tail.NewLogSink(logger)}
	engine := tail.New(registry, sink, opts)
	defer engine.Close()

	n, err := engine.Scan(cfg.Directory)
	if err != nil {
		return err
	}
	logger.WithField("files", n).WithField("extension", cfg.Extension).Debug("tracking existing files")

	io.WriteString(env.stdout, renderer.RenderBanner(cfg.Directory))
	return engine.Run(ctx, src)
}

// renderConfig applies the presentation settings of cfg to the renderer
// defaults.
func renderConfig(cfg config.Config) tui.RenderConfig {
	rc := tui.DefaultConfig()
	rc.Theme = tui.ParseTheme(cfg.Theme)
	rc.Plain = cfg.Plain
	if cfg.StripANSI {
		rc.ANSIMode = tui.ANSIStrip
	}
	return rc
}

func runTUI(ctx context.Context, cfg config.Config, logger *logrus.Logger, src source.Source,
	renderer *tui.Renderer, registry *tail.Registry, opts tail.Options) error {
	sink := tui.NewProgramSink(renderer)
	engine := tail.New(registry, tail.MultiSink{sink, tail.NewLogSink(logger)}, opts)
	defer engine.Close()

	n, err := engine.Scan(cfg.Directory)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(tui.NewModel(cfg.Directory, n), tea.WithAltScreen(), tea.WithContext(ctx))
	sink.Attach(p, n)
	logger.SetOutput(io.Discard)
	logger.AddHook(tui.NewLogHook(p))

	done := make(chan error, 1)
	go func() {
		done <- engine.Run(ctx, src)
	}()

	_, runErr := p.Run()
	cancel()
	engineErr := <-done

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) && !errors.Is(runErr, tea.ErrInterrupted) {
		return runErr
	}
	return engineErr
}
