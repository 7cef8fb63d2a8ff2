package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"

	"github.com/lox/riichiscore/internal/command"
	"github.com/lox/riichiscore/internal/config"
	"github.com/lox/riichiscore/internal/display"
	"github.com/lox/riichiscore/internal/engine"
	"github.com/lox/riichiscore/internal/logging"
	"github.com/lox/riichiscore/internal/match"
	"github.com/lox/riichiscore/internal/store"
)

// Globals are flags shared by every command.
type Globals struct {
	Config   string `kong:"default='riichiscore.hcl',env='RIICHISCORE_CONFIG',type='path',help='Configuration file'"`
	LogLevel string `kong:"help='Override the configured log level (debug, info, warn, error)'"`
	NoColor  bool   `kong:"env='NO_COLOR',help='Disable colored output'"`

	out    io.Writer
	logOut io.Writer
}

// app is a machine hydrated from the configured store, with persistence
// subscribed.
type app struct {
	cfg     *config.Config
	logger  *log.Logger
	machine *match.Machine
	store   store.Store
	engine  *engine.Client
	runner  *command.Runner
}

func (g *Globals) stdout() io.Writer {
	if g.out == nil {
		return os.Stdout
	}
	return g.out
}

func (g *Globals) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", g.Config, err)
	}
	return cfg, nil
}

func (g *Globals) open(ctx context.Context) (*app, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if g.LogLevel != "" {
		level = g.LogLevel
	}
	logOut := g.logOut
	if logOut == nil {
		logOut = os.Stderr
	}
	logger := logging.New(level, logOut)

	if g.NoColor || !isTerminal(g.stdout()) {
		display.DisableColor()
	}

	st, err := store.Open(cfg.Storage)
	if err != nil {
		return nil, err
	}

	opts := []match.Option{
		match.WithLogger(logger),
		match.WithUndoPolicy(cfg.UndoPolicy()),
		match.WithSubscriber(store.NewSubscriber(st, logger)),
	}

	var client *engine.Client
	if cfg.Scoring.EngineURL != "" {
		timeout, _ := cfg.EngineTimeout()
		client = engine.NewClient(cfg.Scoring.EngineURL, engine.WithTimeout(timeout), engine.WithLogger(logger))
		if cfg.Scoring.RemoteApply {
			opts = append(opts, match.WithApplier(client))
		}
	}

	m := match.NewMachine(opts...)
	if err := store.Hydrate(ctx, st, m); err != nil {
		return nil, fmt.Errorf("failed to load saved match: %w", err)
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		machine: m,
		store:   st,
		engine:  client,
		runner:  &command.Runner{Machine: m, Calc: cfg.Calculator()},
	}, nil
}

// run opens the app, executes c and prints the result.
func (g *Globals) run(c command.Command) error {
	ctx := context.Background()
	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	out, err := a.runner.Execute(ctx, c)
	if err != nil {
		return err
	}
	if out != "" {
		fmt.Fprintln(g.stdout(), out)
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
