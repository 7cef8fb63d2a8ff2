package main

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/lox/riichiscore/internal/archive"
	"github.com/lox/riichiscore/internal/engine"
	"github.com/lox/riichiscore/internal/feed"
	"github.com/lox/riichiscore/internal/server"
)

type ServeCmd struct {
	Addr string `kong:"help='Listen address (default from config)'"`
}

func (c *ServeCmd) Run(g *Globals) error {
	a, err := g.open(context.Background())
	if err != nil {
		return err
	}
	logger := a.logger

	ctx, cancel := setupSignalHandler(logger)
	defer cancel()

	if logger.GetLevel() > log.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	if a.cfg.Feed.Enabled {
		f, err := feed.Connect(a.cfg.Feed.URL, a.cfg.Feed.SubjectPrefix, logger)
		if err != nil {
			return err
		}
		defer f.Close()
		a.machine.Subscribe(f)
	}

	if a.cfg.Archive.Enabled {
		arc, err := archive.Connect(ctx, a.cfg.Archive.URI, a.cfg.Archive.Database, a.cfg.Archive.Collection, logger)
		if err != nil {
			return err
		}
		defer arc.Close(context.Background())
		a.machine.Subscribe(arc)
	}

	addr := c.Addr
	if addr == "" {
		addr = a.cfg.ServerAddress()
	}
	srv := server.New(a.machine, logger, server.WithCalculator(a.cfg.Calculator()))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return srv.Run(egCtx, addr)
	})
	if a.engine != nil {
		eg.Go(func() error {
			watchEngine(egCtx, a.engine, logger)
			return nil
		})
	}
	return eg.Wait()
}

// watchEngine logs when the scoring engine becomes unreachable or recovers.
func watchEngine(ctx context.Context, client *engine.Client, logger *log.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	healthy := true
	for {
		err := client.Health(ctx)
		switch {
		case ctx.Err() != nil:
			return
		case err != nil && healthy:
			logger.Warn("Scoring engine unreachable", "error", err)
			healthy = false
		case err == nil && !healthy:
			logger.Info("Scoring engine reachable again")
			healthy = true
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
