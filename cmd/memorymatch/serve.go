package main

import (
	"context"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lox/memorymatch/internal/card"
	"github.com/lox/memorymatch/internal/randutil"
	"github.com/lox/memorymatch/internal/server"
	"golang.org/x/sync/errgroup"
)

// ServeCmd serves the game to browsers
type ServeCmd struct {
	Addr      string `help:"Listen address (overrides config)"`
	AssetsDir string `type:"path" help:"Directory served under /assets/ (overrides config)"`
}

func (c *ServeCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	if c.Addr != "" {
		cfg.Server.Address = c.Addr
	}
	if c.AssetsDir != "" {
		cfg.Server.AssetsDir = c.AssetsDir
	}

	logger := newLogger(os.Stderr, cfg.Log.Level)
	ctx, cancel := signalContext(logger)
	defer cancel()

	seed := randutil.Seed(cfg.Seed)
	opts := []server.Option{
		server.WithSeed(seed),
		server.WithMismatchDelay(cfg.MismatchDelay()),
		server.WithAssetsDir(cfg.Server.AssetsDir),
	}

	defs, err := card.Load(ctx, cfg.Cards)
	if err == nil {
		err = card.Validate(defs)
	}
	if err != nil {
		// keep serving so browsers and health checks see why
		logger.Error("Cards unavailable", "error", err)
		opts = append(opts, server.WithLoadError(err))
	}

	logger.Info("Starting memorymatch server",
		"address", cfg.Server.Address,
		"cards", cfg.Cards,
		"pairs", len(defs),
		"seed", seed,
		"delay", cfg.MismatchDelay())

	srv := server.New(defs, logger, opts...)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return srv.ListenAndServe(ctx, cfg.Server.Address)
	})
	eg.Go(func() error {
		reportSessions(ctx, srv, logger)
		return nil
	})
	return eg.Wait()
}

// reportSessions logs the number of connected games once a minute
func reportSessions(ctx context.Context, srv *server.Server, logger *log.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			logger.Info("Active sessions", "count", srv.ActiveSessions())
		case <-ctx.Done():
			return
		}
	}
}
