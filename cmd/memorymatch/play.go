package main

import (
	"github.com/lox/memorymatch/internal/card"
	"github.com/lox/memorymatch/internal/game"
	"github.com/lox/memorymatch/internal/randutil"
	"github.com/lox/memorymatch/internal/tui"
)

// PlayCmd runs the game in the terminal
type PlayCmd struct {
	LogFile string `help:"Log file, since the terminal is taken by the game (overrides config)"`
}

func (c *PlayCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	if c.LogFile != "" {
		cfg.Log.File = c.LogFile
	}

	logFile, err := openLogFile(cfg.Log.File)
	if err != nil {
		return err
	}
	defer func() { _ = logFile.Close() }()

	logger := newLogger(logFile, cfg.Log.Level)
	ctx, cancel := signalContext(logger)
	defer cancel()

	seed := randutil.Seed(cfg.Seed)
	logger.Info("Starting terminal game", "cards", cfg.Cards, "seed", seed, "delay", cfg.MismatchDelay())

	defs, err := card.Load(ctx, cfg.Cards)
	if err != nil {
		logger.Error("Failed to load cards", "error", err)
		return tui.Run(ctx, tui.NewFailedModel(err, logger))
	}

	board := tui.NewBoard()
	session, err := game.NewSession(defs,
		game.WithRand(randutil.New(seed)),
		game.WithMismatchDelay(cfg.MismatchDelay()),
		game.WithRenderer(board),
		game.WithScoreSink(board),
		game.WithLogger(logger),
	)
	if err != nil {
		logger.Error("Invalid card definitions", "error", err)
		return tui.Run(ctx, tui.NewFailedModel(err, logger))
	}
	defer session.Close()

	return tui.Run(ctx, tui.NewModel(board, session, logger))
}
