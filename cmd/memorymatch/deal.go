package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/lox/memorymatch/internal/card"
	"github.com/lox/memorymatch/internal/deck"
	"github.com/lox/memorymatch/internal/fileutil"
	"github.com/lox/memorymatch/internal/randutil"
	"github.com/lox/memorymatch/internal/tui"
)

// DealCmd shuffles a deck without playing it
type DealCmd struct {
	Out string `short:"o" type:"path" help:"Write the deal to this file instead of stdout"`
}

// dealFile is the output of the deal command
type dealFile struct {
	Seed  int64             `json:"seed"`
	Pairs int               `json:"pairs"`
	Tiles []card.Definition `json:"tiles"`
}

func (c *DealCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}

	defs, err := card.Load(context.Background(), cfg.Cards)
	if err != nil {
		return err
	}

	seed := randutil.Seed(cfg.Seed)
	d, err := deck.Build(defs, randutil.New(seed))
	if err != nil {
		return err
	}

	out := dealFile{Seed: seed, Pairs: d.Pairs(), Tiles: d}
	if c.Out == "" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if err := fileutil.WriteJSONAtomic(c.Out, out, 0o644); err != nil {
		return err
	}
	fmt.Println(tui.SuccessStyle.Render(fmt.Sprintf("Dealt %d tiles to %s (seed %d)", d.Len(), c.Out, seed)))
	return nil
}
