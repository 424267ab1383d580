package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/lox/memorymatch/internal/card"
	"github.com/lox/memorymatch/internal/tui"
)

// ValidateCmd checks a card source
type ValidateCmd struct {
	Source string `arg:"" optional:"" help:"Card file or URL (defaults to the configured source)"`
}

func (c *ValidateCmd) Run(g *Globals) error {
	source := c.Source
	if source == "" {
		cfg, err := g.loadConfig()
		if err != nil {
			return err
		}
		source = cfg.Cards
	}

	defs, err := card.Load(context.Background(), source)
	if err != nil {
		return err
	}

	if err := card.Validate(defs); err != nil {
		var verr *card.ValidationError
		if errors.As(err, &verr) {
			fmt.Println(tui.ErrorStyle.Render(fmt.Sprintf("%s: %d problems", source, len(verr.Problems))))
			for _, p := range verr.Problems {
				fmt.Println("  " + p)
			}
		}
		return err
	}

	fmt.Println(tui.SuccessStyle.Render(fmt.Sprintf("%s: %d cards, %d tiles", source, len(defs), 2*len(defs))))
	return nil
}
