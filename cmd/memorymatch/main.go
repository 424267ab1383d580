package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

// Globals are flags shared by every command
type Globals struct {
	Config   string `short:"c" default:"memorymatch.hcl" type:"path" help:"Config file (missing file means defaults)"`
	Cards    string `help:"Card source, a file path or http(s) URL (overrides config)"`
	LogLevel string `help:"Log level: debug, info, warn or error (overrides config)"`
	Seed     *int64 `help:"Deterministic shuffle seed (overrides config)"`
}

type CLI struct {
	Globals

	Version  kong.VersionFlag `short:"v" help:"Show version"`
	Play     PlayCmd          `cmd:"" default:"1" help:"Play in the terminal"`
	Serve    ServeCmd         `cmd:"" help:"Serve the game to browsers"`
	Deal     DealCmd          `cmd:"" help:"Print or save a shuffled deck"`
	Validate ValidateCmd      `cmd:"" help:"Check a card source for problems"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("memorymatch"),
		kong.Description("A memory matching card game for the terminal and the browser"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
