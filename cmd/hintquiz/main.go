package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version  kong.VersionFlag `short:"v" help:"Show version"`
	Serve    ServeCmd         `cmd:"" help:"Run the quiz WebSocket server"`
	Play     PlayCmd          `cmd:"" help:"Play locally in the terminal"`
	Connect  ConnectCmd       `cmd:"" help:"Play against a quiz server"`
	Simulate SimulateCmd      `cmd:"" help:"Run bot sessions and report per-strategy scores"`
	Catalog  CatalogCmd       `cmd:"" help:"Work with hint catalogs"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("hintquiz"),
		kong.Description("Round-based hint quiz: guess the Swiss canton from ever easier hints"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
