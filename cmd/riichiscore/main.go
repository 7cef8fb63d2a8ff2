package main

import (
	"os"

	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Globals

	Version kong.VersionFlag `short:"v" help:"Show version"`

	Start     StartCmd     `cmd:"" help:"Start a new match"`
	Ron       RonCmd       `cmd:"" help:"Record a win off a discard"`
	Tsumo     TsumoCmd     `cmd:"" help:"Record a self-drawn win"`
	Draw      DrawCmd      `cmd:"" help:"Record an exhaustive draw"`
	Riichi    RiichiCmd    `cmd:"" help:"Declare riichi"`
	Advance   AdvanceCmd   `cmd:"" help:"Move to the next hand"`
	Undo      UndoCmd      `cmd:"" help:"Undo the last recorded event"`
	Reset     ResetCmd     `cmd:"" help:"Discard the current match"`
	Status    StatusCmd    `cmd:"" help:"Show the scoreboard"`
	History   HistoryCmd   `cmd:"" help:"Show every recorded event"`
	Standings StandingsCmd `cmd:"" help:"Show the ranking"`
	Lookup    LookupCmd    `cmd:"" help:"Look up a payment in the score table"`
	Calc      CalcCmd      `cmd:"" help:"Score a hand with the scoring engine"`
	Serve     ServeCmd     `cmd:"" help:"Run the HTTP API and live scoreboard stream"`
	TUI       TUICmd       `cmd:"tui" help:"Keep score interactively"`
}

func main() {
	var cli CLI
	cli.Globals.out = os.Stdout
	ctx := kong.Parse(&cli,
		kong.Name("riichiscore"),
		kong.Description("Riichi mahjong scorekeeper"),
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
