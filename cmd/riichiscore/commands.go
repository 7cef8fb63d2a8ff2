package main

import (
	"github.com/lox/riichiscore/internal/command"
	"github.com/lox/riichiscore/internal/match"
)

type StartCmd struct {
	Names     []string `arg:"" help:"Four player names, east seat first"`
	Mode      string   `kong:"help='Match length: hanchan or tonpu (default from config)'"`
	Rule30000 bool     `kong:"name='rule-30000',help='Require 30000 points to end an east-only match (also enabled by config)'"`
}

func (c *StartCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	opts := cfg.StartOptions()
	if c.Mode != "" {
		if opts.Mode, err = match.ParseGameMode(c.Mode); err != nil {
			return err
		}
	}
	if c.Rule30000 {
		opts.Enable30000Rule = true
	}
	return g.run(command.Command{
		Kind:            command.Start,
		Names:           c.Names,
		Mode:            opts.Mode,
		Enable30000Rule: opts.Enable30000Rule,
	})
}

type RonCmd struct {
	Winner int  `arg:"" help:"Winning seat (0-3)"`
	Loser  int  `arg:"" help:"Discarding seat (0-3)"`
	Han    int  `arg:"" help:"Han"`
	Fu     int  `arg:"" optional:"" help:"Fu (omit for mangan and above)"`
	Stay   bool `kong:"help='Do not move to the next hand'"`
}

func (c *RonCmd) Run(g *Globals) error {
	return g.run(command.Command{Kind: command.Ron, Winner: c.Winner, Loser: c.Loser, Han: c.Han, Fu: c.Fu, Stay: c.Stay})
}

type TsumoCmd struct {
	Winner int  `arg:"" help:"Winning seat (0-3)"`
	Han    int  `arg:"" help:"Han"`
	Fu     int  `arg:"" optional:"" help:"Fu (omit for mangan and above)"`
	Stay   bool `kong:"help='Do not move to the next hand'"`
}

func (c *TsumoCmd) Run(g *Globals) error {
	return g.run(command.Command{Kind: command.Tsumo, Winner: c.Winner, Han: c.Han, Fu: c.Fu, Stay: c.Stay})
}

type DrawCmd struct {
	Tenpai []int `arg:"" optional:"" help:"Seats that were tenpai"`
	Stay   bool  `kong:"help='Do not move to the next hand'"`
}

func (c *DrawCmd) Run(g *Globals) error {
	tenpai := c.Tenpai
	if tenpai == nil {
		tenpai = []int{}
	}
	return g.run(command.Command{Kind: command.Draw, Tenpai: tenpai, Stay: c.Stay})
}

type RiichiCmd struct {
	Seat int `arg:"" help:"Declaring seat (0-3)"`
}

func (c *RiichiCmd) Run(g *Globals) error {
	return g.run(command.Command{Kind: command.Riichi, Player: c.Seat})
}

type AdvanceCmd struct {
	Dealer bool `kong:"help='The dealer won or was tenpai, so the deal repeats'"`
}

func (c *AdvanceCmd) Run(g *Globals) error {
	return g.run(command.Command{Kind: command.Advance, DealerWon: c.Dealer})
}

type UndoCmd struct{}

func (c *UndoCmd) Run(g *Globals) error {
	return g.run(command.Command{Kind: command.Undo})
}

type ResetCmd struct{}

func (c *ResetCmd) Run(g *Globals) error {
	return g.run(command.Command{Kind: command.Reset})
}

type StatusCmd struct{}

func (c *StatusCmd) Run(g *Globals) error {
	return g.run(command.Command{Kind: command.Status})
}

type HistoryCmd struct{}

func (c *HistoryCmd) Run(g *Globals) error {
	return g.run(command.Command{Kind: command.History})
}

type StandingsCmd struct{}

func (c *StandingsCmd) Run(g *Globals) error {
	return g.run(command.Command{Kind: command.Standings})
}

type LookupCmd struct {
	Han    int  `arg:"" help:"Han"`
	Fu     int  `arg:"" optional:"" help:"Fu (omit for mangan and above)"`
	Tsumo  bool `kong:"help='Self-drawn win'"`
	Dealer bool `kong:"help='The winner is the dealer'"`
}

func (c *LookupCmd) Run(g *Globals) error {
	return g.run(command.Command{Kind: command.Lookup, Han: c.Han, Fu: c.Fu, IsTsumo: c.Tsumo, IsDealer: c.Dealer})
}

type TUICmd struct{}
