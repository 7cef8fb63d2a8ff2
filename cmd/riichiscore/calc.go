package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/lox/riichiscore/internal/display"
	"github.com/lox/riichiscore/internal/engine"
	"github.com/lox/riichiscore/internal/match"
	"github.com/lox/riichiscore/internal/scoring"
	"github.com/lox/riichiscore/internal/tui"
)

type CalcCmd struct {
	Hand    string   `arg:"" help:"Concealed hand in compact notation, e.g. 123m456p789s11z"`
	WinTile string   `arg:"" help:"Winning tile, e.g. 1z"`
	Dora    string   `kong:"help='Dora indicators'"`
	Chi     []string `kong:"help='Open chi, repeatable'"`
	Pon     []string `kong:"help='Open pon, repeatable'"`
	Kan     []string `kong:"help='Open kan, repeatable'"`
	Ankan   []string `kong:"help='Concealed kan, repeatable'"`
	Seat    *int     `kong:"help='Winning seat; seat and round winds come from the current match'"`
	Tsumo   bool     `kong:"help='Self-drawn win'"`
	Riichi  bool     `kong:"help='Riichi declared'"`
	Ippatsu bool     `kong:"help='Ippatsu'"`
	Record  bool     `kong:"help='Record the win in the current match and move to the next hand'"`
	From    *int     `kong:"help='Discarding seat when recording a ron'"`
}

func (c *CalcCmd) Run(g *Globals) error {
	ctx := context.Background()
	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	if a.engine == nil {
		return errors.New("no scoring engine configured, set scoring.engine_url")
	}

	req, err := c.request(a.machine.Snapshot())
	if err != nil {
		return err
	}

	res, err := a.engine.Calculate(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintln(g.stdout(), describeResult(res))

	if !c.Record {
		return nil
	}
	if c.Seat == nil {
		return errors.New("--record requires --seat")
	}

	rec := match.WinRecord{WinnerIndex: *c.Seat, IsTsumo: c.Tsumo, Result: res}
	if !c.Tsumo {
		if c.From == nil {
			return errors.New("recording a ron requires --from")
		}
		rec.LoserIndex = *c.From
	}
	entry, err := a.machine.RecordWin(ctx, rec)
	if err != nil {
		return err
	}
	fmt.Fprintln(g.stdout(), display.HistoryLine(entry, a.machine.Snapshot().Players))
	return nil
}

func (c *CalcCmd) request(s match.Snapshot) (engine.CalculateRequest, error) {
	hand, err := engine.ParseTiles(c.Hand)
	if err != nil {
		return engine.CalculateRequest{}, fmt.Errorf("hand: %w", err)
	}
	win, err := engine.ParseTiles(c.WinTile)
	if err != nil {
		return engine.CalculateRequest{}, fmt.Errorf("win tile: %w", err)
	}
	dora, err := engine.ParseTiles(c.Dora)
	if err != nil {
		return engine.CalculateRequest{}, fmt.Errorf("dora: %w", err)
	}

	req := engine.CalculateRequest{
		Hand:           hand,
		WinTile:        win,
		DoraIndicators: dora,
		PlayerWind:     match.East,
		RoundWind:      match.East,
		IsTsumo:        c.Tsumo,
		IsRiichi:       c.Riichi,
		IsIppatsu:      c.Ippatsu,
	}
	if c.Seat != nil && s.IsStarted {
		req.PlayerWind = match.SeatWind(*c.Seat, s.Round.DealerIndex)
		req.RoundWind = s.Round.RoundWind
	}

	for _, group := range []struct {
		kind  engine.MeldType
		tiles []string
	}{
		{engine.Chi, c.Chi},
		{engine.Pon, c.Pon},
		{engine.Kan, c.Kan},
		{engine.Ankan, c.Ankan},
	} {
		for _, t := range group.tiles {
			tiles, err := engine.ParseTiles(t)
			if err != nil {
				return engine.CalculateRequest{}, fmt.Errorf("%s %q: %w", group.kind, t, err)
			}
			req.Melds = append(req.Melds, engine.Meld{Type: group.kind, Tiles: tiles, Opened: group.kind != engine.Ankan})
		}
	}
	return req, nil
}

func describeResult(res scoring.ScoreResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s points\n", res.Describe(), display.Points(res.Cost.Total))
	for _, y := range res.Yaku {
		fmt.Fprintf(&b, "  %s (%d)\n", y.Name, y.Han)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (c *TUICmd) Run(g *Globals) error {
	// Log lines on the terminal would tear the full-screen view.
	g.logOut = io.Discard
	a, err := g.open(context.Background())
	if err != nil {
		return err
	}
	return tui.Run(a.runner, a.logger)
}
