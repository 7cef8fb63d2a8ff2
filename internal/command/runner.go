package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/lox/riichiscore/internal/display"
	"github.com/lox/riichiscore/internal/match"
	"github.com/lox/riichiscore/internal/scoring"
)

// Runner executes commands against a match.
type Runner struct {
	Machine *match.Machine
	Calc    scoring.Calculator
}

// Execute runs cmd and returns the text to show the user. Wins and draws
// move to the next hand unless cmd.Stay is set.
func (r *Runner) Execute(ctx context.Context, cmd Command) (string, error) {
	m := r.Machine

	switch cmd.Kind {
	case Start:
		err := m.Start(cmd.Names, match.StartOptions{Mode: cmd.Mode, Enable30000Rule: cmd.Enable30000Rule})
		if err != nil {
			return "", err
		}
		return display.Scoreboard(m.Snapshot()), nil

	case Ron, Tsumo:
		return r.win(ctx, cmd)

	case Draw:
		var (
			entry match.HistoryEntry
			err   error
		)
		if cmd.Stay {
			entry, err = m.ApplyDraw(cmd.Tenpai)
		} else {
			entry, err = m.RecordDraw(cmd.Tenpai)
		}
		if err != nil {
			return "", err
		}
		return r.afterEntry(entry), nil

	case Riichi:
		ok, err := m.AddRiichiStick(cmd.Player)
		if err != nil {
			return "", err
		}
		s := m.Snapshot()
		if !ok {
			return fmt.Sprintf("%s cannot declare riichi with %s points", s.Players[cmd.Player].Name, display.Points(s.Players[cmd.Player].Score)), nil
		}
		return display.HistoryLine(s.History[len(s.History)-1], s.Players), nil

	case Advance:
		if err := m.AdvanceRound(cmd.DealerWon); err != nil {
			return "", err
		}
		return r.status(), nil

	case Undo:
		ok, err := m.Undo()
		if err != nil {
			return "", err
		}
		if !ok {
			return "Nothing to undo.", nil
		}
		return "Undone.\n" + display.Scoreboard(m.Snapshot()), nil

	case Reset:
		if err := m.Reset(); err != nil {
			return "", err
		}
		return "Match reset.", nil

	case Status:
		return r.status(), nil

	case History:
		return display.History(m.Snapshot()), nil

	case Standings:
		return display.Standings(m.Snapshot(), m.Duration()), nil

	case Lookup:
		cost, ok := r.Calc.Lookup(cmd.IsTsumo, cmd.Han, cmd.Fu, cmd.IsDealer)
		if !ok {
			return "", fmt.Errorf("%w: %d han %d fu", match.ErrUncomputable, cmd.Han, cmd.Fu)
		}
		return display.Cost(cost, cmd.IsTsumo, cmd.IsDealer), nil

	case Help:
		return Usage, nil

	case Quit:
		return "", nil

	default:
		return "", fmt.Errorf("%w: unknown command %q", ErrUsage, cmd.Kind)
	}
}

func (r *Runner) win(ctx context.Context, cmd Command) (string, error) {
	m := r.Machine
	isTsumo := cmd.Kind == Tsumo

	res, err := m.Snapshot().TableResult(r.Calc, isTsumo, cmd.Winner, cmd.Han, cmd.Fu)
	if err != nil {
		return "", err
	}

	var entry match.HistoryEntry
	switch {
	case !cmd.Stay:
		entry, err = m.RecordWin(ctx, match.WinRecord{
			WinnerIndex: cmd.Winner,
			LoserIndex:  cmd.Loser,
			IsTsumo:     isTsumo,
			Result:      res,
		})
	case isTsumo:
		entry, err = m.ApplyTsumo(ctx, cmd.Winner, res)
	default:
		entry, err = m.ApplyRon(ctx, cmd.Winner, cmd.Loser, res)
	}
	if err != nil {
		return "", err
	}
	return r.afterEntry(entry), nil
}

// afterEntry shows the recorded entry, then the standings if the match is
// over or the scoreboard otherwise.
func (r *Runner) afterEntry(entry match.HistoryEntry) string {
	s := r.Machine.Snapshot()
	var b strings.Builder
	b.WriteString(display.HistoryLine(entry, s.Players))
	b.WriteString("\n\n")
	b.WriteString(r.status())
	return b.String()
}

func (r *Runner) status() string {
	s := r.Machine.Snapshot()
	if s.IsEnded {
		return display.Scoreboard(s) + "\n" + display.Standings(s, r.Machine.Duration())
	}
	return display.Scoreboard(s)
}
