// Package command parses the one-line scorekeeping commands shared by the
// terminal UI and the CLI, and runs them against a match.
package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lox/riichiscore/internal/match"
)

// Kind names a command.
type Kind string

const (
	Start     Kind = "start"
	Ron       Kind = "ron"
	Tsumo     Kind = "tsumo"
	Draw      Kind = "draw"
	Riichi    Kind = "riichi"
	Advance   Kind = "advance"
	Undo      Kind = "undo"
	Reset     Kind = "reset"
	Status    Kind = "status"
	History   Kind = "history"
	Standings Kind = "standings"
	Lookup    Kind = "lookup"
	Help      Kind = "help"
	Quit      Kind = "quit"
)

// ErrUsage is returned for malformed command lines.
var ErrUsage = errors.New("usage")

// Usage lists the command syntax, one command per line.
const Usage = `start <p1> <p2> <p3> <p4> [tonpu|hanchan] [30000]
ron <winner> <discarder> <han> [fu] [stay]
tsumo <winner> <han> [fu] [stay]
draw [tenpai seats...] [stay]
riichi <seat>
advance [dealer]
undo
reset
status | history | standings
lookup <ron|tsumo> <han> [fu] [dealer]
help | quit`

// Command is a parsed command line. Seats are 0-3, east at the first deal.
type Command struct {
	Kind Kind

	// start
	Names           []string
	Mode            match.GameMode
	Enable30000Rule bool

	// ron, tsumo, lookup
	Winner int
	Loser  int
	Han    int
	Fu     int

	// draw
	Tenpai []int

	// riichi
	Player int

	// advance
	DealerWon bool

	// lookup
	IsTsumo  bool
	IsDealer bool

	// Stay records a win or draw without moving to the next hand.
	Stay bool
}

// Parse parses a command line. Keywords are case-insensitive; player names
// keep their case.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("%w: empty command", ErrUsage)
	}
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "start":
		return parseStart(args)
	case "ron":
		return parseWin(Ron, args)
	case "tsumo":
		return parseWin(Tsumo, args)
	case "draw":
		return parseDraw(args)
	case "riichi":
		if len(args) != 1 {
			return Command{}, fmt.Errorf("%w: riichi <seat>", ErrUsage)
		}
		seat, err := parseSeat(args[0])
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: Riichi, Player: seat}, nil
	case "advance":
		switch {
		case len(args) == 0:
			return Command{Kind: Advance}, nil
		case len(args) == 1 && strings.EqualFold(args[0], "dealer"):
			return Command{Kind: Advance, DealerWon: true}, nil
		default:
			return Command{}, fmt.Errorf("%w: advance [dealer]", ErrUsage)
		}
	case "lookup":
		return parseLookup(args)
	case "undo", "reset", "status", "history", "standings":
		if len(args) != 0 {
			return Command{}, fmt.Errorf("%w: %s takes no arguments", ErrUsage, name)
		}
		return Command{Kind: Kind(name)}, nil
	case "help", "?":
		return Command{Kind: Help}, nil
	case "quit", "q", "exit":
		return Command{Kind: Quit}, nil
	default:
		return Command{}, fmt.Errorf("%w: unknown command %q, type 'help' for commands", ErrUsage, name)
	}
}

func parseStart(args []string) (Command, error) {
	if len(args) < match.Seats {
		return Command{}, fmt.Errorf("%w: start needs %d player names", ErrUsage, match.Seats)
	}
	cmd := Command{Kind: Start, Names: args[:match.Seats], Mode: match.Hanchan}
	for _, opt := range args[match.Seats:] {
		switch strings.ToLower(opt) {
		case "tonpu", "east":
			cmd.Mode = match.Tonpu
		case "hanchan":
			cmd.Mode = match.Hanchan
		case "30000":
			cmd.Enable30000Rule = true
		default:
			return Command{}, fmt.Errorf("%w: unknown start option %q", ErrUsage, opt)
		}
	}
	return cmd, nil
}

func parseWin(kind Kind, args []string) (Command, error) {
	cmd := Command{Kind: kind}
	args, cmd.Stay = trimStay(args)

	want := 2
	if kind == Ron {
		want = 3
	}
	if len(args) < want || len(args) > want+1 {
		if kind == Ron {
			return Command{}, fmt.Errorf("%w: ron <winner> <discarder> <han> [fu]", ErrUsage)
		}
		return Command{}, fmt.Errorf("%w: tsumo <winner> <han> [fu]", ErrUsage)
	}

	var err error
	if cmd.Winner, err = parseSeat(args[0]); err != nil {
		return Command{}, err
	}
	rest := args[1:]
	if kind == Ron {
		if cmd.Loser, err = parseSeat(args[1]); err != nil {
			return Command{}, err
		}
		rest = args[2:]
	}
	if cmd.Han, cmd.Fu, err = parseHanFu(rest); err != nil {
		return Command{}, err
	}
	return cmd, nil
}

func parseDraw(args []string) (Command, error) {
	cmd := Command{Kind: Draw, Tenpai: []int{}}
	args, cmd.Stay = trimStay(args)
	for _, a := range args {
		seat, err := parseSeat(a)
		if err != nil {
			return Command{}, err
		}
		cmd.Tenpai = append(cmd.Tenpai, seat)
	}
	return cmd, nil
}

func parseLookup(args []string) (Command, error) {
	cmd := Command{Kind: Lookup}
	if n := len(args); n > 0 && strings.EqualFold(args[n-1], "dealer") {
		args = args[:n-1]
		cmd.IsDealer = true
	}
	if len(args) < 2 || len(args) > 3 {
		return Command{}, fmt.Errorf("%w: lookup <ron|tsumo> <han> [fu] [dealer]", ErrUsage)
	}
	switch strings.ToLower(args[0]) {
	case "ron":
	case "tsumo":
		cmd.IsTsumo = true
	default:
		return Command{}, fmt.Errorf("%w: lookup <ron|tsumo> <han> [fu] [dealer]", ErrUsage)
	}
	var err error
	if cmd.Han, cmd.Fu, err = parseHanFu(args[1:]); err != nil {
		return Command{}, err
	}
	return cmd, nil
}

func trimStay(args []string) ([]string, bool) {
	if n := len(args); n > 0 && strings.EqualFold(args[n-1], "stay") {
		return args[:n-1], true
	}
	return args, false
}

func parseSeat(s string) (int, error) {
	seat, err := strconv.Atoi(s)
	if err != nil || seat < 0 || seat >= match.Seats {
		return 0, fmt.Errorf("%w: seat must be 0-%d, got %q", ErrUsage, match.Seats-1, s)
	}
	return seat, nil
}

// parseHanFu reads "<han> [fu]". Fu may be omitted for limit hands.
func parseHanFu(args []string) (int, int, error) {
	han, err := strconv.Atoi(args[0])
	if err != nil || han < 1 {
		return 0, 0, fmt.Errorf("%w: han must be a positive number, got %q", ErrUsage, args[0])
	}
	fu := 0
	if len(args) > 1 {
		if fu, err = strconv.Atoi(args[1]); err != nil || fu < 0 {
			return 0, 0, fmt.Errorf("%w: fu must be a number, got %q", ErrUsage, args[1])
		}
	}
	return han, fu, nil
}
