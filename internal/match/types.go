package match

import (
	"fmt"
)

const (
	// Seats is the number of players at the table.
	Seats = 4
	// StartingScore is every player's score at the start of a match.
	StartingScore = 25000
	// RiichiCost is the deposit for declaring riichi.
	RiichiCost = 1000
	// HonbaRonBonus is paid per honba counter on ron.
	HonbaRonBonus = 300
	// NotenPool is redistributed from noten to tenpai players on a draw.
	NotenPool = 3000
	// ReturnScore is the threshold used by the 30000 rule.
	ReturnScore = 30000
)

// Wind is a seat or round wind.
type Wind int

const (
	East Wind = iota
	South
	West
	North
)

var windNames = [...]string{"east", "south", "west", "north"}

func (w Wind) String() string {
	if w < East || w > North {
		return fmt.Sprintf("Wind(%d)", int(w))
	}
	return windNames[w]
}

// Kanji returns the single-character wind name.
func (w Wind) Kanji() string {
	switch w {
	case East:
		return "東"
	case South:
		return "南"
	case West:
		return "西"
	case North:
		return "北"
	default:
		return "?"
	}
}

// MarshalText encodes the wind as its lowercase name.
func (w Wind) MarshalText() ([]byte, error) {
	if w < East || w > North {
		return nil, fmt.Errorf("invalid wind %d", int(w))
	}
	return []byte(windNames[w]), nil
}

// UnmarshalText decodes a lowercase wind name.
func (w *Wind) UnmarshalText(text []byte) error {
	parsed, err := ParseWind(string(text))
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// ParseWind parses "east", "south", "west" or "north".
func ParseWind(s string) (Wind, error) {
	for i, name := range windNames {
		if s == name {
			return Wind(i), nil
		}
	}
	return East, fmt.Errorf("unknown wind %q", s)
}

// SeatWind returns the wind of seat when dealer holds east.
func SeatWind(seat, dealer int) Wind {
	return Wind((seat - dealer + Seats) % Seats)
}

// GameMode is the match length.
type GameMode string

const (
	// Tonpu is an east-only match.
	Tonpu GameMode = "tonpu"
	// Hanchan is an east-and-south match.
	Hanchan GameMode = "hanchan"
)

// ParseGameMode parses a mode name; the empty string is hanchan.
func ParseGameMode(s string) (GameMode, error) {
	switch GameMode(s) {
	case "", Hanchan:
		return Hanchan, nil
	case Tonpu:
		return Tonpu, nil
	default:
		return Hanchan, fmt.Errorf("unknown game mode %q", s)
	}
}

// EndReason records why a match finished.
type EndReason string

const (
	EndBust         EndReason = "bust"
	EndEastFour     EndReason = "east-4 end"
	EndSouthFour    EndReason = "south-4 end"
	EndDealerWinOut EndReason = "dealer win-and-out"
	EndExtension    EndReason = "extension end"
)

// Label returns the Japanese display label.
func (r EndReason) Label() string {
	switch r {
	case EndBust:
		return "トビ終了"
	case EndEastFour:
		return "東4局終了"
	case EndSouthFour:
		return "南4局終了"
	case EndDealerWinOut:
		return "親のアガリやめ"
	case EndExtension:
		return "西入終了"
	case "":
		return ""
	default:
		return string(r)
	}
}

// Player is one seat at the table.
type Player struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
	Wind  Wind   `json:"wind"`
}

// RoundState is the hand counter block.
//
// Round counts hands across winds: 1-4 are east 1-4, 5-8 are south 1-4.
type RoundState struct {
	Round        int  `json:"round"`
	Honba        int  `json:"honba"`
	RiichiSticks int  `json:"riichiSticks"`
	RoundWind    Wind `json:"roundWind"`
	DealerIndex  int  `json:"dealerIndex"`
}

// InitialRound is east 1, dealer at seat 0, no counters.
func InitialRound() RoundState {
	return RoundState{Round: 1, RoundWind: East}
}

// HandNumber is the 1-based hand within the current wind.
func (r RoundState) HandNumber() int {
	return (r.Round-1)%Seats + 1
}

// String renders e.g. "east 3, 1 honba".
func (r RoundState) String() string {
	return fmt.Sprintf("%s %d, %d honba", r.RoundWind, r.HandNumber(), r.Honba)
}

// Kanji renders e.g. "東3局 1本場".
func (r RoundState) Kanji() string {
	return fmt.Sprintf("%s%d局 %d本場", r.RoundWind.Kanji(), r.HandNumber(), r.Honba)
}

func validSeat(i int) bool {
	return i >= 0 && i < Seats
}
