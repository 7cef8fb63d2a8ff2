package engine

import (
	"fmt"
	"strings"

	"github.com/lox/riichiscore/internal/match"
)

// Tiles lists tiles per suit as digit strings, e.g. Man: "123".
// Honors 1-7 are east, south, west, north, white, green, red.
type Tiles struct {
	Man    string `json:"man"`
	Pin    string `json:"pin"`
	Sou    string `json:"sou"`
	Honors string `json:"honors"`
}

// Empty reports whether no tile is listed.
func (t Tiles) Empty() bool {
	return t.Man == "" && t.Pin == "" && t.Sou == "" && t.Honors == ""
}

// Count returns the number of tiles listed.
func (t Tiles) Count() int {
	return len(t.Man) + len(t.Pin) + len(t.Sou) + len(t.Honors)
}

// String renders compact notation such as "123m55p777z".
func (t Tiles) String() string {
	var b strings.Builder
	for _, part := range []struct{ digits, suit string }{
		{t.Man, "m"}, {t.Pin, "p"}, {t.Sou, "s"}, {t.Honors, "z"},
	} {
		if part.digits != "" {
			b.WriteString(part.digits)
			b.WriteString(part.suit)
		}
	}
	return b.String()
}

// ParseTiles parses compact notation: digits followed by a suit letter
// (m, p, s or z), repeated. "0" is accepted as a red five in number suits.
func ParseTiles(s string) (Tiles, error) {
	var t Tiles
	var pending strings.Builder
	for _, r := range strings.ReplaceAll(s, " ", "") {
		switch {
		case r >= '0' && r <= '9':
			pending.WriteRune(r)
		case r == 'm' || r == 'p' || r == 's' || r == 'z':
			digits := pending.String()
			if digits == "" {
				return Tiles{}, fmt.Errorf("suit %q without tiles in %q", r, s)
			}
			pending.Reset()
			switch r {
			case 'm':
				t.Man += digits
			case 'p':
				t.Pin += digits
			case 's':
				t.Sou += digits
			case 'z':
				if strings.ContainsAny(digits, "089") {
					return Tiles{}, fmt.Errorf("honor tiles are 1-7, got %q", digits)
				}
				t.Honors += digits
			}
		default:
			return Tiles{}, fmt.Errorf("unexpected %q in %q", r, s)
		}
	}
	if pending.Len() > 0 {
		return Tiles{}, fmt.Errorf("tiles %q in %q have no suit", pending.String(), s)
	}
	return t, nil
}

// MeldType is the kind of an exposed or concealed meld.
type MeldType string

const (
	Chi   MeldType = "chi"
	Pon   MeldType = "pon"
	Kan   MeldType = "kan"
	Ankan MeldType = "ankan"
)

// Meld is a called set.
type Meld struct {
	Type   MeldType `json:"type"`
	Tiles  Tiles    `json:"tiles"`
	Opened bool     `json:"opened"`
}

// CalculateRequest describes a winning hand for the scoring engine.
type CalculateRequest struct {
	Hand           Tiles      `json:"hand"`
	WinTile        Tiles      `json:"win_tile"`
	Melds          []Meld     `json:"melds"`
	DoraIndicators Tiles      `json:"dora_indicators"`
	PlayerWind     match.Wind `json:"player_wind"`
	RoundWind      match.Wind `json:"round_wind"`
	IsTsumo        bool       `json:"is_tsumo"`
	IsRiichi       bool       `json:"is_riichi"`
	IsIppatsu      bool       `json:"is_ippatsu"`
	IsRinshan      bool       `json:"is_rinshan"`
	IsChankan      bool       `json:"is_chankan"`
	IsHaitei       bool       `json:"is_haitei"`
	IsDaburuRiichi bool       `json:"is_daburu_riichi"`
	IsTenhou       bool       `json:"is_tenhou"`
	IsChiihou      bool       `json:"is_chiihou"`
}

// Validate rejects requests the engine could never score.
func (r CalculateRequest) Validate() error {
	if r.Hand.Empty() {
		return fmt.Errorf("hand is empty")
	}
	if r.WinTile.Count() != 1 {
		return fmt.Errorf("win tile must be exactly one tile, got %q", r.WinTile)
	}
	for i, m := range r.Melds {
		switch m.Type {
		case Chi, Pon, Kan, Ankan:
		default:
			return fmt.Errorf("meld %d: unknown type %q", i, m.Type)
		}
	}
	return nil
}
