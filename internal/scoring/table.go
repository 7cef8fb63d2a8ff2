// Package scoring maps han/fu to point payments for Riichi mahjong.
//
// The lookup is a pure function over two fixed tables (ron and tsumo) keyed by
// the non-dealer figures. Dealer payments are derived from those figures, so
// there is exactly one place where the printed point table lives.
//
// # Basic Usage
//
//	cost, ok := scoring.Lookup(false, 3, 40, false) // {Main: 5200}
//	if !ok {
//	    // han/fu combination is not scorable
//	}
//
// Hands of five han or more are looked up by han alone; fu is ignored.
package scoring

// Cost is the payment structure for a single win.
//
// For ron, Main is what the discarder pays and Additional is always zero.
// For tsumo, Main is what the dealer pays (or every payer when the dealer
// wins) and Additional is what each non-dealer pays.
type Cost struct {
	Main       int `json:"main"`
	Additional int `json:"additional"`
}

// limitFu is the key used for hands at or above mangan, where fu no longer
// matters.
const limitFu = 0

// MaxHan is the highest tier in the table; anything above is clamped to it.
const MaxHan = 13

// tsumoPay is a (dealerPay, nonDealerPay) pair for a non-dealer tsumo.
type tsumoPay [2]int

// Non-dealer ron payments.
var ronTable = map[int]map[int]int{
	1: {30: 1000, 40: 1300, 50: 1600, 60: 2000, 70: 2300, 80: 2600, 90: 2900, 100: 3200, 110: 3600},
	2: {25: 1600, 30: 2000, 40: 2600, 50: 3200, 60: 3900, 70: 4500, 80: 5200, 90: 5800, 100: 6400, 110: 7100},
	3: {25: 3200, 30: 3900, 40: 5200, 50: 6400, 60: 7700, 70: 8000, 80: 8000, 90: 8000, 100: 8000, 110: 8000},
	4: {25: 6400, 30: 7700, 40: 8000, 50: 8000, 60: 8000, 70: 8000, 80: 8000, 90: 8000, 100: 8000, 110: 8000},
	5:  {limitFu: 8000},
	6:  {limitFu: 12000},
	7:  {limitFu: 12000},
	8:  {limitFu: 16000},
	9:  {limitFu: 16000},
	10: {limitFu: 16000},
	11: {limitFu: 24000},
	12: {limitFu: 24000},
	13: {limitFu: 32000},
}

// Non-dealer tsumo payments as (dealer pays, each non-dealer pays).
var tsumoTable = map[int]map[int]tsumoPay{
	1: {30: {500, 300}, 40: {700, 400}, 50: {800, 400}, 60: {1000, 500}, 70: {1200, 600}, 80: {1300, 700}, 90: {1500, 800}, 100: {1600, 800}, 110: {1800, 900}},
	2: {25: {800, 400}, 30: {1000, 500}, 40: {1300, 700}, 50: {1600, 800}, 60: {2000, 1000}, 70: {2300, 1200}, 80: {2600, 1300}, 90: {2900, 1500}, 100: {3200, 1600}, 110: {3600, 1800}},
	3: {25: {1600, 800}, 30: {2000, 1000}, 40: {2600, 1300}, 50: {3200, 1600}, 60: {3900, 2000}, 70: {4000, 2000}, 80: {4000, 2000}, 90: {4000, 2000}, 100: {4000, 2000}, 110: {4000, 2000}},
	4: {25: {3200, 1600}, 30: {3900, 2000}, 40: {4000, 2000}, 50: {4000, 2000}, 60: {4000, 2000}, 70: {4000, 2000}, 80: {4000, 2000}, 90: {4000, 2000}, 100: {4000, 2000}, 110: {4000, 2000}},
	5:  {limitFu: {4000, 2000}},
	6:  {limitFu: {6000, 3000}},
	7:  {limitFu: {6000, 3000}},
	8:  {limitFu: {8000, 4000}},
	9:  {limitFu: {8000, 4000}},
	10: {limitFu: {8000, 4000}},
	11: {limitFu: {12000, 6000}},
	12: {limitFu: {12000, 6000}},
	13: {limitFu: {16000, 8000}},
}

// DealerRonRule selects how a dealer's ron payment is obtained.
type DealerRonRule int

const (
	// DealerRonDerived scales the non-dealer figure by 1.5 and rounds up to
	// the next 100.
	DealerRonDerived DealerRonRule = iota
	// DealerRonCanonical recomputes the payment from base points
	// (base*6 rounded up), matching the printed dealer table.
	DealerRonCanonical
)

// String returns the config name of the rule.
func (r DealerRonRule) String() string {
	switch r {
	case DealerRonDerived:
		return "derived"
	case DealerRonCanonical:
		return "canonical"
	default:
		return "unknown"
	}
}

// ParseDealerRonRule parses a config value. The empty string means derived.
func ParseDealerRonRule(s string) (DealerRonRule, bool) {
	switch s {
	case "", "derived":
		return DealerRonDerived, true
	case "canonical":
		return DealerRonCanonical, true
	default:
		return DealerRonDerived, false
	}
}

// Calculator looks up costs with a configurable dealer ron rule.
// The zero value uses DealerRonDerived.
type Calculator struct {
	DealerRon DealerRonRule
}

// Lookup is Calculator{}.Lookup.
func Lookup(isTsumo bool, han, fu int, isWinnerDealer bool) (Cost, bool) {
	return Calculator{}.Lookup(isTsumo, han, fu, isWinnerDealer)
}

// Lookup returns the payment for a win, or false when the (han, fu)
// combination is not in the table. It never panics.
func (c Calculator) Lookup(isTsumo bool, han, fu int, isWinnerDealer bool) (Cost, bool) {
	han, fu, ok := tableKey(han, fu)
	if !ok {
		return Cost{}, false
	}

	if isTsumo {
		pay, ok := tsumoTable[han][fu]
		if !ok {
			return Cost{}, false
		}
		dealerPay, nonDealerPay := pay[0], pay[1]
		if isWinnerDealer {
			return Cost{Main: dealerPay, Additional: dealerPay}, true
		}
		return Cost{Main: dealerPay, Additional: nonDealerPay}, true
	}

	ron, ok := ronTable[han][fu]
	if !ok {
		return Cost{}, false
	}
	if !isWinnerDealer {
		return Cost{Main: ron}, true
	}
	if c.DealerRon == DealerRonCanonical {
		return Cost{Main: canonicalDealerRon(han, fu)}, true
	}
	return Cost{Main: roundUp100(ron * 3 / 2)}, true
}

// tableKey normalises (han, fu) into the table's key space.
func tableKey(han, fu int) (int, int, bool) {
	if han < 1 {
		return 0, 0, false
	}
	if han > MaxHan {
		han = MaxHan
	}
	if han >= 5 {
		return han, limitFu, true
	}
	return han, fu, true
}

// FuValues lists the scorable fu for a han below mangan, ascending.
// It returns nil for limit hands, where fu does not apply.
func FuValues(han int) []int {
	if han < 1 || han >= 5 {
		return nil
	}
	fus := make([]int, 0, len(ronTable[han]))
	for _, fu := range []int{20, 25, 30, 40, 50, 60, 70, 80, 90, 100, 110} {
		if _, ok := ronTable[han][fu]; ok {
			fus = append(fus, fu)
		}
	}
	return fus
}

// LimitName returns the name of the limit tier for han, or "" below mangan.
func LimitName(han int) string {
	switch {
	case han >= MaxHan:
		return "yakuman"
	case han >= 11:
		return "sanbaiman"
	case han >= 8:
		return "baiman"
	case han >= 6:
		return "haneman"
	case han == 5:
		return "mangan"
	default:
		return ""
	}
}

// BasePoints returns fu * 2^(han+2), capped at the mangan base of 2000.
// Limit hands return their tier's base.
func BasePoints(han, fu int) int {
	switch {
	case han >= MaxHan:
		return 8000
	case han >= 11:
		return 6000
	case han >= 8:
		return 4000
	case han >= 6:
		return 3000
	case han == 5:
		return 2000
	}
	base := fu << (han + 2)
	if base > 2000 {
		return 2000
	}
	return base
}

func canonicalDealerRon(han, fu int) int {
	return roundUp100(BasePoints(han, fu) * 6)
}

// roundUp100 rounds n up to the next multiple of 100. n*1.5 is computed by
// callers as n*3/2, which is exact because every table figure is even.
func roundUp100(n int) int {
	return (n + 99) / 100 * 100
}
