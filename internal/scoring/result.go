package scoring

import (
	"errors"
	"fmt"
)

// ErrEngine marks a ScoreResult that carries an error from the scoring engine.
var ErrEngine = errors.New("scoring engine rejected hand")

// Yaku is a single scoring pattern reported by the scoring engine.
type Yaku struct {
	Name string `json:"name"`
	Han  int    `json:"han"`
}

// ResultCost is the cost block of a ScoreResult.
type ResultCost struct {
	Main       int `json:"main"`
	Additional int `json:"additional"`
	Total      int `json:"total"`
}

// ScoreResult is the scoring engine's answer for a hand. Only Cost is used
// for point transfer; han/fu consistency is not checked.
type ScoreResult struct {
	Han   int        `json:"han"`
	Fu    int        `json:"fu"`
	Cost  ResultCost `json:"cost"`
	Yaku  []Yaku     `json:"yaku"`
	Error string     `json:"error,omitempty"`
}

// Err returns a wrapped ErrEngine when the engine reported an error.
func (r ScoreResult) Err() error {
	if r.Error == "" {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrEngine, r.Error)
}

// Payment returns the cost as a Cost value.
func (r ScoreResult) Payment() Cost {
	return Cost{Main: r.Cost.Main, Additional: r.Cost.Additional}
}

// ResultFromTable builds a ScoreResult for a manually entered han/fu.
// Total is Main for ron and Main + 2*Additional for tsumo.
func (c Calculator) ResultFromTable(isTsumo bool, han, fu int, isWinnerDealer bool) (ScoreResult, bool) {
	cost, ok := c.Lookup(isTsumo, han, fu, isWinnerDealer)
	if !ok {
		return ScoreResult{}, false
	}
	total := cost.Main
	if isTsumo {
		total = cost.Main + cost.Additional*2
	}
	return ScoreResult{
		Han:  han,
		Fu:   fu,
		Cost: ResultCost{Main: cost.Main, Additional: cost.Additional, Total: total},
		Yaku: []Yaku{},
	}, true
}

// ResultFromTable is Calculator{}.ResultFromTable.
func ResultFromTable(isTsumo bool, han, fu int, isWinnerDealer bool) (ScoreResult, bool) {
	return Calculator{}.ResultFromTable(isTsumo, han, fu, isWinnerDealer)
}

// Describe renders a short human label such as "3han 40fu" or "haneman".
func (r ScoreResult) Describe() string {
	if name := LimitName(r.Han); name != "" {
		return name
	}
	return fmt.Sprintf("%dhan %dfu", r.Han, r.Fu)
}
