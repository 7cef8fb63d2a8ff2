package match

import (
	"fmt"

	"github.com/lox/riichiscore/internal/scoring"
)

// TableResult builds a ScoreResult for a manually entered han/fu, deciding
// the dealer payment from the current dealer.
func (s Snapshot) TableResult(calc scoring.Calculator, isTsumo bool, winner, han, fu int) (scoring.ScoreResult, error) {
	if !validSeat(winner) {
		return scoring.ScoreResult{}, fmt.Errorf("%w: winner %d", ErrInvalidSeat, winner)
	}
	res, ok := calc.ResultFromTable(isTsumo, han, fu, winner == s.Round.DealerIndex)
	if !ok {
		return scoring.ScoreResult{}, fmt.Errorf("%w: %d han %d fu", ErrUncomputable, han, fu)
	}
	return res, nil
}
