package match

import (
	"context"
	"fmt"

	"github.com/lox/riichiscore/internal/scoring"
)

// ApplyRequest is the input of the apply-score collaborator.
type ApplyRequest struct {
	Scores       [Seats]int   `json:"scores"`
	WinnerIndex  int          `json:"winner_index"`
	LoserIndex   *int         `json:"loser_index,omitempty"`
	DealerIndex  int          `json:"dealer_index"`
	Cost         scoring.Cost `json:"cost"`
	IsTsumo      bool         `json:"is_tsumo"`
	Honba        int          `json:"honba"`
	RiichiSticks int          `json:"riichi_sticks"`
}

// ApplyResponse is the new scores and the per-seat change.
type ApplyResponse struct {
	Scores [Seats]int `json:"scores"`
	Diff   [Seats]int `json:"diff"`
}

// Applier moves points for a win. Implementations must reproduce
// LocalApplier exactly.
type Applier interface {
	Apply(ctx context.Context, req ApplyRequest) (ApplyResponse, error)
}

// ApplierFunc adapts a function to Applier.
type ApplierFunc func(ctx context.Context, req ApplyRequest) (ApplyResponse, error)

// Apply calls f.
func (f ApplierFunc) Apply(ctx context.Context, req ApplyRequest) (ApplyResponse, error) {
	return f(ctx, req)
}

// LocalApplier is the reference point-transfer arithmetic.
type LocalApplier struct{}

// Apply computes the transfer without any I/O.
func (LocalApplier) Apply(_ context.Context, req ApplyRequest) (ApplyResponse, error) {
	if err := req.validate(); err != nil {
		return ApplyResponse{}, err
	}

	diff := TransferDiffs(req)
	resp := ApplyResponse{Diff: diff}
	for i := range req.Scores {
		resp.Scores[i] = req.Scores[i] + diff[i]
	}
	return resp, nil
}

func (req ApplyRequest) validate() error {
	if !validSeat(req.WinnerIndex) || !validSeat(req.DealerIndex) {
		return ErrInvalidSeat
	}
	if req.IsTsumo {
		return nil
	}
	if req.LoserIndex == nil {
		return ErrLoserRequired
	}
	if !validSeat(*req.LoserIndex) {
		return ErrInvalidSeat
	}
	if *req.LoserIndex == req.WinnerIndex {
		return ErrSameSeat
	}
	return nil
}

// TransferDiffs computes the per-seat score change for a validated request.
//
// Ron: the discarder pays main + honba*300, the winner also collects the
// riichi sticks. Tsumo: each payer adds ceil(honba*300/3) to their share.
func TransferDiffs(req ApplyRequest) [Seats]int {
	var diff [Seats]int
	honba := req.Honba * HonbaRonBonus
	pot := req.RiichiSticks * RiichiCost

	if !req.IsTsumo {
		loss := req.Cost.Main + honba
		diff[*req.LoserIndex] = -loss
		diff[req.WinnerIndex] = loss + pot
		return diff
	}

	share := HonbaShare(req.Honba)
	winnerIsDealer := req.WinnerIndex == req.DealerIndex
	total := pot
	for i := 0; i < Seats; i++ {
		if i == req.WinnerIndex {
			continue
		}
		payment := req.Cost.Additional + share
		if winnerIsDealer || i == req.DealerIndex {
			payment = req.Cost.Main + share
		}
		diff[i] = -payment
		total += payment
	}
	diff[req.WinnerIndex] = total
	return diff
}

// HonbaShare is what each tsumo payer adds for the honba counters:
// honba*300 split three ways, rounded up.
func HonbaShare(honba int) int {
	return ceilDiv(honba*HonbaRonBonus, Seats-1)
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// checkResponse verifies that a collaborator's answer is self-consistent.
func checkResponse(req ApplyRequest, resp ApplyResponse) error {
	for i := range req.Scores {
		if resp.Scores[i]-req.Scores[i] != resp.Diff[i] {
			return fmt.Errorf("%w: seat %d moved %d but diff says %d",
				ErrApplier, i, resp.Scores[i]-req.Scores[i], resp.Diff[i])
		}
	}
	return nil
}
