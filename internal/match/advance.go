package match

// nextRound decides what follows a finished hand. It returns the new round
// state, or a non-empty EndReason when the match is over (the round is then
// returned unchanged).
func nextRound(s Snapshot, dealerWon bool) (RoundState, EndReason) {
	r := s.Round

	for _, p := range s.Players {
		if p.Score < 0 {
			return r, EndBust
		}
	}

	top := topScore(s.Players)
	dealer := s.Players[r.DealerIndex].Score

	switch s.GameMode {
	case Tonpu:
		if r.RoundWind == East && r.Round >= 4 {
			if !dealerWon {
				// The 30000 rule sends the match into south instead of
				// ending it while nobody has reached the return score.
				if !s.Enable30000Rule || top >= ReturnScore {
					return r, EndEastFour
				}
			} else if s.Enable30000Rule && dealer >= ReturnScore && dealer >= top {
				return r, EndDealerWinOut
			}
		}
		if r.RoundWind == South {
			if top >= ReturnScore {
				return r, EndExtension
			}
			if r.Round >= 8 && !dealerWon {
				return r, EndSouthFour
			}
		}

	case Hanchan:
		if r.RoundWind == South && r.Round >= 8 {
			if !dealerWon {
				return r, EndSouthFour
			}
			if dealer >= top {
				return r, EndDealerWinOut
			}
		}
	}

	return rotate(r, dealerWon), ""
}

// rotate repeats the dealer (adding a honba) or passes the deal on.
func rotate(r RoundState, dealerWon bool) RoundState {
	if dealerWon {
		r.Honba++
		return r
	}
	r.Honba = 0
	r.DealerIndex = (r.DealerIndex + 1) % Seats
	r.Round++
	if r.Round > 4 && r.RoundWind == East {
		r.RoundWind = South
	}
	return r
}

func topScore(players []Player) int {
	top := players[0].Score
	for _, p := range players[1:] {
		if p.Score > top {
			top = p.Score
		}
	}
	return top
}

// withWinds returns a copy of players with winds recomputed for dealer.
func withWinds(players []Player, dealer int) []Player {
	out := make([]Player, len(players))
	for i, p := range players {
		p.Wind = SeatWind(i, dealer)
		out[i] = p
	}
	return out
}

// withScores returns a copy of players with the given scores.
func withScores(players []Player, scores [Seats]int) []Player {
	out := make([]Player, len(players))
	for i, p := range players {
		p.Score = scores[i]
		out[i] = p
	}
	return out
}
