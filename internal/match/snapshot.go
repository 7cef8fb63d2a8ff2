package match

import (
	"fmt"
	"time"
)

// SnapshotVersion is the current persisted schema version.
const SnapshotVersion = 1

// Snapshot is the complete persisted match state.
type Snapshot struct {
	Version         int            `json:"version"`
	MatchID         string         `json:"matchId,omitempty"`
	Players         []Player       `json:"players"`
	Round           RoundState     `json:"round"`
	History         []HistoryEntry `json:"history"`
	IsStarted       bool           `json:"isStarted"`
	IsEnded         bool           `json:"isEnded"`
	EndReason       EndReason      `json:"endReason,omitempty"`
	GameMode        GameMode       `json:"gameMode"`
	Enable30000Rule bool           `json:"enable30000Rule"`
	StartedAt       time.Time      `json:"startedAt"`
	EndedAt         time.Time      `json:"endedAt"`
}

// emptySnapshot is the state before startGame and after resetGame.
func emptySnapshot() Snapshot {
	return Snapshot{
		Version:  SnapshotVersion,
		Players:  []Player{},
		Round:    InitialRound(),
		History:  []HistoryEntry{},
		GameMode: Hanchan,
	}
}

// Clone returns a copy that shares no slices with s. History entries are
// immutable and are copied by value.
func (s Snapshot) Clone() Snapshot {
	c := s
	c.Players = append([]Player(nil), s.Players...)
	c.History = append([]HistoryEntry(nil), s.History...)
	if c.Players == nil {
		c.Players = []Player{}
	}
	if c.History == nil {
		c.History = []HistoryEntry{}
	}
	return c
}

// Scores returns the current score of every seat, or zeros before start.
func (s Snapshot) Scores() [Seats]int {
	var scores [Seats]int
	for i := 0; i < len(s.Players) && i < Seats; i++ {
		scores[i] = s.Players[i].Score
	}
	return scores
}

// Dealer returns the dealer player. It panics if the match has not started.
func (s Snapshot) Dealer() Player {
	return s.Players[s.Round.DealerIndex]
}

// Migrate upgrades a decoded snapshot to SnapshotVersion in place.
// Version 0 is the versionless layout, which lacked the mode fields.
func Migrate(s *Snapshot) error {
	switch s.Version {
	case 0:
		if s.GameMode == "" {
			s.GameMode = Hanchan
		}
		if s.Round.Round == 0 {
			s.Round = InitialRound()
		}
		s.Version = SnapshotVersion
		return nil
	case SnapshotVersion:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrSnapshotVersion, s.Version)
	}
}

// Validate checks the state invariants of a snapshot.
func (s Snapshot) Validate() error {
	if len(s.Players) != 0 && len(s.Players) != Seats {
		return fmt.Errorf("%w: %d players", ErrInvalidSnapshot, len(s.Players))
	}
	if s.IsStarted && len(s.Players) != Seats {
		return fmt.Errorf("%w: started match without players", ErrInvalidSnapshot)
	}
	r := s.Round
	if !validSeat(r.DealerIndex) {
		return fmt.Errorf("%w: dealer index %d", ErrInvalidSnapshot, r.DealerIndex)
	}
	if r.Round < 1 || r.Honba < 0 || r.RiichiSticks < 0 {
		return fmt.Errorf("%w: round %+v", ErrInvalidSnapshot, r)
	}
	if _, err := ParseGameMode(string(s.GameMode)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	for i, e := range s.History {
		if e.Result == nil {
			return fmt.Errorf("%w: history entry %d has no result", ErrInvalidSnapshot, i)
		}
	}
	return nil
}
