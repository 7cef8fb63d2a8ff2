package match

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lox/riichiscore/internal/scoring"
)

// ResultKind tags a Result variant.
type ResultKind string

const (
	KindRon    ResultKind = "ron"
	KindTsumo  ResultKind = "tsumo"
	KindDraw   ResultKind = "draw"
	KindRiichi ResultKind = "riichi"
)

// Result is the outcome recorded in a history entry. It is one of Ron,
// Tsumo, Draw or Riichi.
type Result interface {
	Kind() ResultKind
	// Diffs is the per-seat score change caused by the event.
	Diffs() [Seats]int
	isResult()
}

// Ron is a win off a discard.
type Ron struct {
	WinnerIndex int                 `json:"winnerIndex"`
	LoserIndex  int                 `json:"loserIndex"`
	ScoreResult scoring.ScoreResult `json:"scoreResult"`
	ScoreDiffs  [Seats]int          `json:"scoreDiffs"`
	// PotClaimed is the riichi deposit taken from the table.
	PotClaimed int `json:"potClaimed"`
}

// Tsumo is a self-drawn win.
type Tsumo struct {
	WinnerIndex int                 `json:"winnerIndex"`
	ScoreResult scoring.ScoreResult `json:"scoreResult"`
	ScoreDiffs  [Seats]int          `json:"scoreDiffs"`
	PotClaimed  int                 `json:"potClaimed"`
}

// Draw is an exhaustive draw with noten payments.
type Draw struct {
	TenpaiPlayers []int      `json:"tenpaiPlayers"`
	ScoreDiffs    [Seats]int `json:"scoreDiffs"`
}

// Riichi is a riichi declaration; the deposit leaves the player and sits on
// the table.
type Riichi struct {
	RiichiPlayerIndex int        `json:"riichiPlayerIndex"`
	ScoreDiffs        [Seats]int `json:"scoreDiffs"`
}

func (Ron) Kind() ResultKind    { return KindRon }
func (Tsumo) Kind() ResultKind  { return KindTsumo }
func (Draw) Kind() ResultKind   { return KindDraw }
func (Riichi) Kind() ResultKind { return KindRiichi }

func (r Ron) Diffs() [Seats]int    { return r.ScoreDiffs }
func (r Tsumo) Diffs() [Seats]int  { return r.ScoreDiffs }
func (r Draw) Diffs() [Seats]int   { return r.ScoreDiffs }
func (r Riichi) Diffs() [Seats]int { return r.ScoreDiffs }

func (Ron) isResult()    {}
func (Tsumo) isResult()  {}
func (Draw) isResult()   {}
func (Riichi) isResult() {}

// PotDelta is the change in riichi sticks on the table, in points, caused
// by r. Player diffs plus PotDelta always sum to zero.
func PotDelta(r Result) int {
	switch v := r.(type) {
	case Ron:
		return -v.PotClaimed
	case Tsumo:
		return -v.PotClaimed
	case Draw:
		return 0
	case Riichi:
		return RiichiCost
	default:
		panic(fmt.Sprintf("match: unknown result %T", r))
	}
}

// HistoryEntry is one resolved match event. Entries are immutable once
// appended.
type HistoryEntry struct {
	ID        string
	Timestamp time.Time
	// Round is the round state when the event was recorded, before the event
	// took effect.
	Round       RoundState
	Result      Result
	ScoresAfter [Seats]int
}

type historyEntryJSON struct {
	ID          string          `json:"id"`
	Timestamp   time.Time       `json:"timestamp"`
	Round       RoundState      `json:"round"`
	Result      json.RawMessage `json:"result"`
	ScoresAfter [Seats]int      `json:"scoresAfter"`
}

// MarshalJSON encodes the result with a "type" discriminator.
func (e HistoryEntry) MarshalJSON() ([]byte, error) {
	result, err := marshalResult(e.Result)
	if err != nil {
		return nil, err
	}
	return json.Marshal(historyEntryJSON{
		ID:          e.ID,
		Timestamp:   e.Timestamp,
		Round:       e.Round,
		Result:      result,
		ScoresAfter: e.ScoresAfter,
	})
}

// UnmarshalJSON decodes an entry written by MarshalJSON.
func (e *HistoryEntry) UnmarshalJSON(data []byte) error {
	var raw historyEntryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result, err := unmarshalResult(raw.Result)
	if err != nil {
		return fmt.Errorf("history entry %s: %w", raw.ID, err)
	}
	*e = HistoryEntry{
		ID:          raw.ID,
		Timestamp:   raw.Timestamp,
		Round:       raw.Round,
		Result:      result,
		ScoresAfter: raw.ScoresAfter,
	}
	return nil
}

func marshalResult(r Result) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("history entry has no result")
	}
	body, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	kind, _ := json.Marshal(r.Kind())
	fields["type"] = kind
	return json.Marshal(fields)
}

func unmarshalResult(data []byte) (Result, error) {
	var tag struct {
		Type ResultKind `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, err
	}
	switch tag.Type {
	case KindRon:
		var r Ron
		err := json.Unmarshal(data, &r)
		return r, err
	case KindTsumo:
		var r Tsumo
		err := json.Unmarshal(data, &r)
		return r, err
	case KindDraw:
		var r Draw
		err := json.Unmarshal(data, &r)
		return r, err
	case KindRiichi:
		var r Riichi
		err := json.Unmarshal(data, &r)
		return r, err
	default:
		return nil, fmt.Errorf("unknown result type %q", tag.Type)
	}
}
