package match

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/riichiscore/internal/scoring"
)

var testNames = []string{"Aki", "Ben", "Chie", "Dai"}

func newTestMachine(t *testing.T, opts ...Option) (*Machine, *quartz.Mock) {
	t.Helper()
	clock := quartz.NewMock(t)
	opts = append([]Option{WithClock(clock), WithRand(rand.New(rand.NewSource(42)))}, opts...)
	return NewMachine(opts...), clock
}

func startedMachine(t *testing.T, opts ...Option) *Machine {
	t.Helper()
	m, _ := newTestMachine(t, opts...)
	require.NoError(t, m.Start(testNames, StartOptions{}))
	return m
}

// restoredMachine hydrates a machine mid-match.
func restoredMachine(t *testing.T, s Snapshot, opts ...Option) *Machine {
	t.Helper()
	m, _ := newTestMachine(t, opts...)
	require.NoError(t, m.Restore(s))
	return m
}

func midMatch(mode GameMode, rule bool, round RoundState, scores [Seats]int) Snapshot {
	players := make([]Player, Seats)
	for i := range players {
		players[i] = Player{Name: testNames[i], Score: scores[i], Wind: SeatWind(i, round.DealerIndex)}
	}
	s := emptySnapshot()
	s.MatchID = "test-match"
	s.Players = players
	s.Round = round
	s.IsStarted = true
	s.GameMode = mode
	s.Enable30000Rule = rule
	return s
}

func even() [Seats]int {
	return [Seats]int{StartingScore, StartingScore, StartingScore, StartingScore}
}

func tableResult(t *testing.T, isTsumo bool, han, fu int, dealer bool) scoring.ScoreResult {
	t.Helper()
	res, ok := scoring.ResultFromTable(isTsumo, han, fu, dealer)
	require.True(t, ok, "no table entry for %dhan %dfu", han, fu)
	return res
}

func sum(diffs [Seats]int) int {
	total := 0
	for _, d := range diffs {
		total += d
	}
	return total
}

func TestStart(t *testing.T) {
	t.Parallel()

	m, clock := newTestMachine(t)
	require.NoError(t, m.Start([]string{"Aki", "", "Chie", ""}, StartOptions{Mode: Tonpu, Enable30000Rule: true}))

	s := m.Snapshot()
	assert.True(t, s.IsStarted)
	assert.False(t, s.IsEnded)
	assert.Equal(t, Tonpu, s.GameMode)
	assert.True(t, s.Enable30000Rule)
	assert.Equal(t, InitialRound(), s.Round)
	assert.Empty(t, s.History)
	assert.Equal(t, clock.Now(), s.StartedAt)
	assert.NotEmpty(t, s.MatchID)

	wantNames := []string{"Aki", "Player 2", "Chie", "Player 4"}
	wantWinds := []Wind{East, South, West, North}
	for i, p := range s.Players {
		assert.Equal(t, wantNames[i], p.Name)
		assert.Equal(t, StartingScore, p.Score)
		assert.Equal(t, wantWinds[i], p.Wind)
	}
}

func TestStartDefaultsToHanchan(t *testing.T) {
	t.Parallel()

	m := startedMachine(t)
	assert.Equal(t, Hanchan, m.Snapshot().GameMode)
}

func TestStartRejectsBadInput(t *testing.T) {
	t.Parallel()

	m, _ := newTestMachine(t)
	require.ErrorIs(t, m.Start([]string{"a", "b", "c"}, StartOptions{}), ErrPlayerCount)
	require.Error(t, m.Start(testNames, StartOptions{Mode: "yonma"}))
	assert.False(t, m.Snapshot().IsStarted)
}

func TestReset(t *testing.T) {
	t.Parallel()

	m := startedMachine(t)
	_, err := m.AddRiichiStick(0)
	require.NoError(t, err)

	require.NoError(t, m.Reset())
	s := m.Snapshot()
	assert.False(t, s.IsStarted)
	assert.Empty(t, s.Players)
	assert.Empty(t, s.History)
	assert.Equal(t, InitialRound(), s.Round)
}

func TestApplyRon(t *testing.T) {
	t.Parallel()

	m := startedMachine(t)
	entry, err := m.ApplyRon(context.Background(), 1, 2, tableResult(t, false, 1, 30, false))
	require.NoError(t, err)

	ron, ok := entry.Result.(Ron)
	require.True(t, ok)
	assert.Equal(t, [Seats]int{0, 1000, -1000, 0}, ron.ScoreDiffs)
	assert.Zero(t, sum(ron.ScoreDiffs))
	assert.Equal(t, [Seats]int{25000, 26000, 24000, 25000}, entry.ScoresAfter)
	assert.Equal(t, InitialRound(), entry.Round)

	s := m.Snapshot()
	assert.Equal(t, entry.ScoresAfter, s.Scores())
	require.Len(t, s.History, 1)
	assert.Equal(t, entry.ID, s.History[0].ID)
}

func TestApplyRonCollectsHonbaAndSticks(t *testing.T) {
	t.Parallel()

	round := RoundState{Round: 1, Honba: 2, RiichiSticks: 2, RoundWind: East}
	m := restoredMachine(t, midMatch(Hanchan, false, round, even()))

	entry, err := m.ApplyRon(context.Background(), 1, 2, tableResult(t, false, 2, 30, false))
	require.NoError(t, err)

	ron := entry.Result.(Ron)
	assert.Equal(t, [Seats]int{0, 4600, -2600, 0}, ron.ScoreDiffs)
	assert.Equal(t, 2000, ron.PotClaimed)
	assert.Equal(t, ron.PotClaimed, sum(ron.ScoreDiffs))
	assert.Zero(t, sum(ron.ScoreDiffs)+PotDelta(ron))

	s := m.Snapshot()
	assert.Zero(t, s.Round.RiichiSticks)
	assert.Equal(t, 2, s.Round.Honba, "honba is left to advance")
}

func TestApplyRonDealerValue(t *testing.T) {
	t.Parallel()

	m := startedMachine(t)
	entry, err := m.ApplyRon(context.Background(), 0, 3, tableResult(t, false, 3, 40, true))
	require.NoError(t, err)
	assert.Equal(t, [Seats]int{7800, 0, 0, -7800}, entry.Result.Diffs())
}

func TestApplyTsumo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		winner int
		honba  int
		han    int
		fu     int
		want   [Seats]int
	}{
		{name: "non-dealer", winner: 1, han: 1, fu: 30, want: [Seats]int{-500, 1100, -300, -300}},
		{name: "non-dealer with honba", winner: 1, honba: 2, han: 1, fu: 30, want: [Seats]int{-700, 1500, -500, -500}},
		{name: "dealer", winner: 0, han: 2, fu: 30, want: [Seats]int{3000, -1000, -1000, -1000}},
		{name: "dealer with honba", winner: 0, honba: 1, han: 2, fu: 30, want: [Seats]int{3300, -1100, -1100, -1100}},
		{name: "mangan", winner: 3, han: 5, want: [Seats]int{-4000, -2000, -2000, 8000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			round := InitialRound()
			round.Honba = tt.honba
			m := restoredMachine(t, midMatch(Hanchan, false, round, even()))

			entry, err := m.ApplyTsumo(context.Background(), tt.winner, tableResult(t, true, tt.han, tt.fu, tt.winner == 0))
			require.NoError(t, err)
			assert.Equal(t, tt.want, entry.Result.Diffs())
			assert.Zero(t, sum(entry.Result.Diffs()))
		})
	}
}

func TestHonbaShare(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, HonbaShare(0))
	assert.Equal(t, 100, HonbaShare(1))
	assert.Equal(t, 200, HonbaShare(2))
	assert.Equal(t, 500, HonbaShare(5))
}

func TestApplyWinValidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	res := tableResult(t, false, 1, 30, false)

	m, _ := newTestMachine(t)
	_, err := m.ApplyRon(ctx, 1, 2, res)
	require.ErrorIs(t, err, ErrNotStarted)

	m = startedMachine(t)
	_, err = m.ApplyRon(ctx, 1, 1, res)
	require.ErrorIs(t, err, ErrSameSeat)
	_, err = m.ApplyRon(ctx, 1, 4, res)
	require.ErrorIs(t, err, ErrInvalidSeat)
	_, err = m.ApplyRon(ctx, -1, 2, res)
	require.ErrorIs(t, err, ErrInvalidSeat)
	_, err = m.ApplyTsumo(ctx, 7, res)
	require.ErrorIs(t, err, ErrInvalidSeat)
	_, err = m.ApplyRon(ctx, 1, 2, scoring.ScoreResult{Error: "no yaku"})
	require.ErrorIs(t, err, scoring.ErrEngine)

	assert.Empty(t, m.Snapshot().History)
	assert.Equal(t, even(), m.Snapshot().Scores())
}

func TestApplierFailureLeavesStateUnchanged(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection refused")
	tests := []struct {
		name    string
		applier Applier
	}{
		{name: "error", applier: ApplierFunc(func(context.Context, ApplyRequest) (ApplyResponse, error) {
			return ApplyResponse{}, boom
		})},
		{name: "inconsistent response", applier: ApplierFunc(func(_ context.Context, req ApplyRequest) (ApplyResponse, error) {
			return ApplyResponse{Scores: req.Scores, Diff: [Seats]int{0, 1000, -1000, 0}}, nil
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			round := RoundState{Round: 1, RiichiSticks: 1, RoundWind: East}
			m := restoredMachine(t, midMatch(Hanchan, false, round, [Seats]int{24000, 25000, 25000, 25000}), WithApplier(tt.applier))
			before := m.Snapshot()

			_, err := m.ApplyRon(context.Background(), 1, 2, tableResult(t, false, 1, 30, false))
			require.ErrorIs(t, err, ErrApplier)
			assert.Equal(t, before, m.Snapshot())
		})
	}
}

func TestApplierReceivesRequest(t *testing.T) {
	t.Parallel()

	var got ApplyRequest
	applier := ApplierFunc(func(ctx context.Context, req ApplyRequest) (ApplyResponse, error) {
		got = req
		return LocalApplier{}.Apply(ctx, req)
	})
	round := RoundState{Round: 2, Honba: 1, RiichiSticks: 1, RoundWind: East, DealerIndex: 1}
	m := restoredMachine(t, midMatch(Hanchan, false, round, [Seats]int{25000, 24000, 25000, 25000}), WithApplier(applier))

	_, err := m.ApplyTsumo(context.Background(), 3, tableResult(t, true, 2, 30, false))
	require.NoError(t, err)

	assert.Equal(t, [Seats]int{25000, 24000, 25000, 25000}, got.Scores)
	assert.Equal(t, 3, got.WinnerIndex)
	assert.Nil(t, got.LoserIndex)
	assert.Equal(t, 1, got.DealerIndex)
	assert.True(t, got.IsTsumo)
	assert.Equal(t, 1, got.Honba)
	assert.Equal(t, 1, got.RiichiSticks)
	assert.Equal(t, scoring.Cost{Main: 1000, Additional: 500}, got.Cost)
}

func TestBusyRejectsConcurrentMutation(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	release := make(chan struct{})
	applier := ApplierFunc(func(ctx context.Context, req ApplyRequest) (ApplyResponse, error) {
		close(entered)
		<-release
		return LocalApplier{}.Apply(ctx, req)
	})
	m := startedMachine(t, WithApplier(applier))

	res := tableResult(t, false, 1, 30, false)
	errCh := make(chan error, 1)
	go func() {
		_, err := m.ApplyRon(context.Background(), 1, 2, res)
		errCh <- err
	}()
	<-entered

	_, err := m.AddRiichiStick(0)
	require.ErrorIs(t, err, ErrBusy)
	_, err = m.Undo()
	require.ErrorIs(t, err, ErrBusy)
	assert.Empty(t, m.Snapshot().History, "reads see the committed state")

	close(release)
	require.NoError(t, <-errCh)

	ok, err := m.AddRiichiStick(0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, m.Snapshot().History, 2)
}

func TestNotenDiffs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		tenpai []int
		want   [Seats]int
	}{
		{tenpai: nil, want: [Seats]int{}},
		{tenpai: []int{0, 1, 2, 3}, want: [Seats]int{}},
		{tenpai: []int{2}, want: [Seats]int{-1000, -1000, 3000, -1000}},
		{tenpai: []int{0, 3}, want: [Seats]int{1500, -1500, -1500, 1500}},
		{tenpai: []int{3, 1, 0}, want: [Seats]int{1000, 1000, -3000, 1000}},
	}
	for _, tt := range tests {
		got, err := NotenDiffs(tt.tenpai)
		require.NoError(t, err, "tenpai %v", tt.tenpai)
		assert.Equal(t, tt.want, got, "tenpai %v", tt.tenpai)
		assert.Zero(t, sum(got))
	}

	_, err := NotenDiffs([]int{1, 1})
	require.ErrorIs(t, err, ErrInvalidTenpai)
	_, err = NotenDiffs([]int{4})
	require.ErrorIs(t, err, ErrInvalidTenpai)
}

func TestApplyDrawKeepsCounters(t *testing.T) {
	t.Parallel()

	round := RoundState{Round: 3, Honba: 1, RiichiSticks: 2, RoundWind: East, DealerIndex: 2}
	m := restoredMachine(t, midMatch(Hanchan, false, round, [Seats]int{24000, 24000, 25000, 25000}))

	entry, err := m.ApplyDraw([]int{3, 0})
	require.NoError(t, err)

	draw := entry.Result.(Draw)
	assert.Equal(t, []int{0, 3}, draw.TenpaiPlayers)
	assert.Equal(t, [Seats]int{25500, 22500, 23500, 26500}, entry.ScoresAfter)
	assert.Equal(t, round, m.Snapshot().Round)

	_, err = m.ApplyDraw([]int{0, 0})
	require.ErrorIs(t, err, ErrInvalidTenpai)
	assert.Len(t, m.Snapshot().History, 1)
}

func TestAddRiichiStick(t *testing.T) {
	t.Parallel()

	m := startedMachine(t)
	ok, err := m.AddRiichiStick(2)
	require.NoError(t, err)
	require.True(t, ok)

	s := m.Snapshot()
	assert.Equal(t, 1, s.Round.RiichiSticks)
	assert.Equal(t, 24000, s.Players[2].Score)
	require.Len(t, s.History, 1)
	riichi := s.History[0].Result.(Riichi)
	assert.Equal(t, 2, riichi.RiichiPlayerIndex)
	assert.Equal(t, -RiichiCost, sum(riichi.ScoreDiffs))
	assert.Zero(t, sum(riichi.ScoreDiffs)+PotDelta(riichi))

	_, err = m.AddRiichiStick(4)
	require.ErrorIs(t, err, ErrInvalidSeat)
}

func TestAddRiichiStickRefusedBelowCost(t *testing.T) {
	t.Parallel()

	m := restoredMachine(t, midMatch(Hanchan, false, InitialRound(), [Seats]int{500, 30000, 35000, 34500}))
	before := m.Snapshot()

	ok, err := m.AddRiichiStick(0)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, before, m.Snapshot())
}

func TestAdvanceRound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mode      GameMode
		rule      bool
		round     RoundState
		scores    [Seats]int
		dealerWon bool
		want      RoundState
		wantEnd   EndReason
	}{
		{
			name:      "dealer repeat adds honba",
			mode:      Hanchan,
			round:     RoundState{Round: 1, RoundWind: East},
			scores:    even(),
			dealerWon: true,
			want:      RoundState{Round: 1, Honba: 1, RoundWind: East},
		},
		{
			name:   "rotation resets honba and keeps sticks",
			mode:   Hanchan,
			round:  RoundState{Round: 1, Honba: 2, RiichiSticks: 1, RoundWind: East},
			scores: even(),
			want:   RoundState{Round: 2, RiichiSticks: 1, RoundWind: East, DealerIndex: 1},
		},
		{
			name:   "hanchan east 4 rotates into south",
			mode:   Hanchan,
			round:  RoundState{Round: 4, RoundWind: East, DealerIndex: 3},
			scores: even(),
			want:   RoundState{Round: 5, RoundWind: South},
		},
		{
			name:    "tonpu east 4 ends",
			mode:    Tonpu,
			round:   RoundState{Round: 4, RoundWind: East, DealerIndex: 3},
			scores:  [Seats]int{28000, 26000, 24000, 22000},
			wantEnd: EndEastFour,
		},
		{
			name:   "tonpu 30000 rule extends into south",
			mode:   Tonpu,
			rule:   true,
			round:  RoundState{Round: 4, RoundWind: East, DealerIndex: 3},
			scores: [Seats]int{28000, 26000, 24000, 22000},
			want:   RoundState{Round: 5, RoundWind: South},
		},
		{
			name:    "tonpu 30000 rule satisfied ends",
			mode:    Tonpu,
			rule:    true,
			round:   RoundState{Round: 4, RoundWind: East, DealerIndex: 3},
			scores:  [Seats]int{31000, 25000, 24000, 20000},
			wantEnd: EndEastFour,
		},
		{
			name:      "tonpu dealer win-and-out",
			mode:      Tonpu,
			rule:      true,
			round:     RoundState{Round: 4, RoundWind: East, DealerIndex: 3},
			scores:    [Seats]int{20000, 20000, 25000, 35000},
			dealerWon: true,
			wantEnd:   EndDealerWinOut,
		},
		{
			name:      "tonpu dealer win without 30000 rule repeats",
			mode:      Tonpu,
			round:     RoundState{Round: 4, RoundWind: East, DealerIndex: 3},
			scores:    [Seats]int{20000, 20000, 25000, 35000},
			dealerWon: true,
			want:      RoundState{Round: 4, Honba: 1, RoundWind: East, DealerIndex: 3},
		},
		{
			name:    "tonpu extension ends at 30000",
			mode:    Tonpu,
			rule:    true,
			round:   RoundState{Round: 5, RoundWind: South},
			scores:  [Seats]int{30000, 25000, 25000, 20000},
			wantEnd: EndExtension,
		},
		{
			name:   "tonpu extension continues below 30000",
			mode:   Tonpu,
			rule:   true,
			round:  RoundState{Round: 5, RoundWind: South},
			scores: [Seats]int{29000, 27000, 24000, 20000},
			want:   RoundState{Round: 6, RoundWind: South, DealerIndex: 1},
		},
		{
			name:    "tonpu extension ends at south 4",
			mode:    Tonpu,
			rule:    true,
			round:   RoundState{Round: 8, RoundWind: South, DealerIndex: 3},
			scores:  [Seats]int{29000, 27000, 24000, 20000},
			wantEnd: EndSouthFour,
		},
		{
			name:    "hanchan south 4 ends",
			mode:    Hanchan,
			round:   RoundState{Round: 8, RoundWind: South, DealerIndex: 3},
			scores:  even(),
			wantEnd: EndSouthFour,
		},
		{
			name:      "hanchan all-last dealer on top wins out",
			mode:      Hanchan,
			round:     RoundState{Round: 8, RoundWind: South, DealerIndex: 3},
			scores:    [Seats]int{20000, 20000, 20000, 40000},
			dealerWon: true,
			wantEnd:   EndDealerWinOut,
		},
		{
			name:      "hanchan all-last dealer behind repeats",
			mode:      Hanchan,
			round:     RoundState{Round: 8, RoundWind: South, DealerIndex: 3},
			scores:    [Seats]int{40000, 20000, 20000, 20000},
			dealerWon: true,
			want:      RoundState{Round: 8, Honba: 1, RoundWind: South, DealerIndex: 3},
		},
		{
			name:      "bust ends",
			mode:      Hanchan,
			round:     RoundState{Round: 2, RoundWind: East, DealerIndex: 1},
			scores:    [Seats]int{-100, 40100, 30000, 30000},
			dealerWon: true,
			wantEnd:   EndBust,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m, clock := newTestMachine(t)
			require.NoError(t, m.Restore(midMatch(tt.mode, tt.rule, tt.round, tt.scores)))

			require.NoError(t, m.AdvanceRound(tt.dealerWon))
			s := m.Snapshot()

			if tt.wantEnd != "" {
				assert.True(t, s.IsEnded)
				assert.Equal(t, tt.wantEnd, s.EndReason)
				assert.Equal(t, clock.Now(), s.EndedAt)
				assert.Equal(t, tt.round, s.Round)
				return
			}
			assert.False(t, s.IsEnded)
			assert.Empty(t, s.EndReason)
			assert.Equal(t, tt.want, s.Round)
			for i, p := range s.Players {
				assert.Equal(t, SeatWind(i, tt.want.DealerIndex), p.Wind, "seat %d", i)
			}
		})
	}
}

func TestEndedMatchRejectsPlay(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := restoredMachine(t, midMatch(Tonpu, false, RoundState{Round: 4, RoundWind: East, DealerIndex: 3}, even()))
	require.NoError(t, m.AdvanceRound(false))
	require.True(t, m.Snapshot().IsEnded)

	_, err := m.ApplyRon(ctx, 0, 1, tableResult(t, false, 1, 30, false))
	require.ErrorIs(t, err, ErrMatchEnded)
	_, err = m.ApplyTsumo(ctx, 0, tableResult(t, true, 1, 30, false))
	require.ErrorIs(t, err, ErrMatchEnded)
	_, err = m.ApplyDraw(nil)
	require.ErrorIs(t, err, ErrMatchEnded)
	_, err = m.AddRiichiStick(0)
	require.ErrorIs(t, err, ErrMatchEnded)
	require.ErrorIs(t, m.AdvanceRound(false), ErrMatchEnded)

	require.NoError(t, m.Reset())
	assert.False(t, m.Snapshot().IsEnded)
}

func TestUndoSingleRon(t *testing.T) {
	t.Parallel()

	m := startedMachine(t)
	_, err := m.ApplyRon(context.Background(), 1, 2, tableResult(t, false, 3, 40, false))
	require.NoError(t, err)

	ok, err := m.Undo()
	require.NoError(t, err)
	assert.True(t, ok)

	s := m.Snapshot()
	assert.Equal(t, even(), s.Scores())
	assert.Empty(t, s.History)
}

func TestUndoEmptyHistory(t *testing.T) {
	t.Parallel()

	m := startedMachine(t)
	before := m.Snapshot()

	ok, err := m.Undo()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, before, m.Snapshot())
}

func TestUndoRestoresRiichiStick(t *testing.T) {
	t.Parallel()

	m := startedMachine(t)
	_, err := m.AddRiichiStick(1)
	require.NoError(t, err)

	_, err = m.Undo()
	require.NoError(t, err)
	s := m.Snapshot()
	assert.Zero(t, s.Round.RiichiSticks)
	assert.Equal(t, StartingScore, s.Players[1].Score)
}

// Undo restores scores from the entry that becomes last. The round comes from
// the removed entry by default, or from the new last entry with
// UndoRoundFromPrevious; the two differ once a hand has been advanced.
func TestUndoRoundPolicies(t *testing.T) {
	t.Parallel()

	east1 := InitialRound()
	east2 := RoundState{Round: 2, RoundWind: East, DealerIndex: 1}

	tests := []struct {
		name      string
		policy    UndoPolicy
		wantRound RoundState
	}{
		{name: "popped", policy: UndoRoundFromPopped, wantRound: east2},
		{name: "previous", policy: UndoRoundFromPrevious, wantRound: east1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			m := startedMachine(t, WithUndoPolicy(tt.policy))

			first, err := m.RecordWin(ctx, WinRecord{WinnerIndex: 1, LoserIndex: 2, Result: tableResult(t, false, 1, 30, false)})
			require.NoError(t, err)
			require.Equal(t, east2, m.Snapshot().Round)

			_, err = m.ApplyRon(ctx, 3, 0, tableResult(t, false, 2, 30, false))
			require.NoError(t, err)

			ok, err := m.Undo()
			require.NoError(t, err)
			require.True(t, ok)

			s := m.Snapshot()
			assert.Equal(t, first.ScoresAfter, s.Scores())
			assert.Equal(t, tt.wantRound, s.Round)
			for i, p := range s.Players {
				assert.Equal(t, SeatWind(i, tt.wantRound.DealerIndex), p.Wind)
			}
		})
	}
}

func TestUndoClearsMatchEnd(t *testing.T) {
	t.Parallel()

	s := midMatch(Hanchan, false, InitialRound(), [Seats]int{1000, 25000, 25000, 49000})
	s.History = []HistoryEntry{{
		ID:          "earlier",
		Round:       InitialRound(),
		Result:      Draw{TenpaiPlayers: []int{}},
		ScoresAfter: [Seats]int{1000, 25000, 25000, 49000},
	}}
	m := restoredMachine(t, s)

	_, err := m.RecordWin(context.Background(), WinRecord{WinnerIndex: 1, LoserIndex: 0, Result: tableResult(t, false, 5, 0, false)})
	require.NoError(t, err)
	ended := m.Snapshot()
	require.True(t, ended.IsEnded)
	require.Equal(t, EndBust, ended.EndReason)

	ok, err := m.Undo()
	require.NoError(t, err)
	require.True(t, ok)

	after := m.Snapshot()
	assert.False(t, after.IsEnded)
	assert.Empty(t, after.EndReason)
	assert.True(t, after.EndedAt.IsZero())
	assert.Equal(t, [Seats]int{1000, 25000, 25000, 49000}, after.Scores())
}

func TestFullRewind(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := startedMachine(t)
	start := m.Snapshot()

	_, err := m.AddRiichiStick(0)
	require.NoError(t, err)
	_, err = m.RecordWin(ctx, WinRecord{WinnerIndex: 1, LoserIndex: 0, Result: tableResult(t, false, 2, 40, false)})
	require.NoError(t, err)
	_, err = m.RecordDraw([]int{2, 3})
	require.NoError(t, err)
	_, err = m.AddRiichiStick(3)
	require.NoError(t, err)
	_, err = m.ApplyTsumo(ctx, 3, tableResult(t, true, 4, 30, false))
	require.NoError(t, err)

	n := len(m.Snapshot().History)
	require.Equal(t, 5, n)
	for i := 0; i < n; i++ {
		ok, err := m.Undo()
		require.NoError(t, err)
		require.True(t, ok)
	}

	end := m.Snapshot()
	assert.Equal(t, start.Players, end.Players)
	assert.Equal(t, start.Round, end.Round)
	assert.Empty(t, end.History)
	assert.Equal(t, start.IsStarted, end.IsStarted)
	assert.Equal(t, start.IsEnded, end.IsEnded)
}

func TestConservation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := startedMachine(t)

	steps := []func() error{
		func() error { _, err := m.AddRiichiStick(0); return err },
		func() error { _, err := m.AddRiichiStick(1); return err },
		func() error {
			_, err := m.RecordWin(ctx, WinRecord{WinnerIndex: 2, LoserIndex: 3, Result: tableResult(t, false, 3, 30, false)})
			return err
		},
		func() error { _, err := m.RecordDraw([]int{0}); return err },
		func() error { _, err := m.AddRiichiStick(1); return err },
		func() error { _, err := m.RecordDraw([]int{1, 2}); return err },
		func() error {
			_, err := m.RecordWin(ctx, WinRecord{WinnerIndex: 1, IsTsumo: true, Result: tableResult(t, true, 1, 40, false)})
			return err
		},
	}
	for i, step := range steps {
		require.NoError(t, step(), "step %d", i)

		s := m.Snapshot()
		total := s.Round.RiichiSticks * RiichiCost
		for _, score := range s.Scores() {
			total += score
		}
		assert.Equal(t, Seats*StartingScore, total, "step %d", i)
	}

	var net int
	for _, e := range m.Snapshot().History {
		assert.Zero(t, sum(e.Result.Diffs())+PotDelta(e.Result), "entry %s", e.ID)
		net += sum(e.Result.Diffs())
	}
	assert.Equal(t, -m.Snapshot().Round.RiichiSticks*RiichiCost, net)
}

func TestRecordWinAdvances(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := startedMachine(t)

	_, err := m.RecordWin(ctx, WinRecord{WinnerIndex: 0, IsTsumo: true, Result: tableResult(t, true, 1, 30, true)})
	require.NoError(t, err)
	assert.Equal(t, RoundState{Round: 1, Honba: 1, RoundWind: East}, m.Snapshot().Round)

	_, err = m.RecordWin(ctx, WinRecord{WinnerIndex: 2, LoserIndex: 0, Result: tableResult(t, false, 1, 30, false)})
	require.NoError(t, err)
	assert.Equal(t, RoundState{Round: 2, RoundWind: East, DealerIndex: 1}, m.Snapshot().Round)

	_, err = m.RecordDraw([]int{1})
	require.NoError(t, err)
	assert.Equal(t, RoundState{Round: 2, Honba: 1, RoundWind: East, DealerIndex: 1}, m.Snapshot().Round)
}

func TestSubscribersSeeCommittedTransitions(t *testing.T) {
	t.Parallel()

	var events []Event
	m, _ := newTestMachine(t, WithSubscriber(SubscriberFunc(func(e Event) {
		events = append(events, e)
	})))

	require.NoError(t, m.Start(testNames, StartOptions{}))
	_, err := m.AddRiichiStick(0)
	require.NoError(t, err)
	_, err = m.RecordWin(context.Background(), WinRecord{WinnerIndex: 0, LoserIndex: 1, Result: tableResult(t, false, 1, 30, true)})
	require.NoError(t, err)
	_, err = m.Undo()
	require.NoError(t, err)
	_, err = m.AddRiichiStick(9)
	require.Error(t, err)
	require.NoError(t, m.Reset())

	var types []EventType
	for _, e := range events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []EventType{
		EventMatchStarted,
		EventEntryAppended,
		EventEntryAppended,
		EventRoundAdvanced,
		EventUndone,
		EventMatchReset,
	}, types)

	matchID := events[0].MatchID
	for _, e := range events {
		assert.Equal(t, matchID, e.MatchID)
	}
	require.NotNil(t, events[2].Entry)
	assert.Equal(t, KindRon, events[2].Entry.Result.Kind())
	assert.Equal(t, 1, events[3].Snapshot.Round.Honba)
	require.NotNil(t, events[4].Entry)
	assert.Equal(t, events[2].Entry.ID, events[4].Entry.ID)
}

func TestSnapshotJSONRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := startedMachine(t)
	_, err := m.AddRiichiStick(3)
	require.NoError(t, err)
	_, err = m.RecordWin(ctx, WinRecord{WinnerIndex: 3, LoserIndex: 1, Result: tableResult(t, false, 2, 30, false)})
	require.NoError(t, err)
	_, err = m.RecordDraw([]int{0, 2})
	require.NoError(t, err)
	_, err = m.ApplyTsumo(ctx, 2, tableResult(t, true, 6, 0, false))
	require.NoError(t, err)

	before := m.Snapshot()
	data, err := json.Marshal(before)
	require.NoError(t, err)

	var decoded Snapshot
	require.NoError(t, json.Unmarshal(data, &decoded))

	restored := restoredMachine(t, decoded)
	after := restored.Snapshot()

	assert.Equal(t, before.MatchID, after.MatchID)
	assert.Equal(t, before.Players, after.Players)
	assert.Equal(t, before.Round, after.Round)
	assert.True(t, before.StartedAt.Equal(after.StartedAt))
	require.Len(t, after.History, len(before.History))
	for i := range before.History {
		b, a := before.History[i], after.History[i]
		assert.Equal(t, b.ID, a.ID)
		assert.True(t, b.Timestamp.Equal(a.Timestamp))
		assert.Equal(t, b.Round, a.Round)
		assert.Equal(t, b.Result, a.Result)
		assert.Equal(t, b.ScoresAfter, a.ScoresAfter)
	}
}

func TestRestoreRejectsBadSnapshots(t *testing.T) {
	t.Parallel()

	m, _ := newTestMachine(t)

	future := midMatch(Hanchan, false, InitialRound(), even())
	future.Version = SnapshotVersion + 1
	require.ErrorIs(t, m.Restore(future), ErrSnapshotVersion)

	bad := midMatch(Hanchan, false, InitialRound(), even())
	bad.Round.DealerIndex = 5
	require.ErrorIs(t, m.Restore(bad), ErrInvalidSnapshot)

	legacy := midMatch("", false, InitialRound(), even())
	legacy.Version = 0
	require.NoError(t, m.Restore(legacy))
	assert.Equal(t, Hanchan, m.Snapshot().GameMode)
	assert.Equal(t, SnapshotVersion, m.Snapshot().Version)
}

func TestStandings(t *testing.T) {
	t.Parallel()

	m := restoredMachine(t, midMatch(Hanchan, false, InitialRound(), [Seats]int{20000, 30000, 20000, 30000}))
	got := m.Standings()

	want := []Standing{
		{Rank: 1, Seat: 1, Name: "Ben", Score: 30000},
		{Rank: 2, Seat: 3, Name: "Dai", Score: 30000},
		{Rank: 3, Seat: 0, Name: "Aki", Score: 20000},
		{Rank: 4, Seat: 2, Name: "Chie", Score: 20000},
	}
	assert.Equal(t, want, got)
}

func TestDuration(t *testing.T) {
	t.Parallel()

	m, clock := newTestMachine(t)
	assert.Zero(t, m.Duration())

	require.NoError(t, m.Start(testNames, StartOptions{Mode: Tonpu}))
	clock.Advance(10 * time.Minute)
	assert.Equal(t, 10*time.Minute, m.Duration())
}

func TestParseUndoPolicy(t *testing.T) {
	t.Parallel()

	p, err := ParseUndoPolicy("")
	require.NoError(t, err)
	assert.Equal(t, UndoRoundFromPopped, p)

	p, err = ParseUndoPolicy("previous")
	require.NoError(t, err)
	assert.Equal(t, UndoRoundFromPrevious, p)

	_, err = ParseUndoPolicy("latest")
	require.Error(t, err)
}
