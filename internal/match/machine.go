package match

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/riichiscore/internal/eventid"
	"github.com/lox/riichiscore/internal/scoring"
)

// UndoPolicy selects where undo takes the round state from.
type UndoPolicy int

const (
	// UndoRoundFromPopped restores the round recorded on the removed entry,
	// i.e. the round as it was when that event happened.
	UndoRoundFromPopped UndoPolicy = iota
	// UndoRoundFromPrevious restores the round recorded on the entry that
	// becomes the last one, mirroring where scores are restored from.
	UndoRoundFromPrevious
)

// ParseUndoPolicy parses "popped" or "previous"; empty means popped.
func ParseUndoPolicy(s string) (UndoPolicy, error) {
	switch s {
	case "", "popped":
		return UndoRoundFromPopped, nil
	case "previous":
		return UndoRoundFromPrevious, nil
	default:
		return UndoRoundFromPopped, fmt.Errorf("unknown undo policy %q", s)
	}
}

// StartOptions configures a new match.
type StartOptions struct {
	Mode            GameMode
	Enable30000Rule bool
}

// Option configures a Machine during creation.
type Option func(*Machine)

// WithClock sets the clock used for timestamps and ids.
func WithClock(clock quartz.Clock) Option {
	return func(m *Machine) { m.clock = clock }
}

// WithApplier sets the apply-score collaborator. Default is LocalApplier.
func WithApplier(a Applier) Option {
	return func(m *Machine) { m.applier = a }
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(m *Machine) { m.logger = logger.WithPrefix("match") }
}

// WithUndoPolicy sets the undo round policy.
func WithUndoPolicy(p UndoPolicy) Option {
	return func(m *Machine) { m.undoPolicy = p }
}

// WithSubscriber registers a subscriber for committed transitions.
func WithSubscriber(s Subscriber) Option {
	return func(m *Machine) { m.subscribers = append(m.subscribers, s) }
}

// WithRand makes generated ids deterministic.
func WithRand(rng *rand.Rand) Option {
	return func(m *Machine) { m.rng = rng }
}

// Machine owns the authoritative match state and applies transitions.
//
// Mutations are serialized: one that arrives while another is still running
// (typically waiting on a remote Applier) fails with ErrBusy.
type Machine struct {
	mu       sync.RWMutex
	inFlight atomic.Bool
	state    Snapshot

	applier     Applier
	clock       quartz.Clock
	rng         *rand.Rand
	ids         *eventid.Generator
	logger      *log.Logger
	undoPolicy  UndoPolicy
	subscribers []Subscriber
}

// NewMachine creates a machine with no match in progress.
func NewMachine(opts ...Option) *Machine {
	m := &Machine{
		state:   emptySnapshot(),
		applier: LocalApplier{},
		clock:   quartz.NewReal(),
		logger:  log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(m)
	}
	var src eventid.RandSource
	if m.rng != nil {
		src = m.rng
	}
	m.ids = eventid.NewGenerator(m.clock, src)
	return m
}

// Subscribe registers a subscriber after construction.
func (m *Machine) Subscribe(s Subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, s)
}

// Snapshot returns a copy of the current state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Clone()
}

// Restore replaces the state with a persisted snapshot. It is meant for
// one-time hydration before the machine accepts operations.
func (m *Machine) Restore(s Snapshot) error {
	if err := Migrate(&s); err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}
	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()

	m.mu.Lock()
	m.state = s.Clone()
	m.mu.Unlock()
	m.logger.Debug("Restored match", "matchID", s.MatchID, "history", len(s.History))
	return nil
}

func (m *Machine) begin() error {
	if !m.inFlight.CompareAndSwap(false, true) {
		return ErrBusy
	}
	return nil
}

func (m *Machine) end() {
	m.inFlight.Store(false)
}

// Start begins a new match with four players at StartingScore.
func (m *Machine) Start(names []string, opts StartOptions) error {
	if len(names) != Seats {
		return fmt.Errorf("%w: got %d", ErrPlayerCount, len(names))
	}
	mode, err := ParseGameMode(string(opts.Mode))
	if err != nil {
		return err
	}
	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()

	players := make([]Player, Seats)
	for i, name := range names {
		if name == "" {
			name = fmt.Sprintf("Player %d", i+1)
		}
		players[i] = Player{Name: name, Score: StartingScore, Wind: SeatWind(i, 0)}
	}

	s := emptySnapshot()
	s.MatchID = m.ids.New()
	s.Players = players
	s.IsStarted = true
	s.GameMode = mode
	s.Enable30000Rule = opts.Enable30000Rule
	s.StartedAt = m.clock.Now()

	m.commit(s)
	m.logger.Info("Match started", "matchID", s.MatchID, "mode", mode, "rule30000", opts.Enable30000Rule)
	m.publish(EventMatchStarted, s, nil)
	return nil
}

// Reset discards the match.
func (m *Machine) Reset() error {
	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()

	prev := m.Snapshot()
	s := emptySnapshot()
	m.commit(s)
	m.logger.Info("Match reset", "matchID", prev.MatchID)
	m.publishFor(prev.MatchID, EventMatchReset, s, nil)
	return nil
}

// ApplyRon transfers points from loser to winner. The transfer is computed by
// the Applier; nothing changes if it fails.
func (m *Machine) ApplyRon(ctx context.Context, winner, loser int, result scoring.ScoreResult) (HistoryEntry, error) {
	if err := m.begin(); err != nil {
		return HistoryEntry{}, err
	}
	defer m.end()
	return m.doWin(ctx, winner, &loser, result)
}

// ApplyTsumo collects payments from the three other seats.
func (m *Machine) ApplyTsumo(ctx context.Context, winner int, result scoring.ScoreResult) (HistoryEntry, error) {
	if err := m.begin(); err != nil {
		return HistoryEntry{}, err
	}
	defer m.end()
	return m.doWin(ctx, winner, nil, result)
}

// doWin handles ron (loser != nil) and tsumo. The caller holds the in-flight
// guard, so the state cannot change while the Applier runs.
func (m *Machine) doWin(ctx context.Context, winner int, loser *int, result scoring.ScoreResult) (HistoryEntry, error) {
	s := m.Snapshot()
	if err := s.checkPlayable(); err != nil {
		return HistoryEntry{}, err
	}
	if !validSeat(winner) {
		return HistoryEntry{}, fmt.Errorf("%w: winner %d", ErrInvalidSeat, winner)
	}
	if loser != nil {
		if !validSeat(*loser) {
			return HistoryEntry{}, fmt.Errorf("%w: discarder %d", ErrInvalidSeat, *loser)
		}
		if *loser == winner {
			return HistoryEntry{}, ErrSameSeat
		}
	}
	if err := result.Err(); err != nil {
		return HistoryEntry{}, err
	}

	req := ApplyRequest{
		Scores:       s.Scores(),
		WinnerIndex:  winner,
		LoserIndex:   loser,
		DealerIndex:  s.Round.DealerIndex,
		Cost:         result.Payment(),
		IsTsumo:      loser == nil,
		Honba:        s.Round.Honba,
		RiichiSticks: s.Round.RiichiSticks,
	}
	resp, err := m.applier.Apply(ctx, req)
	if err != nil {
		m.logger.Warn("Apply-score failed, state unchanged", "error", err)
		return HistoryEntry{}, fmt.Errorf("%w: %w", ErrApplier, err)
	}
	if err := checkResponse(req, resp); err != nil {
		return HistoryEntry{}, err
	}

	pot := s.Round.RiichiSticks * RiichiCost
	var res Result
	if loser != nil {
		res = Ron{WinnerIndex: winner, LoserIndex: *loser, ScoreResult: result, ScoreDiffs: resp.Diff, PotClaimed: pot}
	} else {
		res = Tsumo{WinnerIndex: winner, ScoreResult: result, ScoreDiffs: resp.Diff, PotClaimed: pot}
	}

	entry := m.newEntry(s.Round, res, resp.Scores)
	s.Players = withScores(s.Players, resp.Scores)
	s.Round.RiichiSticks = 0
	s.History = append(s.History, entry)

	m.commit(s)
	m.logger.Debug("Win applied", "kind", res.Kind(), "winner", winner, "diffs", resp.Diff)
	m.publish(EventEntryAppended, s, &entry)
	return entry, nil
}

// ApplyDraw settles noten payments for an exhaustive draw. Riichi sticks
// stay on the table and honba is left to AdvanceRound.
func (m *Machine) ApplyDraw(tenpai []int) (HistoryEntry, error) {
	if err := m.begin(); err != nil {
		return HistoryEntry{}, err
	}
	defer m.end()
	return m.doDraw(tenpai)
}

func (m *Machine) doDraw(tenpai []int) (HistoryEntry, error) {
	s := m.Snapshot()
	if err := s.checkPlayable(); err != nil {
		return HistoryEntry{}, err
	}
	diffs, err := NotenDiffs(tenpai)
	if err != nil {
		return HistoryEntry{}, err
	}

	scores := s.Scores()
	for i := range scores {
		scores[i] += diffs[i]
	}
	sorted := slices.Clone(tenpai)
	slices.Sort(sorted)
	if sorted == nil {
		sorted = []int{}
	}

	entry := m.newEntry(s.Round, Draw{TenpaiPlayers: sorted, ScoreDiffs: diffs}, scores)
	s.Players = withScores(s.Players, scores)
	s.History = append(s.History, entry)

	m.commit(s)
	m.logger.Debug("Draw applied", "tenpai", sorted, "diffs", diffs)
	m.publish(EventEntryAppended, s, &entry)
	return entry, nil
}

// NotenDiffs computes the noten payments for the given tenpai seats.
func NotenDiffs(tenpai []int) ([Seats]int, error) {
	var diffs [Seats]int
	var isTenpai [Seats]bool
	for _, seat := range tenpai {
		if !validSeat(seat) {
			return diffs, fmt.Errorf("%w: seat %d", ErrInvalidTenpai, seat)
		}
		if isTenpai[seat] {
			return diffs, fmt.Errorf("%w: seat %d listed twice", ErrInvalidTenpai, seat)
		}
		isTenpai[seat] = true
	}

	count := len(tenpai)
	if count == 0 || count == Seats {
		return diffs, nil
	}
	receive := NotenPool / count
	pay := NotenPool / (Seats - count)
	for i := range diffs {
		if isTenpai[i] {
			diffs[i] = receive
		} else {
			diffs[i] = -pay
		}
	}
	return diffs, nil
}

// AddRiichiStick takes the riichi deposit from player. It returns false,
// changing nothing, when the player has fewer than 1000 points.
func (m *Machine) AddRiichiStick(player int) (bool, error) {
	if err := m.begin(); err != nil {
		return false, err
	}
	defer m.end()

	s := m.Snapshot()
	if err := s.checkPlayable(); err != nil {
		return false, err
	}
	if !validSeat(player) {
		return false, fmt.Errorf("%w: player %d", ErrInvalidSeat, player)
	}
	if s.Players[player].Score < RiichiCost {
		m.logger.Debug("Riichi refused", "player", player, "score", s.Players[player].Score)
		return false, nil
	}

	scores := s.Scores()
	scores[player] -= RiichiCost
	var diffs [Seats]int
	diffs[player] = -RiichiCost

	entry := m.newEntry(s.Round, Riichi{RiichiPlayerIndex: player, ScoreDiffs: diffs}, scores)
	s.Players = withScores(s.Players, scores)
	s.Round.RiichiSticks++
	s.History = append(s.History, entry)

	m.commit(s)
	m.logger.Debug("Riichi declared", "player", player, "sticks", s.Round.RiichiSticks)
	m.publish(EventEntryAppended, s, &entry)
	return true, nil
}

// AdvanceRound moves to the next hand or ends the match.
func (m *Machine) AdvanceRound(dealerWon bool) error {
	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()
	return m.doAdvance(dealerWon)
}

func (m *Machine) doAdvance(dealerWon bool) error {
	s := m.Snapshot()
	if err := s.checkPlayable(); err != nil {
		return err
	}

	round, reason := nextRound(s, dealerWon)
	if reason != "" {
		s.IsEnded = true
		s.EndReason = reason
		s.EndedAt = m.clock.Now()
		m.commit(s)
		m.logger.Info("Match ended", "matchID", s.MatchID, "reason", reason, "round", s.Round)
		m.publish(EventMatchEnded, s, nil)
		return nil
	}

	s.Round = round
	s.Players = withWinds(s.Players, round.DealerIndex)
	m.commit(s)
	m.logger.Debug("Round advanced", "round", round, "dealerWon", dealerWon)
	m.publish(EventRoundAdvanced, s, nil)
	return nil
}

// Undo removes the last history entry and restores the state before it.
// It reports false when there is nothing to undo.
func (m *Machine) Undo() (bool, error) {
	if err := m.begin(); err != nil {
		return false, err
	}
	defer m.end()

	s := m.Snapshot()
	if len(s.History) == 0 {
		return false, nil
	}

	popped := s.History[len(s.History)-1]
	s.History = s.History[:len(s.History)-1]

	scores := [Seats]int{StartingScore, StartingScore, StartingScore, StartingScore}
	round := popped.Round
	if n := len(s.History); n > 0 {
		scores = s.History[n-1].ScoresAfter
		if m.undoPolicy == UndoRoundFromPrevious {
			round = s.History[n-1].Round
		}
	} else if m.undoPolicy == UndoRoundFromPrevious {
		round = InitialRound()
	}

	s.Round = round
	s.Players = withWinds(withScores(s.Players, scores), round.DealerIndex)
	s.IsEnded = false
	s.EndReason = ""
	s.EndedAt = time.Time{}

	m.commit(s)
	m.logger.Debug("Undo", "removed", popped.ID, "kind", popped.Result.Kind(), "remaining", len(s.History))
	m.publish(EventUndone, s, &popped)
	return true, nil
}

// WinRecord describes a win for RecordWin. LoserIndex is ignored for tsumo.
type WinRecord struct {
	WinnerIndex int
	LoserIndex  int
	IsTsumo     bool
	Result      scoring.ScoreResult
}

// RecordWin applies a win and then advances the round, repeating the deal
// when the winner is the dealer.
func (m *Machine) RecordWin(ctx context.Context, w WinRecord) (HistoryEntry, error) {
	if err := m.begin(); err != nil {
		return HistoryEntry{}, err
	}
	defer m.end()

	dealer := m.Snapshot().Round.DealerIndex
	var loser *int
	if !w.IsTsumo {
		loser = &w.LoserIndex
	}
	entry, err := m.doWin(ctx, w.WinnerIndex, loser, w.Result)
	if err != nil {
		return HistoryEntry{}, err
	}
	return entry, m.doAdvance(w.WinnerIndex == dealer)
}

// RecordDraw applies noten payments and then advances the round; the dealer
// keeps the deal when tenpai.
func (m *Machine) RecordDraw(tenpai []int) (HistoryEntry, error) {
	if err := m.begin(); err != nil {
		return HistoryEntry{}, err
	}
	defer m.end()

	dealer := m.Snapshot().Round.DealerIndex
	entry, err := m.doDraw(tenpai)
	if err != nil {
		return HistoryEntry{}, err
	}
	return entry, m.doAdvance(slices.Contains(tenpai, dealer))
}

func (s Snapshot) checkPlayable() error {
	if !s.IsStarted {
		return ErrNotStarted
	}
	if s.IsEnded {
		return fmt.Errorf("%w: %s", ErrMatchEnded, s.EndReason)
	}
	return nil
}

func (m *Machine) newEntry(round RoundState, res Result, scoresAfter [Seats]int) HistoryEntry {
	return HistoryEntry{
		ID:          m.ids.New(),
		Timestamp:   m.clock.Now(),
		Round:       round,
		Result:      res,
		ScoresAfter: scoresAfter,
	}
}

func (m *Machine) commit(s Snapshot) {
	m.mu.Lock()
	m.state = s.Clone()
	m.mu.Unlock()
}

func (m *Machine) publish(t EventType, s Snapshot, entry *HistoryEntry) {
	m.publishFor(s.MatchID, t, s, entry)
}

func (m *Machine) publishFor(matchID string, t EventType, s Snapshot, entry *HistoryEntry) {
	m.mu.RLock()
	subs := slices.Clone(m.subscribers)
	m.mu.RUnlock()

	e := Event{Type: t, MatchID: matchID, Entry: entry, Snapshot: s.Clone(), Time: m.clock.Now()}
	for _, sub := range subs {
		sub.OnEvent(e)
	}
}

// Standing is a player's final placement.
type Standing struct {
	Rank  int    `json:"rank"`
	Seat  int    `json:"seat"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Standings ranks players by score; ties go to the lower seat.
func (s Snapshot) Standings() []Standing {
	out := make([]Standing, len(s.Players))
	for i, p := range s.Players {
		out[i] = Standing{Seat: i, Name: p.Name, Score: p.Score}
	}
	slices.SortStableFunc(out, func(a, b Standing) int {
		return b.Score - a.Score
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// Standings ranks the current players.
func (m *Machine) Standings() []Standing {
	return m.Snapshot().Standings()
}

// Duration is how long the match ran, or has been running.
func (m *Machine) Duration() time.Duration {
	s := m.Snapshot()
	if !s.IsStarted {
		return 0
	}
	if s.IsEnded {
		return s.EndedAt.Sub(s.StartedAt)
	}
	return m.clock.Since(s.StartedAt)
}
