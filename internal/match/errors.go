package match

import "errors"

// Invalid input. Returned before any state is touched.
var (
	ErrNotStarted    = errors.New("match has not started")
	ErrMatchEnded    = errors.New("match has ended")
	ErrPlayerCount   = errors.New("exactly four players are required")
	ErrInvalidSeat   = errors.New("seat index out of range")
	ErrSameSeat      = errors.New("winner and discarder must differ")
	ErrInvalidTenpai = errors.New("invalid tenpai seat list")
	ErrUncomputable  = errors.New("han/fu combination cannot be scored")
	ErrLoserRequired = errors.New("ron requires a discarder")
)

// ErrBusy is returned when a mutating operation arrives while another one is
// still waiting on the apply-score collaborator.
var ErrBusy = errors.New("another match operation is in progress")

// ErrApplier wraps failures of the apply-score collaborator. State is left
// unchanged when it is returned.
var ErrApplier = errors.New("apply-score failed")

// ErrSnapshotVersion is returned when restoring a snapshot written by a newer
// schema.
var ErrSnapshotVersion = errors.New("unsupported snapshot version")

// ErrInvalidSnapshot is returned when a snapshot violates state invariants.
var ErrInvalidSnapshot = errors.New("invalid snapshot")
