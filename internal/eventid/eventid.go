// Package eventid generates time-ordered identifiers for matches and
// history entries.
package eventid

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
)

// RandSource allows deterministic ids in tests.
type RandSource interface {
	Intn(n int) int
}

// Generator builds UUIDv7 ids whose timestamp comes from an injected clock,
// so ids sort in the same order as the events they label.
type Generator struct {
	clock      quartz.Clock
	randSource RandSource
}

// NewGenerator creates a generator. A nil clock uses the real clock and a
// nil randSource uses crypto/rand.
func NewGenerator(clock quartz.Clock, randSource RandSource) *Generator {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Generator{clock: clock, randSource: randSource}
}

// New returns a new id in canonical UUID text form.
func (g *Generator) New() string {
	return g.newUUID().String()
}

func (g *Generator) newUUID() uuid.UUID {
	var id uuid.UUID

	ms := g.clock.Now().UnixMilli()
	id[0] = byte(ms >> 40)
	id[1] = byte(ms >> 32)
	id[2] = byte(ms >> 24)
	id[3] = byte(ms >> 16)
	id[4] = byte(ms >> 8)
	id[5] = byte(ms)

	if g.randSource != nil {
		for i := 6; i < 16; i++ {
			id[i] = byte(g.randSource.Intn(256))
		}
	} else if _, err := rand.Read(id[6:]); err != nil {
		panic("eventid: failed to read random bytes: " + err.Error())
	}

	id[6] = (id[6] & 0x0f) | 0x70 // version 7
	id[8] = (id[8] & 0x3f) | 0x80 // RFC 4122 variant

	return id
}

// Validate checks that id is a version 7 UUID.
func Validate(id string) error {
	u, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid event id %q: %w", id, err)
	}
	if u.Version() != 7 {
		return fmt.Errorf("event id %q has version %d, want 7", id, u.Version())
	}
	return nil
}

// Time extracts the millisecond timestamp embedded in id.
func Time(id string) (time.Time, error) {
	if err := Validate(id); err != nil {
		return time.Time{}, err
	}
	u := uuid.MustParse(id)
	ms := int64(u[0])<<40 | int64(u[1])<<32 | int64(u[2])<<24 |
		int64(u[3])<<16 | int64(u[4])<<8 | int64(u[5])
	return time.UnixMilli(ms), nil
}
