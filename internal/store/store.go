// Package store persists the match snapshot between commands.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"github.com/lox/riichiscore/internal/config"
	"github.com/lox/riichiscore/internal/match"
)

// ErrNotFound is returned by Load when nothing has been saved yet.
var ErrNotFound = errors.New("no saved match")

// Store saves and loads a single match snapshot.
type Store interface {
	Load(ctx context.Context) (*match.Snapshot, error)
	Save(ctx context.Context, s match.Snapshot) error
	Clear(ctx context.Context) error
}

// Open builds the store selected by cfg.
func Open(cfg *config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "file":
		return NewFileStore(cfg.Path), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return NewRedisStore(client, cfg.RedisKey), nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}

// Hydrate restores m from st. An empty store leaves m untouched.
func Hydrate(ctx context.Context, st Store, m *match.Machine) error {
	s, err := st.Load(ctx)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return m.Restore(*s)
}

// Subscriber saves the snapshot after every committed transition. Failures
// are logged; the transition itself has already happened.
type Subscriber struct {
	store   Store
	logger  *log.Logger
	timeout time.Duration
}

// NewSubscriber creates a persistence subscriber.
func NewSubscriber(st Store, logger *log.Logger) *Subscriber {
	return &Subscriber{store: st, logger: logger.WithPrefix("store"), timeout: 5 * time.Second}
}

// OnEvent implements match.Subscriber.
func (s *Subscriber) OnEvent(e match.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.store.Save(ctx, e.Snapshot); err != nil {
		s.logger.Error("Failed to save match", "event", e.Type, "matchID", e.MatchID, "error", err)
		return
	}
	s.logger.Debug("Saved match", "event", e.Type, "history", len(e.Snapshot.History))
}
