// Package archive stores finished matches in MongoDB.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/lox/riichiscore/internal/match"
)

// Collection is the part of *mongo.Collection the archive uses.
type Collection interface {
	ReplaceOne(ctx context.Context, filter any, replacement any, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error)
}

// Archive writes one document per finished match. A match that is undone
// and ends again replaces its earlier record.
type Archive struct {
	coll    Collection
	client  *mongo.Client
	logger  *log.Logger
	timeout time.Duration
}

// New creates an archive over coll.
func New(coll Collection, logger *log.Logger) *Archive {
	return &Archive{coll: coll, logger: logger.WithPrefix("archive"), timeout: 10 * time.Second}
}

// Connect dials MongoDB and checks the primary is reachable.
func Connect(ctx context.Context, uri, database, collection string, logger *log.Logger) (*Archive, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	a := New(client.Database(database).Collection(collection), logger)
	a.client = client
	a.logger.Info("Connected to MongoDB", "database", database, "collection", collection)
	return a, nil
}

// Record upserts the document for s.
func (a *Archive) Record(ctx context.Context, s match.Snapshot) error {
	if s.MatchID == "" {
		return fmt.Errorf("match has no id")
	}
	_, err := a.coll.ReplaceOne(ctx, bson.M{"_id": s.MatchID}, Document(s), options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("archive match %s: %w", s.MatchID, err)
	}
	return nil
}

// OnEvent implements match.Subscriber. Only match ends are archived.
func (a *Archive) OnEvent(e match.Event) {
	if e.Type != match.EventMatchEnded {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	if err := a.Record(ctx, e.Snapshot); err != nil {
		a.logger.Error("Failed to archive match", "matchID", e.MatchID, "error", err)
		return
	}
	a.logger.Info("Archived match", "matchID", e.MatchID, "reason", e.Snapshot.EndReason)
}

// Close disconnects a client opened by Connect.
func (a *Archive) Close(ctx context.Context) error {
	if a.client == nil {
		return nil
	}
	return a.client.Disconnect(ctx)
}

// Document converts a snapshot into its archive document.
func Document(s match.Snapshot) bson.M {
	standings := s.Standings()
	players := make([]bson.M, len(standings))
	for i, st := range standings {
		players[i] = bson.M{
			"rank":  st.Rank,
			"seat":  st.Seat,
			"name":  st.Name,
			"score": st.Score,
		}
	}

	hands := make([]bson.M, 0, len(s.History))
	for _, e := range s.History {
		diffs := e.Result.Diffs()
		scores := e.ScoresAfter
		hands = append(hands, bson.M{
			"id":           e.ID,
			"kind":         string(e.Result.Kind()),
			"round":        e.Round.Round,
			"round_wind":   e.Round.RoundWind.String(),
			"honba":        e.Round.Honba,
			"dealer_index": e.Round.DealerIndex,
			"diffs":        diffs[:],
			"scores_after": scores[:],
			"timestamp":    e.Timestamp,
		})
	}

	return bson.M{
		"_id":               s.MatchID,
		"game_mode":         string(s.GameMode),
		"enable_30000_rule": s.Enable30000Rule,
		"players":           players,
		"hands":             hands,
		"end_reason":        string(s.EndReason),
		"start_time":        s.StartedAt,
		"end_time":          s.EndedAt,
		"duration":          int64(s.EndedAt.Sub(s.StartedAt).Seconds()),
		"archived_at":       time.Now(),
	}
}
