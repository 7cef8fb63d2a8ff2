// Package feed publishes match events to NATS and defines the event message
// shared with the websocket stream.
package feed

import (
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"
	"github.com/nats-io/nats.go"

	"github.com/lox/riichiscore/internal/match"
)

// Message is the wire form of a match event.
type Message struct {
	Type      match.EventType     `json:"type"`
	MatchID   string              `json:"matchId"`
	Time      time.Time           `json:"time"`
	Entry     *match.HistoryEntry `json:"entry,omitempty"`
	Players   []match.Player      `json:"players"`
	Round     match.RoundState    `json:"round"`
	IsEnded   bool                `json:"isEnded"`
	EndReason match.EndReason     `json:"endReason,omitempty"`
}

// NewMessage builds the wire form of e.
func NewMessage(e match.Event) Message {
	return Message{
		Type:      e.Type,
		MatchID:   e.MatchID,
		Time:      e.Time,
		Entry:     e.Entry,
		Players:   e.Snapshot.Players,
		Round:     e.Snapshot.Round,
		IsEnded:   e.Snapshot.IsEnded,
		EndReason: e.Snapshot.EndReason,
	}
}

// Publisher is the part of *nats.Conn the feed needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Feed publishes each event on "<prefix>.<event type>".
type Feed struct {
	pub    Publisher
	conn   *nats.Conn
	prefix string
	logger *log.Logger
}

// New creates a feed over an existing publisher.
func New(pub Publisher, prefix string, logger *log.Logger) *Feed {
	return &Feed{pub: pub, prefix: prefix, logger: logger.WithPrefix("feed")}
}

// Connect dials NATS at url.
func Connect(url, prefix string, logger *log.Logger) (*Feed, error) {
	conn, err := nats.Connect(url,
		nats.Name("riichiscore"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, err
	}
	f := New(conn, prefix, logger)
	f.conn = conn
	f.logger.Info("Connected to NATS", "url", conn.ConnectedUrl(), "prefix", prefix)
	return f, nil
}

// Subject returns the subject for an event type.
func (f *Feed) Subject(t match.EventType) string {
	return f.prefix + "." + t.String()
}

// OnEvent implements match.Subscriber.
func (f *Feed) OnEvent(e match.Event) {
	data, err := json.Marshal(NewMessage(e))
	if err != nil {
		f.logger.Error("Failed to encode event", "event", e.Type, "error", err)
		return
	}
	if err := f.pub.Publish(f.Subject(e.Type), data); err != nil {
		f.logger.Warn("Failed to publish event", "event", e.Type, "error", err)
	}
}

// Close flushes and closes the connection opened by Connect.
func (f *Feed) Close() error {
	if f.conn == nil {
		return nil
	}
	if err := f.conn.Flush(); err != nil {
		f.logger.Warn("NATS flush failed", "error", err)
	}
	f.conn.Close()
	return nil
}
