package xref

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Ace1928/docforge/internal/logfields"
	"github.com/Ace1928/docforge/internal/retry"
)

// BrokenRefEvent is published for every reference that could not be
// resolved or repaired.
type BrokenRefEvent struct {
	BuildID     string    `json:"build_id"`
	SourcePath  string    `json:"source_path"`
	Section     string    `json:"section,omitempty"`
	Destination string    `json:"destination"`
	Kind        string    `json:"kind"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewBrokenRefEvent builds an event from a finding.
func NewBrokenRefEvent(buildID string, f Finding) BrokenRefEvent {
	return BrokenRefEvent{
		BuildID:     buildID,
		SourcePath:  f.Source,
		Section:     f.Section,
		Destination: f.Destination,
		Kind:        string(f.Kind),
		Timestamp:   time.Now().UTC(),
	}
}

// Publisher delivers broken-reference events to a JetStream subject.
type Publisher struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	subject string
	policy  retry.Policy
}

// NewPublisher connects to the NATS server and prepares a JetStream context.
func NewPublisher(url, subject string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("docforge-xref"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	return &Publisher{conn: conn, js: js, subject: subject, policy: retry.DefaultPolicy()}, nil
}

// Publish sends one event.
func (p *Publisher) Publish(ctx context.Context, event BrokenRefEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal broken-ref event: %w", err)
	}

	err = retry.Do(ctx, p.policy, func() error {
		_, perr := p.js.Publish(ctx, p.subject, data)
		return perr
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", p.subject, err)
	}

	slog.Debug("Published broken-ref event",
		logfields.Path(event.SourcePath),
		slog.String("destination", event.Destination))
	return nil
}

// PublishReport sends an event for every broken finding in the report.
func (p *Publisher) PublishReport(ctx context.Context, buildID string, report *Report) error {
	for _, f := range report.Broken() {
		if err := p.Publish(ctx, NewBrokenRefEvent(buildID, f)); err != nil {
			return err
		}
	}
	return nil
}

// Close drains the underlying connection.
func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
