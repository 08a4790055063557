// Package bus publishes accepted telemetry records to the message bus for
// downstream consumers.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/airtrace-systems/airtrace-telemetry/internal/models"
)

// Publisher sends decoded records to the bus. Delivery is best-effort: the
// caller treats failures as non-fatal.
type Publisher interface {
	Publish(ctx context.Context, rec *models.Record) error
	Close() error
}

// Config holds NATS client configuration.
type Config struct {
	// URL is the NATS server URL (e.g., "nats://localhost:4222").
	URL string

	// Name is the client name for connection identification.
	Name string

	// MaxReconnects is the maximum number of reconnection attempts.
	// Use -1 for infinite reconnects.
	MaxReconnects int

	// ReconnectWait is the time to wait between reconnection attempts.
	ReconnectWait time.Duration

	// Timeout is the connection timeout.
	Timeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		Name:          "airtrace-telemetry",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

type natsPublisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// NewNATSPublisher connects to the bus with the given configuration.
func NewNATSPublisher(cfg Config, logger *slog.Logger) (Publisher, error) {
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("bus disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("bus reconnected")
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &natsPublisher{conn: conn, logger: logger}, nil
}

// Publish sends the record as JSON to the subject of its protocol.
func (p *natsPublisher) Publish(ctx context.Context, rec *models.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	subject := SubjectFor(rec.Protocol)
	if subject == "" {
		return fmt.Errorf("no bus subject for protocol %q", rec.Protocol)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	return p.conn.Publish(subject, data)
}

func (p *natsPublisher) Close() error {
	// Drain lets in-flight messages finish before the connection drops.
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return err
	}
	return nil
}
