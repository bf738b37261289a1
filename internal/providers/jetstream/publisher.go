package jetstream

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	natsjs "github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/feral-file/ff-name-registry/internal/adapter"
	"github.com/feral-file/ff-name-registry/internal/domain"
	"github.com/feral-file/ff-name-registry/internal/logger"
	"github.com/feral-file/ff-name-registry/internal/messaging"
)

// Config holds the configuration for NATS JetStream connection
type Config struct {
	URL            string
	StreamName     string
	SubjectPrefix  string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectionName string
}

type publisher struct {
	nc            adapter.NatsConn
	js            adapter.JetStream
	subjectPrefix string
	json          adapter.JSON
}

// NewPublisher connects to NATS, ensures the stream exists and returns a publisher
func NewPublisher(ctx context.Context, cfg Config, natsJS adapter.NatsJetStream, jsonAdapter adapter.JSON) (messaging.Publisher, error) {
	opts := []nats.Option{
		nats.Name(cfg.ConnectionName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error(err, zap.String("message", "Disconnected from NATS"))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, js, err := natsJS.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS and create JetStream: %w", err)
	}

	if cfg.StreamName != "" {
		if err := js.EnsureStream(ctx, cfg.StreamName, []string{cfg.SubjectPrefix + ".>"}); err != nil {
			nc.Close()
			return nil, fmt.Errorf("failed to ensure stream %s: %w", cfg.StreamName, err)
		}
	}

	return &publisher{
		nc:            nc,
		js:            js,
		subjectPrefix: cfg.SubjectPrefix,
		json:          jsonAdapter,
	}, nil
}

// PublishEvent publishes a registry event to NATS JetStream
func (p *publisher) PublishEvent(ctx context.Context, event *domain.Event) error {
	logger.DebugCtx(ctx, "Publishing Nats event", zap.String("event_id", event.ID), zap.String("type", string(event.Type)))

	data, err := p.json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = p.js.Publish(ctx, p.buildSubject(event), data, natsjs.WithMsgID(event.ID))
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// buildSubject constructs the NATS subject based on the event
func (p *publisher) buildSubject(event *domain.Event) string {
	// Format: {prefix}.{event_type}
	// e.g., registry.name.rented, registry.treasury.withdrawn
	return fmt.Sprintf("%s.%s", p.subjectPrefix, event.Type)
}

// Close closes the NATS connection
func (p *publisher) Close() {
	if p.nc == nil {
		return
	}

	p.nc.Close()
}
