package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/feral-file/ff-name-registry/internal/adapter"
	"github.com/feral-file/ff-name-registry/internal/domain"
	"github.com/feral-file/ff-name-registry/internal/logger"
	"github.com/feral-file/ff-name-registry/internal/messaging"
	"github.com/feral-file/ff-name-registry/internal/metrics"
	"github.com/feral-file/ff-name-registry/internal/store"
	"github.com/feral-file/ff-name-registry/internal/store/schema"
	"github.com/feral-file/ff-name-registry/internal/vanity"
)

const (
	SinkBroker = "broker"
	SinkVanity = "vanity"
)

// Config holds configuration for the outbox relay
type Config struct {
	BatchSize      int           // Events fetched per cycle
	WorkerPoolSize int           // Concurrent deliveries
	PollInterval   time.Duration // Sleep between cycles when the outbox is drained
	MaxAttempts    int           // Attempts before an event is marked failed
}

type outboxRelay struct {
	config    *Config
	store     store.Store
	publisher messaging.Publisher
	notifier  vanity.Notifier
	json      adapter.JSON
	clock     adapter.Clock
	metrics   *metrics.Metrics
	pool      pond.Pool

	// guards the run state; the channels are recreated by every Start
	mu        sync.Mutex
	running   bool
	stopChan  chan struct{}
	stoppedCh chan struct{}
}

// NewOutboxRelay creates a relay delivering outbox events from st
func NewOutboxRelay(
	config *Config,
	st store.Store,
	publisher messaging.Publisher,
	notifier vanity.Notifier,
	jsonAdapter adapter.JSON,
	clock adapter.Clock,
	m *metrics.Metrics,
) Relay {
	return &outboxRelay{
		config:    config,
		store:     st,
		publisher: publisher,
		notifier:  notifier,
		json:      jsonAdapter,
		clock:     clock,
		metrics:   m,
	}
}

func (r *outboxRelay) Name() string {
	return "outbox-relay"
}

// Start polls the outbox until the context is canceled or Stop is called
func (r *outboxRelay) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("relay already running")
	}
	stop, stopped := make(chan struct{}), make(chan struct{})
	r.running, r.stopChan, r.stoppedCh = true, stop, stopped
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		close(stopped)
	}()

	logger.InfoCtx(ctx, "Starting outbox relay",
		zap.Int("batch_size", r.config.BatchSize),
		zap.Int("worker_pool_size", r.config.WorkerPoolSize),
		zap.Duration("poll_interval", r.config.PollInterval),
		zap.Int("max_attempts", r.config.MaxAttempts),
	)

	r.pool = pond.NewPool(
		r.config.WorkerPoolSize,
		pond.WithQueueSize(r.config.BatchSize),
		pond.WithContext(ctx),
	)
	defer r.pool.StopAndWait()

	for {
		select {
		case <-ctx.Done():
			logger.InfoCtx(ctx, "Outbox relay stopping due to context cancellation", zap.Error(ctx.Err()))
			return nil
		case <-stop:
			logger.InfoCtx(ctx, "Outbox relay stop requested")
			return nil
		default:
			drained, err := r.runCycle(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.ErrorCtx(ctx, err)
			}
			if drained || err != nil {
				r.sleep(ctx, stop, r.config.PollInterval)
			}
		}
	}
}

// Stop signals the main loop and waits for it to exit
func (r *outboxRelay) Stop(ctx context.Context) error {
	r.mu.Lock()
	stop, stopped := r.stopChan, r.stoppedCh
	if !r.running || stop == nil {
		r.mu.Unlock()
		return nil
	}
	r.stopChan = nil
	r.mu.Unlock()

	logger.InfoCtx(ctx, "Stopping outbox relay")
	close(stop)

	select {
	case <-stopped:
		logger.InfoCtx(ctx, "Outbox relay stopped gracefully")
		return nil
	case <-ctx.Done():
		logger.WarnCtx(ctx, "Outbox relay stop interrupted by context timeout")
		return ctx.Err()
	}
}

// runCycle delivers one batch. It reports whether the outbox held less than a full batch.
func (r *outboxRelay) runCycle(ctx context.Context) (bool, error) {
	startTime := r.clock.Now()

	events, err := r.store.GetPendingOutboxEvents(ctx, r.config.BatchSize, r.config.MaxAttempts)
	if err != nil {
		return false, fmt.Errorf("failed to get pending outbox events: %w", err)
	}
	r.metrics.SetOutboxBacklog(len(events))
	if len(events) == 0 {
		return true, nil
	}

	var delivered, failed atomic.Int32
	group := r.pool.NewGroup()
	for _, row := range events {
		group.Submit(func() {
			if r.deliver(ctx, row) {
				delivered.Add(1)
			} else {
				failed.Add(1)
			}
		})
	}
	if err := group.Wait(); err != nil {
		return false, err
	}

	logger.InfoCtx(ctx, "Outbox cycle completed",
		zap.Duration("duration", r.clock.Since(startTime)),
		zap.Int("total", len(events)),
		zap.Int32("delivered", delivered.Load()),
		zap.Int32("failed", failed.Load()),
	)

	return len(events) < r.config.BatchSize, nil
}

// deliver sends one event to every sink and records the outcome on its row
func (r *outboxRelay) deliver(ctx context.Context, row *schema.OutboxEvent) bool {
	if err := r.send(ctx, row); err != nil {
		logger.WarnCtx(ctx, "Outbox delivery failed",
			zap.String("event_id", row.EventID),
			zap.String("event_type", row.EventType),
			zap.Int("attempt", row.Attempts+1),
			zap.Error(err),
		)
		if err := r.store.MarkOutboxEventFailed(ctx, row.ID, r.clock.Now(), err.Error(), r.config.MaxAttempts); err != nil {
			logger.ErrorCtx(ctx, err, zap.String("event_id", row.EventID))
		}
		return false
	}

	if err := r.store.MarkOutboxEventDelivered(ctx, row.ID, r.clock.Now()); err != nil {
		// The event goes out again next cycle; the broker deduplicates by event id
		logger.ErrorCtx(ctx, err, zap.String("event_id", row.EventID))
		return false
	}
	return true
}

func (r *outboxRelay) send(ctx context.Context, row *schema.OutboxEvent) error {
	var event domain.Event
	if err := r.json.Unmarshal(row.Payload, &event); err != nil {
		return fmt.Errorf("failed to decode outbox payload: %w", err)
	}

	if err := r.publisher.PublishEvent(ctx, &event); err != nil {
		r.metrics.IncrementDelivery(SinkBroker, "error")
		return fmt.Errorf("failed to publish event: %w", err)
	}
	r.metrics.IncrementDelivery(SinkBroker, "ok")

	if event.Type != domain.EventTypeHolderChanged {
		return nil
	}

	notice, err := holderNotice(&event)
	if err != nil {
		return err
	}
	if err := r.notifier.HolderChanged(ctx, notice); err != nil {
		r.metrics.IncrementDelivery(SinkVanity, "error")
		return fmt.Errorf("failed to notify vanity collaborator: %w", err)
	}
	r.metrics.IncrementDelivery(SinkVanity, "ok")
	return nil
}

func holderNotice(event *domain.Event) (vanity.Notice, error) {
	holder, _ := event.Data["holder"].(string)
	if !common.IsHexAddress(holder) {
		return vanity.Notice{}, fmt.Errorf("holder_changed event %s has invalid holder %q", event.ID, holder)
	}

	var previous common.Address
	if raw, ok := event.Data["previous_holder"].(string); ok {
		if !common.IsHexAddress(raw) {
			return vanity.Notice{}, fmt.Errorf("holder_changed event %s has invalid previous holder %q", event.ID, raw)
		}
		previous = common.HexToAddress(raw)
	}

	key := domain.KeyOf(event.Name)
	if raw, ok := event.Data["key"].(string); ok {
		key = common.HexToHash(raw)
	}

	changedAt := event.At
	if raw, ok := event.Data["changed_at"].(string); ok {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return vanity.Notice{}, fmt.Errorf("holder_changed event %s has invalid changed_at: %w", event.ID, err)
		}
		changedAt = t
	}

	return vanity.Notice{
		EventID:        event.ID,
		Name:           event.Name,
		Key:            key,
		Holder:         common.HexToAddress(holder),
		PreviousHolder: previous,
		ChangedAt:      changedAt,
	}, nil
}

// sleep waits for duration unless the context is canceled or stop is requested
func (r *outboxRelay) sleep(ctx context.Context, stop <-chan struct{}, duration time.Duration) bool {
	select {
	case <-r.clock.After(duration):
		return true
	case <-ctx.Done():
		return false
	case <-stop:
		return false
	}
}
