package relay

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-name-registry/internal/adapter"
	"github.com/feral-file/ff-name-registry/internal/domain"
	"github.com/feral-file/ff-name-registry/internal/logger"
	"github.com/feral-file/ff-name-registry/internal/metrics"
	"github.com/feral-file/ff-name-registry/internal/mocks"
	"github.com/feral-file/ff-name-registry/internal/store/schema"
	"github.com/feral-file/ff-name-registry/internal/vanity"
)

var (
	now      = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	holder   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	previous = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: true}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// testRelayMocks contains all the mocks needed for testing the relay
type testRelayMocks struct {
	ctrl      *gomock.Controller
	store     *mocks.MockStore
	publisher *mocks.MockPublisher
	notifier  *mocks.MockVanityNotifier
	clock     *mocks.MockClock
	metrics   *metrics.Metrics
	relay     *outboxRelay
}

func setupTestRelay(t *testing.T) *testRelayMocks {
	ctrl := gomock.NewController(t)

	tm := &testRelayMocks{
		ctrl:      ctrl,
		store:     mocks.NewMockStore(ctrl),
		publisher: mocks.NewMockPublisher(ctrl),
		notifier:  mocks.NewMockVanityNotifier(ctrl),
		clock:     mocks.NewMockClock(ctrl),
		metrics:   metrics.New(prometheus.NewRegistry()),
	}
	tm.clock.EXPECT().Now().Return(now).AnyTimes()
	tm.clock.EXPECT().Since(gomock.Any()).Return(time.Millisecond).AnyTimes()

	config := &Config{
		BatchSize:      10,
		WorkerPoolSize: 2,
		PollInterval:   time.Second,
		MaxAttempts:    3,
	}
	tm.relay = NewOutboxRelay(config, tm.store, tm.publisher, tm.notifier, adapter.NewJSON(), tm.clock, tm.metrics).(*outboxRelay)
	return tm
}

func (tm *testRelayMocks) isRunning() bool {
	tm.relay.mu.Lock()
	defer tm.relay.mu.Unlock()
	return tm.relay.running
}

func (tm *testRelayMocks) startPool(t *testing.T) {
	tm.relay.pool = pond.NewPool(2)
	t.Cleanup(tm.relay.pool.StopAndWait)
}

func outboxRow(t *testing.T, id uint64, event domain.Event) *schema.OutboxEvent {
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return &schema.OutboxEvent{
		ID:        id,
		EventID:   event.ID,
		EventType: string(event.Type),
		Name:      event.Name,
		Payload:   payload,
		Status:    schema.OutboxStatusPending,
	}
}

func rentedEvent() domain.Event {
	return domain.Event{
		ID:   "01J00000000000000000000001",
		Type: domain.EventTypeRented,
		Name: "alpha",
		At:   now,
		Data: map[string]any{"holder": holder.Hex(), "price": "1000"},
	}
}

func holderChangedEvent(changedAt string) domain.Event {
	return domain.Event{
		ID:   "01J00000000000000000000002",
		Type: domain.EventTypeHolderChanged,
		Name: "alpha",
		At:   now,
		Data: map[string]any{
			"key":             domain.KeyOf("alpha").Hex(),
			"holder":          holder.Hex(),
			"previous_holder": previous.Hex(),
			"changed_at":      changedAt,
		},
	}
}

func TestOutboxRelay_Name(t *testing.T) {
	tm := setupTestRelay(t)
	assert.Equal(t, "outbox-relay", tm.relay.Name())
}

func TestOutboxRelay_DeliversToEverySink(t *testing.T) {
	tm := setupTestRelay(t)
	tm.startPool(t)
	ctx := context.Background()
	changedAt := now.Add(-time.Minute)

	rows := []*schema.OutboxEvent{
		outboxRow(t, 1, rentedEvent()),
		outboxRow(t, 2, holderChangedEvent(changedAt.Format(time.RFC3339Nano))),
	}
	tm.store.EXPECT().GetPendingOutboxEvents(ctx, 10, 3).Return(rows, nil)
	tm.publisher.EXPECT().PublishEvent(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, e *domain.Event) error {
		assert.Equal(t, "alpha", e.Name)
		return nil
	}).Times(2)
	tm.notifier.EXPECT().HolderChanged(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, notice vanity.Notice) error {
		assert.Equal(t, "01J00000000000000000000002", notice.EventID)
		assert.Equal(t, "alpha", notice.Name)
		assert.Equal(t, holder, notice.Holder)
		assert.Equal(t, previous, notice.PreviousHolder)
		assert.Equal(t, domain.KeyOf("alpha"), notice.Key)
		assert.True(t, changedAt.Equal(notice.ChangedAt))
		return nil
	})
	tm.store.EXPECT().MarkOutboxEventDelivered(ctx, uint64(1), now).Return(nil)
	tm.store.EXPECT().MarkOutboxEventDelivered(ctx, uint64(2), now).Return(nil)

	drained, err := tm.relay.runCycle(ctx)
	require.NoError(t, err)
	assert.True(t, drained)

	assert.Equal(t, float64(2), testutil.ToFloat64(tm.metrics.OutboxDeliveries.WithLabelValues(SinkBroker, "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(tm.metrics.OutboxDeliveries.WithLabelValues(SinkVanity, "ok")))
	assert.Equal(t, float64(2), testutil.ToFloat64(tm.metrics.OutboxBacklog))
}

func TestOutboxRelay_RecordsFailures(t *testing.T) {
	tests := []struct {
		name      string
		event     domain.Event
		setup     func(tm *testRelayMocks)
		wantError string
	}{
		{
			name:  "broker unavailable",
			event: rentedEvent(),
			setup: func(tm *testRelayMocks) {
				tm.publisher.EXPECT().PublishEvent(gomock.Any(), gomock.Any()).Return(errors.New("nats: timeout"))
			},
			wantError: "failed to publish event: nats: timeout",
		},
		{
			name:  "vanity collaborator unavailable",
			event: holderChangedEvent(now.Format(time.RFC3339Nano)),
			setup: func(tm *testRelayMocks) {
				tm.publisher.EXPECT().PublishEvent(gomock.Any(), gomock.Any()).Return(nil)
				tm.notifier.EXPECT().HolderChanged(gomock.Any(), gomock.Any()).Return(errors.New("503"))
			},
			wantError: "failed to notify vanity collaborator: 503",
		},
		{
			name:  "malformed changed_at",
			event: holderChangedEvent("yesterday"),
			setup: func(tm *testRelayMocks) {
				tm.publisher.EXPECT().PublishEvent(gomock.Any(), gomock.Any()).Return(nil)
			},
			wantError: "invalid changed_at",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm := setupTestRelay(t)
			tm.startPool(t)
			ctx := context.Background()

			tm.store.EXPECT().GetPendingOutboxEvents(ctx, 10, 3).Return([]*schema.OutboxEvent{outboxRow(t, 7, tt.event)}, nil)
			tt.setup(tm)
			tm.store.EXPECT().MarkOutboxEventFailed(ctx, uint64(7), now, gomock.Any(), 3).
				DoAndReturn(func(_ context.Context, _ uint64, _ time.Time, errMsg string, _ int) error {
					assert.Contains(t, errMsg, tt.wantError)
					return nil
				})

			_, err := tm.relay.runCycle(ctx)
			require.NoError(t, err)
		})
	}
}

func TestOutboxRelay_UndecodablePayload(t *testing.T) {
	tm := setupTestRelay(t)
	tm.startPool(t)
	ctx := context.Background()

	row := &schema.OutboxEvent{ID: 9, EventID: "x", EventType: "name.rented", Payload: []byte("{")}
	tm.store.EXPECT().GetPendingOutboxEvents(ctx, 10, 3).Return([]*schema.OutboxEvent{row}, nil)
	tm.store.EXPECT().MarkOutboxEventFailed(ctx, uint64(9), now, gomock.Any(), 3).Return(nil)

	_, err := tm.relay.runCycle(ctx)
	require.NoError(t, err)
}

func TestOutboxRelay_EmptyAndStoreError(t *testing.T) {
	tm := setupTestRelay(t)
	tm.startPool(t)
	ctx := context.Background()

	tm.store.EXPECT().GetPendingOutboxEvents(ctx, 10, 3).Return(nil, nil)
	drained, err := tm.relay.runCycle(ctx)
	require.NoError(t, err)
	assert.True(t, drained)
	assert.Equal(t, float64(0), testutil.ToFloat64(tm.metrics.OutboxBacklog))

	tm.store.EXPECT().GetPendingOutboxEvents(ctx, 10, 3).Return(nil, errors.New("connection reset"))
	_, err = tm.relay.runCycle(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestOutboxRelay_FullBatchIsNotDrained(t *testing.T) {
	tm := setupTestRelay(t)
	tm.relay.config.BatchSize = 1
	tm.startPool(t)
	ctx := context.Background()

	tm.store.EXPECT().GetPendingOutboxEvents(ctx, 1, 3).Return([]*schema.OutboxEvent{outboxRow(t, 1, rentedEvent())}, nil)
	tm.publisher.EXPECT().PublishEvent(ctx, gomock.Any()).Return(nil)
	tm.store.EXPECT().MarkOutboxEventDelivered(ctx, uint64(1), now).Return(nil)

	drained, err := tm.relay.runCycle(ctx)
	require.NoError(t, err)
	assert.False(t, drained)
}

func TestOutboxRelay_StartStop(t *testing.T) {
	tm := setupTestRelay(t)

	tm.store.EXPECT().GetPendingOutboxEvents(gomock.Any(), 10, 3).Return(nil, nil).AnyTimes()
	tm.clock.EXPECT().After(time.Second).Return(make(chan time.Time)).AnyTimes()

	done := make(chan error, 1)
	go func() {
		done <- tm.relay.Start(context.Background())
	}()

	require.Eventually(t, tm.isRunning, time.Second, 5*time.Millisecond)
	require.Error(t, tm.relay.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, tm.relay.Stop(ctx))
	require.NoError(t, <-done)

	// Stopping twice is a no-op
	require.NoError(t, tm.relay.Stop(ctx))
}

func TestOutboxRelay_RestartAfterStop(t *testing.T) {
	tm := setupTestRelay(t)

	tm.store.EXPECT().GetPendingOutboxEvents(gomock.Any(), 10, 3).Return(nil, nil).AnyTimes()
	tm.clock.EXPECT().After(time.Second).Return(make(chan time.Time)).AnyTimes()

	for run := 0; run < 2; run++ {
		done := make(chan error, 1)
		go func() {
			done <- tm.relay.Start(context.Background())
		}()
		require.Eventually(t, tm.isRunning, time.Second, 5*time.Millisecond)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		require.NoError(t, tm.relay.Stop(ctx))
		cancel()
		require.NoError(t, <-done)
		assert.False(t, tm.isRunning())
	}
}
