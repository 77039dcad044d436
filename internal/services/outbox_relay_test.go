package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/agamariel/flowershop/internal/models"
	"github.com/agamariel/flowershop/internal/refundsink"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockOutbox struct {
	messages  []*models.RefundOutboxMessage
	getErr    error
	published []uuid.UUID
	attempted []uuid.UUID
	created   []*models.RefundOutboxMessage
	createErr error
}

func (m *mockOutbox) CreateWithTx(ctx context.Context, tx pgx.Tx, msg *models.RefundOutboxMessage) error {
	if m.createErr != nil {
		return m.createErr
	}
	msg.ID = uuid.New()
	m.created = append(m.created, msg)
	return nil
}

func (m *mockOutbox) GetUnpublished(ctx context.Context, limit int) ([]*models.RefundOutboxMessage, error) {
	return m.messages, m.getErr
}

func (m *mockOutbox) MarkPublished(ctx context.Context, id uuid.UUID, at time.Time) error {
	m.published = append(m.published, id)
	return nil
}

func (m *mockOutbox) MarkAttempt(ctx context.Context, id uuid.UUID) error {
	m.attempted = append(m.attempted, id)
	return nil
}

type publisherFunc func(ctx context.Context, msg *models.RefundOutboxMessage) error

func (f publisherFunc) PublishRefundRequested(ctx context.Context, msg *models.RefundOutboxMessage) error {
	return f(ctx, msg)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func outboxMessages(n int) []*models.RefundOutboxMessage {
	out := make([]*models.RefundOutboxMessage, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &models.RefundOutboxMessage{
			ID:       uuid.New(),
			RefundID: uuid.New(),
			OrderID:  int64(i + 1),
			Payload:  []byte(`{}`),
		})
	}
	return out
}

func TestOutboxRelay_PublishesAndMarks(t *testing.T) {
	outbox := &mockOutbox{messages: outboxMessages(3)}
	var seen []int64
	pub := publisherFunc(func(ctx context.Context, msg *models.RefundOutboxMessage) error {
		seen = append(seen, msg.OrderID)
		return nil
	})

	relay := newTestRelay(t, outbox, pub)
	require.NoError(t, relay.processBatch(context.Background()))

	assert.Equal(t, []int64{1, 2, 3}, seen)
	assert.Len(t, outbox.published, 3)
	assert.Empty(t, outbox.attempted)
}

func TestOutboxRelay_FailureRecordsAttempt(t *testing.T) {
	outbox := &mockOutbox{messages: outboxMessages(2)}
	pub := publisherFunc(func(ctx context.Context, msg *models.RefundOutboxMessage) error {
		if msg.OrderID == 1 {
			return errors.New("broker unavailable")
		}
		return nil
	})

	relay := newTestRelay(t, outbox, pub)
	require.NoError(t, relay.processBatch(context.Background()))

	assert.Equal(t, []uuid.UUID{outbox.messages[0].ID}, outbox.attempted)
	assert.Equal(t, []uuid.UUID{outbox.messages[1].ID}, outbox.published)
}

func TestOutboxRelay_RateLimitStopsBatch(t *testing.T) {
	outbox := &mockOutbox{messages: outboxMessages(3)}
	calls := 0
	pub := publisherFunc(func(ctx context.Context, msg *models.RefundOutboxMessage) error {
		calls++
		return refundsink.RateLimitError{RetryAfter: time.Millisecond}
	})

	relay := newTestRelay(t, outbox, pub)
	require.NoError(t, relay.processBatch(context.Background()))

	assert.Equal(t, 1, calls)
	assert.Empty(t, outbox.published)
	assert.Empty(t, outbox.attempted)
}

func TestOutboxRelay_StorageError(t *testing.T) {
	outbox := &mockOutbox{getErr: errors.New("connection refused")}
	pub := publisherFunc(func(ctx context.Context, msg *models.RefundOutboxMessage) error {
		t.Fatal("publisher must not be called")
		return nil
	})

	relay := newTestRelay(t, outbox, pub)
	assert.Error(t, relay.processBatch(context.Background()))
}

func TestOutboxRelay_CancelledContext(t *testing.T) {
	outbox := &mockOutbox{messages: outboxMessages(2)}
	pub := publisherFunc(func(ctx context.Context, msg *models.RefundOutboxMessage) error {
		t.Fatal("publisher must not be called")
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	relay := newTestRelay(t, outbox, pub)
	assert.NoError(t, relay.processBatch(ctx))
	assert.Empty(t, outbox.published)
}

func newTestRelay(t *testing.T, outbox OutboxStorage, pub RefundPublisher) *OutboxRelay {
	t.Helper()
	relay, err := NewOutboxRelay(outbox, pub, time.Second, 1000, discardLogger())
	require.NoError(t, err)
	return relay
}

func TestNewOutboxRelay_RejectsNonPositiveOptions(t *testing.T) {
	pub := publisherFunc(func(ctx context.Context, msg *models.RefundOutboxMessage) error { return nil })

	tests := []struct {
		name      string
		interval  time.Duration
		perSecond float64
	}{
		{"zero interval", 0, 10},
		{"negative interval", -time.Second, 10},
		{"zero rate", time.Second, 0},
		{"negative rate", time.Second, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			relay, err := NewOutboxRelay(&mockOutbox{}, pub, tt.interval, tt.perSecond, discardLogger())
			assert.ErrorIs(t, err, ErrInvalidRelayOptions)
			assert.Nil(t, relay)
		})
	}
}
