package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/agamariel/flowershop/internal/refundsink"
	"golang.org/x/time/rate"
)

const outboxBatchSize = 50

// OutboxRelay периодически доставляет неотправленные заявки на возврат внешнему процессу.
type OutboxRelay struct {
	outbox    OutboxStorage
	publisher RefundPublisher
	interval  time.Duration
	limiter   *rate.Limiter
	logger    *slog.Logger
	now       func() time.Time
}

// ErrInvalidRelayOptions возвращается при неположительном интервале или частоте.
var ErrInvalidRelayOptions = errors.New("invalid outbox relay options")

// NewOutboxRelay создаёт воркер. perSecond ограничивает частоту публикаций.
func NewOutboxRelay(outbox OutboxStorage, publisher RefundPublisher, interval time.Duration, perSecond float64, logger *slog.Logger) (*OutboxRelay, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("%w: interval %s must be positive", ErrInvalidRelayOptions, interval)
	}
	if perSecond <= 0 {
		return nil, fmt.Errorf("%w: rate %g must be positive", ErrInvalidRelayOptions, perSecond)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OutboxRelay{
		outbox:    outbox,
		publisher: publisher,
		interval:  interval,
		limiter:   rate.NewLimiter(rate.Limit(perSecond), 1),
		logger:    logger.With("component", "outbox_relay"),
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// Start запускает воркер в отдельной горутине и останавливается по ctx.Done().
func (r *OutboxRelay) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	go func() {
		defer ticker.Stop()
		if err := r.processBatch(ctx); err != nil {
			r.logger.Error("initial outbox batch failed", "error", err)
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := r.processBatch(ctx); err != nil {
					r.logger.Error("outbox batch failed", "error", err)
				}
			}
		}
	}()
}

func (r *OutboxRelay) processBatch(ctx context.Context) error {
	messages, err := r.outbox.GetUnpublished(ctx, outboxBatchSize)
	if err != nil {
		return err
	}

	if len(messages) > 0 {
		r.logger.Debug("publishing refund messages", "count", len(messages))
	}

	for _, msg := range messages {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil
		}

		err := r.publisher.PublishRefundRequested(ctx, msg)
		if err == nil {
			if err := r.outbox.MarkPublished(ctx, msg.ID, r.now()); err != nil {
				r.logger.Error("failed to mark refund message published", "message_id", msg.ID, "error", err)
			}
			r.logger.Info("refund request published", "refund_id", msg.RefundID, "order_id", msg.OrderID)
			continue
		}

		var rl refundsink.RateLimitError
		if errors.As(err, &rl) {
			r.logger.Warn("refund sink rate limited, pausing", "retry_after", rl.RetryAfter)
			select {
			case <-ctx.Done():
			case <-time.After(rl.RetryAfter):
			}
			return nil
		}

		r.logger.Warn("failed to publish refund request",
			"refund_id", msg.RefundID, "order_id", msg.OrderID, "attempt", msg.Attempts+1, "error", err)
		if err := r.outbox.MarkAttempt(ctx, msg.ID); err != nil {
			r.logger.Error("failed to record publish attempt", "message_id", msg.ID, "error", err)
		}
	}
	return nil
}
