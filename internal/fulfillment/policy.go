package fulfillment

import (
	"fmt"
	"strings"
	"time"

	"github.com/agamariel/flowershop/internal/models"
	"github.com/google/uuid"
)

// CanCancel разрешает отмену только на шаге PREPARING.
func CanCancel(current models.DeliveryStep, started bool) bool {
	return started && current == models.StepPreparing
}

// IsCancellable сообщает, пройдёт ли отмена заказа при непустой причине.
func IsCancellable(order *models.Order) bool {
	current, started := CurrentStep(order.Events)
	return CanCancel(current, started) && order.CancelledAt == nil && order.Refund == nil
}

// CheckCancellation проверяет правила отмены и возвращает очищенную причину.
// Порядок проверок: шаг, причина, существующий возврат.
func CheckCancellation(order *models.Order, reason string) (string, error) {
	if order == nil {
		return "", fmt.Errorf("%w: empty order", ErrValidation)
	}

	current, started := CurrentStep(order.Events)
	if !CanCancel(current, started) {
		if !started {
			return "", fmt.Errorf("%w: order %s has no delivery events, cancellation allowed only in %s",
				ErrNotCancellable, order.Code, models.StepPreparing)
		}
		return "", fmt.Errorf("%w: order %s is in %s, cancellation allowed only in %s",
			ErrNotCancellable, order.Code, current, models.StepPreparing)
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", ErrMissingReason
	}

	if order.Refund != nil {
		return "", fmt.Errorf("%w: refund %s is %s", ErrAlreadyRefunded, order.Refund.ID, order.Refund.Status)
	}
	if order.CancelledAt != nil {
		return "", fmt.Errorf("%w: order %s cancelled at %s",
			ErrAlreadyRefunded, order.Code, order.CancelledAt.Format(time.RFC3339))
	}

	if order.Total.IsNegative() {
		return "", fmt.Errorf("%w: negative order total %s", ErrValidation, order.Total)
	}

	return reason, nil
}

// NewRefundRequest формирует заявку на возврат полной суммы заказа.
func NewRefundRequest(order *models.Order, reason string, now time.Time) *models.RefundRequest {
	return &models.RefundRequest{
		ID:           uuid.New(),
		OrderID:      order.ID,
		RefundAmount: order.Total,
		Status:       models.RefundPending,
		Reason:       reason,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
