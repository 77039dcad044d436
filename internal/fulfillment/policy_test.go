package fulfillment

import (
	"testing"
	"time"

	"github.com/agamariel/flowershop/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderAt(step models.DeliveryStep) *models.Order {
	o := &models.Order{ID: 10, Code: "FL-0010", Total: decimal.NewFromInt(500000)}
	if step != "" {
		o.Events = []models.DeliveryEvent{event(1, step, time.Date(2025, 3, 8, 10, 0, 0, 0, time.UTC))}
	}
	return o
}

func TestCanCancel(t *testing.T) {
	assert.False(t, CanCancel("", false))
	for _, step := range models.AllDeliverySteps {
		assert.Equal(t, step == models.StepPreparing, CanCancel(step, true), string(step))
	}
}

func TestCheckCancellation(t *testing.T) {
	cancelledAt := time.Date(2025, 3, 8, 11, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		order   *models.Order
		reason  string
		wantErr error
	}{
		{"preparing with reason", orderAt(models.StepPreparing), "  out of peonies ", nil},
		{"delivering", orderAt(models.StepDelivering), "customer changed mind", ErrNotCancellable},
		{"pending confirmation", orderAt(models.StepPendingConfirmation), "x", ErrNotCancellable},
		{"no events", orderAt(""), "x", ErrNotCancellable},
		{"blank reason", orderAt(models.StepPreparing), " \t\n", ErrMissingReason},
		{"not cancellable wins over blank reason", orderAt(models.StepDelivered), "", ErrNotCancellable},
		{"refund exists", func() *models.Order {
			o := orderAt(models.StepPreparing)
			o.Refund = &models.RefundRequest{ID: uuid.New(), Status: models.RefundRejected}
			return o
		}(), "again", ErrAlreadyRefunded},
		{"already cancelled", func() *models.Order {
			o := orderAt(models.StepPreparing)
			o.CancelledAt = &cancelledAt
			return o
		}(), "again", ErrAlreadyRefunded},
		{"nil order", nil, "x", ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, err := CheckCancellation(tt.order, tt.reason)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "out of peonies", reason)
		})
	}
}

func TestCheckCancellationNamesRule(t *testing.T) {
	_, err := CheckCancellation(orderAt(models.StepDelivering), "customer changed mind")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DELIVERING")
	assert.Contains(t, err.Error(), "PREPARING")
}

func TestNewRefundRequest(t *testing.T) {
	now := time.Date(2025, 3, 8, 12, 0, 0, 0, time.UTC)
	o := orderAt(models.StepPreparing)

	r := NewRefundRequest(o, "wilted", now)
	assert.NotEqual(t, uuid.Nil, r.ID)
	assert.Equal(t, o.ID, r.OrderID)
	assert.True(t, r.RefundAmount.Equal(o.Total))
	assert.Equal(t, models.RefundPending, r.Status)
	assert.Equal(t, "wilted", r.Reason)
	assert.Equal(t, now, r.CreatedAt)
}

func TestIsCancellable(t *testing.T) {
	assert.True(t, IsCancellable(orderAt(models.StepPreparing)))
	assert.False(t, IsCancellable(orderAt(models.StepDelivering)))

	o := orderAt(models.StepPreparing)
	o.Refund = &models.RefundRequest{Status: models.RefundPending}
	assert.False(t, IsCancellable(o))
}
