package refundsink

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/agamariel/flowershop/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMessage() *models.RefundOutboxMessage {
	return &models.RefundOutboxMessage{
		ID:        uuid.New(),
		RefundID:  uuid.New(),
		OrderID:   42,
		Payload:   []byte(`{"order_id":42}`),
		CreatedAt: time.Now().UTC(),
	}
}

func TestHTTPPublisher_PublishRefundRequested(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		retryAfter string
		wantErr    bool
		wantRate   time.Duration
	}{
		{name: "accepted", status: http.StatusAccepted},
		{name: "ok", status: http.StatusOK},
		{name: "duplicate is success", status: http.StatusConflict},
		{name: "rate limited", status: http.StatusTooManyRequests, retryAfter: "3", wantErr: true, wantRate: 3 * time.Second},
		{name: "rejected", status: http.StatusBadRequest, wantErr: true},
		{name: "server error", status: http.StatusBadGateway, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := testMessage()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				assert.Equal(t, msg.RefundID.String(), r.Header.Get("Idempotency-Key"))
				body, _ := io.ReadAll(r.Body)
				assert.JSONEq(t, string(msg.Payload), string(body))
				if tt.retryAfter != "" {
					w.Header().Set("Retry-After", tt.retryAfter)
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			p := NewHTTPPublisher(srv.URL, time.Second)
			err := p.PublishRefundRequested(context.Background(), msg)

			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tt.wantRate > 0 {
				var rl RateLimitError
				require.True(t, errors.As(err, &rl))
				assert.Equal(t, tt.wantRate, rl.RetryAfter)
			}
			if tt.status == http.StatusBadRequest {
				assert.ErrorIs(t, err, ErrRejected)
			}
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 5*time.Second, parseRetryAfter(""))
	assert.Equal(t, 10*time.Second, parseRetryAfter("10"))
	assert.Equal(t, 5*time.Second, parseRetryAfter("soon"))

	future := time.Now().Add(time.Minute).UTC().Format(http.TimeFormat)
	d := parseRetryAfter(future)
	assert.Greater(t, d, 50*time.Second)
	assert.LessOrEqual(t, d, time.Minute)
}
