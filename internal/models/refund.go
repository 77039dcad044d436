package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RefundRequest заявка на возврат средств, создаётся при отмене заказа.
type RefundRequest struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	OrderID      int64           `db:"order_id" json:"order_id"`
	RefundAmount decimal.Decimal `db:"refund_amount" json:"refund_amount"`
	Status       RefundStatus    `db:"status" json:"status"`
	Reason       string          `db:"reason" json:"reason"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// RefundFilter фильтр списка возвратов.
type RefundFilter struct {
	Status  *RefundStatus
	OrderID *int64
}

// CancelRequest DTO для POST /orders/:id/cancel.
type CancelRequest struct {
	Reason string `json:"reason"`
}

// RefundOutboxMessage запись outbox о новой заявке на возврат.
type RefundOutboxMessage struct {
	ID          uuid.UUID  `db:"id"`
	RefundID    uuid.UUID  `db:"refund_id"`
	OrderID     int64      `db:"order_id"`
	Payload     []byte     `db:"payload"`
	CreatedAt   time.Time  `db:"created_at"`
	PublishedAt *time.Time `db:"published_at"`
	Attempts    int        `db:"attempts"`
}

// RefundRequestedEvent тело сообщения для внешнего процесса возвратов.
type RefundRequestedEvent struct {
	RefundID     uuid.UUID       `json:"refund_id"`
	OrderID      int64           `json:"order_id"`
	OrderCode    string          `json:"order_code"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
	Reason       string          `json:"reason"`
	RequestedAt  time.Time       `json:"requested_at"`
}
