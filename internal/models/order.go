package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order представляет заказ магазина вместе со связанными записями.
// Текущий шаг доставки не хранится: он вычисляется по Events.
type Order struct {
	ID          int64           `db:"id"`
	Code        string          `db:"order_code"`
	Total       decimal.Decimal `db:"total"`
	CancelledAt *time.Time      `db:"cancelled_at"`
	CreatedAt   time.Time       `db:"created_at"`
	Transaction *Transaction    `db:"-"`
	Refund      *RefundRequest  `db:"-"`
	Events      []DeliveryEvent `db:"-"`
}

// Transaction платёжная транзакция заказа.
type Transaction struct {
	ID        int64             `db:"id"`
	OrderID   int64             `db:"order_id"`
	Status    TransactionStatus `db:"status"`
	UpdatedAt time.Time         `db:"updated_at"`
}

// OrderFilter фильтр списка заказов. Пустые поля не ограничивают выборку.
type OrderFilter struct {
	Step        *DeliveryStep
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// Page параметры постраничной выборки.
type Page struct {
	Number int
	Size   int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Offset возвращает смещение для SQL.
func (p Page) Offset() int {
	if p.Number <= 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}
