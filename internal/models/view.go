package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RevenueBreakdown денежная картина заказа или набора заказов.
// TotalRevenue включает все заказы, NetRevenue совпадает с SuccessfulRevenue.
type RevenueBreakdown struct {
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	SuccessfulRevenue decimal.Decimal `json:"successful_revenue"`
	CancelledAmount   decimal.Decimal `json:"cancelled_amount"`
	RefundedAmount    decimal.Decimal `json:"refunded_amount"`
	NetRevenue        decimal.Decimal `json:"net_revenue"`
}

// Add возвращает покомпонентную сумму двух разбивок.
func (b RevenueBreakdown) Add(other RevenueBreakdown) RevenueBreakdown {
	return RevenueBreakdown{
		TotalRevenue:      b.TotalRevenue.Add(other.TotalRevenue),
		SuccessfulRevenue: b.SuccessfulRevenue.Add(other.SuccessfulRevenue),
		CancelledAmount:   b.CancelledAmount.Add(other.CancelledAmount),
		RefundedAmount:    b.RefundedAmount.Add(other.RefundedAmount),
		NetRevenue:        b.NetRevenue.Add(other.NetRevenue),
	}
}

// OrderView строка или карточка заказа для консоли оператора.
type OrderView struct {
	OrderID          int64            `json:"order_id"`
	OrderCode        string           `json:"order_code"`
	Total            decimal.Decimal  `json:"total"`
	CurrentStep      *DeliveryStep    `json:"current_step"`
	AllowedNextSteps []DeliveryStep   `json:"allowed_next_steps"`
	Revenue          RevenueBreakdown `json:"revenue"`
	PaymentStatus    PaymentStatus    `json:"payment_status"`
	CanCancel        bool             `json:"can_cancel"`
	CancelledAt      *time.Time       `json:"cancelled_at,omitempty"`
	Refund           *RefundRequest   `json:"refund,omitempty"`
	Events           []DeliveryEvent  `json:"events,omitempty"`
}

// RevenueReport ответ GET /reports/revenue.
type RevenueReport struct {
	From       *time.Time       `json:"from,omitempty"`
	To         *time.Time       `json:"to,omitempty"`
	OrderCount int              `json:"order_count"`
	Revenue    RevenueBreakdown `json:"revenue"`
}
