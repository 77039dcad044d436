package fulfillment

import (
	"context"
	"fmt"
	"runtime"

	"github.com/agamariel/flowershop/internal/models"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// ZeroBreakdown разбивка с нулевыми суммами.
func ZeroBreakdown() models.RevenueBreakdown {
	return models.RevenueBreakdown{
		TotalRevenue:      decimal.Zero,
		SuccessfulRevenue: decimal.Zero,
		CancelledAmount:   decimal.Zero,
		RefundedAmount:    decimal.Zero,
		NetRevenue:        decimal.Zero,
	}
}

// Reconcile считает денежную разбивку одного заказа.
//
// Ветки проверяются в порядке: отмена транзакции, завершённый возврат, успешная
// оплата. Частично возвращённый оплаченный заказ попадает во вторую ветку,
// и в выручку идёт только невозвращённый остаток. Возврат не меньше суммы
// заказа учитывается целиком и выручки не даёт. Незавершённые возвраты
// выручку не уменьшают.
func Reconcile(order *models.Order) (models.RevenueBreakdown, error) {
	b := ZeroBreakdown()
	status, err := validateForReconcile(order)
	if err != nil {
		return b, err
	}

	b.TotalRevenue = order.Total
	refund := order.Refund

	switch {
	case status.IsCancelled():
		b.CancelledAmount = order.Total
	case refund != nil && refund.Status == models.RefundCompleted:
		b.RefundedAmount = refund.RefundAmount
		if refund.RefundAmount.LessThan(order.Total) && status.IsSuccessful() {
			b.SuccessfulRevenue = order.Total.Sub(refund.RefundAmount)
		}
	case status.IsSuccessful():
		b.SuccessfulRevenue = order.Total
	}

	b.NetRevenue = b.SuccessfulRevenue
	return b, nil
}

// validateForReconcile проверяет заказ и возвращает нормализованный статус
// транзакции (пустой, если транзакции нет).
func validateForReconcile(order *models.Order) (models.TransactionStatus, error) {
	if order == nil {
		return "", fmt.Errorf("%w: empty order", ErrValidation)
	}
	if order.Total.IsNegative() {
		return "", fmt.Errorf("%w: order %s has negative total %s", ErrValidation, order.Code, order.Total)
	}

	var status models.TransactionStatus
	if tx := order.Transaction; tx != nil {
		parsed, err := models.ParseTransactionStatus(string(tx.Status))
		if err != nil {
			return "", fmt.Errorf("order %s: %w", order.Code, err)
		}
		status = parsed
	}

	if r := order.Refund; r != nil {
		if _, err := models.ParseRefundStatus(string(r.Status)); err != nil {
			return "", fmt.Errorf("order %s: %w", order.Code, err)
		}
		if r.RefundAmount.IsNegative() {
			return "", fmt.Errorf("%w: order %s has negative refund amount %s", ErrValidation, order.Code, r.RefundAmount)
		}
	}
	return status, nil
}

// ReconcileBatch суммирует разбивки набора заказов. Каждый заказ считается
// независимо в своей горутине и пишет только в свою ячейку результата.
func ReconcileBatch(ctx context.Context, orders []*models.Order) (models.RevenueBreakdown, error) {
	results := make([]models.RevenueBreakdown, len(orders))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, order := range orders {
		i, order := i, order
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			b, err := Reconcile(order)
			if err != nil {
				return err
			}
			results[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ZeroBreakdown(), err
	}

	total := ZeroBreakdown()
	for _, b := range results {
		total = total.Add(b)
	}
	return total, nil
}

// PaymentStatusOf выводит платёжный статус заказа для списков оператора.
func PaymentStatusOf(order *models.Order) models.PaymentStatus {
	tx := order.Transaction
	if tx == nil {
		return models.PaymentAwaiting
	}

	status, _ := models.ParseTransactionStatus(string(tx.Status))
	switch status {
	case models.TransactionUnpaid:
		return models.PaymentUnpaid
	case models.TransactionPending:
		return models.PaymentPending
	case models.TransactionFailed:
		return models.PaymentFailed
	case models.TransactionCancelled:
		return models.PaymentCancelled
	case models.TransactionExpired:
		return models.PaymentExpired
	case models.TransactionSuccess, models.TransactionPaid:
	default:
		return models.PaymentStatus(tx.Status)
	}

	if r := order.Refund; r != nil {
		switch r.Status {
		case models.RefundPending, models.RefundProcessing:
			return models.PaymentRefundPending
		case models.RefundCompleted:
			if r.RefundAmount.LessThan(order.Total) {
				return models.PaymentPartiallyRefunded
			}
			return models.PaymentRefunded
		}
	}
	return models.PaymentPaid
}
