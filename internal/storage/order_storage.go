package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agamariel/flowershop/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	ErrOrderNotFound = errors.New("order not found")
)

// PostgresOrderStorage реализует OrderStorage для PostgreSQL.
type PostgresOrderStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresOrderStorage создаёт новый экземпляр PostgresOrderStorage.
func NewPostgresOrderStorage(pool *pgxpool.Pool) *PostgresOrderStorage {
	return &PostgresOrderStorage{pool: pool}
}

// Заказ вместе с транзакцией и заявкой на возврат. Шаг доставки вычисляется
// подзапросом по журналу и нужен только для фильтрации.
const orderSelect = `
	SELECT o.id, o.order_code, o.total, o.cancelled_at, o.created_at,
	       t.id, t.status, t.updated_at,
	       r.id, r.refund_amount, r.status, r.reason, r.created_at, r.updated_at
	FROM orders o
	LEFT JOIN transactions t ON t.order_id = o.id
	LEFT JOIN refund_requests r ON r.order_id = o.id
	LEFT JOIN LATERAL (
		SELECT e.step
		FROM delivery_status_events e
		WHERE e.order_id = o.id
		ORDER BY e.event_at DESC, e.id DESC
		LIMIT 1
	) cur ON TRUE
`

// GetByID возвращает заказ по идентификатору.
func (s *PostgresOrderStorage) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	return getOrder(ctx, s.pool, id)
}

// GetByIDTx читает заказ внутри транзакции.
func (s *PostgresOrderStorage) GetByIDTx(ctx context.Context, tx pgx.Tx, id int64) (*models.Order, error) {
	return getOrder(ctx, tx, id)
}

func getOrder(ctx context.Context, q querier, id int64) (*models.Order, error) {
	return scanOrder(q.QueryRow(ctx, orderSelect+` WHERE o.id = $1`, id))
}

// List возвращает страницу заказов (новые первыми).
func (s *PostgresOrderStorage) List(ctx context.Context, filter models.OrderFilter, page models.Page) ([]*models.Order, error) {
	query := orderSelect + `
		WHERE ($1::text IS NULL OR cur.step = $1)
		  AND ($2::timestamptz IS NULL OR o.created_at >= $2)
		  AND ($3::timestamptz IS NULL OR o.created_at < $3)
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT $4 OFFSET $5
	`

	step, from, to := filterArgs(filter)
	rows, err := s.pool.Query(ctx, query, step, from, to, page.Size, page.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	return collectOrders(rows)
}

// ListAll возвращает все заказы по фильтру, используется для отчётов.
func (s *PostgresOrderStorage) ListAll(ctx context.Context, filter models.OrderFilter) ([]*models.Order, error) {
	query := orderSelect + `
		WHERE ($1::text IS NULL OR cur.step = $1)
		  AND ($2::timestamptz IS NULL OR o.created_at >= $2)
		  AND ($3::timestamptz IS NULL OR o.created_at < $3)
		ORDER BY o.id
	`

	step, from, to := filterArgs(filter)
	rows, err := s.pool.Query(ctx, query, step, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders for report: %w", err)
	}
	return collectOrders(rows)
}

// LockTx берёт транзакционную advisory-блокировку заказа. Все изменения журнала
// доставки и отмена заказа выполняются под ней, поэтому они сериализуются.
func (s *PostgresOrderStorage) LockTx(ctx context.Context, tx pgx.Tx, id int64) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, id); err != nil {
		return fmt.Errorf("failed to lock order %d: %w", id, err)
	}
	return nil
}

// MarkCancelledTx проставляет время отмены заказа.
func (s *PostgresOrderStorage) MarkCancelledTx(ctx context.Context, tx pgx.Tx, id int64, at time.Time) error {
	result, err := tx.Exec(ctx, `
		UPDATE orders
		SET cancelled_at = $1
		WHERE id = $2 AND cancelled_at IS NULL
	`, at, id)
	if err != nil {
		return fmt.Errorf("failed to mark order cancelled: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func filterArgs(filter models.OrderFilter) (step *string, from, to *time.Time) {
	if filter.Step != nil {
		s := string(*filter.Step)
		step = &s
	}
	return step, filter.CreatedFrom, filter.CreatedTo
}

func collectOrders(rows pgx.Rows) ([]*models.Order, error) {
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("rows error: %w", rows.Err())
	}

	return orders, nil
}

// scanOrder помогает читать заказ из строки результата. Статусы приводятся
// к каноническим значениям здесь же.
func scanOrder(row pgx.Row) (*models.Order, error) {
	var (
		order models.Order

		txID        *int64
		txStatus    *string
		txUpdatedAt *time.Time

		refundID        *uuid.UUID
		refundAmount    decimal.NullDecimal
		refundStatus    *string
		refundReason    *string
		refundCreatedAt *time.Time
		refundUpdatedAt *time.Time
	)

	err := row.Scan(
		&order.ID,
		&order.Code,
		&order.Total,
		&order.CancelledAt,
		&order.CreatedAt,
		&txID,
		&txStatus,
		&txUpdatedAt,
		&refundID,
		&refundAmount,
		&refundStatus,
		&refundReason,
		&refundCreatedAt,
		&refundUpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}

	if txID != nil {
		status, err := models.ParseTransactionStatus(deref(txStatus))
		if err != nil {
			return nil, fmt.Errorf("order %s: %w", order.Code, err)
		}
		order.Transaction = &models.Transaction{
			ID:        *txID,
			OrderID:   order.ID,
			Status:    status,
			UpdatedAt: derefTime(txUpdatedAt),
		}
	}

	if refundID != nil {
		status, err := models.ParseRefundStatus(deref(refundStatus))
		if err != nil {
			return nil, fmt.Errorf("order %s: %w", order.Code, err)
		}
		order.Refund = &models.RefundRequest{
			ID:           *refundID,
			OrderID:      order.ID,
			RefundAmount: refundAmount.Decimal,
			Status:       status,
			Reason:       deref(refundReason),
			CreatedAt:    derefTime(refundCreatedAt),
			UpdatedAt:    derefTime(refundUpdatedAt),
		}
	}

	return &order, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
