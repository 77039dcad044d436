package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/agamariel/flowershop/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrRefundExists = errors.New("refund request already exists for order")
)

// PostgresRefundStorage реализует RefundStorage для PostgreSQL.
type PostgresRefundStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresRefundStorage создаёт новый экземпляр.
func NewPostgresRefundStorage(pool *pgxpool.Pool) *PostgresRefundStorage {
	return &PostgresRefundStorage{pool: pool}
}

// CreateWithTx создаёт заявку в рамках переданной транзакции.
// Уникальный индекс по order_id не даёт создать вторую заявку.
func (s *PostgresRefundStorage) CreateWithTx(ctx context.Context, tx pgx.Tx, refund *models.RefundRequest) error {
	query := `
		INSERT INTO refund_requests (id, order_id, refund_amount, status, reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
	`

	_, err := tx.Exec(ctx, query,
		refund.ID,
		refund.OrderID,
		refund.RefundAmount,
		string(refund.Status),
		refund.Reason,
		refund.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrRefundExists
		}
		return fmt.Errorf("failed to create refund request: %w", err)
	}

	return nil
}

// List возвращает заявки, новые первыми.
func (s *PostgresRefundStorage) List(ctx context.Context, filter models.RefundFilter) ([]*models.RefundRequest, error) {
	var status *string
	if filter.Status != nil {
		v := string(*filter.Status)
		status = &v
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, order_id, refund_amount, status, reason, created_at, updated_at
		FROM refund_requests
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::bigint IS NULL OR order_id = $2)
		ORDER BY created_at DESC
	`, status, filter.OrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query refund requests: %w", err)
	}
	defer rows.Close()

	var refunds []*models.RefundRequest
	for rows.Next() {
		var (
			r         models.RefundRequest
			rawStatus string
		)
		if err := rows.Scan(&r.ID, &r.OrderID, &r.RefundAmount, &rawStatus, &r.Reason, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan refund request: %w", err)
		}
		if r.Status, err = models.ParseRefundStatus(rawStatus); err != nil {
			return nil, fmt.Errorf("refund %s: %w", r.ID, err)
		}
		refunds = append(refunds, &r)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("rows error: %w", rows.Err())
	}

	return refunds, nil
}
