package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/agamariel/flowershop/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresOutboxStorage реализует OutboxStorage для PostgreSQL.
type PostgresOutboxStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresOutboxStorage создаёт новый экземпляр.
func NewPostgresOutboxStorage(pool *pgxpool.Pool) *PostgresOutboxStorage {
	return &PostgresOutboxStorage{pool: pool}
}

// CreateWithTx записывает сообщение в той же транзакции, что и заявку.
func (s *PostgresOutboxStorage) CreateWithTx(ctx context.Context, tx pgx.Tx, msg *models.RefundOutboxMessage) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}

	_, err := tx.Exec(ctx, `
		INSERT INTO refund_outbox (id, refund_id, order_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, msg.ID, msg.RefundID, msg.OrderID, msg.Payload, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create outbox message: %w", err)
	}
	return nil
}

// GetUnpublished возвращает неотправленные сообщения в порядке создания.
func (s *PostgresOutboxStorage) GetUnpublished(ctx context.Context, limit int) ([]*models.RefundOutboxMessage, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, refund_id, order_id, payload, created_at, published_at, attempts
		FROM refund_outbox
		WHERE published_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox: %w", err)
	}
	defer rows.Close()

	var messages []*models.RefundOutboxMessage
	for rows.Next() {
		var m models.RefundOutboxMessage
		if err := rows.Scan(&m.ID, &m.RefundID, &m.OrderID, &m.Payload, &m.CreatedAt, &m.PublishedAt, &m.Attempts); err != nil {
			return nil, fmt.Errorf("failed to scan outbox message: %w", err)
		}
		messages = append(messages, &m)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("rows error: %w", rows.Err())
	}

	return messages, nil
}

// MarkPublished отмечает сообщение отправленным.
func (s *PostgresOutboxStorage) MarkPublished(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE refund_outbox
		SET published_at = $1, attempts = attempts + 1
		WHERE id = $2
	`, at, id)
	if err != nil {
		return fmt.Errorf("failed to mark outbox message published: %w", err)
	}
	return nil
}

// MarkAttempt учитывает неудачную попытку отправки.
func (s *PostgresOutboxStorage) MarkAttempt(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `UPDATE refund_outbox SET attempts = attempts + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to update outbox attempts: %w", err)
	}
	return nil
}
