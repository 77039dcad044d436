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
	ErrEventNotFound = errors.New("delivery event not found")
)

// PostgresDeliveryEventStorage реализует DeliveryEventStorage для PostgreSQL.
type PostgresDeliveryEventStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresDeliveryEventStorage создаёт новый экземпляр.
func NewPostgresDeliveryEventStorage(pool *pgxpool.Pool) *PostgresDeliveryEventStorage {
	return &PostgresDeliveryEventStorage{pool: pool}
}

const eventColumns = `id, order_id, step, event_at, note, location, image_url`

// ListByOrderTx возвращает журнал заказа внутри транзакции.
func (s *PostgresDeliveryEventStorage) ListByOrderTx(ctx context.Context, tx pgx.Tx, orderID int64) ([]models.DeliveryEvent, error) {
	return listEvents(ctx, tx, orderID)
}

// ListByOrder возвращает журнал заказа.
func (s *PostgresDeliveryEventStorage) ListByOrder(ctx context.Context, orderID int64) ([]models.DeliveryEvent, error) {
	return listEvents(ctx, s.pool, orderID)
}

func listEvents(ctx context.Context, q querier, orderID int64) ([]models.DeliveryEvent, error) {
	rows, err := q.Query(ctx, `
		SELECT `+eventColumns+`
		FROM delivery_status_events
		WHERE order_id = $1
		ORDER BY event_at, id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query delivery events: %w", err)
	}
	defer rows.Close()

	var events []models.DeliveryEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("rows error: %w", rows.Err())
	}

	return events, nil
}

// ListByOrderIDs возвращает журналы нескольких заказов одним запросом.
func (s *PostgresDeliveryEventStorage) ListByOrderIDs(ctx context.Context, orderIDs []int64) (map[int64][]models.DeliveryEvent, error) {
	result := make(map[int64][]models.DeliveryEvent, len(orderIDs))
	if len(orderIDs) == 0 {
		return result, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+eventColumns+`
		FROM delivery_status_events
		WHERE order_id = ANY($1)
		ORDER BY order_id, event_at, id
	`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query delivery events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		result[e.OrderID] = append(result[e.OrderID], *e)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("rows error: %w", rows.Err())
	}

	return result, nil
}

// CreateWithTx добавляет событие в журнал в рамках переданной транзакции.
func (s *PostgresDeliveryEventStorage) CreateWithTx(ctx context.Context, tx pgx.Tx, event *models.DeliveryEvent) error {
	query := `
		INSERT INTO delivery_status_events (order_id, step, event_at, note, location, image_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := tx.QueryRow(ctx, query,
		event.OrderID,
		string(event.Step),
		event.EventAt,
		event.Note,
		event.Location,
		event.ImageURL,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("failed to create delivery event: %w", err)
	}

	return nil
}

// UpdateImageTx заменяет фото-подтверждение события, принадлежащего заказу.
func (s *PostgresDeliveryEventStorage) UpdateImageTx(ctx context.Context, tx pgx.Tx, orderID, eventID int64, imageURL string) (*models.DeliveryEvent, error) {
	row := tx.QueryRow(ctx, `
		UPDATE delivery_status_events
		SET image_url = $1
		WHERE id = $2 AND order_id = $3
		RETURNING `+eventColumns, imageURL, eventID, orderID)

	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return e, nil
}

func scanEvent(row pgx.Row) (*models.DeliveryEvent, error) {
	var (
		e    models.DeliveryEvent
		step string
	)

	err := row.Scan(&e.ID, &e.OrderID, &step, &e.EventAt, &e.Note, &e.Location, &e.ImageURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan delivery event: %w", err)
	}

	parsed, err := models.ParseDeliveryStep(step)
	if err != nil {
		return nil, fmt.Errorf("delivery event %d: %w", e.ID, err)
	}
	e.Step = parsed

	return &e, nil
}
