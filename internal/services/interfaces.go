package services

import (
	"context"
	"time"

	"github.com/agamariel/flowershop/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TxBeginner открывает транзакцию. Реализуется *pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStorage определяет интерфейс для работы с заказами.
type OrderStorage interface {
	GetByID(ctx context.Context, id int64) (*models.Order, error)
	GetByIDTx(ctx context.Context, tx pgx.Tx, id int64) (*models.Order, error)
	List(ctx context.Context, filter models.OrderFilter, page models.Page) ([]*models.Order, error)
	ListAll(ctx context.Context, filter models.OrderFilter) ([]*models.Order, error)
	LockTx(ctx context.Context, tx pgx.Tx, id int64) error
	MarkCancelledTx(ctx context.Context, tx pgx.Tx, id int64, at time.Time) error
}

// DeliveryEventStorage определяет интерфейс журнала доставки.
type DeliveryEventStorage interface {
	ListByOrderTx(ctx context.Context, tx pgx.Tx, orderID int64) ([]models.DeliveryEvent, error)
	ListByOrder(ctx context.Context, orderID int64) ([]models.DeliveryEvent, error)
	ListByOrderIDs(ctx context.Context, orderIDs []int64) (map[int64][]models.DeliveryEvent, error)
	CreateWithTx(ctx context.Context, tx pgx.Tx, event *models.DeliveryEvent) error
	UpdateImageTx(ctx context.Context, tx pgx.Tx, orderID, eventID int64, imageURL string) (*models.DeliveryEvent, error)
}

// RefundStorage определяет интерфейс для работы с заявками на возврат.
type RefundStorage interface {
	CreateWithTx(ctx context.Context, tx pgx.Tx, refund *models.RefundRequest) error
	List(ctx context.Context, filter models.RefundFilter) ([]*models.RefundRequest, error)
}

// OutboxStorage определяет интерфейс outbox заявок на возврат.
type OutboxStorage interface {
	CreateWithTx(ctx context.Context, tx pgx.Tx, msg *models.RefundOutboxMessage) error
	GetUnpublished(ctx context.Context, limit int) ([]*models.RefundOutboxMessage, error)
	MarkPublished(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkAttempt(ctx context.Context, id uuid.UUID) error
}

// OperatorStorage определяет интерфейс для работы с операторами.
type OperatorStorage interface {
	Create(ctx context.Context, operator *models.Operator) error
	GetByLogin(ctx context.Context, login string) (*models.Operator, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Operator, error)
}

// RefundPublisher доставляет сообщение о заявке на возврат внешнему процессу.
type RefundPublisher interface {
	PublishRefundRequested(ctx context.Context, msg *models.RefundOutboxMessage) error
}
