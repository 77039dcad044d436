package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/agamariel/flowershop/internal/fulfillment"
	"github.com/agamariel/flowershop/internal/models"
	"github.com/agamariel/flowershop/internal/storage"
)

// FulfillmentService операции оператора над исполнением заказа.
type FulfillmentService interface {
	AppendEvent(ctx context.Context, orderID int64, ev models.NewDeliveryEvent) (*models.DeliveryEvent, error)
	UpdateEvidenceImage(ctx context.Context, orderID, eventID int64, imageURL string) (*models.DeliveryEvent, error)
	Cancel(ctx context.Context, orderID int64, reason string) (*models.RefundRequest, error)
	GetOrder(ctx context.Context, orderID int64) (*models.OrderView, error)
	ListOrders(ctx context.Context, filter models.OrderFilter, page models.Page) ([]*models.OrderView, error)
	ListRefunds(ctx context.Context, filter models.RefundFilter) ([]*models.RefundRequest, error)
	RevenueReport(ctx context.Context, from, to *time.Time) (*models.RevenueReport, error)
}

// FulfillmentServiceImpl реализует FulfillmentService поверх PostgreSQL.
// Изменения одного заказа выполняются в транзакции под advisory-блокировкой заказа.
type FulfillmentServiceImpl struct {
	pool    TxBeginner
	orders  OrderStorage
	events  DeliveryEventStorage
	refunds RefundStorage
	outbox  OutboxStorage
	logger  *slog.Logger
	now     func() time.Time
}

// NewFulfillmentService создаёт сервис исполнения заказов.
func NewFulfillmentService(
	pool TxBeginner,
	orders OrderStorage,
	events DeliveryEventStorage,
	refunds RefundStorage,
	outbox OutboxStorage,
	logger *slog.Logger,
) *FulfillmentServiceImpl {
	if logger == nil {
		logger = slog.Default()
	}
	return &FulfillmentServiceImpl{
		pool:    pool,
		orders:  orders,
		events:  events,
		refunds: refunds,
		outbox:  outbox,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// AppendEvent добавляет событие доставки, если переход допустим из текущего шага.
func (s *FulfillmentServiceImpl) AppendEvent(ctx context.Context, orderID int64, ev models.NewDeliveryEvent) (*models.DeliveryEvent, error) {
	if ev.ImageURL != nil {
		if err := validateImageURL(*ev.ImageURL); err != nil {
			return nil, err
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fulfillment.Persistence("begin tx", err)
	}
	defer tx.Rollback(ctx)

	if err := s.orders.LockTx(ctx, tx, orderID); err != nil {
		return nil, fulfillment.Persistence("lock order", err)
	}

	order, err := s.orders.GetByIDTx(ctx, tx, orderID)
	if err != nil {
		return nil, storageError("get order", orderID, err)
	}

	order.Events, err = s.events.ListByOrderTx(ctx, tx, orderID)
	if err != nil {
		return nil, storageError("list delivery events", orderID, err)
	}

	if err := fulfillment.CheckOrderTransition(order, ev.Step); err != nil {
		return nil, err
	}

	event := &models.DeliveryEvent{
		OrderID:  orderID,
		Step:     ev.Step,
		EventAt:  s.now(),
		Note:     trimmedOrNil(ev.Note),
		Location: trimmedOrNil(ev.Location),
		ImageURL: trimmedOrNil(ev.ImageURL),
	}
	if err := s.events.CreateWithTx(ctx, tx, event); err != nil {
		return nil, fulfillment.Persistence("create delivery event", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fulfillment.Persistence("commit tx", err)
	}

	s.logger.Info("delivery event appended",
		"order_id", orderID, "order_code", order.Code, "step", event.Step, "event_id", event.ID)
	return event, nil
}

// UpdateEvidenceImage заменяет фото-подтверждение события заказа.
func (s *FulfillmentServiceImpl) UpdateEvidenceImage(ctx context.Context, orderID, eventID int64, imageURL string) (*models.DeliveryEvent, error) {
	imageURL = strings.TrimSpace(imageURL)
	if err := validateImageURL(imageURL); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fulfillment.Persistence("begin tx", err)
	}
	defer tx.Rollback(ctx)

	if err := s.orders.LockTx(ctx, tx, orderID); err != nil {
		return nil, fulfillment.Persistence("lock order", err)
	}

	event, err := s.events.UpdateImageTx(ctx, tx, orderID, eventID, imageURL)
	if err != nil {
		if errors.Is(err, storage.ErrEventNotFound) {
			return nil, fmt.Errorf("%w: delivery event %d of order %d", fulfillment.ErrNotFound, eventID, orderID)
		}
		return nil, fulfillment.Persistence("update evidence image", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fulfillment.Persistence("commit tx", err)
	}

	s.logger.Info("evidence image replaced", "order_id", orderID, "event_id", eventID)
	return event, nil
}

// Cancel отменяет заказ и создаёт заявку на возврат полной суммы.
// Отметка об отмене, заявка и сообщение outbox пишутся в одной транзакции.
func (s *FulfillmentServiceImpl) Cancel(ctx context.Context, orderID int64, reason string) (*models.RefundRequest, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fulfillment.Persistence("begin tx", err)
	}
	defer tx.Rollback(ctx)

	if err := s.orders.LockTx(ctx, tx, orderID); err != nil {
		return nil, fulfillment.Persistence("lock order", err)
	}

	order, err := s.orders.GetByIDTx(ctx, tx, orderID)
	if err != nil {
		return nil, storageError("get order", orderID, err)
	}

	order.Events, err = s.events.ListByOrderTx(ctx, tx, orderID)
	if err != nil {
		return nil, storageError("list delivery events", orderID, err)
	}

	reason, err = fulfillment.CheckCancellation(order, reason)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.orders.MarkCancelledTx(ctx, tx, orderID, now); err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			return nil, fmt.Errorf("%w: order %s is already cancelled", fulfillment.ErrAlreadyRefunded, order.Code)
		}
		return nil, fulfillment.Persistence("mark order cancelled", err)
	}

	refund := fulfillment.NewRefundRequest(order, reason, now)
	if err := s.refunds.CreateWithTx(ctx, tx, refund); err != nil {
		if errors.Is(err, storage.ErrRefundExists) {
			return nil, fmt.Errorf("%w: order %s", fulfillment.ErrAlreadyRefunded, order.Code)
		}
		return nil, fulfillment.Persistence("create refund request", err)
	}

	payload, err := json.Marshal(models.RefundRequestedEvent{
		RefundID:     refund.ID,
		OrderID:      order.ID,
		OrderCode:    order.Code,
		RefundAmount: refund.RefundAmount,
		Reason:       refund.Reason,
		RequestedAt:  now,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal refund event: %w", err)
	}

	msg := &models.RefundOutboxMessage{
		RefundID:  refund.ID,
		OrderID:   order.ID,
		Payload:   payload,
		CreatedAt: now,
	}
	if err := s.outbox.CreateWithTx(ctx, tx, msg); err != nil {
		return nil, fulfillment.Persistence("create outbox message", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fulfillment.Persistence("commit tx", err)
	}

	s.logger.Info("order cancelled",
		"order_id", orderID, "order_code", order.Code, "refund_id", refund.ID, "refund_amount", refund.RefundAmount.String())
	return refund, nil
}

// GetOrder возвращает карточку заказа с журналом доставки.
func (s *FulfillmentServiceImpl) GetOrder(ctx context.Context, orderID int64) (*models.OrderView, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, storageError("get order", orderID, err)
	}

	order.Events, err = s.events.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, storageError("list delivery events", orderID, err)
	}

	return fulfillment.BuildView(order, true)
}

// ListOrders возвращает страницу заказов для консоли оператора.
func (s *FulfillmentServiceImpl) ListOrders(ctx context.Context, filter models.OrderFilter, page models.Page) ([]*models.OrderView, error) {
	page, err := normalizePage(page)
	if err != nil {
		return nil, err
	}

	orders, err := s.orders.List(ctx, filter, page)
	if err != nil {
		return nil, storageError("list orders", 0, err)
	}
	if len(orders) == 0 {
		return []*models.OrderView{}, nil
	}

	if err := s.attachEvents(ctx, orders); err != nil {
		return nil, err
	}

	return fulfillment.BuildViews(orders)
}

// ListRefunds возвращает заявки на возврат.
func (s *FulfillmentServiceImpl) ListRefunds(ctx context.Context, filter models.RefundFilter) ([]*models.RefundRequest, error) {
	refunds, err := s.refunds.List(ctx, filter)
	if err != nil {
		return nil, storageError("list refunds", 0, err)
	}
	if refunds == nil {
		refunds = []*models.RefundRequest{}
	}
	return refunds, nil
}

// RevenueReport считает сводную выручку по заказам, созданным в [from, to).
func (s *FulfillmentServiceImpl) RevenueReport(ctx context.Context, from, to *time.Time) (*models.RevenueReport, error) {
	if from != nil && to != nil && !from.Before(*to) {
		return nil, fmt.Errorf("%w: report period start %s must be before end %s",
			fulfillment.ErrValidation, from.Format(time.RFC3339), to.Format(time.RFC3339))
	}

	orders, err := s.orders.ListAll(ctx, models.OrderFilter{CreatedFrom: from, CreatedTo: to})
	if err != nil {
		return nil, storageError("list orders for report", 0, err)
	}

	revenue, err := fulfillment.ReconcileBatch(ctx, orders)
	if err != nil {
		return nil, err
	}

	return &models.RevenueReport{
		From:       from,
		To:         to,
		OrderCount: len(orders),
		Revenue:    revenue,
	}, nil
}

func (s *FulfillmentServiceImpl) attachEvents(ctx context.Context, orders []*models.Order) error {
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}

	byOrder, err := s.events.ListByOrderIDs(ctx, ids)
	if err != nil {
		return storageError("list delivery events", 0, err)
	}
	for _, o := range orders {
		o.Events = byOrder[o.ID]
	}
	return nil
}

// storageError переводит ошибки хранилища в ошибки предметной области.
func storageError(op string, orderID int64, err error) error {
	switch {
	case errors.Is(err, storage.ErrOrderNotFound):
		return fmt.Errorf("%w: order %d", fulfillment.ErrNotFound, orderID)
	case errors.Is(err, models.ErrValidation):
		return err
	default:
		return fulfillment.Persistence(op, err)
	}
}

func normalizePage(page models.Page) (models.Page, error) {
	if page.Number == 0 {
		page.Number = 1
	}
	if page.Size == 0 {
		page.Size = models.DefaultPageSize
	}
	if page.Number < 1 {
		return page, fmt.Errorf("%w: page must be >= 1, got %d", fulfillment.ErrValidation, page.Number)
	}
	if page.Size < 1 || page.Size > models.MaxPageSize {
		return page, fmt.Errorf("%w: page size must be in 1..%d, got %d",
			fulfillment.ErrValidation, models.MaxPageSize, page.Size)
	}
	return page, nil
}

func validateImageURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: evidence image must be an absolute http(s) URL, got %q", fulfillment.ErrValidation, raw)
	}
	return nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
