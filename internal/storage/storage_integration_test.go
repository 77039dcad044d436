//go:build integration

package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/agamariel/flowershop/internal/migrations"
	"github.com/agamariel/flowershop/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getTestDBPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dbURI := os.Getenv("DATABASE_URI")
	if dbURI == "" {
		t.Skip("DATABASE_URI not set, skipping integration tests")
	}

	db, err := sql.Open("pgx", dbURI)
	require.NoError(t, err)
	require.NoError(t, migrations.Run(db, nil))
	db.Close()

	pool, err := pgxpool.New(context.Background(), dbURI)
	if err != nil {
		t.Fatalf("Unable to connect to database: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// seedOrder создаёт заказ и, если status не пуст, его транзакцию.
func seedOrder(t *testing.T, pool *pgxpool.Pool, total, status string) int64 {
	t.Helper()
	ctx := context.Background()

	var id int64
	err := pool.QueryRow(ctx, `
		INSERT INTO orders (order_code, total) VALUES ($1, $2) RETURNING id
	`, "IT-"+uuid.NewString()[:8], decimal.RequireFromString(total)).Scan(&id)
	require.NoError(t, err)

	if status != "" {
		_, err = pool.Exec(ctx, `INSERT INTO transactions (order_id, status) VALUES ($1, $2)`, id, status)
		require.NoError(t, err)
	}
	return id
}

func appendEvent(t *testing.T, pool *pgxpool.Pool, s *PostgresDeliveryEventStorage, orderID int64, step models.DeliveryStep, at time.Time) *models.DeliveryEvent {
	t.Helper()
	ctx := context.Background()

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	ev := &models.DeliveryEvent{OrderID: orderID, Step: step, EventAt: at}
	require.NoError(t, s.CreateWithTx(ctx, tx, ev))
	require.NoError(t, tx.Commit(ctx))
	return ev
}

func TestPostgresOperatorStorage(t *testing.T) {
	pool := getTestDBPool(t)
	storage := NewPostgresOperatorStorage(pool)
	ctx := context.Background()

	op := &models.Operator{
		ID:           uuid.New(),
		Login:        "florist_" + uuid.NewString() + "@example.com",
		PasswordHash: "hashed_password",
	}
	require.NoError(t, storage.Create(ctx, op))

	got, err := storage.GetByLogin(ctx, op.Login)
	require.NoError(t, err)
	assert.Equal(t, op.ID, got.ID)

	got, err = storage.GetByID(ctx, op.ID)
	require.NoError(t, err)
	assert.Equal(t, op.Login, got.Login)

	dup := &models.Operator{ID: uuid.New(), Login: op.Login, PasswordHash: "other"}
	assert.ErrorIs(t, storage.Create(ctx, dup), ErrLoginExists)

	_, err = storage.GetByLogin(ctx, "nobody_"+uuid.NewString())
	assert.ErrorIs(t, err, ErrOperatorNotFound)
}

func TestPostgresOrderStorage_ReadModel(t *testing.T) {
	pool := getTestDBPool(t)
	orders := NewPostgresOrderStorage(pool)
	events := NewPostgresDeliveryEventStorage(pool)
	ctx := context.Background()

	id := seedOrder(t, pool, "150.00", "CANCELED")
	base := time.Now().UTC().Truncate(time.Microsecond)
	appendEvent(t, pool, events, id, models.StepPendingConfirmation, base)
	appendEvent(t, pool, events, id, models.StepPreparing, base.Add(time.Minute))

	order, err := orders.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, order.Transaction)
	assert.Equal(t, models.TransactionCancelled, order.Transaction.Status)
	assert.True(t, order.Total.Equal(decimal.RequireFromString("150")))
	assert.Nil(t, order.Refund)

	list, err := events.ListByOrder(ctx, id)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	byOrder, err := events.ListByOrderIDs(ctx, []int64{id})
	require.NoError(t, err)
	assert.Len(t, byOrder[id], 2)

	step := models.StepPreparing
	page, err := orders.List(ctx, models.OrderFilter{Step: &step}, models.Page{Number: 1, Size: models.MaxPageSize})
	require.NoError(t, err)
	found := false
	for _, o := range page {
		if o.ID == id {
			found = true
		}
	}
	assert.True(t, found, "order with current step PREPARING must match the filter")

	delivered := models.StepDelivered
	page, err = orders.List(ctx, models.OrderFilter{Step: &delivered}, models.Page{Number: 1, Size: models.MaxPageSize})
	require.NoError(t, err)
	for _, o := range page {
		assert.NotEqual(t, id, o.ID)
	}

	_, err = orders.GetByID(ctx, -1)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestPostgresOrderStorage_LockAndCancel(t *testing.T) {
	pool := getTestDBPool(t)
	orders := NewPostgresOrderStorage(pool)
	ctx := context.Background()
	id := seedOrder(t, pool, "80.00", "PAID")

	tx1, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer tx1.Rollback(ctx)
	require.NoError(t, orders.LockTx(ctx, tx1, id))

	tx2, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer tx2.Rollback(ctx)

	var acquired bool
	require.NoError(t, tx2.QueryRow(ctx, `SELECT pg_try_advisory_xact_lock($1)`, id).Scan(&acquired))
	assert.False(t, acquired, "second transaction must not take the order lock")

	now := time.Now().UTC()
	require.NoError(t, orders.MarkCancelledTx(ctx, tx1, id, now))
	assert.ErrorIs(t, orders.MarkCancelledTx(ctx, tx1, id, now), ErrOrderNotFound)
	require.NoError(t, tx1.Commit(ctx))

	require.NoError(t, tx2.QueryRow(ctx, `SELECT pg_try_advisory_xact_lock($1)`, id).Scan(&acquired))
	assert.True(t, acquired)
}

func TestPostgresDeliveryEventStorage_UpdateImage(t *testing.T) {
	pool := getTestDBPool(t)
	events := NewPostgresDeliveryEventStorage(pool)
	ctx := context.Background()

	id := seedOrder(t, pool, "40.00", "")
	other := seedOrder(t, pool, "40.00", "")
	ev := appendEvent(t, pool, events, id, models.StepDelivered, time.Now().UTC())

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	updated, err := events.UpdateImageTx(ctx, tx, id, ev.ID, "https://cdn.example.com/1.jpg")
	require.NoError(t, err)
	require.NotNil(t, updated.ImageURL)
	assert.Equal(t, "https://cdn.example.com/1.jpg", *updated.ImageURL)
	assert.Equal(t, models.StepDelivered, updated.Step)

	_, err = events.UpdateImageTx(ctx, tx, other, ev.ID, "https://cdn.example.com/2.jpg")
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestPostgresRefundAndOutboxStorage(t *testing.T) {
	pool := getTestDBPool(t)
	refunds := NewPostgresRefundStorage(pool)
	outbox := NewPostgresOutboxStorage(pool)
	ctx := context.Background()

	id := seedOrder(t, pool, "150.00", "SUCCESS")
	now := time.Now().UTC().Truncate(time.Microsecond)

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	refund := &models.RefundRequest{
		ID:           uuid.New(),
		OrderID:      id,
		RefundAmount: decimal.RequireFromString("150.00"),
		Status:       models.RefundPending,
		Reason:       "customer request",
		CreatedAt:    now,
	}
	require.NoError(t, refunds.CreateWithTx(ctx, tx, refund))
	msg := &models.RefundOutboxMessage{
		RefundID:  refund.ID,
		OrderID:   id,
		Payload:   []byte(`{"order_id":1}`),
		CreatedAt: now,
	}
	require.NoError(t, outbox.CreateWithTx(ctx, tx, msg))
	require.NoError(t, tx.Commit(ctx))

	tx, err = pool.Begin(ctx)
	require.NoError(t, err)
	second := *refund
	second.ID = uuid.New()
	err = refunds.CreateWithTx(ctx, tx, &second)
	assert.True(t, errors.Is(err, ErrRefundExists), "got %v", err)
	tx.Rollback(ctx)

	orderID := id
	list, err := refunds.List(ctx, models.RefundFilter{OrderID: &orderID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, refund.ID, list[0].ID)

	pending, err := outbox.GetUnpublished(ctx, 1000)
	require.NoError(t, err)
	var stored *models.RefundOutboxMessage
	for _, m := range pending {
		if m.ID == msg.ID {
			stored = m
		}
	}
	require.NotNil(t, stored)
	assert.JSONEq(t, `{"order_id":1}`, string(stored.Payload))

	require.NoError(t, outbox.MarkAttempt(ctx, msg.ID))
	require.NoError(t, outbox.MarkPublished(ctx, msg.ID, time.Now().UTC()))

	pending, err = outbox.GetUnpublished(ctx, 1000)
	require.NoError(t, err)
	for _, m := range pending {
		assert.NotEqual(t, msg.ID, m.ID)
	}
}
