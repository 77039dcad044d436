package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/agamariel/flowershop/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrOperatorNotFound = errors.New("operator not found")
	ErrLoginExists      = errors.New("login already exists")
)

// PostgresOperatorStorage реализует OperatorStorage для PostgreSQL.
type PostgresOperatorStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresOperatorStorage создаёт новый экземпляр PostgresOperatorStorage.
func NewPostgresOperatorStorage(pool *pgxpool.Pool) *PostgresOperatorStorage {
	return &PostgresOperatorStorage{pool: pool}
}

// Create создаёт нового оператора.
func (s *PostgresOperatorStorage) Create(ctx context.Context, operator *models.Operator) error {
	query := `
		INSERT INTO operators (id, login, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	// Генерируем UUID, если не задан
	if operator.ID == uuid.Nil {
		operator.ID = uuid.New()
	}

	err := s.pool.QueryRow(ctx, query,
		operator.ID,
		operator.Login,
		operator.PasswordHash,
	).Scan(&operator.ID, &operator.CreatedAt, &operator.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrLoginExists
		}
		return fmt.Errorf("failed to create operator: %w", err)
	}

	return nil
}

// GetByLogin ищет оператора по логину.
func (s *PostgresOperatorStorage) GetByLogin(ctx context.Context, login string) (*models.Operator, error) {
	query := `
		SELECT id, login, password_hash, created_at, updated_at
		FROM operators
		WHERE login = $1
	`

	return scanOperator(s.pool.QueryRow(ctx, query, login))
}

// GetByID ищет оператора по ID.
func (s *PostgresOperatorStorage) GetByID(ctx context.Context, id uuid.UUID) (*models.Operator, error) {
	query := `
		SELECT id, login, password_hash, created_at, updated_at
		FROM operators
		WHERE id = $1
	`

	return scanOperator(s.pool.QueryRow(ctx, query, id))
}

func scanOperator(row pgx.Row) (*models.Operator, error) {
	operator := &models.Operator{}
	err := row.Scan(
		&operator.ID,
		&operator.Login,
		&operator.PasswordHash,
		&operator.CreatedAt,
		&operator.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOperatorNotFound
		}
		return nil, fmt.Errorf("failed to get operator: %w", err)
	}

	return operator, nil
}
