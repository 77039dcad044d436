package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agamariel/flowershop/internal/auth"
	"github.com/agamariel/flowershop/internal/models"
	"github.com/agamariel/flowershop/internal/storage"
	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmptyCredentials   = errors.New("login and password are required")
)

// OperatorService регистрация и вход операторов консоли.
type OperatorService interface {
	Register(ctx context.Context, login, password string) (*models.Operator, string, error)
	Login(ctx context.Context, login, password string) (*models.Operator, string, error)
}

// OperatorServiceImpl реализует OperatorService.
type OperatorServiceImpl struct {
	operatorStorage OperatorStorage
	jwtSecret       string
	tokenExpiration time.Duration
}

// NewOperatorService создаёт новый экземпляр OperatorService.
func NewOperatorService(operatorStorage OperatorStorage, jwtSecret string, tokenExpiration time.Duration) *OperatorServiceImpl {
	return &OperatorServiceImpl{
		operatorStorage: operatorStorage,
		jwtSecret:       jwtSecret,
		tokenExpiration: tokenExpiration,
	}
}

// Register регистрирует нового оператора.
func (s *OperatorServiceImpl) Register(ctx context.Context, login, password string) (*models.Operator, string, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, "", ErrEmptyCredentials
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	operator := &models.Operator{
		ID:           uuid.New(),
		Login:        login,
		PasswordHash: passwordHash,
	}

	if err := s.operatorStorage.Create(ctx, operator); err != nil {
		if errors.Is(err, storage.ErrLoginExists) {
			return nil, "", storage.ErrLoginExists
		}
		return nil, "", fmt.Errorf("failed to create operator: %w", err)
	}

	token, err := s.generateToken(operator)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	return operator, token, nil
}

// Login аутентифицирует оператора.
func (s *OperatorServiceImpl) Login(ctx context.Context, login, password string) (*models.Operator, string, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, "", ErrEmptyCredentials
	}

	operator, err := s.operatorStorage.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, storage.ErrOperatorNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to get operator: %w", err)
	}

	if !auth.CheckPassword(password, operator.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.generateToken(operator)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	return operator, token, nil
}

func (s *OperatorServiceImpl) generateToken(operator *models.Operator) (string, error) {
	exp := s.tokenExpiration
	if exp <= 0 {
		exp = 24 * time.Hour
	}
	return auth.GenerateToken(operator, s.jwtSecret, exp)
}
