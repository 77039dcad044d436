package models

import (
	"time"

	"github.com/google/uuid"
)

// Operator сотрудник магазина с доступом к консоли.
type Operator struct {
	ID           uuid.UUID `db:"id"`
	Login        string    `db:"login"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// RegisterRequest - запрос на регистрацию оператора.
type RegisterRequest struct {
	Login    string `json:"login" validate:"required,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest - запрос на аутентификацию оператора.
type LoginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}
