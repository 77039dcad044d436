package fulfillment

import (
	"errors"
	"fmt"

	"github.com/agamariel/flowershop/internal/models"
)

// Ошибки бизнес-правил. Все они исправимы оператором и возвращаются вызывающему
// обёрнутыми в сообщение о нарушенном правиле.
var (
	ErrInvalidTransition = errors.New("invalid delivery status transition")
	ErrNotCancellable    = errors.New("order is not cancellable")
	ErrAlreadyRefunded   = errors.New("order already has a refund request")
	ErrMissingReason     = errors.New("cancellation reason is required")
	ErrNotFound          = errors.New("not found")
	ErrValidation        = models.ErrValidation

	// ErrPersistence отличает сбои хранилища от нарушений правил.
	ErrPersistence = errors.New("persistence failure")
)

// Persistence оборачивает ошибку хранилища, сохраняя исходную причину.
func Persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

// IsRuleViolation сообщает, что ошибка вызвана нарушением бизнес-правила.
func IsRuleViolation(err error) bool {
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrNotCancellable) ||
		errors.Is(err, ErrAlreadyRefunded) ||
		errors.Is(err, ErrMissingReason) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrValidation)
}
