package models

import (
	"fmt"
	"strings"
)

// DeliveryStep шаг доставки заказа.
type DeliveryStep string

const (
	StepPendingConfirmation DeliveryStep = "PENDING_CONFIRMATION"
	StepPreparing           DeliveryStep = "PREPARING"
	StepDelivering          DeliveryStep = "DELIVERING"
	StepDelivered           DeliveryStep = "DELIVERED"
	StepDeliveryFailed      DeliveryStep = "DELIVERY_FAILED"
)

// AllDeliverySteps перечисляет шаги в порядке движения заказа.
var AllDeliverySteps = []DeliveryStep{
	StepPendingConfirmation,
	StepPreparing,
	StepDelivering,
	StepDelivered,
	StepDeliveryFailed,
}

// ParseDeliveryStep разбирает шаг доставки без учёта регистра.
func ParseDeliveryStep(s string) (DeliveryStep, error) {
	step := DeliveryStep(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range AllDeliverySteps {
		if step == known {
			return step, nil
		}
	}
	return "", fmt.Errorf("%w: unknown delivery step %q", ErrValidation, s)
}

// TransactionStatus статус платёжной транзакции.
type TransactionStatus string

const (
	TransactionUnpaid    TransactionStatus = "UNPAID"
	TransactionPending   TransactionStatus = "PENDING"
	TransactionPaid      TransactionStatus = "PAID"
	TransactionSuccess   TransactionStatus = "SUCCESS"
	TransactionFailed    TransactionStatus = "FAILED"
	TransactionCancelled TransactionStatus = "CANCELLED"
	TransactionExpired   TransactionStatus = "EXPIRED"
)

// ParseTransactionStatus разбирает статус транзакции.
// Написание CANCELED приводится к CANCELLED.
func ParseTransactionStatus(s string) (TransactionStatus, error) {
	switch v := TransactionStatus(strings.ToUpper(strings.TrimSpace(s))); v {
	case TransactionUnpaid, TransactionPending, TransactionPaid, TransactionSuccess,
		TransactionFailed, TransactionCancelled, TransactionExpired:
		return v, nil
	case "CANCELED":
		return TransactionCancelled, nil
	default:
		return "", fmt.Errorf("%w: unknown transaction status %q", ErrValidation, s)
	}
}

// IsSuccessful сообщает, что деньги по транзакции получены.
func (s TransactionStatus) IsSuccessful() bool {
	return s == TransactionSuccess || s == TransactionPaid
}

// IsCancelled сообщает, что транзакция отменена или провалена.
func (s TransactionStatus) IsCancelled() bool {
	return s == TransactionCancelled || s == TransactionFailed
}

// RefundStatus статус заявки на возврат.
type RefundStatus string

const (
	RefundPending    RefundStatus = "PENDING"
	RefundProcessing RefundStatus = "PROCESSING"
	RefundCompleted  RefundStatus = "COMPLETED"
	RefundRejected   RefundStatus = "REJECTED"
)

// ParseRefundStatus разбирает статус возврата.
func ParseRefundStatus(s string) (RefundStatus, error) {
	switch v := RefundStatus(strings.ToUpper(strings.TrimSpace(s))); v {
	case RefundPending, RefundProcessing, RefundCompleted, RefundRejected:
		return v, nil
	default:
		return "", fmt.Errorf("%w: unknown refund status %q", ErrValidation, s)
	}
}

// PaymentStatus итоговый платёжный статус заказа для списков оператора.
type PaymentStatus string

const (
	PaymentAwaiting          PaymentStatus = "AWAITING_PAYMENT"
	PaymentUnpaid            PaymentStatus = "UNPAID"
	PaymentPending           PaymentStatus = "PENDING"
	PaymentPaid              PaymentStatus = "PAID"
	PaymentFailed            PaymentStatus = "FAILED"
	PaymentCancelled         PaymentStatus = "CANCELLED"
	PaymentExpired           PaymentStatus = "EXPIRED"
	PaymentRefundPending     PaymentStatus = "REFUND_PENDING"
	PaymentPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
	PaymentRefunded          PaymentStatus = "REFUNDED"
)
