package models

import "time"

// DeliveryEvent событие журнала доставки. После создания меняется только ImageURL.
type DeliveryEvent struct {
	ID       int64        `db:"id" json:"id"`
	OrderID  int64        `db:"order_id" json:"order_id"`
	Step     DeliveryStep `db:"step" json:"step"`
	EventAt  time.Time    `db:"event_at" json:"event_at"`
	Note     *string      `db:"note" json:"note,omitempty"`
	Location *string      `db:"location" json:"location,omitempty"`
	ImageURL *string      `db:"image_url" json:"image_url,omitempty"`
}

// NewDeliveryEvent параметры нового события доставки.
type NewDeliveryEvent struct {
	Step     DeliveryStep
	Note     *string
	Location *string
	ImageURL *string
}

// DeliveryEventRequest DTO для POST /orders/:id/delivery-status.
type DeliveryEventRequest struct {
	Step     string  `json:"step" validate:"required"`
	Note     *string `json:"note,omitempty" validate:"omitempty,max=1000"`
	Location *string `json:"location,omitempty" validate:"omitempty,max=255"`
	ImageURL *string `json:"image_url,omitempty" validate:"omitempty,url"`
}

// EvidenceImageRequest DTO для замены фото-подтверждения.
type EvidenceImageRequest struct {
	ImageURL string `json:"image_url" validate:"required,url"`
}
