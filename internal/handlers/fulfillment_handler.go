package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/agamariel/flowershop/internal/auth"
	"github.com/agamariel/flowershop/internal/models"
	"github.com/agamariel/flowershop/internal/services"
	"github.com/labstack/echo/v4"
)

// FulfillmentHandler обрабатывает запросы консоли оператора по заказам.
type FulfillmentHandler struct {
	service services.FulfillmentService
}

func NewFulfillmentHandler(service services.FulfillmentService) *FulfillmentHandler {
	return &FulfillmentHandler{service: service}
}

// ListOrders обрабатывает GET /api/admin/orders.
func (h *FulfillmentHandler) ListOrders(c echo.Context) error {
	var (
		filter models.OrderFilter
		page   models.Page
		err    error
	)

	if raw := c.QueryParam("step"); raw != "" {
		step, err := models.ParseDeliveryStep(raw)
		if err != nil {
			return fulfillmentError(c, "list orders", err)
		}
		filter.Step = &step
	}
	if filter.CreatedFrom, err = timeParam(c, "from"); err != nil {
		return fulfillmentError(c, "list orders", err)
	}
	if filter.CreatedTo, err = timeParam(c, "to"); err != nil {
		return fulfillmentError(c, "list orders", err)
	}
	if page.Number, err = intParam(c, "page"); err != nil {
		return fulfillmentError(c, "list orders", err)
	}
	if page.Size, err = intParam(c, "page_size"); err != nil {
		return fulfillmentError(c, "list orders", err)
	}

	views, err := h.service.ListOrders(c.Request().Context(), filter, page)
	if err != nil {
		return fulfillmentError(c, "list orders", err)
	}
	return c.JSON(http.StatusOK, views)
}

// GetOrder обрабатывает GET /api/admin/orders/:id.
func (h *FulfillmentHandler) GetOrder(c echo.Context) error {
	orderID, err := idParam(c, "id")
	if err != nil {
		return err
	}

	view, err := h.service.GetOrder(c.Request().Context(), orderID)
	if err != nil {
		return fulfillmentError(c, "get order", err)
	}
	return c.JSON(http.StatusOK, view)
}

// AppendDeliveryEvent обрабатывает POST /api/admin/orders/:id/delivery-status.
func (h *FulfillmentHandler) AppendDeliveryEvent(c echo.Context) error {
	orderID, err := idParam(c, "id")
	if err != nil {
		return err
	}

	var req models.DeliveryEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return fulfillmentError(c, "append delivery event", err)
	}

	step, err := models.ParseDeliveryStep(req.Step)
	if err != nil {
		return fulfillmentError(c, "append delivery event", err)
	}

	event, err := h.service.AppendEvent(c.Request().Context(), orderID, models.NewDeliveryEvent{
		Step:     step,
		Note:     req.Note,
		Location: req.Location,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		return fulfillmentError(c, "append delivery event", err)
	}
	return c.JSON(http.StatusCreated, event)
}

// UpdateEvidenceImage обрабатывает PUT /api/admin/orders/:id/delivery-status/:event_id/image.
func (h *FulfillmentHandler) UpdateEvidenceImage(c echo.Context) error {
	orderID, err := idParam(c, "id")
	if err != nil {
		return err
	}
	eventID, err := idParam(c, "event_id")
	if err != nil {
		return err
	}

	var req models.EvidenceImageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return fulfillmentError(c, "update evidence image", err)
	}

	event, err := h.service.UpdateEvidenceImage(c.Request().Context(), orderID, eventID, req.ImageURL)
	if err != nil {
		return fulfillmentError(c, "update evidence image", err)
	}
	return c.JSON(http.StatusOK, event)
}

// CancelOrder обрабатывает POST /api/admin/orders/:id/cancel.
// Пустая причина не отсекается здесь: сначала проверяется шаг заказа.
func (h *FulfillmentHandler) CancelOrder(c echo.Context) error {
	orderID, err := idParam(c, "id")
	if err != nil {
		return err
	}

	var req models.CancelRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}

	refund, err := h.service.Cancel(c.Request().Context(), orderID, req.Reason)
	if err != nil {
		return fulfillmentError(c, "cancel order", err)
	}

	operator, _ := auth.GetOperatorLoginFromContext(c)
	c.Logger().Infof("order %d cancelled by %s, refund %s", orderID, operator, refund.ID)
	return c.JSON(http.StatusCreated, refund)
}

// ListRefunds обрабатывает GET /api/admin/refunds.
func (h *FulfillmentHandler) ListRefunds(c echo.Context) error {
	var filter models.RefundFilter

	if raw := c.QueryParam("status"); raw != "" {
		status, err := models.ParseRefundStatus(raw)
		if err != nil {
			return fulfillmentError(c, "list refunds", err)
		}
		filter.Status = &status
	}
	if raw := c.QueryParam("order_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return fulfillmentError(c, "list refunds",
				fmt.Errorf("%w: order_id must be a positive integer, got %q", models.ErrValidation, raw))
		}
		filter.OrderID = &id
	}

	refunds, err := h.service.ListRefunds(c.Request().Context(), filter)
	if err != nil {
		return fulfillmentError(c, "list refunds", err)
	}
	return c.JSON(http.StatusOK, refunds)
}

// RevenueReport обрабатывает GET /api/admin/reports/revenue.
func (h *FulfillmentHandler) RevenueReport(c echo.Context) error {
	from, err := timeParam(c, "from")
	if err != nil {
		return fulfillmentError(c, "revenue report", err)
	}
	to, err := timeParam(c, "to")
	if err != nil {
		return fulfillmentError(c, "revenue report", err)
	}

	report, err := h.service.RevenueReport(c.Request().Context(), from, to)
	if err != nil {
		return fulfillmentError(c, "revenue report", err)
	}
	return c.JSON(http.StatusOK, report)
}

func idParam(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid %s", name))
	}
	return id, nil
}

func intParam(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", models.ErrValidation, name, raw)
	}
	return v, nil
}

// timeParam принимает RFC 3339 или дату вида 2006-01-02 (полночь UTC).
func timeParam(c echo.Context, name string) (*time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return &t, nil
	}
	return nil, fmt.Errorf("%w: %s must be RFC 3339 time or YYYY-MM-DD date, got %q", models.ErrValidation, name, raw)
}
