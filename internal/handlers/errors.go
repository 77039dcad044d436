package handlers

import (
	"errors"
	"net/http"

	"github.com/agamariel/flowershop/internal/fulfillment"
	"github.com/labstack/echo/v4"
)

// fulfillmentError переводит ошибку сервиса в HTTP-ответ.
// Текст нарушенного правила возвращается клиенту, причины 5xx только логируются.
func fulfillmentError(c echo.Context, op string, err error) error {
	switch {
	case errors.Is(err, fulfillment.ErrInvalidTransition),
		errors.Is(err, fulfillment.ErrNotCancellable),
		errors.Is(err, fulfillment.ErrAlreadyRefunded):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, fulfillment.ErrMissingReason),
		errors.Is(err, fulfillment.ErrValidation):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, fulfillment.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, fulfillment.ErrPersistence):
		c.Logger().Errorf("%s: %v", op, err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "storage unavailable, retry later")
	default:
		c.Logger().Errorf("%s: %v", op, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}
