package handlers

import (
	"errors"
	"net/http"

	"github.com/agamariel/flowershop/internal/auth"
	"github.com/agamariel/flowershop/internal/models"
	"github.com/agamariel/flowershop/internal/services"
	"github.com/agamariel/flowershop/internal/storage"
	"github.com/labstack/echo/v4"
)

// OperatorHandler обрабатывает регистрацию и вход операторов.
type OperatorHandler struct {
	operatorService services.OperatorService
}

// NewOperatorHandler создаёт новый экземпляр OperatorHandler.
func NewOperatorHandler(operatorService services.OperatorService) *OperatorHandler {
	return &OperatorHandler{operatorService: operatorService}
}

type operatorResponse struct {
	OperatorID string `json:"operator_id"`
	Login      string `json:"login"`
}

// Register обрабатывает POST /api/operator/register.
func (h *OperatorHandler) Register(c echo.Context) error {
	var req models.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	operator, token, err := h.operatorService.Register(c.Request().Context(), req.Login, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyCredentials):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, storage.ErrLoginExists):
			return echo.NewHTTPError(http.StatusConflict, "login already exists")
		default:
			c.Logger().Errorf("failed to register operator: %v", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
		}
	}

	setAuthToken(c, token)
	return c.JSON(http.StatusOK, operatorResponse{OperatorID: operator.ID.String(), Login: operator.Login})
}

// Login обрабатывает POST /api/operator/login.
func (h *OperatorHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	operator, token, err := h.operatorService.Login(c.Request().Context(), req.Login, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyCredentials):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrInvalidCredentials):
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid login or password")
		default:
			c.Logger().Errorf("failed to login operator: %v", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
		}
	}

	setAuthToken(c, token)
	return c.JSON(http.StatusOK, operatorResponse{OperatorID: operator.ID.String(), Login: operator.Login})
}

// setAuthToken отдаёт токен в cookie и в заголовке ответа.
func setAuthToken(c echo.Context, token string) {
	auth.SetTokenCookie(c, token)
	c.Response().Header().Set("Authorization", "Bearer "+token)
}
