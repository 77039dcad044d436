package auth

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ContextKey - тип для ключей контекста.
type ContextKey string

const (
	OperatorIDKey    ContextKey = "operator_id"
	OperatorLoginKey ContextKey = "operator_login"
)

const cookieName = "Authorization"

// JWTMiddleware пропускает только запросы с валидным токеном оператора.
// Токен берётся из заголовка Authorization, затем из одноимённой cookie.
func JWTMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := extractTokenFromHeader(c)
			if token == "" {
				token = extractTokenFromCookie(c)
			}
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing or invalid token")
			}

			claims, err := ValidateToken(token, secret)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(string(OperatorIDKey), claims.OperatorID)
			c.Set(string(OperatorLoginKey), claims.Login)

			return next(c)
		}
	}
}

// SetTokenCookie выставляет токен в cookie ответа.
func SetTokenCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func extractTokenFromHeader(c echo.Context) string {
	scheme, token, ok := strings.Cut(c.Request().Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || token == "" || strings.Contains(token, " ") {
		return ""
	}
	return token
}

func extractTokenFromCookie(c echo.Context) string {
	cookie, err := c.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// GetOperatorIDFromContext извлекает ID оператора, выставленный JWTMiddleware.
func GetOperatorIDFromContext(c echo.Context) (uuid.UUID, error) {
	id, ok := c.Get(string(OperatorIDKey)).(uuid.UUID)
	if !ok {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "operator not found in context")
	}
	return id, nil
}

// GetOperatorLoginFromContext извлекает логин оператора.
func GetOperatorLoginFromContext(c echo.Context) (string, error) {
	login, ok := c.Get(string(OperatorLoginKey)).(string)
	if !ok {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "operator not found in context")
	}
	return login, nil
}
