package auth

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/skvortsovm/storefront/internal/models"
)

// RequireAuth validates the Authorization bearer token and stores the parsed
// token under the "user" context key. Any failure maps to 401 before the
// handler runs.
func RequireAuth(secret []byte) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningMethod: "HS256",
		ContextKey:    "user",
		SigningKey:    secret,
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or missing token")
		},
	})
}

// AdminOnly rejects non-admin roles with 403 without touching the services.
func AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		role, err := Role(c)
		if err != nil {
			return err
		}
		if role != models.RoleAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "admin rights required")
		}
		return next(c)
	}
}

func claims(c echo.Context) (jwt.MapClaims, error) {
	tok, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid token claims")
	}
	return mc, nil
}

func UserID(c echo.Context) (uint, error) {
	mc, err := claims(c)
	if err != nil {
		return 0, err
	}
	sub, ok := mc["sub"].(float64)
	if !ok {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "invalid subject claim")
	}
	return uint(sub), nil
}

func Role(c echo.Context) (string, error) {
	mc, err := claims(c)
	if err != nil {
		return "", err
	}
	role, ok := mc["role"].(string)
	if !ok {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid role claim")
	}
	return role, nil
}
