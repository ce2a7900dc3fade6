package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/wekeepgrowing/shop-settlement/internal/domain/entity"
	"go.uber.org/zap"
)

// contextKey is used for storing the customer in context
type contextKey string

const (
	customerContextKey contextKey = "authenticated_customer"
)

// JWTConfig holds the configuration for JWT middleware
type JWTConfig struct {
	Secret    string
	Logger    *zap.Logger
	SkipPaths []string // Paths to skip JWT validation
}

// CustomerClaims are the token claims the payment flow reads. The subject
// is the customer id.
type CustomerClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Phone string `json:"phone_number"`
	jwt.RegisteredClaims
}

func unauthorized(c echo.Context, message, code string) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{
		"error": message,
		"code":  code,
	})
}

// JWTMiddleware creates a middleware that validates HS256 bearer tokens and
// stores the customer they identify in the request context.
func JWTMiddleware(config JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			for _, skipPath := range config.SkipPaths {
				if strings.HasPrefix(path, skipPath) {
					return next(c)
				}
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				config.Logger.Warn("Missing authorization header",
					zap.String("path", path),
					zap.String("method", c.Request().Method))
				return unauthorized(c, "Authorization header required", "MISSING_AUTH_HEADER")
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				config.Logger.Warn("Invalid authorization header format",
					zap.String("path", path))
				return unauthorized(c, "Invalid authorization header format. Expected: Bearer <token>", "INVALID_AUTH_FORMAT")
			}

			claims := &CustomerClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(config.Secret), nil
			})
			if err != nil || !token.Valid {
				config.Logger.Warn("JWT validation failed",
					zap.Error(err),
					zap.String("path", path))
				return unauthorized(c, "Invalid or expired token", "INVALID_TOKEN")
			}

			customerID, err := uuid.Parse(claims.Subject)
			if err != nil {
				config.Logger.Warn("Invalid subject claim",
					zap.String("sub", claims.Subject),
					zap.String("path", path))
				return unauthorized(c, "Invalid token claims", "INVALID_CLAIMS")
			}

			customer := &entity.Customer{
				ID:    customerID,
				Email: claims.Email,
				Name:  claims.Name,
				Phone: claims.Phone,
			}

			ctx := context.WithValue(c.Request().Context(), customerContextKey, customer)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("user_id", customerID.String())

			config.Logger.Debug("Customer authenticated",
				zap.String("user_id", customerID.String()),
				zap.String("path", path))

			return next(c)
		}
	}
}

// GetCustomerFromContext extracts the authenticated customer from the request context
func GetCustomerFromContext(c echo.Context) (*entity.Customer, error) {
	customer, ok := c.Request().Context().Value(customerContextKey).(*entity.Customer)
	if !ok || customer == nil {
		return nil, fmt.Errorf("no authenticated customer found in context")
	}
	return customer, nil
}

// RequireAuth returns the customer or a 401 error for the handler to return
func RequireAuth(c echo.Context) (*entity.Customer, error) {
	customer, err := GetCustomerFromContext(c)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, echo.Map{
			"error": "Authentication required",
			"code":  "AUTH_REQUIRED",
		})
	}
	return customer, nil
}
