package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/jwsummers/techmetrix/internal/auth"
	"github.com/jwsummers/techmetrix/internal/model"
	"github.com/jwsummers/techmetrix/internal/service"
	"github.com/jwsummers/techmetrix/pkg/logger"
)

const identityContextKey = "identity"

func ZapLoggerMiddleware(l *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			req := c.Request()
			res := c.Response()

			requestID := c.Response().Header().Get(echo.HeaderXRequestID)

			reqLogger := l.With(
				zap.String("request_id", requestID),
			)

			ctx := logger.WithLogger(req.Context(), reqLogger)
			c.SetRequest(req.WithContext(ctx))

			err := next(c)

			latency := time.Since(start)

			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("uri", req.RequestURI),
				zap.String("remote_ip", c.RealIP()),
				zap.Int("status", res.Status),
				zap.Duration("latency", latency),
				zap.Int64("bytes_in", req.ContentLength),
				zap.Int64("bytes_out", res.Size),
			}

			if err != nil {
				fields = append(fields, zap.Error(err))
				reqLogger.Error("request failed", fields...)
			} else {
				reqLogger.Info("request completed", fields...)
			}

			return err
		}
	}
}

// AuthMiddleware resolves the caller identity from the bearer token and
// stores it in the echo context. Requests without a valid token get 401.
func AuthMiddleware(tokenSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(header, "Bearer ") {
				return unauthenticated(c)
			}

			identity, err := auth.IdentityFromToken(tokenSecret, strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				return unauthenticated(c)
			}

			c.Set(identityContextKey, identity)
			return next(c)
		}
	}
}

// RequireRole gates a route on the authenticated caller's role.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity := CallerFromContext(c)
			if identity == nil {
				return unauthenticated(c)
			}
			if !allowed[identity.Role] {
				return forbidden(c)
			}
			return next(c)
		}
	}
}

func CallerFromContext(c echo.Context) *model.Identity {
	if identity, ok := c.Get(identityContextKey).(*model.Identity); ok {
		return identity
	}
	return nil
}

func unauthenticated(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, errorResponse{
		Error: service.NewError(service.ErrorCodeUnauthenticated, "authentication required"),
	})
}

func forbidden(c echo.Context) error {
	return c.JSON(http.StatusForbidden, errorResponse{
		Error: service.NewError(service.ErrorCodeForbidden, "not authorized"),
	})
}
