package echoapi

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// meParam lets learners address their own resources without knowing their id.
const meParam = "me"

func adminMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin && contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// selfOrAdminMiddleware only lets the owner of the :userId path param, or an admin, through.
// Anonymous requests pass; handlers behind optional auth deal with them.
func selfOrAdminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return next(ctx)
			}
			id := ctx.Param("userId")
			if id == meParam || id == claims.Subject || claims.IsAdmin {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// selfOnlyMiddleware only lets the owner of the :userId path param through. Admins get no exception.
// Anonymous requests pass; handlers behind optional auth deal with them.
func selfOnlyMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return next(ctx)
			}
			if id := ctx.Param("userId"); id == meParam || id == claims.Subject {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// pathUserID resolves the :userId path param, "me" standing for the caller. Empty for anonymous callers.
func pathUserID(ctx echo.Context) string {
	id := ctx.Param("userId")
	if id == meParam || contextUserID(ctx) == "" {
		return contextUserID(ctx)
	}
	return id
}

func requestTimeoutMiddleware(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			reqCtx, cancel := context.WithTimeout(ctx.Request().Context(), timeout)
			defer cancel()
			ctx.SetRequest(ctx.Request().WithContext(reqCtx))
			return next(ctx)
		}
	}
}
