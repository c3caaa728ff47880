package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/user"
)

// principalMiddleware rejects revoked tokens and stores the request Principal in the context.
func principalMiddleware(svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			p, err := claims.principal()
			if err != nil {
				return err
			}

			version, err := svc.TokenVersion(ctx.Request().Context(), p.ID)
			if err != nil {
				return errors.Wrap(err, "getting token version")
			}
			if claims.TokenVersion != version {
				return errTokenRevoked
			}
			ctx.Set(contextPrincipalKey, p)
			return next(ctx)
		}
	}
}

func roleMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			p, err := getContextPrincipal(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context principal")
			}
			if p.HasAnyRole(roles...) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// authFunc returns the middlewares that restrict a route to authenticated users having one of roles.
type authFunc func(roles ...string) []echo.MiddlewareFunc

func newAuth(conf *core.Config, svc *user.Service) authFunc {
	jwt := middleware.JWTWithConfig(newJWTConfig(conf))
	principal := principalMiddleware(svc)
	return func(roles ...string) []echo.MiddlewareFunc {
		if len(roles) == 0 {
			roles = user.AllRoles
		}
		return []echo.MiddlewareFunc{jwt, principal, roleMiddleware(roles...)}
	}
}
