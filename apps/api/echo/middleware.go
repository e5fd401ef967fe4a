package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/darasahq/darasa/core/session"
	"github.com/darasahq/darasa/core/user"
)

// guardMiddleware is the server-side rendition of the navigation guard: the
// same capability table, with redirect-to-login surfacing as 401 and
// redirect-to-unauthorized as 403.
func guardMiddleware(required session.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			decision := session.Decide(
				session.Attempt{TargetPath: ctx.Path(), Required: required},
				contextSnapshot(ctx),
			)
			switch {
			case decision.Allow:
				return next(ctx)
			case decision.RedirectPath == session.LoginPath:
				return errUnauthorized
			default:
				return errHttpForbidden
			}
		}
	}
}

// contextSnapshot builds a session snapshot from the verified JWT claims.
func contextSnapshot(ctx echo.Context) session.Snapshot {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return session.Snapshot{}
	}

	token := ctx.Request().Header.Get(echo.HeaderAuthorization)
	token = strings.TrimPrefix(token, "Bearer ")

	return session.Snapshot{
		User: &user.User{
			ID:       claims.Subject,
			Username: claims.Username,
			Email:    claims.Email,
			Roles:    claims.Roles,
		},
		Token:         token,
		Authenticated: true,
	}
}
