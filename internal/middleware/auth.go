package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/couture/internal/services"
)

const actorContextKey = "currentActor"

func bearerToken(c *fiber.Ctx) (string, bool, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return "", false, nil
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", true, services.ErrInvalidToken.WithMessage("Invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), true, nil
}

// OptionalAuth resolves the actor from a bearer access token when one is
// sent. Requests without an Authorization header continue as anonymous; a
// malformed or expired token is rejected.
func OptionalAuth(tokens services.TokenIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, present, err := bearerToken(c)
		if err != nil {
			return err
		}
		if !present {
			c.Locals(actorContextKey, services.Anonymous)
			return c.Next()
		}

		actor, err := services.ActorFromAccessToken(tokens, token)
		if err != nil {
			return err
		}
		c.Locals(actorContextKey, actor)
		return c.Next()
	}
}

// RequireAuth rejects anonymous requests. It must run after OptionalAuth.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !CurrentActor(c).Authenticated() {
			return services.ErrAuthRequired
		}
		return c.Next()
	}
}

// RequireStaff rejects requests from anyone but staff.
func RequireStaff() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := CurrentActor(c)
		if !actor.Authenticated() {
			return services.ErrAuthRequired
		}
		if !actor.IsStaff {
			return services.ErrStaffOnly
		}
		return c.Next()
	}
}

// CurrentActor extracts the actor stored by OptionalAuth.
func CurrentActor(c *fiber.Ctx) services.Actor {
	if actor, ok := c.Locals(actorContextKey).(services.Actor); ok {
		return actor
	}
	return services.Anonymous
}
