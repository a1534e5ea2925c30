package middleware

import (
	"strings"

	"pulse/pkg/apperr"
	"pulse/pkg/auth"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

const identityKey = "identity"

type TokenVerifier interface {
	Verify(token string) (auth.Identity, error)
}

// Auth requires a Bearer token and stores the caller's identity in Locals.
func Auth(v TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			return apperr.Unauthenticated("token not provided")
		}

		id, err := v.Verify(strings.TrimSpace(header[len("Bearer "):]))
		if err != nil {
			return err
		}

		c.Locals(identityKey, id)
		return c.Next()
	}
}

func Identity(c *fiber.Ctx) (auth.Identity, bool) {
	id, ok := c.Locals(identityKey).(auth.Identity)
	return id, ok
}

// WSToken lets only websocket upgrades through and hands the token from the
// query string to the socket handler.
func WSToken(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	c.Locals("token", c.Query("token"))
	return c.Next()
}
