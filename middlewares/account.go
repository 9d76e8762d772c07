package middlewares

import (
	"strings"

	"wagerd/escrow"
	"wagerd/helpers"

	"github.com/gofiber/fiber/v2"
)

const accountKey = "account"

// AccountAuth resolves the bearer token to the calling account.
func AccountAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "TOKEN_REQUIRED")
		}
		account, err := helpers.ParseToken(secret, token)
		if err != nil {
			return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "INVALID_TOKEN")
		}
		c.Locals(accountKey, escrow.Account(account))
		return c.Next()
	}
}

// Caller returns the account set by AccountAuth, or NoAccount.
func Caller(c *fiber.Ctx) escrow.Account {
	a, _ := c.Locals(accountKey).(escrow.Account)
	return a
}
