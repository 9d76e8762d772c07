package account

import (
	"wagerd/helpers"
	"wagerd/middlewares"

	"github.com/gofiber/fiber/v2"
)

func (h *Handler) Balance(c *fiber.Ctx) error {
	caller := middlewares.Caller(c)
	balance, err := h.accounts.Balance(c.UserContext(), caller)
	if err != nil {
		return helpers.EscrowError(c, err)
	}
	return helpers.JSONSuccess(c, "Balance retrieved successfully", fiber.Map{
		"account_code":    caller,
		"balance":         balance,
		"balance_display": helpers.DisplayAmount(balance),
	})
}
