package account

import (
	"wagerd/escrow"
	"wagerd/helpers"

	"github.com/gofiber/fiber/v2"
)

type TopupRequest struct {
	AccountCode string `json:"account_code" validate:"required"`
	Amount      int64  `json:"amount" validate:"gt=0"`
	Note        string `json:"note" validate:"max=255"`
}

func (h *Handler) Topup(c *fiber.Ctx) error {
	var req TopupRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}
	if err := h.validate.Struct(req); err != nil {
		return helpers.JSONError(c, helpers.ValidationCode(err))
	}

	balance, err := h.accounts.Deposit(c.UserContext(), escrow.Account(req.AccountCode), req.Amount, req.Note)
	if err != nil {
		return helpers.EscrowError(c, err)
	}

	return helpers.JSONSuccess(c, "Account top-up successful", fiber.Map{
		"account_code":    req.AccountCode,
		"amount":          req.Amount,
		"balance":         balance,
		"balance_display": helpers.DisplayAmount(balance),
	})
}
