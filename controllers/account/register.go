package account

import (
	"errors"

	"wagerd/escrow"
	"wagerd/helpers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"golang.org/x/crypto/bcrypt"
)

type RegisterRequest struct {
	AccountCode string `json:"account_code" validate:"required,alphanum,max=64"`
}

// Register opens a zero-balance account and returns its secret once.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}
	if err := h.validate.Struct(req); err != nil {
		return helpers.JSONError(c, helpers.ValidationCode(err))
	}

	secret := helpers.GenerateSecret()
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		log.Errorf("❌ hash secret for %s: %v", req.AccountCode, err)
		return helpers.JSONErrorStatus(c, fiber.StatusInternalServerError, "FAILED_TO_REGISTER_ACCOUNT")
	}

	if err := h.accounts.OpenAccount(c.UserContext(), escrow.Account(req.AccountCode), string(hash)); err != nil {
		if errors.Is(err, escrow.ErrAccountExists) {
			return helpers.JSONErrorStatus(c, fiber.StatusConflict, "ACCOUNT_CODE_ALREADY_EXISTS")
		}
		return helpers.EscrowError(c, err)
	}

	log.Infof("✅ account %s registered", req.AccountCode)
	return helpers.JSONSuccess(c, "Account registered successfully", fiber.Map{
		"account_code": req.AccountCode,
		"secret_key":   secret,
	})
}
