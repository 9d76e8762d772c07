package account

import (
	"wagerd/escrow"
	"wagerd/helpers"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type TokenRequest struct {
	AccountCode string `json:"account_code" validate:"required"`
	SecretKey   string `json:"secret_key" validate:"required"`
}

// Token exchanges account credentials for a bearer token.
func (h *Handler) Token(c *fiber.Ctx) error {
	var req TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}
	if err := h.validate.Struct(req); err != nil {
		return helpers.JSONError(c, helpers.ValidationCode(err))
	}

	hash, err := h.accounts.Credential(c.UserContext(), escrow.Account(req.AccountCode))
	if err != nil || bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.SecretKey)) != nil {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "INVALID_CREDENTIALS")
	}

	token, expiresAt, err := helpers.IssueToken(h.jwt.Secret, req.AccountCode, h.now(), h.jwt.TTL)
	if err != nil {
		return helpers.JSONErrorStatus(c, fiber.StatusInternalServerError, "FAILED_TO_ISSUE_TOKEN")
	}
	return helpers.JSONSuccess(c, "Token issued", fiber.Map{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_at":   expiresAt.UTC().Format("2006-01-02 15:04:05"),
	})
}
