package account

import (
	"time"

	"wagerd/config"
	"wagerd/escrow"

	"github.com/go-playground/validator/v10"
)

type Handler struct {
	accounts escrow.Accounts
	jwt      config.JWTConfig
	validate *validator.Validate
	now      func() time.Time
}

func NewHandler(accounts escrow.Accounts, jwt config.JWTConfig, validate *validator.Validate) *Handler {
	return &Handler{
		accounts: accounts,
		jwt:      jwt,
		validate: validate,
		now:      time.Now,
	}
}
