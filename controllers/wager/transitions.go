package wager

import (
	"context"

	"wagerd/escrow"
	"wagerd/helpers"
	"wagerd/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

type transitionFunc func(ctx context.Context, code string, caller escrow.Account) (*escrow.Match, error)

func (h *Handler) runTransition(c *fiber.Ctx, name, message string, fn transitionFunc) error {
	code := c.Params("code")
	caller := middlewares.Caller(c)

	m, err := fn(c.UserContext(), code, caller)
	if err != nil {
		log.Warnf("⚠️ %s %s by %s: %v", name, code, caller, err)
		return helpers.EscrowError(c, err)
	}
	return h.respond(c, message, m)
}

func (h *Handler) respond(c *fiber.Ctx, message string, m *escrow.Match) error {
	custody, err := h.engine.Custody(c.UserContext(), m.Code)
	if err != nil {
		return helpers.EscrowError(c, err)
	}
	return helpers.JSONSuccess(c, message, viewOf(m).withCustody(custody))
}

func (h *Handler) FundHost(c *fiber.Ctx) error {
	return h.runTransition(c, "fund-host", "Host stake deposited", h.engine.FundHost)
}

func (h *Handler) Join(c *fiber.Ctx) error {
	return h.runTransition(c, "join", "Guest joined and funded", h.engine.JoinAndFund)
}

func (h *Handler) Refund(c *fiber.Ctx) error {
	return h.runTransition(c, "refund", "Host stake refunded", h.engine.RefundHostExpired)
}

type SettleRequest struct {
	Winner        string `json:"winner" validate:"required"`
	WinnerAccount string `json:"winner_account"`
}

// Settle pays the pot to the declared winner. The caller must be the match
// referee; winner_account defaults to winner.
func (h *Handler) Settle(c *fiber.Ctx) error {
	var req SettleRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}
	if err := h.validate.Struct(req); err != nil {
		return helpers.JSONError(c, helpers.ValidationCode(err))
	}
	if req.WinnerAccount == "" {
		req.WinnerAccount = req.Winner
	}

	code := c.Params("code")
	caller := middlewares.Caller(c)
	m, err := h.engine.SettleWinner(c.UserContext(), code, caller, escrow.Account(req.Winner), escrow.Account(req.WinnerAccount))
	if err != nil {
		log.Warnf("⚠️ settle %s by %s: %v", code, caller, err)
		return helpers.EscrowError(c, err)
	}
	log.Infof("✅ match %s settled to %s", m.Code, req.WinnerAccount)
	return h.respond(c, "Match settled", m)
}
