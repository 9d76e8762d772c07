package wager

import (
	"time"

	"wagerd/escrow"
	"wagerd/helpers"
	"wagerd/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

type CreateRequest struct {
	GameCode   string `json:"game_code"`
	Stake      *int64 `json:"stake"`
	StakeTier  string `json:"stake_tier" validate:"omitempty,oneof=TIER_005 TIER_010 TIER_025"`
	DeadlineTs *int64 `json:"deadline_ts"`
}

// Create opens a match hosted by the caller. Missing fields fall back to a
// generated code, the default tier and the default deadline. The referee is
// always the server referee account.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}
	if err := h.validate.Struct(req); err != nil {
		return helpers.JSONError(c, helpers.ValidationCode(err))
	}

	now := h.engine.Now()
	in := escrow.CreateInput{
		Code:     req.GameCode,
		Referee:  escrow.Account(h.cfg.Referee),
		Deadline: now.Add(h.cfg.DefaultDeadline),
	}
	if in.Code == "" {
		in.Code = helpers.GenerateGameCode(now)
	}
	if req.DeadlineTs != nil {
		in.Deadline = time.Unix(*req.DeadlineTs, 0).UTC()
	}
	switch {
	case req.Stake != nil:
		in.Stake = *req.Stake
	case req.StakeTier != "":
		in.Stake = StakeTiers[req.StakeTier]
	default:
		in.Stake = StakeTiers[DefaultStakeTier]
	}

	m, err := h.engine.Create(c.UserContext(), middlewares.Caller(c), in)
	if err != nil {
		return helpers.EscrowError(c, err)
	}
	log.Infof("✅ match %s created by %s stake=%d", m.Code, m.Host, m.Stake)
	return helpers.JSONSuccess(c, "Match created", viewOf(m))
}
