package wager

import (
	"strings"

	"wagerd/escrow"
	"wagerd/helpers"
	"wagerd/middlewares"

	"github.com/gofiber/fiber/v2"
)

func (h *Handler) Get(c *fiber.Ctx) error {
	m, err := h.engine.Get(c.UserContext(), c.Params("code"))
	if err != nil {
		return helpers.EscrowError(c, err)
	}
	return h.respond(c, "Match retrieved", m)
}

// List returns the latest matches. ?state=a,b narrows the phases, ?mine=true
// keeps only matches the caller plays in.
func (h *Handler) List(c *fiber.Ctx) error {
	var f escrow.ListFilter
	if raw := c.Query("state"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			st, err := escrow.ParseState(strings.TrimSpace(name))
			if err != nil {
				return helpers.JSONError(c, "INVALID_STATE_FILTER")
			}
			f.States = append(f.States, st)
		}
	}
	if c.QueryBool("mine") {
		f.Participant = middlewares.Caller(c)
	}
	f.Limit = c.QueryInt("limit")

	matches, err := h.engine.List(c.UserContext(), f)
	if err != nil {
		return helpers.EscrowError(c, err)
	}
	views := make([]MatchView, 0, len(matches))
	for _, m := range matches {
		views = append(views, viewOf(m))
	}
	return helpers.JSONSuccess(c, "Matches retrieved", views)
}

func (h *Handler) Events(c *fiber.Ctx) error {
	events, err := h.engine.Events(c.UserContext(), c.Params("code"))
	if err != nil {
		return helpers.EscrowError(c, err)
	}
	return helpers.JSONSuccess(c, "Events retrieved", events)
}
