package wager

import (
	"time"

	"wagerd/config"
	"wagerd/escrow"
	"wagerd/helpers"

	"github.com/go-playground/validator/v10"
)

// StakeTiers are the preset stakes offered when a request names no amount.
var StakeTiers = map[string]int64{
	"TIER_005": 50_000_000,
	"TIER_010": 100_000_000,
	"TIER_025": 250_000_000,
}

const DefaultStakeTier = "TIER_010"

type Handler struct {
	engine   *escrow.Engine
	cfg      config.WagerConfig
	validate *validator.Validate
}

func NewHandler(engine *escrow.Engine, cfg config.WagerConfig, validate *validator.Validate) *Handler {
	return &Handler{engine: engine, cfg: cfg, validate: validate}
}

type MatchView struct {
	GameCode        string    `json:"game_code"`
	Address         string    `json:"address"`
	Host            string    `json:"host"`
	Guest           string    `json:"guest"`
	Referee         string    `json:"referee"`
	Stake           int64     `json:"stake"`
	StakeDisplay    string    `json:"stake_display"`
	State           string    `json:"state"`
	HostFunded      bool      `json:"host_funded"`
	GuestFunded     bool      `json:"guest_funded"`
	RefundAvailable bool      `json:"refund_available"`
	Deadline        time.Time `json:"deadline"`
	DeadlineTs      int64     `json:"deadline_ts"`
	CreatedAt       time.Time `json:"created_at"`
	Custody         *int64    `json:"custody,omitempty"`
	CustodyDisplay  string    `json:"custody_display,omitempty"`
}

func viewOf(m *escrow.Match) MatchView {
	return MatchView{
		GameCode:        m.Code,
		Address:         string(m.Address()),
		Host:            string(m.Host),
		Guest:           string(m.Guest),
		Referee:         string(m.Referee),
		Stake:           m.Stake,
		StakeDisplay:    helpers.DisplayAmount(m.Stake),
		State:           m.State.String(),
		HostFunded:      m.HostFunded(),
		GuestFunded:     m.GuestFunded(),
		RefundAvailable: m.State == escrow.StateHostFunded && m.RefundFlagged,
		Deadline:        m.Deadline,
		DeadlineTs:      m.Deadline.Unix(),
		CreatedAt:       m.CreatedAt,
	}
}

func (v MatchView) withCustody(balance int64) MatchView {
	v.Custody = &balance
	v.CustodyDisplay = helpers.DisplayAmount(balance)
	return v
}
