package escrow

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// MaxCodeLen is the longest match code, in bytes.
const MaxCodeLen = 16

// Account identifies a ledger account: a participant, the referee or a
// match custody address. Identities reaching the engine are already
// authenticated.
type Account string

// NoAccount is the unset guest sentinel.
const NoAccount Account = ""

// Match is the persistent escrow record for one wager. RefundFlagged is set
// once the expiry scan has announced the host refund; it never gates a
// transition.
type Match struct {
	Code          string    `json:"game_code"`
	Host          Account   `json:"host"`
	Guest         Account   `json:"guest"`
	Referee       Account   `json:"referee"`
	Stake         int64     `json:"stake"`
	State         State     `json:"state"`
	Deadline      time.Time `json:"deadline"`
	CreatedAt     time.Time `json:"created_at"`
	RefundFlagged bool      `json:"refund_flagged"`
}

func (m *Match) HostFunded() bool {
	return m.State != StateInit
}

func (m *Match) GuestFunded() bool {
	return m.State == StateBothFunded || m.State == StateSettled
}

// IsParticipant reports whether a is the host or the joined guest.
func (m *Match) IsParticipant(a Account) bool {
	if a == NoAccount {
		return false
	}
	return a == m.Host || a == m.Guest
}

// Address is the custody account holding this match's stakes.
func (m *Match) Address() Account {
	return Address(m.Code)
}

// Custody is the amount the record must hold in its current phase.
func (m *Match) Custody() (int64, error) {
	switch m.State {
	case StateHostFunded:
		return m.Stake, nil
	case StateBothFunded:
		return Payout(m.Stake)
	default:
		return 0, nil
	}
}

// Address derives the custody account for a match code. Equal codes always
// contend for the same address.
func Address(code string) Account {
	sum := sha256.Sum256(append([]byte("wager_match"), code...))
	return Account("wm_" + hex.EncodeToString(sum[:])[:40])
}

func (m *Match) clone() *Match {
	c := *m
	return &c
}
