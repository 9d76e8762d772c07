package escrow

import (
	"context"
	"time"
)

// Event types appended to a match's audit trail.
const (
	EventCreated         = "created"
	EventHostFunded      = "host_funded"
	EventJoined          = "joined"
	EventSettled         = "settled"
	EventRefunded        = "refunded"
	EventRefundAvailable = "refund_available"
)

// Event is one audit row. Transition events commit in the same unit as the
// transition itself.
type Event struct {
	ID         string         `json:"id"`
	MatchCode  string         `json:"game_code"`
	Type       string         `json:"event_type"`
	Actor      Account        `json:"actor"`
	RefID      string         `json:"ref_id,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Tx is the ledger view handed to a transition while its record is locked.
type Tx interface {
	// Transfer moves amount from one account to another, or fails leaving
	// both untouched. It returns the reference shared by both ledger rows.
	Transfer(from, to Account, amount int64) (string, error)
	Emit(ev Event) error
}

// ListFilter narrows List. Zero values mean no constraint. Unflagged keeps
// only records whose refund has not been announced yet.
type ListFilter struct {
	States         []State
	Participant    Account
	DeadlineBefore time.Time
	Unflagged      bool
	Limit          int
}

// Store is the ledger substrate. Update must serialize callers per code and
// apply the record, its transfers and its events all-or-nothing.
type Store interface {
	Insert(ctx context.Context, m *Match, ev Event) error
	Update(ctx context.Context, code string, fn func(m *Match, tx Tx) error) error
	Get(ctx context.Context, code string) (*Match, error)
	List(ctx context.Context, f ListFilter) ([]*Match, error)
	Events(ctx context.Context, code string) ([]Event, error)
	Balance(ctx context.Context, a Account) (int64, error)
}

// Accounts manages participant balances outside of any match.
type Accounts interface {
	OpenAccount(ctx context.Context, a Account, secretHash string) error
	Credential(ctx context.Context, a Account) (string, error)
	Deposit(ctx context.Context, a Account, amount int64, note string) (int64, error)
	Balance(ctx context.Context, a Account) (int64, error)
}

// Clock is the substrate's monotonic time source.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock reads the wall clock in UTC.
var SystemClock Clock = systemClock{}
