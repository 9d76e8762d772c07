package escrow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Engine runs the five guarded transitions of a match against a Store.
type Engine struct {
	store Store
	clock Clock
}

func NewEngine(store Store, clock Clock) *Engine {
	if clock == nil {
		clock = SystemClock
	}
	return &Engine{store: store, clock: clock}
}

type CreateInput struct {
	Code     string
	Stake    int64
	Deadline time.Time
	Referee  Account
}

// Create opens a record in Init with the creator as host. No funds move.
func (e *Engine) Create(ctx context.Context, creator Account, in CreateInput) (*Match, error) {
	now := e.clock.Now()
	if err := checkCreate(in.Code, in.Stake, in.Deadline, now, in.Referee, creator); err != nil {
		return nil, err
	}

	m := &Match{
		Code:      in.Code,
		Host:      creator,
		Guest:     NoAccount,
		Referee:   in.Referee,
		Stake:     in.Stake,
		State:     StateInit,
		Deadline:  in.Deadline.UTC(),
		CreatedAt: now,
	}
	ev := e.event(m, EventCreated, creator, "", map[string]any{
		"stake":    in.Stake,
		"referee":  string(in.Referee),
		"deadline": m.Deadline.Unix(),
	})
	if err := e.store.Insert(ctx, m, ev); err != nil {
		return nil, err
	}
	return m.clone(), nil
}

// FundHost moves the host's stake into custody.
func (e *Engine) FundHost(ctx context.Context, code string, caller Account) (*Match, error) {
	return e.transition(ctx, code, func(m *Match, tx Tx) error {
		if err := checkFundHost(m, caller); err != nil {
			return err
		}
		ref, err := tx.Transfer(caller, m.Address(), m.Stake)
		if err != nil {
			return fmt.Errorf("fund host: %w", err)
		}
		m.State = StateHostFunded
		return tx.Emit(e.event(m, EventHostFunded, caller, ref, map[string]any{"amount": m.Stake}))
	})
}

// JoinAndFund records the caller as guest and moves the matching stake
// into custody.
func (e *Engine) JoinAndFund(ctx context.Context, code string, caller Account) (*Match, error) {
	return e.transition(ctx, code, func(m *Match, tx Tx) error {
		if err := checkJoin(m, caller); err != nil {
			return err
		}
		ref, err := tx.Transfer(caller, m.Address(), m.Stake)
		if err != nil {
			return fmt.Errorf("join and fund: %w", err)
		}
		m.Guest = caller
		m.State = StateBothFunded
		return tx.Emit(e.event(m, EventJoined, caller, ref, map[string]any{"amount": m.Stake}))
	})
}

// SettleWinner pays the whole pot to winnerAccount, which must be the
// declared winner.
func (e *Engine) SettleWinner(ctx context.Context, code string, referee, winner, winnerAccount Account) (*Match, error) {
	return e.transition(ctx, code, func(m *Match, tx Tx) error {
		if err := checkSettle(m, referee, winner, winnerAccount); err != nil {
			return err
		}
		payout, err := Payout(m.Stake)
		if err != nil {
			return err
		}
		ref, err := tx.Transfer(m.Address(), winnerAccount, payout)
		if err != nil {
			return fmt.Errorf("settle winner: %w", err)
		}
		m.State = StateSettled
		return tx.Emit(e.event(m, EventSettled, referee, ref, map[string]any{
			"winner": string(winner),
			"payout": payout,
		}))
	})
}

// RefundHostExpired returns the host's stake once the deadline has passed
// without a guest.
func (e *Engine) RefundHostExpired(ctx context.Context, code string, caller Account) (*Match, error) {
	return e.transition(ctx, code, func(m *Match, tx Tx) error {
		if err := checkRefund(m, caller, e.clock.Now()); err != nil {
			return err
		}
		ref, err := tx.Transfer(m.Address(), m.Host, m.Stake)
		if err != nil {
			return fmt.Errorf("refund host: %w", err)
		}
		m.State = StateRefunded
		return tx.Emit(e.event(m, EventRefunded, caller, ref, map[string]any{"amount": m.Stake}))
	})
}

func (e *Engine) Get(ctx context.Context, code string) (*Match, error) {
	return e.store.Get(ctx, code)
}

func (e *Engine) List(ctx context.Context, f ListFilter) ([]*Match, error) {
	if len(f.States) == 0 {
		f.States = ActiveStates
	}
	if f.Limit <= 0 || f.Limit > 50 {
		f.Limit = 50
	}
	return e.store.List(ctx, f)
}

func (e *Engine) Events(ctx context.Context, code string) ([]Event, error) {
	if _, err := e.store.Get(ctx, code); err != nil {
		return nil, err
	}
	return e.store.Events(ctx, code)
}

// Custody reads the ledger balance actually held for a match.
func (e *Engine) Custody(ctx context.Context, code string) (int64, error) {
	return e.store.Balance(ctx, Address(code))
}

// Now exposes the engine clock to callers computing default deadlines.
func (e *Engine) Now() time.Time {
	return e.clock.Now()
}

func (e *Engine) transition(ctx context.Context, code string, fn func(m *Match, tx Tx) error) (*Match, error) {
	var out *Match
	err := e.store.Update(ctx, code, func(m *Match, tx Tx) error {
		if err := fn(m, tx); err != nil {
			return err
		}
		out = m.clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) event(m *Match, typ string, actor Account, ref string, payload map[string]any) Event {
	return Event{
		ID:         uuid.NewString(),
		MatchCode:  m.Code,
		Type:       typ,
		Actor:      actor,
		RefID:      ref,
		Payload:    payload,
		OccurredAt: e.clock.Now(),
	}
}
