package escrow_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"wagerd/escrow"
	"wagerd/substrate/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	host    escrow.Account = "host"
	guest   escrow.Account = "guest"
	referee escrow.Account = "referee"
	outside escrow.Account = "mallory"

	stake   int64 = 100
	funding int64 = 1000
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	ctx    context.Context
	store  *memory.Store
	clock  *fakeClock
	engine *escrow.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:   context.Background(),
		store: memory.New(),
		clock: &fakeClock{now: time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)},
	}
	f.engine = escrow.NewEngine(f.store, f.clock)
	for _, a := range []escrow.Account{host, guest, referee, outside} {
		require.NoError(t, f.store.OpenAccount(f.ctx, a, ""))
		_, err := f.store.Deposit(f.ctx, a, funding, "seed")
		require.NoError(t, err)
	}
	return f
}

func (f *fixture) create(t *testing.T, code string) *escrow.Match {
	t.Helper()
	m, err := f.engine.Create(f.ctx, host, escrow.CreateInput{
		Code:     code,
		Stake:    stake,
		Deadline: f.clock.Now().Add(15 * time.Minute),
		Referee:  referee,
	})
	require.NoError(t, err)
	return m
}

func (f *fixture) bothFunded(t *testing.T, code string) {
	t.Helper()
	f.create(t, code)
	_, err := f.engine.FundHost(f.ctx, code, host)
	require.NoError(t, err)
	_, err = f.engine.JoinAndFund(f.ctx, code, guest)
	require.NoError(t, err)
}

func (f *fixture) balance(t *testing.T, a escrow.Account) int64 {
	t.Helper()
	b, err := f.store.Balance(f.ctx, a)
	require.NoError(t, err)
	return b
}

func (f *fixture) custody(t *testing.T, code string) int64 {
	t.Helper()
	b, err := f.engine.Custody(f.ctx, code)
	require.NoError(t, err)
	return b
}

func (f *fixture) state(t *testing.T, code string) escrow.State {
	t.Helper()
	m, err := f.engine.Get(f.ctx, code)
	require.NoError(t, err)
	return m.State
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	now := f.clock.Now()
	later := now.Add(time.Minute)

	cases := []struct {
		name    string
		creator escrow.Account
		in      escrow.CreateInput
		want    error
	}{
		{"empty code", host, escrow.CreateInput{Code: "", Stake: stake, Deadline: later, Referee: referee}, escrow.ErrInvalidGameCode},
		{"code too long", host, escrow.CreateInput{Code: strings.Repeat("A", 17), Stake: stake, Deadline: later, Referee: referee}, escrow.ErrGameCodeTooLong},
		{"zero stake", host, escrow.CreateInput{Code: "G1", Stake: 0, Deadline: later, Referee: referee}, escrow.ErrInvalidStake},
		{"negative stake", host, escrow.CreateInput{Code: "G1", Stake: -5, Deadline: later, Referee: referee}, escrow.ErrInvalidStake},
		{"deadline now", host, escrow.CreateInput{Code: "G1", Stake: stake, Deadline: now, Referee: referee}, escrow.ErrInvalidDeadline},
		{"deadline past", host, escrow.CreateInput{Code: "G1", Stake: stake, Deadline: now.Add(-time.Second), Referee: referee}, escrow.ErrInvalidDeadline},
		{"no creator", escrow.NoAccount, escrow.CreateInput{Code: "G1", Stake: stake, Deadline: later, Referee: referee}, escrow.ErrUnauthorized},
		{"no referee", host, escrow.CreateInput{Code: "G1", Stake: stake, Deadline: later}, escrow.ErrInvalidReferee},
		{"host as referee", host, escrow.CreateInput{Code: "G1", Stake: stake, Deadline: later, Referee: host}, escrow.ErrInvalidReferee},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.engine.Create(f.ctx, tc.creator, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := f.engine.Get(f.ctx, "G1")
	assert.ErrorIs(t, err, escrow.ErrMatchNotFound)
}

func TestCreateOpensEmptyRecord(t *testing.T) {
	f := newFixture(t)
	code := strings.Repeat("Z", escrow.MaxCodeLen)
	m := f.create(t, code)

	assert.Equal(t, escrow.StateInit, m.State)
	assert.Equal(t, host, m.Host)
	assert.Equal(t, escrow.NoAccount, m.Guest)
	assert.False(t, m.HostFunded())
	assert.False(t, m.GuestFunded())
	assert.Equal(t, int64(0), f.custody(t, code))
	assert.Equal(t, funding, f.balance(t, host))

	_, err := f.engine.Create(f.ctx, guest, escrow.CreateInput{
		Code:     code,
		Stake:    stake,
		Deadline: f.clock.Now().Add(time.Hour),
		Referee:  referee,
	})
	assert.ErrorIs(t, err, escrow.ErrMatchExists)
	assert.Equal(t, escrow.KindSubstrate, escrow.KindOf(err))

	got, err := f.engine.Get(f.ctx, code)
	require.NoError(t, err)
	assert.Equal(t, host, got.Host)
}

func TestFundHost(t *testing.T) {
	f := newFixture(t)
	f.create(t, "G1")

	_, err := f.engine.FundHost(f.ctx, "G1", guest)
	assert.ErrorIs(t, err, escrow.ErrUnauthorized)
	assert.Equal(t, int64(0), f.custody(t, "G1"))

	m, err := f.engine.FundHost(f.ctx, "G1", host)
	require.NoError(t, err)
	assert.Equal(t, escrow.StateHostFunded, m.State)
	assert.True(t, m.HostFunded())
	assert.Equal(t, stake, f.custody(t, "G1"))
	assert.Equal(t, funding-stake, f.balance(t, host))

	_, err = f.engine.FundHost(f.ctx, "G1", host)
	assert.ErrorIs(t, err, escrow.ErrAlreadyFunded)
	assert.Equal(t, stake, f.custody(t, "G1"))
	assert.Equal(t, funding-stake, f.balance(t, host))
}

func TestFundHostInsufficientBalanceLeavesRecordUnchanged(t *testing.T) {
	f := newFixture(t)
	m, err := f.engine.Create(f.ctx, host, escrow.CreateInput{
		Code:     "BIG",
		Stake:    funding + 1,
		Deadline: f.clock.Now().Add(time.Minute),
		Referee:  referee,
	})
	require.NoError(t, err)

	_, err = f.engine.FundHost(f.ctx, m.Code, host)
	assert.ErrorIs(t, err, escrow.ErrInsufficientBalance)
	assert.Equal(t, escrow.KindSubstrate, escrow.KindOf(err))
	assert.Contains(t, err.Error(), "fund host")

	assert.Equal(t, escrow.StateInit, f.state(t, m.Code))
	assert.Equal(t, int64(0), f.custody(t, m.Code))
	assert.Equal(t, funding, f.balance(t, host))

	events, err := f.engine.Events(f.ctx, m.Code)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, escrow.EventCreated, events[0].Type)
}

func TestConcurrentFundHostExactlyOneSucceeds(t *testing.T) {
	f := newFixture(t)
	f.create(t, "RACE")

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		funded    int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.FundHost(f.ctx, "RACE", host)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, escrow.ErrAlreadyFunded):
				funded++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, funded)
	assert.Equal(t, stake, f.custody(t, "RACE"))
	assert.Equal(t, funding-stake, f.balance(t, host))
}

func TestJoinAndFund(t *testing.T) {
	f := newFixture(t)
	f.create(t, "G1")

	_, err := f.engine.JoinAndFund(f.ctx, "G1", host)
	assert.ErrorIs(t, err, escrow.ErrInvalidGuest)

	_, err = f.engine.JoinAndFund(f.ctx, "G1", guest)
	assert.ErrorIs(t, err, escrow.ErrHostNotFunded)

	_, err = f.engine.FundHost(f.ctx, "G1", host)
	require.NoError(t, err)

	_, err = f.engine.JoinAndFund(f.ctx, "G1", host)
	assert.ErrorIs(t, err, escrow.ErrInvalidGuest)

	_, err = f.engine.JoinAndFund(f.ctx, "G1", escrow.NoAccount)
	assert.ErrorIs(t, err, escrow.ErrUnauthorized)

	_, err = f.engine.JoinAndFund(f.ctx, "G1", referee)
	assert.ErrorIs(t, err, escrow.ErrInvalidGuest)
	assert.Equal(t, funding, f.balance(t, referee))

	m, err := f.engine.JoinAndFund(f.ctx, "G1", guest)
	require.NoError(t, err)
	assert.Equal(t, escrow.StateBothFunded, m.State)
	assert.Equal(t, guest, m.Guest)
	assert.True(t, m.GuestFunded())
	assert.Equal(t, 2*stake, f.custody(t, "G1"))
	assert.Equal(t, funding-stake, f.balance(t, guest))

	_, err = f.engine.JoinAndFund(f.ctx, "G1", host)
	assert.ErrorIs(t, err, escrow.ErrInvalidGuest)

	_, err = f.engine.JoinAndFund(f.ctx, "G1", outside)
	assert.ErrorIs(t, err, escrow.ErrAlreadyFunded)
	assert.Equal(t, 2*stake, f.custody(t, "G1"))
	assert.Equal(t, funding, f.balance(t, outside))
}

func TestSettleWinnerHappyPath(t *testing.T) {
	f := newFixture(t)
	f.bothFunded(t, "G1")

	m, err := f.engine.SettleWinner(f.ctx, "G1", referee, host, host)
	require.NoError(t, err)
	assert.Equal(t, escrow.StateSettled, m.State)
	assert.True(t, m.HostFunded())
	assert.True(t, m.GuestFunded())

	assert.Equal(t, int64(0), f.custody(t, "G1"))
	assert.Equal(t, funding-stake+2*stake, f.balance(t, host))
	assert.Equal(t, funding-stake, f.balance(t, guest))

	events, err := f.engine.Events(f.ctx, "G1")
	require.NoError(t, err)
	types := make([]string, 0, len(events))
	for _, ev := range events {
		types = append(types, ev.Type)
		if ev.Type != escrow.EventCreated {
			assert.NotEmpty(t, ev.RefID, ev.Type)
		}
	}
	assert.Equal(t, []string{escrow.EventCreated, escrow.EventHostFunded, escrow.EventJoined, escrow.EventSettled}, types)
	assert.Equal(t, int64(2*stake), events[3].Payload["payout"])
}

func TestSettleWinnerRejections(t *testing.T) {
	f := newFixture(t)
	f.create(t, "G1")
	_, err := f.engine.FundHost(f.ctx, "G1", host)
	require.NoError(t, err)

	_, err = f.engine.SettleWinner(f.ctx, "G1", referee, host, host)
	assert.ErrorIs(t, err, escrow.ErrInvalidState)

	_, err = f.engine.JoinAndFund(f.ctx, "G1", guest)
	require.NoError(t, err)

	_, err = f.engine.SettleWinner(f.ctx, "G1", host, host, host)
	assert.ErrorIs(t, err, escrow.ErrUnauthorized)

	_, err = f.engine.SettleWinner(f.ctx, "G1", referee, outside, outside)
	assert.ErrorIs(t, err, escrow.ErrInvalidWinner)

	_, err = f.engine.SettleWinner(f.ctx, "G1", referee, guest, outside)
	assert.ErrorIs(t, err, escrow.ErrInvalidWinner)

	_, err = f.engine.SettleWinner(f.ctx, "G1", referee, escrow.NoAccount, escrow.NoAccount)
	assert.ErrorIs(t, err, escrow.ErrInvalidWinner)

	assert.Equal(t, escrow.StateBothFunded, f.state(t, "G1"))
	assert.Equal(t, 2*stake, f.custody(t, "G1"))
	assert.Equal(t, funding, f.balance(t, outside))

	m, err := f.engine.SettleWinner(f.ctx, "G1", referee, guest, guest)
	require.NoError(t, err)
	assert.Equal(t, escrow.StateSettled, m.State)
	assert.Equal(t, funding+stake, f.balance(t, guest))
}

func TestRefundHostExpired(t *testing.T) {
	f := newFixture(t)
	m := f.create(t, "G1")

	_, err := f.engine.RefundHostExpired(f.ctx, "G1", host)
	assert.ErrorIs(t, err, escrow.ErrInvalidState)

	_, err = f.engine.FundHost(f.ctx, "G1", host)
	require.NoError(t, err)

	_, err = f.engine.RefundHostExpired(f.ctx, "G1", host)
	assert.ErrorIs(t, err, escrow.ErrDeadlineNotReached)
	assert.Equal(t, escrow.KindTiming, escrow.KindOf(err))

	f.clock.Advance(m.Deadline.Sub(f.clock.Now()))

	_, err = f.engine.RefundHostExpired(f.ctx, "G1", guest)
	assert.ErrorIs(t, err, escrow.ErrUnauthorized)

	got, err := f.engine.RefundHostExpired(f.ctx, "G1", host)
	require.NoError(t, err)
	assert.Equal(t, escrow.StateRefunded, got.State)
	assert.True(t, got.HostFunded())
	assert.False(t, got.GuestFunded())
	assert.Equal(t, int64(0), f.custody(t, "G1"))
	assert.Equal(t, funding, f.balance(t, host))
}

func TestRefundNotAvailableOnceGuestFunded(t *testing.T) {
	f := newFixture(t)
	f.bothFunded(t, "G1")
	f.clock.Advance(time.Hour)

	_, err := f.engine.RefundHostExpired(f.ctx, "G1", host)
	assert.ErrorIs(t, err, escrow.ErrInvalidState)
	assert.Equal(t, 2*stake, f.custody(t, "G1"))
}

func TestTerminalRecordsRejectEverything(t *testing.T) {
	f := newFixture(t)
	f.bothFunded(t, "SETTLED")
	_, err := f.engine.SettleWinner(f.ctx, "SETTLED", referee, guest, guest)
	require.NoError(t, err)

	m := f.create(t, "REFUNDED")
	_, err = f.engine.FundHost(f.ctx, m.Code, host)
	require.NoError(t, err)
	f.clock.Advance(time.Hour)
	_, err = f.engine.RefundHostExpired(f.ctx, m.Code, host)
	require.NoError(t, err)

	for _, code := range []string{"SETTLED", "REFUNDED"} {
		ops := map[string]func() error{
			"fund host": func() error { _, err := f.engine.FundHost(f.ctx, code, host); return err },
			"join host": func() error { _, err := f.engine.JoinAndFund(f.ctx, code, host); return err },
			"join":      func() error { _, err := f.engine.JoinAndFund(f.ctx, code, outside); return err },
			"settle":    func() error { _, err := f.engine.SettleWinner(f.ctx, code, referee, host, host); return err },
			"refund":    func() error { _, err := f.engine.RefundHostExpired(f.ctx, code, host); return err },
		}
		for name, op := range ops {
			assert.ErrorIs(t, op(), escrow.ErrInvalidState, "%s on %s", name, code)
		}
		assert.Equal(t, int64(0), f.custody(t, code), code)
	}
}

func TestSettleOverflowMovesNothing(t *testing.T) {
	f := newFixture(t)
	huge := int64(math.MaxInt64/2 + 1)
	m := &escrow.Match{
		Code:      "HUGE",
		Host:      host,
		Guest:     guest,
		Referee:   referee,
		Stake:     huge,
		State:     escrow.StateBothFunded,
		Deadline:  f.clock.Now().Add(time.Hour),
		CreatedAt: f.clock.Now(),
	}
	require.NoError(t, f.store.Insert(f.ctx, m, escrow.Event{ID: "seed", MatchCode: m.Code, Type: escrow.EventCreated}))

	_, err := f.engine.SettleWinner(f.ctx, "HUGE", referee, host, host)
	assert.ErrorIs(t, err, escrow.ErrMathOverflow)
	assert.Equal(t, escrow.KindArithmetic, escrow.KindOf(err))

	assert.Equal(t, escrow.StateBothFunded, f.state(t, "HUGE"))
	assert.Equal(t, funding, f.balance(t, host))
	assert.Equal(t, funding, f.balance(t, guest))
	assert.Equal(t, int64(0), f.custody(t, "HUGE"))
}

func TestUnknownMatch(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.FundHost(f.ctx, "NOPE", host)
	assert.ErrorIs(t, err, escrow.ErrMatchNotFound)
	_, err = f.engine.Events(f.ctx, "NOPE")
	assert.ErrorIs(t, err, escrow.ErrMatchNotFound)
}

func TestListDefaultsToActiveMatches(t *testing.T) {
	f := newFixture(t)
	f.create(t, "OPEN")
	f.clock.Advance(time.Second)
	f.bothFunded(t, "DONE")
	_, err := f.engine.SettleWinner(f.ctx, "DONE", referee, host, host)
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	f.bothFunded(t, "LIVE")

	matches, err := f.engine.List(f.ctx, escrow.ListFilter{})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "LIVE", matches[0].Code)
	assert.Equal(t, "OPEN", matches[1].Code)

	settled, err := f.engine.List(f.ctx, escrow.ListFilter{States: []escrow.State{escrow.StateSettled}})
	require.NoError(t, err)
	require.Len(t, settled, 1)
	assert.Equal(t, "DONE", settled[0].Code)

	mine, err := f.engine.List(f.ctx, escrow.ListFilter{Participant: guest})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "LIVE", mine[0].Code)
}

func TestRefereeCannotTakeThePot(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Create(f.ctx, host, escrow.CreateInput{
		Code:     "SELF",
		Stake:    stake,
		Deadline: f.clock.Now().Add(time.Minute),
		Referee:  host,
	})
	assert.ErrorIs(t, err, escrow.ErrInvalidReferee)

	f.create(t, "G1")
	_, err = f.engine.FundHost(f.ctx, "G1", host)
	require.NoError(t, err)
	_, err = f.engine.JoinAndFund(f.ctx, "G1", referee)
	assert.ErrorIs(t, err, escrow.ErrInvalidGuest)

	m, err := f.engine.Get(f.ctx, "G1")
	require.NoError(t, err)
	assert.Equal(t, escrow.StateHostFunded, m.State)
	assert.Equal(t, escrow.NoAccount, m.Guest)
	assert.Equal(t, stake, f.custody(t, "G1"))
}

func TestFlagExpired(t *testing.T) {
	f := newFixture(t)
	m := f.create(t, "EXP")
	_, err := f.engine.FundHost(f.ctx, m.Code, host)
	require.NoError(t, err)
	f.create(t, "IDLE")

	flagged, err := f.engine.FlagExpired(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, flagged)

	f.clock.Advance(time.Hour)
	flagged, err = f.engine.FlagExpired(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"EXP"}, flagged)

	flagged, err = f.engine.FlagExpired(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, flagged)

	got, err := f.engine.Get(f.ctx, "EXP")
	require.NoError(t, err)
	assert.Equal(t, escrow.StateHostFunded, got.State)
	assert.True(t, got.RefundFlagged)
	assert.Equal(t, stake, f.custody(t, "EXP"))

	pending, err := f.store.List(f.ctx, escrow.ListFilter{States: []escrow.State{escrow.StateHostFunded}, Unflagged: true})
	require.NoError(t, err)
	assert.Empty(t, pending)

	events, err := f.engine.Events(f.ctx, "EXP")
	require.NoError(t, err)
	var notices int
	for _, ev := range events {
		if ev.Type == escrow.EventRefundAvailable {
			notices++
		}
	}
	assert.Equal(t, 1, notices)
	assert.Equal(t, escrow.EventRefundAvailable, events[len(events)-1].Type)

	refunded, err := f.engine.RefundHostExpired(f.ctx, "EXP", host)
	require.NoError(t, err)
	assert.Equal(t, escrow.StateRefunded, refunded.State)
}

func TestFlagExpiredWorksInBatches(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.OpenAccount(f.ctx, "whale", ""))
	_, err := f.store.Deposit(f.ctx, "whale", 1_000_000, "seed")
	require.NoError(t, err)

	const total = 130
	for i := 0; i < total; i++ {
		code := fmt.Sprintf("B%03d", i)
		_, err := f.engine.Create(f.ctx, "whale", escrow.CreateInput{
			Code:     code,
			Stake:    stake,
			Deadline: f.clock.Now().Add(time.Minute),
			Referee:  referee,
		})
		require.NoError(t, err)
		_, err = f.engine.FundHost(f.ctx, code, "whale")
		require.NoError(t, err)
	}
	f.clock.Advance(time.Hour)

	first, err := f.engine.FlagExpired(f.ctx)
	require.NoError(t, err)
	second, err := f.engine.FlagExpired(f.ctx)
	require.NoError(t, err)
	third, err := f.engine.FlagExpired(f.ctx)
	require.NoError(t, err)

	assert.Len(t, first, 100)
	assert.Len(t, second, total-100)
	assert.Empty(t, third)
}
