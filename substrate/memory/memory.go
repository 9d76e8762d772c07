// Package memory is an in-process substrate. Transitions on one match are
// serialized by a per-code mutex; commits of records, balances and events
// happen together under a single store mutex.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"wagerd/escrow"
	"wagerd/substrate"

	"github.com/google/uuid"
)

func init() {
	substrate.Register("memory", func(substrate.Deps) (substrate.Backend, error) {
		return New(), nil
	})
}

type transfer struct {
	from, to escrow.Account
	amount   int64
}

type Store struct {
	locks sync.Map // code -> *sync.Mutex

	mu       sync.Mutex
	matches  map[string]escrow.Match
	events   map[string][]escrow.Event
	balances map[escrow.Account]int64
	secrets  map[escrow.Account]string
}

func New() *Store {
	return &Store{
		matches:  make(map[string]escrow.Match),
		events:   make(map[string][]escrow.Event),
		balances: make(map[escrow.Account]int64),
		secrets:  make(map[escrow.Account]string),
	}
}

func (s *Store) exists(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.matches[code]
	return ok
}

func (s *Store) lockFor(code string) *sync.Mutex {
	l, _ := s.locks.LoadOrStore(code, &sync.Mutex{})
	return l.(*sync.Mutex)
}

func (s *Store) Insert(_ context.Context, m *escrow.Match, ev escrow.Event) error {
	l := s.lockFor(m.Code)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	addr := m.Address()
	if _, ok := s.matches[m.Code]; ok {
		return escrow.ErrMatchExists
	}
	if _, ok := s.balances[addr]; ok {
		return escrow.ErrMatchExists
	}
	s.matches[m.Code] = *m
	s.balances[addr] = 0
	s.events[m.Code] = append(s.events[m.Code], ev)
	return nil
}

func (s *Store) Update(_ context.Context, code string, fn func(m *escrow.Match, tx escrow.Tx) error) error {
	// Records are never removed, so a code seen here keeps existing and only
	// known codes get a lock.
	if !s.exists(code) {
		return escrow.ErrMatchNotFound
	}
	l := s.lockFor(code)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	current := s.matches[code]
	s.mu.Unlock()

	work := current
	tx := &memTx{store: s}
	if err := fn(&work, tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := s.applyLocked(tx.transfers)
	if err != nil {
		return err
	}
	for a, bal := range next {
		s.balances[a] = bal
	}
	s.matches[code] = work
	s.events[code] = append(s.events[code], tx.events...)
	return nil
}

// applyLocked validates transfers against current balances and returns the
// resulting balances without touching the store.
func (s *Store) applyLocked(transfers []transfer) (map[escrow.Account]int64, error) {
	next := make(map[escrow.Account]int64)
	balance := func(a escrow.Account) (int64, bool) {
		if b, ok := next[a]; ok {
			return b, true
		}
		b, ok := s.balances[a]
		return b, ok
	}
	for _, t := range transfers {
		from, ok := balance(t.from)
		if !ok {
			return nil, escrow.ErrAccountNotFound
		}
		to, ok := balance(t.to)
		if !ok {
			return nil, escrow.ErrAccountNotFound
		}
		if from < t.amount {
			return nil, escrow.ErrInsufficientBalance
		}
		if t.from == t.to {
			next[t.from] = from
			continue
		}
		credited, err := escrow.AddAmount(to, t.amount)
		if err != nil {
			return nil, escrow.ErrBalanceOverflow
		}
		next[t.from] = from - t.amount
		next[t.to] = credited
	}
	return next, nil
}

func (s *Store) Get(_ context.Context, code string) (*escrow.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[code]
	if !ok {
		return nil, escrow.ErrMatchNotFound
	}
	return &m, nil
}

func (s *Store) List(_ context.Context, f escrow.ListFilter) ([]*escrow.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*escrow.Match, 0)
	for _, m := range s.matches {
		if !matchesFilter(&m, f) {
			continue
		}
		out = append(out, &m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Code < out[j].Code
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func matchesFilter(m *escrow.Match, f escrow.ListFilter) bool {
	if len(f.States) > 0 {
		found := false
		for _, st := range f.States {
			if m.State == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Participant != escrow.NoAccount && !m.IsParticipant(f.Participant) {
		return false
	}
	if !f.DeadlineBefore.IsZero() && m.Deadline.After(f.DeadlineBefore) {
		return false
	}
	if f.Unflagged && m.RefundFlagged {
		return false
	}
	return true
}

func (s *Store) Events(_ context.Context, code string) ([]escrow.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	evs := s.events[code]
	out := make([]escrow.Event, len(evs))
	copy(out, evs)
	return out, nil
}

func (s *Store) Balance(_ context.Context, a escrow.Account) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.balances[a]
	if !ok {
		return 0, escrow.ErrAccountNotFound
	}
	return b, nil
}

func (s *Store) OpenAccount(_ context.Context, a escrow.Account, secretHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.balances[a]; ok {
		return escrow.ErrAccountExists
	}
	s.balances[a] = 0
	s.secrets[a] = secretHash
	return nil
}

func (s *Store) Credential(_ context.Context, a escrow.Account) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hash, ok := s.secrets[a]
	if !ok {
		return "", escrow.ErrAccountNotFound
	}
	return hash, nil
}

func (s *Store) Deposit(_ context.Context, a escrow.Account, amount int64, _ string) (int64, error) {
	if amount <= 0 {
		return 0, escrow.ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.balances[a]
	if !ok {
		return 0, escrow.ErrAccountNotFound
	}
	next, err := escrow.AddAmount(b, amount)
	if err != nil {
		return 0, escrow.ErrBalanceOverflow
	}
	s.balances[a] = next
	return next, nil
}

type memTx struct {
	store     *Store
	transfers []transfer
	events    []escrow.Event
}

func (t *memTx) Transfer(from, to escrow.Account, amount int64) (string, error) {
	if amount <= 0 {
		return "", fmt.Errorf("transfer %d: %w", amount, escrow.ErrInvalidAmount)
	}
	staged := append(append([]transfer{}, t.transfers...), transfer{from: from, to: to, amount: amount})

	t.store.mu.Lock()
	_, err := t.store.applyLocked(staged)
	t.store.mu.Unlock()
	if err != nil {
		return "", err
	}
	t.transfers = staged
	return uuid.NewString(), nil
}

func (t *memTx) Emit(ev escrow.Event) error {
	t.events = append(t.events, ev)
	return nil
}
