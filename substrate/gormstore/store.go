// Package gormstore keeps match records, balances and the audit trail in a
// SQL database through gorm. Every transition runs inside one database
// transaction holding a row lock on the match.
package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"wagerd/escrow"
	"wagerd/models"
	"wagerd/substrate"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func init() {
	substrate.Register("gorm", func(deps substrate.Deps) (substrate.Backend, error) {
		if deps.DB == nil {
			return nil, errors.New("gorm substrate requires a database connection")
		}
		return New(deps.DB), nil
	})
}

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the tables this substrate reads and writes.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Account{},
		&models.AccountTransaction{},
		&models.WagerMatch{},
		&models.WagerEvent{},
	)
}

func (s *Store) Insert(ctx context.Context, m *escrow.Match, ev escrow.Event) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.WagerMatch{}).Where("game_code = ?", m.Code).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return escrow.ErrMatchExists
		}

		custody := models.Account{
			AccountCode: string(m.Address()),
			Kind:        models.AccountKindCustody,
			IsActive:    true,
		}
		if err := tx.Create(&custody).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return escrow.ErrMatchExists
			}
			return err
		}

		row := fromMatch(m)
		if err := tx.Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return escrow.ErrMatchExists
			}
			return err
		}
		return insertEvent(tx, ev)
	})
}

func (s *Store) Update(ctx context.Context, code string, fn func(m *escrow.Match, tx escrow.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.WagerMatch
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("game_code = ?", code).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return escrow.ErrMatchNotFound
			}
			return err
		}

		m, err := toMatch(&row)
		if err != nil {
			return err
		}
		if err := fn(m, &ledgerTx{db: tx}); err != nil {
			return err
		}

		res := tx.Model(&models.WagerMatch{}).
			Where("id = ? AND state = ?", row.ID, row.State).
			Updates(map[string]any{
				"guest":          string(m.Guest),
				"state":          m.State.String(),
				"host_funded":    m.HostFunded(),
				"guest_funded":   m.GuestFunded(),
				"refund_flagged": m.RefundFlagged,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return escrow.ErrInvalidState
		}
		return nil
	})
}

func (s *Store) Get(ctx context.Context, code string) (*escrow.Match, error) {
	var row models.WagerMatch
	if err := s.db.WithContext(ctx).Where("game_code = ?", code).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, escrow.ErrMatchNotFound
		}
		return nil, err
	}
	return toMatch(&row)
}

func (s *Store) List(ctx context.Context, f escrow.ListFilter) ([]*escrow.Match, error) {
	q := s.db.WithContext(ctx).Model(&models.WagerMatch{})
	if len(f.States) > 0 {
		names := make([]string, len(f.States))
		for i, st := range f.States {
			names[i] = st.String()
		}
		q = q.Where("state IN ?", names)
	}
	if f.Participant != escrow.NoAccount {
		q = q.Where("host = ? OR guest = ?", string(f.Participant), string(f.Participant))
	}
	if !f.DeadlineBefore.IsZero() {
		q = q.Where("deadline <= ?", f.DeadlineBefore)
	}
	if f.Unflagged {
		q = q.Where("refund_flagged = ?", false)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var rows []models.WagerMatch
	if err := q.Order("opened_at DESC, game_code ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*escrow.Match, 0, len(rows))
	for i := range rows {
		m, err := toMatch(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *Store) Events(ctx context.Context, code string) ([]escrow.Event, error) {
	var rows []models.WagerEvent
	if err := s.db.WithContext(ctx).
		Where("game_code = ?", code).
		Order("occurred_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]escrow.Event, 0, len(rows))
	for _, row := range rows {
		ev := escrow.Event{
			ID:         row.EventID,
			MatchCode:  row.GameCode,
			Type:       row.EventType,
			Actor:      escrow.Account(row.Actor),
			RefID:      row.RefID,
			OccurredAt: row.OccurredAt.UTC(),
		}
		if len(row.Payload) > 0 {
			if err := json.Unmarshal(row.Payload, &ev.Payload); err != nil {
				return nil, fmt.Errorf("decode event %s payload: %w", row.EventID, err)
			}
		}
		out = append(out, ev)
	}
	return out, nil
}

func insertEvent(tx *gorm.DB, ev escrow.Event) error {
	var payload datatypes.JSON
	if ev.Payload != nil {
		raw, err := json.Marshal(ev.Payload)
		if err != nil {
			return fmt.Errorf("encode event payload: %w", err)
		}
		payload = datatypes.JSON(raw)
	}
	return tx.Create(&models.WagerEvent{
		EventID:    ev.ID,
		GameCode:   ev.MatchCode,
		EventType:  ev.Type,
		Actor:      string(ev.Actor),
		RefID:      ev.RefID,
		Payload:    payload,
		OccurredAt: ev.OccurredAt,
	}).Error
}

func fromMatch(m *escrow.Match) models.WagerMatch {
	return models.WagerMatch{
		GameCode:      m.Code,
		Address:       string(m.Address()),
		Host:          string(m.Host),
		Guest:         string(m.Guest),
		Referee:       string(m.Referee),
		Stake:         m.Stake,
		State:         m.State.String(),
		HostFunded:    m.HostFunded(),
		GuestFunded:   m.GuestFunded(),
		Deadline:      m.Deadline,
		OpenedAt:      m.CreatedAt,
		RefundFlagged: m.RefundFlagged,
	}
}

// toMatch rebuilds the record from its row. The funded columns are ignored.
func toMatch(row *models.WagerMatch) (*escrow.Match, error) {
	st, err := escrow.ParseState(row.State)
	if err != nil {
		return nil, fmt.Errorf("match %s: %w", row.GameCode, err)
	}
	return &escrow.Match{
		Code:          row.GameCode,
		Host:          escrow.Account(row.Host),
		Guest:         escrow.Account(row.Guest),
		Referee:       escrow.Account(row.Referee),
		Stake:         row.Stake,
		State:         st,
		Deadline:      row.Deadline.UTC(),
		CreatedAt:     row.OpenedAt.UTC(),
		RefundFlagged: row.RefundFlagged,
	}, nil
}
