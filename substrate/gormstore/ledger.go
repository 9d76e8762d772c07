package gormstore

import (
	"context"
	"errors"
	"fmt"

	"wagerd/escrow"
	"wagerd/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	trxDebit  = "DEBIT"
	trxCredit = "CREDIT"
	trxTopup  = "TOP_UP"
)

type ledgerTx struct {
	db *gorm.DB
}

func (t *ledgerTx) Emit(ev escrow.Event) error {
	return insertEvent(t.db, ev)
}

// Transfer locks both accounts in code order and writes a debit and a credit
// row sharing one reference.
func (t *ledgerTx) Transfer(from, to escrow.Account, amount int64) (string, error) {
	if amount <= 0 {
		return "", fmt.Errorf("transfer %d: %w", amount, escrow.ErrInvalidAmount)
	}

	first, second := from, to
	if second < first {
		first, second = second, first
	}
	locked := make(map[escrow.Account]*models.Account, 2)
	for _, code := range []escrow.Account{first, second} {
		if _, ok := locked[code]; ok {
			continue
		}
		acc, err := lockAccount(t.db, code)
		if err != nil {
			return "", err
		}
		locked[code] = acc
	}

	src, dst := locked[from], locked[to]
	if src.Balance < amount {
		return "", escrow.ErrInsufficientBalance
	}
	credited, err := escrow.AddAmount(dst.Balance, amount)
	if err != nil {
		return "", escrow.ErrBalanceOverflow
	}
	if from == to {
		credited = dst.Balance
	}

	refID := uuid.New().String()
	srcBefore, dstBefore := src.Balance, dst.Balance
	src.Balance -= amount
	dst.Balance = credited

	if err := t.db.Model(src).Update("balance", src.Balance).Error; err != nil {
		return "", err
	}
	if from != to {
		if err := t.db.Model(dst).Update("balance", dst.Balance).Error; err != nil {
			return "", err
		}
	}

	rows := []models.AccountTransaction{
		{
			AccountID:     src.ID,
			AccountCode:   src.AccountCode,
			TrxType:       trxDebit,
			Amount:        amount,
			BalanceBefore: srcBefore,
			BalanceAfter:  src.Balance,
			Counterparty:  string(to),
			RefID:         refID,
		},
		{
			AccountID:     dst.ID,
			AccountCode:   dst.AccountCode,
			TrxType:       trxCredit,
			Amount:        amount,
			BalanceBefore: dstBefore,
			BalanceAfter:  dst.Balance,
			Counterparty:  string(from),
			RefID:         refID,
		},
	}
	if err := t.db.Create(&rows).Error; err != nil {
		return "", err
	}
	return refID, nil
}

func lockAccount(db *gorm.DB, code escrow.Account) (*models.Account, error) {
	var acc models.Account
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("account_code = ? AND is_active = ?", string(code), true).
		First(&acc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, escrow.ErrAccountNotFound
		}
		return nil, err
	}
	return &acc, nil
}

func (s *Store) OpenAccount(ctx context.Context, a escrow.Account, secretHash string) error {
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.Account{}).Where("account_code = ?", string(a)).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return escrow.ErrAccountExists
	}

	err := db.Create(&models.Account{
		AccountCode: string(a),
		Kind:        models.AccountKindUser,
		SecretHash:  secretHash,
		IsActive:    true,
	}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return escrow.ErrAccountExists
	}
	return err
}

func (s *Store) Credential(ctx context.Context, a escrow.Account) (string, error) {
	var acc models.Account
	if err := s.db.WithContext(ctx).
		Where("account_code = ? AND kind = ? AND is_active = ?", string(a), models.AccountKindUser, true).
		First(&acc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", escrow.ErrAccountNotFound
		}
		return "", err
	}
	return acc.SecretHash, nil
}

func (s *Store) Deposit(ctx context.Context, a escrow.Account, amount int64, note string) (int64, error) {
	if amount <= 0 {
		return 0, escrow.ErrInvalidAmount
	}
	var balance int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acc, err := lockAccount(tx, a)
		if err != nil {
			return err
		}
		next, err := escrow.AddAmount(acc.Balance, amount)
		if err != nil {
			return escrow.ErrBalanceOverflow
		}
		before := acc.Balance
		if err := tx.Model(acc).Update("balance", next).Error; err != nil {
			return err
		}
		if note == "" {
			note = "Top-up via API"
		}
		balance = next
		return tx.Create(&models.AccountTransaction{
			AccountID:     acc.ID,
			AccountCode:   acc.AccountCode,
			TrxType:       trxTopup,
			Amount:        amount,
			BalanceBefore: before,
			BalanceAfter:  next,
			Note:          note,
			RefID:         uuid.New().String(),
		}).Error
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (s *Store) Balance(ctx context.Context, a escrow.Account) (int64, error) {
	var acc models.Account
	if err := s.db.WithContext(ctx).Where("account_code = ?", string(a)).First(&acc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, escrow.ErrAccountNotFound
		}
		return 0, err
	}
	return acc.Balance, nil
}
