package models

import (
	"gorm.io/gorm"
)

const (
	AccountKindUser    = "user"
	AccountKindCustody = "custody"
)

type Account struct {
	gorm.Model

	AccountCode  string               `gorm:"uniqueIndex;size:64" json:"account_code"`
	Kind         string               `gorm:"size:16;index" json:"kind"`
	SecretHash   string               `gorm:"size:128" json:"-"`
	Balance      int64                `json:"balance"`
	IsActive     bool                 `gorm:"default:true" json:"is_active"`
	Transactions []AccountTransaction `gorm:"foreignKey:AccountID"`
}

type AccountTransaction struct {
	gorm.Model

	AccountID     uint   `gorm:"index"`
	AccountCode   string `gorm:"index;size:64"`
	TrxType       string `gorm:"size:16"`
	Amount        int64  `json:"amount"`
	BalanceBefore int64  `json:"balance_before"`
	BalanceAfter  int64  `json:"balance_after"`
	Counterparty  string `gorm:"size:64"`
	Note          string `gorm:"size:255"`
	RefID         string `gorm:"size:64;index"`
}
