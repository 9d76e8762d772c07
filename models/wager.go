package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WagerMatch is the persisted escrow record. HostFunded and GuestFunded are
// written from State on every save.
type WagerMatch struct {
	gorm.Model

	GameCode      string    `gorm:"uniqueIndex;size:16" json:"game_code"`
	Address       string    `gorm:"uniqueIndex;size:64" json:"address"`
	Host          string    `gorm:"index;size:64" json:"host"`
	Guest         string    `gorm:"index;size:64" json:"guest"`
	Referee       string    `gorm:"size:64" json:"referee"`
	Stake         int64     `json:"stake"`
	State         string    `gorm:"size:16;index" json:"state"`
	HostFunded    bool      `json:"host_funded"`
	GuestFunded   bool      `json:"guest_funded"`
	Deadline      time.Time `gorm:"index" json:"deadline"`
	OpenedAt      time.Time `json:"created_at"`
	RefundFlagged bool      `gorm:"index;not null;default:false" json:"refund_flagged"`
}

type WagerEvent struct {
	gorm.Model

	EventID    string         `gorm:"uniqueIndex;size:36"`
	GameCode   string         `gorm:"index;size:16"`
	EventType  string         `gorm:"size:32;index"`
	Actor      string         `gorm:"size:64"`
	RefID      string         `gorm:"size:64"`
	Payload    datatypes.JSON `json:"payload"`
	OccurredAt time.Time      `gorm:"index"`
}
