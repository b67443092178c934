package models

import (
	"time"
)

// TreasuryAccount is the reserved ledger address payouts are drawn from.
// Residual withdrawal empties it.
const TreasuryAccount = "treasury"

// EpochConfig is the singleton configuration row for the distribution.
// CurrentEpoch starts at 1 and only moves by +1 on rotation. ActiveRoot is
// never the zero hash (zero is reserved as unset and rejected at every
// write). A zero RewardAmount is legal and still consumes nullifiers.
type EpochConfig struct {
	ID           uint      `gorm:"primaryKey" json:"id"` // always 1
	CurrentEpoch uint64    `gorm:"not null" json:"current_epoch"`
	ActiveRoot   string    `gorm:"type:varchar(66);not null" json:"active_root"` // 0x + 64 hex chars
	RewardAmount string    `gorm:"type:varchar(78);not null;default:'0'" json:"reward_amount"`
	Paused       bool      `gorm:"not null;default:false" json:"paused"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Nullifier marks a consumed claim proof. Rows are created only by a
// successful claim and never removed, including across epoch rotations.
// The primary key is the single-use guarantee: a second insert of the same
// nullifier is a unique violation.
type Nullifier struct {
	Nullifier string    `gorm:"type:varchar(66);primaryKey" json:"nullifier"`
	EpochID   uint64    `gorm:"not null" json:"epoch_id"`
	ClaimID   string    `gorm:"type:varchar(36);not null" json:"claim_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ClaimRecord is the audit record of a successful payout
type ClaimRecord struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"` // uuid
	Nullifier string    `gorm:"type:varchar(66);uniqueIndex;not null" json:"nullifier"`
	Recipient string    `gorm:"type:varchar(42);not null;index" json:"recipient"`
	Amount    string    `gorm:"type:varchar(78);not null" json:"amount"`
	EpochID   uint64    `gorm:"not null;index" json:"epoch_id"`
	CreatedAt time.Time `json:"created_at"`
}

// LedgerAccount holds a native-value balance. Balance is a decimal string
// (wei); arithmetic happens in Go with big.Int under a row lock.
type LedgerAccount struct {
	Address   string    `gorm:"type:varchar(42);primaryKey" json:"address"`
	Balance   string    `gorm:"type:varchar(78);not null;default:'0'" json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}
