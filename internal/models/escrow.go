package models

import (
	"time"

	"github.com/google/uuid"
)

type EscrowTransactionType string

const (
	EscrowTransactionTypeDeposit  EscrowTransactionType = "DEPOSIT"
	EscrowTransactionTypePayout   EscrowTransactionType = "PAYOUT"
	EscrowTransactionTypeRefund   EscrowTransactionType = "REFUND"
	EscrowTransactionTypeFee      EscrowTransactionType = "FEE"
	EscrowTransactionTypeRetain   EscrowTransactionType = "RETAIN"
	EscrowTransactionTypeWithdraw EscrowTransactionType = "WITHDRAW"
)

// Wallet holds a user's external balance in base units. This is the
// value-transfer primitive the escrow debits on deposit and credits on
// payout, refund and fee withdrawal.
type Wallet struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Balance   int64     `gorm:"not null;default:0" json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Wallet) TableName() string {
	return "wallets"
}

// EscrowAccount is the per-challenge accumulator of deposited funds
type EscrowAccount struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ChallengeID uint      `gorm:"uniqueIndex;not null" json:"challenge_id"`
	Balance     int64     `gorm:"not null;default:0" json:"balance"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (EscrowAccount) TableName() string {
	return "escrow_accounts"
}

// EscrowTransaction is the journal of every fund movement through custody.
// UserID is zero for platform-level entries (FEE, RETAIN).
type EscrowTransaction struct {
	ID          uuid.UUID             `gorm:"type:uuid;primaryKey" json:"id"`
	ChallengeID uint                  `gorm:"not null;index" json:"challenge_id"`
	UserID      uint                  `gorm:"index" json:"user_id"`
	Type        EscrowTransactionType `gorm:"size:50;not null" json:"type"`
	Amount      int64                 `gorm:"not null" json:"amount"`
	CreatedAt   time.Time             `gorm:"autoCreateTime" json:"created_at"`
}

func (EscrowTransaction) TableName() string {
	return "escrow_transactions"
}

// PlatformFeePool is the single process-wide accumulator of collected fees
type PlatformFeePool struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Balance   int64     `gorm:"not null;default:0" json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PlatformFeePool) TableName() string {
	return "platform_fee_pool"
}
