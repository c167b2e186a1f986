package models

import (
	"time"
)

// User represents a registered account, keyed by wallet address
type User struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	WalletAddress string    `gorm:"uniqueIndex;size:255;not null" json:"wallet_address"`
	Username      string    `gorm:"size:255" json:"username"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
