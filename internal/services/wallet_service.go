package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"fitstake/internal/repository"

	"gorm.io/gorm"
)

// WalletService exposes the external balance primitive: queries plus a
// funding entry point that the off-chain payment layer calls once an
// on-chain transfer is confirmed.
type WalletService struct {
	repo *repository.Repository
}

func NewWalletService(repo *repository.Repository) *WalletService {
	return &WalletService{repo: repo}
}

// GetBalance returns a user's external balance in base units, zero if the
// wallet row was never created
func (s *WalletService) GetBalance(ctx context.Context, userID uint) (int64, error) {
	wallet, err := s.repo.GetWallet(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return wallet.Balance, nil
}

// Credit adds funds to a user's external balance
func (s *WalletService) Credit(ctx context.Context, userID uint, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if err := s.repo.CreditWallet(ctx, userID, amount); err != nil {
		return fmt.Errorf("failed to credit wallet: %w", err)
	}
	log.Printf("Wallet credited: user=%d amount=%d", userID, amount)
	return nil
}
