package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"fitstake/internal/models"
	"fitstake/internal/repository"

	"gorm.io/gorm"
)

// AuthService handles account lookup and registration on wallet login
type AuthService struct {
	repo *repository.Repository
}

func NewAuthService(repo *repository.Repository) *AuthService {
	return &AuthService{repo: repo}
}

// ProcessWalletLogin finds or creates a user by wallet address. New users
// get an empty wallet row so escrow operations always have a balance to
// debit or credit.
func (s *AuthService) ProcessWalletLogin(ctx context.Context, walletAddress, username string) (*models.User, error) {
	user, err := s.repo.GetUserByWallet(ctx, walletAddress)
	if err == nil {
		log.Printf("User logged in: wallet=%s (ID: %d)", walletAddress, user.ID)
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("database error: %w", err)
	}

	user = &models.User{
		WalletAddress: walletAddress,
		Username:      username,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	if err := s.repo.CreateWallet(ctx, &models.Wallet{UserID: user.ID}); err != nil {
		log.Printf("Warning: failed to create wallet for user %d: %v", user.ID, err)
	}

	log.Printf("New user created: wallet=%s (ID: %d)", walletAddress, user.ID)
	return user, nil
}

// GetUserByID retrieves a user by their ID
func (s *AuthService) GetUserByID(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
