package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"fitstake/internal/models"
	"fitstake/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EscrowService owns the per-challenge custody balances and the global
// platform fee pool. It knows nothing about challenge semantics; the
// registry supplies amounts and recipient sets.
type EscrowService struct {
	repo        *repository.Repository
	adminWallet string
	feePercent  int64
}

func NewEscrowService(repo *repository.Repository, adminWallet string, feePercent int64) *EscrowService {
	return &EscrowService{
		repo:        repo,
		adminWallet: adminWallet,
		feePercent:  feePercent,
	}
}

// Deposit moves amount from the payer's wallet into custody for a challenge
func (es *EscrowService) Deposit(ctx context.Context, payerID, challengeID uint, amount int64) error {
	return es.repo.Transaction(ctx, func(r *repository.Repository) error {
		return es.deposit(ctx, r, payerID, challengeID, amount)
	})
}

// deposit is the transaction-scoped body, shared with the registry's join
// flow so roster mutation and fund movement commit together.
func (es *EscrowService) deposit(ctx context.Context, r *repository.Repository, payerID, challengeID uint, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	debited, err := r.DebitWallet(ctx, payerID, amount)
	if err != nil {
		return fmt.Errorf("failed to debit wallet: %w", err)
	}
	if !debited {
		return ErrInsufficientFunds
	}

	if err := r.CreditEscrowAccount(ctx, challengeID, amount); err != nil {
		return fmt.Errorf("failed to credit escrow account: %w", err)
	}

	return r.CreateEscrowTransaction(ctx, &models.EscrowTransaction{
		ID:          uuid.New(),
		ChallengeID: challengeID,
		UserID:      payerID,
		Type:        models.EscrowTransactionTypeDeposit,
		Amount:      amount,
	})
}

// Distribute splits the pooled funds: a flat platform fee goes to the fee
// pool and the remaining prize pool is divided evenly among the winners.
// Integer division remainders and the whole prize pool of a winnerless
// challenge stay in custody with no retrieval path; they are journalled as
// RETAIN entries and the accumulator is zeroed regardless.
func (es *EscrowService) Distribute(ctx context.Context, challengeID uint, winners []uint, totalPool int64) error {
	return es.repo.Transaction(ctx, func(r *repository.Repository) error {
		return es.distribute(ctx, r, challengeID, winners, totalPool)
	})
}

func (es *EscrowService) distribute(ctx context.Context, r *repository.Repository, challengeID uint, winners []uint, totalPool int64) error {
	account, err := r.GetEscrowAccount(ctx, challengeID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrEscrowNotInitialized
	}
	if err != nil {
		return fmt.Errorf("failed to load escrow account: %w", err)
	}
	if account.Balance < totalPool {
		return ErrInsufficientBalance
	}

	platformFee := totalPool * es.feePercent / 100
	prizePool := totalPool - platformFee

	if platformFee > 0 {
		if err := r.AddPlatformFees(ctx, platformFee); err != nil {
			return fmt.Errorf("failed to accrue platform fee: %w", err)
		}
		if err := r.CreateEscrowTransaction(ctx, &models.EscrowTransaction{
			ID:          uuid.New(),
			ChallengeID: challengeID,
			Type:        models.EscrowTransactionTypeFee,
			Amount:      platformFee,
		}); err != nil {
			return fmt.Errorf("failed to journal fee: %w", err)
		}
	}

	retained := prizePool
	if len(winners) > 0 {
		payoutPerWinner := prizePool / int64(len(winners))
		for _, winnerID := range winners {
			if err := r.CreditWallet(ctx, winnerID, payoutPerWinner); err != nil {
				return fmt.Errorf("failed to pay winner %d: %w", winnerID, err)
			}
			if err := r.CreateEscrowTransaction(ctx, &models.EscrowTransaction{
				ID:          uuid.New(),
				ChallengeID: challengeID,
				UserID:      winnerID,
				Type:        models.EscrowTransactionTypePayout,
				Amount:      payoutPerWinner,
			}); err != nil {
				return fmt.Errorf("failed to journal payout: %w", err)
			}
		}
		retained = prizePool - payoutPerWinner*int64(len(winners))
	}

	if retained > 0 {
		// Funds left in custody with no retrieval path. Journalled so the
		// books still balance.
		if err := r.CreateEscrowTransaction(ctx, &models.EscrowTransaction{
			ID:          uuid.New(),
			ChallengeID: challengeID,
			Type:        models.EscrowTransactionTypeRetain,
			Amount:      retained,
		}); err != nil {
			return fmt.Errorf("failed to journal retained funds: %w", err)
		}
	}

	if err := r.ZeroEscrowAccount(ctx, challengeID); err != nil {
		return fmt.Errorf("failed to zero escrow account: %w", err)
	}

	log.Printf("Distributed challenge %d: pool=%d fee=%d winners=%d retained=%d",
		challengeID, totalPool, platformFee, len(winners), retained)

	return nil
}

// Refund pays entryFee back to every participant, attempted in roster
// order. There is no up-front check that custody covers all refunds; a
// mid-loop shortfall fails the operation and the surrounding transaction
// rolls the partial refunds back.
func (es *EscrowService) Refund(ctx context.Context, challengeID uint, participants []uint, entryFee int64) error {
	return es.repo.Transaction(ctx, func(r *repository.Repository) error {
		return es.refund(ctx, r, challengeID, participants, entryFee)
	})
}

func (es *EscrowService) refund(ctx context.Context, r *repository.Repository, challengeID uint, participants []uint, entryFee int64) error {
	for _, participantID := range participants {
		debited, err := r.DebitEscrowAccount(ctx, challengeID, entryFee)
		if err != nil {
			return fmt.Errorf("failed to debit escrow account: %w", err)
		}
		if !debited {
			return ErrInsufficientBalance
		}
		if err := r.CreditWallet(ctx, participantID, entryFee); err != nil {
			return fmt.Errorf("failed to refund participant %d: %w", participantID, err)
		}
		if err := r.CreateEscrowTransaction(ctx, &models.EscrowTransaction{
			ID:          uuid.New(),
			ChallengeID: challengeID,
			UserID:      participantID,
			Type:        models.EscrowTransactionTypeRefund,
			Amount:      entryFee,
		}); err != nil {
			return fmt.Errorf("failed to journal refund: %w", err)
		}
	}

	if err := r.ZeroEscrowAccount(ctx, challengeID); err != nil {
		return fmt.Errorf("failed to zero escrow account: %w", err)
	}

	log.Printf("Refunded challenge %d: %d participants x %d", challengeID, len(participants), entryFee)

	return nil
}

// WithdrawPlatformFees debits the fee pool and credits the caller's
// wallet. Only the configured admin identity may withdraw.
func (es *EscrowService) WithdrawPlatformFees(ctx context.Context, caller *models.User, amount int64) error {
	if caller.WalletAddress != es.adminWallet {
		return ErrNotAuthorized
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}

	return es.repo.Transaction(ctx, func(r *repository.Repository) error {
		debited, err := r.DebitPlatformFees(ctx, amount)
		if err != nil {
			return fmt.Errorf("failed to debit fee pool: %w", err)
		}
		if !debited {
			return ErrInsufficientBalance
		}
		if err := r.CreditWallet(ctx, caller.ID, amount); err != nil {
			return fmt.Errorf("failed to credit admin wallet: %w", err)
		}
		if err := r.CreateEscrowTransaction(ctx, &models.EscrowTransaction{
			ID:     uuid.New(),
			UserID: caller.ID,
			Type:   models.EscrowTransactionTypeWithdraw,
			Amount: amount,
		}); err != nil {
			return fmt.Errorf("failed to journal withdrawal: %w", err)
		}

		log.Printf("Platform fees withdrawn: %d by %s", amount, caller.WalletAddress)
		return nil
	})
}

// GetChallengeBalance returns the custody balance for a challenge, zero if
// no deposits were ever made
func (es *EscrowService) GetChallengeBalance(ctx context.Context, challengeID uint) (int64, error) {
	account, err := es.repo.GetEscrowAccount(ctx, challengeID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

// GetPlatformFees returns the accrued platform fee pool balance
func (es *EscrowService) GetPlatformFees(ctx context.Context) (int64, error) {
	return es.repo.GetPlatformFees(ctx)
}

// GetChallengeTransactions returns the custody journal for a challenge
func (es *EscrowService) GetChallengeTransactions(ctx context.Context, challengeID uint) ([]*models.EscrowTransaction, error) {
	return es.repo.ListChallengeTransactions(ctx, challengeID)
}
