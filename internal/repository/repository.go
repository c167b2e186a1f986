package repository

import (
	"context"
	"errors"

	"fitstake/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Transaction runs fn with a repository bound to a single database
// transaction. Every state-mutating operation of the registry and the
// escrow ledger goes through this wrapper so it commits fully or not at all.
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

// ---------------------------------------------------------------------------
// Users and wallets
// ---------------------------------------------------------------------------

func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *Repository) GetUserByID(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) GetUserByWallet(ctx context.Context, walletAddress string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("wallet_address = ?", walletAddress).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) GetWallet(ctx context.Context, userID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *Repository) CreateWallet(ctx context.Context, wallet *models.Wallet) error {
	return r.db.WithContext(ctx).Create(wallet).Error
}

// DebitWallet atomically subtracts amount from a wallet, guarded by a
// sufficient-balance predicate. Returns false when the wallet is missing
// or the balance cannot cover the amount.
func (r *Repository) DebitWallet(ctx context.Context, userID uint, amount int64) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Wallet{}).
		Where("user_id = ? AND balance >= ?", userID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// CreditWallet atomically adds amount to a wallet, creating it if absent
func (r *Repository) CreditWallet(ctx context.Context, userID uint, amount int64) error {
	result := r.db.WithContext(ctx).Model(&models.Wallet{}).
		Where("user_id = ?", userID).
		Update("balance", gorm.Expr("balance + ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.db.WithContext(ctx).Create(&models.Wallet{UserID: userID, Balance: amount}).Error
	}
	return nil
}

// ---------------------------------------------------------------------------
// Challenges
// ---------------------------------------------------------------------------

func (r *Repository) CreateChallenge(ctx context.Context, challenge *models.Challenge) error {
	return r.db.WithContext(ctx).Create(challenge).Error
}

func (r *Repository) GetChallengeByID(ctx context.Context, challengeID uint) (*models.Challenge, error) {
	var challenge models.Challenge
	if err := r.db.WithContext(ctx).Where("id = ?", challengeID).First(&challenge).Error; err != nil {
		return nil, err
	}
	return &challenge, nil
}

func (r *Repository) UpdateChallenge(ctx context.Context, challenge *models.Challenge) error {
	return r.db.WithContext(ctx).Save(challenge).Error
}

// IncrementChallengePool grows the pool by the entry fee without a
// read-modify-write cycle
func (r *Repository) IncrementChallengePool(ctx context.Context, challengeID uint, amount int64) error {
	return r.db.WithContext(ctx).Model(&models.Challenge{}).
		Where("id = ?", challengeID).
		Update("total_pool", gorm.Expr("total_pool + ?", amount)).Error
}

// ListSettleableChallenges returns active, undistributed challenges whose
// end time has passed
func (r *Repository) ListSettleableChallenges(ctx context.Context, now int64, limit int) ([]*models.Challenge, error) {
	var challenges []*models.Challenge
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND rewards_distributed = ? AND end_time < ?", true, false, now).
		Order("end_time ASC").
		Limit(limit).
		Find(&challenges).Error
	if err != nil {
		return nil, err
	}
	return challenges, nil
}

func (r *Repository) ListChallenges(ctx context.Context, limit, offset int) ([]*models.Challenge, error) {
	var challenges []*models.Challenge
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&challenges).Error
	if err != nil {
		return nil, err
	}
	return challenges, nil
}

// ---------------------------------------------------------------------------
// Participants
// ---------------------------------------------------------------------------

func (r *Repository) AddParticipant(ctx context.Context, participant *models.ChallengeParticipant) error {
	return r.db.WithContext(ctx).Create(participant).Error
}

func (r *Repository) CountParticipants(ctx context.Context, challengeID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ChallengeParticipant{}).
		Where("challenge_id = ?", challengeID).
		Count(&count).Error
	return count, err
}

func (r *Repository) IsParticipant(ctx context.Context, challengeID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ChallengeParticipant{}).
		Where("challenge_id = ? AND user_id = ?", challengeID, userID).
		Count(&count).Error
	return count > 0, err
}

// ListParticipants returns the roster in join order
func (r *Repository) ListParticipants(ctx context.Context, challengeID uint) ([]*models.ChallengeParticipant, error) {
	var participants []*models.ChallengeParticipant
	err := r.db.WithContext(ctx).
		Where("challenge_id = ?", challengeID).
		Order("join_order ASC").
		Find(&participants).Error
	if err != nil {
		return nil, err
	}
	return participants, nil
}

// ---------------------------------------------------------------------------
// Submissions and votes
// ---------------------------------------------------------------------------

func (r *Repository) CreateSubmission(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *Repository) GetSubmission(ctx context.Context, challengeID, userID uint) (*models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).
		Where("challenge_id = ? AND user_id = ?", challengeID, userID).
		First(&submission).Error
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

func (r *Repository) ListSubmissions(ctx context.Context, challengeID uint) ([]*models.Submission, error) {
	var submissions []*models.Submission
	err := r.db.WithContext(ctx).
		Where("challenge_id = ?", challengeID).
		Order("submitted_at ASC").
		Find(&submissions).Error
	if err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *Repository) CreateVote(ctx context.Context, vote *models.SubmissionVote) error {
	return r.db.WithContext(ctx).Create(vote).Error
}

// RecordBallot increments the matching vote counter
func (r *Repository) RecordBallot(ctx context.Context, submissionID uint, approve bool) error {
	column := "votes_against"
	if approve {
		column = "votes_for"
	}
	return r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("id = ?", submissionID).
		Update(column, gorm.Expr(column+" + 1")).Error
}

// LatchVerification flips is_verified once the margin is crossed. The
// predicate makes the update a one-way latch: it only ever sets true.
func (r *Repository) LatchVerification(ctx context.Context, submissionID uint, margin int64) error {
	return r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("id = ? AND is_verified = ? AND votes_for > votes_against + ?", submissionID, false, margin).
		Update("is_verified", true).Error
}

// ---------------------------------------------------------------------------
// Escrow accounts, fee pool and journal
// ---------------------------------------------------------------------------

func (r *Repository) GetEscrowAccount(ctx context.Context, challengeID uint) (*models.EscrowAccount, error) {
	var account models.EscrowAccount
	err := r.db.WithContext(ctx).Where("challenge_id = ?", challengeID).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// CreditEscrowAccount adds amount to the per-challenge accumulator,
// creating it on first deposit
func (r *Repository) CreditEscrowAccount(ctx context.Context, challengeID uint, amount int64) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "challenge_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"balance": gorm.Expr("balance + ?", amount)}),
	}).Create(&models.EscrowAccount{ChallengeID: challengeID, Balance: amount}).Error
}

// DebitEscrowAccount subtracts amount, guarded by a covering-balance
// predicate. Returns false when the accumulator cannot cover the amount.
func (r *Repository) DebitEscrowAccount(ctx context.Context, challengeID uint, amount int64) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.EscrowAccount{}).
		Where("challenge_id = ? AND balance >= ?", challengeID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *Repository) ZeroEscrowAccount(ctx context.Context, challengeID uint) error {
	return r.db.WithContext(ctx).Model(&models.EscrowAccount{}).
		Where("challenge_id = ?", challengeID).
		Update("balance", 0).Error
}

// AddPlatformFees credits the global fee pool with a linearizable increment
func (r *Repository) AddPlatformFees(ctx context.Context, amount int64) error {
	result := r.db.WithContext(ctx).Model(&models.PlatformFeePool{}).
		Where("id = ?", 1).
		Update("balance", gorm.Expr("balance + ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		err := r.db.WithContext(ctx).Create(&models.PlatformFeePool{ID: 1, Balance: amount}).Error
		if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
			return r.db.WithContext(ctx).Model(&models.PlatformFeePool{}).
				Where("id = ?", 1).
				Update("balance", gorm.Expr("balance + ?", amount)).Error
		}
		return err
	}
	return nil
}

// DebitPlatformFees subtracts amount from the fee pool, guarded by a
// covering-balance predicate
func (r *Repository) DebitPlatformFees(ctx context.Context, amount int64) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.PlatformFeePool{}).
		Where("id = ? AND balance >= ?", 1, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *Repository) GetPlatformFees(ctx context.Context) (int64, error) {
	var pool models.PlatformFeePool
	err := r.db.WithContext(ctx).Where("id = ?", 1).First(&pool).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return pool.Balance, nil
}

func (r *Repository) CreateEscrowTransaction(ctx context.Context, tx *models.EscrowTransaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

func (r *Repository) ListChallengeTransactions(ctx context.Context, challengeID uint) ([]*models.EscrowTransaction, error) {
	var transactions []*models.EscrowTransaction
	err := r.db.WithContext(ctx).
		Where("challenge_id = ?", challengeID).
		Order("created_at ASC").
		Find(&transactions).Error
	if err != nil {
		return nil, err
	}
	return transactions, nil
}
