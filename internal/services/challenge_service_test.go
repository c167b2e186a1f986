package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"fitstake/internal/models"
	"fitstake/internal/repository"
)

func setupTestDB(t *testing.T) *gorm.DB {
	// A named shared-cache memory DB gives every test its own database
	// while letting gorm's connection pool see the same tables.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Wallet{},
		&models.Challenge{},
		&models.ChallengeParticipant{},
		&models.Submission{},
		&models.SubmissionVote{},
		&models.EscrowAccount{},
		&models.EscrowTransaction{},
		&models.PlatformFeePool{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	return db
}

// testClock is a settable replacement for the service clock
type testClock struct {
	unix int64
}

func (c *testClock) Now() time.Time {
	return time.Unix(c.unix, 0)
}

const testAdminWallet = "AdminWa11etAddre55"

func newTestServices(t *testing.T) (*ChallengeService, *EscrowService, *repository.Repository, *testClock) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	escrow := NewEscrowService(repo, testAdminWallet, 5)
	svc := NewChallengeService(repo, escrow, 3)

	clock := &testClock{unix: 1_700_000_000}
	svc.now = clock.Now

	return svc, escrow, repo, clock
}

func createTestUser(t *testing.T, repo *repository.Repository, wallet string, balance int64) *models.User {
	ctx := context.Background()
	user := &models.User{WalletAddress: wallet}
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	if err := repo.CreateWallet(ctx, &models.Wallet{UserID: user.ID, Balance: balance}); err != nil {
		t.Fatalf("failed to create wallet: %v", err)
	}
	return user
}

func walletBalance(t *testing.T, repo *repository.Repository, userID uint) int64 {
	wallet, err := repo.GetWallet(context.Background(), userID)
	if err != nil {
		t.Fatalf("failed to get wallet for user %d: %v", userID, err)
	}
	return wallet.Balance
}

func createTestChallenge(t *testing.T, svc *ChallengeService, creatorID uint, entryFee, durationDays int64) *models.Challenge {
	challenge, err := svc.CreateChallenge(context.Background(), creatorID, &models.CreateChallengeRequest{
		Name:         "30 day pushups",
		Description:  "100 pushups a day",
		EntryFee:     entryFee,
		DurationDays: durationDays,
	})
	if err != nil {
		t.Fatalf("failed to create challenge: %v", err)
	}
	return challenge
}

func TestCreateChallenge(t *testing.T) {
	svc, _, repo, clock := newTestServices(t)
	creator := createTestUser(t, repo, "creator", 0)

	challenge := createTestChallenge(t, svc, creator.ID, 1_000_000, 30)

	if challenge.CreatorID != creator.ID {
		t.Errorf("expected creator %d, got %d", creator.ID, challenge.CreatorID)
	}
	if challenge.StartTime != clock.unix {
		t.Errorf("expected start time %d, got %d", clock.unix, challenge.StartTime)
	}
	if want := clock.unix + 30*86400; challenge.EndTime != want {
		t.Errorf("expected end time %d, got %d", want, challenge.EndTime)
	}
	if challenge.TotalPool != 0 {
		t.Errorf("expected empty pool, got %d", challenge.TotalPool)
	}
	if !challenge.IsActive || challenge.RewardsDistributed {
		t.Errorf("expected active undistributed challenge, got active=%v distributed=%v",
			challenge.IsActive, challenge.RewardsDistributed)
	}

	second := createTestChallenge(t, svc, creator.ID, 0, 7)
	if second.ID <= challenge.ID {
		t.Errorf("expected increasing ids, got %d after %d", second.ID, challenge.ID)
	}
}

func TestCreateChallengeRejectsInvalidInput(t *testing.T) {
	svc, _, repo, _ := newTestServices(t)
	creator := createTestUser(t, repo, "creator", 0)
	ctx := context.Background()

	_, err := svc.CreateChallenge(ctx, creator.ID, &models.CreateChallengeRequest{
		Name: "bad fee", EntryFee: -1, DurationDays: 7,
	})
	if !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("negative fee: expected ErrInvalidAmount, got %v", err)
	}

	// The duration check carries its own sentinel so the rejection names
	// the offending field rather than reading as a money error.
	_, err = svc.CreateChallenge(ctx, creator.ID, &models.CreateChallengeRequest{
		Name: "bad duration", EntryFee: 100, DurationDays: 0,
	})
	if !errors.Is(err, ErrInvalidDuration) {
		t.Errorf("zero duration: expected ErrInvalidDuration, got %v", err)
	}

	_, err = svc.CreateChallenge(ctx, creator.ID, &models.CreateChallengeRequest{
		Name: "negative duration", EntryFee: 100, DurationDays: -5,
	})
	if !errors.Is(err, ErrInvalidDuration) {
		t.Errorf("negative duration: expected ErrInvalidDuration, got %v", err)
	}
}

func TestJoinChallenge(t *testing.T) {
	svc, escrow, repo, _ := newTestServices(t)
	ctx := context.Background()

	creator := createTestUser(t, repo, "creator", 0)
	alice := createTestUser(t, repo, "alice", 5_000_000)
	bob := createTestUser(t, repo, "bob", 5_000_000)

	challenge := createTestChallenge(t, svc, creator.ID, 1_000_000, 30)

	if err := svc.JoinChallenge(ctx, alice.ID, challenge.ID); err != nil {
		t.Fatalf("alice join failed: %v", err)
	}
	if err := svc.JoinChallenge(ctx, bob.ID, challenge.ID); err != nil {
		t.Fatalf("bob join failed: %v", err)
	}

	if got := walletBalance(t, repo, alice.ID); got != 4_000_000 {
		t.Errorf("expected alice balance 4000000, got %d", got)
	}

	// Pool invariant: total_pool == entry_fee * roster size == custody balance
	updated, err := svc.GetChallenge(ctx, challenge.ID)
	if err != nil {
		t.Fatalf("failed to reload challenge: %v", err)
	}
	if updated.TotalPool != 2_000_000 {
		t.Errorf("expected pool 2000000, got %d", updated.TotalPool)
	}
	custody, err := escrow.GetChallengeBalance(ctx, challenge.ID)
	if err != nil {
		t.Fatalf("failed to get custody balance: %v", err)
	}
	if custody != updated.TotalPool {
		t.Errorf("custody %d does not match pool %d", custody, updated.TotalPool)
	}

	participants, err := svc.ListParticipants(ctx, challenge.ID)
	if err != nil {
		t.Fatalf("failed to list participants: %v", err)
	}
	if len(participants) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(participants))
	}
	if participants[0].UserID != alice.ID || participants[0].JoinOrder != 1 {
		t.Errorf("expected alice first with order 1, got user %d order %d",
			participants[0].UserID, participants[0].JoinOrder)
	}
	if participants[1].UserID != bob.ID || participants[1].JoinOrder != 2 {
		t.Errorf("expected bob second with order 2, got user %d order %d",
			participants[1].UserID, participants[1].JoinOrder)
	}
}

func TestJoinChallengeTwice(t *testing.T) {
	svc, _, repo, _ := newTestServices(t)
	ctx := context.Background()

	creator := createTestUser(t, repo, "creator", 0)
	alice := createTestUser(t, repo, "alice", 5_000_000)
	challenge := createTestChallenge(t, svc, creator.ID, 1_000_000, 30)

	if err := svc.JoinChallenge(ctx, alice.ID, challenge.ID); err != nil {
		t.Fatalf("first join failed: %v", err)
	}
	if err := svc.JoinChallenge(ctx, alice.ID, challenge.ID); !errors.Is(err, ErrAlreadyJoined) {
		t.Fatalf("expected ErrAlreadyJoined, got %v", err)
	}

	// The rejected join must not debit a second fee
	if got := walletBalance(t, repo, alice.ID); got != 4_000_000 {
		t.Errorf("expected balance 4000000 after rejected rejoin, got %d", got)
	}
}

func TestJoinChallengeInsufficientFundsRollsBack(t *testing.T) {
	svc, escrow, repo, _ := newTestServices(t)
	ctx := context.Background()

	creator := createTestUser(t, repo, "creator", 0)
	poor := createTestUser(t, repo, "poor", 999_999)
	challenge := createTestChallenge(t, svc, creator.ID, 1_000_000, 30)

	if err := svc.JoinChallenge(ctx, poor.ID, challenge.ID); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	// The failed deposit must leave no trace: no roster entry, no pool
	// growth, no custody balance, untouched wallet.
	count, err := svc.GetParticipantCount(ctx, challenge.ID)
	if err != nil {
		t.Fatalf("failed to count participants: %v", err)
	}
	if count != 0 {
		t.Errorf("expected empty roster, got %d", count)
	}
	updated, _ := svc.GetChallenge(ctx, challenge.ID)
	if updated.TotalPool != 0 {
		t.Errorf("expected pool 0, got %d", updated.TotalPool)
	}
	custody, _ := escrow.GetChallengeBalance(ctx, challenge.ID)
	if custody != 0 {
		t.Errorf("expected custody 0, got %d", custody)
	}
	if got := walletBalance(t, repo, poor.ID); got != 999_999 {
		t.Errorf("expected wallet unchanged at 999999, got %d", got)
	}
}

func TestJoinChallengeAfterEnd(t *testing.T) {
	svc, _, repo, clock := newTestServices(t)
	ctx := context.Background()

	creator := createTestUser(t, repo, "creator", 0)
	late := createTestUser(t, repo, "late", 5_000_000)
	challenge := createTestChallenge(t, svc, creator.ID, 1_000_000, 30)

	clock.unix = challenge.EndTime + 1

	if err := svc.JoinChallenge(ctx, late.ID, challenge.ID); !errors.Is(err, ErrChallengeExpired) {
		t.Fatalf("expected ErrChallengeExpired, got %v", err)
	}

	// Expiry blocks joining but does not deactivate the challenge
	updated, _ := svc.GetChallenge(ctx, challenge.ID)
	if !updated.IsActive {
		t.Error("expected challenge to stay active after expiry")
	}
}

func TestJoinChallengeZeroFee(t *testing.T) {
	svc, escrow, repo, _ := newTestServices(t)
	ctx := context.Background()

	creator := createTestUser(t, repo, "creator", 0)
	alice := createTestUser(t, repo, "alice", 0)
	challenge := createTestChallenge(t, svc, creator.ID, 0, 7)

	if err := svc.JoinChallenge(ctx, alice.ID, challenge.ID); err != nil {
		t.Fatalf("zero-fee join failed: %v", err)
	}

	joined, err := svc.IsParticipant(ctx, challenge.ID, alice.ID)
	if err != nil {
		t.Fatalf("failed to check roster: %v", err)
	}
	if !joined {
		t.Error("expected alice on roster")
	}

	// No deposit happens, so no custody accumulator is created
	custody, err := escrow.GetChallengeBalance(ctx, challenge.ID)
	if err != nil {
		t.Fatalf("failed to get custody balance: %v", err)
	}
	if custody != 0 {
		t.Errorf("expected custody 0 for zero-fee challenge, got %d", custody)
	}
}

func TestJoinChallengeInactive(t *testing.T) {
	svc, _, repo, _ := newTestServices(t)
	ctx := context.Background()

	creator := createTestUser(t, repo, "creator", 0)
	alice := createTestUser(t, repo, "alice", 5_000_000)
	challenge := createTestChallenge(t, svc, creator.ID, 0, 7)

	if err := svc.CancelChallenge(ctx, creator.ID, challenge.ID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if err := svc.JoinChallenge(ctx, alice.ID, challenge.ID); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}
}

func TestSubmitProof(t *testing.T) {
	svc, _, repo, clock := newTestServices(t)
	ctx := context.Background()

	creator := createTestUser(t, repo, "creator", 0)
	alice := createTestUser(t, repo, "alice", 5_000_000)
	outsider := createTestUser(t, repo, "outsider", 5_000_000)
	challenge := createTestChallenge(t, svc, creator.ID, 1_000_000, 30)

	if err := svc.JoinChallenge(ctx, alice.ID, challenge.ID); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	if err := svc.SubmitProof(ctx, outsider.ID, challenge.ID, "ipfs://proof"); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("outsider submit: expected ErrNotParticipant, got %v", err)
	}

	if err := svc.SubmitProof(ctx, alice.ID, challenge.ID, "ipfs://proof"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	if err := svc.SubmitProof(ctx, alice.ID, challenge.ID, "ipfs://proof2"); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("second submit: expected ErrAlreadySubmitted, got %v", err)
	}

	submitted, err := svc.HasSubmitted(ctx, challenge.ID, alice.ID)
	if err != nil {
		t.Fatalf("failed to check submission: %v", err)
	}
	if !submitted {
		t.Error("expected alice to have a submission")
	}

	// Submissions carry no time-window restriction: a participant who
	// joined in time may still submit after the challenge ends.
	bob := createTestUser(t, repo, "bob", 5_000_000)
	if err := svc.JoinChallenge(ctx, bob.ID, challenge.ID); err != nil {
		t.Fatalf("bob join failed: %v", err)
	}
	clock.unix = challenge.EndTime + 100
	if err := svc.SubmitProof(ctx, bob.ID, challenge.ID, "ipfs://late-proof"); err != nil {
		t.Fatalf("late submit failed: %v", err)
	}
}

func TestVote(t *testing.T) {
	svc, _, repo, _ := newTestServices(t)
	ctx := context.Background()

	creator := createTestUser(t, repo, "creator", 0)
	alice := createTestUser(t, repo, "alice", 5_000_000)
	challenge := createTestChallenge(t, svc, creator.ID, 1_000_000, 30)

	if err := svc.JoinChallenge(ctx, alice.ID, challenge.ID); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	if err := svc.Vote(ctx, creator.ID, challenge.ID, alice.ID, true); !errors.Is(err, ErrNoSubmission) {
		t.Fatalf("vote without submission: expected ErrNoSubmission, got %v", err)
	}

	if err := svc.SubmitProof(ctx, alice.ID, challenge.ID, "ipfs://proof"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	// Voting is open to any identity, including non-participants and the
	// submitter voting on their own proof.
	voters := []uint{creator.ID, alice.ID, 501, 502}
	for i, voterID := range voters {
		approve := i%2 == 0
		if err := svc.Vote(ctx, voterID, challenge.ID, alice.ID, approve); err != nil {
			t.Fatalf("vote by %d failed: %v", voterID, err)
		}
	}

	if err := svc.Vote(ctx, creator.ID, challenge.ID, alice.ID, false); !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("second ballot: expected ErrAlreadyVoted, got %v", err)
	}

	votes, err := svc.GetSubmissionVotes(ctx, challenge.ID, alice.ID)
	if err != nil {
		t.Fatalf("failed to get votes: %v", err)
	}
	if votes.VotesFor+votes.VotesAgainst != int64(len(voters)) {
		t.Errorf("expected %d ballots total, got for=%d against=%d",
			len(voters), votes.VotesFor, votes.VotesAgainst)
	}
	if votes.VotesFor != 2 || votes.VotesAgainst != 2 {
		t.Errorf("expected 2/2 split, got for=%d against=%d", votes.VotesFor, votes.VotesAgainst)
	}
}

func TestVerificationLatch(t *testing.T) {
	svc, _, repo, _ := newTestServices(t)
	ctx := context.Background()

	creator := createTestUser(t, repo, "creator", 0)
	alice := createTestUser(t, repo, "alice", 5_000_000)
	challenge := createTestChallenge(t, svc, creator.ID, 1_000_000, 30)

	if err := svc.JoinChallenge(ctx, alice.ID, challenge.ID); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if err := svc.SubmitProof(ctx, alice.ID, challenge.ID, "ipfs://proof"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	// Margin is 3: verification requires votes_for > votes_against + 3,
	// so three approvals leave the submission unverified.
	for _, voterID := range []uint{101, 102, 103} {
		if err := svc.Vote(ctx, voterID, challenge.ID, alice.ID, true); err != nil {
			t.Fatalf("vote failed: %v", err)
		}
	}
	votes, err := svc.GetSubmissionVotes(ctx, challenge.ID, alice.ID)
	if err != nil {
		t.Fatalf("failed to get votes: %v", err)
	}
	if votes.IsVerified {
		t.Fatal("expected submission unverified at 3-0")
	}

	// The fourth approval crosses the margin
	if err := svc.Vote(ctx, 104, challenge.ID, alice.ID, true); err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	votes, _ = svc.GetSubmissionVotes(ctx, challenge.ID, alice.ID)
	if !votes.IsVerified {
		t.Fatal("expected submission verified at 4-0")
	}

	// Verification is a one-way latch: later rejections never revoke it
	for _, voterID := range []uint{201, 202, 203, 204, 205} {
		if err := svc.Vote(ctx, voterID, challenge.ID, alice.ID, false); err != nil {
			t.Fatalf("vote failed: %v", err)
		}
	}
	votes, _ = svc.GetSubmissionVotes(ctx, challenge.ID, alice.ID)
	if !votes.IsVerified {
		t.Error("expected submission to stay verified at 4-5")
	}
}

func TestDistributeRewardsNoWinners(t *testing.T) {
	svc, escrow, repo, clock := newTestServices(t)
	ctx := context.Background()

	creator := createTestUser(t, repo, "creator", 0)
	alice := createTestUser(t, repo, "alice", 1_000_000)
	bob := createTestUser(t, repo, "bob", 1_000_000)
	challenge := createTestChallenge(t, svc, creator.ID, 1_000_000, 30)

	if err := svc.JoinChallenge(ctx, alice.ID, challenge.ID); err != nil {
		t.Fatalf("alice join failed: %v", err)
	}
	if err := svc.JoinChallenge(ctx, bob.ID, challenge.ID); err != nil {
		t.Fatalf("bob join failed: %v", err)
	}

	if err := svc.DistributeRewards(ctx, challenge.ID); !errors.Is(err, ErrNotEnded) {
		t.Fatalf("distribute before end: expected ErrNotEnded, got %v", err)
	}

	clock.unix = challenge.EndTime + 1
	if err := svc.DistributeRewards(ctx, challenge.ID); err != nil {
		t.Fatalf("distribute failed: %v", err)
	}

	// 5% of the 2,000,000 pool goes to the platform; with nobody verified
	// the 1,900,000 prize pool is retained and the accumulator zeroed.
	fees, err := escrow.GetPlatformFees(ctx)
	if err != nil {
		t.Fatalf("failed to get platform fees: %v", err)
	}
	if fees != 100_000 {
		t.Errorf("expected platform fees 100000, got %d", fees)
	}
	custody, _ := escrow.GetChallengeBalance(ctx, challenge.ID)
	if custody != 0 {
		t.Errorf("expected custody zeroed, got %d", custody)
	}
	if got := walletBalance(t, repo, alice.ID); got != 0 {
		t.Errorf("expected no payout to alice, got balance %d", got)
	}

	var retained []models.EscrowTransaction
	transactions, err := escrow.GetChallengeTransactions(ctx, challenge.ID)
	if err != nil {
		t.Fatalf("failed to get journal: %v", err)
	}
	for _, tx := range transactions {
		if tx.Type == models.EscrowTransactionTypeRetain {
			retained = append(retained, *tx)
		}
	}
	if len(retained) != 1 || retained[0].Amount != 1_900_000 {
		t.Errorf("expected one RETAIN entry of 1900000, got %v", retained)
	}

	updated, _ := svc.GetChallenge(ctx, challenge.ID)
	if !updated.RewardsDistributed || updated.IsActive {
		t.Errorf("expected distributed inactive challenge, got distributed=%v active=%v",
			updated.RewardsDistributed, updated.IsActive)
	}

	if err := svc.DistributeRewards(ctx, challenge.ID); !errors.Is(err, ErrAlreadyDistributed) {
		t.Fatalf("second distribute: expected ErrAlreadyDistributed, got %v", err)
	}
}

func TestDistributeRewardsPaysVerifiedWinners(t *testing.T) {
	svc, escrow, repo, clock := newTestServices(t)
	ctx := context.Background()

	creator := createTestUser(t, repo, "creator", 0)
	alice := createTestUser(t, repo, "alice", 1_000_000)
	bob := createTestUser(t, repo, "bob", 1_000_000)
	carol := createTestUser(t, repo, "carol", 1_000_000)
	challenge := createTestChallenge(t, svc, creator.ID, 1_000_000, 30)

	for _, u := range []*models.User{alice, bob, carol} {
		if err := svc.JoinChallenge(ctx, u.ID, challenge.ID); err != nil {
			t.Fatalf("join failed: %v", err)
		}
	}

	// Alice and carol submit and get verified; bob never submits
	for _, u := range []*models.User{alice, carol} {
		if err := svc.SubmitProof(ctx, u.ID, challenge.ID, "ipfs://proof"); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
		for _, voterID := range []uint{101, 102, 103, 104} {
			if err := svc.Vote(ctx, voterID, challenge.ID, u.ID, true); err != nil {
				t.Fatalf("vote failed: %v", err)
			}
		}
	}

	clock.unix = challenge.EndTime + 1
	if err := svc.DistributeRewards(ctx, challenge.ID); err != nil {
		t.Fatalf("distribute failed: %v", err)
	}

	// Pool 3,000,000: fee 150,000, prize 2,850,000 split two ways
	fees, _ := escrow.GetPlatformFees(ctx)
	if fees != 150_000 {
		t.Errorf("expected platform fees 150000, got %d", fees)
	}
	if got := walletBalance(t, repo, alice.ID); got != 1_425_000 {
		t.Errorf("expected alice payout balance 1425000, got %d", got)
	}
	if got := walletBalance(t, repo, carol.ID); got != 1_425_000 {
		t.Errorf("expected carol payout balance 1425000, got %d", got)
	}
	if got := walletBalance(t, repo, bob.ID); got != 0 {
		t.Errorf("expected no payout to bob, got %d", got)
	}
	custody, _ := escrow.GetChallengeBalance(ctx, challenge.ID)
	if custody != 0 {
		t.Errorf("expected custody zeroed, got %d", custody)
	}
}

func TestCancelChallenge(t *testing.T) {
	svc, escrow, repo, _ := newTestServices(t)
	ctx := context.Background()

	creator := createTestUser(t, repo, "creator", 0)
	alice := createTestUser(t, repo, "alice", 1_000_000)
	bob := createTestUser(t, repo, "bob", 1_000_000)
	challenge := createTestChallenge(t, svc, creator.ID, 1_000_000, 30)

	if err := svc.JoinChallenge(ctx, alice.ID, challenge.ID); err != nil {
		t.Fatalf("alice join failed: %v", err)
	}
	if err := svc.JoinChallenge(ctx, bob.ID, challenge.ID); err != nil {
		t.Fatalf("bob join failed: %v", err)
	}

	// Only the creator may cancel; a rejected attempt changes nothing
	if err := svc.CancelChallenge(ctx, alice.ID, challenge.ID); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("non-creator cancel: expected ErrNotAuthorized, got %v", err)
	}
	updated, _ := svc.GetChallenge(ctx, challenge.ID)
	if !updated.IsActive {
		t.Fatal("expected challenge still active after rejected cancel")
	}
	if got := walletBalance(t, repo, alice.ID); got != 0 {
		t.Fatalf("expected no refund after rejected cancel, got %d", got)
	}

	if err := svc.CancelChallenge(ctx, creator.ID, challenge.ID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	if got := walletBalance(t, repo, alice.ID); got != 1_000_000 {
		t.Errorf("expected alice refunded to 1000000, got %d", got)
	}
	if got := walletBalance(t, repo, bob.ID); got != 1_000_000 {
		t.Errorf("expected bob refunded to 1000000, got %d", got)
	}
	custody, _ := escrow.GetChallengeBalance(ctx, challenge.ID)
	if custody != 0 {
		t.Errorf("expected custody zeroed, got %d", custody)
	}
	updated, _ = svc.GetChallenge(ctx, challenge.ID)
	if updated.IsActive {
		t.Error("expected cancelled challenge inactive")
	}

	if err := svc.CancelChallenge(ctx, creator.ID, challenge.ID); !errors.Is(err, ErrNotActive) {
		t.Fatalf("second cancel: expected ErrNotActive, got %v", err)
	}
}

func TestCancelRefundsInJoinOrder(t *testing.T) {
	svc, escrow, repo, _ := newTestServices(t)
	ctx := context.Background()

	creator := createTestUser(t, repo, "creator", 0)
	users := []*models.User{
		createTestUser(t, repo, "first", 1_000_000),
		createTestUser(t, repo, "second", 1_000_000),
		createTestUser(t, repo, "third", 1_000_000),
	}
	challenge := createTestChallenge(t, svc, creator.ID, 1_000_000, 30)

	for _, u := range users {
		if err := svc.JoinChallenge(ctx, u.ID, challenge.ID); err != nil {
			t.Fatalf("join failed: %v", err)
		}
	}
	if err := svc.CancelChallenge(ctx, creator.ID, challenge.ID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	transactions, err := escrow.GetChallengeTransactions(ctx, challenge.ID)
	if err != nil {
		t.Fatalf("failed to get journal: %v", err)
	}
	var refundees []uint
	for _, tx := range transactions {
		if tx.Type == models.EscrowTransactionTypeRefund {
			refundees = append(refundees, tx.UserID)
		}
	}
	if len(refundees) != 3 {
		t.Fatalf("expected 3 refund entries, got %d", len(refundees))
	}
	for i, u := range users {
		if refundees[i] != u.ID {
			t.Errorf("refund %d: expected user %d, got %d", i, u.ID, refundees[i])
		}
	}
}

func TestChallengeNotFound(t *testing.T) {
	svc, _, repo, _ := newTestServices(t)
	ctx := context.Background()
	alice := createTestUser(t, repo, "alice", 1_000_000)

	if _, err := svc.GetChallenge(ctx, 404); !errors.Is(err, ErrChallengeNotFound) {
		t.Errorf("get: expected ErrChallengeNotFound, got %v", err)
	}
	if err := svc.JoinChallenge(ctx, alice.ID, 404); !errors.Is(err, ErrChallengeNotFound) {
		t.Errorf("join: expected ErrChallengeNotFound, got %v", err)
	}
	if err := svc.SubmitProof(ctx, alice.ID, 404, "ipfs://proof"); !errors.Is(err, ErrChallengeNotFound) {
		t.Errorf("submit: expected ErrChallengeNotFound, got %v", err)
	}
	if err := svc.Vote(ctx, alice.ID, 404, 1, true); !errors.Is(err, ErrChallengeNotFound) {
		t.Errorf("vote: expected ErrChallengeNotFound, got %v", err)
	}
	if err := svc.DistributeRewards(ctx, 404); !errors.Is(err, ErrChallengeNotFound) {
		t.Errorf("distribute: expected ErrChallengeNotFound, got %v", err)
	}
	if err := svc.CancelChallenge(ctx, alice.ID, 404); !errors.Is(err, ErrChallengeNotFound) {
		t.Errorf("cancel: expected ErrChallengeNotFound, got %v", err)
	}
}
