package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"fitstake/internal/models"
	"fitstake/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const secondsPerDay = 86400

// ChallengeService owns the challenge lifecycle: roster, submissions,
// peer voting and the terminal transitions. All fund movement is delegated
// to the escrow ledger inside the same transaction, so a failed deposit or
// payout unwinds the registry-side mutation with it.
type ChallengeService struct {
	repo               *repository.Repository
	escrow             *EscrowService
	verificationMargin int64
	now                func() time.Time
}

func NewChallengeService(repo *repository.Repository, escrow *EscrowService, verificationMargin int64) *ChallengeService {
	return &ChallengeService{
		repo:               repo,
		escrow:             escrow,
		verificationMargin: verificationMargin,
		now:                time.Now,
	}
}

// CreateChallenge creates a new challenge with a fixed time window. The
// end time is derived once at creation and never mutated.
func (cs *ChallengeService) CreateChallenge(ctx context.Context, creatorID uint, req *models.CreateChallengeRequest) (*models.Challenge, error) {
	if req.EntryFee < 0 {
		return nil, ErrInvalidAmount
	}
	if req.DurationDays <= 0 {
		return nil, ErrInvalidDuration
	}

	startTime := cs.now().Unix()
	challenge := &models.Challenge{
		CreatorID:   creatorID,
		Name:        req.Name,
		Description: req.Description,
		EntryFee:    req.EntryFee,
		StartTime:   startTime,
		EndTime:     startTime + req.DurationDays*secondsPerDay,
		TotalPool:   0,
		IsActive:    true,
	}

	if err := cs.repo.CreateChallenge(ctx, challenge); err != nil {
		return nil, fmt.Errorf("failed to create challenge: %w", err)
	}

	log.Printf("Challenge %d created by user %d: fee=%d ends=%d", challenge.ID, creatorID, challenge.EntryFee, challenge.EndTime)

	return challenge, nil
}

// JoinChallenge adds a participant to the roster and escrows the entry
// fee. Deposit and roster mutation commit atomically; a failed deposit
// leaves no roster change.
func (cs *ChallengeService) JoinChallenge(ctx context.Context, userID, challengeID uint) error {
	err := cs.repo.Transaction(ctx, func(r *repository.Repository) error {
		challenge, err := getChallenge(ctx, r, challengeID)
		if err != nil {
			return err
		}
		if !challenge.IsActive {
			return ErrNotActive
		}
		if cs.now().Unix() >= challenge.EndTime {
			return ErrChallengeExpired
		}

		joined, err := r.IsParticipant(ctx, challengeID, userID)
		if err != nil {
			return fmt.Errorf("failed to check roster: %w", err)
		}
		if joined {
			return ErrAlreadyJoined
		}

		// Zero-fee challenges carry no custody; the escrow rejects
		// non-positive deposits.
		if challenge.EntryFee > 0 {
			if err := cs.escrow.deposit(ctx, r, userID, challengeID, challenge.EntryFee); err != nil {
				return err
			}
		}

		count, err := r.CountParticipants(ctx, challengeID)
		if err != nil {
			return fmt.Errorf("failed to count participants: %w", err)
		}

		participant := &models.ChallengeParticipant{
			ChallengeID: challengeID,
			UserID:      userID,
			JoinOrder:   int(count) + 1,
		}
		if err := r.AddParticipant(ctx, participant); err != nil {
			// Commit-time guard: the unique roster index catches a
			// racing join that slipped past the check above.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyJoined
			}
			return fmt.Errorf("failed to add participant: %w", err)
		}

		return r.IncrementChallengePool(ctx, challengeID, challenge.EntryFee)
	})
	if err != nil {
		return err
	}

	log.Printf("User %d joined challenge %d", userID, challengeID)
	return nil
}

// SubmitProof records a participant's completion proof. There is no
// time-window restriction: submissions after expiry are accepted.
func (cs *ChallengeService) SubmitProof(ctx context.Context, userID, challengeID uint, proofURI string) error {
	err := cs.repo.Transaction(ctx, func(r *repository.Repository) error {
		if _, err := getChallenge(ctx, r, challengeID); err != nil {
			return err
		}

		joined, err := r.IsParticipant(ctx, challengeID, userID)
		if err != nil {
			return fmt.Errorf("failed to check roster: %w", err)
		}
		if !joined {
			return ErrNotParticipant
		}

		if _, err := r.GetSubmission(ctx, challengeID, userID); err == nil {
			return ErrAlreadySubmitted
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check submission: %w", err)
		}

		submission := &models.Submission{
			ChallengeID: challengeID,
			UserID:      userID,
			ProofURI:    proofURI,
			SubmittedAt: cs.now().Unix(),
		}
		if err := r.CreateSubmission(ctx, submission); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadySubmitted
			}
			return fmt.Errorf("failed to create submission: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("User %d submitted proof for challenge %d", userID, challengeID)
	return nil
}

// Vote records a peer-verification ballot on a participant's submission.
// Voting is open to any authenticated identity: neither roster membership
// nor self-voting is restricted. A submission becomes verified the first
// time votes_for exceeds votes_against by more than the margin, and stays
// verified regardless of later ballots.
func (cs *ChallengeService) Vote(ctx context.Context, voterID, challengeID, participantID uint, approve bool) error {
	err := cs.repo.Transaction(ctx, func(r *repository.Repository) error {
		if _, err := getChallenge(ctx, r, challengeID); err != nil {
			return err
		}

		submission, err := r.GetSubmission(ctx, challengeID, participantID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoSubmission
		}
		if err != nil {
			return fmt.Errorf("failed to load submission: %w", err)
		}

		vote := &models.SubmissionVote{
			ID:           uuid.New(),
			SubmissionID: submission.ID,
			VoterID:      voterID,
			Approve:      approve,
		}
		if err := r.CreateVote(ctx, vote); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyVoted
			}
			return fmt.Errorf("failed to record vote: %w", err)
		}

		if err := r.RecordBallot(ctx, submission.ID, approve); err != nil {
			return fmt.Errorf("failed to update tally: %w", err)
		}

		return r.LatchVerification(ctx, submission.ID, cs.verificationMargin)
	})
	if err != nil {
		return err
	}

	log.Printf("User %d voted on challenge %d submission of user %d (approve=%v)", voterID, challengeID, participantID, approve)
	return nil
}

// ---------------------------------------------------------------------------
// Read-only queries
// ---------------------------------------------------------------------------

// GetChallenge retrieves a challenge by id
func (cs *ChallengeService) GetChallenge(ctx context.Context, challengeID uint) (*models.Challenge, error) {
	challenge, err := cs.repo.GetChallengeByID(ctx, challengeID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrChallengeNotFound
	}
	if err != nil {
		return nil, err
	}
	return challenge, nil
}

// GetChallengeDetails returns the API representation with participant count
func (cs *ChallengeService) GetChallengeDetails(ctx context.Context, challengeID uint) (*models.ChallengeResponse, error) {
	challenge, err := cs.GetChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	count, err := cs.repo.CountParticipants(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	return models.NewChallengeResponse(challenge, count), nil
}

// GetParticipantCount returns the roster size
func (cs *ChallengeService) GetParticipantCount(ctx context.Context, challengeID uint) (int64, error) {
	if _, err := cs.GetChallenge(ctx, challengeID); err != nil {
		return 0, err
	}
	return cs.repo.CountParticipants(ctx, challengeID)
}

// IsParticipant reports whether a user is on the roster
func (cs *ChallengeService) IsParticipant(ctx context.Context, challengeID, userID uint) (bool, error) {
	if _, err := cs.GetChallenge(ctx, challengeID); err != nil {
		return false, err
	}
	return cs.repo.IsParticipant(ctx, challengeID, userID)
}

// HasSubmitted reports whether a participant has a submission
func (cs *ChallengeService) HasSubmitted(ctx context.Context, challengeID, userID uint) (bool, error) {
	if _, err := cs.GetChallenge(ctx, challengeID); err != nil {
		return false, err
	}
	_, err := cs.repo.GetSubmission(ctx, challengeID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetSubmissionVotes returns the voting state of a participant's submission
func (cs *ChallengeService) GetSubmissionVotes(ctx context.Context, challengeID, participantID uint) (*models.SubmissionVotesResponse, error) {
	if _, err := cs.GetChallenge(ctx, challengeID); err != nil {
		return nil, err
	}
	submission, err := cs.repo.GetSubmission(ctx, challengeID, participantID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoSubmission
	}
	if err != nil {
		return nil, err
	}
	return &models.SubmissionVotesResponse{
		ChallengeID:   challengeID,
		ParticipantID: participantID,
		VotesFor:      submission.VotesFor,
		VotesAgainst:  submission.VotesAgainst,
		IsVerified:    submission.IsVerified,
	}, nil
}

// ListChallenges returns challenges for browsing, newest first
func (cs *ChallengeService) ListChallenges(ctx context.Context, limit, offset int) ([]*models.Challenge, error) {
	return cs.repo.ListChallenges(ctx, limit, offset)
}

// ListParticipants returns the roster in join order
func (cs *ChallengeService) ListParticipants(ctx context.Context, challengeID uint) ([]*models.ChallengeParticipant, error) {
	if _, err := cs.GetChallenge(ctx, challengeID); err != nil {
		return nil, err
	}
	return cs.repo.ListParticipants(ctx, challengeID)
}

// ListSubmissions returns all submissions for a challenge
func (cs *ChallengeService) ListSubmissions(ctx context.Context, challengeID uint) ([]*models.Submission, error) {
	if _, err := cs.GetChallenge(ctx, challengeID); err != nil {
		return nil, err
	}
	return cs.repo.ListSubmissions(ctx, challengeID)
}

// getChallenge loads a challenge inside a transaction, mapping a missing
// row to the typed not-found failure
func getChallenge(ctx context.Context, r *repository.Repository, challengeID uint) (*models.Challenge, error) {
	challenge, err := r.GetChallengeByID(ctx, challengeID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrChallengeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load challenge: %w", err)
	}
	return challenge, nil
}
