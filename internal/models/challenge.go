package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TokenDecimals is the number of decimal places of the staking token.
// All amounts are stored in base units (smallest currency unit).
const TokenDecimals = 9

// Challenge represents a fitness challenge with an escrowed entry pool
type Challenge struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	CreatorID          uint      `gorm:"not null;index" json:"creator_id"`
	Name               string    `gorm:"size:255;not null" json:"name"`
	Description        string    `gorm:"type:text" json:"description"`
	EntryFee           int64     `gorm:"not null" json:"entry_fee"`
	StartTime          int64     `gorm:"not null" json:"start_time"`
	EndTime            int64     `gorm:"not null" json:"end_time"`
	TotalPool          int64     `gorm:"not null;default:0" json:"total_pool"`
	IsActive           bool      `gorm:"not null;default:true;index" json:"is_active"`
	RewardsDistributed bool      `gorm:"not null;default:false" json:"rewards_distributed"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (Challenge) TableName() string {
	return "challenges"
}

// ChallengeParticipant is a roster entry. The unique index on
// (challenge_id, user_id) is the commit-time guard against double-join.
type ChallengeParticipant struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ChallengeID uint      `gorm:"not null;uniqueIndex:idx_challenge_user" json:"challenge_id"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_challenge_user;index" json:"user_id"`
	JoinOrder   int       `gorm:"not null" json:"join_order"`
	JoinedAt    time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

func (ChallengeParticipant) TableName() string {
	return "challenge_participants"
}

// Submission is a participant's completion proof, at most one per participant
// per challenge. IsVerified is a one-way latch.
type Submission struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	ChallengeID  uint   `gorm:"not null;uniqueIndex:idx_submission_challenge_user" json:"challenge_id"`
	UserID       uint   `gorm:"not null;uniqueIndex:idx_submission_challenge_user" json:"user_id"`
	ProofURI     string `gorm:"size:500" json:"proof_uri"`
	SubmittedAt  int64  `gorm:"not null" json:"submitted_at"`
	VotesFor     int64  `gorm:"not null;default:0" json:"votes_for"`
	VotesAgainst int64  `gorm:"not null;default:0" json:"votes_against"`
	IsVerified   bool   `gorm:"not null;default:false" json:"is_verified"`
}

func (Submission) TableName() string {
	return "submissions"
}

// SubmissionVote records a single ballot. The unique index on
// (submission_id, voter_id) rejects a second ballot at commit time.
type SubmissionVote struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SubmissionID uint      `gorm:"not null;uniqueIndex:idx_submission_voter" json:"submission_id"`
	VoterID      uint      `gorm:"not null;uniqueIndex:idx_submission_voter" json:"voter_id"`
	Approve      bool      `gorm:"not null" json:"approve"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (SubmissionVote) TableName() string {
	return "submission_votes"
}

// CreateChallengeRequest represents a request to create a new challenge
type CreateChallengeRequest struct {
	Name         string `json:"name" binding:"required"`
	Description  string `json:"description"`
	EntryFee     int64  `json:"entry_fee" binding:"gte=0"`
	DurationDays int64  `json:"duration_days" binding:"required,gt=0"`
}

// SubmitProofRequest represents a completion proof submission
type SubmitProofRequest struct {
	ProofURI string `json:"proof_uri" binding:"required"`
}

// VoteRequest represents a peer-verification ballot
type VoteRequest struct {
	ParticipantID uint `json:"participant_id" binding:"required"`
	Approve       bool `json:"approve"`
}

// ChallengeResponse is a challenge in API responses, with amounts in both
// base and display units
type ChallengeResponse struct {
	ID                 uint            `json:"id"`
	CreatorID          uint            `json:"creator_id"`
	Name               string          `json:"name"`
	Description        string          `json:"description"`
	EntryFee           int64           `json:"entry_fee"`
	EntryFeeDisplay    decimal.Decimal `json:"entry_fee_display"`
	StartTime          int64           `json:"start_time"`
	EndTime            int64           `json:"end_time"`
	TotalPool          int64           `json:"total_pool"`
	TotalPoolDisplay   decimal.Decimal `json:"total_pool_display"`
	ParticipantCount   int64           `json:"participant_count"`
	IsActive           bool            `json:"is_active"`
	RewardsDistributed bool            `json:"rewards_distributed"`
}

// SubmissionVotesResponse reports the voting state of a submission
type SubmissionVotesResponse struct {
	ChallengeID   uint  `json:"challenge_id"`
	ParticipantID uint  `json:"participant_id"`
	VotesFor      int64 `json:"votes_for"`
	VotesAgainst  int64 `json:"votes_against"`
	IsVerified    bool  `json:"is_verified"`
}

// DisplayAmount converts base units to display units (e.g. lamports to SOL)
func DisplayAmount(baseUnits int64) decimal.Decimal {
	return decimal.New(baseUnits, -TokenDecimals)
}

// NewChallengeResponse builds the API representation of a challenge
func NewChallengeResponse(c *Challenge, participantCount int64) *ChallengeResponse {
	return &ChallengeResponse{
		ID:                 c.ID,
		CreatorID:          c.CreatorID,
		Name:               c.Name,
		Description:        c.Description,
		EntryFee:           c.EntryFee,
		EntryFeeDisplay:    DisplayAmount(c.EntryFee),
		StartTime:          c.StartTime,
		EndTime:            c.EndTime,
		TotalPool:          c.TotalPool,
		TotalPoolDisplay:   DisplayAmount(c.TotalPool),
		ParticipantCount:   participantCount,
		IsActive:           c.IsActive,
		RewardsDistributed: c.RewardsDistributed,
	}
}
