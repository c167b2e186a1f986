package services

import "errors"

// Typed failures surfaced by the registry and the escrow ledger. Every
// mutating operation either commits fully or fails with one of these and
// no partial state change.
var (
	ErrChallengeNotFound    = errors.New("challenge not found")
	ErrNotActive            = errors.New("challenge is not active")
	ErrChallengeExpired     = errors.New("challenge has expired")
	ErrAlreadyJoined        = errors.New("participant already joined this challenge")
	ErrNotParticipant       = errors.New("user is not a participant of this challenge")
	ErrAlreadySubmitted     = errors.New("participant already submitted proof")
	ErrNoSubmission         = errors.New("participant has no submission")
	ErrAlreadyVoted         = errors.New("voter already cast a ballot on this submission")
	ErrNotEnded             = errors.New("challenge has not ended yet")
	ErrAlreadyDistributed   = errors.New("rewards already distributed")
	ErrNotAuthorized        = errors.New("caller is not authorized")
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrInvalidDuration      = errors.New("duration must be positive")
	ErrInsufficientFunds    = errors.New("insufficient wallet funds")
	ErrInsufficientBalance  = errors.New("insufficient escrow balance")
	ErrEscrowNotInitialized = errors.New("no escrow account for this challenge")
	ErrUserNotFound         = errors.New("user not found")
)
