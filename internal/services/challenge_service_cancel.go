package services

import (
	"context"
	"fmt"
	"log"

	"fitstake/internal/repository"
)

// CancelChallenge terminates an active challenge (creator only) and
// refunds every roster member the fixed entry fee, in join order. The
// refund and the status flip commit atomically; any escrow shortfall
// rolls the whole cancellation back.
func (cs *ChallengeService) CancelChallenge(ctx context.Context, callerID, challengeID uint) error {
	err := cs.repo.Transaction(ctx, func(r *repository.Repository) error {
		challenge, err := getChallenge(ctx, r, challengeID)
		if err != nil {
			return err
		}
		if challenge.CreatorID != callerID {
			return ErrNotAuthorized
		}
		if !challenge.IsActive {
			return ErrNotActive
		}
		if challenge.RewardsDistributed {
			return ErrAlreadyDistributed
		}

		if challenge.EntryFee > 0 {
			participants, err := r.ListParticipants(ctx, challengeID)
			if err != nil {
				return fmt.Errorf("failed to list participants: %w", err)
			}
			roster := make([]uint, 0, len(participants))
			for _, p := range participants {
				roster = append(roster, p.UserID)
			}
			if err := cs.escrow.refund(ctx, r, challengeID, roster, challenge.EntryFee); err != nil {
				return err
			}
		}

		challenge.IsActive = false
		return r.UpdateChallenge(ctx, challenge)
	})
	if err != nil {
		return err
	}

	log.Printf("Challenge %d cancelled by user %d", challengeID, callerID)
	return nil
}
