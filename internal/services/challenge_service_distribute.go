package services

import (
	"context"
	"fmt"
	"log"

	"fitstake/internal/repository"
)

// DistributeRewards settles an ended challenge: roster members with a
// verified submission split the prize pool, the platform takes its fee,
// and the challenge transitions irreversibly to distributed/inactive.
// The transition happens even when no submission was verified; the prize
// pool then stays in custody.
func (cs *ChallengeService) DistributeRewards(ctx context.Context, challengeID uint) error {
	var winnerCount int
	err := cs.repo.Transaction(ctx, func(r *repository.Repository) error {
		challenge, err := getChallenge(ctx, r, challengeID)
		if err != nil {
			return err
		}
		if cs.now().Unix() <= challenge.EndTime {
			return ErrNotEnded
		}
		if challenge.RewardsDistributed {
			return ErrAlreadyDistributed
		}

		winners, err := cs.verifiedWinners(ctx, r, challengeID)
		if err != nil {
			return err
		}
		winnerCount = len(winners)

		if err := cs.escrow.distribute(ctx, r, challengeID, winners, challenge.TotalPool); err != nil {
			return err
		}

		challenge.RewardsDistributed = true
		challenge.IsActive = false
		return r.UpdateChallenge(ctx, challenge)
	})
	if err != nil {
		return err
	}

	log.Printf("Challenge %d distributed to %d winners", challengeID, winnerCount)
	return nil
}

// verifiedWinners returns roster members with a verified submission, in
// join order. Roster uniqueness guarantees no identity appears twice.
func (cs *ChallengeService) verifiedWinners(ctx context.Context, r *repository.Repository, challengeID uint) ([]uint, error) {
	participants, err := r.ListParticipants(ctx, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	submissions, err := r.ListSubmissions(ctx, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	verified := make(map[uint]bool, len(submissions))
	for _, s := range submissions {
		if s.IsVerified {
			verified[s.UserID] = true
		}
	}

	var winners []uint
	for _, p := range participants {
		if verified[p.UserID] {
			winners = append(winners, p.UserID)
		}
	}
	return winners, nil
}
