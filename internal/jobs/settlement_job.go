package jobs

import (
	"context"
	"errors"
	"log"
	"time"

	"fitstake/internal/repository"
	"fitstake/internal/services"
)

// SettlementJob periodically distributes rewards for challenges whose end
// time has passed. Distribution is the same operation an external caller
// would invoke; the job just saves winners from having to trigger it.
type SettlementJob struct {
	challengeService *services.ChallengeService
	repo             *repository.Repository
	interval         time.Duration
	stopChan         chan struct{}
}

// NewSettlementJob creates a new settlement job
func NewSettlementJob(challengeService *services.ChallengeService, repo *repository.Repository, interval time.Duration) *SettlementJob {
	return &SettlementJob{
		challengeService: challengeService,
		repo:             repo,
		interval:         interval,
		stopChan:         make(chan struct{}),
	}
}

// Start begins the settlement loop
func (sj *SettlementJob) Start() {
	log.Printf("[SettlementJob] Starting settlement job (interval: %v)", sj.interval)

	ticker := time.NewTicker(sj.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sj.settleEndedChallenges()
		case <-sj.stopChan:
			log.Println("[SettlementJob] Stopping settlement job")
			return
		}
	}
}

// Stop stops the settlement loop
func (sj *SettlementJob) Stop() {
	close(sj.stopChan)
}

// settleEndedChallenges finds ended, undistributed challenges and settles them
func (sj *SettlementJob) settleEndedChallenges() {
	ctx := context.Background()

	challenges, err := sj.repo.ListSettleableChallenges(ctx, time.Now().Unix(), 100)
	if err != nil {
		log.Printf("[SettlementJob] Error fetching settleable challenges: %v", err)
		return
	}

	if len(challenges) == 0 {
		return
	}

	log.Printf("[SettlementJob] Settling %d ended challenges", len(challenges))

	for _, challenge := range challenges {
		err := sj.challengeService.DistributeRewards(ctx, challenge.ID)
		if err != nil {
			// A racing manual distribution or a never-funded challenge is
			// not a job failure; everything else is worth surfacing.
			if errors.Is(err, services.ErrAlreadyDistributed) || errors.Is(err, services.ErrEscrowNotInitialized) {
				continue
			}
			log.Printf("[SettlementJob] Error distributing challenge %d: %v", challenge.ID, err)
		}
	}
}
