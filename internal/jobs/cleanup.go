package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/duetapp/pairing-server-go/internal/repository"
)

// CleanupJob periodically prunes expired unredeemed pairing codes. Expiry is
// enforced at redemption time regardless; this keeps the table from
// accumulating dead rows.
type CleanupJob struct {
	partnershipRepo repository.PartnershipRepository
	interval        time.Duration
	done            chan struct{}
}

func NewCleanupJob(partnershipRepo repository.PartnershipRepository, interval time.Duration) *CleanupJob {
	return &CleanupJob{
		partnershipRepo: partnershipRepo,
		interval:        interval,
		done:            make(chan struct{}),
	}
}

func (j *CleanupJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("cleanup job started")
}

func (j *CleanupJob) Stop() {
	close(j.done)
	log.Info().Msg("cleanup job stopped")
}

func (j *CleanupJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.cleanup()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.cleanup()
		}
	}
}

func (j *CleanupJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := j.partnershipRepo.DeleteExpired(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to cleanup expired pairing codes")
	} else if count > 0 {
		log.Info().Int64("count", count).Msg("cleaned up expired pairing codes")
	}
}
