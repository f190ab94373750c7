// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"

	"league-scoring-system/models"
)

// A finalize claim older than this on a still-running match means the
// claiming device died mid-finalization. Clearing it lets a retry re-elect.
const staleClaimAge = 2 * time.Minute

// StartRecoverySweep runs the stale-claim sweep once a minute.
func StartRecoverySweep(db *gorm.DB) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			cutoff := time.Now().UTC().Add(-staleClaimAge)
			res := db.Model(&models.Match{}).
				Where("status = ? AND finalize_claimed_at IS NOT NULL AND finalize_claimed_at < ?",
					models.MatchStatusInProgress, cutoff).
				Updates(map[string]any{
					"finalize_claimed_by": nil,
					"finalize_claimed_at": nil,
				})
			if res.Error != nil {
				log.Printf("[SWEEP] DB error: %v", res.Error)
				return
			}
			if res.RowsAffected > 0 {
				log.Printf("[SWEEP] Cleared %d stale finalize claim(s)", res.RowsAffected)
			}
		}),
	)
}
