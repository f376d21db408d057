package utils

import (
	"lms/config"
	"lms/database"
	"lms/models"
	"lms/progress"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// InitializeUnlockScheduler sets up the daily module unlock job
func InitializeUnlockScheduler() {
	log.Println("[UNLOCK-SCHEDULER] Initializing unlock scheduler...")

	c := cron.New(cron.WithLocation(time.UTC))

	// Runs daily at a fixed UTC hour. The job tolerates delayed or doubled
	// invocations; every transition re-checks state before writing.
	c.AddFunc(config.AppConfig.UnlockCronSpec, func() {
		log.Println("[UNLOCK-SCHEDULER] Running daily unlock check...")
		RunUnlockJob(time.Now().UTC())
	})

	c.Start()
	log.Printf("[UNLOCK-SCHEDULER] Unlock scheduler started - spec %q (UTC)", config.AppConfig.UnlockCronSpec)
}

// RunUnlockJob runs bootcamp starts first so fresh enrollments get their
// modules processed in the same invocation, then the unlock pass, then
// dispatches the one-time notifications the unlock pass queued.
func RunUnlockJob(now time.Time) (progress.BootcampRunSummary, progress.UnlockRunSummary) {
	db := database.Database.Db

	bootcamps := progress.ProcessBootcampStarts(db, now)
	if bootcamps.BootcampsStarted > 0 || len(bootcamps.Errors) > 0 {
		log.Printf("[UNLOCK-SCHEDULER] Bootcamps started: %d, enrollments created: %d, errors: %d",
			bootcamps.BootcampsStarted, bootcamps.EnrollmentsCreated, len(bootcamps.Errors))
	}

	summary := progress.ProcessModuleUnlocks(db, now)
	log.Printf("[UNLOCK-SCHEDULER] Enrollments processed: %d, modules unlocked: %d, errors: %d",
		summary.EnrollmentsProcessed, summary.ModulesUnlocked, len(summary.Errors))
	for _, errMsg := range summary.Errors {
		log.Printf("[UNLOCK-SCHEDULER] %s", errMsg)
	}

	for _, n := range summary.Notifications {
		var user models.User
		if err := db.Where("id = ? AND is_deleted = ?", n.UserID, false).First(&user).Error; err != nil {
			log.Printf("[UNLOCK-SCHEDULER] Error fetching user %d for notification: %v", n.UserID, err)
			continue
		}
		SendModuleUnlockedEmail(user.Email, user.Name, n.ModuleTitle)
		NotifyModuleUnlocked(n.UserID, n.ModuleID, n.ModuleTitle)
	}

	return bootcamps, summary
}
