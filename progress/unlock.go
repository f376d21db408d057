package progress

import (
	"errors"
	"fmt"
	"lms/models/learning"
	"time"

	"gorm.io/gorm"
)

// UnlockNotification describes a one-time unlock email/webhook to dispatch
// after the unlock transaction committed
type UnlockNotification struct {
	UserID      uint
	ModuleID    uint
	ModuleTitle string
}

// UnlockRunSummary reports one unlock job invocation. Per-item errors are
// collected here; one user's failure never aborts the rest of the run.
type UnlockRunSummary struct {
	EnrollmentsProcessed int                  `json:"enrollments_processed"`
	ModulesUnlocked      int                  `json:"modules_unlocked"`
	Notifications        []UnlockNotification `json:"-"`
	Errors               []string             `json:"errors"`
}

// ProcessModuleUnlocks walks every active enrollment and transitions modules
// from locked to unlocked once their per-user schedule has elapsed. Each
// user+module transition is its own transaction, so an aborted run leaves no
// enrollment half-unlocked, and a re-run (or a delayed, doubled cron fire)
// converges to the same state: already-unlocked rows are skipped and frozen
// deadlines are never recomputed.
func ProcessModuleUnlocks(db *gorm.DB, now time.Time) UnlockRunSummary {
	summary := UnlockRunSummary{}

	var enrollments []learning.Enrollment
	if err := db.
		Where("status = ? AND is_active = ? AND is_deleted = ?", learning.EnrollmentActive, true, false).
		Find(&enrollments).Error; err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("listing enrollments: %v", err))
		return summary
	}

	for _, enrollment := range enrollments {
		summary.EnrollmentsProcessed++

		var modules []learning.Module
		if err := db.
			Where("path_id = ? AND is_deleted = ?", enrollment.PathID, false).
			Order("order_index asc").
			Find(&modules).Error; err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("enrollment %d: listing modules: %v", enrollment.ID, err))
			continue
		}

		for _, module := range modules {
			notification, unlocked, err := processModuleUnlock(db, now, &enrollment, &module)
			if err != nil {
				summary.Errors = append(summary.Errors,
					fmt.Sprintf("user %d module %d: %v", enrollment.UserID, module.ID, err))
				continue
			}
			if unlocked {
				summary.ModulesUnlocked++
			}
			if notification != nil {
				summary.Notifications = append(summary.Notifications, *notification)
			}
		}
	}

	return summary
}

// processModuleUnlock handles one user+module pair atomically
func processModuleUnlock(db *gorm.DB, now time.Time, enrollment *learning.Enrollment, module *learning.Module) (*UnlockNotification, bool, error) {
	var notification *UnlockNotification
	unlocked := false

	err := db.Transaction(func(tx *gorm.DB) error {
		var avail learning.ModuleAvailability
		err := tx.Where("user_id = ? AND module_id = ? AND is_deleted = ?", enrollment.UserID, module.ID, false).
			First(&avail).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			avail = learning.ModuleAvailability{
				UserID:       enrollment.UserID,
				ModuleID:     module.ID,
				EnrollmentID: enrollment.ID,
			}
			if !module.IsAvailableByDefault {
				scheduled := referenceTime(enrollment).AddDate(0, 0, module.UnlockAfterDays)
				avail.ScheduledUnlockDate = &scheduled
			}
			if err := tx.Create(&avail).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					// a concurrent run created it first; nothing lost, the
					// next run picks it up
					return ErrAlreadyProcessed
				}
				return err
			}
		} else if err != nil {
			return err
		}

		// Unlock is a one-way transition; deadlines are frozen with it
		if avail.IsUnlocked {
			return nil
		}

		var unlockBase time.Time
		switch {
		case module.IsAvailableByDefault:
			// available from the moment the enrollment became active
			unlockBase = referenceTime(enrollment)
		case avail.ScheduledUnlockDate != nil && !now.Before(*avail.ScheduledUnlockDate):
			unlockBase = now
		default:
			return nil // not due yet
		}

		avail.IsUnlocked = true
		unlockedAt := unlockBase
		avail.UnlockedAt = &unlockedAt
		avail.FirstDeadline = deadlineFrom(unlockBase, module.FirstDeadlineDays)
		avail.SecondDeadline = deadlineFrom(unlockBase, module.SecondDeadlineDays)
		avail.ThirdDeadline = deadlineFrom(unlockBase, module.ThirdDeadlineDays)

		// email_sent_at set in the same transaction as the unlock write, so
		// a retried run cannot queue the notification twice
		if avail.EmailSentAt == nil {
			sentAt := now
			avail.EmailSentAt = &sentAt
			notification = &UnlockNotification{
				UserID:      enrollment.UserID,
				ModuleID:    module.ID,
				ModuleTitle: module.Title,
			}
		}

		if err := tx.Save(&avail).Error; err != nil {
			return err
		}
		unlocked = true
		return nil
	})
	if errors.Is(err, ErrAlreadyProcessed) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return notification, unlocked, nil
}

// referenceTime is the base for unlock scheduling: started_learning_at when
// the user has begun the course, otherwise enrolled_at
func referenceTime(enrollment *learning.Enrollment) time.Time {
	if enrollment.StartedLearningAt != nil {
		return *enrollment.StartedLearningAt
	}
	return enrollment.EnrolledAt
}

func deadlineFrom(base time.Time, days *int) *time.Time {
	if days == nil {
		return nil
	}
	deadline := base.AddDate(0, 0, *days)
	return &deadline
}

// BootcampRunSummary reports one bootcamp-start job invocation
type BootcampRunSummary struct {
	BootcampsStarted   int      `json:"bootcamps_started"`
	EnrollmentsCreated int      `json:"enrollments_created"`
	Errors             []string `json:"errors"`
}

// ProcessBootcampStarts transitions scheduled bootcamps whose start date has
// passed to in-progress and auto-enrolls their seats. The trigger condition
// is start_date <= now, so a missed run is caught up on the next invocation,
// and the status check plus the per-user existing-enrollment check keep a
// doubled run from enrolling anyone twice.
func ProcessBootcampStarts(db *gorm.DB, now time.Time) BootcampRunSummary {
	summary := BootcampRunSummary{}

	var bootcamps []learning.Bootcamp
	if err := db.
		Where("status = ? AND start_date <= ? AND is_deleted = ?", learning.BootcampScheduled, now, false).
		Find(&bootcamps).Error; err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("listing bootcamps: %v", err))
		return summary
	}

	for _, bootcamp := range bootcamps {
		created, err := startBootcamp(db, now, &bootcamp)
		summary.EnrollmentsCreated += created
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("bootcamp %d: %v", bootcamp.ID, err))
			continue
		}
		summary.BootcampsStarted++
	}

	return summary
}

func startBootcamp(db *gorm.DB, now time.Time, bootcamp *learning.Bootcamp) (int, error) {
	created := 0

	err := db.Transaction(func(tx *gorm.DB) error {
		// Re-check inside the transaction; another invocation may have won
		var current learning.Bootcamp
		if err := lockForUpdate(tx).Where("id = ?", bootcamp.ID).First(&current).Error; err != nil {
			return err
		}
		if current.Status != learning.BootcampScheduled {
			return ErrAlreadyProcessed
		}

		var seats []learning.BootcampSeat
		if err := tx.Where("bootcamp_id = ? AND is_deleted = ?", bootcamp.ID, false).Find(&seats).Error; err != nil {
			return err
		}

		for _, seat := range seats {
			var existing learning.Enrollment
			err := tx.Where("user_id = ? AND course_id = ? AND is_deleted = ?", seat.UserID, bootcamp.CourseID, false).
				First(&existing).Error
			if err == nil {
				continue // already enrolled, never duplicate
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			enrollment := learning.Enrollment{
				UserID:     seat.UserID,
				CourseID:   bootcamp.CourseID,
				PathID:     bootcamp.PathID,
				EnrolledAt: now,
				Status:     learning.EnrollmentActive,
				IsActive:   true,
			}
			if err := tx.Create(&enrollment).Error; err != nil {
				return err
			}
			created++
		}

		return tx.Model(&current).Update("status", learning.BootcampInProgress).Error
	})
	if errors.Is(err, ErrAlreadyProcessed) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return created, nil
}
