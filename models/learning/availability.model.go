package learning

import (
	"time"

	"gorm.io/gorm"
)

// ModuleAvailability is the per-user unlock state of a module. Created lazily
// the first time the unlock job processes the user's enrollment for that
// module. Deadlines are frozen once IsUnlocked is set; later changes to the
// module configuration never alter a learner's attempt window.
type ModuleAvailability struct {
	gorm.Model
	UserID              uint       `json:"user_id" gorm:"not null;uniqueIndex:idx_user_module_avail"`
	ModuleID            uint       `json:"module_id" gorm:"not null;uniqueIndex:idx_user_module_avail"`
	EnrollmentID        uint       `json:"enrollment_id" gorm:"index;not null"`
	IsUnlocked          bool       `json:"is_unlocked" gorm:"default:false"`
	UnlockedAt          *time.Time `json:"unlocked_at"`
	ScheduledUnlockDate *time.Time `json:"scheduled_unlock_date"`
	FirstDeadline       *time.Time `json:"first_deadline"`
	SecondDeadline      *time.Time `json:"second_deadline"`
	ThirdDeadline       *time.Time `json:"third_deadline"`
	EmailSentAt         *time.Time `json:"email_sent_at"`
	IsDeleted           bool       `gorm:"default:false"`
}
