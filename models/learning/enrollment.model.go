package learning

import (
	"time"

	"gorm.io/gorm"
)

// Enrollment statuses
const (
	EnrollmentPendingPayment = "PENDING_PAYMENT"
	EnrollmentActive         = "ACTIVE"
	EnrollmentCancelled      = "CANCELLED"
)

// Enrollment tracks a user's enrollment in a course path. StartedLearningAt is
// set once, on the user's first interaction with any module content.
type Enrollment struct {
	gorm.Model
	UserID            uint       `json:"user_id" gorm:"index;not null"`
	CourseID          uint       `json:"course_id" gorm:"index;not null"`
	PathID            uint       `json:"path_id" gorm:"index;not null"`
	EnrolledAt        time.Time  `json:"enrolled_at"`
	StartedLearningAt *time.Time `json:"started_learning_at"`
	Status            string     `json:"status" gorm:"default:'ACTIVE'"` // PENDING_PAYMENT, ACTIVE, CANCELLED
	IsActive          bool       `json:"is_active" gorm:"default:true"`
	IsDeleted         bool       `gorm:"default:false"`
}

// Bootcamp statuses
const (
	BootcampScheduled  = "SCHEDULED"
	BootcampInProgress = "IN_PROGRESS"
	BootcampDone       = "DONE"
)

// Bootcamp is a time-bound program that auto-enrolls its seats into a course
// path when it starts
type Bootcamp struct {
	gorm.Model
	CourseID  uint      `json:"course_id" gorm:"index;not null"`
	PathID    uint      `json:"path_id" gorm:"index;not null"`
	Title     string    `json:"title"`
	StartDate time.Time `json:"start_date"`
	Status    string    `json:"status" gorm:"default:'SCHEDULED'"` // SCHEDULED, IN_PROGRESS, DONE
	IsDeleted bool      `gorm:"default:false"`
}

// BootcampSeat reserves a place for a user in a bootcamp
type BootcampSeat struct {
	gorm.Model
	BootcampID uint `json:"bootcamp_id" gorm:"index;not null"`
	UserID     uint `json:"user_id" gorm:"index;not null"`
	IsDeleted  bool `gorm:"default:false"`
}
