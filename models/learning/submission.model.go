package learning

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Deadline tiers
const (
	DeadlineFirst        = "FIRST_DEADLINE"
	DeadlineSecond       = "SECOND_DEADLINE"
	DeadlineLate         = "LATE"
	DeadlineNotSubmitted = "NOT_SUBMITTED"
)

// Project review states. Points are mutable while SUBMITTED or IN_REVIEW and
// frozen once APPROVED or REJECTED.
const (
	ProjectSubmitted = "SUBMITTED"
	ProjectInReview  = "IN_REVIEW"
	ProjectApproved  = "APPROVED"
	ProjectRejected  = "REJECTED"
)

// AssessmentSubmission is a learner's answer to an assessment question,
// scored atomically at creation
type AssessmentSubmission struct {
	gorm.Model
	UserID         uint           `json:"user_id" gorm:"index;not null"`
	ModuleID       uint           `json:"module_id" gorm:"index;not null"`
	QuestionID     uint           `json:"question_id" gorm:"index;not null"`
	Answer         datatypes.JSON `json:"answer"`
	SubmittedAt    time.Time      `json:"submitted_at"`
	IsCorrect      bool           `json:"is_correct" gorm:"default:false"`
	DeadlineStatus string         `json:"deadline_status" gorm:"default:'NOT_SUBMITTED'"`
	PointsEarned   float64        `json:"points_earned" gorm:"default:0"`
	IsDeleted      bool           `gorm:"default:false"`
}

// ProjectSubmission is a learner's project deliverable. Scored provisionally
// at creation and finalized on the reviewer's decision.
type ProjectSubmission struct {
	gorm.Model
	UserID         uint       `json:"user_id" gorm:"index;not null"`
	ModuleID       uint       `json:"module_id" gorm:"index;not null"`
	ProjectID      uint       `json:"project_id" gorm:"index;not null"`
	RepoURL        string     `json:"repo_url"`
	Notes          string     `json:"notes" gorm:"type:text"`
	SubmittedAt    time.Time  `json:"submitted_at"`
	Status         string     `json:"status" gorm:"default:'SUBMITTED'"` // SUBMITTED, IN_REVIEW, APPROVED, REJECTED
	DeadlineStatus string     `json:"deadline_status" gorm:"default:'NOT_SUBMITTED'"`
	PointsEarned   float64    `json:"points_earned" gorm:"default:0"`
	ReviewerID     *uint      `json:"reviewer_id"`
	Feedback       string     `json:"feedback" gorm:"type:text"`
	ReviewedAt     *time.Time `json:"reviewed_at"`
	IsDeleted      bool       `gorm:"default:false"`
}

// LessonCompletion marks a lesson as completed by a user, at most once
type LessonCompletion struct {
	gorm.Model
	UserID    uint `json:"user_id" gorm:"not null;uniqueIndex:idx_user_lesson"`
	LessonID  uint `json:"lesson_id" gorm:"not null;uniqueIndex:idx_user_lesson"`
	ModuleID  uint `json:"module_id" gorm:"index;not null"`
	IsDeleted bool `gorm:"default:false"`
}
