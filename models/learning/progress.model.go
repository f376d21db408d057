package learning

import (
	"time"

	"gorm.io/gorm"
)

// ModuleProgress caches per-user per-module completion counters. It is
// derived state: every value must equal what a recount of the submission log
// would produce, so it is only ever written in the same transaction as the
// submission it reflects.
type ModuleProgress struct {
	gorm.Model
	UserID            uint       `json:"user_id" gorm:"not null;uniqueIndex:idx_user_module_progress"`
	ModuleID          uint       `json:"module_id" gorm:"not null;uniqueIndex:idx_user_module_progress"`
	LessonsCompleted  int        `json:"lessons_completed" gorm:"default:0"`
	AssessmentsPassed int        `json:"assessments_passed" gorm:"default:0"`
	ProjectsApproved  int        `json:"projects_approved" gorm:"default:0"`
	TotalPointsEarned float64    `json:"total_points_earned" gorm:"default:0"`
	ModuleCompleted   bool       `json:"module_completed" gorm:"default:false"`
	CompletedAt       *time.Time `json:"completed_at"`
	IsDeleted         bool       `gorm:"default:false"`
}
