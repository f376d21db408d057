package learning

import (
	"time"

	"gorm.io/gorm"
)

// GamificationSummary holds per-user XP and streak state, across all courses
type GamificationSummary struct {
	gorm.Model
	UserID           uint       `json:"user_id" gorm:"uniqueIndex;not null"`
	TotalXP          int        `json:"total_xp" gorm:"default:0"`
	CurrentStreak    int        `json:"current_streak" gorm:"default:0"`
	LongestStreak    int        `json:"longest_streak" gorm:"default:0"`
	LastActivityDate *time.Time `json:"last_activity_date"`
}

// DailyActivityLog records one row per user per calendar day. The (user, day)
// uniqueness is the idempotency guard for streak increments.
type DailyActivityLog struct {
	gorm.Model
	UserID            uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_user_activity_day"`
	ActivityDate      time.Time `json:"activity_date" gorm:"not null;uniqueIndex:idx_user_activity_day"`
	XPEarned          int       `json:"xp_earned" gorm:"default:0"`
	QuestionsAnswered int       `json:"questions_answered" gorm:"default:0"`
	CorrectAnswers    int       `json:"correct_answers" gorm:"default:0"`
	FirstActivityAt   time.Time `json:"first_activity_at"`
	LastActivityAt    time.Time `json:"last_activity_at"`
	IsDeleted         bool      `gorm:"default:false"`
}
