package learning

import (
	"time"

	"gorm.io/gorm"
)

// Badge types
const (
	BadgeSpeedrun      = "SPEEDRUN"
	BadgePerfectionist = "PERFECTIONIST"
	BadgeEarlyBird     = "EARLY_BIRD"
	BadgeOverachiever  = "OVERACHIEVER"
	BadgeConsistent    = "CONSISTENT"
)

// Badge is awarded at most once per (user, type, scope). ScopeID is the path,
// module, or course the badge was evaluated against, depending on the type.
type Badge struct {
	gorm.Model
	UserID      uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_user_badge_scope"`
	BadgeType   string    `json:"badge_type" gorm:"not null;uniqueIndex:idx_user_badge_scope"`
	ScopeID     uint      `json:"scope_id" gorm:"not null;uniqueIndex:idx_user_badge_scope"`
	Description string    `json:"description"`
	AwardedAt   time.Time `json:"awarded_at"`
	IsDeleted   bool      `gorm:"default:false"`
}

// Certificate is issued at most once per (user, path)
type Certificate struct {
	gorm.Model
	UserID            uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_user_path_cert"`
	PathID            uint      `json:"path_id" gorm:"not null;uniqueIndex:idx_user_path_cert"`
	CertificateNumber string    `json:"certificate_number" gorm:"unique"`
	CertificateURL    string    `json:"certificate_url"`
	IsPublic          bool      `json:"is_public" gorm:"default:true"`
	IssuedAt          time.Time `json:"issued_at"`
	IsDeleted         bool      `gorm:"default:false"`
}
