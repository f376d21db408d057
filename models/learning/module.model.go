package learning

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Module represents a graded unit within a path. Deadline day offsets are
// optional; a nil offset means that tier does not exist for the module.
type Module struct {
	gorm.Model
	PathID               uint   `json:"path_id" gorm:"index;not null"`
	Title                string `json:"title"`
	Description          string `json:"description"`
	OrderIndex           int    `json:"order_index" gorm:"default:0"` // Module order in path
	UnlockAfterDays      int    `json:"unlock_after_days" gorm:"default:0"`
	IsAvailableByDefault bool   `json:"is_available_by_default" gorm:"default:false"`
	FirstDeadlineDays    *int   `json:"first_deadline_days"`
	SecondDeadlineDays   *int   `json:"second_deadline_days"`
	ThirdDeadlineDays    *int   `json:"third_deadline_days"`
	IsDeleted            bool   `gorm:"default:false"`
}

// Lesson represents non-graded content within a module
type Lesson struct {
	gorm.Model
	ModuleID    uint   `json:"module_id" gorm:"index;not null"`
	Title       string `json:"title"`
	TextContent string `json:"text_content" gorm:"type:text"`
	VideoURL    string `json:"video_url"`
	OrderIndex  int    `json:"order_index" gorm:"default:0"`
	IsPublished bool   `json:"is_published" gorm:"default:false"`
	IsDeleted   bool   `gorm:"default:false"`
}

// AssessmentQuestion represents a graded question within a module
type AssessmentQuestion struct {
	gorm.Model
	ModuleID   uint           `json:"module_id" gorm:"index;not null"`
	Prompt     string         `json:"prompt" gorm:"type:text"`
	Options    datatypes.JSON `json:"options"` // optional answer choices
	Answer     string         `json:"-"`       // expected answer, never serialized
	Points     int            `json:"points" gorm:"default:10"`
	OrderIndex int            `json:"order_index" gorm:"default:0"`
	IsDeleted  bool           `gorm:"default:false"`
}

// Project represents a mentor-reviewed deliverable within a module
type Project struct {
	gorm.Model
	ModuleID    uint   `json:"module_id" gorm:"index;not null"`
	Title       string `json:"title"`
	Description string `json:"description" gorm:"type:text"`
	BaseWeight  int    `json:"base_weight" gorm:"default:50"`
	OrderIndex  int    `json:"order_index" gorm:"default:0"`
	IsDeleted   bool   `gorm:"default:false"`
}
