package controllers

import (
	"lms/database"
	"lms/middleware"
	"lms/models/learning"
	"time"

	"github.com/gofiber/fiber/v2"
)

// GetPathModules returns the path's modules with the user's unlock state,
// frozen deadlines, and progress counters
func GetPathModules(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	pathID := c.Locals("pathID").(int)
	db := database.Database.Db

	var path learning.Path
	if err := db.Where("id = ? AND is_deleted = ?", pathID, false).First(&path).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Path not found!", nil)
	}

	// Require an enrollment before showing availability
	var enrollment learning.Enrollment
	if err := db.Where("user_id = ? AND path_id = ? AND is_deleted = ?", user.ID, pathID, false).First(&enrollment).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "User not enrolled in this path!", nil)
	}

	var modules []learning.Module
	db.Where("path_id = ? AND is_deleted = ?", pathID, false).Order("order_index asc").Find(&modules)

	type ModuleView struct {
		learning.Module
		IsUnlocked          bool       `json:"is_unlocked"`
		UnlockedAt          *time.Time `json:"unlocked_at"`
		ScheduledUnlockDate *time.Time `json:"scheduled_unlock_date"`
		FirstDeadline       *time.Time `json:"first_deadline"`
		SecondDeadline      *time.Time `json:"second_deadline"`
		ThirdDeadline       *time.Time `json:"third_deadline"`
		ModuleCompleted     bool       `json:"module_completed"`
		TotalPointsEarned   float64    `json:"total_points_earned"`
	}

	result := make([]ModuleView, len(modules))
	for i, module := range modules {
		view := ModuleView{Module: module}

		var avail learning.ModuleAvailability
		if err := db.Where("user_id = ? AND module_id = ? AND is_deleted = ?", user.ID, module.ID, false).First(&avail).Error; err == nil {
			view.IsUnlocked = avail.IsUnlocked
			view.UnlockedAt = avail.UnlockedAt
			view.ScheduledUnlockDate = avail.ScheduledUnlockDate
			view.FirstDeadline = avail.FirstDeadline
			view.SecondDeadline = avail.SecondDeadline
			view.ThirdDeadline = avail.ThirdDeadline
		}

		var prog learning.ModuleProgress
		if err := db.Where("user_id = ? AND module_id = ? AND is_deleted = ?", user.ID, module.ID, false).First(&prog).Error; err == nil {
			view.ModuleCompleted = prog.ModuleCompleted
			view.TotalPointsEarned = prog.TotalPointsEarned
		}

		result[i] = view
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Modules fetched successfully!", fiber.Map{
		"path":    path,
		"modules": result,
	})
}
