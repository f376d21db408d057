package controllers

import (
	"lms/database"
	"lms/middleware"
	"lms/progress"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// GetRewards returns the user's points, badges, and certificates, optionally
// scoped to one course
func GetRewards(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var courseID *uint
	if raw := c.Query("course_id"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid course ID!", nil)
		}
		id := uint(parsed)
		courseID = &id
	}

	summary, err := progress.GetRewardsSummary(database.Database.Db, user.ID, courseID)
	if err != nil {
		return respondProgressError(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Rewards fetched successfully!", summary)
}

// CheckBadge is the read-only badge eligibility query
func CheckBadge(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	badgeType := c.Locals("badgeType").(string)
	scopeID := c.Locals("scopeID").(int)

	eligible, reason, err := progress.CheckBadgeEligibility(database.Database.Db, user.ID, badgeType, uint(scopeID))
	if err != nil {
		return respondProgressError(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Eligibility checked!", fiber.Map{
		"badge_type": badgeType,
		"scope_id":   scopeID,
		"eligible":   eligible,
		"reason":     reason,
	})
}

// CheckCertificate is the read-only certificate eligibility query
func CheckCertificate(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	pathID := c.Locals("pathID").(int)

	eligible, reason, err := progress.CheckCertificateEligibility(database.Database.Db, user.ID, uint(pathID))
	if err != nil {
		return respondProgressError(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Eligibility checked!", fiber.Map{
		"path_id":  pathID,
		"eligible": eligible,
		"reason":   reason,
	})
}
