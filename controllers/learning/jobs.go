package controllers

import (
	"lms/database"
	"lms/middleware"
	"lms/progress"
	"lms/utils"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RunUnlockJob triggers the unlock pass outside the cron schedule and
// returns the run summary. Safe to call at any time; the job is idempotent.
func RunUnlockJob(c *fiber.Ctx) error {
	bootcamps, unlocks := utils.RunUnlockJob(time.Now().UTC())

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Unlock job completed!", fiber.Map{
		"bootcamps": bootcamps,
		"unlocks":   unlocks,
	})
}

// ReconcileProgress recomputes one user+module progress row from the
// submission log
func ReconcileProgress(c *fiber.Ctx) error {
	reqData := new(struct {
		UserID   uint `json:"user_id"`
		ModuleID uint `json:"module_id"`
	})
	if err := c.BodyParser(reqData); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
	}
	if reqData.UserID == 0 || reqData.ModuleID == 0 {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "user_id and module_id are required!", nil)
	}

	prog, err := progress.ReconcileModuleProgress(database.Database.Db, time.Now().UTC(), reqData.UserID, reqData.ModuleID)
	if err != nil {
		return respondProgressError(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Progress reconciled!", prog)
}
