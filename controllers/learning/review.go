package controllers

import (
	"errors"
	"lms/database"
	"lms/middleware"
	"lms/progress"
	"time"

	"github.com/gofiber/fiber/v2"
)

// StartReview moves a project submission into review
func StartReview(c *fiber.Ctx) error {
	reviewer, err := currentUser(c)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	submissionID := c.Locals("submissionID").(int)

	submission, err := progress.StartProjectReview(database.Database.Db, time.Now().UTC(), reviewer.ID, uint(submissionID))
	if err != nil {
		if errors.Is(err, progress.ErrAlreadyProcessed) {
			return middleware.JsonResponse(c, fiber.StatusConflict, false, "Submission is not awaiting review!", nil)
		}
		return respondProgressError(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Review started!", submission)
}

// ApproveSubmission finalizes a project submission, keeping its provisional
// score
func ApproveSubmission(c *fiber.Ctx) error {
	reviewer, err := currentUser(c)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	submissionID := c.Locals("submissionID").(int)

	result, err := progress.ApproveProject(database.Database.Db, time.Now().UTC(), reviewer.ID, uint(submissionID))
	if err != nil {
		if errors.Is(err, progress.ErrAlreadyProcessed) {
			return middleware.JsonResponse(c, fiber.StatusConflict, false, "Submission already decided!", nil)
		}
		return respondProgressError(c, err)
	}

	if result.ModuleCompleted {
		evaluatePathRewards(result.Submission.UserID, result.Submission.ModuleID)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Submission approved!", result)
}

// RejectSubmission finalizes a project submission with zero points and
// reviewer feedback
func RejectSubmission(c *fiber.Ctx) error {
	reviewer, err := currentUser(c)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	submissionID := c.Locals("submissionID").(int)

	reqData := new(struct {
		Feedback string `json:"feedback"`
	})
	if err := c.BodyParser(reqData); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
	}
	if reqData.Feedback == "" {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Feedback is required when rejecting!", nil)
	}

	result, err := progress.RejectProject(database.Database.Db, time.Now().UTC(), reviewer.ID, uint(submissionID), reqData.Feedback)
	if err != nil {
		if errors.Is(err, progress.ErrAlreadyProcessed) {
			return middleware.JsonResponse(c, fiber.StatusConflict, false, "Submission already decided!", nil)
		}
		return respondProgressError(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Submission rejected!", result)
}
