package controllers

import (
	"encoding/json"
	"errors"
	"lms/database"
	"lms/middleware"
	"lms/models"
	"lms/progress"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
)

// respondProgressError maps engine sentinel errors to HTTP statuses
func respondProgressError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, progress.ErrNotFound):
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Record not found!", nil)
	case errors.Is(err, progress.ErrAlreadyProcessed):
		// idempotency guard tripped; success with no effect
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Already processed.", nil)
	case errors.Is(err, progress.ErrConcurrencyConflict):
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Conflicting update, please retry!", nil)
	case errors.Is(err, progress.ErrConfiguration):
		return middleware.JsonResponse(c, fiber.StatusUnprocessableEntity, false, "Invalid module configuration!", nil)
	default:
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Something went wrong!", nil)
	}
}

func currentUser(c *fiber.Ctx) (*models.User, error) {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return nil, errors.New("unauthorized")
	}
	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// SubmitAssessmentAnswer scores a learner's answer against the question and
// the deadline tier it fell into
func SubmitAssessmentAnswer(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	questionID := c.Locals("questionID").(int)

	reqData := new(struct {
		Answer string `json:"answer"`
	})
	if err := c.BodyParser(reqData); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
	}
	if reqData.Answer == "" {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Answer is required!", nil)
	}

	payload, _ := json.Marshal(reqData)

	result, err := progress.ScoreAssessment(
		database.Database.Db, time.Now().UTC(),
		user.ID, uint(questionID), datatypes.JSON(payload), reqData.Answer,
	)
	if err != nil {
		return respondProgressError(c, err)
	}

	// Module completion can make new rewards eligible
	if result.ModuleCompleted {
		evaluatePathRewards(user.ID, result.Submission.ModuleID)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Answer submitted!", result)
}

// SubmitProjectWork records a project deliverable with a provisional score
func SubmitProjectWork(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	projectID := c.Locals("projectID").(int)

	reqData := new(struct {
		RepoURL string `json:"repo_url"`
		Notes   string `json:"notes"`
	})
	if err := c.BodyParser(reqData); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
	}
	if reqData.RepoURL == "" {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Repository URL is required!", nil)
	}

	result, err := progress.SubmitProject(
		database.Database.Db, time.Now().UTC(),
		user.ID, uint(projectID), reqData.RepoURL, reqData.Notes,
	)
	if err != nil {
		if errors.Is(err, progress.ErrAlreadyProcessed) {
			return middleware.JsonResponse(c, fiber.StatusConflict, false, "A submission for this project is already pending review!", nil)
		}
		return respondProgressError(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Project submitted!", result)
}

// MarkLessonComplete records a lesson completion, once per user+lesson
func MarkLessonComplete(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	lessonID := c.Locals("lessonID").(int)

	prog, err := progress.CompleteLesson(database.Database.Db, time.Now().UTC(), user.ID, uint(lessonID))
	if err != nil {
		return respondProgressError(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson completed!", prog)
}

// evaluatePathRewards resolves the module's path and runs the reward rules.
// Failures inside are logged by the evaluator and retried on the next
// trigger.
func evaluatePathRewards(userID, moduleID uint) {
	db := database.Database.Db

	var pathID uint
	row := db.Table("modules").Where("id = ?", moduleID).Select("path_id").Row()
	if err := row.Scan(&pathID); err != nil {
		return
	}
	progress.EvaluateRewards(db, time.Now().UTC(), userID, pathID)
}
