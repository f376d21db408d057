package learningValidator

import (
	"lms/middleware"
	"lms/models/learning"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// idParam validates a positive integer path parameter and stores it in Locals
func idParam(param, localKey, label string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := strings.TrimSpace(c.Params(param))
		if raw == "" {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, label+" is required!", nil)
		}

		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid "+label+"!", nil)
		}

		c.Locals(localKey, id)
		return c.Next()
	}
}

func QuestionID() fiber.Handler {
	return idParam("question_id", "questionID", "Question ID")
}

func ProjectID() fiber.Handler {
	return idParam("project_id", "projectID", "Project ID")
}

func LessonID() fiber.Handler {
	return idParam("lesson_id", "lessonID", "Lesson ID")
}

func SubmissionID() fiber.Handler {
	return idParam("id", "submissionID", "Submission ID")
}

func PathID() fiber.Handler {
	return idParam("path_id", "pathID", "Path ID")
}

// BadgeCheck validates the badge type parameter and the scope query
func BadgeCheck() fiber.Handler {
	validTypes := map[string]bool{
		learning.BadgeSpeedrun:      true,
		learning.BadgePerfectionist: true,
		learning.BadgeEarlyBird:     true,
		learning.BadgeOverachiever:  true,
		learning.BadgeConsistent:    true,
	}

	return func(c *fiber.Ctx) error {
		badgeType := strings.ToUpper(strings.TrimSpace(c.Params("type")))
		if !validTypes[badgeType] {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid badge type!", nil)
		}

		scopeRaw := strings.TrimSpace(c.Query("scope"))
		scopeID, err := strconv.Atoi(scopeRaw)
		if err != nil || scopeID <= 0 {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "A valid scope ID is required!", nil)
		}

		c.Locals("badgeType", badgeType)
		c.Locals("scopeID", scopeID)
		return c.Next()
	}
}
