package learningRoutes

import (
	controllers "lms/controllers/learning"
	"lms/middleware"
	validators "lms/validators/learning"

	"github.com/gofiber/fiber/v2"
)

// SetupLearningRoutes sets up the learner-facing progress and reward routes
func SetupLearningRoutes(app *fiber.App) {
	learningGroup := app.Group("/learning", middleware.JWTMiddleware)

	// Module availability and deadlines
	learningGroup.Get("/path/:path_id/modules", validators.PathID(), controllers.GetPathModules)

	// Submissions
	learningGroup.Post("/assessment/:question_id/submit", validators.QuestionID(), controllers.SubmitAssessmentAnswer)
	learningGroup.Post("/project/:project_id/submit", validators.ProjectID(), controllers.SubmitProjectWork)
	learningGroup.Post("/lesson/:lesson_id/complete", validators.LessonID(), controllers.MarkLessonComplete)

	// Rewards
	learningGroup.Get("/rewards", controllers.GetRewards)
	learningGroup.Get("/badges/:type/eligibility", validators.BadgeCheck(), controllers.CheckBadge)
	learningGroup.Get("/path/:path_id/certificate/eligibility", validators.PathID(), controllers.CheckCertificate)

	// Mentor review
	reviewGroup := app.Group("/review", middleware.JWTMiddleware, middleware.MentorOnly)
	reviewGroup.Put("/submission/:id/start", validators.SubmissionID(), controllers.StartReview)
	reviewGroup.Put("/submission/:id/approve", validators.SubmissionID(), controllers.ApproveSubmission)
	reviewGroup.Put("/submission/:id/reject", validators.SubmissionID(), controllers.RejectSubmission)

	// Admin job triggers
	jobGroup := app.Group("/jobs", middleware.JWTMiddleware, middleware.AdminOnly)
	jobGroup.Post("/unlocks/run", controllers.RunUnlockJob)
	jobGroup.Post("/progress/reconcile", controllers.ReconcileProgress)
}
