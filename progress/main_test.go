package progress

import (
	"fmt"
	"lms/models"
	"lms/models/learning"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory database migrated with the full
// schema. The database is named after the test so parallel tests never share
// state.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&learning.Course{},
		&learning.Path{},
		&learning.Module{},
		&learning.Lesson{},
		&learning.AssessmentQuestion{},
		&learning.Project{},
		&learning.Enrollment{},
		&learning.Bootcamp{},
		&learning.BootcampSeat{},
		&learning.ModuleAvailability{},
		&learning.AssessmentSubmission{},
		&learning.ProjectSubmission{},
		&learning.LessonCompletion{},
		&learning.ModuleProgress{},
		&learning.GamificationSummary{},
		&learning.DailyActivityLog{},
		&learning.Badge{},
		&learning.Certificate{},
	))

	return db
}

func intPtr(n int) *int { return &n }

// t0 is the fixed reference instant all tests schedule around
var t0 = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func seedCoursePath(t *testing.T, db *gorm.DB) (learning.Course, learning.Path) {
	t.Helper()

	course := learning.Course{Title: "Backend Engineering", Status: "ACTIVE", IsPublished: true}
	require.NoError(t, db.Create(&course).Error)

	path := learning.Path{CourseID: course.ID, Title: "Go Track"}
	require.NoError(t, db.Create(&path).Error)

	return course, path
}

func seedEnrollment(t *testing.T, db *gorm.DB, userID uint, course learning.Course, path learning.Path, enrolledAt time.Time) learning.Enrollment {
	t.Helper()

	enrollment := learning.Enrollment{
		UserID:     userID,
		CourseID:   course.ID,
		PathID:     path.ID,
		EnrolledAt: enrolledAt,
		Status:     learning.EnrollmentActive,
		IsActive:   true,
	}
	require.NoError(t, db.Create(&enrollment).Error)
	return enrollment
}

// seedUnlockedModule creates a module and an unlocked availability for the
// user with deadlines frozen relative to base
func seedUnlockedModule(t *testing.T, db *gorm.DB, path learning.Path, userID uint, base time.Time, firstDays, secondDays *int) learning.Module {
	t.Helper()

	module := learning.Module{
		PathID:             path.ID,
		Title:              "Module",
		FirstDeadlineDays:  firstDays,
		SecondDeadlineDays: secondDays,
	}
	require.NoError(t, db.Create(&module).Error)

	unlockedAt := base
	avail := learning.ModuleAvailability{
		UserID:     userID,
		ModuleID:   module.ID,
		IsUnlocked: true,
		UnlockedAt: &unlockedAt,
	}
	if firstDays != nil {
		d := base.AddDate(0, 0, *firstDays)
		avail.FirstDeadline = &d
	}
	if secondDays != nil {
		d := base.AddDate(0, 0, *secondDays)
		avail.SecondDeadline = &d
	}
	require.NoError(t, db.Create(&avail).Error)

	return module
}

func seedQuestion(t *testing.T, db *gorm.DB, moduleID uint, answer string, points int) learning.AssessmentQuestion {
	t.Helper()

	question := learning.AssessmentQuestion{ModuleID: moduleID, Prompt: "prompt", Answer: answer, Points: points}
	require.NoError(t, db.Create(&question).Error)
	return question
}

func seedProject(t *testing.T, db *gorm.DB, moduleID uint, weight int) learning.Project {
	t.Helper()

	project := learning.Project{ModuleID: moduleID, Title: "Project", BaseWeight: weight}
	require.NoError(t, db.Create(&project).Error)
	return project
}
