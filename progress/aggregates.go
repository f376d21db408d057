package progress

import (
	"errors"
	"lms/models/learning"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// XP granted per correct quiz answer. XP is gamification currency, separate
// from course points.
const xpPerCorrectAnswer = 10

// progressDelta is the incremental change one scoring event applies to a
// user's ModuleProgress row
type progressDelta struct {
	lessons     int
	assessments int
	projects    int
	points      float64
}

// lockForUpdate serializes concurrent submissions on the same aggregate row.
// SQLite has no FOR UPDATE; its single-writer model covers the same race in
// tests.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// progressForUpdate loads or creates the user's ModuleProgress row, locked
// for the duration of the enclosing transaction
func progressForUpdate(tx *gorm.DB, userID, moduleID uint) (*learning.ModuleProgress, error) {
	var prog learning.ModuleProgress
	err := lockForUpdate(tx).
		Where("user_id = ? AND module_id = ? AND is_deleted = ?", userID, moduleID, false).
		First(&prog).Error
	if err == nil {
		return &prog, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	prog = learning.ModuleProgress{UserID: userID, ModuleID: moduleID}
	if err := tx.Create(&prog).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrConcurrencyConflict
		}
		return nil, err
	}
	return &prog, nil
}

// applyProgressDelta applies one scoring event's counter changes and checks
// for module completion. Must run inside the transaction that wrote the
// originating submission so the cached counters never drift from the log.
func applyProgressDelta(tx *gorm.DB, now time.Time, userID, moduleID uint, d progressDelta) (*learning.ModuleProgress, error) {
	prog, err := progressForUpdate(tx, userID, moduleID)
	if err != nil {
		return nil, err
	}
	if err := applyDeltaLocked(tx, now, prog, d); err != nil {
		return nil, err
	}
	return prog, nil
}

// applyDeltaLocked applies the delta to a ModuleProgress row the caller has
// already locked via progressForUpdate
func applyDeltaLocked(tx *gorm.DB, now time.Time, prog *learning.ModuleProgress, d progressDelta) error {
	prog.LessonsCompleted += d.lessons
	prog.AssessmentsPassed += d.assessments
	prog.ProjectsApproved += d.projects
	prog.TotalPointsEarned += d.points

	if err := maybeCompleteModule(tx, now, prog); err != nil {
		return err
	}

	return tx.Save(prog).Error
}

// maybeCompleteModule sets module_completed once all assessments are passed
// and all projects approved. Set-once: a completed module never flips back.
func maybeCompleteModule(tx *gorm.DB, now time.Time, prog *learning.ModuleProgress) error {
	if prog.ModuleCompleted {
		return nil
	}

	var totalQuestions, totalProjects int64
	if err := tx.Model(&learning.AssessmentQuestion{}).
		Where("module_id = ? AND is_deleted = ?", prog.ModuleID, false).
		Count(&totalQuestions).Error; err != nil {
		return err
	}
	if err := tx.Model(&learning.Project{}).
		Where("module_id = ? AND is_deleted = ?", prog.ModuleID, false).
		Count(&totalProjects).Error; err != nil {
		return err
	}

	// A module with no graded work never auto-completes
	if totalQuestions+totalProjects == 0 {
		return nil
	}

	if int64(prog.AssessmentsPassed) >= totalQuestions && int64(prog.ProjectsApproved) >= totalProjects {
		prog.ModuleCompleted = true
		completedAt := now
		prog.CompletedAt = &completedAt
	}
	return nil
}

// recordQuizActivity updates the daily activity log and, for correct answers,
// the user's XP and streak. Runs inside the submission transaction.
//
// The (user, day) uniqueness of DailyActivityLog plus the last_activity_date
// comparison make the streak update idempotent: a second correct answer on
// the same day adds XP but never re-increments the streak.
func recordQuizActivity(tx *gorm.DB, now time.Time, userID uint, xp int, isCorrect bool) error {
	today := dateOnly(now)

	var dayLog learning.DailyActivityLog
	err := tx.Where("user_id = ? AND activity_date = ? AND is_deleted = ?", userID, today, false).First(&dayLog).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		dayLog = learning.DailyActivityLog{
			UserID:          userID,
			ActivityDate:    today,
			FirstActivityAt: now,
		}
		if err := tx.Create(&dayLog).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrConcurrencyConflict
			}
			return err
		}
	} else if err != nil {
		return err
	}

	dayLog.QuestionsAnswered++
	if isCorrect {
		dayLog.CorrectAnswers++
		dayLog.XPEarned += xp
	}
	dayLog.LastActivityAt = now
	if err := tx.Save(&dayLog).Error; err != nil {
		return err
	}

	if !isCorrect {
		return nil
	}

	var summary learning.GamificationSummary
	err = lockForUpdate(tx).Where("user_id = ?", userID).First(&summary).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		summary = learning.GamificationSummary{UserID: userID}
		if err := tx.Create(&summary).Error; err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	switch {
	case summary.LastActivityDate != nil && summary.LastActivityDate.Equal(today):
		// already counted today, streak unchanged
	case summary.LastActivityDate != nil && summary.LastActivityDate.Equal(today.AddDate(0, 0, -1)):
		summary.CurrentStreak++
	default:
		// gap since last activity, or first activity ever
		summary.CurrentStreak = 1
	}
	if summary.CurrentStreak > summary.LongestStreak {
		summary.LongestStreak = summary.CurrentStreak
	}

	summary.TotalXP += xp
	summary.LastActivityDate = &today

	return tx.Save(&summary).Error
}

// dateOnly truncates a timestamp to its UTC calendar day
func dateOnly(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// ReconcileModuleProgress recomputes a user's ModuleProgress counters from
// the submission log. The incremental path keeps counters consistent on its
// own; this is the explicit repair job for when a row is suspected to have
// drifted.
func ReconcileModuleProgress(db *gorm.DB, now time.Time, userID, moduleID uint) (*learning.ModuleProgress, error) {
	var result *learning.ModuleProgress

	err := db.Transaction(func(tx *gorm.DB) error {
		prog, err := progressForUpdate(tx, userID, moduleID)
		if err != nil {
			return err
		}

		var lessons int64
		if err := tx.Model(&learning.LessonCompletion{}).
			Where("user_id = ? AND module_id = ? AND is_deleted = ?", userID, moduleID, false).
			Count(&lessons).Error; err != nil {
			return err
		}

		var passed int64
		if err := tx.Model(&learning.AssessmentSubmission{}).
			Distinct("question_id").
			Where("user_id = ? AND module_id = ? AND is_correct = ? AND is_deleted = ?", userID, moduleID, true, false).
			Count(&passed).Error; err != nil {
			return err
		}

		var approved int64
		if err := tx.Model(&learning.ProjectSubmission{}).
			Distinct("project_id").
			Where("user_id = ? AND module_id = ? AND status = ? AND is_deleted = ?", userID, moduleID, learning.ProjectApproved, false).
			Count(&approved).Error; err != nil {
			return err
		}

		var assessmentPoints, projectPoints float64
		row := tx.Model(&learning.AssessmentSubmission{}).
			Where("user_id = ? AND module_id = ? AND is_deleted = ?", userID, moduleID, false).
			Select("COALESCE(SUM(points_earned), 0)").Row()
		if err := row.Scan(&assessmentPoints); err != nil {
			return err
		}
		row = tx.Model(&learning.ProjectSubmission{}).
			Where("user_id = ? AND module_id = ? AND status != ? AND is_deleted = ?", userID, moduleID, learning.ProjectRejected, false).
			Select("COALESCE(SUM(points_earned), 0)").Row()
		if err := row.Scan(&projectPoints); err != nil {
			return err
		}

		prog.LessonsCompleted = int(lessons)
		prog.AssessmentsPassed = int(passed)
		prog.ProjectsApproved = int(approved)
		prog.TotalPointsEarned = assessmentPoints + projectPoints

		if err := maybeCompleteModule(tx, now, prog); err != nil {
			return err
		}
		if err := tx.Save(prog).Error; err != nil {
			return err
		}
		result = prog
		return nil
	})

	return result, err
}

// CompleteLesson records a lesson completion, at most once per user+lesson,
// and bumps the lessons counter
func CompleteLesson(db *gorm.DB, now time.Time, userID, lessonID uint) (*learning.ModuleProgress, error) {
	var lesson learning.Lesson
	err := db.Where("id = ? AND is_deleted = ? AND is_published = ?", lessonID, false, true).First(&lesson).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var result *learning.ModuleProgress
	err = db.Transaction(func(tx *gorm.DB) error {
		var existing learning.LessonCompletion
		err := tx.Where("user_id = ? AND lesson_id = ? AND is_deleted = ?", userID, lessonID, false).First(&existing).Error
		if err == nil {
			return ErrAlreadyProcessed
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		completion := learning.LessonCompletion{
			UserID:   userID,
			LessonID: lessonID,
			ModuleID: lesson.ModuleID,
		}
		if err := tx.Create(&completion).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyProcessed
			}
			return err
		}

		if err := markStartedLearning(tx, now, userID, lesson.ModuleID); err != nil {
			return err
		}

		prog, err := applyProgressDelta(tx, now, userID, lesson.ModuleID, progressDelta{lessons: 1})
		if err != nil {
			return err
		}
		result = prog
		return nil
	})

	return result, err
}
