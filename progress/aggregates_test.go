package progress

import (
	"errors"
	"lms/models/learning"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func answerJSON(answer string) datatypes.JSON {
	return datatypes.JSON(`{"answer":"` + answer + `"}`)
}

func TestSameDayTwoCorrectAnswers_StreakCountsOnce(t *testing.T) {
	db := newTestDB(t)
	_, path := seedCoursePath(t, db)
	module := seedUnlockedModule(t, db, path, 1, t0, nil, nil)
	q1 := seedQuestion(t, db, module.ID, "a", 10)
	q2 := seedQuestion(t, db, module.ID, "b", 10)

	_, err := ScoreAssessment(db, t0, 1, q1.ID, answerJSON("a"), "a")
	require.NoError(t, err)
	_, err = ScoreAssessment(db, t0.Add(2*time.Hour), 1, q2.ID, answerJSON("b"), "b")
	require.NoError(t, err)

	var summary learning.GamificationSummary
	require.NoError(t, db.Where("user_id = ?", 1).First(&summary).Error)
	assert.Equal(t, 2*xpPerCorrectAnswer, summary.TotalXP)
	assert.Equal(t, 1, summary.CurrentStreak)
	assert.Equal(t, 1, summary.LongestStreak)

	// Exactly one activity row for the day
	var rows int64
	db.Model(&learning.DailyActivityLog{}).Where("user_id = ?", 1).Count(&rows)
	assert.EqualValues(t, 1, rows)

	var dayLog learning.DailyActivityLog
	require.NoError(t, db.Where("user_id = ?", 1).First(&dayLog).Error)
	assert.Equal(t, 2, dayLog.QuestionsAnswered)
	assert.Equal(t, 2, dayLog.CorrectAnswers)
	assert.Equal(t, 2*xpPerCorrectAnswer, dayLog.XPEarned)
	assert.True(t, dayLog.FirstActivityAt.Equal(t0))
	assert.True(t, dayLog.LastActivityAt.Equal(t0.Add(2*time.Hour)))
}

func TestStreakIncrementsOnConsecutiveDays(t *testing.T) {
	db := newTestDB(t)
	_, path := seedCoursePath(t, db)
	module := seedUnlockedModule(t, db, path, 1, t0, nil, nil)
	q1 := seedQuestion(t, db, module.ID, "a", 10)
	q2 := seedQuestion(t, db, module.ID, "b", 10)
	q3 := seedQuestion(t, db, module.ID, "c", 10)

	_, err := ScoreAssessment(db, t0, 1, q1.ID, answerJSON("a"), "a")
	require.NoError(t, err)
	_, err = ScoreAssessment(db, t0.AddDate(0, 0, 1), 1, q2.ID, answerJSON("b"), "b")
	require.NoError(t, err)
	_, err = ScoreAssessment(db, t0.AddDate(0, 0, 2), 1, q3.ID, answerJSON("c"), "c")
	require.NoError(t, err)

	var summary learning.GamificationSummary
	require.NoError(t, db.Where("user_id = ?", 1).First(&summary).Error)
	assert.Equal(t, 3, summary.CurrentStreak)
	assert.Equal(t, 3, summary.LongestStreak)
}

func TestStreakResetsAfterGap(t *testing.T) {
	db := newTestDB(t)
	_, path := seedCoursePath(t, db)
	module := seedUnlockedModule(t, db, path, 1, t0, nil, nil)
	q1 := seedQuestion(t, db, module.ID, "a", 10)
	q2 := seedQuestion(t, db, module.ID, "b", 10)
	q3 := seedQuestion(t, db, module.ID, "c", 10)

	_, err := ScoreAssessment(db, t0, 1, q1.ID, answerJSON("a"), "a")
	require.NoError(t, err)
	_, err = ScoreAssessment(db, t0.AddDate(0, 0, 1), 1, q2.ID, answerJSON("b"), "b")
	require.NoError(t, err)

	// Two-day gap: streak starts over, longest is preserved
	_, err = ScoreAssessment(db, t0.AddDate(0, 0, 4), 1, q3.ID, answerJSON("c"), "c")
	require.NoError(t, err)

	var summary learning.GamificationSummary
	require.NoError(t, db.Where("user_id = ?", 1).First(&summary).Error)
	assert.Equal(t, 1, summary.CurrentStreak)
	assert.Equal(t, 2, summary.LongestStreak)
	assert.Equal(t, 3*xpPerCorrectAnswer, summary.TotalXP)
}

func TestIncorrectAnswerDoesNotTouchStreak(t *testing.T) {
	db := newTestDB(t)
	_, path := seedCoursePath(t, db)
	module := seedUnlockedModule(t, db, path, 1, t0, nil, nil)
	question := seedQuestion(t, db, module.ID, "a", 10)

	_, err := ScoreAssessment(db, t0, 1, question.ID, answerJSON("wrong"), "wrong")
	require.NoError(t, err)

	// No XP-earning action yet, so no summary row exists at all
	var summary learning.GamificationSummary
	err = db.Where("user_id = ?", 1).First(&summary).Error
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	// The daily log still records the attempt
	var dayLog learning.DailyActivityLog
	require.NoError(t, db.Where("user_id = ?", 1).First(&dayLog).Error)
	assert.Equal(t, 1, dayLog.QuestionsAnswered)
	assert.Equal(t, 0, dayLog.CorrectAnswers)
	assert.Equal(t, 0, dayLog.XPEarned)
}

func TestCompleteLesson_Idempotent(t *testing.T) {
	db := newTestDB(t)
	_, path := seedCoursePath(t, db)
	module := seedUnlockedModule(t, db, path, 1, t0, nil, nil)

	lesson := learning.Lesson{ModuleID: module.ID, Title: "Intro", IsPublished: true}
	require.NoError(t, db.Create(&lesson).Error)

	prog, err := CompleteLesson(db, t0, 1, lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, prog.LessonsCompleted)

	_, err = CompleteLesson(db, t0.Add(time.Hour), 1, lesson.ID)
	assert.True(t, errors.Is(err, ErrAlreadyProcessed))

	var reloaded learning.ModuleProgress
	require.NoError(t, db.Where("user_id = ? AND module_id = ?", 1, module.ID).First(&reloaded).Error)
	assert.Equal(t, 1, reloaded.LessonsCompleted)
}

func TestReconcileModuleProgress_RepairsDrift(t *testing.T) {
	db := newTestDB(t)
	_, path := seedCoursePath(t, db)
	module := seedUnlockedModule(t, db, path, 1, t0, intPtr(3), nil)
	question := seedQuestion(t, db, module.ID, "a", 10)
	project := seedProject(t, db, module.ID, 50)

	_, err := ScoreAssessment(db, t0.Add(time.Hour), 1, question.ID, answerJSON("a"), "a")
	require.NoError(t, err)
	submitted, err := SubmitProject(db, t0.Add(2*time.Hour), 1, project.ID, "https://github.com/u/repo", "")
	require.NoError(t, err)
	_, err = ApproveProject(db, t0.AddDate(0, 0, 1), 9, submitted.Submission.ID)
	require.NoError(t, err)

	// Corrupt the cached row, then repair it from the log
	require.NoError(t, db.Model(&learning.ModuleProgress{}).
		Where("user_id = ? AND module_id = ?", 1, module.ID).
		Updates(map[string]interface{}{"total_points_earned": 999, "assessments_passed": 7}).Error)

	prog, err := ReconcileModuleProgress(db, t0.AddDate(0, 0, 2), 1, module.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, prog.AssessmentsPassed)
	assert.Equal(t, 1, prog.ProjectsApproved)
	assert.Equal(t, 60.0, prog.TotalPointsEarned)
	assert.True(t, prog.ModuleCompleted)
}
