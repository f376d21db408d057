package progress

import (
	"errors"
	"lms/models/learning"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestClassifyDeadline(t *testing.T) {
	first := t0.AddDate(0, 0, 2)
	second := t0.AddDate(0, 0, 5)
	avail := &learning.ModuleAvailability{FirstDeadline: &first, SecondDeadline: &second}

	tests := []struct {
		name        string
		submittedAt time.Time
		avail       *learning.ModuleAvailability
		want        string
	}{
		{"day 1 is first tier", t0.AddDate(0, 0, 1), avail, learning.DeadlineFirst},
		{"exactly on first deadline", first, avail, learning.DeadlineFirst},
		{"day 3 is second tier", t0.AddDate(0, 0, 3), avail, learning.DeadlineSecond},
		{"day 6 is late", t0.AddDate(0, 0, 6), avail, learning.DeadlineLate},
		{"no availability is unconstrained", t0, nil, learning.DeadlineFirst},
		{"no deadlines configured is unconstrained", t0.AddDate(0, 0, 30), &learning.ModuleAvailability{}, learning.DeadlineFirst},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyDeadline(tt.submittedAt, tt.avail))
		})
	}
}

func TestScoreAssessment_TierPoints(t *testing.T) {
	db := newTestDB(t)
	_, path := seedCoursePath(t, db)
	module := seedUnlockedModule(t, db, path, 1, t0, intPtr(2), intPtr(5))
	question := seedQuestion(t, db, module.ID, "42", 10)

	// Separate users so the first-pass rule never interferes per case
	for _, avail := range []uint{2, 3} {
		a := learning.ModuleAvailability{UserID: avail, ModuleID: module.ID, IsUnlocked: true}
		base := t0
		a.UnlockedAt = &base
		f := t0.AddDate(0, 0, 2)
		s := t0.AddDate(0, 0, 5)
		a.FirstDeadline = &f
		a.SecondDeadline = &s
		require.NoError(t, db.Create(&a).Error)
	}

	result, err := ScoreAssessment(db, t0.AddDate(0, 0, 1), 1, question.ID, datatypes.JSON(`{"answer":"42"}`), "42")
	require.NoError(t, err)
	assert.Equal(t, learning.DeadlineFirst, result.Tier)
	assert.Equal(t, 10.0, result.Points)
	assert.True(t, result.IsCorrect)

	result, err = ScoreAssessment(db, t0.AddDate(0, 0, 3), 2, question.ID, datatypes.JSON(`{"answer":"42"}`), "42")
	require.NoError(t, err)
	assert.Equal(t, learning.DeadlineSecond, result.Tier)
	assert.Equal(t, 5.0, result.Points)

	result, err = ScoreAssessment(db, t0.AddDate(0, 0, 6), 3, question.ID, datatypes.JSON(`{"answer":"42"}`), "42")
	require.NoError(t, err)
	assert.Equal(t, learning.DeadlineLate, result.Tier)
	assert.Equal(t, 0.0, result.Points)
	assert.True(t, result.IsCorrect) // late but still correct, XP still earned
	assert.Equal(t, xpPerCorrectAnswer, result.XPEarned)
}

func TestScoreAssessment_IncorrectAlwaysZero(t *testing.T) {
	db := newTestDB(t)
	_, path := seedCoursePath(t, db)
	module := seedUnlockedModule(t, db, path, 1, t0, intPtr(2), intPtr(5))
	question := seedQuestion(t, db, module.ID, "42", 10)

	// Well inside the first deadline, still zero because the answer is wrong
	result, err := ScoreAssessment(db, t0.Add(time.Hour), 1, question.ID, datatypes.JSON(`{"answer":"41"}`), "41")
	require.NoError(t, err)
	assert.Equal(t, learning.DeadlineFirst, result.Tier)
	assert.False(t, result.IsCorrect)
	assert.Equal(t, 0.0, result.Points)
	assert.Equal(t, 0, result.XPEarned)

	var prog learning.ModuleProgress
	require.NoError(t, db.Where("user_id = ? AND module_id = ?", 1, module.ID).First(&prog).Error)
	assert.Equal(t, 0, prog.AssessmentsPassed)
	assert.Equal(t, 0.0, prog.TotalPointsEarned)
}

func TestScoreAssessment_RepeatCorrectEarnsNoExtraPoints(t *testing.T) {
	db := newTestDB(t)
	_, path := seedCoursePath(t, db)
	module := seedUnlockedModule(t, db, path, 1, t0, intPtr(2), nil)
	question := seedQuestion(t, db, module.ID, "42", 10)

	first, err := ScoreAssessment(db, t0.Add(time.Hour), 1, question.ID, datatypes.JSON(`{"answer":"42"}`), "42")
	require.NoError(t, err)
	assert.Equal(t, 10.0, first.Points)

	second, err := ScoreAssessment(db, t0.Add(2*time.Hour), 1, question.ID, datatypes.JSON(`{"answer":"42"}`), "42")
	require.NoError(t, err)
	assert.Equal(t, 0.0, second.Points)

	var prog learning.ModuleProgress
	require.NoError(t, db.Where("user_id = ? AND module_id = ?", 1, module.ID).First(&prog).Error)
	assert.Equal(t, 1, prog.AssessmentsPassed)
	assert.Equal(t, 10.0, prog.TotalPointsEarned)
}

func TestScoreAssessment_SetsStartedLearningAt(t *testing.T) {
	db := newTestDB(t)
	course, path := seedCoursePath(t, db)
	module := seedUnlockedModule(t, db, path, 1, t0, nil, nil)
	question := seedQuestion(t, db, module.ID, "42", 10)
	enrollment := seedEnrollment(t, db, 1, course, path, t0)

	now := t0.AddDate(0, 0, 1)
	_, err := ScoreAssessment(db, now, 1, question.ID, datatypes.JSON(`{"answer":"42"}`), "42")
	require.NoError(t, err)

	var updated learning.Enrollment
	require.NoError(t, db.First(&updated, enrollment.ID).Error)
	require.NotNil(t, updated.StartedLearningAt)
	assert.True(t, updated.StartedLearningAt.Equal(now))

	// Set-once: a later submission does not move it
	_, err = ScoreAssessment(db, now.AddDate(0, 0, 1), 1, question.ID, datatypes.JSON(`{"answer":"42"}`), "42")
	require.NoError(t, err)
	require.NoError(t, db.First(&updated, enrollment.ID).Error)
	assert.True(t, updated.StartedLearningAt.Equal(now))
}

func TestSubmitProject_ProvisionalScore(t *testing.T) {
	db := newTestDB(t)
	_, path := seedCoursePath(t, db)
	module := seedUnlockedModule(t, db, path, 1, t0, intPtr(2), intPtr(5))
	project := seedProject(t, db, module.ID, 50)

	result, err := SubmitProject(db, t0.AddDate(0, 0, 3), 1, project.ID, "https://github.com/u/repo", "done")
	require.NoError(t, err)
	assert.Equal(t, learning.DeadlineSecond, result.Tier)
	assert.Equal(t, 25.0, result.Points)
	assert.Equal(t, learning.ProjectSubmitted, result.Submission.Status)

	// Provisional points already count toward the module total
	var prog learning.ModuleProgress
	require.NoError(t, db.Where("user_id = ? AND module_id = ?", 1, module.ID).First(&prog).Error)
	assert.Equal(t, 25.0, prog.TotalPointsEarned)
	assert.Equal(t, 0, prog.ProjectsApproved)

	// A second submission while one is pending is refused
	_, err = SubmitProject(db, t0.AddDate(0, 0, 3), 1, project.ID, "https://github.com/u/repo", "again")
	assert.True(t, errors.Is(err, ErrAlreadyProcessed))
}

func TestRejectProject_ZeroesPointsEvenBeforeFirstDeadline(t *testing.T) {
	db := newTestDB(t)
	_, path := seedCoursePath(t, db)
	module := seedUnlockedModule(t, db, path, 1, t0, intPtr(2), intPtr(5))
	project := seedProject(t, db, module.ID, 50)

	submitted, err := SubmitProject(db, t0.Add(time.Hour), 1, project.ID, "https://github.com/u/repo", "")
	require.NoError(t, err)
	assert.Equal(t, learning.DeadlineFirst, submitted.Tier)
	assert.Equal(t, 50.0, submitted.Points)

	rejected, err := RejectProject(db, t0.AddDate(0, 0, 1), 9, submitted.Submission.ID, "missing tests")
	require.NoError(t, err)
	assert.Equal(t, 0.0, rejected.Points)
	assert.Equal(t, learning.ProjectRejected, rejected.Submission.Status)
	assert.Equal(t, "missing tests", rejected.Submission.Feedback)

	var prog learning.ModuleProgress
	require.NoError(t, db.Where("user_id = ? AND module_id = ?", 1, module.ID).First(&prog).Error)
	assert.Equal(t, 0.0, prog.TotalPointsEarned)

	// Frozen after the decision
	_, err = ApproveProject(db, t0.AddDate(0, 0, 2), 9, submitted.Submission.ID)
	assert.True(t, errors.Is(err, ErrAlreadyProcessed))
}

func TestApproveProject_KeepsPointsAndCompletesModule(t *testing.T) {
	db := newTestDB(t)
	_, path := seedCoursePath(t, db)
	module := seedUnlockedModule(t, db, path, 1, t0, intPtr(3), nil)
	project := seedProject(t, db, module.ID, 50)

	submitted, err := SubmitProject(db, t0.AddDate(0, 0, 1), 1, project.ID, "https://github.com/u/repo", "")
	require.NoError(t, err)
	assert.Equal(t, 50.0, submitted.Points)
	assert.False(t, submitted.ModuleCompleted)

	// Approval after the deadline finalizes the provisional score unchanged
	approved, err := ApproveProject(db, t0.AddDate(0, 0, 10), 9, submitted.Submission.ID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, approved.Points)
	assert.Equal(t, learning.DeadlineFirst, approved.Tier)
	assert.True(t, approved.ModuleCompleted)

	var prog learning.ModuleProgress
	require.NoError(t, db.Where("user_id = ? AND module_id = ?", 1, module.ID).First(&prog).Error)
	assert.Equal(t, 1, prog.ProjectsApproved)
	assert.True(t, prog.ModuleCompleted)
	require.NotNil(t, prog.CompletedAt)
}

func TestSubmitProject_ThirdDeadlinePartialCredit(t *testing.T) {
	db := newTestDB(t)
	_, path := seedCoursePath(t, db)
	module := seedUnlockedModule(t, db, path, 1, t0, intPtr(2), intPtr(5))
	third := t0.AddDate(0, 0, 8)
	require.NoError(t, db.Model(&learning.ModuleAvailability{}).
		Where("user_id = ? AND module_id = ?", 1, module.ID).
		Update("third_deadline", third).Error)
	project := seedProject(t, db, module.ID, 40)

	// Past the second deadline but inside the third: partial credit
	result, err := SubmitProject(db, t0.AddDate(0, 0, 6), 1, project.ID, "https://github.com/u/repo", "")
	require.NoError(t, err)
	assert.Equal(t, learning.DeadlineLate, result.Tier)
	assert.Equal(t, 10.0, result.Points)
}

// Simultaneous correct answers to the same question must not stack points or
// inflate the passed counter: the first-pass decision is taken under the
// ModuleProgress row lock, so only one submission counts as the pass.
func TestScoreAssessment_ConcurrentCorrectAnswersSinglePass(t *testing.T) {
	db := newTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	_, path := seedCoursePath(t, db)
	module := seedUnlockedModule(t, db, path, 1, t0, intPtr(2), intPtr(5))
	question := seedQuestion(t, db, module.ID, "42", 10)
	seedQuestion(t, db, module.ID, "other", 10)

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ScoreAssessment(db, t0.Add(time.Hour), 1, question.ID, datatypes.JSON(`{"answer":"42"}`), "42")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var prog learning.ModuleProgress
	require.NoError(t, db.Where("user_id = ? AND module_id = ?", 1, module.ID).First(&prog).Error)
	assert.Equal(t, 1, prog.AssessmentsPassed)
	assert.Equal(t, 10.0, prog.TotalPointsEarned)
	// one of two questions passed, whatever the interleaving
	assert.False(t, prog.ModuleCompleted)

	var earners int64
	db.Model(&learning.AssessmentSubmission{}).
		Where("user_id = ? AND question_id = ? AND points_earned > 0", 1, question.ID).
		Count(&earners)
	assert.EqualValues(t, 1, earners)
}

// Simultaneous submissions of the same project must leave exactly one
// pending submission and one provisional score
func TestSubmitProject_ConcurrentSubmissionsSinglePending(t *testing.T) {
	db := newTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	_, path := seedCoursePath(t, db)
	module := seedUnlockedModule(t, db, path, 1, t0, intPtr(2), intPtr(5))
	project := seedProject(t, db, module.ID, 50)

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := SubmitProject(db, t0.Add(time.Hour), 1, project.ID, "https://github.com/u/repo", "")
			if err != nil {
				assert.True(t, errors.Is(err, ErrAlreadyProcessed))
			}
		}()
	}
	wg.Wait()

	var submissions int64
	db.Model(&learning.ProjectSubmission{}).
		Where("user_id = ? AND project_id = ?", 1, project.ID).
		Count(&submissions)
	assert.EqualValues(t, 1, submissions)

	var prog learning.ModuleProgress
	require.NoError(t, db.Where("user_id = ? AND module_id = ?", 1, module.ID).First(&prog).Error)
	assert.Equal(t, 50.0, prog.TotalPointsEarned)
}

func TestDecideProject_MissingSubmission(t *testing.T) {
	db := newTestDB(t)

	_, err := ApproveProject(db, t0, 9, 12345)
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = RejectProject(db, t0, 9, 12345, "feedback")
	assert.True(t, errors.Is(err, ErrNotFound))
}
