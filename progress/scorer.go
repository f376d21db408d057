package progress

import (
	"errors"
	"fmt"
	"lms/models/learning"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Deadline tier multipliers
const (
	firstTierMultiplier   = 1.0
	secondTierMultiplier  = 0.5
	partialTierMultiplier = 0.25 // projects landing inside a configured third deadline
)

// AssessmentResult is the outcome of scoring one assessment answer
type AssessmentResult struct {
	Submission      learning.AssessmentSubmission `json:"submission"`
	Tier            string                        `json:"tier"`
	Points          float64                       `json:"points"`
	IsCorrect       bool                          `json:"is_correct"`
	XPEarned        int                           `json:"xp_earned"`
	ModuleCompleted bool                          `json:"module_completed"`
}

// ProjectResult is the outcome of a project submission or review decision
type ProjectResult struct {
	Submission      learning.ProjectSubmission `json:"submission"`
	Tier            string                     `json:"tier"`
	Points          float64                    `json:"points"`
	ModuleCompleted bool                       `json:"module_completed"`
}

// ClassifyDeadline places a submission timestamp into a deadline tier using
// the frozen deadlines on the user's ModuleAvailability. A module that never
// had deadlines computed (still locked, or no deadline days configured) is an
// unconstrained window and classifies as FIRST.
func ClassifyDeadline(submittedAt time.Time, avail *learning.ModuleAvailability) string {
	if avail == nil || avail.FirstDeadline == nil {
		return learning.DeadlineFirst
	}
	if !submittedAt.After(*avail.FirstDeadline) {
		return learning.DeadlineFirst
	}
	if avail.SecondDeadline != nil && !submittedAt.After(*avail.SecondDeadline) {
		return learning.DeadlineSecond
	}
	return learning.DeadlineLate
}

func assessmentMultiplier(tier string) float64 {
	switch tier {
	case learning.DeadlineFirst:
		return firstTierMultiplier
	case learning.DeadlineSecond:
		return secondTierMultiplier
	default:
		return 0
	}
}

// projectMultiplier is the assessment multiplier plus partial credit for late
// submissions that still land inside a configured third deadline
func projectMultiplier(tier string, submittedAt time.Time, avail *learning.ModuleAvailability) float64 {
	if tier != learning.DeadlineLate {
		return assessmentMultiplier(tier)
	}
	if avail != nil && avail.ThirdDeadline != nil && !submittedAt.After(*avail.ThirdDeadline) {
		return partialTierMultiplier
	}
	return 0
}

// userAvailability loads the user's availability row for a module, or nil if
// none was ever created
func userAvailability(tx *gorm.DB, userID, moduleID uint) (*learning.ModuleAvailability, error) {
	var avail learning.ModuleAvailability
	err := tx.Where("user_id = ? AND module_id = ? AND is_deleted = ?", userID, moduleID, false).First(&avail).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &avail, nil
}

// markStartedLearning sets the enrollment's started_learning_at on the user's
// first module interaction. Set-once.
func markStartedLearning(tx *gorm.DB, now time.Time, userID, moduleID uint) error {
	var module learning.Module
	if err := tx.Where("id = ?", moduleID).First(&module).Error; err != nil {
		return err
	}

	var enrollment learning.Enrollment
	err := tx.Where("user_id = ? AND path_id = ? AND is_deleted = ?", userID, module.PathID, false).First(&enrollment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil // enrollment may come from a flow outside this path
	}
	if err != nil {
		return err
	}

	if enrollment.StartedLearningAt != nil {
		return nil
	}
	started := now
	enrollment.StartedLearningAt = &started
	return tx.Save(&enrollment).Error
}

// ScoreAssessment scores a learner's answer to an assessment question and
// updates the module and gamification aggregates in the same transaction.
// Correctness gates points entirely: a wrong answer earns 0 in any tier.
func ScoreAssessment(db *gorm.DB, now time.Time, userID, questionID uint, answer datatypes.JSON, answerText string) (*AssessmentResult, error) {
	var question learning.AssessmentQuestion
	err := db.Where("id = ? AND is_deleted = ?", questionID, false).First(&question).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("question %d: %w", questionID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	avail, err := userAvailability(db, userID, question.ModuleID)
	if err != nil {
		return nil, err
	}

	tier := ClassifyDeadline(now, avail)
	isCorrect := answerMatches(answerText, question.Answer)

	result := &AssessmentResult{Tier: tier, IsCorrect: isCorrect}

	err = db.Transaction(func(tx *gorm.DB) error {
		// Lock the aggregate row before deciding whether this is a first
		// pass; a concurrent correct answer to the same question blocks
		// here until the winner's submission is visible.
		prog, err := progressForUpdate(tx, userID, question.ModuleID)
		if err != nil {
			return err
		}

		// Repeat correct attempts on an already-passed question earn no
		// additional course points
		var alreadyPassed int64
		if err := tx.Model(&learning.AssessmentSubmission{}).
			Where("user_id = ? AND question_id = ? AND is_correct = ? AND is_deleted = ?", userID, questionID, true, false).
			Count(&alreadyPassed).Error; err != nil {
			return err
		}
		newlyPassed := isCorrect && alreadyPassed == 0

		points := 0.0
		if newlyPassed {
			points = float64(question.Points) * assessmentMultiplier(tier)
		}
		xp := 0
		if isCorrect {
			xp = xpPerCorrectAnswer
		}

		submission := learning.AssessmentSubmission{
			UserID:         userID,
			ModuleID:       question.ModuleID,
			QuestionID:     questionID,
			Answer:         answer,
			SubmittedAt:    now,
			IsCorrect:      isCorrect,
			DeadlineStatus: tier,
			PointsEarned:   points,
		}
		if err := tx.Create(&submission).Error; err != nil {
			return err
		}

		if err := markStartedLearning(tx, now, userID, question.ModuleID); err != nil {
			return err
		}

		delta := progressDelta{points: points}
		if newlyPassed {
			delta.assessments = 1
		}
		if err := applyDeltaLocked(tx, now, prog, delta); err != nil {
			return err
		}

		if err := recordQuizActivity(tx, now, userID, xp, isCorrect); err != nil {
			return err
		}

		result.Submission = submission
		result.Points = points
		result.XPEarned = xp
		result.ModuleCompleted = prog.ModuleCompleted
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// answerMatches compares a submitted answer against the expected one,
// ignoring case and surrounding whitespace
func answerMatches(submitted, expected string) bool {
	return strings.EqualFold(strings.TrimSpace(submitted), strings.TrimSpace(expected))
}

// SubmitProject records a project submission with a provisional score. The
// score stays mutable until a reviewer decision freezes it.
func SubmitProject(db *gorm.DB, now time.Time, userID, projectID uint, repoURL, notes string) (*ProjectResult, error) {
	var project learning.Project
	err := db.Where("id = ? AND is_deleted = ?", projectID, false).First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("project %d: %w", projectID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	avail, err := userAvailability(db, userID, project.ModuleID)
	if err != nil {
		return nil, err
	}

	tier := ClassifyDeadline(now, avail)
	points := float64(project.BaseWeight) * projectMultiplier(tier, now, avail)

	result := &ProjectResult{Tier: tier, Points: points}

	err = db.Transaction(func(tx *gorm.DB) error {
		// Lock the aggregate row so the pending check below is serialized
		// against a concurrent submission of the same project
		prog, err := progressForUpdate(tx, userID, project.ModuleID)
		if err != nil {
			return err
		}

		// A pending submission for the same project must be decided first
		var pending int64
		if err := tx.Model(&learning.ProjectSubmission{}).
			Where("user_id = ? AND project_id = ? AND status IN ? AND is_deleted = ?",
				userID, projectID, []string{learning.ProjectSubmitted, learning.ProjectInReview}, false).
			Count(&pending).Error; err != nil {
			return err
		}
		if pending > 0 {
			return ErrAlreadyProcessed
		}

		submission := learning.ProjectSubmission{
			UserID:         userID,
			ModuleID:       project.ModuleID,
			ProjectID:      projectID,
			RepoURL:        repoURL,
			Notes:          notes,
			SubmittedAt:    now,
			Status:         learning.ProjectSubmitted,
			DeadlineStatus: tier,
			PointsEarned:   points,
		}
		if err := tx.Create(&submission).Error; err != nil {
			return err
		}

		if err := markStartedLearning(tx, now, userID, project.ModuleID); err != nil {
			return err
		}

		// Provisional points count toward the module total immediately;
		// the review decision applies the delta between old and new.
		if err := applyDeltaLocked(tx, now, prog, progressDelta{points: points}); err != nil {
			return err
		}

		result.Submission = submission
		result.ModuleCompleted = prog.ModuleCompleted
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// StartProjectReview moves a submission from SUBMITTED to IN_REVIEW
func StartProjectReview(db *gorm.DB, now time.Time, reviewerID, submissionID uint) (*learning.ProjectSubmission, error) {
	var submission learning.ProjectSubmission
	err := db.Where("id = ? AND is_deleted = ?", submissionID, false).First(&submission).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("submission %d: %w", submissionID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if submission.Status != learning.ProjectSubmitted {
		return nil, ErrAlreadyProcessed
	}

	submission.Status = learning.ProjectInReview
	submission.ReviewerID = &reviewerID
	if err := db.Save(&submission).Error; err != nil {
		return nil, err
	}
	return &submission, nil
}

// ApproveProject finalizes a project submission. The provisional score is
// kept unchanged and frozen; the approval counter may complete the module.
func ApproveProject(db *gorm.DB, now time.Time, reviewerID, submissionID uint) (*ProjectResult, error) {
	return decideProject(db, now, reviewerID, submissionID, learning.ProjectApproved, "")
}

// RejectProject finalizes a project submission with zero points, regardless
// of which deadline tier it was submitted in
func RejectProject(db *gorm.DB, now time.Time, reviewerID, submissionID uint, feedback string) (*ProjectResult, error) {
	return decideProject(db, now, reviewerID, submissionID, learning.ProjectRejected, feedback)
}

func decideProject(db *gorm.DB, now time.Time, reviewerID, submissionID uint, decision, feedback string) (*ProjectResult, error) {
	var result *ProjectResult

	err := db.Transaction(func(tx *gorm.DB) error {
		var submission learning.ProjectSubmission
		err := lockForUpdate(tx).Where("id = ? AND is_deleted = ?", submissionID, false).First(&submission).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("submission %d: %w", submissionID, ErrNotFound)
		}
		if err != nil {
			return err
		}

		// Points are frozen once a decision has been recorded
		if submission.Status == learning.ProjectApproved || submission.Status == learning.ProjectRejected {
			return ErrAlreadyProcessed
		}

		oldPoints := submission.PointsEarned
		newPoints := oldPoints
		if decision == learning.ProjectRejected {
			newPoints = 0
		}

		reviewedAt := now
		submission.Status = decision
		submission.PointsEarned = newPoints
		submission.ReviewerID = &reviewerID
		submission.Feedback = feedback
		submission.ReviewedAt = &reviewedAt
		if err := tx.Save(&submission).Error; err != nil {
			return err
		}

		delta := progressDelta{points: newPoints - oldPoints}
		if decision == learning.ProjectApproved {
			delta.projects = 1
		}
		prog, err := applyProgressDelta(tx, now, submission.UserID, submission.ModuleID, delta)
		if err != nil {
			return err
		}

		result = &ProjectResult{
			Submission:      submission,
			Tier:            submission.DeadlineStatus,
			Points:          newPoints,
			ModuleCompleted: prog.ModuleCompleted,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
