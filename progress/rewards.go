package progress

import (
	"errors"
	"fmt"
	"lms/models/learning"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RewardsSummary is the dashboard view of a user's points, badges, and
// certificates
type RewardsSummary struct {
	TotalPoints  float64                       `json:"total_points"`
	Gamification *learning.GamificationSummary `json:"gamification,omitempty"`
	Badges       []learning.Badge              `json:"badges"`
	Certificates []learning.Certificate        `json:"certificates"`
}

// Overachiever badge threshold in course points
const overachieverPoints = 150

// CheckBadgeEligibility evaluates one badge rule against current aggregates.
// Read-only; awarding is a separate step.
func CheckBadgeEligibility(db *gorm.DB, userID uint, badgeType string, scopeID uint) (bool, string, error) {
	switch badgeType {
	case learning.BadgeSpeedrun:
		return checkSpeedrun(db, userID, scopeID)
	case learning.BadgePerfectionist:
		return checkPerfectionist(db, userID, scopeID)
	case learning.BadgeEarlyBird:
		return checkEarlyBird(db, userID, scopeID)
	case learning.BadgeOverachiever:
		return checkOverachiever(db, userID, scopeID)
	case learning.BadgeConsistent:
		return checkConsistent(db, userID, scopeID)
	default:
		return false, "", fmt.Errorf("unknown badge type %q: %w", badgeType, ErrConfiguration)
	}
}

func pathModules(db *gorm.DB, pathID uint) ([]learning.Module, error) {
	var modules []learning.Module
	err := db.Where("path_id = ? AND is_deleted = ?", pathID, false).
		Order("order_index asc").
		Find(&modules).Error
	return modules, err
}

func moduleIDs(modules []learning.Module) []uint {
	ids := make([]uint, len(modules))
	for i, m := range modules {
		ids[i] = m.ID
	}
	return ids
}

// completedModules returns how many of the given modules the user has
// completed
func completedModules(db *gorm.DB, userID uint, ids []uint) (int64, error) {
	var count int64
	err := db.Model(&learning.ModuleProgress{}).
		Where("user_id = ? AND module_id IN ? AND module_completed = ? AND is_deleted = ?", userID, ids, true, false).
		Count(&count).Error
	return count, err
}

// checkSpeedrun: all modules in the path completed with nothing submitted
// late. The upstream material never pinned the "timely manner" criterion to
// a number; zero late submissions is the definition used here.
func checkSpeedrun(db *gorm.DB, userID, pathID uint) (bool, string, error) {
	modules, err := pathModules(db, pathID)
	if err != nil {
		return false, "", err
	}
	if len(modules) == 0 {
		return false, "path has no modules", nil
	}

	ids := moduleIDs(modules)
	completed, err := completedModules(db, userID, ids)
	if err != nil {
		return false, "", err
	}
	if completed < int64(len(modules)) {
		return false, fmt.Sprintf("%d of %d modules completed", completed, len(modules)), nil
	}

	var late int64
	if err := db.Model(&learning.AssessmentSubmission{}).
		Where("user_id = ? AND module_id IN ? AND deadline_status = ? AND is_deleted = ?", userID, ids, learning.DeadlineLate, false).
		Count(&late).Error; err != nil {
		return false, "", err
	}
	var lateProjects int64
	if err := db.Model(&learning.ProjectSubmission{}).
		Where("user_id = ? AND module_id IN ? AND deadline_status = ? AND is_deleted = ?", userID, ids, learning.DeadlineLate, false).
		Count(&lateProjects).Error; err != nil {
		return false, "", err
	}
	if late+lateProjects > 0 {
		return false, "late submissions in path", nil
	}

	return true, "all modules completed with no late submissions", nil
}

// checkPerfectionist: every assessment submission in the module is correct
func checkPerfectionist(db *gorm.DB, userID, moduleID uint) (bool, string, error) {
	var total, wrong int64
	if err := db.Model(&learning.AssessmentSubmission{}).
		Where("user_id = ? AND module_id = ? AND is_deleted = ?", userID, moduleID, false).
		Count(&total).Error; err != nil {
		return false, "", err
	}
	if total == 0 {
		return false, "no assessment submissions in module", nil
	}
	if err := db.Model(&learning.AssessmentSubmission{}).
		Where("user_id = ? AND module_id = ? AND is_correct = ? AND is_deleted = ?", userID, moduleID, false, false).
		Count(&wrong).Error; err != nil {
		return false, "", err
	}
	if wrong > 0 {
		return false, fmt.Sprintf("%d incorrect submissions", wrong), nil
	}
	return true, "every submission in module correct", nil
}

// checkEarlyBird: every assessment and project submission across the path
// landed in the first deadline tier. Evaluated once the path is complete so
// the badge cannot be awarded while submissions are still outstanding.
func checkEarlyBird(db *gorm.DB, userID, pathID uint) (bool, string, error) {
	modules, err := pathModules(db, pathID)
	if err != nil {
		return false, "", err
	}
	if len(modules) == 0 {
		return false, "path has no modules", nil
	}
	ids := moduleIDs(modules)

	completed, err := completedModules(db, userID, ids)
	if err != nil {
		return false, "", err
	}
	if completed < int64(len(modules)) {
		return false, fmt.Sprintf("%d of %d modules completed", completed, len(modules)), nil
	}

	var total, notFirst int64
	if err := db.Model(&learning.AssessmentSubmission{}).
		Where("user_id = ? AND module_id IN ? AND is_deleted = ?", userID, ids, false).
		Count(&total).Error; err != nil {
		return false, "", err
	}
	var projectTotal int64
	if err := db.Model(&learning.ProjectSubmission{}).
		Where("user_id = ? AND module_id IN ? AND is_deleted = ?", userID, ids, false).
		Count(&projectTotal).Error; err != nil {
		return false, "", err
	}
	total += projectTotal
	if total == 0 {
		return false, "no submissions in path", nil
	}

	if err := db.Model(&learning.AssessmentSubmission{}).
		Where("user_id = ? AND module_id IN ? AND deadline_status != ? AND is_deleted = ?", userID, ids, learning.DeadlineFirst, false).
		Count(&notFirst).Error; err != nil {
		return false, "", err
	}
	var projectsNotFirst int64
	if err := db.Model(&learning.ProjectSubmission{}).
		Where("user_id = ? AND module_id IN ? AND deadline_status != ? AND is_deleted = ?", userID, ids, learning.DeadlineFirst, false).
		Count(&projectsNotFirst).Error; err != nil {
		return false, "", err
	}
	if notFirst+projectsNotFirst > 0 {
		return false, "submissions outside the first deadline", nil
	}
	return true, "every submission within the first deadline", nil
}

// checkOverachiever: at least 150 points earned across the course
func checkOverachiever(db *gorm.DB, userID, courseID uint) (bool, string, error) {
	points, err := coursePoints(db, userID, courseID)
	if err != nil {
		return false, "", err
	}
	if points < overachieverPoints {
		return false, fmt.Sprintf("%.0f of %d points earned", points, overachieverPoints), nil
	}
	return true, fmt.Sprintf("%.0f points earned", points), nil
}

func coursePoints(db *gorm.DB, userID, courseID uint) (float64, error) {
	var points float64
	row := db.Model(&learning.ModuleProgress{}).
		Joins("JOIN modules ON modules.id = module_progresses.module_id").
		Joins("JOIN paths ON paths.id = modules.path_id").
		Where("module_progresses.user_id = ? AND paths.course_id = ? AND module_progresses.is_deleted = ?", userID, courseID, false).
		Select("COALESCE(SUM(module_progresses.total_points_earned), 0)").Row()
	err := row.Scan(&points)
	return points, err
}

// checkConsistent: modules completed strictly in path order, all of them
func checkConsistent(db *gorm.DB, userID, pathID uint) (bool, string, error) {
	modules, err := pathModules(db, pathID)
	if err != nil {
		return false, "", err
	}
	if len(modules) == 0 {
		return false, "path has no modules", nil
	}

	firstIncomplete := -1
	for i, module := range modules {
		var prog learning.ModuleProgress
		err := db.Where("user_id = ? AND module_id = ? AND is_deleted = ?", userID, module.ID, false).First(&prog).Error
		completed := err == nil && prog.ModuleCompleted
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return false, "", err
		}

		if !completed && firstIncomplete < 0 {
			firstIncomplete = i
			continue
		}
		if completed && firstIncomplete >= 0 {
			return false, fmt.Sprintf("module %q completed before %q", module.Title, modules[firstIncomplete].Title), nil
		}
	}
	if firstIncomplete >= 0 {
		return false, fmt.Sprintf("module %q not completed yet", modules[firstIncomplete].Title), nil
	}
	return true, "all modules completed in order", nil
}

// CheckCertificateEligibility: every module in the path completed, which by
// construction means every assessment passed and every project approved
func CheckCertificateEligibility(db *gorm.DB, userID, pathID uint) (bool, string, error) {
	modules, err := pathModules(db, pathID)
	if err != nil {
		return false, "", err
	}
	if len(modules) == 0 {
		return false, "path has no modules", nil
	}

	completed, err := completedModules(db, userID, moduleIDs(modules))
	if err != nil {
		return false, "", err
	}
	if completed < int64(len(modules)) {
		return false, fmt.Sprintf("%d of %d modules completed", completed, len(modules)), nil
	}
	return true, "all modules completed", nil
}

// AwardBadge inserts the badge, relying on the (user, type, scope) unique
// index for at-most-once semantics. A duplicate-key error means a concurrent
// or earlier evaluation already awarded it; that is success, not failure.
func AwardBadge(db *gorm.DB, now time.Time, userID uint, badgeType string, scopeID uint, description string) (*learning.Badge, error) {
	badge := learning.Badge{
		UserID:      userID,
		BadgeType:   badgeType,
		ScopeID:     scopeID,
		Description: description,
		AwardedAt:   now,
	}
	if err := db.Create(&badge).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyProcessed
		}
		return nil, err
	}
	return &badge, nil
}

// IssueCertificate issues the path certificate at most once per (user, path).
// Re-issuing after it exists is a no-op returning the existing certificate.
func IssueCertificate(db *gorm.DB, now time.Time, userID, pathID uint) (*learning.Certificate, error) {
	cert := learning.Certificate{
		UserID:            userID,
		PathID:            pathID,
		CertificateNumber: uuid.NewString(),
		CertificateURL:    fmt.Sprintf("/certificates/%d/%d", userID, pathID),
		IssuedAt:          now,
	}
	if err := db.Create(&cert).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			var existing learning.Certificate
			if ferr := db.Where("user_id = ? AND path_id = ? AND is_deleted = ?", userID, pathID, false).
				First(&existing).Error; ferr == nil {
				return &existing, nil
			}
			return nil, ErrAlreadyProcessed
		}
		return nil, err
	}
	return &cert, nil
}

// EvaluateRewards runs every reward rule for the user against one path and
// awards whatever became eligible. Award failures are logged and skipped;
// eligibility is re-derivable, so the next trigger retries them.
func EvaluateRewards(db *gorm.DB, now time.Time, userID, pathID uint) {
	var path learning.Path
	if err := db.Where("id = ? AND is_deleted = ?", pathID, false).First(&path).Error; err != nil {
		log.Printf("[REWARDS] path %d not found: %v", pathID, err)
		return
	}

	pathBadges := []string{learning.BadgeSpeedrun, learning.BadgeEarlyBird, learning.BadgeConsistent}
	for _, badgeType := range pathBadges {
		evaluateBadge(db, now, userID, badgeType, pathID)
	}

	evaluateBadge(db, now, userID, learning.BadgeOverachiever, path.CourseID)

	modules, err := pathModules(db, pathID)
	if err != nil {
		log.Printf("[REWARDS] listing modules for path %d: %v", pathID, err)
		return
	}
	for _, module := range modules {
		evaluateBadge(db, now, userID, learning.BadgePerfectionist, module.ID)
	}

	// Eligibility read and certificate write share one transaction so the
	// issue cannot be based on a view another writer has since changed
	err = db.Transaction(func(tx *gorm.DB) error {
		eligible, _, err := CheckCertificateEligibility(tx, userID, pathID)
		if err != nil {
			return err
		}
		if !eligible {
			return nil
		}
		_, err = IssueCertificate(tx, now, userID, pathID)
		return err
	})
	if err != nil && !errors.Is(err, ErrAlreadyProcessed) {
		log.Printf("[REWARDS] issuing certificate for user %d path %d: %v", userID, pathID, err)
	}
}

// evaluateBadge runs one badge rule and awards it in the same transaction as
// the eligibility read
func evaluateBadge(db *gorm.DB, now time.Time, userID uint, badgeType string, scopeID uint) {
	err := db.Transaction(func(tx *gorm.DB) error {
		eligible, reason, err := CheckBadgeEligibility(tx, userID, badgeType, scopeID)
		if err != nil {
			return err
		}
		if !eligible {
			return nil
		}
		_, err = AwardBadge(tx, now, userID, badgeType, scopeID, reason)
		return err
	})
	if err != nil && !errors.Is(err, ErrAlreadyProcessed) {
		log.Printf("[REWARDS] %s for user %d: %v", badgeType, userID, err)
	}
}

// GetRewardsSummary aggregates a user's points, badges, and certificates for
// dashboards. With a course filter, points are restricted to that course.
func GetRewardsSummary(db *gorm.DB, userID uint, courseID *uint) (*RewardsSummary, error) {
	summary := &RewardsSummary{Badges: []learning.Badge{}, Certificates: []learning.Certificate{}}

	if courseID != nil {
		points, err := coursePoints(db, userID, *courseID)
		if err != nil {
			return nil, err
		}
		summary.TotalPoints = points
	} else {
		row := db.Model(&learning.ModuleProgress{}).
			Where("user_id = ? AND is_deleted = ?", userID, false).
			Select("COALESCE(SUM(total_points_earned), 0)").Row()
		if err := row.Scan(&summary.TotalPoints); err != nil {
			return nil, err
		}
	}

	var gamification learning.GamificationSummary
	if err := db.Where("user_id = ?", userID).First(&gamification).Error; err == nil {
		summary.Gamification = &gamification
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := db.Where("user_id = ? AND is_deleted = ?", userID, false).
		Order("awarded_at desc").Find(&summary.Badges).Error; err != nil {
		return nil, err
	}
	if err := db.Where("user_id = ? AND is_deleted = ?", userID, false).
		Order("issued_at desc").Find(&summary.Certificates).Error; err != nil {
		return nil, err
	}

	return summary, nil
}
