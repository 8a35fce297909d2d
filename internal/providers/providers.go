package providers

import (
	"context"

	"course-dashboard/internal/providers/moodle"
)

// LMS is everything the dashboard reads from the learning platform.
// Payloads stay in the platform's raw shape; mapping happens downstream.
type LMS interface {
	Origin() string
	SiteInfo(ctx context.Context) (moodle.SiteInfo, error)

	ListUserCourses(ctx context.Context, userID int) ([]moodle.Course, error)
	CourseContents(ctx context.Context, courseID int) ([]moodle.Section, error)

	GradeItems(ctx context.Context, userID, courseID int) ([]moodle.GradeItem, error)
	CourseGrades(ctx context.Context, userID int) ([]moodle.CourseGrade, error)

	ListCompetencies(ctx context.Context) ([]moodle.Competency, error)
	UserCompetency(ctx context.Context, userID, competencyID int) (*moodle.UserCompetency, error)

	UserBadges(ctx context.Context, userID, courseID int) ([]moodle.Badge, error)
	Badge(ctx context.Context, badgeID int) (moodle.Badge, error)

	CourseModule(ctx context.Context, cmID int) (moodle.CourseModule, error)
	Quiz(ctx context.Context, courseID, cmID int) (moodle.Quiz, error)
	Assignment(ctx context.Context, courseID, cmID int) (moodle.Assignment, error)
	SCORM(ctx context.Context, courseID, cmID int) (moodle.SCORM, error)
	ModuleDetail(ctx context.Context, modName string, courseID, cmID int) (moodle.ModuleDetail, error)
}

var _ LMS = (*moodle.Client)(nil)
