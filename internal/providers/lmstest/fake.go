// Package lmstest provides an in-memory LMS for tests.
package lmstest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"course-dashboard/internal/providers"
	"course-dashboard/internal/providers/moodle"
)

var _ providers.LMS = (*Fake)(nil)

// Fake serves canned payloads. Errors can be injected per operation name
// (the method name, e.g. "CourseContents") or per course for CourseContents.
type Fake struct {
	OriginURL string

	Site         moodle.SiteInfo
	Courses      []moodle.Course
	Contents     map[int][]moodle.Section
	Items        map[int][]moodle.GradeItem
	Overview     []moodle.CourseGrade
	Competencies []moodle.Competency
	UserComps    map[int]*moodle.UserCompetency
	Badges       []moodle.Badge
	Modules      map[int]moodle.CourseModule
	Quizzes      map[int]moodle.Quiz
	Assignments  map[int]moodle.Assignment
	SCORMs       map[int]moodle.SCORM
	Details      map[int]moodle.ModuleDetail

	// Delay is applied to every call; it honours cancellation.
	Delay time.Duration

	mu          sync.Mutex
	errs        map[string]error
	contentErrs map[int]error
	calls       map[string]int
}

// Fail makes op return err until cleared with Fail(op, nil).
func (f *Fake) Fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errs == nil {
		f.errs = map[string]error{}
	}
	if err == nil {
		delete(f.errs, op)
		return
	}
	f.errs[op] = err
}

// FailCourse makes CourseContents fail for one course only.
func (f *Fake) FailCourse(courseID int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.contentErrs == nil {
		f.contentErrs = map[int]error{}
	}
	if err == nil {
		delete(f.contentErrs, courseID)
		return
	}
	f.contentErrs[courseID] = err
}

// Calls returns how many times op was invoked.
func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *Fake) enter(ctx context.Context, op string) error {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[op]++
	err := f.errs[op]
	delay := f.Delay
	f.mu.Unlock()

	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return err
}

func notFound(what string, id int) error {
	return fmt.Errorf("%w: %s %d", moodle.ErrNotFound, what, id)
}

func (f *Fake) Origin() string {
	if f.OriginURL == "" {
		return "https://lms.example.test"
	}
	return f.OriginURL
}

func (f *Fake) SiteInfo(ctx context.Context) (moodle.SiteInfo, error) {
	if err := f.enter(ctx, "SiteInfo"); err != nil {
		return moodle.SiteInfo{}, err
	}
	return f.Site, nil
}

func (f *Fake) ListUserCourses(ctx context.Context, userID int) ([]moodle.Course, error) {
	if err := f.enter(ctx, "ListUserCourses"); err != nil {
		return nil, err
	}
	return f.Courses, nil
}

func (f *Fake) CourseContents(ctx context.Context, courseID int) ([]moodle.Section, error) {
	if err := f.enter(ctx, "CourseContents"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	err := f.contentErrs[courseID]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.Contents[courseID], nil
}

func (f *Fake) GradeItems(ctx context.Context, userID, courseID int) ([]moodle.GradeItem, error) {
	if err := f.enter(ctx, "GradeItems"); err != nil {
		return nil, err
	}
	return f.Items[courseID], nil
}

func (f *Fake) CourseGrades(ctx context.Context, userID int) ([]moodle.CourseGrade, error) {
	if err := f.enter(ctx, "CourseGrades"); err != nil {
		return nil, err
	}
	return f.Overview, nil
}

func (f *Fake) ListCompetencies(ctx context.Context) ([]moodle.Competency, error) {
	if err := f.enter(ctx, "ListCompetencies"); err != nil {
		return nil, err
	}
	return f.Competencies, nil
}

func (f *Fake) UserCompetency(ctx context.Context, userID, competencyID int) (*moodle.UserCompetency, error) {
	if err := f.enter(ctx, "UserCompetency"); err != nil {
		return nil, err
	}
	return f.UserComps[competencyID], nil
}

func (f *Fake) UserBadges(ctx context.Context, userID, courseID int) ([]moodle.Badge, error) {
	if err := f.enter(ctx, "UserBadges"); err != nil {
		return nil, err
	}
	if courseID <= 0 {
		return f.Badges, nil
	}
	var out []moodle.Badge
	for _, b := range f.Badges {
		if b.CourseID != nil && b.CourseID.Int() == courseID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *Fake) Badge(ctx context.Context, badgeID int) (moodle.Badge, error) {
	if err := f.enter(ctx, "Badge"); err != nil {
		return moodle.Badge{}, err
	}
	for _, b := range f.Badges {
		if b.ID.Int() == badgeID {
			return b, nil
		}
	}
	return moodle.Badge{}, notFound("badge", badgeID)
}

func (f *Fake) CourseModule(ctx context.Context, cmID int) (moodle.CourseModule, error) {
	if err := f.enter(ctx, "CourseModule"); err != nil {
		return moodle.CourseModule{}, err
	}
	cm, ok := f.Modules[cmID]
	if !ok {
		return moodle.CourseModule{}, notFound("course module", cmID)
	}
	return cm, nil
}

func (f *Fake) Quiz(ctx context.Context, courseID, cmID int) (moodle.Quiz, error) {
	if err := f.enter(ctx, "Quiz"); err != nil {
		return moodle.Quiz{}, err
	}
	q, ok := f.Quizzes[cmID]
	if !ok {
		return moodle.Quiz{}, notFound("quiz cm", cmID)
	}
	return q, nil
}

func (f *Fake) Assignment(ctx context.Context, courseID, cmID int) (moodle.Assignment, error) {
	if err := f.enter(ctx, "Assignment"); err != nil {
		return moodle.Assignment{}, err
	}
	a, ok := f.Assignments[cmID]
	if !ok {
		return moodle.Assignment{}, notFound("assignment cm", cmID)
	}
	return a, nil
}

func (f *Fake) SCORM(ctx context.Context, courseID, cmID int) (moodle.SCORM, error) {
	if err := f.enter(ctx, "SCORM"); err != nil {
		return moodle.SCORM{}, err
	}
	s, ok := f.SCORMs[cmID]
	if !ok {
		return moodle.SCORM{}, notFound("scorm cm", cmID)
	}
	return s, nil
}

func (f *Fake) ModuleDetail(ctx context.Context, modName string, courseID, cmID int) (moodle.ModuleDetail, error) {
	if err := f.enter(ctx, "ModuleDetail"); err != nil {
		return moodle.ModuleDetail{}, err
	}
	d, ok := f.Details[cmID]
	if !ok {
		return moodle.ModuleDetail{}, notFound(modName+" cm", cmID)
	}
	return d, nil
}
