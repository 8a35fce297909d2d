// Package tree assembles the Course -> Section -> Activity hierarchy and the
// flat projections derived from it.
package tree

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"course-dashboard/internal/concurrency"
	"course-dashboard/internal/domain"
	"course-dashboard/internal/logger"
	"course-dashboard/internal/mappers"
	"course-dashboard/internal/progress"
	"course-dashboard/internal/providers"
	"course-dashboard/internal/providers/moodle"
	"course-dashboard/internal/tracing"
)

// Builder turns enrolments into progress trees.
type Builder struct {
	LMS    providers.LMS
	Logger *zap.Logger
	// Workers bounds concurrent course fetches; 0 or 1 fetches one course
	// at a time.
	Workers int
}

// Result is the tree plus the courses dropped on the way.
type Result struct {
	Courses  []domain.CourseNode
	Failures []domain.CourseFailure
}

// Build fetches and assembles every course. A course whose contents cannot be
// fetched is omitted and recorded; the others are unaffected.
func (b *Builder) Build(ctx context.Context, courses []moodle.Course) Result {
	ctx, span := tracing.Start(ctx, "tree.build")
	defer span.End()

	log := logger.OrNop(b.Logger)
	opts := concurrency.Sequential()
	if b.Workers > 1 {
		opts = concurrency.ParallelOptions{MaxWorkers: b.Workers}
	}

	results := concurrency.ProcessParallel(ctx, courses, opts, func(ctx context.Context, _ int, c moodle.Course) (domain.CourseNode, error) {
		return b.Course(ctx, c)
	})

	out := Result{Courses: make([]domain.CourseNode, 0, len(courses))}
	for i, r := range results {
		if r.Err != nil {
			id := courses[i].ID.Int()
			log.Warn("course dropped from tree", zap.Int("course_id", id), zap.Error(r.Err))
			out.Failures = append(out.Failures, domain.CourseFailure{CourseID: id, Error: r.Err.Error()})
			continue
		}
		out.Courses = append(out.Courses, r.Value)
	}
	return out
}

// Course builds one course node with computed progress.
func (b *Builder) Course(ctx context.Context, c moodle.Course) (domain.CourseNode, error) {
	origin := b.LMS.Origin()
	node := mappers.Course(c, origin)

	sections, err := b.LMS.CourseContents(ctx, node.ID)
	if err != nil {
		return domain.CourseNode{}, fmt.Errorf("course %d contents: %w", node.ID, err)
	}

	for _, s := range sections {
		sec, ok := mappers.Section(s, node.ID)
		if !ok {
			// Unnamed sections and their modules are left out entirely.
			continue
		}
		for _, m := range s.Modules {
			if !visible(m) {
				continue
			}
			sec.Activities = append(sec.Activities, mappers.Activity(m, node.ID, sec, origin))
		}
		node.Sections = append(node.Sections, sec)
	}
	progress.Apply(&node)
	return node, nil
}

// visible drops modules the LMS lists but the learner cannot open.
func visible(m moodle.Module) bool {
	if m.UserVisible != nil && !bool(*m.UserVisible) {
		return false
	}
	return true
}
