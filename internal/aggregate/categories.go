package aggregate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"course-dashboard/internal/cache"
	"course-dashboard/internal/concurrency"
	"course-dashboard/internal/domain"
	"course-dashboard/internal/httpx"
	"course-dashboard/internal/mappers"
	"course-dashboard/internal/monitoring"
	"course-dashboard/internal/providers/moodle"
	"course-dashboard/internal/tracing"
	"course-dashboard/internal/tree"
)

// Load sources recorded on CategoryFailure and the category_loads metric.
const (
	SourceLive  = "live"
	SourceCache = "cache"
	SourceSeed  = "seed"
	SourceEmpty = "empty"
)

// job is one category of the fan-out.
type job interface {
	category() domain.Category
	run(ctx context.Context, p *pass) error
	warm(ctx context.Context, o *Orchestrator, into *domain.Snapshot) (bool, error)
}

// slot binds a category to its fetch and to its field of the snapshot.
type slot[T any] struct {
	cat   domain.Category
	fetch func(ctx context.Context, p *pass) (T, []domain.CourseFailure, error)
	get   func(*domain.Snapshot) T
	set   func(*domain.Snapshot, T)
}

func (s slot[T]) category() domain.Category { return s.cat }

func (s slot[T]) run(ctx context.Context, p *pass) (err error) {
	ctx, span := tracing.Start(ctx, "aggregate."+string(s.cat))
	defer func() { tracing.End(span, err) }()

	o := p.o
	var (
		v        T
		failures []domain.CourseFailure
	)
	cfg := httpx.RetryConfig{MaxAttempts: o.opts.Retries, BaseDelay: o.opts.RetryDelay}
	err = httpx.Retry(ctx, cfg, retryable, func(ctx context.Context) error {
		var ferr error
		v, failures, ferr = s.fetch(ctx, p)
		return ferr
	})

	if err == nil {
		// a pass cancelled mid-build reports its courses as failures, not as an error
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		for i := range failures {
			failures[i].Category = s.cat
		}
		p.mu.Lock()
		s.set(&p.snap, v)
		p.snap.CourseFailures = append(p.snap.CourseFailures, failures...)
		p.mu.Unlock()

		if o.store != nil && !p.everyCourseFailed(ctx, failures) {
			if perr := cache.Put(ctx, o.store, cache.Key(o.opts.UserID, s.cat), v, p.now); perr != nil {
				o.log.Warn("cache write failed", zap.String("category", string(s.cat)), zap.Error(perr))
			}
		}
		monitoring.CategoryLoads.WithLabelValues(string(s.cat), SourceLive).Inc()
		return nil
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if o.opts.Policy == PolicyBatch {
		return fmt.Errorf("%s: %w", s.cat, err)
	}

	fallback, source := s.fallback(ctx, p)
	o.log.Warn("category degraded",
		zap.String("category", string(s.cat)),
		zap.String("source", source),
		zap.Error(err))
	monitoring.CategoryLoads.WithLabelValues(string(s.cat), source).Inc()

	p.mu.Lock()
	s.set(&p.snap, fallback)
	p.snap.Failures = append(p.snap.Failures, domain.CategoryFailure{
		Category: s.cat,
		Error:    err.Error(),
		Offline:  httpx.IsOffline(err),
		Source:   source,
	})
	p.mu.Unlock()
	return nil
}

// fallback picks the cached value, then the caller's seed, then nothing.
func (s slot[T]) fallback(ctx context.Context, p *pass) (T, string) {
	o := p.o
	if o.store != nil {
		v, _, ok, err := cache.Fetch[T](ctx, o.store, cache.Key(o.opts.UserID, s.cat), o.opts.CacheMaxAge, p.now)
		if err != nil {
			o.log.Warn("cache read failed", zap.String("category", string(s.cat)), zap.Error(err))
		}
		if ok {
			return v, SourceCache
		}
	}
	if o.opts.Seed != nil {
		return s.get(o.opts.Seed), SourceSeed
	}
	var zero T
	return zero, SourceEmpty
}

func (s slot[T]) warm(ctx context.Context, o *Orchestrator, into *domain.Snapshot) (bool, error) {
	v, at, ok, err := cache.Fetch[T](ctx, o.store, cache.Key(o.opts.UserID, s.cat), o.opts.CacheMaxAge, o.opts.Now())
	if err != nil || !ok {
		return false, err
	}
	s.set(into, v)
	if into.BuiltAt.IsZero() || at.Before(into.BuiltAt) {
		into.BuiltAt = at
	}
	return true, nil
}

// retryable keeps category retries to failures a second attempt can fix.
func retryable(err error) bool {
	if httpx.IsOffline(err) {
		return true
	}
	var herr *httpx.HTTPError
	return errors.As(err, &herr) && herr.StatusCode >= 500
}

// courseList is the payload of the courses category.
type courseList struct {
	Courses []domain.CourseNode  `json:"courses"`
	Lessons []domain.ActivityRef `json:"lessons"`
}

func categories() []job {
	return []job{
		slot[courseList]{
			cat: domain.CategoryCourses,
			fetch: func(ctx context.Context, p *pass) (courseList, []domain.CourseFailure, error) {
				res, err := p.tree(ctx)
				if err != nil {
					return courseList{}, nil, err
				}
				return courseList{
					Courses: tree.StripSections(res.Courses),
					Lessons: tree.Activities(res.Courses, tree.Lessons),
				}, res.Failures, nil
			},
			get: func(s *domain.Snapshot) courseList { return courseList{Courses: s.Courses, Lessons: s.Lessons} },
			set: func(s *domain.Snapshot, v courseList) { s.Courses, s.Lessons = v.Courses, v.Lessons },
		},
		slot[[]domain.SectionRef]{
			cat: domain.CategorySections,
			fetch: func(ctx context.Context, p *pass) ([]domain.SectionRef, []domain.CourseFailure, error) {
				res, err := p.tree(ctx)
				if err != nil {
					return nil, nil, err
				}
				return tree.Sections(res.Courses), res.Failures, nil
			},
			get: func(s *domain.Snapshot) []domain.SectionRef { return s.Sections },
			set: func(s *domain.Snapshot, v []domain.SectionRef) { s.Sections = v },
		},
		slot[[]domain.ActivityRef]{
			cat: domain.CategoryActivities,
			fetch: func(ctx context.Context, p *pass) ([]domain.ActivityRef, []domain.CourseFailure, error) {
				res, err := p.tree(ctx)
				if err != nil {
					return nil, nil, err
				}
				return tree.Activities(res.Courses, tree.Interactive), res.Failures, nil
			},
			get: func(s *domain.Snapshot) []domain.ActivityRef { return s.Activities },
			set: func(s *domain.Snapshot, v []domain.ActivityRef) { s.Activities = v },
		},
		slot[[]domain.CourseNode]{
			cat: domain.CategoryTree,
			fetch: func(ctx context.Context, p *pass) ([]domain.CourseNode, []domain.CourseFailure, error) {
				res, err := p.tree(ctx)
				if err != nil {
					return nil, nil, err
				}
				return res.Courses, res.Failures, nil
			},
			get: func(s *domain.Snapshot) []domain.CourseNode { return s.Tree },
			set: func(s *domain.Snapshot, v []domain.CourseNode) { s.Tree = v },
		},
		slot[[]domain.ScheduleEvent]{
			cat: domain.CategorySchedule,
			fetch: func(ctx context.Context, p *pass) ([]domain.ScheduleEvent, []domain.CourseFailure, error) {
				res, err := p.tree(ctx)
				if err != nil {
					return nil, nil, err
				}
				return tree.Schedule(res.Courses, p.now), res.Failures, nil
			},
			get: func(s *domain.Snapshot) []domain.ScheduleEvent { return s.Events },
			set: func(s *domain.Snapshot, v []domain.ScheduleEvent) { s.Events = v },
		},
		slot[domain.Profile]{
			cat: domain.CategoryProfile,
			fetch: func(ctx context.Context, p *pass) (domain.Profile, []domain.CourseFailure, error) {
				info, err := p.lms.SiteInfo(ctx)
				if err != nil {
					return domain.Profile{}, nil, err
				}
				return mappers.Profile(info), nil, nil
			},
			get: func(s *domain.Snapshot) domain.Profile { return s.Profile },
			set: func(s *domain.Snapshot, v domain.Profile) { s.Profile = v },
		},
		slot[[]domain.ActivityRef]{
			cat: domain.CategoryResources,
			fetch: func(ctx context.Context, p *pass) ([]domain.ActivityRef, []domain.CourseFailure, error) {
				res, err := p.tree(ctx)
				if err != nil {
					return nil, nil, err
				}
				return tree.Activities(res.Courses, nil), res.Failures, nil
			},
			get: func(s *domain.Snapshot) []domain.ActivityRef { return s.Resources },
			set: func(s *domain.Snapshot, v []domain.ActivityRef) { s.Resources = v },
		},
		slot[[]domain.GradeRecord]{
			cat:   domain.CategoryGrades,
			fetch: grades,
			get:   func(s *domain.Snapshot) []domain.GradeRecord { return s.Grades },
			set:   func(s *domain.Snapshot, v []domain.GradeRecord) { s.Grades = v },
		},
		slot[[]domain.CompetencyRecord]{
			cat:   domain.CategoryCompetencies,
			fetch: competencies,
			get:   func(s *domain.Snapshot) []domain.CompetencyRecord { return s.Competencies },
			set:   func(s *domain.Snapshot, v []domain.CompetencyRecord) { s.Competencies = v },
		},
		slot[[]domain.BadgeRecord]{
			cat:   domain.CategoryBadges,
			fetch: badges,
			get:   func(s *domain.Snapshot) []domain.BadgeRecord { return s.Badges },
			set:   func(s *domain.Snapshot, v []domain.BadgeRecord) { s.Badges = v },
		},
	}
}

// tree builds the course tree for one category. Course listings and contents
// are shared through the pass cache, so categories pay for each course once.
func (p *pass) tree(ctx context.Context) (tree.Result, error) {
	courses, err := p.courses(ctx)
	if err != nil {
		return tree.Result{}, err
	}
	res := p.builder.Build(ctx, courses)
	if err := ctx.Err(); err != nil {
		return tree.Result{}, err
	}
	return res, nil
}

// everyCourseFailed reports whether failures cover the whole course list.
// Such a result is published but not cached, so it cannot replace the last
// good entry.
func (p *pass) everyCourseFailed(ctx context.Context, failures []domain.CourseFailure) bool {
	if len(failures) == 0 {
		return false
	}
	courses, err := p.courses(ctx)
	if err != nil {
		return true
	}
	failed := make(map[int]bool, len(failures))
	for _, f := range failures {
		failed[f.CourseID] = true
	}
	return len(failed) >= len(courses)
}

func (p *pass) courses(ctx context.Context) ([]moodle.Course, error) {
	uid, err := p.userID(ctx)
	if err != nil {
		return nil, err
	}
	courses, err := p.lms.ListUserCourses(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

func (p *pass) workers() concurrency.ParallelOptions {
	if p.o.opts.Workers > 1 {
		return concurrency.ParallelOptions{MaxWorkers: p.o.opts.Workers}
	}
	return concurrency.Sequential()
}

// grades reads each course's grade report. A course whose report fails falls
// back to its row in the bulk overview, fetched once and only if needed.
func grades(ctx context.Context, p *pass) ([]domain.GradeRecord, []domain.CourseFailure, error) {
	uid, err := p.userID(ctx)
	if err != nil {
		return nil, nil, err
	}
	courses, err := p.courses(ctx)
	if err != nil {
		return nil, nil, err
	}

	var (
		overviewOnce sync.Once
		overview     map[int]moodle.CourseGrade
		overviewErr  error
	)
	loadOverview := func(ctx context.Context) (map[int]moodle.CourseGrade, error) {
		overviewOnce.Do(func() {
			rows, err := p.lms.CourseGrades(ctx, uid)
			if err != nil {
				overviewErr = err
				return
			}
			overview = make(map[int]moodle.CourseGrade, len(rows))
			for _, r := range rows {
				overview[r.CourseID.Int()] = r
			}
		})
		return overview, overviewErr
	}

	origin := p.lms.Origin()
	results := concurrency.ProcessParallel(ctx, courses, p.workers(), func(ctx context.Context, _ int, c moodle.Course) ([]domain.GradeRecord, error) {
		id := c.ID.Int()
		items, err := p.lms.GradeItems(ctx, uid, id)
		if err == nil {
			out := make([]domain.GradeRecord, 0, len(items))
			for _, it := range items {
				out = append(out, mappers.GradeItem(id, it))
			}
			return out, nil
		}

		rows, oerr := loadOverview(ctx)
		if oerr != nil {
			return nil, fmt.Errorf("course %d grades: %w", id, err)
		}
		row, ok := rows[id]
		if !ok {
			return nil, fmt.Errorf("course %d grades: %w", id, err)
		}
		p.o.log.Info("using overview grade", zap.Int("course_id", id), zap.Error(err))
		return []domain.GradeRecord{mappers.CourseGrade(row, mappers.Course(c, origin).Name)}, nil
	})

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var (
		out      []domain.GradeRecord
		failures []domain.CourseFailure
	)
	for i, r := range results {
		if r.Err != nil {
			id := courses[i].ID.Int()
			p.o.log.Warn("course dropped from grades", zap.Int("course_id", id), zap.Error(r.Err))
			failures = append(failures, domain.CourseFailure{CourseID: id, Error: r.Err.Error()})
			continue
		}
		out = append(out, r.Value...)
	}
	return out, failures, nil
}

// competencies lists the framework competencies and rates each one for the
// learner. A rating that cannot be read leaves the competency unrated.
func competencies(ctx context.Context, p *pass) ([]domain.CompetencyRecord, []domain.CourseFailure, error) {
	uid, err := p.userID(ctx)
	if err != nil {
		return nil, nil, err
	}
	list, err := p.lms.ListCompetencies(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list competencies: %w", err)
	}

	out := make([]domain.CompetencyRecord, len(list))
	concurrency.ForEach(ctx, list, p.workers(), func(ctx context.Context, i int, c moodle.Competency) error {
		uc, err := p.lms.UserCompetency(ctx, uid, c.ID.Int())
		if err != nil {
			if !errors.Is(err, moodle.ErrNotFound) {
				p.o.log.Warn("competency rating unavailable", zap.Int("competency_id", c.ID.Int()), zap.Error(err))
			}
			uc = nil
		}
		out[i] = mappers.Competency(c, uc)
		return nil
	})
	if ctx.Err() != nil {
		return nil, nil, ctx.Err()
	}
	return out, nil, nil
}

// badges lists the learner's badges. Entries returned without a name are
// completed from the individual badge lookup.
func badges(ctx context.Context, p *pass) ([]domain.BadgeRecord, []domain.CourseFailure, error) {
	uid, err := p.userID(ctx)
	if err != nil {
		return nil, nil, err
	}
	list, err := p.lms.UserBadges(ctx, uid, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("user badges: %w", err)
	}

	out := make([]domain.BadgeRecord, 0, len(list))
	for _, b := range list {
		if b.Name == "" && b.ID.Int() > 0 {
			full, err := p.lms.Badge(ctx, b.ID.Int())
			if err != nil {
				p.o.log.Warn("badge lookup failed", zap.Int("badge_id", b.ID.Int()), zap.Error(err))
			} else {
				if full.DateIssued.Int() == 0 {
					full.DateIssued = b.DateIssued
				}
				b = full
			}
		}
		out = append(out, mappers.Badge(b))
	}
	return out, nil, nil
}
