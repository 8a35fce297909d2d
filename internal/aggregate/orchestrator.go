// Package aggregate runs dashboard aggregation passes: one fan-out over every
// data category, joined into a single immutable snapshot.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"course-dashboard/internal/cache"
	"course-dashboard/internal/domain"
	"course-dashboard/internal/httpx"
	"course-dashboard/internal/logger"
	"course-dashboard/internal/monitoring"
	"course-dashboard/internal/providers"
	"course-dashboard/internal/tracing"
	"course-dashboard/internal/tree"
)

// ErrSuperseded is returned by Refresh when a newer pass started before this
// one finished. The older pass's results are discarded.
var ErrSuperseded = errors.New("aggregate: pass superseded")

// Policy decides what a failed category does to the snapshot.
type Policy string

const (
	// PolicyCategory degrades only the failing category.
	PolicyCategory Policy = "category"
	// PolicyBatch treats any failed category as a failed pass.
	PolicyBatch Policy = "batch"
)

// ParsePolicy maps a config value to a Policy; unknown values mean category.
func ParsePolicy(s string) Policy {
	if strings.EqualFold(strings.TrimSpace(s), string(PolicyBatch)) {
		return PolicyBatch
	}
	return PolicyCategory
}

// Options configures an Orchestrator.
type Options struct {
	// UserID is the learner; 0 resolves it from the token's site info.
	UserID int
	Policy Policy
	// Workers bounds per-course fetches inside a category. 0 or 1 is sequential.
	Workers int
	// Retries is the number of attempts per category, at least 1.
	Retries    int
	RetryDelay time.Duration
	// CacheMaxAge bounds how old a cached category may be to stand in for a
	// failed one. Zero accepts any age.
	CacheMaxAge time.Duration
	// Seed is caller-supplied data used when a category has nothing better.
	Seed *domain.Snapshot
	Now  func() time.Time
}

// Orchestrator owns the current State. Current never blocks on a pass.
type Orchestrator struct {
	lms   providers.LMS
	store cache.Store
	log   *zap.Logger
	opts  Options
	jobs  []job

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	state  domain.State
}

// New builds an Orchestrator. store may be nil to run without a cache.
func New(lms providers.LMS, store cache.Store, log *zap.Logger, opts Options) *Orchestrator {
	if opts.Policy == "" {
		opts.Policy = PolicyCategory
	}
	if opts.Retries < 1 {
		opts.Retries = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		lms:   lms,
		store: store,
		log:   logger.OrNop(log),
		opts:  opts,
		jobs:  categories(),
		state: domain.State{Status: domain.StatusIdle},
	}
}

// Current returns the latest published state.
func (o *Orchestrator) Current() domain.State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Generation is the number of the latest started pass.
func (o *Orchestrator) Generation() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.gen
}

// Refresh runs a pass and publishes its result. Any pass still in flight is
// cancelled first.
func (o *Orchestrator) Refresh(ctx context.Context) (domain.State, error) {
	gen, passCtx, cancel := o.begin(ctx)
	defer cancel()
	return o.complete(passCtx, gen)
}

// Trigger starts a pass in the background and returns its generation.
func (o *Orchestrator) Trigger() uint64 {
	gen, passCtx, cancel := o.begin(context.Background())
	go func() {
		defer cancel()
		if _, err := o.complete(passCtx, gen); err != nil && !errors.Is(err, ErrSuperseded) {
			o.log.Warn("background refresh failed", zap.Uint64("generation", gen), zap.Error(err))
		}
	}()
	return gen
}

// Stop cancels the pass in flight, if any. The published snapshot is kept.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
}

func (o *Orchestrator) begin(ctx context.Context) (uint64, context.Context, context.CancelFunc) {
	passCtx, cancel := context.WithCancel(ctx)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
	}
	o.gen++
	o.cancel = cancel
	o.state.Status = domain.StatusLoading
	o.state.Stale = o.state.Snapshot != nil
	return o.gen, passCtx, cancel
}

func (o *Orchestrator) complete(ctx context.Context, gen uint64) (domain.State, error) {
	next, err := o.run(ctx, gen)

	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.gen {
		o.log.Info("discarding superseded pass", zap.Uint64("generation", gen), zap.Uint64("latest", o.gen))
		return o.state, ErrSuperseded
	}
	o.cancel = nil
	o.state = next
	return next, err
}

// pass is the mutable working set of one run. Categories write into snap
// under mu; nothing outside the run sees it until it is published.
type pass struct {
	o       *Orchestrator
	gen     uint64
	lms     *tree.PassCache
	builder *tree.Builder
	now     time.Time

	mu   sync.Mutex
	snap domain.Snapshot
}

func (p *pass) userID(ctx context.Context) (int, error) {
	if p.o.opts.UserID > 0 {
		return p.o.opts.UserID, nil
	}
	info, err := p.lms.SiteInfo(ctx)
	if err != nil {
		return 0, fmt.Errorf("resolve user: %w", err)
	}
	id := info.UserID.Int()
	p.mu.Lock()
	p.snap.UserID = id
	p.mu.Unlock()
	return id, nil
}

func (o *Orchestrator) run(ctx context.Context, gen uint64) (st domain.State, err error) {
	ctx, span := tracing.Start(ctx, "aggregate.pass")
	defer func() { tracing.End(span, err) }()

	start := time.Now()
	lms := tree.NewPassCache(o.lms)
	p := &pass{
		o:       o,
		gen:     gen,
		lms:     lms,
		builder: &tree.Builder{LMS: lms, Logger: o.log, Workers: o.opts.Workers},
		now:     o.opts.Now(),
	}
	p.snap = domain.Snapshot{UserID: o.opts.UserID, Generation: gen, BuiltAt: p.now}

	g, gctx := errgroup.WithContext(ctx)
	for _, j := range o.jobs {
		j := j
		g.Go(func() error { return j.run(gctx, p) })
	}
	batchErr := g.Wait()
	monitoring.RefreshDuration.Observe(time.Since(start).Seconds())

	if ctx.Err() != nil {
		cur := o.Current()
		cur.Status = domain.StatusIdle
		if cur.Snapshot != nil {
			cur.Status = domain.StatusReady
		}
		return cur, fmt.Errorf("aggregate: pass %d: %w", gen, ctx.Err())
	}

	if batchErr != nil {
		snap := o.fallbackSnapshot(p)
		kind := errorKind(httpx.IsOffline(batchErr))
		o.log.Warn("aggregation pass failed",
			zap.Uint64("generation", gen),
			zap.String("policy", string(o.opts.Policy)),
			zap.Error(batchErr))
		return domain.State{
			Status:    domain.StatusError,
			Snapshot:  snap,
			ErrorKind: kind,
			Error:     batchErr.Error(),
		}, batchErr
	}

	snap := p.snap
	fillEmpty(&snap)
	sortFailures(&snap)
	st = domain.State{Status: domain.StatusReady, Snapshot: &snap}
	if n := len(snap.Failures); n > 0 {
		offline := false
		names := make([]string, 0, n)
		for _, f := range snap.Failures {
			offline = offline || f.Offline
			names = append(names, string(f.Category))
		}
		st.ErrorKind = errorKind(offline)
		st.Error = fmt.Sprintf("%d of %d categories unavailable: %s", n, len(o.jobs), strings.Join(names, ", "))
		if n == len(o.jobs) {
			st.Status = domain.StatusError
		}
	}

	o.log.Info("aggregation pass finished",
		zap.Uint64("generation", gen),
		zap.Int("courses", len(snap.Courses)),
		zap.Int("category_failures", len(snap.Failures)),
		zap.Int("course_failures", len(snap.CourseFailures)),
		zap.Duration("took", time.Since(start)))
	return st, nil
}

// fallbackSnapshot is the batch-policy result: the caller's seed, or empty
// collections for every category.
func (o *Orchestrator) fallbackSnapshot(p *pass) *domain.Snapshot {
	snap := domain.Snapshot{}
	if o.opts.Seed != nil {
		snap = *o.opts.Seed
	}
	snap.UserID = o.opts.UserID
	snap.Generation = p.gen
	snap.BuiltAt = p.now
	snap.Failures = nil
	snap.CourseFailures = nil
	fillEmpty(&snap)
	return &snap
}

// Warm publishes cached categories as a stale snapshot so the UI has
// something to show before the first pass lands. It reports whether anything
// was found. It never replaces a snapshot a pass already produced.
func (o *Orchestrator) Warm(ctx context.Context) bool {
	if o.store == nil {
		return false
	}
	snap := domain.Snapshot{UserID: o.opts.UserID}
	found := false
	for _, j := range o.jobs {
		ok, err := j.warm(ctx, o, &snap)
		if err != nil {
			o.log.Warn("cache warm-up read failed", zap.String("category", string(j.category())), zap.Error(err))
		}
		found = found || ok
	}
	if !found {
		return false
	}
	fillEmpty(&snap)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.Snapshot != nil {
		return false
	}
	o.state.Snapshot = &snap
	o.state.Stale = true
	if o.state.Status == domain.StatusIdle {
		o.state.Status = domain.StatusReady
	}
	return true
}

func errorKind(offline bool) domain.ErrorKind {
	if offline {
		return domain.ErrorOffline
	}
	return domain.ErrorLoad
}

// fillEmpty replaces nil collections so an empty category serialises as [].
func fillEmpty(s *domain.Snapshot) {
	if s.Courses == nil {
		s.Courses = []domain.CourseNode{}
	}
	if s.Lessons == nil {
		s.Lessons = []domain.ActivityRef{}
	}
	if s.Sections == nil {
		s.Sections = []domain.SectionRef{}
	}
	if s.Activities == nil {
		s.Activities = []domain.ActivityRef{}
	}
	if s.Tree == nil {
		s.Tree = []domain.CourseNode{}
	}
	if s.Events == nil {
		s.Events = []domain.ScheduleEvent{}
	}
	if s.Resources == nil {
		s.Resources = []domain.ActivityRef{}
	}
	if s.Grades == nil {
		s.Grades = []domain.GradeRecord{}
	}
	if s.Competencies == nil {
		s.Competencies = []domain.CompetencyRecord{}
	}
	if s.Badges == nil {
		s.Badges = []domain.BadgeRecord{}
	}
}

// sortFailures orders failures by category fan-out order, then course.
func sortFailures(s *domain.Snapshot) {
	rank := make(map[domain.Category]int, len(domain.AllCategories))
	for i, c := range domain.AllCategories {
		rank[c] = i
	}
	sort.SliceStable(s.Failures, func(i, j int) bool {
		return rank[s.Failures[i].Category] < rank[s.Failures[j].Category]
	})
	sort.SliceStable(s.CourseFailures, func(i, j int) bool {
		a, b := s.CourseFailures[i], s.CourseFailures[j]
		if rank[a.Category] != rank[b.Category] {
			return rank[a.Category] < rank[b.Category]
		}
		return a.CourseID < b.CourseID
	})
}
