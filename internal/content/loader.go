// Package content loads what an activity shows when it is opened, degrading
// from the kind-specific call to the generic module descriptor and finally to
// a synthetic view built from the activity node itself.
package content

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"course-dashboard/internal/domain"
	"course-dashboard/internal/logger"
	"course-dashboard/internal/mappers"
	"course-dashboard/internal/monitoring"
	"course-dashboard/internal/providers"
	"course-dashboard/internal/providers/moodle"
	"course-dashboard/internal/tracing"
)

// ErrUnsupportedKind means no kind-specific call exists for the kind.
var ErrUnsupportedKind = errors.New("content: no kind-specific call")

type Loader struct {
	LMS      providers.LMS
	Registry *Registry
	Logger   *zap.Logger

	mu     sync.Mutex
	states map[int]State
}

func NewLoader(lms providers.LMS, reg *Registry, log *zap.Logger) *Loader {
	if reg == nil {
		reg = NewRegistry()
	}
	return &Loader{LMS: lms, Registry: reg, Logger: logger.OrNop(log), states: map[int]State{}}
}

// State reports the last known state for an activity; idle if never opened.
func (l *Loader) State(activityID int) State {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.states[activityID]; ok {
		return s
	}
	return StateIdle
}

func (l *Loader) setState(activityID int, s State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.states == nil {
		l.states = map[int]State{}
	}
	l.states[activityID] = s
}

// Open resolves the view for a. Tier 2 runs only after tier 1 failed and tier
// 3 only after tier 2 failed. The only error is cancellation.
func (l *Loader) Open(ctx context.Context, a domain.ActivityNode) (View, error) {
	ctx, span := tracing.Start(ctx, "content.open")
	defer span.End()
	log := logger.OrNop(l.Logger)

	l.setState(a.ID, StateLoading)

	v, err := l.specific(ctx, a)
	if err == nil {
		l.Registry.Remove(a.ID)
		l.setState(a.ID, StateReady)
		l.observe(a, TierSpecific)
		return v, nil
	}
	if cerr := ctx.Err(); cerr != nil {
		l.setState(a.ID, StateFailed)
		return View{}, cerr
	}
	log.Debug("kind-specific content failed", zap.Int("activity_id", a.ID), zap.String("kind", string(a.Kind)), zap.Error(err))

	v, err = l.generic(ctx, a)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			l.setState(a.ID, StateFailed)
			return View{}, cerr
		}
		log.Debug("generic module content failed", zap.Int("activity_id", a.ID), zap.Error(err))
		v = l.synthetic(a)
	}

	act := l.Registry.Register(a, v.URL)
	v.Action = &act
	l.setState(a.ID, StateFallbackReady)
	l.observe(a, v.Tier)
	return v, nil
}

// Start retries the kind-specific call for the activity behind actionID.
func (l *Loader) Start(ctx context.Context, actionID string) (StartResult, error) {
	act, a, err := l.Registry.Lookup(actionID)
	if err != nil {
		return StartResult{}, err
	}
	l.setState(a.ID, StateLoading)
	v, err := l.specific(ctx, a)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			l.setState(a.ID, StateFailed)
			return StartResult{}, cerr
		}
		l.setState(a.ID, StateFallbackReady)
		return StartResult{OpenURL: act.URL, Error: err.Error()}, nil
	}
	l.Registry.Remove(a.ID)
	l.setState(a.ID, StateReady)
	l.observe(a, TierSpecific)
	return StartResult{View: &v}, nil
}

func (l *Loader) observe(a domain.ActivityNode, t Tier) {
	monitoring.ContentLoads.WithLabelValues(string(a.Kind), t.String()).Inc()
}

func (l *Loader) base(a domain.ActivityNode, t Tier) View {
	return View{
		ActivityID:          a.ID,
		CourseID:            a.CourseID,
		Kind:                a.Kind,
		KindLabel:           a.KindLabel,
		Title:               a.Name,
		Description:         a.Description,
		SectionName:         a.SectionName,
		Fields:              []Field{},
		Tier:                t,
		IsFallbackInterface: t != TierSpecific,
		URL:                 l.activityURL(a),
	}
}

func (l *Loader) activityURL(a domain.ActivityNode) string {
	mod := a.RawType
	if mod == "" {
		mod = mappers.ModName(a.Kind)
	}
	return mappers.ActivityURL(l.LMS.Origin(), mod, a.ID, a.CourseID)
}

// specific dispatches on kind. Every kind is listed so a new one is a
// visible change here.
func (l *Loader) specific(ctx context.Context, a domain.ActivityNode) (View, error) {
	switch a.Kind {
	case domain.KindQuiz:
		return l.quiz(ctx, a)
	case domain.KindAssignment:
		return l.assignment(ctx, a)
	case domain.KindSCORM:
		return l.scorm(ctx, a)
	case domain.KindLesson, domain.KindDiscussion, domain.KindResource,
		domain.KindURLLink, domain.KindWorkshop, domain.KindChoice,
		domain.KindFeedback, domain.KindPage, domain.KindBook,
		domain.KindFolder, domain.KindGlossary, domain.KindWiki,
		domain.KindChat, domain.KindSurvey, domain.KindDatabase,
		domain.KindInteractiveContent, domain.KindExternalTool:
		return l.detail(ctx, a)
	case domain.KindGeneric:
		return View{}, fmt.Errorf("%w: %s", ErrUnsupportedKind, a.Kind)
	}
	return View{}, fmt.Errorf("%w: %s", ErrUnsupportedKind, a.Kind)
}

func (l *Loader) quiz(ctx context.Context, a domain.ActivityNode) (View, error) {
	q, err := l.LMS.Quiz(ctx, a.CourseID, a.ID)
	if err != nil {
		return View{}, err
	}
	v := l.base(a, TierSpecific)
	v.Title = firstNonEmpty(q.Name, a.Name)
	v.Description = firstNonEmpty(q.Intro, a.Description)
	v.Fields = appendNonEmpty(v.Fields,
		Field{"Opens", formatUnix(q.TimeOpen.Int())},
		Field{"Closes", formatUnix(q.TimeClose.Int())},
		Field{"Time limit", formatSeconds(q.TimeLimit.Int())},
		Field{"Attempts allowed", attemptsLabel(q.Attempts.Int())},
		Field{"Maximum grade", formatFloat(q.Grade.Valid, q.Grade.Value)},
	)
	return v, nil
}

func (l *Loader) assignment(ctx context.Context, a domain.ActivityNode) (View, error) {
	as, err := l.LMS.Assignment(ctx, a.CourseID, a.ID)
	if err != nil {
		return View{}, err
	}
	v := l.base(a, TierSpecific)
	v.Title = firstNonEmpty(as.Name, a.Name)
	v.Description = firstNonEmpty(as.Intro, a.Description)
	v.Fields = appendNonEmpty(v.Fields,
		Field{"Opens", formatUnix(as.AllowSubmissionsFromDate.Int())},
		Field{"Due", formatUnix(as.DueDate.Int())},
		Field{"Cut-off", formatUnix(as.CutoffDate.Int())},
		Field{"Maximum grade", formatFloat(as.Grade.Valid, as.Grade.Value)},
		Field{"Attempts allowed", attemptsLabel(as.MaxAttempts.Int())},
	)
	if as.TeamSubmission {
		v.Fields = append(v.Fields, Field{"Submission", "Group"})
	}
	return v, nil
}

func (l *Loader) scorm(ctx context.Context, a domain.ActivityNode) (View, error) {
	s, err := l.LMS.SCORM(ctx, a.CourseID, a.ID)
	if err != nil {
		return View{}, err
	}
	v := l.base(a, TierSpecific)
	v.Title = firstNonEmpty(s.Name, a.Name)
	v.Description = firstNonEmpty(s.Intro, a.Description)
	v.Fields = appendNonEmpty(v.Fields,
		Field{"Package version", s.Version},
		Field{"Opens", formatUnix(s.TimeOpen.Int())},
		Field{"Closes", formatUnix(s.TimeClose.Int())},
		Field{"Attempts allowed", attemptsLabel(s.MaxAttempt.Int())},
	)
	return v, nil
}

type detailField struct {
	label string
	key   string
}

// detailFields lists the record keys worth showing per kind.
var detailFields = map[domain.Kind][]detailField{
	domain.KindLesson:             {{"Time limit", "timelimit"}, {"Available from", "available"}, {"Deadline", "deadline"}},
	domain.KindDiscussion:         {{"Forum type", "type"}, {"Due", "duedate"}, {"Cut-off", "cutoffdate"}},
	domain.KindWorkshop:           {{"Submissions open", "submissionstart"}, {"Submissions close", "submissionend"}, {"Grade", "grade"}},
	domain.KindChoice:             {{"Opens", "timeopen"}, {"Closes", "timeclose"}},
	domain.KindFeedback:           {{"Opens", "timeopen"}, {"Closes", "timeclose"}, {"Anonymous", "anonymous"}},
	domain.KindURLLink:            {{"Link", "externalurl"}},
	domain.KindGlossary:           {{"Display format", "displayformat"}},
	domain.KindWiki:               {{"Mode", "wikimode"}, {"First page", "firstpagetitle"}},
	domain.KindChat:               {{"Next session", "chattime"}},
	domain.KindDatabase:           {{"Entries required", "requiredentries"}, {"Available from", "timeavailablefrom"}},
	domain.KindInteractiveContent: {{"Grade", "grade"}},
	domain.KindExternalTool:       {{"Tool URL", "toolurl"}},
	domain.KindResource:           {},
	domain.KindPage:               {},
	domain.KindBook:               {},
	domain.KindFolder:             {},
	domain.KindSurvey:             {},
}

// timeKeys are unix timestamps in detail records.
var timeKeys = map[string]bool{
	"available": true, "deadline": true, "duedate": true, "cutoffdate": true,
	"submissionstart": true, "submissionend": true, "timeopen": true,
	"timeclose": true, "chattime": true, "timeavailablefrom": true,
}

func (l *Loader) detail(ctx context.Context, a domain.ActivityNode) (View, error) {
	mod := a.RawType
	if mod == "" {
		mod = mappers.ModName(a.Kind)
	}
	if !moodle.HasDetail(mod) {
		return View{}, fmt.Errorf("%w: no detail call for %s", ErrUnsupportedKind, mod)
	}
	d, err := l.LMS.ModuleDetail(ctx, mod, a.CourseID, a.ID)
	if err != nil {
		return View{}, err
	}
	v := l.base(a, TierSpecific)
	v.Title = firstNonEmpty(d.Name, a.Name)
	v.Description = firstNonEmpty(d.Intro, a.Description)
	for _, f := range detailFields[a.Kind] {
		key := f.key
		var val string
		if timeKeys[key] {
			if n, ok := mappers.GetFloat(d.Fields, key); ok {
				val = formatUnix(int(n))
			}
		} else if key == "timelimit" {
			if n, ok := mappers.GetFloat(d.Fields, key); ok {
				val = formatSeconds(int(n))
			}
		} else {
			val = mappers.GetString(d.Fields, key)
		}
		v.Fields = appendNonEmpty(v.Fields, Field{f.label, val})
	}
	return v, nil
}

func (l *Loader) generic(ctx context.Context, a domain.ActivityNode) (View, error) {
	cm, err := l.LMS.CourseModule(ctx, a.ID)
	if err != nil {
		return View{}, err
	}
	v := l.base(a, TierGeneric)
	v.Title = firstNonEmpty(cm.Name, a.Name)
	v.Description = firstNonEmpty(cm.Description, a.Description, syntheticDescription(a))
	v.Fields = appendNonEmpty(v.Fields,
		Field{"Type", firstNonEmpty(a.KindLabel, cm.ModName)},
		Field{"Section", firstNonEmpty(a.SectionName, sectionNumber(cm.SectionNum.Int()))},
		Field{"Maximum grade", formatFloat(cm.GradeMax.Valid, cm.GradeMax.Value)},
	)
	if cm.URL != "" {
		v.URL = cm.URL
	}
	return v, nil
}

func (l *Loader) synthetic(a domain.ActivityNode) View {
	v := l.base(a, TierSynthetic)
	v.Title = firstNonEmpty(a.Name, a.KindLabel)
	v.Description = syntheticDescription(a)
	v.Fields = appendNonEmpty(v.Fields,
		Field{"Type", a.KindLabel},
		Field{"Section", a.SectionName},
		Field{"Estimated duration", durationLabel(a.Duration)},
		Field{"Points", pointsLabel(a.Points)},
		Field{"Status", string(a.Status)},
	)
	return v
}

func syntheticDescription(a domain.ActivityNode) string {
	label := firstNonEmpty(a.KindLabel, "activity")
	name := firstNonEmpty(a.Name, label)
	where := ""
	if a.SectionName != "" {
		where = fmt.Sprintf(" in section %q", a.SectionName)
	}
	return fmt.Sprintf("%s %q%s of course %d could not be loaded here. Use Start to try again or open it on the LMS.",
		capitalizeFirst(strings.ToLower(label)), name, where, a.CourseID)
}

func firstNonEmpty(v ...string) string {
	for _, s := range v {
		if strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func appendNonEmpty(dst []Field, fs ...Field) []Field {
	for _, f := range fs {
		if strings.TrimSpace(f.Value) != "" {
			dst = append(dst, f)
		}
	}
	return dst
}

func formatUnix(sec int) string {
	if sec <= 0 {
		return ""
	}
	return time.Unix(int64(sec), 0).UTC().Format("2006-01-02 15:04 UTC")
}

func formatSeconds(sec int) string {
	if sec <= 0 {
		return ""
	}
	return durationLabel(sec / 60)
}

func durationLabel(minutes int) string {
	if minutes <= 0 {
		return ""
	}
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	if minutes%60 == 0 {
		return fmt.Sprintf("%d h", minutes/60)
	}
	return fmt.Sprintf("%d h %d min", minutes/60, minutes%60)
}

func formatFloat(valid bool, v float64) string {
	if !valid || v <= 0 {
		return ""
	}
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}

func attemptsLabel(n int) string {
	if n <= 0 {
		return "Unlimited"
	}
	return fmt.Sprintf("%d", n)
}

func pointsLabel(n int) string {
	if n <= 0 {
		return ""
	}
	return fmt.Sprintf("%d", n)
}

func sectionNumber(n int) string {
	if n <= 0 {
		return ""
	}
	return fmt.Sprintf("Section %d", n)
}
