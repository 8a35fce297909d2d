// Package viewmodel derives the dashboard's summary figures from a snapshot.
// Everything here is a pure function of the snapshot; Memo caches the result
// for the latest snapshot.
package viewmodel

import (
	"sync"

	"course-dashboard/internal/domain"
	"course-dashboard/internal/mappers"
	"course-dashboard/internal/progress"
	"course-dashboard/internal/tree"
)

// Summary holds the headline counters.
type Summary struct {
	TotalCourses      int `json:"totalCourses"`
	ActiveCourses     int `json:"activeCourses"`
	CompletedCourses  int `json:"completedCourses"`
	AverageProgress   int `json:"averageProgress"`
	TotalLessons      int `json:"totalLessons"`
	CompletedLessons  int `json:"completedLessons"`
	PendingActivities int `json:"pendingActivities"`
	UpcomingEvents    int `json:"upcomingEvents"`
	EarnedBadges      int `json:"earnedBadges"`
}

// KindChip is one activity-kind filter with its count.
type KindChip struct {
	Kind  domain.Kind `json:"kind"`
	Label string      `json:"label"`
	Count int         `json:"count"`
}

// LetterCount is one bar of the letter-grade distribution.
type LetterCount struct {
	Letter string `json:"letter"`
	Count  int    `json:"count"`
}

// GradeStats summarises graded items.
type GradeStats struct {
	Total    int `json:"total"`
	Graded   int `json:"graded"`
	Passed   int `json:"passed"`
	Average  int `json:"average"`
	PassRate int `json:"passRate"`
}

// View is everything the dashboard renders besides the raw collections.
type View struct {
	Generation uint64        `json:"generation"`
	Summary    Summary       `json:"summary"`
	Kinds      []KindChip    `json:"kinds"`
	Letters    []LetterCount `json:"letters"`
	Grades     GradeStats    `json:"grades"`
}

// Build derives the view of s. A nil snapshot yields zero counts.
func Build(s *domain.Snapshot) View {
	if s == nil {
		return View{Kinds: []KindChip{}, Letters: Letters(nil)}
	}
	return View{
		Generation: s.Generation,
		Summary:    Summarize(s),
		Kinds:      Kinds(s.Resources),
		Letters:    Letters(s.Grades),
		Grades:     Grades(s.Grades),
	}
}

// Summarize counts courses, lessons and pending work. A course is active
// until it reaches 100%; lessons are lesson-kind activities only.
func Summarize(s *domain.Snapshot) Summary {
	out := Summary{TotalCourses: len(s.Courses)}
	sum := 0
	for _, c := range s.Courses {
		sum += c.Progress
		if c.Progress >= 100 && c.ActivityCount > 0 {
			out.CompletedCourses++
			continue
		}
		out.ActiveCourses++
	}
	if len(s.Courses) > 0 {
		out.AverageProgress = progress.Ratio(sum, len(s.Courses))
	}

	for _, l := range s.Lessons {
		if l.Activity.Kind != domain.KindLesson {
			continue
		}
		out.TotalLessons++
		if l.Activity.Status == domain.StatusCompleted {
			out.CompletedLessons++
		}
	}
	for _, a := range s.Activities {
		if a.Activity.Status != domain.StatusCompleted {
			out.PendingActivities++
		}
	}
	for _, e := range s.Events {
		if e.Status != tree.EventCompleted {
			out.UpcomingEvents++
		}
	}
	for _, b := range s.Badges {
		if b.IsAwarded {
			out.EarnedBadges++
		}
	}
	return out
}

// Kinds counts activities per kind, in the fixed kind order. Kinds with no
// activities are left out.
func Kinds(refs []domain.ActivityRef) []KindChip {
	counts := make(map[domain.Kind]int, len(domain.AllKinds))
	for _, r := range refs {
		counts[r.Activity.Kind]++
	}
	out := []KindChip{}
	for _, k := range domain.AllKinds {
		if n := counts[k]; n > 0 {
			out = append(out, KindChip{Kind: k, Label: mappers.KindLabel(k), Count: n})
		}
	}
	return out
}

// Letters is the distribution of graded items over every letter, A+ to F.
func Letters(grades []domain.GradeRecord) []LetterCount {
	counts := map[string]int{}
	for _, g := range grades {
		if g.Graded() {
			counts[g.LetterGrade]++
		}
	}
	letters := mappers.Letters()
	out := make([]LetterCount, len(letters))
	for i, l := range letters {
		out[i] = LetterCount{Letter: l, Count: counts[l]}
	}
	return out
}

// Grades averages the graded items' percentages and computes the pass rate.
func Grades(grades []domain.GradeRecord) GradeStats {
	st := GradeStats{Total: len(grades)}
	sum := 0
	for _, g := range grades {
		if !g.Graded() {
			continue
		}
		st.Graded++
		sum += g.Percentage
		if g.Passed {
			st.Passed++
		}
	}
	if st.Graded > 0 {
		st.Average = progress.Ratio(sum, st.Graded)
	}
	st.PassRate = progress.Percent(st.Passed, st.Graded)
	return st
}

// Memo caches the view of the most recent snapshot. Snapshots are never
// mutated, so pointer identity is enough to detect a new pass.
type Memo struct {
	mu     sync.Mutex
	snap   *domain.Snapshot
	view   View
	builds int
}

// Get returns the view of s, rebuilding only when s is a different snapshot.
func (m *Memo) Get(s *domain.Snapshot) View {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap != nil && s != nil && m.snap == s {
		return m.view
	}
	m.view = Build(s)
	m.snap = s
	m.builds++
	return m.view
}
