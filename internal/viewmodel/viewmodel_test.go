package viewmodel

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-dashboard/internal/aggregate"
	"course-dashboard/internal/domain"
	"course-dashboard/internal/providers/lmstest"
	"course-dashboard/internal/providers/moodle"
)

func ref(kind domain.Kind, status domain.Status) domain.ActivityRef {
	return domain.ActivityRef{Activity: domain.ActivityNode{Kind: kind, Status: status}}
}

func graded(pct int, passed bool) domain.GradeRecord {
	raw := float64(pct)
	return domain.GradeRecord{RawGrade: &raw, MaxGrade: 100, Percentage: pct, Passed: passed, LetterGrade: letterOf(pct)}
}

func letterOf(pct int) string {
	switch {
	case pct >= 90:
		return "A+"
	case pct >= 60 && pct < 65:
		return "C+"
	case pct < 40:
		return "F"
	}
	return "B"
}

func TestEndToEndOneCourse(t *testing.T) {
	var contents []moodle.Section
	require.NoError(t, json.Unmarshal([]byte(`[
		{"id":10,"name":"Week 1","section":1,"modules":[
			{"id":101,"modname":"quiz","name":"Q1","completiondata":{"state":1}},
			{"id":102,"modname":"assign","name":"A1","completiondata":{"state":0}}
		]}
	]`), &contents))
	lms := &lmstest.Fake{
		Courses:  []moodle.Course{{ID: 1, FullName: "Go Programming"}},
		Contents: map[int][]moodle.Section{1: contents},
	}

	st, err := aggregate.New(lms, nil, nil, aggregate.Options{UserID: 7}).Refresh(context.Background())
	require.NoError(t, err)

	v := Build(st.Snapshot)
	assert.Equal(t, 1, v.Summary.ActiveCourses)
	assert.Equal(t, 0, v.Summary.CompletedLessons)
	assert.Equal(t, 0, v.Summary.TotalLessons)
	assert.Equal(t, 1, v.Summary.PendingActivities)
	assert.Equal(t, 50, v.Summary.AverageProgress)
	assert.Equal(t, 50, st.Snapshot.Courses[0].Progress)
	assert.Equal(t, []KindChip{
		{Kind: domain.KindQuiz, Label: "Quiz", Count: 1},
		{Kind: domain.KindAssignment, Label: "Assignment", Count: 1},
	}, v.Kinds)
}

func TestSummarize(t *testing.T) {
	s := &domain.Snapshot{
		Courses: []domain.CourseNode{
			{ID: 1, Progress: 100, ActivityCount: 3},
			{ID: 2, Progress: 40, ActivityCount: 5},
			{ID: 3, Progress: 0},
		},
		Lessons: []domain.ActivityRef{
			ref(domain.KindLesson, domain.StatusCompleted),
			ref(domain.KindLesson, domain.StatusInProgress),
			ref(domain.KindLesson, domain.StatusPending),
		},
		Activities: []domain.ActivityRef{
			ref(domain.KindQuiz, domain.StatusCompleted),
			ref(domain.KindQuiz, domain.StatusInProgress),
			ref(domain.KindAssignment, domain.StatusPending),
		},
		Events: []domain.ScheduleEvent{{Status: "upcoming"}, {Status: "completed"}, {Status: "overdue"}},
		Badges: []domain.BadgeRecord{{IsAwarded: true}, {}},
	}

	got := Summarize(s)
	assert.Equal(t, Summary{
		TotalCourses:      3,
		ActiveCourses:     2,
		CompletedCourses:  1,
		AverageProgress:   47,
		TotalLessons:      3,
		CompletedLessons:  1,
		PendingActivities: 2,
		UpcomingEvents:    2,
		EarnedBadges:      1,
	}, got)
}

func TestKindsFollowFixedOrder(t *testing.T) {
	chips := Kinds([]domain.ActivityRef{
		ref(domain.KindURLLink, domain.StatusPending),
		ref(domain.KindQuiz, domain.StatusPending),
		ref(domain.KindURLLink, domain.StatusPending),
	})
	require.Len(t, chips, 2)

	pos := map[domain.Kind]int{}
	for i, k := range domain.AllKinds {
		pos[k] = i
	}
	assert.Less(t, pos[chips[0].Kind], pos[chips[1].Kind])
	for _, c := range chips {
		if c.Kind == domain.KindURLLink {
			assert.Equal(t, 2, c.Count)
		}
	}
	assert.Empty(t, Kinds(nil))
}

func TestLettersAndGrades(t *testing.T) {
	grades := []domain.GradeRecord{
		graded(95, true),
		graded(62, true),
		graded(30, false),
		{LetterGrade: "-"},
	}

	letters := Letters(grades)
	require.Len(t, letters, 12)
	assert.Equal(t, "A+", letters[0].Letter)
	assert.Equal(t, "F", letters[len(letters)-1].Letter)
	counts := map[string]int{}
	total := 0
	for _, l := range letters {
		counts[l.Letter] = l.Count
		total += l.Count
	}
	assert.Equal(t, 1, counts["A+"])
	assert.Equal(t, 1, counts["C+"])
	assert.Equal(t, 1, counts["F"])
	assert.Equal(t, 3, total)

	st := Grades(grades)
	assert.Equal(t, GradeStats{Total: 4, Graded: 3, Passed: 2, Average: 62, PassRate: 67}, st)
	assert.Equal(t, GradeStats{}, Grades(nil))
}

func TestBuildNilSnapshot(t *testing.T) {
	v := Build(nil)
	assert.Equal(t, Summary{}, v.Summary)
	assert.NotNil(t, v.Kinds)
	assert.Len(t, v.Letters, 12)
}

func TestMemoRebuildsOnlyForNewSnapshot(t *testing.T) {
	var m Memo
	a := &domain.Snapshot{Generation: 1, Courses: []domain.CourseNode{{ID: 1, Progress: 10}}}
	b := &domain.Snapshot{Generation: 2}

	v1 := m.Get(a)
	v2 := m.Get(a)
	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, m.builds)

	v3 := m.Get(b)
	assert.Equal(t, uint64(2), v3.Generation)
	assert.Equal(t, 2, m.builds)
}
