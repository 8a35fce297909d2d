package content

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-dashboard/internal/domain"
	"course-dashboard/internal/providers/lmstest"
	"course-dashboard/internal/providers/moodle"
)

func quizNode() domain.ActivityNode {
	return domain.ActivityNode{
		ID: 100, CourseID: 5, Name: "Checkpoint", Kind: domain.KindQuiz,
		KindLabel: "Quiz", RawType: "quiz", SectionName: "Week 1",
		Duration: 20, Points: 10, Status: domain.StatusPending,
	}
}

func TestOpenSpecificTier(t *testing.T) {
	lms := &lmstest.Fake{Quizzes: map[int]moodle.Quiz{
		100: {CourseModule: 100, Name: "Checkpoint quiz", Intro: "Ten questions", TimeLimit: 1800, Attempts: 2},
	}}
	l := NewLoader(lms, nil, nil)

	assert.Equal(t, StateIdle, l.State(100))
	v, err := l.Open(context.Background(), quizNode())
	require.NoError(t, err)

	assert.False(t, v.IsFallbackInterface)
	assert.Equal(t, TierSpecific, v.Tier)
	assert.Equal(t, "Checkpoint quiz", v.Title)
	assert.Nil(t, v.Action)
	assert.Contains(t, v.Fields, Field{"Time limit", "30 min"})
	assert.Contains(t, v.Fields, Field{"Attempts allowed", "2"})
	assert.Equal(t, StateReady, l.State(100))
	assert.Equal(t, 0, lms.Calls("CourseModule"), "tier 2 must not run after tier 1 succeeded")
}

func TestOpenFallsBackToGeneric(t *testing.T) {
	lms := &lmstest.Fake{Modules: map[int]moodle.CourseModule{
		100: {ID: 100, Name: "Checkpoint", ModName: "quiz", SectionNum: 1},
	}}
	lms.Fail("Quiz", errors.New("quiz service disabled"))
	l := NewLoader(lms, nil, nil)

	v, err := l.Open(context.Background(), quizNode())
	require.NoError(t, err)

	assert.True(t, v.IsFallbackInterface)
	assert.Equal(t, TierGeneric, v.Tier)
	assert.NotEmpty(t, v.Description)
	require.NotNil(t, v.Action)
	assert.Equal(t, "https://lms.example.test/mod/quiz/view.php?id=100", v.Action.URL)
	assert.Equal(t, StateFallbackReady, l.State(100))
	assert.Equal(t, 1, lms.Calls("Quiz"))
	assert.Equal(t, 1, lms.Calls("CourseModule"))
}

func TestOpenFallsBackToSynthetic(t *testing.T) {
	lms := &lmstest.Fake{}
	lms.Fail("Quiz", errors.New("down"))
	lms.Fail("CourseModule", errors.New("down"))
	l := NewLoader(lms, nil, nil)

	v, err := l.Open(context.Background(), quizNode())
	require.NoError(t, err)

	assert.True(t, v.IsFallbackInterface)
	assert.Equal(t, TierSynthetic, v.Tier)
	assert.Contains(t, v.Description, `"Checkpoint"`)
	assert.Contains(t, v.Description, `"Week 1"`)
	assert.Contains(t, v.Fields, Field{"Type", "Quiz"})
	require.NotNil(t, v.Action)
	assert.Equal(t, "Start", v.Action.Label)
}

func TestOpenGenericKindSkipsSpecificCall(t *testing.T) {
	lms := &lmstest.Fake{}
	l := NewLoader(lms, nil, nil)
	a := domain.ActivityNode{ID: 7, CourseID: 5, Kind: domain.KindGeneric, KindLabel: "Attendance", RawType: "attendance"}

	v, err := l.Open(context.Background(), a)
	require.NoError(t, err)
	assert.True(t, v.IsFallbackInterface)
	assert.Equal(t, TierSynthetic, v.Tier)
	assert.Equal(t, "https://lms.example.test/mod/attendance/view.php?id=7", v.URL)
	assert.Equal(t, 0, lms.Calls("ModuleDetail"))
}

func TestOpenDetailKinds(t *testing.T) {
	lms := &lmstest.Fake{Details: map[int]moodle.ModuleDetail{
		300: {ModName: "forum", CourseModule: 300, Name: "News", Intro: "Announcements", Fields: map[string]any{"type": "news", "duedate": float64(0)}},
	}}
	l := NewLoader(lms, nil, nil)
	a := domain.ActivityNode{ID: 300, CourseID: 5, Kind: domain.KindDiscussion, KindLabel: "Discussion", RawType: "forum"}

	v, err := l.Open(context.Background(), a)
	require.NoError(t, err)
	assert.False(t, v.IsFallbackInterface)
	assert.Equal(t, "Announcements", v.Description)
	assert.Equal(t, []Field{{"Forum type", "news"}}, v.Fields)
}

func TestStartRetriesSpecificCall(t *testing.T) {
	lms := &lmstest.Fake{Quizzes: map[int]moodle.Quiz{100: {CourseModule: 100, Name: "Checkpoint"}}}
	lms.Fail("Quiz", errors.New("down"))
	lms.Fail("CourseModule", errors.New("down"))
	reg := NewRegistry()
	l := NewLoader(lms, reg, nil)

	v, err := l.Open(context.Background(), quizNode())
	require.NoError(t, err)
	require.NotNil(t, v.Action)

	// Still failing: the learner is sent to the LMS instead.
	res, err := l.Start(context.Background(), v.Action.ID)
	require.NoError(t, err)
	assert.Nil(t, res.View)
	assert.Equal(t, "https://lms.example.test/mod/quiz/view.php?id=100", res.OpenURL)
	assert.Equal(t, 1, reg.Len())

	lms.Fail("Quiz", nil)
	res, err = l.Start(context.Background(), v.Action.ID)
	require.NoError(t, err)
	require.NotNil(t, res.View)
	assert.False(t, res.View.IsFallbackInterface)
	assert.Equal(t, StateReady, l.State(100))
	assert.Equal(t, 0, reg.Len(), "a successful start consumes the action")

	_, err = l.Start(context.Background(), v.Action.ID)
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestRegistryReusesActionPerActivity(t *testing.T) {
	reg := NewRegistry()
	a := quizNode()
	first := reg.Register(a, "u1")
	second := reg.Register(a, "u2")
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "u2", second.URL)
	assert.Equal(t, 1, reg.Len())

	_, got, err := reg.Lookup(first.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	reg.Remove(a.ID)
	_, _, err = reg.Lookup(first.ID)
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestOpenCancelled(t *testing.T) {
	lms := &lmstest.Fake{Delay: time.Second}
	l := NewLoader(lms, nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := l.Open(ctx, quizNode())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateFailed, l.State(100))
}

func TestSpecificCoversEveryKind(t *testing.T) {
	lms := &lmstest.Fake{}
	l := NewLoader(lms, nil, nil)
	for _, k := range domain.AllKinds {
		_, err := l.specific(context.Background(), domain.ActivityNode{ID: 1, Kind: k})
		require.Error(t, err, k)
		if k == domain.KindGeneric {
			assert.ErrorIs(t, err, ErrUnsupportedKind)
		} else {
			assert.NotErrorIs(t, err, ErrUnsupportedKind, k)
		}
	}
}

func TestDurationLabel(t *testing.T) {
	assert.Equal(t, "", durationLabel(0))
	assert.Equal(t, "45 min", durationLabel(45))
	assert.Equal(t, "2 h", durationLabel(120))
	assert.Equal(t, "1 h 30 min", durationLabel(90))
}
