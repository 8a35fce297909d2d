package tree

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"course-dashboard/internal/domain"
	"course-dashboard/internal/providers/lmstest"
	"course-dashboard/internal/providers/moodle"
)

func mustSections(t *testing.T, body string) []moodle.Section {
	t.Helper()
	var out []moodle.Section
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatalf("decode sections: %v", err)
	}
	return out
}

func fixture(t *testing.T) *lmstest.Fake {
	t.Helper()
	return &lmstest.Fake{
		Courses: []moodle.Course{
			{ID: 1, FullName: "Go Programming"},
			{ID: 2, FullName: "UX Design"},
		},
		Contents: map[int][]moodle.Section{
			1: mustSections(t, `[
				{"id":10,"name":"Week 1","section":1,"modules":[
					{"id":100,"modname":"lesson","name":"Intro","completiondata":{"state":1}},
					{"id":101,"modname":"quiz","name":"Q1","completiondata":{"state":1}},
					{"id":102,"modname":"assign","name":"A1","completiondata":{"state":1}},
					{"id":103,"modname":"page","name":"Notes","completiondata":{"state":0}}
				]},
				{"id":11,"name":"Week 2","section":2,"modules":[
					{"id":104,"modname":"quiz","name":"Q2","completiondata":{"state":0}},
					{"id":105,"modname":"forum","name":"Talk","completiondata":{"state":0}}
				]},
				{"id":12,"name":"","section":3,"modules":[
					{"id":106,"modname":"quiz","name":"Hidden section quiz","completiondata":{"state":1}}
				]}
			]`),
			2: mustSections(t, `[
				{"id":20,"name":"Basics","section":1,"modules":[
					{"id":200,"modname":"url","name":"Reading"},
					{"id":201,"modname":"quiz","name":"Locked","uservisible":false}
				]}
			]`),
		},
	}
}

func TestBuildComputesProgress(t *testing.T) {
	lms := fixture(t)
	b := &Builder{LMS: lms}

	res := b.Build(context.Background(), lms.Courses)
	if len(res.Failures) != 0 {
		t.Fatalf("unexpected failures: %+v", res.Failures)
	}
	if len(res.Courses) != 2 {
		t.Fatalf("Expected 2 courses, got %d", len(res.Courses))
	}

	c := res.Courses[0]
	if c.SectionCount != 2 {
		t.Errorf("unnamed section must be skipped, got %d sections", c.SectionCount)
	}
	if c.ActivityCount != 6 || c.CompletedActivities != 3 || c.Progress != 50 {
		t.Errorf("course 1: %d/%d progress=%d", c.CompletedActivities, c.ActivityCount, c.Progress)
	}
	if c.Sections[0].Progress != 75 || c.Sections[1].Progress != 0 {
		t.Errorf("section progress: %d %d", c.Sections[0].Progress, c.Sections[1].Progress)
	}

	d := res.Courses[1]
	if d.ActivityCount != 1 {
		t.Errorf("modules hidden from the learner must be skipped, got %d", d.ActivityCount)
	}
	if d.Sections[0].Activities[0].Status != domain.StatusPending {
		t.Errorf("no completion signal means pending, got %q", d.Sections[0].Activities[0].Status)
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	lms := fixture(t)
	b := &Builder{LMS: lms}

	first := b.Build(context.Background(), lms.Courses)
	second := b.Build(context.Background(), lms.Courses)
	if !reflect.DeepEqual(first, second) {
		t.Error("two builds over identical input differ")
	}
}

func TestBuildPerCourseIsolation(t *testing.T) {
	for _, workers := range []int{1, 4} {
		lms := fixture(t)
		lms.FailCourse(2, errors.New("boom"))
		b := &Builder{LMS: lms, Workers: workers}

		res := b.Build(context.Background(), lms.Courses)
		if len(res.Courses) != 1 || res.Courses[0].ID != 1 {
			t.Fatalf("workers=%d: expected only course 1, got %+v", workers, res.Courses)
		}
		if res.Courses[0].Progress != 50 {
			t.Errorf("workers=%d: course 1 progress = %d", workers, res.Courses[0].Progress)
		}
		if len(res.Failures) != 1 || res.Failures[0].CourseID != 2 {
			t.Errorf("workers=%d: failures = %+v", workers, res.Failures)
		}
	}
}

func TestBuildParallelKeepsEnrolmentOrder(t *testing.T) {
	lms := fixture(t)
	lms.Delay = 5 * time.Millisecond
	b := &Builder{LMS: lms, Workers: 2}

	res := b.Build(context.Background(), lms.Courses)
	if len(res.Courses) != 2 || res.Courses[0].ID != 1 || res.Courses[1].ID != 2 {
		t.Fatalf("unexpected order: %+v", res.Courses)
	}
}

func TestPassCacheCollapsesFetches(t *testing.T) {
	lms := fixture(t)
	lms.Delay = 10 * time.Millisecond
	pc := NewPassCache(lms)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := pc.CourseContents(context.Background(), 1); err != nil {
				t.Errorf("contents: %v", err)
			}
		}()
	}
	wg.Wait()
	if _, err := pc.CourseContents(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if n := lms.Calls("CourseContents"); n != 1 {
		t.Errorf("Expected 1 upstream call, got %d", n)
	}

	if _, err := pc.ListUserCourses(context.Background(), 7); err != nil {
		t.Fatal(err)
	}
	if _, err := pc.ListUserCourses(context.Background(), 7); err != nil {
		t.Fatal(err)
	}
	if n := lms.Calls("ListUserCourses"); n != 1 {
		t.Errorf("Expected 1 listing call, got %d", n)
	}
}

func TestPassCacheDoesNotKeepErrors(t *testing.T) {
	lms := fixture(t)
	pc := NewPassCache(lms)
	lms.Fail("CourseContents", errors.New("down"))
	if _, err := pc.CourseContents(context.Background(), 1); err == nil {
		t.Fatal("expected error")
	}
	lms.Fail("CourseContents", nil)
	if _, err := pc.CourseContents(context.Background(), 1); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
}

func TestViews(t *testing.T) {
	lms := fixture(t)
	res := (&Builder{LMS: lms}).Build(context.Background(), lms.Courses)

	if got := len(Sections(res.Courses)); got != 3 {
		t.Errorf("sections = %d, want 3", got)
	}
	all := Activities(res.Courses, nil)
	interactive := Activities(res.Courses, Interactive)
	lessons := Activities(res.Courses, Lessons)
	if len(all) != 7 {
		t.Errorf("all activities = %d, want 7", len(all))
	}
	// page and url are not interactive
	if len(interactive) != 5 {
		t.Errorf("interactive = %d, want 5", len(interactive))
	}
	if len(lessons) != 1 || lessons[0].CourseName != "Go Programming" {
		t.Errorf("lessons = %+v", lessons)
	}

	stripped := StripSections(res.Courses)
	if len(stripped[0].Sections) != 0 || stripped[0].Progress != 50 {
		t.Errorf("stripped header: %+v", stripped[0])
	}
	if len(res.Courses[0].Sections) == 0 {
		t.Error("StripSections must not modify its input")
	}
}

func at(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestSchedule(t *testing.T) {
	now, _ := time.Parse(time.RFC3339, "2026-03-10T12:00:00Z")
	courses := []domain.CourseNode{{ID: 1, Sections: []domain.SectionNode{{Activities: []domain.ActivityNode{
		{ID: 1, Name: "far", Duration: 30, DueDate: at("2026-04-01T09:00:00Z")},
		{ID: 2, Name: "soon", DueDate: at("2026-03-11T12:00:00Z")},
		{ID: 3, Name: "week", DueDate: at("2026-03-15T08:30:00Z")},
		{ID: 4, Name: "late", DueDate: at("2026-03-01T08:00:00Z")},
		{ID: 5, Name: "done", Status: domain.StatusCompleted, DueDate: at("2026-03-02T08:00:00Z")},
		{ID: 6, Name: "undated"},
	}}}}}

	events := Schedule(courses, now)
	if len(events) != 5 {
		t.Fatalf("Expected 5 events, got %d", len(events))
	}
	want := []struct {
		title    string
		status   string
		priority domain.Priority
	}{
		{"late", EventOverdue, domain.PriorityHigh},
		{"done", EventCompleted, domain.PriorityLow},
		{"soon", EventUpcoming, domain.PriorityHigh},
		{"week", EventUpcoming, domain.PriorityMedium},
		{"far", EventUpcoming, domain.PriorityLow},
	}
	for i, w := range want {
		e := events[i]
		if e.Title != w.title || e.Status != w.status || e.Priority != w.priority {
			t.Errorf("event %d = %s/%s/%s, want %s/%s/%s", i, e.Title, e.Status, e.Priority, w.title, w.status, w.priority)
		}
	}
	if events[4].Date != "2026-04-01" || events[4].Time != "09:00" || events[4].DurationMinutes != 30 {
		t.Errorf("formatting: %+v", events[4])
	}
	if events[0].ID != "1-4" {
		t.Errorf("event id: %q", events[0].ID)
	}
}
