package moodle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"course-dashboard/internal/httpx"
)

const testToken = "tok-123"

// newTestServer routes by wsfunction and checks the common REST parameters.
func newTestServer(t *testing.T, handlers map[string]func(w http.ResponseWriter, r *http.Request)) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != restPath {
			t.Errorf("Expected path %q, got %q", restPath, r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
			return
		}
		if got := r.PostForm.Get("wstoken"); got != testToken {
			t.Errorf("Expected wstoken %q, got %q", testToken, got)
		}
		if got := r.PostForm.Get("moodlewsrestformat"); got != "json" {
			t.Errorf("Expected moodlewsrestformat json, got %q", got)
		}
		fn := r.PostForm.Get("wsfunction")
		h, ok := handlers[fn]
		if !ok {
			t.Errorf("unexpected wsfunction %q", fn)
			http.Error(w, "unexpected", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, New(srv.URL+"/", testToken, 2*time.Second, 0, 0)
}

func writeJSON(body string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}
}

func TestNew(t *testing.T) {
	c := New("https://lms.example.com/", "t", time.Second, 5, 2)
	if c.Origin() != "https://lms.example.com" {
		t.Errorf("Expected trailing slash trimmed, got %q", c.Origin())
	}
	if c.Doer == nil || c.Doer.Limiter == nil {
		t.Fatal("Expected doer with limiter")
	}
	if c.Doer.Retry.MaxAttempts != 1 {
		t.Errorf("Expected a single attempt per call, got %d", c.Doer.Retry.MaxAttempts)
	}
}

func TestCallMissingToken(t *testing.T) {
	c := New("https://lms.example.com", "", time.Second, 0, 0)
	err := c.Call(context.Background(), "core_webservice_get_site_info", nil, nil)
	if err == nil || !strings.Contains(err.Error(), "missing web service token") {
		t.Fatalf("Expected missing token error, got %v", err)
	}
}

func TestRemoteError(t *testing.T) {
	_, c := newTestServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"core_course_get_contents": writeJSON(`{"exception":"require_login_exception","errorcode":"requireloginerror","message":"Course or activity not accessible."}`),
	})

	_, err := c.CourseContents(context.Background(), 7)
	var rerr *RemoteError
	if !errors.As(err, &rerr) {
		t.Fatalf("Expected *RemoteError, got %T: %v", err, err)
	}
	if rerr.ErrorCode != "requireloginerror" {
		t.Errorf("Expected errorcode requireloginerror, got %q", rerr.ErrorCode)
	}
	if rerr.Function != "core_course_get_contents" {
		t.Errorf("Expected function name on error, got %q", rerr.Function)
	}
	if httpx.IsOffline(err) {
		t.Error("remote error must not be classified offline")
	}
}

func TestMalformedBody(t *testing.T) {
	_, c := newTestServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"core_enrol_get_users_courses": writeJSON(`{"not":"a list"}`),
	})
	_, err := c.ListUserCourses(context.Background(), 3)
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("Expected ErrMalformed, got %v", err)
	}
}

func TestOfflineServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c := New(srv.URL, testToken, time.Second, 0, 0)
	srv.Close()

	_, err := c.SiteInfo(context.Background())
	if !httpx.IsOffline(err) {
		t.Fatalf("Expected offline error, got %v", err)
	}
	if strings.Contains(err.Error(), testToken) {
		t.Errorf("token leaked into error: %v", err)
	}
}

func TestListUserCoursesTolerantFields(t *testing.T) {
	_, c := newTestServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"core_enrol_get_users_courses": func(w http.ResponseWriter, r *http.Request) {
			if r.PostForm.Get("userid") != "42" {
				t.Errorf("Expected userid 42, got %q", r.PostForm.Get("userid"))
			}
			w.Write([]byte(`[
				{"id":"5","fullname":"Go Programming","shortname":"GO101","category":2,
				 "courseimage":"https://lms/img.png","lastaccess":1700000000,"hidden":"0",
				 "overviewfiles":[{"filename":"a.png","fileurl":"https://lms/a.png","mimetype":"image/png"}]},
				{"id":6,"fullname":"Design","categoryname":12,"progress":null}
			]`))
		},
	})

	courses, err := c.ListUserCourses(context.Background(), 42)
	if err != nil {
		t.Fatalf("ListUserCourses: %v", err)
	}
	if len(courses) != 2 {
		t.Fatalf("Expected 2 courses, got %d", len(courses))
	}
	if courses[0].ID.Int() != 5 || courses[0].CourseImage != "https://lms/img.png" {
		t.Errorf("unexpected first course: %+v", courses[0])
	}
	if courses[0].LastAccess.Int() != 1700000000 {
		t.Errorf("Expected lastaccess parsed, got %d", courses[0].LastAccess)
	}
	if courses[1].CategoryName.String() != "12" {
		t.Errorf("Expected numeric categoryname kept as string, got %q", courses[1].CategoryName)
	}
}

func TestCourseContentsCompletion(t *testing.T) {
	_, c := newTestServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"core_course_get_contents": writeJSON(`[
			{"id":10,"name":"Week 1","section":1,"modules":[
				{"id":100,"instance":9,"name":"Intro quiz","modname":"quiz",
				 "completiondata":{"state":1,"timecompleted":1700000100},
				 "dates":[{"label":"Closes:","timestamp":1700500000,"dataid":"timeclose"}]},
				{"id":101,"name":"Slides","modname":"resource","completion":0}
			]}
		]`),
	})

	sections, err := c.CourseContents(context.Background(), 5)
	if err != nil {
		t.Fatalf("CourseContents: %v", err)
	}
	if len(sections) != 1 || len(sections[0].Modules) != 2 {
		t.Fatalf("unexpected sections: %+v", sections)
	}
	quiz := sections[0].Modules[0]
	if quiz.CompletionData == nil || quiz.CompletionData.State == nil || quiz.CompletionData.State.Int() != 1 {
		t.Errorf("Expected completion state 1, got %+v", quiz.CompletionData)
	}
	if len(quiz.Dates) != 1 || quiz.Dates[0].DataID != "timeclose" {
		t.Errorf("Expected timeclose date, got %+v", quiz.Dates)
	}
	if sections[0].Modules[1].CompletionData != nil {
		t.Error("Expected untracked module without completion data")
	}
}

func TestGradeItemsAndOverview(t *testing.T) {
	_, c := newTestServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"gradereport_user_get_grade_items": writeJSON(`{"usergrades":[{"courseid":5,"userid":42,"gradeitems":[
			{"id":1,"itemname":"Quiz 1","itemtype":"mod","itemmodule":"quiz","cmid":100,"graderaw":8.5,"grademax":10,"gradedategraded":1700000000},
			{"id":2,"itemname":"Essay","itemtype":"mod","itemmodule":"assign","cmid":101,"graderaw":null,"grademax":"100.00"}
		]}],"warnings":[]}`),
		"gradereport_overview_get_course_grades": writeJSON(`{"grades":[{"courseid":5,"grade":"85.00","rawgrade":"85.00000","rank":null}],"warnings":[]}`),
	})

	items, err := c.GradeItems(context.Background(), 42, 5)
	if err != nil {
		t.Fatalf("GradeItems: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(items))
	}
	if !items[0].GradeRaw.Valid || items[0].GradeRaw.Value != 8.5 {
		t.Errorf("Expected graderaw 8.5, got %+v", items[0].GradeRaw)
	}
	if items[1].GradeRaw.Valid {
		t.Error("Expected null graderaw to be invalid")
	}
	if items[1].GradeMax.Value != 100 {
		t.Errorf("Expected string grademax parsed, got %+v", items[1].GradeMax)
	}

	overview, err := c.CourseGrades(context.Background(), 42)
	if err != nil {
		t.Fatalf("CourseGrades: %v", err)
	}
	if len(overview) != 1 || overview[0].RawGrade.Value != 85 {
		t.Errorf("unexpected overview: %+v", overview)
	}
}

func TestUserCompetencyShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{"flat", `{"usercompetency":{"competencyid":3,"proficiency":true,"grade":2}}`, true},
		{"nested", `{"usercompetencysummary":{"usercompetency":{"competencyid":3,"proficiency":1}}}`, true},
		{"none", `{}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, c := newTestServer(t, map[string]func(http.ResponseWriter, *http.Request){
				"tool_lp_data_for_user_competency_summary": writeJSON(tt.body),
			})
			uc, err := c.UserCompetency(context.Background(), 42, 3)
			if err != nil {
				t.Fatalf("UserCompetency: %v", err)
			}
			if (uc != nil) != tt.want {
				t.Fatalf("Expected present=%v, got %+v", tt.want, uc)
			}
			if uc != nil && (uc.Proficiency == nil || !bool(*uc.Proficiency)) {
				t.Errorf("Expected proficiency true, got %+v", uc.Proficiency)
			}
		})
	}
}

func TestUserBadgesCourseFilterParam(t *testing.T) {
	_, c := newTestServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"core_badges_get_user_badges": func(w http.ResponseWriter, r *http.Request) {
			if _, ok := r.PostForm["courseid"]; ok {
				t.Error("courseid must be omitted when 0")
			}
			w.Write([]byte(`{"badges":[{"id":1,"name":"Starter","dateissued":1700000000,"courseid":null}]}`))
		},
	})
	badges, err := c.UserBadges(context.Background(), 42, 0)
	if err != nil {
		t.Fatalf("UserBadges: %v", err)
	}
	if len(badges) != 1 || badges[0].Name != "Starter" {
		t.Errorf("unexpected badges: %+v", badges)
	}
}

func TestAssignmentNestedByCourse(t *testing.T) {
	_, c := newTestServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"mod_assign_get_assignments": func(w http.ResponseWriter, r *http.Request) {
			if r.PostForm.Get("courseids[0]") != "5" {
				t.Errorf("Expected courseids[0]=5, got %q", r.PostForm.Get("courseids[0]"))
			}
			w.Write([]byte(`{"courses":[{"id":5,"assignments":[{"id":1,"cmid":200,"name":"Essay","duedate":1700000000,"grade":100}]}]}`))
		},
	})
	a, err := c.Assignment(context.Background(), 5, 200)
	if err != nil {
		t.Fatalf("Assignment: %v", err)
	}
	if a.Name != "Essay" || a.DueDate.Int() != 1700000000 {
		t.Errorf("unexpected assignment: %+v", a)
	}

	_, err = c.Assignment(context.Background(), 5, 999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestModuleDetail(t *testing.T) {
	_, c := newTestServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"mod_forum_get_forums_by_courses": writeJSON(`[{"id":3,"cmid":300,"name":"News","intro":"<p>Announcements</p>","type":"news"}]`),
		"mod_page_get_pages_by_courses":   writeJSON(`{"pages":[{"id":4,"coursemodule":301,"name":"Syllabus","intro":"Read me","content":"<h1>x</h1>"}]}`),
	})

	forum, err := c.ModuleDetail(context.Background(), "forum", 5, 300)
	if err != nil {
		t.Fatalf("forum: %v", err)
	}
	if forum.Name != "News" || forum.Fields["type"] != "news" {
		t.Errorf("unexpected forum detail: %+v", forum)
	}

	page, err := c.ModuleDetail(context.Background(), "PAGE", 5, 301)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if page.Intro != "Read me" {
		t.Errorf("unexpected page detail: %+v", page)
	}

	_, err = c.ModuleDetail(context.Background(), "imscp", 5, 1)
	if !errors.Is(err, ErrUnsupportedModule) {
		t.Errorf("Expected ErrUnsupportedModule, got %v", err)
	}
}

func TestFlexTypes(t *testing.T) {
	var v struct {
		A FlexInt    `json:"a"`
		B FlexInt    `json:"b"`
		C FlexInt    `json:"c"`
		D NullFloat  `json:"d"`
		E NullFloat  `json:"e"`
		F FlexBool   `json:"f"`
		G FlexString `json:"g"`
	}
	if err := json.Unmarshal([]byte(`{"a":"12","b":true,"c":null,"d":"85,5 %","e":"-","f":"1","g":7}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.A != 12 || v.B != 1 || v.C != 0 {
		t.Errorf("FlexInt: got %d %d %d", v.A, v.B, v.C)
	}
	if !v.D.Valid || v.D.Value != 85.5 {
		t.Errorf("NullFloat: got %+v", v.D)
	}
	if v.E.Valid {
		t.Errorf("Expected '-' to be absent, got %+v", v.E)
	}
	if !bool(v.F) {
		t.Error("FlexBool: expected true")
	}
	if v.G != "7" {
		t.Errorf("FlexString: got %q", v.G)
	}
}
