package moodle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrNotFound is returned when a lookup by id matches nothing.
var ErrNotFound = errors.New("moodle: not found")

// ErrUnsupportedModule is returned for module types without a detail function.
var ErrUnsupportedModule = errors.New("moodle: no detail function for module type")

func (c *Client) SiteInfo(ctx context.Context) (SiteInfo, error) {
	var out SiteInfo
	if err := c.Call(ctx, "core_webservice_get_site_info", url.Values{}, &out); err != nil {
		return SiteInfo{}, err
	}
	return out, nil
}

func (c *Client) ListUserCourses(ctx context.Context, userID int) ([]Course, error) {
	p := url.Values{}
	p.Set("userid", itoa(userID))
	p.Set("returnusercount", "0")
	var out []Course
	if err := c.Call(ctx, "core_enrol_get_users_courses", p, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CourseContents(ctx context.Context, courseID int) ([]Section, error) {
	p := url.Values{}
	p.Set("courseid", itoa(courseID))
	var out []Section
	if err := c.Call(ctx, "core_course_get_contents", p, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GradeItems returns the per-item grade report of one course.
func (c *Client) GradeItems(ctx context.Context, userID, courseID int) ([]GradeItem, error) {
	p := url.Values{}
	p.Set("userid", itoa(userID))
	p.Set("courseid", itoa(courseID))
	var out gradeItemsResponse
	if err := c.Call(ctx, "gradereport_user_get_grade_items", p, &out); err != nil {
		return nil, err
	}
	var items []GradeItem
	for _, ug := range out.UserGrades {
		items = append(items, ug.GradeItems...)
	}
	return items, nil
}

// CourseGrades returns the bulk overview: one final grade per enrolled course.
func (c *Client) CourseGrades(ctx context.Context, userID int) ([]CourseGrade, error) {
	p := url.Values{}
	p.Set("userid", itoa(userID))
	var out courseGradesResponse
	if err := c.Call(ctx, "gradereport_overview_get_course_grades", p, &out); err != nil {
		return nil, err
	}
	return out.Grades, nil
}

func (c *Client) ListCompetencies(ctx context.Context) ([]Competency, error) {
	var out []Competency
	if err := c.Call(ctx, "core_competency_list_competencies", url.Values{}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UserCompetency returns nil, nil when the user has no rating for the competency.
func (c *Client) UserCompetency(ctx context.Context, userID, competencyID int) (*UserCompetency, error) {
	p := url.Values{}
	p.Set("userid", itoa(userID))
	p.Set("competencyid", itoa(competencyID))
	var out userCompetencySummaryResponse
	if err := c.Call(ctx, "tool_lp_data_for_user_competency_summary", p, &out); err != nil {
		return nil, err
	}
	if out.UserCompetency != nil {
		return out.UserCompetency, nil
	}
	if out.UserCompetencySummary != nil {
		return out.UserCompetencySummary.UserCompetency, nil
	}
	return nil, nil
}

// UserBadges lists awarded badges; courseID 0 means all courses.
func (c *Client) UserBadges(ctx context.Context, userID, courseID int) ([]Badge, error) {
	p := url.Values{}
	p.Set("userid", itoa(userID))
	if courseID > 0 {
		p.Set("courseid", itoa(courseID))
	}
	var out badgesResponse
	if err := c.Call(ctx, "core_badges_get_user_badges", p, &out); err != nil {
		return nil, err
	}
	return out.Badges, nil
}

func (c *Client) Badge(ctx context.Context, badgeID int) (Badge, error) {
	p := url.Values{}
	p.Set("id", itoa(badgeID))
	var out badgeResponse
	if err := c.Call(ctx, "core_badges_get_badge", p, &out); err != nil {
		return Badge{}, err
	}
	if out.Badge == nil {
		return Badge{}, fmt.Errorf("%w: badge %d", ErrNotFound, badgeID)
	}
	return *out.Badge, nil
}

func (c *Client) CourseModule(ctx context.Context, cmID int) (CourseModule, error) {
	p := url.Values{}
	p.Set("cmid", itoa(cmID))
	var out courseModuleResponse
	if err := c.Call(ctx, "core_course_get_course_module", p, &out); err != nil {
		return CourseModule{}, err
	}
	if out.CM == nil {
		return CourseModule{}, fmt.Errorf("%w: course module %d", ErrNotFound, cmID)
	}
	return *out.CM, nil
}

func (c *Client) Quiz(ctx context.Context, courseID, cmID int) (Quiz, error) {
	p := url.Values{}
	indexed(p, "courseids", courseID)
	var out quizzesResponse
	if err := c.Call(ctx, "mod_quiz_get_quizzes_by_courses", p, &out); err != nil {
		return Quiz{}, err
	}
	for _, q := range out.Quizzes {
		if q.CourseModule.Int() == cmID {
			return q, nil
		}
	}
	return Quiz{}, fmt.Errorf("%w: quiz cm %d in course %d", ErrNotFound, cmID, courseID)
}

func (c *Client) Assignment(ctx context.Context, courseID, cmID int) (Assignment, error) {
	p := url.Values{}
	indexed(p, "courseids", courseID)
	var out assignmentsResponse
	if err := c.Call(ctx, "mod_assign_get_assignments", p, &out); err != nil {
		return Assignment{}, err
	}
	for _, crs := range out.Courses {
		for _, a := range crs.Assignments {
			if a.CmID.Int() == cmID {
				return a, nil
			}
		}
	}
	return Assignment{}, fmt.Errorf("%w: assignment cm %d in course %d", ErrNotFound, cmID, courseID)
}

func (c *Client) SCORM(ctx context.Context, courseID, cmID int) (SCORM, error) {
	p := url.Values{}
	indexed(p, "courseids", courseID)
	var out scormsResponse
	if err := c.Call(ctx, "mod_scorm_get_scorms_by_courses", p, &out); err != nil {
		return SCORM{}, err
	}
	for _, s := range out.SCORMs {
		if s.CourseModule.Int() == cmID {
			return s, nil
		}
	}
	return SCORM{}, fmt.Errorf("%w: scorm cm %d in course %d", ErrNotFound, cmID, courseID)
}

type detailFunc struct {
	function string
	list     string // key holding the records; "" for a bare array
}

// detailFuncs maps module types to their *_by_courses function.
var detailFuncs = map[string]detailFunc{
	"lesson":      {"mod_lesson_get_lessons_by_courses", "lessons"},
	"forum":       {"mod_forum_get_forums_by_courses", ""},
	"workshop":    {"mod_workshop_get_workshops_by_courses", "workshops"},
	"choice":      {"mod_choice_get_choices_by_courses", "choices"},
	"feedback":    {"mod_feedback_get_feedbacks_by_courses", "feedbacks"},
	"page":        {"mod_page_get_pages_by_courses", "pages"},
	"book":        {"mod_book_get_books_by_courses", "books"},
	"folder":      {"mod_folder_get_folders_by_courses", "folders"},
	"resource":    {"mod_resource_get_resources_by_courses", "resources"},
	"url":         {"mod_url_get_urls_by_courses", "urls"},
	"glossary":    {"mod_glossary_get_glossaries_by_courses", "glossaries"},
	"wiki":        {"mod_wiki_get_wikis_by_courses", "wikis"},
	"chat":        {"mod_chat_get_chats_by_courses", "chats"},
	"survey":      {"mod_survey_get_surveys_by_courses", "surveys"},
	"data":        {"mod_data_get_databases_by_courses", "databases"},
	"h5pactivity": {"mod_h5pactivity_get_h5pactivities_by_courses", "h5pactivities"},
	"lti":         {"mod_lti_get_ltis_by_courses", "ltis"},
}

// HasDetail reports whether ModuleDetail can serve modName.
func HasDetail(modName string) bool {
	_, ok := detailFuncs[strings.ToLower(modName)]
	return ok
}

// ModuleDetail fetches the record of one module through its *_by_courses
// function and picks the entry whose course module id matches cmID.
func (c *Client) ModuleDetail(ctx context.Context, modName string, courseID, cmID int) (ModuleDetail, error) {
	modName = strings.ToLower(modName)
	spec, ok := detailFuncs[modName]
	if !ok {
		return ModuleDetail{}, fmt.Errorf("%w: %q", ErrUnsupportedModule, modName)
	}
	p := url.Values{}
	indexed(p, "courseids", courseID)
	var raw json.RawMessage
	if err := c.Call(ctx, spec.function, p, &raw); err != nil {
		return ModuleDetail{}, err
	}
	records, err := detailRecords(raw, spec.list)
	if err != nil {
		return ModuleDetail{}, fmt.Errorf("%w: %s: %v", ErrMalformed, spec.function, err)
	}
	for _, rec := range records {
		if recordCM(rec) != cmID {
			continue
		}
		d := ModuleDetail{ModName: modName, CourseModule: cmID, Fields: rec}
		d.Name, _ = rec["name"].(string)
		d.Intro, _ = rec["intro"].(string)
		return d, nil
	}
	return ModuleDetail{}, fmt.Errorf("%w: %s cm %d in course %d", ErrNotFound, modName, cmID, courseID)
}

func detailRecords(raw json.RawMessage, key string) ([]map[string]any, error) {
	var records []map[string]any
	if key == "" {
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, err
		}
		return records, nil
	}
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, err
	}
	list, ok := wrapper[key]
	if !ok {
		return nil, nil
	}
	if err := json.Unmarshal(list, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func recordCM(rec map[string]any) int {
	for _, k := range []string{"coursemodule", "cmid"} {
		if v, ok := rec[k].(float64); ok {
			return int(v)
		}
	}
	return 0
}
