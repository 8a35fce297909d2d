package moodle

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexInt accepts:
// - 12 (number)
// - "12" (numeric string)
// - true/false (1/0)
// - null or "" (0)
type FlexInt int64

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			*f = FlexInt(n)
			return nil
		}
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			*f = FlexInt(v)
			return nil
		}
		*f = 0
		return nil
	case 't':
		*f = 1
		return nil
	case 'f':
		*f = 0
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = FlexInt(v)
	return nil
}

func (f FlexInt) Int() int { return int(f) }

// NullFloat is a number that may be absent, null, or a formatted string
// such as "85.00" or "85,00 %".
type NullFloat struct {
	Value float64
	Valid bool
}

func (n *NullFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*n = NullFloat{}
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if v, ok := parseLooseFloat(s); ok {
			*n = NullFloat{Value: v, Valid: true}
		}
		return nil
	}
	if b[0] == 't' || b[0] == 'f' {
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = NullFloat{Value: v, Valid: true}
	return nil
}

func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// Ptr returns nil for an absent value.
func (n NullFloat) Ptr() *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

func parseLooseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return 0, false
	}
	if !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// FlexBool accepts true/false, 1/0 and "1"/"0".
type FlexBool bool

func (f *FlexBool) UnmarshalJSON(b []byte) error {
	var n FlexInt
	if err := n.UnmarshalJSON(b); err != nil {
		return err
	}
	*f = n != 0
	return nil
}

// FlexString accepts strings and numbers (some sites send ids as numbers in
// string fields).
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	if b[0] == '{' || b[0] == '[' {
		*f = ""
		return nil
	}
	*f = FlexString(string(b))
	return nil
}

func (f FlexString) String() string { return string(f) }

/* -------- Payloads -------- */

type File struct {
	FileName string `json:"filename"`
	FilePath string `json:"filepath"`
	FileURL  string `json:"fileurl"`
	MimeType string `json:"mimetype"`
	FileSize FlexInt `json:"filesize"`
	Type     string `json:"type"`
}

type Course struct {
	ID            FlexInt    `json:"id"`
	ShortName     string     `json:"shortname"`
	FullName      string     `json:"fullname"`
	DisplayName   string     `json:"displayname"`
	Summary       string     `json:"summary"`
	Category      FlexInt    `json:"category"`
	CategoryName  FlexString `json:"categoryname"`
	Image         string     `json:"image"`
	CourseImage   string     `json:"courseimage"`
	ImageURL      string     `json:"imageurl"`
	OverviewFiles []File     `json:"overviewfiles"`
	Files         []File     `json:"files"`
	LastAccess    FlexInt    `json:"lastaccess"`
	StartDate     FlexInt    `json:"startdate"`
	TimeEnrolled  FlexInt    `json:"timeenrolled"`
	Hidden        FlexBool   `json:"hidden"`
	Visible       *FlexInt   `json:"visible"`
}

type Completion struct {
	State         *FlexInt `json:"state"`
	TimeCompleted FlexInt  `json:"timecompleted"`
	ValueUsed     FlexBool `json:"valueused"`
	HasCompletion FlexBool `json:"hascompletion"`
	IsAutomatic   FlexBool `json:"isautomatic"`
}

type Date struct {
	Label     string  `json:"label"`
	Timestamp FlexInt `json:"timestamp"`
	DataID    string  `json:"dataid"`
}

type Module struct {
	ID             FlexInt     `json:"id"`
	Instance       FlexInt     `json:"instance"`
	Name           string      `json:"name"`
	ModName        string      `json:"modname"`
	ModPlural      string      `json:"modplural"`
	URL            string      `json:"url"`
	Description    string      `json:"description"`
	Visible        *FlexInt    `json:"visible"`
	UserVisible    *FlexBool   `json:"uservisible"`
	Completion     FlexInt     `json:"completion"`
	CompletionData *Completion `json:"completiondata"`
	Progress       NullFloat   `json:"progress"`
	Duration       NullFloat   `json:"duration"`
	Points         NullFloat   `json:"points"`
	Grade          NullFloat   `json:"grade"`
	Image          string      `json:"image"`
	ImageURL       string      `json:"imageurl"`
	Contents       []File      `json:"contents"`
	Files          []File      `json:"files"`
	Dates          []Date      `json:"dates"`
}

type Section struct {
	ID          FlexInt   `json:"id"`
	Name        string    `json:"name"`
	Summary     string    `json:"summary"`
	Section     FlexInt   `json:"section"`
	Visible     *FlexInt  `json:"visible"`
	UserVisible *FlexBool `json:"uservisible"`
	Modules     []Module  `json:"modules"`
}

type GradeItem struct {
	ID                   FlexInt   `json:"id"`
	ItemName             string    `json:"itemname"`
	ItemType             string    `json:"itemtype"`
	ItemModule           string    `json:"itemmodule"`
	ItemInstance         FlexInt   `json:"iteminstance"`
	CmID                 FlexInt   `json:"cmid"`
	GradeRaw             NullFloat `json:"graderaw"`
	GradeMin             NullFloat `json:"grademin"`
	GradeMax             NullFloat `json:"grademax"`
	GradePass            NullFloat `json:"gradepass"`
	PercentageFormatted  string    `json:"percentageformatted"`
	LetterGradeFormatted string    `json:"lettergradeformatted"`
	Feedback             string    `json:"feedback"`
	GradeDateGraded      FlexInt   `json:"gradedategraded"`
	GradeIsHidden        FlexBool  `json:"gradeishidden"`
}

type UserGrade struct {
	CourseID   FlexInt     `json:"courseid"`
	UserID     FlexInt     `json:"userid"`
	GradeItems []GradeItem `json:"gradeitems"`
}

type gradeItemsResponse struct {
	UserGrades []UserGrade `json:"usergrades"`
	Warnings   []Warning   `json:"warnings"`
}

// CourseGrade is one row of the bulk overview report.
type CourseGrade struct {
	CourseID FlexInt   `json:"courseid"`
	Grade    NullFloat `json:"grade"`
	RawGrade NullFloat `json:"rawgrade"`
	Rank     FlexInt   `json:"rank"`
}

type courseGradesResponse struct {
	Grades   []CourseGrade `json:"grades"`
	Warnings []Warning     `json:"warnings"`
}

type Competency struct {
	ID                    FlexInt    `json:"id"`
	ShortName             string     `json:"shortname"`
	IDNumber              FlexString `json:"idnumber"`
	Description           string     `json:"description"`
	CompetencyFrameworkID FlexInt    `json:"competencyframeworkid"`
	Category              string     `json:"category"`
	FrameworkShortName    string     `json:"frameworkshortname"`
}

type UserCompetency struct {
	ID              FlexInt    `json:"id"`
	CompetencyID    FlexInt    `json:"competencyid"`
	UserID          FlexInt    `json:"userid"`
	Status          FlexInt    `json:"status"`
	Proficiency     *FlexBool  `json:"proficiency"`
	Grade           *FlexInt   `json:"grade"`
	GradeName       FlexString `json:"gradename"`
	ProficiencyName FlexString `json:"proficiencyname"`
}

type userCompetencySummaryResponse struct {
	UserCompetency        *UserCompetency `json:"usercompetency"`
	UserCompetencySummary *struct {
		UserCompetency *UserCompetency `json:"usercompetency"`
	} `json:"usercompetencysummary"`
}

type Badge struct {
	ID          FlexInt    `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	IssuerName  string     `json:"issuername"`
	DateIssued  FlexInt    `json:"dateissued"`
	CourseID    *FlexInt   `json:"courseid"`
	BadgeURL    string     `json:"badgeurl"`
	UniqueHash  FlexString `json:"uniquehash"`
}

type badgesResponse struct {
	Badges   []Badge   `json:"badges"`
	Warnings []Warning `json:"warnings"`
}

type badgeResponse struct {
	Badge *Badge `json:"badge"`
}

type SiteInfo struct {
	UserID         FlexInt `json:"userid"`
	Username       string  `json:"username"`
	FullName       string  `json:"fullname"`
	FirstName      string  `json:"firstname"`
	LastName       string  `json:"lastname"`
	UserPictureURL string  `json:"userpictureurl"`
	Lang           string  `json:"lang"`
	SiteName       string  `json:"sitename"`
	SiteURL        string  `json:"siteurl"`
}

// CourseModule is the generic module descriptor (core_course_get_course_module).
type CourseModule struct {
	ID          FlexInt `json:"id"`
	Course      FlexInt `json:"course"`
	Name        string  `json:"name"`
	ModName     string  `json:"modname"`
	Instance    FlexInt `json:"instance"`
	Section     FlexInt `json:"section"`
	SectionNum  FlexInt `json:"sectionnum"`
	URL         string  `json:"url"`
	Completion  FlexInt `json:"completion"`
	GradeMax    NullFloat `json:"grademax"`
	Description string  `json:"description"`
}

type courseModuleResponse struct {
	CM       *CourseModule `json:"cm"`
	Warnings []Warning     `json:"warnings"`
}

type Quiz struct {
	ID             FlexInt   `json:"id"`
	CourseModule   FlexInt   `json:"coursemodule"`
	Course         FlexInt   `json:"course"`
	Name           string    `json:"name"`
	Intro          string    `json:"intro"`
	TimeOpen       FlexInt   `json:"timeopen"`
	TimeClose      FlexInt   `json:"timeclose"`
	TimeLimit      FlexInt   `json:"timelimit"`
	Attempts       FlexInt   `json:"attempts"`
	Grade          NullFloat `json:"grade"`
	SumGrades      NullFloat `json:"sumgrades"`
	HasQuestions   FlexBool  `json:"hasquestions"`
	GradeMethod    FlexInt   `json:"grademethod"`
}

type quizzesResponse struct {
	Quizzes []Quiz `json:"quizzes"`
}

type Assignment struct {
	ID                       FlexInt   `json:"id"`
	CmID                     FlexInt   `json:"cmid"`
	Course                   FlexInt   `json:"course"`
	Name                     string    `json:"name"`
	Intro                    string    `json:"intro"`
	DueDate                  FlexInt   `json:"duedate"`
	CutoffDate               FlexInt   `json:"cutoffdate"`
	AllowSubmissionsFromDate FlexInt   `json:"allowsubmissionsfromdate"`
	Grade                    NullFloat `json:"grade"`
	MaxAttempts              FlexInt   `json:"maxattempts"`
	TeamSubmission           FlexBool  `json:"teamsubmission"`
}

type assignmentsResponse struct {
	Courses []struct {
		ID          FlexInt      `json:"id"`
		Assignments []Assignment `json:"assignments"`
	} `json:"courses"`
}

type SCORM struct {
	ID           FlexInt `json:"id"`
	CourseModule FlexInt `json:"coursemodule"`
	Course       FlexInt `json:"course"`
	Name         string  `json:"name"`
	Intro        string  `json:"intro"`
	Version      string  `json:"version"`
	MaxAttempt   FlexInt `json:"maxattempt"`
	PackageURL   string  `json:"packageurl"`
	LaunchURL    string  `json:"launch"`
	TimeOpen     FlexInt `json:"timeopen"`
	TimeClose    FlexInt `json:"timeclose"`
}

type scormsResponse struct {
	SCORMs []SCORM `json:"scorms"`
}

// ModuleDetail is the loosely-typed record returned by the remaining
// mod_*_get_*_by_courses functions.
type ModuleDetail struct {
	ModName      string
	CourseModule int
	Name         string
	Intro        string
	Fields       map[string]any
}

type Warning struct {
	Item        string     `json:"item"`
	ItemID      FlexInt    `json:"itemid"`
	WarningCode string     `json:"warningcode"`
	Message     string     `json:"message"`
}

type exception struct {
	Exception string `json:"exception"`
	ErrorCode string `json:"errorcode"`
	Message   string `json:"message"`
	DebugInfo string `json:"debuginfo"`
}
