package domain

import "time"

// Category names one independently fetched slice of the dashboard.
type Category string

const (
	CategoryCourses      Category = "courses"
	CategorySections     Category = "sections"
	CategoryActivities   Category = "activities"
	CategoryTree         Category = "tree"
	CategorySchedule     Category = "schedule"
	CategoryProfile      Category = "profile"
	CategoryResources    Category = "resources"
	CategoryGrades       Category = "grades"
	CategoryCompetencies Category = "competencies"
	CategoryBadges       Category = "badges"
)

// AllCategories is the fan-out set of one aggregation pass.
var AllCategories = []Category{
	CategoryCourses, CategorySections, CategoryActivities, CategoryTree,
	CategorySchedule, CategoryProfile, CategoryResources, CategoryGrades,
	CategoryCompetencies, CategoryBadges,
}

// Snapshot is one immutable aggregation result. Consumers must not mutate it.
type Snapshot struct {
	UserID       int                `json:"userId"`
	Generation   uint64             `json:"generation"`
	BuiltAt      time.Time          `json:"builtAt"`
	Courses      []CourseNode       `json:"courses"`
	Lessons      []ActivityRef      `json:"lessons"`
	Sections     []SectionRef       `json:"sections"`
	Activities   []ActivityRef      `json:"activities"`
	Tree         []CourseNode       `json:"tree"`
	Events       []ScheduleEvent    `json:"events"`
	Profile      Profile            `json:"profile"`
	Resources    []ActivityRef      `json:"resources"`
	Grades       []GradeRecord      `json:"grades"`
	Competencies []CompetencyRecord `json:"competencies"`
	Badges       []BadgeRecord      `json:"badges"`

	// Failures lists the categories that degraded in this pass.
	Failures []CategoryFailure `json:"failures,omitempty"`
	// CourseFailures lists courses dropped by per-course isolation.
	CourseFailures []CourseFailure `json:"courseFailures,omitempty"`
}

// CategoryFailure records one category that fell back during a pass.
type CategoryFailure struct {
	Category Category `json:"category"`
	Error    string   `json:"error"`
	Offline  bool     `json:"offline"`
	// Source is where the replacement data came from: cache, seed or empty.
	Source string `json:"source"`
}

// CourseFailure records one course omitted from a category.
type CourseFailure struct {
	Category Category `json:"category,omitempty"`
	CourseID int      `json:"courseId"`
	Error    string   `json:"error"`
}

// LoadStatus is the pipeline status the UI renders.
type LoadStatus string

const (
	StatusIdle    LoadStatus = "idle"
	StatusLoading LoadStatus = "loading"
	StatusReady   LoadStatus = "ready"
	StatusError   LoadStatus = "error"
)

// ErrorKind distinguishes the banner the UI shows.
type ErrorKind string

const (
	ErrorNone    ErrorKind = ""
	ErrorOffline ErrorKind = "server-offline"
	ErrorLoad    ErrorKind = "load-error"
)

// State is the single read model exposed to the presentation layer.
type State struct {
	Status    LoadStatus `json:"status"`
	Snapshot  *Snapshot  `json:"snapshot,omitempty"`
	ErrorKind ErrorKind  `json:"errorKind,omitempty"`
	Error     string     `json:"error,omitempty"`
	// Stale is true while the snapshot comes from cache or a previous pass.
	Stale bool `json:"stale"`
}
