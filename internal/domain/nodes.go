package domain

import "time"

// CompletionSignal is the raw completion indicator reported by the LMS.
// State is nil when the LMS sent no completion data for the activity.
type CompletionSignal struct {
	State         *int       `json:"state,omitempty"`
	TimeCompleted *time.Time `json:"timeCompleted,omitempty"`
	Tracked       bool       `json:"tracked"`
}

// CourseNode is the top of the progress tree.
type CourseNode struct {
	ID                   int           `json:"id"`
	Name                 string        `json:"name"`
	ShortName            string        `json:"shortName"`
	CategoryName         string        `json:"categoryName"`
	Summary              string        `json:"summary"`
	Sections             []SectionNode `json:"sections"`
	SectionCount         int           `json:"sectionCount"`
	CompletedSections    int           `json:"completedSections"`
	ActivityCount        int           `json:"activityCount"`
	CompletedActivities  int           `json:"completedActivities"`
	InProgressActivities int           `json:"inProgressActivities"`
	Progress             int           `json:"progress"`
	ResolvedImage        string        `json:"resolvedImage"`
	LastAccessed         *time.Time    `json:"lastAccessed,omitempty"`
	EnrollmentDate       *time.Time    `json:"enrollmentDate,omitempty"`
	URL                  string        `json:"url"`
}

// SectionNode groups activities inside a course.
type SectionNode struct {
	ID                   int            `json:"id"`
	CourseID             int            `json:"courseId"`
	Name                 string         `json:"name"`
	Summary              string         `json:"summary"`
	Position             int            `json:"position"`
	Activities           []ActivityNode `json:"activities"`
	TotalActivities      int            `json:"totalActivities"`
	CompletedActivities  int            `json:"completedActivities"`
	InProgressActivities int            `json:"inProgressActivities"`
	Progress             int            `json:"progress"`
	ResolvedImage        string         `json:"resolvedImage"`
}

// ActivityNode is one leaf of the tree.
type ActivityNode struct {
	ID            int              `json:"id"`
	InstanceID    int              `json:"instanceId"`
	CourseID      int              `json:"courseId"`
	SectionID     int              `json:"sectionId"`
	SectionName   string           `json:"sectionName"`
	Name          string           `json:"name"`
	Kind          Kind             `json:"kind"`
	KindLabel     string           `json:"kindLabel"`
	RawType       string           `json:"rawType"`
	Status        Status           `json:"status"`
	Progress      int              `json:"progress"`
	Description   string           `json:"description"`
	Duration      int              `json:"durationMinutes"`
	Points        int              `json:"points"`
	Difficulty    string           `json:"difficulty"`
	DueDate       *time.Time       `json:"dueDate,omitempty"`
	ResolvedImage string           `json:"resolvedImage"`
	URL           string           `json:"url"`
	Completion    CompletionSignal `json:"completion"`
}

// SectionRef is a section flattened out of its course for list views.
type SectionRef struct {
	CourseID   int         `json:"courseId"`
	CourseName string      `json:"courseName"`
	Section    SectionNode `json:"section"`
}

// ActivityRef is an activity flattened out of the tree with its course name.
type ActivityRef struct {
	CourseName string       `json:"courseName"`
	Activity   ActivityNode `json:"activity"`
}
