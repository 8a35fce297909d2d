package domain

import "time"

type GradeRecord struct {
	CourseID    int        `json:"courseId"`
	ItemName    string     `json:"itemName"`
	ItemKind    string     `json:"itemKind"`
	RawGrade    *float64   `json:"rawGrade,omitempty"`
	MaxGrade    float64    `json:"maxGrade"`
	Percentage  int        `json:"percentage"`
	LetterGrade string     `json:"letterGrade"`
	Passed      bool       `json:"passed"`
	Feedback    string     `json:"feedback"`
	GradedAt    *time.Time `json:"gradedAt,omitempty"`
}

// Graded reports whether the item carries an actual grade.
func (g GradeRecord) Graded() bool {
	return g.RawGrade != nil
}

type CompetencyRecord struct {
	ID           int              `json:"id"`
	ShortName    string           `json:"shortName"`
	Category     string           `json:"category"`
	FrameworkID  int              `json:"frameworkId"`
	UserProgress int              `json:"userProgress"`
	UserStatus   CompetencyStatus `json:"userStatus"`
}

type BadgeRecord struct {
	ID        int        `json:"id"`
	Name      string     `json:"name"`
	Issuer    string     `json:"issuer"`
	IsAwarded bool       `json:"isAwarded"`
	AwardedAt *time.Time `json:"awardedAt,omitempty"`
	CourseID  *int       `json:"courseId,omitempty"`
	ImageURL  string     `json:"imageUrl,omitempty"`
}

type ScheduleEvent struct {
	ID              string   `json:"id"`
	ActivityID      int      `json:"activityId"`
	Title           string   `json:"title"`
	CourseID        int      `json:"courseId"`
	Date            string   `json:"date"`
	Time            string   `json:"time"`
	DurationMinutes int      `json:"durationMinutes"`
	Priority        Priority `json:"priority"`
	Status          string   `json:"status"`
}

// Profile is the signed-in user as the LMS reports it.
type Profile struct {
	UserID     int    `json:"userId"`
	Username   string `json:"username"`
	FullName   string `json:"fullName"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	PictureURL string `json:"pictureUrl"`
	Lang       string `json:"lang"`
	SiteName   string `json:"siteName"`
}
