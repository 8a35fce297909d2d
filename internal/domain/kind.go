package domain

// Kind is the closed set of activity kinds the dashboard understands.
// Upstream module types outside this set normalize to KindGeneric.
type Kind string

const (
	KindLesson             Kind = "lesson"
	KindQuiz               Kind = "quiz"
	KindAssignment         Kind = "assignment"
	KindDiscussion         Kind = "discussion"
	KindSCORM              Kind = "scorm"
	KindResource           Kind = "resource"
	KindURLLink            Kind = "url-link"
	KindWorkshop           Kind = "workshop"
	KindChoice             Kind = "choice"
	KindFeedback           Kind = "feedback"
	KindPage               Kind = "page"
	KindBook               Kind = "book"
	KindFolder             Kind = "folder"
	KindGlossary           Kind = "glossary"
	KindWiki               Kind = "wiki"
	KindChat               Kind = "chat"
	KindSurvey             Kind = "survey"
	KindDatabase           Kind = "database"
	KindInteractiveContent Kind = "interactive-content"
	KindExternalTool       Kind = "external-tool"
	KindGeneric            Kind = "generic"
)

// AllKinds lists every kind in display order (filter chips use this order).
var AllKinds = []Kind{
	KindLesson, KindQuiz, KindAssignment, KindDiscussion, KindSCORM,
	KindResource, KindURLLink, KindWorkshop, KindChoice, KindFeedback,
	KindPage, KindBook, KindFolder, KindGlossary, KindWiki, KindChat,
	KindSurvey, KindDatabase, KindInteractiveContent, KindExternalTool,
	KindGeneric,
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	for _, v := range AllKinds {
		if v == k {
			return true
		}
	}
	return false
}

// Interactive reports whether learners act on the activity rather than just read it.
func (k Kind) Interactive() bool {
	switch k {
	case KindResource, KindURLLink, KindPage, KindBook, KindFolder:
		return false
	case KindLesson, KindQuiz, KindAssignment, KindDiscussion, KindSCORM,
		KindWorkshop, KindChoice, KindFeedback, KindGlossary, KindWiki,
		KindChat, KindSurvey, KindDatabase, KindInteractiveContent,
		KindExternalTool, KindGeneric:
		return true
	}
	return true
}

// Status is the learner's state on one activity.
type Status string

const (
	StatusCompleted  Status = "completed"
	StatusInProgress Status = "in-progress"
	StatusPending    Status = "pending"
)

// CompetencyStatus is the learner's state on one competency.
type CompetencyStatus string

const (
	CompetencyNotStarted CompetencyStatus = "not-started"
	CompetencyInProgress CompetencyStatus = "in-progress"
	CompetencyCompleted  CompetencyStatus = "completed"
)

// Priority ranks schedule events.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)
