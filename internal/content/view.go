package content

import "course-dashboard/internal/domain"

// State is the per-activity load state.
type State string

const (
	StateIdle          State = "idle"
	StateLoading       State = "loading"
	StateReady         State = "ready"
	StateFallbackReady State = "fallback-ready"
	StateFailed        State = "failed"
)

// Tier identifies which source produced a view.
type Tier int

const (
	TierSpecific  Tier = 1
	TierGeneric   Tier = 2
	TierSynthetic Tier = 3
)

func (t Tier) String() string {
	switch t {
	case TierSpecific:
		return "specific"
	case TierGeneric:
		return "generic"
	case TierSynthetic:
		return "synthetic"
	}
	return "unknown"
}

// Field is one labelled value of a view.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// View is the structured content the presentation layer renders. Fallback
// views carry IsFallbackInterface and a Start action.
type View struct {
	ActivityID          int         `json:"activityId"`
	CourseID            int         `json:"courseId"`
	Kind                domain.Kind `json:"kind"`
	KindLabel           string      `json:"kindLabel"`
	Title               string      `json:"title"`
	Description         string      `json:"description"`
	SectionName         string      `json:"sectionName,omitempty"`
	Fields              []Field     `json:"fields"`
	Tier                Tier        `json:"tier"`
	IsFallbackInterface bool        `json:"isFallbackInterface"`
	Action              *Action     `json:"action,omitempty"`
	URL                 string      `json:"url"`
}

// StartResult is the outcome of invoking a Start action: live content when
// the retry succeeded, otherwise the LMS link to open.
type StartResult struct {
	View    *View  `json:"view,omitempty"`
	OpenURL string `json:"openUrl,omitempty"`
	Error   string `json:"error,omitempty"`
}
