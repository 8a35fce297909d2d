package mappers

import "course-dashboard/internal/domain"

// KindDefaults are used only when the LMS omits the field.
type KindDefaults struct {
	DurationMinutes int
	Points          int
	Difficulty      string
}

const (
	Beginner     = "beginner"
	Intermediate = "intermediate"
	Advanced     = "advanced"
)

var kindDefaults = map[domain.Kind]KindDefaults{
	domain.KindLesson:             {30, 10, Beginner},
	domain.KindQuiz:               {20, 10, Intermediate},
	domain.KindAssignment:         {60, 20, Intermediate},
	domain.KindDiscussion:         {15, 5, Beginner},
	domain.KindSCORM:              {45, 15, Intermediate},
	domain.KindResource:           {10, 0, Beginner},
	domain.KindURLLink:            {5, 0, Beginner},
	domain.KindWorkshop:           {90, 25, Advanced},
	domain.KindChoice:             {5, 2, Beginner},
	domain.KindFeedback:           {10, 2, Beginner},
	domain.KindPage:               {10, 0, Beginner},
	domain.KindBook:               {30, 0, Beginner},
	domain.KindFolder:             {5, 0, Beginner},
	domain.KindGlossary:           {15, 5, Beginner},
	domain.KindWiki:               {20, 5, Intermediate},
	domain.KindChat:               {30, 5, Beginner},
	domain.KindSurvey:             {10, 2, Beginner},
	domain.KindDatabase:           {20, 5, Intermediate},
	domain.KindInteractiveContent: {15, 10, Beginner},
	domain.KindExternalTool:       {30, 10, Intermediate},
	domain.KindGeneric:            {15, 5, Beginner},
}

// DefaultsFor returns the defaults row of k; unknown kinds get the generic row.
func DefaultsFor(k domain.Kind) KindDefaults {
	if d, ok := kindDefaults[k]; ok {
		return d
	}
	return kindDefaults[domain.KindGeneric]
}
