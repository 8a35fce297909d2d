package mappers

import (
	"strings"

	"course-dashboard/internal/domain"
)

// moduleKinds maps upstream module types (and known plugin aliases) to kinds.
var moduleKinds = map[string]domain.Kind{
	"lesson":        domain.KindLesson,
	"quiz":          domain.KindQuiz,
	"assign":        domain.KindAssignment,
	"assignment":    domain.KindAssignment,
	"forum":         domain.KindDiscussion,
	"hsuforum":      domain.KindDiscussion,
	"scorm":         domain.KindSCORM,
	"resource":      domain.KindResource,
	"imscp":         domain.KindResource,
	"url":           domain.KindURLLink,
	"workshop":      domain.KindWorkshop,
	"choice":        domain.KindChoice,
	"feedback":      domain.KindFeedback,
	"page":          domain.KindPage,
	"book":          domain.KindBook,
	"folder":        domain.KindFolder,
	"glossary":      domain.KindGlossary,
	"wiki":          domain.KindWiki,
	"chat":          domain.KindChat,
	"survey":        domain.KindSurvey,
	"questionnaire": domain.KindSurvey,
	"data":          domain.KindDatabase,
	"h5pactivity":   domain.KindInteractiveContent,
	"hvp":           domain.KindInteractiveContent,
	"lti":           domain.KindExternalTool,
}

// KindOf resolves a raw module type. Unknown types become KindGeneric with
// the capitalized raw type as label.
func KindOf(rawType string) (domain.Kind, string) {
	key := strings.ToLower(strings.TrimSpace(rawType))
	if k, ok := moduleKinds[key]; ok {
		return k, KindLabel(k)
	}
	label := capitalize(key)
	if label == "" {
		label = KindLabel(domain.KindGeneric)
	}
	return domain.KindGeneric, label
}

// KindLabel is the display label of a kind.
func KindLabel(k domain.Kind) string {
	switch k {
	case domain.KindLesson:
		return "Lesson"
	case domain.KindQuiz:
		return "Quiz"
	case domain.KindAssignment:
		return "Assignment"
	case domain.KindDiscussion:
		return "Discussion"
	case domain.KindSCORM:
		return "SCORM package"
	case domain.KindResource:
		return "Resource"
	case domain.KindURLLink:
		return "Link"
	case domain.KindWorkshop:
		return "Workshop"
	case domain.KindChoice:
		return "Choice"
	case domain.KindFeedback:
		return "Feedback"
	case domain.KindPage:
		return "Page"
	case domain.KindBook:
		return "Book"
	case domain.KindFolder:
		return "Folder"
	case domain.KindGlossary:
		return "Glossary"
	case domain.KindWiki:
		return "Wiki"
	case domain.KindChat:
		return "Chat"
	case domain.KindSurvey:
		return "Survey"
	case domain.KindDatabase:
		return "Database"
	case domain.KindInteractiveContent:
		return "Interactive content"
	case domain.KindExternalTool:
		return "External tool"
	case domain.KindGeneric:
		return "Activity"
	}
	return "Activity"
}

// ModName is the canonical upstream module type of a kind, used to build
// links when the raw type is unknown. Generic has none.
func ModName(k domain.Kind) string {
	switch k {
	case domain.KindLesson:
		return "lesson"
	case domain.KindQuiz:
		return "quiz"
	case domain.KindAssignment:
		return "assign"
	case domain.KindDiscussion:
		return "forum"
	case domain.KindSCORM:
		return "scorm"
	case domain.KindResource:
		return "resource"
	case domain.KindURLLink:
		return "url"
	case domain.KindWorkshop:
		return "workshop"
	case domain.KindChoice:
		return "choice"
	case domain.KindFeedback:
		return "feedback"
	case domain.KindPage:
		return "page"
	case domain.KindBook:
		return "book"
	case domain.KindFolder:
		return "folder"
	case domain.KindGlossary:
		return "glossary"
	case domain.KindWiki:
		return "wiki"
	case domain.KindChat:
		return "chat"
	case domain.KindSurvey:
		return "survey"
	case domain.KindDatabase:
		return "data"
	case domain.KindInteractiveContent:
		return "h5pactivity"
	case domain.KindExternalTool:
		return "lti"
	case domain.KindGeneric:
		return ""
	}
	return ""
}
