package mappers

import (
	"strings"

	"course-dashboard/internal/domain"
	"course-dashboard/internal/providers/moodle"
)

// GenericImage is the last tier of every image chain.
const GenericImage = "/static/defaults/generic.jpg"

// ImageSource gathers every place a node may carry an image.
type ImageSource struct {
	Image       string
	CourseImage string
	ImageURL    string
	Files       []moodle.File
	// Kind selects the per-kind default for activities; empty for courses
	// and sections.
	Kind domain.Kind
	// Keywords is matched against the keyword defaults (name, category).
	Keywords string
}

type keywordImage struct {
	words []string
	image string
}

// keywordImages is scanned in order; the first row with a matching word wins.
var keywordImages = []keywordImage{
	{[]string{"programming", "programación", "code", "coding", "software", "developer", "golang", "python", "javascript"}, "/static/defaults/programming.jpg"},
	{[]string{"design", "diseño", "ux", "ui ", "graphic"}, "/static/defaults/design.jpg"},
	{[]string{"data", "datos", "analytics", "statistics", "machine learning"}, "/static/defaults/data.jpg"},
	{[]string{"business", "negocio", "management", "marketing", "finance"}, "/static/defaults/business.jpg"},
	{[]string{"math", "matemática", "algebra", "calculus"}, "/static/defaults/math.jpg"},
	{[]string{"science", "ciencia", "biology", "chemistry", "physics"}, "/static/defaults/science.jpg"},
	{[]string{"language", "idioma", "english", "inglés", "spanish", "español"}, "/static/defaults/languages.jpg"},
}

// kindImage is the per-kind default; KindGeneric has none and falls through.
func kindImage(k domain.Kind) string {
	if k == "" || k == domain.KindGeneric || !k.Valid() {
		return ""
	}
	return "/static/defaults/activity-" + string(k) + ".svg"
}

// ResolveImage walks the fixed chain: direct image/courseimage field,
// imageurl, first image/* file, kind or keyword default, generic default.
// The result is never empty.
func ResolveImage(src ImageSource) string {
	if v := firstNonEmpty(src.Image, src.CourseImage); v != "" {
		return v
	}
	if v := firstNonEmpty(src.ImageURL); v != "" {
		return v
	}
	for _, f := range src.Files {
		if strings.HasPrefix(strings.ToLower(f.MimeType), "image/") && strings.TrimSpace(f.FileURL) != "" {
			return strings.TrimSpace(f.FileURL)
		}
	}
	if v := kindImage(src.Kind); v != "" {
		return v
	}
	if v := keywordDefault(src.Keywords); v != "" {
		return v
	}
	return GenericImage
}

func keywordDefault(text string) string {
	text = strings.ToLower(text)
	if strings.TrimSpace(text) == "" {
		return ""
	}
	text += " "
	for _, row := range keywordImages {
		for _, w := range row.words {
			if strings.Contains(text, w) {
				return row.image
			}
		}
	}
	return ""
}
