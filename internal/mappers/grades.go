package mappers

import (
	"strings"

	"course-dashboard/internal/domain"
	"course-dashboard/internal/progress"
	"course-dashboard/internal/providers/moodle"
)

// PassPercentage applies when the grade item has no pass mark of its own.
const PassPercentage = 50

type letterBand struct {
	min    int
	letter string
}

// letterBands is scanned top-down; the first band whose minimum is met wins.
var letterBands = []letterBand{
	{90, "A+"},
	{85, "A"},
	{80, "A-"},
	{75, "B+"},
	{70, "B"},
	{65, "B-"},
	{60, "C+"},
	{55, "C"},
	{50, "C-"},
	{45, "D+"},
	{40, "D"},
}

// Letters lists every letter in table order, F last.
func Letters() []string {
	out := make([]string, 0, len(letterBands)+1)
	for _, b := range letterBands {
		out = append(out, b.letter)
	}
	return append(out, "F")
}

// Letter maps an integer percentage to its letter grade.
func Letter(pct int) string {
	for _, b := range letterBands {
		if pct >= b.min {
			return b.letter
		}
	}
	return "F"
}

// GradeItem maps one grade report row. Hidden grades count as ungraded.
func GradeItem(courseID int, it moodle.GradeItem) domain.GradeRecord {
	g := domain.GradeRecord{
		CourseID: courseID,
		ItemName: firstNonEmpty(it.ItemName, itemFallbackName(it.ItemType)),
		ItemKind: firstNonEmpty(it.ItemModule, it.ItemType),
		MaxGrade: 100,
		Feedback: strings.TrimSpace(it.Feedback),
		GradedAt: unixTime(it.GradeDateGraded.Int()),
	}
	if it.GradeMax.Valid && it.GradeMax.Value > 0 {
		g.MaxGrade = it.GradeMax.Value
	}
	if bool(it.GradeIsHidden) || !it.GradeRaw.Valid {
		g.LetterGrade = "-"
		return g
	}

	raw := it.GradeRaw.Value
	g.RawGrade = &raw
	floor := 0.0
	if it.GradeMin.Valid && it.GradeMin.Value < g.MaxGrade {
		floor = it.GradeMin.Value
	}
	g.Percentage = progress.Clamp(progress.Round((raw - floor) * 100 / (g.MaxGrade - floor)))
	g.LetterGrade = Letter(g.Percentage)
	if it.GradePass.Valid && it.GradePass.Value > 0 {
		g.Passed = raw >= it.GradePass.Value
	} else {
		g.Passed = g.Percentage >= PassPercentage
	}
	return g
}

func itemFallbackName(itemType string) string {
	if strings.EqualFold(itemType, "course") {
		return "Course total"
	}
	return "Grade item"
}

// CourseGrade maps a bulk overview row, read as a percentage of 100.
func CourseGrade(cg moodle.CourseGrade, courseName string) domain.GradeRecord {
	g := domain.GradeRecord{
		CourseID:    cg.CourseID.Int(),
		ItemName:    firstNonEmpty(courseName, "Course total"),
		ItemKind:    "course",
		MaxGrade:    100,
		LetterGrade: "-",
	}
	v := cg.RawGrade
	if !v.Valid {
		v = cg.Grade
	}
	if !v.Valid {
		return g
	}
	raw := v.Value
	g.RawGrade = &raw
	g.Percentage = progress.Clamp(progress.Round(raw))
	g.LetterGrade = Letter(g.Percentage)
	g.Passed = g.Percentage >= PassPercentage
	return g
}
