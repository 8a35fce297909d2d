// Package progress derives completion status and percentages bottom-up:
// activity, then section, then course. Course and section figures always come
// from activity counts.
package progress

import (
	"math"

	"course-dashboard/internal/domain"
)

// Completion states as reported by the LMS. Moodle names 2 COMPLETE_PASS and
// 3 COMPLETE_FAIL; the dashboard shows a passed activity as in progress until
// the LMS marks it complete.
const (
	StateIncomplete   = 0
	StateComplete     = 1
	StateInProgress   = 2
	StateCompleteFail = 3
)

// Round is round-half-up to the nearest integer.
func Round(x float64) int {
	return int(math.Floor(x + 0.5))
}

// Clamp bounds p to [0, 100].
func Clamp(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Ratio is num/den rounded half-up in integer arithmetic, 0 when den is not
// positive. num must not be negative.
func Ratio(num, den int) int {
	if den <= 0 || num <= 0 {
		return 0
	}
	return (2*num + den) / (2 * den)
}

// Percent is round(part/total*100), 0 when total is 0.
func Percent(part, total int) int {
	return Clamp(Ratio(100*part, total))
}

// Classify maps a completion signal plus raw progress to exactly one status.
func Classify(sig domain.CompletionSignal, rawProgress int) domain.Status {
	if sig.State != nil {
		switch *sig.State {
		case StateComplete:
			return domain.StatusCompleted
		case StateInProgress:
			return domain.StatusInProgress
		case StateCompleteFail:
			// failed attempts carry no status of their own; raw progress decides
		}
	}
	if rawProgress > 0 {
		return domain.StatusInProgress
	}
	return domain.StatusPending
}

// ActivityPercent is the activity's own progress for a given status.
func ActivityPercent(status domain.Status, rawProgress int) int {
	switch status {
	case domain.StatusCompleted:
		return 100
	case domain.StatusInProgress:
		if rawProgress > 0 {
			return Clamp(rawProgress)
		}
		return 50
	default:
		return 0
	}
}

// ApplyActivity sets Status and Progress. a.Progress holds the raw progress
// on entry.
func ApplyActivity(a *domain.ActivityNode) {
	raw := Clamp(a.Progress)
	a.Status = Classify(a.Completion, raw)
	a.Progress = ActivityPercent(a.Status, raw)
}

// SummarizeSection recomputes counts and progress from the section's activities.
func SummarizeSection(s *domain.SectionNode) {
	s.TotalActivities = len(s.Activities)
	s.CompletedActivities = 0
	s.InProgressActivities = 0
	for _, a := range s.Activities {
		switch a.Status {
		case domain.StatusCompleted:
			s.CompletedActivities++
		case domain.StatusInProgress:
			s.InProgressActivities++
		}
	}
	s.Progress = Percent(s.CompletedActivities, s.TotalActivities)
}

// SummarizeCourse sums activity counts across sections. Section percentages
// are never averaged.
func SummarizeCourse(c *domain.CourseNode) {
	c.SectionCount = len(c.Sections)
	c.ActivityCount = 0
	c.CompletedActivities = 0
	c.InProgressActivities = 0
	c.CompletedSections = 0
	for _, s := range c.Sections {
		c.ActivityCount += s.TotalActivities
		c.CompletedActivities += s.CompletedActivities
		c.InProgressActivities += s.InProgressActivities
		if s.Progress == 100 {
			c.CompletedSections++
		}
	}
	c.Progress = Percent(c.CompletedActivities, c.ActivityCount)
}

// Apply runs the whole calculation for one course in place.
func Apply(c *domain.CourseNode) {
	for i := range c.Sections {
		for j := range c.Sections[i].Activities {
			ApplyActivity(&c.Sections[i].Activities[j])
		}
		SummarizeSection(&c.Sections[i])
	}
	SummarizeCourse(c)
}
