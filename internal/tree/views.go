package tree

import (
	"fmt"
	"sort"
	"time"

	"course-dashboard/internal/domain"
)

// Sections flattens every section with its course.
func Sections(courses []domain.CourseNode) []domain.SectionRef {
	out := []domain.SectionRef{}
	for _, c := range courses {
		for _, s := range c.Sections {
			out = append(out, domain.SectionRef{CourseID: c.ID, CourseName: c.Name, Section: s})
		}
	}
	return out
}

// Activities flattens activities accepted by keep, in tree order.
func Activities(courses []domain.CourseNode, keep func(domain.ActivityNode) bool) []domain.ActivityRef {
	out := []domain.ActivityRef{}
	for _, c := range courses {
		for _, s := range c.Sections {
			for _, a := range s.Activities {
				if keep == nil || keep(a) {
					out = append(out, domain.ActivityRef{CourseName: c.Name, Activity: a})
				}
			}
		}
	}
	return out
}

// Interactive keeps activities a learner acts on.
func Interactive(a domain.ActivityNode) bool { return a.Kind.Interactive() }

// Lessons keeps lesson-kind activities.
func Lessons(a domain.ActivityNode) bool { return a.Kind == domain.KindLesson }

// StripSections returns course headers without their section trees.
func StripSections(courses []domain.CourseNode) []domain.CourseNode {
	out := make([]domain.CourseNode, len(courses))
	for i, c := range courses {
		c.Sections = []domain.SectionNode{}
		out[i] = c
	}
	return out
}

const (
	highWindow   = 48 * time.Hour
	mediumWindow = 7 * 24 * time.Hour
)

// Event statuses.
const (
	EventCompleted = "completed"
	EventOverdue   = "overdue"
	EventUpcoming  = "upcoming"
)

// Schedule derives one event per activity with a due date, sorted by due
// time. Dates are rendered in now's location.
func Schedule(courses []domain.CourseNode, now time.Time) []domain.ScheduleEvent {
	type dated struct {
		at time.Time
		ev domain.ScheduleEvent
	}
	var all []dated
	for _, c := range courses {
		for _, s := range c.Sections {
			for _, a := range s.Activities {
				if a.DueDate == nil {
					continue
				}
				due := a.DueDate.In(now.Location())
				status, priority := eventState(a, due, now)
				all = append(all, dated{at: due, ev: domain.ScheduleEvent{
					ID:              fmt.Sprintf("%d-%d", c.ID, a.ID),
					ActivityID:      a.ID,
					Title:           a.Name,
					CourseID:        c.ID,
					Date:            due.Format("2006-01-02"),
					Time:            due.Format("15:04"),
					DurationMinutes: a.Duration,
					Priority:        priority,
					Status:          status,
				}})
			}
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].at.Equal(all[j].at) {
			return all[i].at.Before(all[j].at)
		}
		return all[i].ev.ID < all[j].ev.ID
	})
	out := make([]domain.ScheduleEvent, len(all))
	for i, d := range all {
		out[i] = d.ev
	}
	return out
}

func eventState(a domain.ActivityNode, due, now time.Time) (string, domain.Priority) {
	if a.Status == domain.StatusCompleted {
		return EventCompleted, domain.PriorityLow
	}
	left := due.Sub(now)
	switch {
	case left < 0:
		return EventOverdue, domain.PriorityHigh
	case left <= highWindow:
		return EventUpcoming, domain.PriorityHigh
	case left <= mediumWindow:
		return EventUpcoming, domain.PriorityMedium
	default:
		return EventUpcoming, domain.PriorityLow
	}
}
