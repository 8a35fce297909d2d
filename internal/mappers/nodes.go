package mappers

import (
	"fmt"
	"strconv"
	"strings"

	"course-dashboard/internal/domain"
	"course-dashboard/internal/progress"
	"course-dashboard/internal/providers/moodle"
)

// CourseURL is the course landing page on the LMS.
func CourseURL(origin string, courseID int) string {
	return strings.TrimRight(origin, "/") + "/course/view.php?id=" + strconv.Itoa(courseID)
}

// ActivityURL links to an activity: <origin>/mod/<type>/view.php?id=<id>,
// or the course page when type or id is unknown.
func ActivityURL(origin, modName string, cmID, courseID int) string {
	modName = strings.ToLower(strings.TrimSpace(modName))
	if modName == "" || cmID <= 0 {
		return CourseURL(origin, courseID)
	}
	return strings.TrimRight(origin, "/") + "/mod/" + modName + "/view.php?id=" + strconv.Itoa(cmID)
}

// Course maps an enrolment record to a CourseNode without sections.
func Course(c moodle.Course, origin string) domain.CourseNode {
	id := c.ID.Int()
	name := firstNonEmpty(c.FullName, c.DisplayName, c.ShortName, fmt.Sprintf("Course %d", id))
	category := firstNonEmpty(c.CategoryName.String())

	files := make([]moodle.File, 0, len(c.OverviewFiles)+len(c.Files))
	files = append(files, c.OverviewFiles...)
	files = append(files, c.Files...)

	enrolled := c.TimeEnrolled.Int()
	if enrolled <= 0 {
		enrolled = c.StartDate.Int()
	}

	return domain.CourseNode{
		ID:           id,
		Name:         name,
		ShortName:    strings.TrimSpace(c.ShortName),
		CategoryName: category,
		Summary:      strings.TrimSpace(c.Summary),
		Sections:     []domain.SectionNode{},
		ResolvedImage: ResolveImage(ImageSource{
			Image:       c.Image,
			CourseImage: c.CourseImage,
			ImageURL:    c.ImageURL,
			Files:       files,
			Keywords:    name + " " + category,
		}),
		LastAccessed:   unixTime(c.LastAccess.Int()),
		EnrollmentDate: unixTime(enrolled),
		URL:            CourseURL(origin, id),
	}
}

// Section maps a raw section. ok is false for unnamed sections, which are
// not emitted.
func Section(s moodle.Section, courseID int) (domain.SectionNode, bool) {
	name := firstNonEmpty(s.Name)
	if name == "" {
		return domain.SectionNode{}, false
	}
	return domain.SectionNode{
		ID:            s.ID.Int(),
		CourseID:      courseID,
		Name:          name,
		Summary:       strings.TrimSpace(s.Summary),
		Position:      s.Section.Int(),
		Activities:    []domain.ActivityNode{},
		ResolvedImage: ResolveImage(ImageSource{Keywords: name}),
	}, true
}

// dueDateKeys are checked in order when picking an activity's due date.
var dueDateKeys = []string{"duedate", "timeclose", "cutoffdate"}

func dueDate(dates []moodle.Date) int {
	for _, key := range dueDateKeys {
		for _, d := range dates {
			if strings.EqualFold(d.DataID, key) && d.Timestamp.Int() > 0 {
				return d.Timestamp.Int()
			}
		}
	}
	return 0
}

// Activity maps a raw module. Status is left for the progress calculator;
// Progress carries the raw progress until then.
func Activity(m moodle.Module, courseID int, section domain.SectionNode, origin string) domain.ActivityNode {
	kind, label := KindOf(m.ModName)
	defaults := DefaultsFor(kind)
	id := m.ID.Int()

	a := domain.ActivityNode{
		ID:          id,
		InstanceID:  m.Instance.Int(),
		CourseID:    courseID,
		SectionID:   section.ID,
		SectionName: section.Name,
		Name:        firstNonEmpty(m.Name, fmt.Sprintf("%s %d", label, id)),
		Kind:        kind,
		KindLabel:   label,
		RawType:     strings.ToLower(strings.TrimSpace(m.ModName)),
		Description: strings.TrimSpace(m.Description),
		Duration:    defaults.DurationMinutes,
		Points:      defaults.Points,
		Difficulty:  defaults.Difficulty,
		DueDate:     unixTime(dueDate(m.Dates)),
		Completion:  completion(m),
	}
	if m.Duration.Valid && m.Duration.Value >= 0 {
		a.Duration = progress.Round(m.Duration.Value)
	}
	switch {
	case m.Points.Valid && m.Points.Value >= 0:
		a.Points = progress.Round(m.Points.Value)
	case m.Grade.Valid && m.Grade.Value >= 0:
		a.Points = progress.Round(m.Grade.Value)
	}
	if m.Progress.Valid {
		a.Progress = progress.Clamp(progress.Round(m.Progress.Value))
	}

	files := make([]moodle.File, 0, len(m.Contents)+len(m.Files))
	files = append(files, m.Contents...)
	files = append(files, m.Files...)
	a.ResolvedImage = ResolveImage(ImageSource{
		Image:    m.Image,
		ImageURL: m.ImageURL,
		Files:    files,
		Kind:     kind,
		Keywords: a.Name,
	})

	modName := a.RawType
	if modName == "" {
		modName = ModName(kind)
	}
	a.URL = firstNonEmpty(m.URL, ActivityURL(origin, modName, id, courseID))
	return a
}

func completion(m moodle.Module) domain.CompletionSignal {
	sig := domain.CompletionSignal{Tracked: m.Completion.Int() > 0}
	if cd := m.CompletionData; cd != nil {
		sig.Tracked = true
		if cd.State != nil {
			st := cd.State.Int()
			sig.State = &st
		}
		sig.TimeCompleted = unixTime(cd.TimeCompleted.Int())
	}
	return sig
}
