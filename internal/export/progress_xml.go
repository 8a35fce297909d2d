package export

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"time"

	"course-dashboard/internal/domain"
)

type xmlReport struct {
	XMLName  xml.Name    `xml:"dashboard"`
	UserID   int         `xml:"user_id,attr"`
	BuiltAt  string      `xml:"built_at,attr,omitempty"`
	Courses  []xmlCourse `xml:"course"`
	Failures []xmlFailed `xml:"unavailable>category,omitempty"`
}

type xmlCourse struct {
	ID         int           `xml:"id,attr"`
	Name       string        `xml:"name"`
	Category   string        `xml:"category,omitempty"`
	Progress   int           `xml:"progress"`
	URL        string        `xml:"url,omitempty"`
	Activities []xmlActivity `xml:"activities>activity"`
}

type xmlActivity struct {
	ID       int    `xml:"id,attr"`
	Kind     string `xml:"kind,attr"`
	Status   string `xml:"status,attr"`
	Name     string `xml:"name"`
	Section  string `xml:"section,omitempty"`
	Progress int    `xml:"progress"`
	DueDate  string `xml:"due_date,omitempty"`
}

type xmlFailed struct {
	Name    string `xml:"name,attr"`
	Source  string `xml:"source,attr"`
	Offline bool   `xml:"offline,attr"`
}

// WriteProgressXML writes the snapshot's course tree as a single XML file.
func WriteProgressXML(outPath string, s *domain.Snapshot) error {
	if s == nil {
		return errors.New("export: no snapshot")
	}

	out := xmlReport{
		UserID:  s.UserID,
		Courses: make([]xmlCourse, 0, len(s.Tree)),
	}
	if !s.BuiltAt.IsZero() {
		out.BuiltAt = s.BuiltAt.UTC().Format(time.RFC3339)
	}

	for _, c := range s.Tree {
		row := xmlCourse{
			ID:       c.ID,
			Name:     cleanString(c.Name),
			Category: cleanString(c.CategoryName),
			Progress: c.Progress,
			URL:      c.URL,
		}
		for _, sec := range c.Sections {
			for _, a := range sec.Activities {
				row.Activities = append(row.Activities, xmlActivity{
					ID:       a.ID,
					Kind:     string(a.Kind),
					Status:   string(a.Status),
					Name:     cleanString(a.Name),
					Section:  cleanString(sec.Name),
					Progress: a.Progress,
					DueDate:  formatTime(a.DueDate),
				})
			}
		}
		out.Courses = append(out.Courses, row)
	}
	for _, f := range s.Failures {
		out.Failures = append(out.Failures, xmlFailed{
			Name:    string(f.Category),
			Source:  f.Source,
			Offline: f.Offline,
		})
	}

	b, err := xml.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("export: marshal xml: %w", err)
	}
	return WriteFile(outPath, func(w io.Writer) error {
		_, err := w.Write(append([]byte(xml.Header), b...))
		return err
	})
}
