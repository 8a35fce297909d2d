package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"course-dashboard/internal/domain"
)

// Keep header order EXACT.
var progressHeader = []string{
	"COURSE_ID",
	"COURSE_NAME",
	"SECTION",
	"ACTIVITY_ID",
	"ACTIVITY_NAME",
	"KIND",
	"STATUS",
	"PROGRESS",
	"DUE_DATE",
	"COURSE_PROGRESS",
}

var gradesHeader = []string{
	"COURSE_ID",
	"ITEM_NAME",
	"ITEM_KIND",
	"RAW_GRADE",
	"MAX_GRADE",
	"PERCENTAGE",
	"LETTER",
	"PASSED",
	"GRADED_AT",
}

// WriteProgressCSV writes one row per activity of the course tree.
// A course without activities still gets a row with the activity columns empty.
func WriteProgressCSV(w io.Writer, courses []domain.CourseNode) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	if err := cw.Write(progressHeader); err != nil {
		return err
	}
	for _, c := range courses {
		for _, row := range progressRows(c) {
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func progressRows(c domain.CourseNode) [][]string {
	courseID := strconv.Itoa(c.ID)
	courseProgress := strconv.Itoa(c.Progress)
	name := cleanString(c.Name)

	var rows [][]string
	for _, s := range c.Sections {
		for _, a := range s.Activities {
			rows = append(rows, []string{
				courseID,                 // COURSE_ID
				name,                     // COURSE_NAME
				cleanString(s.Name),      // SECTION
				strconv.Itoa(a.ID),       // ACTIVITY_ID
				cleanString(a.Name),      // ACTIVITY_NAME
				string(a.Kind),           // KIND
				string(a.Status),         // STATUS
				strconv.Itoa(a.Progress), // PROGRESS
				formatTime(a.DueDate),    // DUE_DATE
				courseProgress,           // COURSE_PROGRESS
			})
		}
	}
	if len(rows) == 0 {
		rows = append(rows, []string{courseID, name, "", "", "", "", "", "", "", courseProgress})
	}
	return rows
}

// WriteGradesCSV writes one row per grade item.
func WriteGradesCSV(w io.Writer, grades []domain.GradeRecord) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	if err := cw.Write(gradesHeader); err != nil {
		return err
	}
	for _, g := range grades {
		raw := ""
		if g.RawGrade != nil {
			raw = floatToString(*g.RawGrade)
		}
		row := []string{
			strconv.Itoa(g.CourseID),
			cleanString(g.ItemName),
			g.ItemKind,
			raw,
			floatToString(g.MaxGrade),
			strconv.Itoa(g.Percentage),
			g.LetterGrade,
			strconv.FormatBool(g.Passed),
			formatTime(g.GradedAt),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile creates outPath (and its directory) and hands it to write.
func WriteFile(outPath string, write func(io.Writer) error) (err error) {
	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("export: create dir: %w", err)
		}
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", outPath, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("export: close %s: %w", outPath, cerr)
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("export: write %s: %w", outPath, err)
	}
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func floatToString(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// cleanString keeps a cell on one line.
func cleanString(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "\r", " ")
}
