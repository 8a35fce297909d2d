package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"course-dashboard/internal/domain"
)

func TestPrintSnapshot(t *testing.T) {
	s := &domain.Snapshot{
		UserID:  7,
		Profile: domain.Profile{FullName: "Ada Lovelace"},
		Courses: []domain.CourseNode{{ID: 1, Name: "Go Programming", Progress: 50}},
	}

	var buf bytes.Buffer
	if err := printSnapshot(&buf, s, []string{"profile.fullName", "courses.0.progress"}); err != nil {
		t.Fatalf("printSnapshot() error = %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(got) != 2 || got["profile.fullName"] != "Ada Lovelace" || got["courses.0.progress"] != float64(50) {
		t.Errorf("Unexpected picked output: %v", got)
	}

	buf.Reset()
	if err := printSnapshot(&buf, s, nil); err != nil {
		t.Fatalf("printSnapshot() error = %v", err)
	}
	var full domain.Snapshot
	if err := json.Unmarshal(buf.Bytes(), &full); err != nil {
		t.Fatalf("output is not a snapshot: %v", err)
	}
	if full.UserID != 7 || len(full.Courses) != 1 {
		t.Errorf("Unexpected full output: %+v", full)
	}
}

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "snapshot"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("Expected subcommand %q, got %v (%v)", name, cmd, err)
		}
	}
	if root.PersistentFlags().Lookup("config") == nil {
		t.Error("Expected persistent --config flag")
	}
}
