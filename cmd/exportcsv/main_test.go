package main

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"course-dashboard/internal/config"
	"course-dashboard/internal/domain"
	"course-dashboard/internal/sftpclient"
)

func sampleSnapshot() *domain.Snapshot {
	return &domain.Snapshot{
		UserID: 7,
		Tree: []domain.CourseNode{{
			ID: 1, Name: "Go Programming", Progress: 100,
			Sections: []domain.SectionNode{{Name: "Week 1", Activities: []domain.ActivityNode{
				{ID: 101, Name: "Q1", Kind: domain.KindQuiz, Status: domain.StatusCompleted, Progress: 100},
			}}},
		}},
		Grades: []domain.GradeRecord{{CourseID: 1, ItemName: "Q1", MaxGrade: 10}},
	}
}

func TestWriteReports(t *testing.T) {
	dir := t.TempDir()
	testCases := []struct {
		name       string
		out        string
		grades     string
		wantFiles  int
		wantPrefix string
		expectErr  bool
	}{
		{name: "CSV", out: filepath.Join(dir, "p.csv"), wantFiles: 1, wantPrefix: "COURSE_ID,"},
		{name: "CSV with grades", out: filepath.Join(dir, "q.csv"), grades: filepath.Join(dir, "g.csv"), wantFiles: 2, wantPrefix: "COURSE_ID,"},
		{name: "XML", out: filepath.Join(dir, "p.xml"), wantFiles: 1, wantPrefix: "<?xml"},
		{name: "Unknown extension", out: filepath.Join(dir, "p.json"), expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			written, err := writeReports(sampleSnapshot(), tc.out, tc.grades)
			if tc.expectErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("writeReports() error = %v", err)
			}
			if len(written) != tc.wantFiles {
				t.Errorf("Expected %d files, got %v", tc.wantFiles, written)
			}
			b, err := os.ReadFile(tc.out)
			if err != nil {
				t.Fatal(err)
			}
			if !strings.HasPrefix(string(b), tc.wantPrefix) {
				t.Errorf("Unexpected content start: %q", string(b))
			}
		})
	}
}

func TestUploadConfig(t *testing.T) {
	got := uploadConfig(config.SFTPConfig{
		Host: "sftp.test", Port: 2222, User: "u", Pass: "p",
		Dir: "/inbound", Insecure: false, KnownHosts: "/etc/ssh/known_hosts",
	})
	want := sftpclient.Config{
		Host: "sftp.test", Port: 2222, User: "u", Pass: "p",
		RemoteDir: "/inbound", KnownHostsFile: "/etc/ssh/known_hosts",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("uploadConfig() = %+v, want %+v", got, want)
	}
}
