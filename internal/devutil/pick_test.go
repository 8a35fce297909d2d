package devutil

import (
	"reflect"
	"testing"

	"course-dashboard/internal/domain"
)

func TestPick(t *testing.T) {
	snap := domain.Snapshot{
		UserID:  7,
		Profile: domain.Profile{FullName: "Ada Lovelace", SiteName: "Campus"},
		Courses: []domain.CourseNode{
			{ID: 1, Name: "Go Programming", Progress: 50},
			{ID: 2, Name: "Databases", Progress: 100},
		},
	}

	testCases := []struct {
		name     string
		input    any
		keys     []string
		expected map[string]any
	}{
		{
			name:  "Top-level keys",
			input: snap,
			keys:  []string{"userId", "generation"},
			expected: map[string]any{
				"userId":     float64(7),
				"generation": float64(0),
			},
		},
		{
			name:  "Nested object",
			input: snap,
			keys:  []string{"profile.fullName", "profile.siteName"},
			expected: map[string]any{
				"profile.fullName": "Ada Lovelace",
				"profile.siteName": "Campus",
			},
		},
		{
			name:  "Array index",
			input: snap,
			keys:  []string{"courses.1.name", "courses.0.progress"},
			expected: map[string]any{
				"courses.1.name":     "Databases",
				"courses.0.progress": float64(50),
			},
		},
		{
			name:     "Out of range and bad index",
			input:    snap,
			keys:     []string{"courses.2.name", "courses.x.name", "courses.-1.name"},
			expected: map[string]any{},
		},
		{
			name:     "Path through a scalar",
			input:    snap,
			keys:     []string{"userId.value"},
			expected: map[string]any{},
		},
		{
			name:     "Nil input",
			input:    nil,
			keys:     []string{"userId"},
			expected: map[string]any{},
		},
		{
			name:     "Unmarshalable input",
			input:    func() {},
			keys:     []string{"userId"},
			expected: map[string]any{},
		},
		{
			name:     "No keys",
			input:    snap,
			keys:     nil,
			expected: map[string]any{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := Pick(tc.input, tc.keys...)
			if !reflect.DeepEqual(result, tc.expected) {
				t.Errorf("Pick() = %v, want %v", result, tc.expected)
			}
		})
	}
}

func TestPickWholeSubtree(t *testing.T) {
	got := pick(map[string]any{"failures": []any{map[string]any{"category": "badges"}}}, "failures")
	want := map[string]any{"failures": []any{map[string]any{"category": "badges"}}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("pick() = %v, want %v", got, want)
	}
}
