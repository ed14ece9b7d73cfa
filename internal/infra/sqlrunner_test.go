package infra

import (
	"errors"
	"testing"
)

func TestExtractMarker(t *testing.T) {
	query := "--sql 0b6f3c1e-2d4a-4c7e-9a51-3f7d2c8e1a90\nselect 1;\n"
	marker, body, err := extractMarker(query)
	if err != nil {
		t.Fatalf("extractMarker returned error: %v", err)
	}
	if marker != "0b6f3c1e-2d4a-4c7e-9a51-3f7d2c8e1a90" {
		t.Fatalf("marker = %q", marker)
	}
	if body != "select 1;" {
		t.Fatalf("body = %q, want %q", body, "select 1;")
	}
}

func TestExtractMarkerRejectsUntaggedQuery(t *testing.T) {
	tests := []string{
		"select 1;",
		"--sql not-a-uuid\nselect 1;",
		"   ",
	}
	for _, query := range tests {
		if _, _, err := extractMarker(query); err == nil {
			t.Fatalf("extractMarker(%q) should fail", query)
		}
	}
	if _, _, err := extractMarker("select 1;"); !errors.Is(err, errMissingMarker) {
		t.Fatalf("expected errMissingMarker, got %v", err)
	}
}
