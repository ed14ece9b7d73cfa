package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestJobQueriesCarryUniqueMarkers(t *testing.T) {
	violations, err := lintTargets([]string{filepath.Join("..", "..", "sqlinline")})
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	for _, v := range violations {
		t.Errorf("%s", v)
	}
}

func TestLintReportsMissingAndDuplicateMarkers(t *testing.T) {
	dir := t.TempDir()
	src := "package q\n\n" +
		"const QOk = `--sql 11111111-2222-4333-8444-555555555555\nselect 1`\n\n" +
		"const QDup = `--sql 11111111-2222-4333-8444-555555555555\nselect 2`\n\n" +
		"const QBare = `select id from image_jobs`\n\n" +
		"const NotSQL = `hello world`\n"
	if err := os.WriteFile(filepath.Join(dir, "q.go"), []byte(src), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	violations, err := lintTargets([]string{dir})
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	if len(violations) != 2 {
		t.Fatalf("violations = %v, want 2", violations)
	}
	var names []string
	for _, v := range violations {
		names = append(names, v.name+": "+v.message)
	}
	joined := strings.Join(names, "\n")
	if !strings.Contains(joined, "QBare: missing") || !strings.Contains(joined, "QDup: duplicate marker") {
		t.Fatalf("unexpected violations:\n%s", joined)
	}
}
