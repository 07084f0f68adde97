package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestExpandArgfilesInlinesFileContents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "args.txt")
	if err := os.WriteFile(path, []byte("--debounce\n100ms\n# comment\n\n--quiet\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := ExpandArgfiles([]string{"--watch", ".", "@" + path, "--verbose"})
	if err != nil {
		t.Fatalf("ExpandArgfiles: %v", err)
	}
	want := []string{"--watch", ".", "--debounce", "100ms", "--quiet", "--verbose"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestExpandArgfilesDetectsCycle(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	if err := os.WriteFile(a, []byte("@"+b), 0o644); err != nil {
		t.Fatalf("WriteFile a: %v", err)
	}
	if err := os.WriteFile(b, []byte("@"+a), 0o644); err != nil {
		t.Fatalf("WriteFile b: %v", err)
	}

	if _, err := ExpandArgfiles([]string{"@" + a}); err == nil {
		t.Fatalf("expected a cycle error")
	}
}

func TestExpandArgfilesMissingFile(t *testing.T) {
	if _, err := ExpandArgfiles([]string{"@/nonexistent/path/args.txt"}); err == nil {
		t.Fatalf("expected an error for a missing argfile")
	}
}
