package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/fwessels/cpreproc/internal/report"
)

type recorder struct {
	records []string
}

func (r *recorder) Logf(level report.Level, format string, args ...interface{}) {
	r.records = append(r.records, level.String()+": "+fmt.Sprintf(format, args...))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cpreproc.yaml")
	content := strings.Join([]string{
		"include:",
		"  - inc",
		"  - /usr/include",
		"define:",
		"  - DEBUG",
		"  - LEVEL=3",
		"output_dir: out",
		"overwrite: true",
		"multi_thread: true",
		"show_level: detail",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := &File{
		Include:     []string{filepath.Join(dir, "inc"), "/usr/include"},
		Define:      []string{"DEBUG", "LEVEL=3"},
		OutputDir:   filepath.Join(dir, "out"),
		Overwrite:   true,
		MultiThread: true,
		ShowLevel:   "detail",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown key", "includes: [a]\n"},
		{"bad level", "show_level: loud\n"},
		{"bad yaml", "include: [a\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "c.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Fatalf("expected error for %q", tt.content)
			}
		})
	}
}

func TestIncludeDirs(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	missing := filepath.Join(a, "missing")
	sep := string(os.PathListSeparator)

	log := &recorder{}
	got := IncludeDirs([]string{a + sep + missing, ""}, sep+b, log)
	if diff := cmp.Diff([]string{a, b}, got); diff != "" {
		t.Errorf("dirs mismatch (-want +got):\n%s", diff)
	}
	wantLog := []string{"warning: include directory (" + missing + ") not found"}
	if diff := cmp.Diff(wantLog, log.records); diff != "" {
		t.Errorf("log mismatch (-want +got):\n%s", diff)
	}
}

func TestOutputName(t *testing.T) {
	tests := []struct {
		input, outFile, outDir string
		want                   string
	}{
		{"src/main.c", "", "", filepath.Join("src", "main.p.c")},
		{"src/main.c", "", "build", filepath.Join("build", "main.p.c")},
		{"src/main.c", "x.i", "build", "x.i"},
		{"lib.h", "", "", "lib.p.c"},
	}
	for _, tt := range tests {
		if got := OutputName(tt.input, tt.outFile, tt.outDir); got != tt.want {
			t.Errorf("OutputName(%q, %q, %q) = %q, want %q", tt.input, tt.outFile, tt.outDir, got, tt.want)
		}
	}
}

func TestPlan(t *testing.T) {
	dir := t.TempDir()
	main := filepath.Join(dir, "main.c")
	util := filepath.Join(dir, "util.h")
	done := filepath.Join(dir, "done.c")
	if err := os.WriteFile(filepath.Join(dir, "done.p.c"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	log := &recorder{}
	got, err := Plan([]string{main, util, done}, "", "", false, log)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	want := []Target{
		{Input: main, Output: filepath.Join(dir, "main.p.c")},
		{Input: util, Output: filepath.Join(dir, "util.p.c")},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("targets mismatch (-want +got):\n%s", diff)
	}
	wantLog := []string{
		"warning: file(" + util + ") may not a c file",
		"error: file(" + filepath.Join(dir, "done.p.c") + ") existed, require overwrite",
	}
	if diff := cmp.Diff(wantLog, log.records); diff != "" {
		t.Errorf("log mismatch (-want +got):\n%s", diff)
	}

	log = &recorder{}
	got, err = Plan([]string{done}, "", "", true, log)
	if err != nil || len(got) != 1 {
		t.Fatalf("Plan with overwrite = %v, %v", got, err)
	}
	if len(log.records) != 1 || !strings.HasPrefix(log.records[0], "information: required overwrite") {
		t.Errorf("unexpected log %q", log.records)
	}

	if _, err := Plan([]string{main, done}, "out.c", "", true, nil); err == nil {
		t.Error("expected error for output file with several inputs")
	}
}

func TestExpandInputs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.c", "b.c", "c.h"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	got, err := ExpandInputs([]string{filepath.Join(dir, "*.c"), "plain.c"})
	if err != nil {
		t.Fatalf("ExpandInputs: %v", err)
	}
	want := []string{filepath.Join(dir, "a.c"), filepath.Join(dir, "b.c"), "plain.c"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	if _, err := ExpandInputs([]string{filepath.Join(dir, "*.cpp")}); err == nil {
		t.Error("expected error for pattern without matches")
	}
}
