package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/pdf2llm/internal/doctree"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("PDF2LLM_CONFIG", "")
	t.Setenv("EMBEDDING_PROVIDER", "lexical")
	t.Setenv("EMBEDDING_CACHE", "")
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConvertThenCheck(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "guide.md", "# Setup\n\nInstall it.\n\n## Linux\n\nUse apt.\n")
	out := filepath.Join(dir, "guide.txt")

	_, stderr, err := run(t, "convert", src, "-o", out)
	if err != nil {
		t.Fatalf("convert failed: %v\n%s", err, stderr)
	}
	if !strings.Contains(stderr, "1/1 pages processed") {
		t.Errorf("expected summary on stderr, got %q", stderr)
	}

	stdout, _, err := run(t, "check", out)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	want := "1 pages, 2 sections\nSetup (p. 1-1)\n  Linux (p. 1-1)\n"
	if stdout != want {
		t.Errorf("expected outline %q, got %q", want, stdout)
	}
}

func TestCheck_Malformed(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.txt", "<!-- page: 2 -->\n")
	_, _, err := run(t, "check", path)
	if err == nil || !strings.Contains(err.Error(), "line 1") {
		t.Errorf("expected malformed error on line 1, got %v", err)
	}
}

func TestCompare_JSON(t *testing.T) {
	dir := t.TempDir()
	questions := writeFile(t, dir, "questions.txt", "how do I install on linux with apt")
	answers := writeFile(t, dir, "guide.md", "# Linux\n\ninstall on linux with apt\n\n# Windows\n\nrun the setup wizard\n")

	stdout, stderr, err := run(t, "compare", questions, answers, "--format", "json", "--min-similarity", "0.1")
	if err != nil {
		t.Fatalf("compare failed: %v\n%s", err, stderr)
	}
	var report doctree.QAReport
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, stdout)
	}
	if len(report.Questions) != 1 || report.Questions[0].IsUnmatched {
		t.Fatalf("expected one matched question, got %+v", report.Questions)
	}
	if got := report.Questions[0].Matches[0].SectionTitle; got != "Linux" {
		t.Errorf("expected Linux as best match, got %q", got)
	}
}

func TestCompare_BadFormat(t *testing.T) {
	_, _, err := run(t, "compare", "a.txt", "b.txt", "--format", "xml")
	if err == nil || !strings.Contains(err.Error(), "unknown format") {
		t.Errorf("expected format error, got %v", err)
	}
}

func TestSetup_RejectsInvalidFlags(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.txt", "hello")
	_, _, err := run(t, "convert", path, "--top-n", "0")
	if err == nil || !strings.Contains(err.Error(), "TOP_N") {
		t.Errorf("expected validation error, got %v", err)
	}
}
