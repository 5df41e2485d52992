package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeWorkflow(t *testing.T, projectDir, name, payload string) string {
	t.Helper()
	dir := filepath.Join(projectDir, ".github", "workflows")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir workflows: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write workflow: %v", err)
	}
	return path
}

func TestInitCreatesDotDir(t *testing.T) {
	projectDir := t.TempDir()
	out, err := runCommand(t, "--project", projectDir, "init")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, ".ghactions") {
		t.Fatalf("unexpected output: %s", out)
	}
	if _, err := os.Stat(filepath.Join(projectDir, ".ghactions", "config.yaml")); err != nil {
		t.Fatalf("config not seeded: %v", err)
	}
}

func TestLintCleanWorkflow(t *testing.T) {
	projectDir := t.TempDir()
	writeWorkflow(t, projectDir, "ci.yml", `
on: push
jobs:
  build:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@v4
`)
	out, err := runCommand(t, "--project", projectDir, "lint")
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Checked 1 file(s): 0 finding(s)") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestLintFailsOnErrors(t *testing.T) {
	projectDir := t.TempDir()
	writeWorkflow(t, projectDir, "broken.yml", `
on: push
jobs:
  publish:
    needs: missing
    runs-on: ubuntu-latest
    steps:
      - run: true
`)
	out, err := runCommand(t, "--project", projectDir, "lint")
	if err == nil {
		t.Fatalf("lint should fail on error findings\n%s", out)
	}
	if !strings.Contains(out, "unknown-needs") {
		t.Fatalf("finding not printed: %s", out)
	}
}

func TestLintWarningsDoNotFail(t *testing.T) {
	projectDir := t.TempDir()
	writeWorkflow(t, projectDir, "warn.yml", `
on: push
jobs:
  build:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout
`)
	out, err := runCommand(t, "--project", projectDir, "lint")
	if err != nil {
		t.Fatalf("warnings alone should not fail: %v\n%s", err, out)
	}
	if !strings.Contains(out, "unpinned-uses") {
		t.Fatalf("warning not printed: %s", out)
	}
}

func TestLintDisableFlag(t *testing.T) {
	projectDir := t.TempDir()
	writeWorkflow(t, projectDir, "warn.yml", `
on: push
jobs:
  build:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout
`)
	out, err := runCommand(t, "--project", projectDir, "lint", "--disable", "unpinned-uses")
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, out)
	}
	if strings.Contains(out, "unpinned-uses") {
		t.Fatalf("disabled rule still printed: %s", out)
	}
}

func TestLintExplicitFiles(t *testing.T) {
	projectDir := t.TempDir()
	path := writeWorkflow(t, projectDir, "ci.yml", `
on: push
jobs:
  build:
    runs-on: ubuntu-latest
    steps:
      - run: true
`)
	out, err := runCommand(t, "--project", projectDir, "lint", path)
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Checked 1 file(s)") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestContextCommand(t *testing.T) {
	t.Setenv("GITHUB_EVENT_NAME", "push")
	t.Setenv("GITHUB_REF", "refs/heads/master")
	t.Setenv("GITHUB_REPOSITORY", "mlanghorne/ghactions")
	t.Setenv("GITHUB_EVENT_PATH", "")

	out, err := runCommand(t, "context")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"push", "refs/heads/master", "mlanghorne/ghactions"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestEventShowAndGet(t *testing.T) {
	payloadPath := filepath.Join(t.TempDir(), "event.json")
	payload := `{
  "action": "opened",
  "pull_request": {"number": 7, "title": "Add helpers", "head": {"ref": "feature/x"}},
  "repository": {"full_name": "mlanghorne/ghactions"}
}`
	if err := os.WriteFile(payloadPath, []byte(payload), 0o644); err != nil {
		t.Fatalf("write payload: %v", err)
	}

	out, err := runCommand(t, "event", "show", "--file", payloadPath, "--name", "pull_request")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "PR #7") {
		t.Fatalf("unexpected summary: %s", out)
	}

	out, err = runCommand(t, "event", "get", "--file", payloadPath, "--name", "pull_request", "$.pull_request.head.ref")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "feature/x" {
		t.Fatalf("unexpected value: %q", out)
	}
}

func TestEventRequiresPayload(t *testing.T) {
	t.Setenv("GITHUB_EVENT_PATH", "")
	_, err := runCommand(t, "event", "show")
	if err == nil {
		t.Fatalf("expected error without a payload source")
	}
}
