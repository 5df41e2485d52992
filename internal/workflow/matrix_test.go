package workflow

import (
	"fmt"
	"strings"
	"testing"
)

func parseMatrix(t *testing.T, payload string) Matrix {
	t.Helper()
	const template = `
on: push
jobs:
  a:
    runs-on: ubuntu-latest
    strategy:
      matrix:
%s
    steps:
      - run: true
`
	wf, err := ParseWorkflowYAML([]byte(fmt.Sprintf(template, payload)))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	job, _ := wf.Jobs.Get("a")
	return job.Strategy.Matrix
}

func TestMatrixCartesianProduct(t *testing.T) {
	m := parseMatrix(t, `
        python-version: ['3.10', '3.11', '3.12']
        os: [ubuntu-latest, macos-latest]`)
	combos := m.Expand()
	if len(combos) != 6 {
		t.Fatalf("expected 6 combinations, got %d", len(combos))
	}
	// Sorted axis order means os varies slowest.
	if combos[0]["os"] != "ubuntu-latest" || combos[0]["python-version"] != "3.10" {
		t.Fatalf("unexpected first combination: %v", combos[0])
	}
}

func TestMatrixSingleAxisEnumeration(t *testing.T) {
	m := parseMatrix(t, `
        python-version: ['3.10', '3.11', '3.12']`)
	if m.Count() != 3 {
		t.Fatalf("expected exactly three interpreter versions, got %d", m.Count())
	}
}

func TestMatrixExclude(t *testing.T) {
	m := parseMatrix(t, `
        python-version: ['3.10', '3.11']
        os: [ubuntu-latest, macos-latest]
        exclude:
          - python-version: '3.10'
            os: macos-latest`)
	combos := m.Expand()
	if len(combos) != 3 {
		t.Fatalf("expected 3 combinations after exclude, got %d", len(combos))
	}
	for _, combo := range combos {
		if combo["python-version"] == "3.10" && combo["os"] == "macos-latest" {
			t.Fatalf("excluded combination survived: %v", combo)
		}
	}
}

func TestMatrixIncludeAugmentsMatching(t *testing.T) {
	m := parseMatrix(t, `
        python-version: ['3.10', '3.11']
        include:
          - python-version: '3.11'
            experimental: true`)
	combos := m.Expand()
	if len(combos) != 2 {
		t.Fatalf("include should not add combinations here, got %d", len(combos))
	}
	var augmented bool
	for _, combo := range combos {
		if combo["python-version"] == "3.11" {
			if combo["experimental"] != true {
				t.Fatalf("include did not augment matching combination: %v", combo)
			}
			augmented = true
		} else if _, ok := combo["experimental"]; ok {
			t.Fatalf("include leaked into non-matching combination: %v", combo)
		}
	}
	if !augmented {
		t.Fatalf("matching combination not found")
	}
}

func TestMatrixIncludeAppendsStandalone(t *testing.T) {
	m := parseMatrix(t, `
        python-version: ['3.10']
        include:
          - python-version: '3.13'`)
	combos := m.Expand()
	if len(combos) != 2 {
		t.Fatalf("standalone include should append, got %d combinations", len(combos))
	}
}

func TestMatrixEmptyAxisRejected(t *testing.T) {
	const payload = `
on: push
jobs:
  a:
    runs-on: ubuntu-latest
    strategy:
      matrix:
        python-version: []
    steps:
      - run: true
`
	_, err := ParseWorkflowYAML([]byte(payload))
	if err == nil || !strings.Contains(err.Error(), "axis python-version is empty") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMatrixScalarAxisRejected(t *testing.T) {
	const payload = `
on: push
jobs:
  a:
    runs-on: ubuntu-latest
    strategy:
      matrix:
        python-version: '3.10'
    steps:
      - run: true
`
	_, err := ParseWorkflowYAML([]byte(payload))
	if err == nil || !strings.Contains(err.Error(), "must be a sequence") {
		t.Fatalf("unexpected error: %v", err)
	}
}
