package workflow

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultWorkflowDir is the conventional location of workflow files.
const DefaultWorkflowDir = ".github/workflows"

// ParseWorkflowYAML decodes a workflow from YAML bytes and normalizes it.
func ParseWorkflowYAML(data []byte) (Workflow, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Workflow{}, fmt.Errorf("workflow: definition payload is empty")
	}
	var wf Workflow
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return Workflow{}, fmt.Errorf("workflow: decode definition: %w", err)
	}
	return wf.Normalized()
}

// LoadWorkflowReader reads workflow data from an io.Reader.
func LoadWorkflowReader(r io.Reader) (Workflow, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return Workflow{}, fmt.Errorf("workflow: read definition: %w", err)
	}
	return ParseWorkflowYAML(content)
}

// LoadWorkflowFile loads a workflow from an explicit file path.
func LoadWorkflowFile(path string) (Workflow, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Workflow{}, fmt.Errorf("workflow: read %s: %w", path, err)
	}
	wf, parseErr := ParseWorkflowYAML(content)
	if parseErr != nil {
		return Workflow{}, fmt.Errorf("workflow: %s: %w", path, parseErr)
	}
	wf.Path = path
	return wf, nil
}

// LoadWorkflowDir loads every .yml/.yaml file in a directory, sorted by file
// name. An empty baseDir falls back to DefaultWorkflowDir.
func LoadWorkflowDir(baseDir string) ([]Workflow, error) {
	if baseDir == "" {
		baseDir = DefaultWorkflowDir
	}
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return nil, fmt.Errorf("workflow: read dir %s: %w", baseDir, err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".yml" && ext != ".yaml" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	workflows := make([]Workflow, 0, len(names))
	for _, name := range names {
		wf, err := LoadWorkflowFile(filepath.Join(baseDir, name))
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, wf)
	}
	return workflows, nil
}
