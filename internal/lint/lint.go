// Package lint inspects workflow definitions for configuration mistakes and
// risky patterns. Unlike workflow.Validate, which rejects a definition
// outright, lint decodes leniently and reports every finding it can, so a
// single broken needs edge does not hide the rest of the diagnosis.
package lint

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mlanghorne/ghactions/internal/workflow"
	"github.com/mlanghorne/ghactions/internal/workflow/expr"
)

// Severity ranks a finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Rule identifiers, usable in config to disable individual rules.
const (
	RuleMissingTriggers      = "missing-triggers"
	RuleNoJobs               = "no-jobs"
	RuleBadJobID             = "bad-job-id"
	RuleJobWithoutWork       = "job-without-work"
	RuleUnknownNeeds         = "unknown-needs"
	RuleSelfNeeds            = "self-needs"
	RuleNeedsCycle           = "needs-cycle"
	RuleDuplicateStepID      = "duplicate-step-id"
	RuleEmptyMatrixAxis      = "empty-matrix-axis"
	RuleBadCondition         = "bad-condition"
	RuleWorkflowIDTokenWrite = "workflow-id-token-write"
	RuleUnpinnedUses         = "unpinned-uses"
)

// Finding is one diagnostic produced by a rule.
type Finding struct {
	Rule     string
	Severity Severity
	JobID    string
	Message  string
	Path     string
}

func (f Finding) String() string {
	location := f.Path
	if f.JobID != "" {
		if location != "" {
			location += ":"
		}
		location += f.JobID
	}
	if location == "" {
		return fmt.Sprintf("%s: %s (%s)", f.Severity, f.Message, f.Rule)
	}
	return fmt.Sprintf("%s: %s: %s (%s)", f.Severity, location, f.Message, f.Rule)
}

// Options tunes a lint run.
type Options struct {
	// Disabled lists rule identifiers to skip.
	Disabled []string
}

func (o Options) disabled(rule string) bool {
	for _, name := range o.Disabled {
		if name == rule {
			return true
		}
	}
	return false
}

var jobIDPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// Check runs every enabled rule against a decoded workflow. Findings come
// back in a deterministic order: workflow-level rules first, then per-job
// rules in declaration order.
func Check(wf workflow.Workflow, opts Options) []Finding {
	run := &runner{wf: wf, opts: opts, path: wf.Path}
	run.workflowRules()
	for _, id := range wf.Jobs.IDs() {
		job, _ := wf.Jobs.Get(id)
		run.jobRules(id, job)
	}
	run.cycleRule()
	return run.findings
}

// CheckBytes decodes YAML leniently and lints the result. Decode failures
// are returned as an error because there is nothing to lint.
func CheckBytes(data []byte, opts Options) ([]Finding, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("lint: definition payload is empty")
	}
	var wf workflow.Workflow
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("lint: decode definition: %w", err)
	}
	return Check(wf, opts), nil
}

// CheckFile lints a workflow file.
func CheckFile(path string, opts Options) ([]Finding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lint: read %s: %w", path, err)
	}
	findings, err := CheckBytes(data, opts)
	if err != nil {
		return nil, fmt.Errorf("lint: %s: %w", path, err)
	}
	for i := range findings {
		findings[i].Path = path
	}
	return findings, nil
}

// HasErrors reports whether any finding carries error severity.
func HasErrors(findings []Finding) bool {
	for _, finding := range findings {
		if finding.Severity == SeverityError {
			return true
		}
	}
	return false
}

type runner struct {
	wf       workflow.Workflow
	opts     Options
	path     string
	findings []Finding
}

func (r *runner) report(rule string, severity Severity, jobID, format string, args ...any) {
	if r.opts.disabled(rule) {
		return
	}
	r.findings = append(r.findings, Finding{
		Rule:     rule,
		Severity: severity,
		JobID:    jobID,
		Message:  fmt.Sprintf(format, args...),
		Path:     r.path,
	})
}

func (r *runner) workflowRules() {
	if len(r.wf.On) == 0 {
		r.report(RuleMissingTriggers, SeverityError, "", "workflow declares no triggers")
	}
	if r.wf.Jobs.Len() == 0 {
		r.report(RuleNoJobs, SeverityError, "", "workflow declares no jobs")
	}
	// A workflow-scope id-token grant leaks the OIDC token to every job;
	// publishing jobs should request it themselves.
	if r.wf.Permissions.Level("id-token") == workflow.PermissionWrite {
		r.report(RuleWorkflowIDTokenWrite, SeverityWarning, "",
			"id-token: write is granted at workflow scope; scope it to the job that publishes")
	}
}

func (r *runner) jobRules(id string, job *workflow.Job) {
	if !jobIDPattern.MatchString(id) {
		r.report(RuleBadJobID, SeverityError, id, "job id %q is not well-formed", id)
	}
	if job.Uses == "" && len(job.Steps) == 0 {
		r.report(RuleJobWithoutWork, SeverityError, id, "job declares neither uses nor steps")
	}
	for _, dep := range job.Needs {
		dep = strings.TrimSpace(dep)
		if dep == id {
			r.report(RuleSelfNeeds, SeverityError, id, "job needs itself")
			continue
		}
		if _, ok := r.wf.Jobs.Get(dep); !ok {
			r.report(RuleUnknownNeeds, SeverityError, id, "job needs unknown job %q", dep)
		}
	}
	if job.If != "" {
		if _, err := expr.Parse(job.If); err != nil {
			r.report(RuleBadCondition, SeverityError, id, "if condition does not parse: %v", err)
		}
	}
	if job.Strategy != nil {
		for _, axis := range job.Strategy.Matrix.AxisNames() {
			if len(job.Strategy.Matrix.Axes[axis]) == 0 {
				r.report(RuleEmptyMatrixAxis, SeverityError, id, "matrix axis %q is empty", axis)
			}
		}
	}
	if job.IsReusable() {
		r.checkUses(id, job.Uses)
	}
	seen := map[string]struct{}{}
	for idx, step := range job.Steps {
		if step.ID != "" {
			if _, dup := seen[step.ID]; dup {
				r.report(RuleDuplicateStepID, SeverityError, id, "duplicate step id %q", step.ID)
			}
			seen[step.ID] = struct{}{}
		}
		if step.If != "" {
			if _, err := expr.Parse(step.If); err != nil {
				r.report(RuleBadCondition, SeverityError, id, "steps[%d] if condition does not parse: %v", idx, err)
			}
		}
		if step.Uses != "" {
			r.checkUses(id, step.Uses)
		}
	}
}

// checkUses flags remote references that float without a ref. Local paths
// and docker images are exempt.
func (r *runner) checkUses(jobID, uses string) {
	if strings.HasPrefix(uses, "./") || strings.HasPrefix(uses, "docker://") {
		return
	}
	if !strings.Contains(uses, "@") {
		r.report(RuleUnpinnedUses, SeverityWarning, jobID, "uses %q has no ref; pin it with @<tag-or-sha>", uses)
	}
}

func (r *runner) cycleRule() {
	if cycle := r.wf.NeedsCycle(); len(cycle) > 0 {
		r.report(RuleNeedsCycle, SeverityError, cycle[0], "needs cycle: %s", strings.Join(cycle, " -> "))
	}
}
