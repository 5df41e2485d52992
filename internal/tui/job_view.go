package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mlanghorne/ghactions/internal/lint"
	"github.com/mlanghorne/ghactions/internal/workflow"
)

var (
	labelStyleRunnable = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	labelStyleReusable = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	labelStyleGated    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
	labelStyleWarn     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	detailTextStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
)

// jobView walks one workflow job by job.
type jobView struct {
	workflow  workflow.Workflow
	findings  []lint.Finding
	jobIDs    []string
	selection int
}

func newJobView(wf workflow.Workflow, findings []lint.Finding) *jobView {
	return &jobView{
		workflow: wf,
		findings: findings,
		jobIDs:   wf.Jobs.IDs(),
	}
}

func (v *jobView) Update(msg tea.Msg) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return
	}
	switch key.String() {
	case "up", "k":
		if v.selection > 0 {
			v.selection--
		}
	case "down", "j":
		if v.selection < len(v.jobIDs)-1 {
			v.selection++
		}
	}
}

func (v *jobView) View() string {
	name := strings.TrimSpace(v.workflow.Name)
	if name == "" {
		name = v.workflow.Path
	}
	lines := []string{
		fmt.Sprintf("Workflow: %s · Triggers: %s", name, strings.Join(v.workflow.On.Names(), ", ")),
		"",
	}
	for i, id := range v.jobIDs {
		lines = append(lines, v.renderJobLine(i, id))
		if i == v.selection {
			lines = append(lines, v.renderJobDetails(id))
		}
	}
	if summary := v.renderFindings(); summary != "" {
		lines = append(lines, "", summary)
	}
	return strings.Join(lines, "\n")
}

func (v *jobView) renderJobLine(idx int, id string) string {
	indicator := " "
	if idx == v.selection {
		indicator = ">"
	}
	job, _ := v.workflow.Jobs.Get(id)
	var labels []string
	if job.IsReusable() {
		labels = append(labels, labelStyleReusable.Render("Reusable"))
	} else {
		labels = append(labels, labelStyleRunnable.Render("Runnable"))
	}
	if strings.TrimSpace(job.If) != "" {
		labels = append(labels, labelStyleGated.Render("Gated"))
	}
	if job.Strategy != nil && !job.Strategy.Matrix.IsZero() {
		labels = append(labels, labelStyleRunnable.Render(fmt.Sprintf("Matrix ×%d", job.Strategy.Matrix.Count())))
	}
	if n := v.findingCount(id); n > 0 {
		labels = append(labels, labelStyleWarn.Render(fmt.Sprintf("%d finding(s)", n)))
	}
	return fmt.Sprintf("%s %s · [%s]", indicator, id, strings.Join(labels, ", "))
}

func (v *jobView) renderJobDetails(id string) string {
	job, _ := v.workflow.Jobs.Get(id)
	var details []string
	if job.IsReusable() {
		details = append(details, fmt.Sprintf("Uses: %s", job.Uses))
	} else if len(job.RunsOn) > 0 {
		details = append(details, fmt.Sprintf("Runs on: %s", strings.Join(job.RunsOn, ", ")))
	}
	if len(job.Needs) > 0 {
		details = append(details, fmt.Sprintf("Needs: %s", strings.Join(job.Needs, ", ")))
	}
	if gate := strings.TrimSpace(job.If); gate != "" {
		details = append(details, fmt.Sprintf("Gate: %s", gate))
	}
	if !job.Permissions.IsZero() {
		var scopes []string
		for _, scope := range job.Permissions.ScopeNames() {
			scopes = append(scopes, fmt.Sprintf("%s: %s", scope, job.Permissions.Level(scope)))
		}
		if len(scopes) > 0 {
			details = append(details, fmt.Sprintf("Permissions: %s", strings.Join(scopes, ", ")))
		}
	}
	if len(job.Steps) > 0 {
		details = append(details, fmt.Sprintf("Steps: %d", len(job.Steps)))
	}
	for _, finding := range v.findings {
		if finding.JobID == id {
			details = append(details, fmt.Sprintf("%s: %s", finding.Severity, finding.Message))
		}
	}
	if len(details) == 0 {
		return detailTextStyle.Render("  no additional details")
	}
	body := "  " + strings.Join(details, "\n  ")
	return detailTextStyle.Render(body)
}

func (v *jobView) renderFindings() string {
	var workflowLevel []string
	for _, finding := range v.findings {
		if finding.JobID == "" {
			workflowLevel = append(workflowLevel, fmt.Sprintf("%s: %s", finding.Severity, finding.Message))
		}
	}
	if len(workflowLevel) == 0 {
		return ""
	}
	return labelStyleWarn.Render("Workflow findings:") + "\n  " + strings.Join(workflowLevel, "\n  ")
}

func (v *jobView) findingCount(jobID string) int {
	count := 0
	for _, finding := range v.findings {
		if finding.JobID == jobID {
			count++
		}
	}
	return count
}
