package workflow

import (
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var jobIDPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// Workflow models one file under .github/workflows.
type Workflow struct {
	Name        string            `yaml:"name"`
	RunName     string            `yaml:"run-name"`
	On          Triggers          `yaml:"on"`
	Permissions Permissions       `yaml:"permissions"`
	Env         map[string]string `yaml:"env"`
	Concurrency Concurrency       `yaml:"concurrency"`
	Jobs        Jobs              `yaml:"jobs"`

	// Path records where the workflow was loaded from, when known.
	Path string `yaml:"-"`
}

// Validate ensures the workflow is self-consistent: a non-empty trigger
// surface, well-formed job identifiers, resolvable and acyclic needs edges,
// and known permission scopes.
func (w Workflow) Validate() error {
	if len(w.On) == 0 {
		return fmt.Errorf("workflow: at least one trigger is required")
	}
	if w.Jobs.Len() == 0 {
		return fmt.Errorf("workflow: at least one job is required")
	}
	if err := w.Permissions.validate(); err != nil {
		return fmt.Errorf("workflow permissions: %w", err)
	}
	for _, id := range w.Jobs.IDs() {
		job, _ := w.Jobs.Get(id)
		if !jobIDPattern.MatchString(id) {
			return fmt.Errorf("workflow: job id %q is not well-formed", id)
		}
		if err := job.validate(); err != nil {
			return fmt.Errorf("workflow job %s: %w", id, err)
		}
		for _, dep := range job.Needs {
			if _, ok := w.Jobs.Get(dep); !ok {
				return fmt.Errorf("workflow: job %s needs unknown job %s", id, dep)
			}
		}
	}
	if cycle := w.NeedsCycle(); len(cycle) > 0 {
		return fmt.Errorf("workflow: needs cycle: %s", strings.Join(cycle, " -> "))
	}
	return nil
}

// Normalized trims identifiers, deduplicates needs lists, and validates the
// result.
func (w Workflow) Normalized() (Workflow, error) {
	for _, id := range w.Jobs.IDs() {
		job, _ := w.Jobs.Get(id)
		job.Needs = normalizeList(job.Needs)
		job.If = strings.TrimSpace(job.If)
	}
	if err := w.Validate(); err != nil {
		return Workflow{}, err
	}
	return w, nil
}

// TriggersOn reports whether a run would start for the given event and
// branch, honoring branches and branches-ignore filters. Branch patterns
// support the same glob syntax as path.Match.
func (w Workflow) TriggersOn(event, branch string) bool {
	trigger, ok := w.On[event]
	if !ok {
		return false
	}
	if len(trigger.Branches) > 0 && !matchesAny(trigger.Branches, branch) {
		return false
	}
	if len(trigger.BranchesIgnore) > 0 && matchesAny(trigger.BranchesIgnore, branch) {
		return false
	}
	return true
}

// NeedsCycle walks the needs graph and returns the first cycle found, in
// edge order, or nil when the graph is acyclic.
func (w Workflow) NeedsCycle() []string {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, w.Jobs.Len())
	var cycle []string
	var visit func(id string, trail []string) bool
	visit = func(id string, trail []string) bool {
		switch state[id] {
		case visiting:
			cycle = append(trail, id)
			return true
		case done:
			return false
		}
		state[id] = visiting
		if job, ok := w.Jobs.Get(id); ok {
			for _, dep := range job.Needs {
				if visit(dep, append(trail, id)) {
					return true
				}
			}
		}
		state[id] = done
		return false
	}
	for _, id := range w.Jobs.IDs() {
		if visit(id, nil) {
			return cycle
		}
	}
	return nil
}

func matchesAny(patterns []string, value string) bool {
	for _, pattern := range patterns {
		if pattern == value {
			return true
		}
		if matched, err := path.Match(pattern, value); err == nil && matched {
			return true
		}
	}
	return false
}

// Triggers maps event names to their filters. It accepts the scalar,
// sequence, and mapping forms of the `on` key.
type Triggers map[string]Trigger

// UnmarshalYAML decodes the three documented shapes of the trigger surface.
func (t *Triggers) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var name string
		if err := node.Decode(&name); err != nil {
			return err
		}
		*t = Triggers{name: Trigger{}}
		return nil
	case yaml.SequenceNode:
		var names []string
		if err := node.Decode(&names); err != nil {
			return err
		}
		out := make(Triggers, len(names))
		for _, name := range names {
			out[name] = Trigger{}
		}
		*t = out
		return nil
	case yaml.MappingNode:
		var raw map[string]Trigger
		if err := node.Decode(&raw); err != nil {
			return err
		}
		*t = raw
		return nil
	default:
		return fmt.Errorf("workflow: unsupported trigger declaration")
	}
}

// Names returns the trigger event names in sorted order.
func (t Triggers) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Trigger carries the per-event filters a workflow may declare.
type Trigger struct {
	Branches       StringList           `yaml:"branches"`
	BranchesIgnore StringList           `yaml:"branches-ignore"`
	Tags           StringList           `yaml:"tags"`
	Paths          StringList           `yaml:"paths"`
	Types          StringList           `yaml:"types"`
	Workflows      StringList           `yaml:"workflows"`
	Inputs         map[string]yaml.Node `yaml:"inputs"`
}

// Job is one entry of the jobs mapping: either a reusable workflow call
// (uses/with/secrets) or a runnable job (runs-on/steps).
type Job struct {
	Name            string            `yaml:"name"`
	Uses            string            `yaml:"uses"`
	With            map[string]any    `yaml:"with"`
	Secrets         Secrets           `yaml:"secrets"`
	RunsOn          StringList        `yaml:"runs-on"`
	Needs           StringList        `yaml:"needs"`
	If              string            `yaml:"if"`
	Environment     EnvironmentRef    `yaml:"environment"`
	Permissions     Permissions       `yaml:"permissions"`
	Strategy        *Strategy         `yaml:"strategy"`
	Steps           []Step            `yaml:"steps"`
	Env             map[string]string `yaml:"env"`
	Outputs         map[string]string `yaml:"outputs"`
	TimeoutMinutes  int               `yaml:"timeout-minutes"`
	ContinueOnError bool              `yaml:"continue-on-error"`
}

func (j *Job) validate() error {
	if j.Uses != "" && len(j.Steps) > 0 {
		return fmt.Errorf("declares both uses and steps")
	}
	if j.Uses == "" && len(j.Steps) == 0 {
		return fmt.Errorf("declares neither uses nor steps")
	}
	if j.Uses != "" && len(j.RunsOn) > 0 {
		return fmt.Errorf("reusable workflow call cannot set runs-on")
	}
	if err := j.Permissions.validate(); err != nil {
		return fmt.Errorf("permissions: %w", err)
	}
	if j.Strategy != nil {
		if err := j.Strategy.validate(); err != nil {
			return fmt.Errorf("strategy: %w", err)
		}
	}
	seen := map[string]struct{}{}
	for idx, step := range j.Steps {
		if step.Uses == "" && step.Run == "" {
			return fmt.Errorf("steps[%d] declares neither uses nor run", idx)
		}
		if step.Uses != "" && step.Run != "" {
			return fmt.Errorf("steps[%d] declares both uses and run", idx)
		}
		if step.ID == "" {
			continue
		}
		if _, exists := seen[step.ID]; exists {
			return fmt.Errorf("duplicate step id %s", step.ID)
		}
		seen[step.ID] = struct{}{}
	}
	return nil
}

// IsReusable reports whether the job calls a reusable workflow.
func (j *Job) IsReusable() bool {
	return j.Uses != ""
}

// Step is one entry of a job's steps sequence.
type Step struct {
	ID               string            `yaml:"id"`
	Name             string            `yaml:"name"`
	Uses             string            `yaml:"uses"`
	Run              string            `yaml:"run"`
	Shell            string            `yaml:"shell"`
	If               string            `yaml:"if"`
	With             map[string]any    `yaml:"with"`
	Env              map[string]string `yaml:"env"`
	WorkingDirectory string            `yaml:"working-directory"`
	ContinueOnError  bool              `yaml:"continue-on-error"`
}

// Strategy configures matrix execution for a job.
type Strategy struct {
	Matrix      Matrix `yaml:"matrix"`
	FailFast    *bool  `yaml:"fail-fast"`
	MaxParallel int    `yaml:"max-parallel"`
}

func (s *Strategy) validate() error {
	if s.MaxParallel < 0 {
		return fmt.Errorf("max-parallel must be >= 0")
	}
	return s.Matrix.validate()
}

// Concurrency models the concurrency group declaration.
type Concurrency struct {
	Group            string `yaml:"group"`
	CancelInProgress bool   `yaml:"cancel-in-progress"`
}

// UnmarshalYAML accepts both the scalar group form and the mapping form.
func (c *Concurrency) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&c.Group)
	}
	type plain Concurrency
	var parsed plain
	if err := node.Decode(&parsed); err != nil {
		return err
	}
	*c = Concurrency(parsed)
	return nil
}

// EnvironmentRef names a deployment environment, optionally with a URL.
type EnvironmentRef struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// UnmarshalYAML accepts both the scalar name form and the mapping form.
func (e *EnvironmentRef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&e.Name)
	}
	type plain EnvironmentRef
	var parsed plain
	if err := node.Decode(&parsed); err != nil {
		return err
	}
	*e = EnvironmentRef(parsed)
	return nil
}

// Secrets models the secrets passed to a reusable workflow: either the
// literal `inherit` or a name/value mapping.
type Secrets struct {
	Inherit bool
	Values  map[string]string
}

// UnmarshalYAML decodes the scalar and mapping forms.
func (s *Secrets) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var value string
		if err := node.Decode(&value); err != nil {
			return err
		}
		if value != "inherit" {
			return fmt.Errorf("workflow: secrets scalar must be \"inherit\", got %q", value)
		}
		s.Inherit = true
		return nil
	}
	return node.Decode(&s.Values)
}

// StringList accepts a scalar or a sequence of scalars.
type StringList []string

// UnmarshalYAML decodes both accepted shapes.
func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var single string
		if err := node.Decode(&single); err != nil {
			return err
		}
		*l = StringList{single}
		return nil
	}
	var many []string
	if err := node.Decode(&many); err != nil {
		return err
	}
	*l = many
	return nil
}

// Contains reports whether the list holds value.
func (l StringList) Contains(value string) bool {
	for _, item := range l {
		if item == value {
			return true
		}
	}
	return false
}

// Jobs preserves the declaration order of the jobs mapping, which the plain
// yaml map type discards.
type Jobs struct {
	order []string
	byID  map[string]*Job
}

// UnmarshalYAML decodes the jobs mapping keeping key order.
func (j *Jobs) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("workflow: jobs must be a mapping")
	}
	j.order = nil
	j.byID = map[string]*Job{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode := node.Content[i]
		valueNode := node.Content[i+1]
		var id string
		if err := keyNode.Decode(&id); err != nil {
			return err
		}
		job := &Job{}
		if err := valueNode.Decode(job); err != nil {
			return fmt.Errorf("workflow: job %s: %w", id, err)
		}
		if _, exists := j.byID[id]; exists {
			return fmt.Errorf("workflow: duplicate job id %s", id)
		}
		j.order = append(j.order, id)
		j.byID[id] = job
	}
	return nil
}

// IDs returns the job identifiers in declaration order.
func (j Jobs) IDs() []string {
	out := make([]string, len(j.order))
	copy(out, j.order)
	return out
}

// Get retrieves a job by its identifier.
func (j Jobs) Get(id string) (*Job, bool) {
	job, ok := j.byID[id]
	return job, ok
}

// Len reports the number of declared jobs.
func (j Jobs) Len() int {
	return len(j.order)
}

// Add appends a job, primarily for building workflows in code.
func (j *Jobs) Add(id string, job *Job) {
	if j.byID == nil {
		j.byID = map[string]*Job{}
	}
	if _, exists := j.byID[id]; !exists {
		j.order = append(j.order, id)
	}
	j.byID[id] = job
}

func normalizeList(values StringList) StringList {
	if len(values) == 0 {
		return nil
	}
	seen := map[string]struct{}{}
	out := make(StringList, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
