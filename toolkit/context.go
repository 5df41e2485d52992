package toolkit

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Repo identifies a GitHub repository by its two path components.
type Repo struct {
	Owner string
	Name  string
}

// String returns the owner/name form used by GITHUB_REPOSITORY.
func (r Repo) String() string {
	return r.Owner + "/" + r.Name
}

// Issue identifies the issue or pull request associated with the event that
// triggered the workflow run.
type Issue struct {
	Owner  string
	Repo   string
	Number int
}

// Context is a snapshot of the Actions runtime for the current step: the
// process environment plus the webhook payload that triggered the workflow
// run. It mirrors the `github` context documented at
// https://docs.github.com/en/actions/writing-workflows/choosing-what-your-workflow-does/contexts#github-context
type Context struct {
	env       map[string]string
	eventPath string
	payload   map[string]any
}

// ContextOption customizes a Context during construction.
type ContextOption func(*Context)

// WithEnviron replaces the process environment with an explicit map.
func WithEnviron(environ map[string]string) ContextOption {
	return func(c *Context) {
		if environ != nil {
			c.env = environ
		}
	}
}

// WithEventPath overrides the payload location instead of reading
// GITHUB_EVENT_PATH.
func WithEventPath(path string) ContextOption {
	return func(c *Context) {
		c.eventPath = path
	}
}

// New builds a context from the process environment. A missing or unreadable
// event payload file degrades to an empty payload rather than an error; use
// FromFile when the payload is required.
func New(opts ...ContextOption) *Context {
	ctx := &Context{}
	for _, opt := range opts {
		if opt != nil {
			opt(ctx)
		}
	}
	if ctx.env == nil {
		ctx.env = environMap()
	}
	ctx.loadPayload()
	return ctx
}

// FromFile builds a context and requires the event payload file to exist. The
// path defaults to GITHUB_EVENT_PATH when not supplied via WithEventPath.
func FromFile(opts ...ContextOption) (*Context, error) {
	ctx := &Context{}
	for _, opt := range opts {
		if opt != nil {
			opt(ctx)
		}
	}
	if ctx.env == nil {
		ctx.env = environMap()
	}
	path := ctx.eventPath
	if path == "" {
		path = ctx.env["GITHUB_EVENT_PATH"]
	}
	if path == "" {
		return nil, fmt.Errorf("toolkit: event payload path is not set")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("toolkit: read event payload %s: %w", path, err)
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("toolkit: parse event payload %s: %w", path, err)
	}
	ctx.eventPath = path
	ctx.payload = payload
	return ctx, nil
}

func (c *Context) loadPayload() {
	path := c.eventPath
	if path == "" {
		path = c.env["GITHUB_EVENT_PATH"]
	}
	if path == "" {
		c.payload = map[string]any{}
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		c.payload = map[string]any{}
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		c.payload = map[string]any{}
		return
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		c.payload = map[string]any{}
		return
	}
	c.payload = payload
}

// Env returns the environment value for key, empty when unset.
func (c *Context) Env(key string) string {
	return c.env[key]
}

// Payload returns the raw decoded event payload.
func (c *Context) Payload() map[string]any {
	return c.payload
}

// Action is the name of the action currently running, or the id of a step.
func (c *Context) Action() string {
	return c.env["GITHUB_ACTION"]
}

// ActionPath is the filesystem location of a composite action, empty outside
// composite actions.
func (c *Context) ActionPath() string {
	return c.env["GITHUB_ACTION_PATH"]
}

// ActionRef is the ref of the action being executed, empty when not running
// inside an action step.
func (c *Context) ActionRef() string {
	return c.env["GITHUB_ACTION_REF"]
}

// ActionRepository is the owner/name of the action being executed.
func (c *Context) ActionRepository() string {
	return c.env["GITHUB_ACTION_REPOSITORY"]
}

// Actor is the username that triggered the initial workflow run.
func (c *Context) Actor() string {
	return c.env["GITHUB_ACTOR"]
}

// APIURL is the GitHub REST API base URL.
func (c *Context) APIURL() string {
	if v := c.env["GITHUB_API_URL"]; v != "" {
		return v
	}
	return "https://api.github.com"
}

// BaseRef is the target branch of the pull request, empty for other events.
func (c *Context) BaseRef() string {
	return c.env["GITHUB_BASE_REF"]
}

// EventName is the name of the event that triggered the workflow run.
func (c *Context) EventName() string {
	return c.env["GITHUB_EVENT_NAME"]
}

// EventPath is the path of the file holding the full webhook payload.
func (c *Context) EventPath() string {
	if c.eventPath != "" {
		return c.eventPath
	}
	return c.env["GITHUB_EVENT_PATH"]
}

// GraphQLURL is the GitHub GraphQL API base URL.
func (c *Context) GraphQLURL() string {
	if v := c.env["GITHUB_GRAPHQL_URL"]; v != "" {
		return v
	}
	return "https://api.github.com/graphql"
}

// HeadRef is the source branch of the pull request, empty for other events.
func (c *Context) HeadRef() string {
	return c.env["GITHUB_HEAD_REF"]
}

// Job is the job_id of the current job. Only set by the runner inside job
// steps.
func (c *Context) Job() string {
	return c.env["GITHUB_JOB"]
}

// Ref is the fully-formed ref that triggered the run, e.g.
// refs/heads/<branch>, refs/pull/<n>/merge, or refs/tags/<tag>.
func (c *Context) Ref() string {
	return c.env["GITHUB_REF"]
}

// RefName is the short ref name shown on GitHub.
func (c *Context) RefName() string {
	return c.env["GITHUB_REF_NAME"]
}

// RefProtected reports whether branch protections apply to the triggering ref.
func (c *Context) RefProtected() bool {
	switch strings.ToLower(c.env["GITHUB_REF_PROTECTED"]) {
	case "1", "true":
		return true
	default:
		return false
	}
}

// RefType is "branch" or "tag".
func (c *Context) RefType() string {
	if v := c.env["GITHUB_REF_TYPE"]; v != "" {
		return v
	}
	return "branch"
}

// Repository resolves the owner and name of the repository, preferring
// GITHUB_REPOSITORY and falling back to the event payload.
func (c *Context) Repository() (Repo, bool) {
	if raw := c.env["GITHUB_REPOSITORY"]; raw != "" {
		owner, name, ok := strings.Cut(raw, "/")
		if ok {
			return Repo{Owner: owner, Name: name}, true
		}
		return Repo{Owner: owner}, true
	}
	repo, ok := c.payload["repository"].(map[string]any)
	if !ok {
		return Repo{}, false
	}
	name, _ := repo["name"].(string)
	var owner string
	if ownerMap, ok := repo["owner"].(map[string]any); ok {
		owner, _ = ownerMap["login"].(string)
	}
	if owner == "" && name == "" {
		return Repo{}, false
	}
	return Repo{Owner: owner, Name: name}, true
}

// RepositoryURL is the web URL of the repository, empty when the repository
// cannot be resolved.
func (c *Context) RepositoryURL() string {
	repo, ok := c.Repository()
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s/%s/%s", c.ServerURL(), repo.Owner, repo.Name)
}

// IssueRef resolves the issue or pull request the payload refers to. The
// number is taken from payload.issue, payload.pull_request, or the top-level
// payload, in that order.
func (c *Context) IssueRef() (Issue, bool) {
	repo, ok := c.Repository()
	if !ok {
		return Issue{}, false
	}
	source := c.payload
	if nested, ok := c.payload["issue"].(map[string]any); ok {
		source = nested
	} else if nested, ok := c.payload["pull_request"].(map[string]any); ok {
		source = nested
	}
	number, ok := payloadNumber(source["number"])
	if !ok {
		return Issue{}, false
	}
	return Issue{Owner: repo.Owner, Repo: repo.Name, Number: number}, true
}

// ServerURL is the GitHub server base URL.
func (c *Context) ServerURL() string {
	if v := c.env["GITHUB_SERVER_URL"]; v != "" {
		return v
	}
	return "https://github.com"
}

// SHA is the commit that triggered the workflow run.
func (c *Context) SHA() string {
	return c.env["GITHUB_SHA"]
}

// Token is the installation token for the workflow run, equivalent to the
// GITHUB_TOKEN secret.
func (c *Context) Token() string {
	return c.env["GITHUB_TOKEN"]
}

// TriggeringActor is the username that initiated the workflow run.
func (c *Context) TriggeringActor() string {
	return c.env["GITHUB_TRIGGERING_ACTOR"]
}

// Workflow is the workflow name, or the workflow file path when unnamed.
func (c *Context) Workflow() string {
	return c.env["GITHUB_WORKFLOW"]
}

// WorkflowRef is the ref path to the workflow, e.g.
// octocat/hello-world/.github/workflows/ci.yml@refs/heads/main.
func (c *Context) WorkflowRef() string {
	return c.env["GITHUB_WORKFLOW_REF"]
}

// WorkflowSHA is the commit SHA of the workflow file.
func (c *Context) WorkflowSHA() string {
	return c.env["GITHUB_WORKFLOW_SHA"]
}

// Workspace is the default working directory for steps, falling back to the
// process working directory when the runner did not set one.
func (c *Context) Workspace() string {
	if v := c.env["GITHUB_WORKSPACE"]; v != "" {
		return v
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return cwd
}

func payloadNumber(value any) (int, bool) {
	switch v := value.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, false
		}
		var n int
		if _, err := fmt.Sscanf(trimmed, "%d", &n); err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func environMap() map[string]string {
	environ := os.Environ()
	out := make(map[string]string, len(environ))
	for _, entry := range environ {
		key, value, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		out[key] = value
	}
	return out
}
