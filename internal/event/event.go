// Package event decodes webhook payloads into typed views. Decoding is
// lenient: unknown fields are ignored and absent fields stay zero, because
// payload schemas grow over time and a toolkit should not break on a new
// field.
package event

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/PaesslerAG/jsonpath"
)

// Repository is the repository block common to most payloads.
type Repository struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	Private       bool   `json:"private"`
	DefaultBranch string `json:"default_branch"`
	HTMLURL       string `json:"html_url"`
	Owner         User   `json:"owner"`
}

// User is the actor block: sender, owner, author.
type User struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Type  string `json:"type"`
}

// PullRequest mirrors the pull_request block.
type PullRequest struct {
	Number  int    `json:"number"`
	State   string `json:"state"`
	Title   string `json:"title"`
	Draft   bool   `json:"draft"`
	Merged  bool   `json:"merged"`
	HTMLURL string `json:"html_url"`
	User    User   `json:"user"`
	Head    Ref    `json:"head"`
	Base    Ref    `json:"base"`
}

// Ref is one side of a pull request.
type Ref struct {
	Ref string `json:"ref"`
	SHA string `json:"sha"`
}

// Issue mirrors the issue block.
type Issue struct {
	Number  int    `json:"number"`
	State   string `json:"state"`
	Title   string `json:"title"`
	HTMLURL string `json:"html_url"`
	User    User   `json:"user"`
}

// Commit is one entry of a push payload's commits list.
type Commit struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	Author  struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"author"`
}

// Release mirrors the release block.
type Release struct {
	TagName    string `json:"tag_name"`
	Name       string `json:"name"`
	Draft      bool   `json:"draft"`
	Prerelease bool   `json:"prerelease"`
	HTMLURL    string `json:"html_url"`
}

// Event is the decoded payload: the common envelope plus whichever typed
// block the event name selects. Raw keeps the full payload for queries.
type Event struct {
	Name       string
	Action     string
	Repository Repository
	Sender     User

	PullRequest *PullRequest
	Issue       *Issue
	Release     *Release

	// Push-only fields.
	Ref     string
	Before  string
	After   string
	Commits []Commit

	// workflow_dispatch inputs.
	Inputs map[string]any

	Raw map[string]any
}

// envelope holds every block Parse may project into an Event.
type envelope struct {
	Action      string         `json:"action"`
	Repository  Repository     `json:"repository"`
	Sender      User           `json:"sender"`
	PullRequest *PullRequest   `json:"pull_request"`
	Issue       *Issue         `json:"issue"`
	Release     *Release       `json:"release"`
	Ref         string         `json:"ref"`
	Before      string         `json:"before"`
	After       string         `json:"after"`
	Commits     []Commit       `json:"commits"`
	Inputs      map[string]any `json:"inputs"`
}

// Parse decodes a payload for the named event.
func Parse(name string, data []byte) (*Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("event: decode %s payload: %w", name, err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("event: decode %s payload: %w", name, err)
	}
	ev := &Event{
		Name:       name,
		Action:     env.Action,
		Repository: env.Repository,
		Sender:     env.Sender,
		Raw:        raw,
	}
	switch name {
	case "pull_request", "pull_request_target", "pull_request_review", "pull_request_review_comment":
		ev.PullRequest = env.PullRequest
	case "issues", "issue_comment":
		ev.Issue = env.Issue
	case "release":
		ev.Release = env.Release
	case "push":
		ev.Ref = env.Ref
		ev.Before = env.Before
		ev.After = env.After
		ev.Commits = env.Commits
	case "workflow_dispatch":
		ev.Inputs = env.Inputs
	}
	return ev, nil
}

// ParseFile decodes the payload stored at path, e.g. GITHUB_EVENT_PATH.
func ParseFile(name, path string) (*Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("event: read %s: %w", path, err)
	}
	return Parse(name, data)
}

// Query evaluates a JSONPath expression against the raw payload, e.g.
// $.pull_request.head.ref.
func (e *Event) Query(path string) (any, error) {
	value, err := jsonpath.Get(path, any(e.Raw))
	if err != nil {
		return nil, fmt.Errorf("event: query %s: %w", path, err)
	}
	return value, nil
}

// Describe renders a one-line human summary of the event.
func (e *Event) Describe() string {
	subject := e.Repository.FullName
	if subject == "" {
		subject = "<unknown repository>"
	}
	switch {
	case e.PullRequest != nil:
		return fmt.Sprintf("%s %s: %s PR #%d %q", subject, e.Name, e.Action, e.PullRequest.Number, e.PullRequest.Title)
	case e.Issue != nil:
		return fmt.Sprintf("%s %s: %s issue #%d %q", subject, e.Name, e.Action, e.Issue.Number, e.Issue.Title)
	case e.Release != nil:
		return fmt.Sprintf("%s release: %s %s", subject, e.Action, e.Release.TagName)
	case e.Name == "push":
		return fmt.Sprintf("%s push: %s (%d commits)", subject, e.Ref, len(e.Commits))
	default:
		if e.Action != "" {
			return fmt.Sprintf("%s %s: %s", subject, e.Name, e.Action)
		}
		return fmt.Sprintf("%s %s", subject, e.Name)
	}
}
