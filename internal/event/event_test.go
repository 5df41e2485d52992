package event

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pullRequestPayload = `{
  "action": "opened",
  "number": 7,
  "pull_request": {
    "number": 7,
    "state": "open",
    "title": "Add context helpers",
    "draft": false,
    "user": {"login": "mlanghorne", "id": 12},
    "head": {"ref": "feature/context", "sha": "abc123"},
    "base": {"ref": "master", "sha": "def456"}
  },
  "repository": {
    "id": 99,
    "name": "ghactions",
    "full_name": "mlanghorne/ghactions",
    "default_branch": "master",
    "owner": {"login": "mlanghorne"}
  },
  "sender": {"login": "mlanghorne", "type": "User"}
}`

const pushPayload = `{
  "ref": "refs/heads/master",
  "before": "0000000000000000000000000000000000000000",
  "after": "abc123",
  "commits": [
    {"id": "abc123", "message": "fix loader", "author": {"name": "M", "email": "m@example.com"}}
  ],
  "repository": {"full_name": "mlanghorne/ghactions"},
  "sender": {"login": "mlanghorne"}
}`

func TestParsePullRequest(t *testing.T) {
	ev, err := Parse("pull_request", []byte(pullRequestPayload))
	require.NoError(t, err)

	assert.Equal(t, "opened", ev.Action)
	assert.Equal(t, "mlanghorne/ghactions", ev.Repository.FullName)
	require.NotNil(t, ev.PullRequest)
	assert.Equal(t, 7, ev.PullRequest.Number)
	assert.Equal(t, "feature/context", ev.PullRequest.Head.Ref)
	assert.Equal(t, "master", ev.PullRequest.Base.Ref)
	assert.Nil(t, ev.Issue)
	assert.Nil(t, ev.Release)
}

func TestParsePush(t *testing.T) {
	ev, err := Parse("push", []byte(pushPayload))
	require.NoError(t, err)

	assert.Equal(t, "refs/heads/master", ev.Ref)
	assert.Equal(t, "abc123", ev.After)
	require.Len(t, ev.Commits, 1)
	assert.Equal(t, "fix loader", ev.Commits[0].Message)
	assert.Nil(t, ev.PullRequest)
}

func TestParseToleratesUnknownFields(t *testing.T) {
	ev, err := Parse("push", []byte(`{"ref": "refs/heads/x", "brand_new_field": {"deep": true}}`))
	require.NoError(t, err)
	assert.Equal(t, "refs/heads/x", ev.Ref)
}

func TestParseRejectsBadJSON(t *testing.T) {
	_, err := Parse("push", []byte("{not json"))
	assert.Error(t, err)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "event.json")
	require.NoError(t, os.WriteFile(path, []byte(pushPayload), 0o644))

	ev, err := ParseFile("push", path)
	require.NoError(t, err)
	assert.Equal(t, "refs/heads/master", ev.Ref)

	_, err = ParseFile("push", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestQuery(t *testing.T) {
	ev, err := Parse("pull_request", []byte(pullRequestPayload))
	require.NoError(t, err)

	got, err := ev.Query("$.pull_request.head.ref")
	require.NoError(t, err)
	assert.Equal(t, "feature/context", got)

	got, err = ev.Query("$.repository.owner.login")
	require.NoError(t, err)
	assert.Equal(t, "mlanghorne", got)

	_, err = ev.Query("$[")
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	pr, err := Parse("pull_request", []byte(pullRequestPayload))
	require.NoError(t, err)
	assert.Contains(t, pr.Describe(), "PR #7")

	push, err := Parse("push", []byte(pushPayload))
	require.NoError(t, err)
	assert.Contains(t, push.Describe(), "refs/heads/master")
	assert.Contains(t, push.Describe(), "1 commits")

	dispatch, err := Parse("workflow_dispatch", []byte(`{"inputs": {"dry-run": "true"}, "repository": {"full_name": "o/r"}}`))
	require.NoError(t, err)
	assert.Equal(t, "true", dispatch.Inputs["dry-run"])
	assert.Contains(t, dispatch.Describe(), "workflow_dispatch")
}
