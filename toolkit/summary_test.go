package toolkit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummaryBuilders(t *testing.T) {
	s := NewSummary().
		AddHeading("Results", 2).
		AddRaw("all green").AddEOL().
		AddCodeBlock("go test ./...", "bash").
		AddList([]string{"checks", "build"}, false).
		AddList([]string{"first", "second"}, true).
		AddLink("run", "https://example.com/run/1").
		AddQuote("ship it").
		AddSeparator().
		AddDetails("log", "truncated")

	out := s.String()
	assert.Contains(t, out, "<h2>Results</h2>\n")
	assert.Contains(t, out, "all green\n")
	assert.Contains(t, out, "<pre lang=\"bash\"><code>go test ./...</code></pre>\n")
	assert.Contains(t, out, "<ul><li>checks</li><li>build</li></ul>\n")
	assert.Contains(t, out, "<ol><li>first</li><li>second</li></ol>\n")
	assert.Contains(t, out, "<a href=\"https://example.com/run/1\">run</a>\n")
	assert.Contains(t, out, "<blockquote>ship it</blockquote>\n")
	assert.Contains(t, out, "<hr>\n")
	assert.Contains(t, out, "<details><summary>log</summary>truncated</details>\n")
}

func TestSummaryHeadingClamps(t *testing.T) {
	assert.Equal(t, "<h1>x</h1>\n", NewSummary().AddHeading("x", 0).String())
	assert.Equal(t, "<h1>x</h1>\n", NewSummary().AddHeading("x", 9).String())
	assert.Equal(t, "<h6>x</h6>\n", NewSummary().AddHeading("x", 6).String())
}

func TestSummaryEscapesHTML(t *testing.T) {
	out := NewSummary().AddHeading("<script>", 1).String()
	assert.Equal(t, "<h1>&lt;script&gt;</h1>\n", out)
}

func TestSummaryTable(t *testing.T) {
	out := NewSummary().AddTable([][]SummaryTableCell{
		{{Text: "job", Header: true}, {Text: "status", Header: true}},
		{{Text: "build"}, {Text: "ok"}},
	}).String()
	assert.Equal(t, "<table><tr><th>job</th><th>status</th></tr><tr><td>build</td><td>ok</td></tr></table>\n", out)
}

func TestSummaryWriteAppendAndOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.md")
	ctx := New(WithEnviron(map[string]string{"GITHUB_STEP_SUMMARY": path}))

	require.NoError(t, NewSummary().AddRaw("one").AddEOL().Write(ctx, false))
	require.NoError(t, NewSummary().AddRaw("two").AddEOL().Write(ctx, false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", string(data))

	require.NoError(t, NewSummary().AddRaw("three").AddEOL().Write(ctx, true))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "three\n", string(data))
}

func TestSummaryWriteResetsBuffer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.md")
	ctx := New(WithEnviron(map[string]string{"GITHUB_STEP_SUMMARY": path}))

	s := NewSummary().AddRaw("once")
	require.NoError(t, s.Write(ctx, false))
	assert.Zero(t, s.Len())
}

func TestSummaryWriteUnset(t *testing.T) {
	ctx := New(WithEnviron(map[string]string{}))
	assert.ErrorIs(t, NewSummary().AddRaw("x").Write(ctx, false), ErrFileCommandUnset)
}

func TestSummaryWriteSizeLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.md")
	ctx := New(WithEnviron(map[string]string{"GITHUB_STEP_SUMMARY": path}))

	s := NewSummary().AddRaw(strings.Repeat("a", SummaryLimitBytes+1))
	assert.Error(t, s.Write(ctx, false))
}
