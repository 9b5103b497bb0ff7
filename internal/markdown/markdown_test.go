package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_BasicMarkdown(t *testing.T) {
	out, err := Render("# Title\n\nsome *emphasis*")
	require.NoError(t, err)

	html := string(out)
	assert.Contains(t, html, "<h1>Title</h1>")
	assert.Contains(t, html, "<em>emphasis</em>")
}

func TestRender_GFMTable(t *testing.T) {
	out, err := Render("| a | b |\n|---|---|\n| 1 | 2 |")
	require.NoError(t, err)
	assert.Contains(t, string(out), "<table>")
}

func TestRender_HighlightsCode(t *testing.T) {
	out, err := Render("```go\npackage main\n```")
	require.NoError(t, err)
	// Chroma emits inline styles for the configured theme.
	assert.Contains(t, string(out), "style=")
}

func TestRender_EscapesRawHTML(t *testing.T) {
	out, err := Render("<script>alert(1)</script>")
	require.NoError(t, err)
	assert.NotContains(t, string(out), "<script>")
}

func TestPlain_StripsMarkup(t *testing.T) {
	got := Plain("# Heading\n\nA [link](https://example.com) and `code`.\n\n- item one\n- item two")
	assert.NotContains(t, got, "#")
	assert.NotContains(t, got, "](")
	assert.Contains(t, got, "Heading")
	assert.Contains(t, got, "link")
	assert.Contains(t, got, "item one item two")
}

func TestPlain_CollapsesWhitespace(t *testing.T) {
	got := Plain("one\ntwo\n\nthree")
	assert.Equal(t, "one two three", got)
}

func TestShorten(t *testing.T) {
	assert.Equal(t, "short", Shorten("short", 10))

	long := strings.Repeat("word ", 20)
	got := Shorten(long, 30)
	assert.True(t, strings.HasSuffix(got, "..."), "got %q", got)
	assert.LessOrEqual(t, len([]rune(got)), 30)

	// Mid-word cuts back up to the previous boundary.
	got = Shorten("abcdefghij klmnop", 15)
	assert.Equal(t, "abcdefghij...", got)
}
