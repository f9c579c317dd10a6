package postprocess

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/starford/dainiki/internal/models"
	"github.com/starford/dainiki/internal/testutil"
)

func parse(t *testing.T, src string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(src))
	require.NoError(t, err)
	return doc
}

func titleText(doc *html.Node) string {
	title := findElement(doc, func(n *html.Node) bool { return n.DataAtom == atom.Title })
	if title == nil || title.FirstChild == nil {
		return ""
	}
	return title.FirstChild.Data
}

func TestApplyMetadata(t *testing.T) {
	out, err := ApplyMetadata(testutil.PostTemplate, models.PageMeta{Title: "My Post", Description: "desc"})
	require.NoError(t, err)

	doc := parse(t, out)
	assert.Equal(t, "My Post", titleText(doc))
	meta := findElement(doc, isDescriptionMeta)
	require.NotNil(t, meta)
	assert.Equal(t, "desc", getAttr(meta, "content"))
}

func TestApplyMetadata_EscapesValues(t *testing.T) {
	out, err := ApplyMetadata(testutil.PostTemplate, models.PageMeta{Title: "A & <B>", Description: `say "hi"`})
	require.NoError(t, err)
	assert.Contains(t, out, "<title>A &amp; &lt;B&gt;</title>")

	doc := parse(t, out)
	assert.Equal(t, "A & <B>", titleText(doc))
	assert.Equal(t, `say "hi"`, getAttr(findElement(doc, isDescriptionMeta), "content"))
}

func TestApplyMetadata_MissingElementsNotCreated(t *testing.T) {
	src := "<!DOCTYPE html><html><head></head><body><p>x</p></body></html>"
	out, err := ApplyMetadata(src, models.PageMeta{Title: "T", Description: "D"})
	require.NoError(t, err)
	assert.NotContains(t, out, "<title>")
	assert.NotContains(t, out, "<meta")
	assert.Contains(t, out, "<p>x</p>")
}

func TestApplyMetadata_ReplacesTitleChildren(t *testing.T) {
	src := "<html><head><title>old</title><meta name=\"Description\" content=\"old\"></head><body></body></html>"
	out, err := ApplyMetadata(src, models.PageMeta{Title: "new", Description: "fresh"})
	require.NoError(t, err)
	assert.Contains(t, out, "<title>new</title>")
	assert.Contains(t, out, `content="fresh"`)
	assert.NotContains(t, out, "old")
}

func TestMinify_StripsCommentsAndWhitespace(t *testing.T) {
	m := NewMinifier()
	src := "<!DOCTYPE html>\n<html>\n<head>\n  <style>\n    body   { margin: 0 auto; }\n  </style>\n</head>\n<body>\n  <!-- note -->\n  <p>  a   b  </p>\n</body>\n</html>\n"
	out, err := m.Minify(src)
	require.NoError(t, err)
	assert.NotContains(t, out, "note")
	assert.Contains(t, out, "<p>a b</p>")
	assert.Contains(t, out, "body{margin:0 auto}")
	assert.NotContains(t, out, "\n  ")
	assert.Less(t, len(out), len(src))
}

func TestMinify_Idempotent(t *testing.T) {
	m := NewMinifier()
	withMeta, err := ApplyMetadata(testutil.PostTemplate, models.PageMeta{Title: "T", Description: "D"})
	require.NoError(t, err)

	once, err := m.Minify(withMeta)
	require.NoError(t, err)
	twice, err := m.Minify(once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestMinify_KeepsMarkerContainer(t *testing.T) {
	m := NewMinifier()
	out, err := m.Minify(`<html><body><div id="markdown-content"><h1>Title</h1>` + "\n" + `<p>Body text.</p>` + "\n" + `</div></body></html>`)
	require.NoError(t, err)
	assert.Contains(t, out, `<div id="markdown-content"><h1>Title</h1><p>Body text.</p></div>`)
}
