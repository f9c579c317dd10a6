package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/dainiki/internal/apperr"
	"github.com/starford/dainiki/internal/models"
	"github.com/starford/dainiki/internal/testutil"
)

func newRenderer(site *testutil.Site) *Renderer {
	return New(Options{
		ContentRoot:   site.ContentDir,
		IndexTemplate: site.IndexView,
		PostTemplate:  site.PostView,
	})
}

func TestMarkdown_HeadingAndParagraph(t *testing.T) {
	r := New(Options{})
	out, err := r.Markdown([]byte("# Title\n\nBody text."))
	require.NoError(t, err)
	assert.Contains(t, out, "<h1>Title</h1>")
	assert.Contains(t, out, "<p>Body text.</p>")
}

func TestRenderPost_SubstitutesMarker(t *testing.T) {
	site := testutil.NewSite(t)
	site.AddMarkdown(t, "posts/hello.md", "# Title\n\nBody text.\n")
	r := newRenderer(site)

	out, err := r.RenderPost(models.PostDescriptor{Filename: "posts/hello.md", URL: "hello-world"})
	require.NoError(t, err)
	assert.Contains(t, out, `<div id="markdown-content"><h1>Title</h1>`)
	assert.Contains(t, out, "<p>Body text.</p>\n</div>")
	assert.NotContains(t, out, Marker)
	assert.Contains(t, out, "<article>")
}

func TestRenderPost_MissingSource(t *testing.T) {
	site := testutil.NewSite(t)
	r := newRenderer(site)

	_, err := r.RenderPost(models.PostDescriptor{Filename: "posts/missing.md", URL: "ghost"})
	require.ErrorIs(t, err, apperr.ErrMissingContent)

	var mce *apperr.MissingContentError
	require.ErrorAs(t, err, &mce)
	assert.Equal(t, "ghost", mce.URL)
	assert.Equal(t, filepath.Join(site.ContentDir, "posts", "missing.md"), mce.Path)
}

func TestRenderPost_RejectsEscapingFilename(t *testing.T) {
	site := testutil.NewSite(t)
	r := newRenderer(site)

	for _, name := range []string{"../secret.md", "/etc/passwd"} {
		_, err := r.RenderPost(models.PostDescriptor{Filename: name, URL: "x"})
		assert.ErrorIs(t, err, apperr.ErrPathEscapesRoot, name)
	}
}

func TestResolve_FilesystemRootContent(t *testing.T) {
	r := New(Options{ContentRoot: "/"})

	got, err := r.resolve("posts/a.md")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/", "posts", "a.md"), got)

	_, err = r.resolve(".")
	assert.ErrorIs(t, err, apperr.ErrPathEscapesRoot)
}

func TestRenderPost_MarkerCount(t *testing.T) {
	cases := map[string]string{
		"missing":   "<html><body></body></html>",
		"duplicate": "<html><body>" + Marker + Marker + "</body></html>",
	}
	for name, tpl := range cases {
		t.Run(name, func(t *testing.T) {
			site := testutil.NewSite(t)
			testutil.WriteFile(t, site.PostView, tpl)
			site.AddMarkdown(t, "a.md", "text")
			r := newRenderer(site)

			_, err := r.RenderPost(models.PostDescriptor{Filename: "a.md", URL: "a"})
			assert.ErrorIs(t, err, apperr.ErrTemplateMarker)
		})
	}
}

func TestRenderIndex(t *testing.T) {
	site := testutil.NewSite(t)
	before, err := os.ReadFile(site.IndexView)
	require.NoError(t, err)
	r := newRenderer(site)

	out, err := r.RenderIndex(
		models.SiteDescriptor{Title: "My Blog", Description: "Notes"},
		[]models.PostDescriptor{
			{URL: "first", Title: "First <post>"},
			{URL: "second", Title: "Second"},
		},
	)
	require.NoError(t, err)
	assert.Contains(t, out, "<title>My Blog</title>")
	assert.Contains(t, out, `<a href="first.html">First &lt;post&gt;</a>`)
	assert.Less(t, strings.Index(out, "first.html"), strings.Index(out, "second.html"))

	after, err := os.ReadFile(site.IndexView)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRenderIndex_BadTemplate(t *testing.T) {
	site := testutil.NewSite(t)
	testutil.WriteFile(t, site.IndexView, "{{range .Posts}")
	r := newRenderer(site)

	_, err := r.RenderIndex(models.SiteDescriptor{}, nil)
	assert.Error(t, err)
}
