// Package testutil provides shared test helpers for laying out a site on disk.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

const SiteSchema = `{
  "type": "object",
  "required": ["title", "description"],
  "properties": {
    "title": {"type": "string", "minLength": 1},
    "description": {"type": "string"}
  }
}`

const PostSchema = `{
  "type": "object",
  "required": ["posts"],
  "properties": {
    "posts": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["filename", "url", "title", "description"],
        "properties": {
          "filename": {"type": "string"},
          "url": {"type": "string", "pattern": "^[A-Za-z0-9_-]+$"},
          "title": {"type": "string"},
          "description": {"type": "string"}
        }
      }
    }
  }
}`

const IndexTemplate = `<!DOCTYPE html>
<html>
<head>
  <title>{{.Site.Title}}</title>
  <meta name="description" content="{{.Site.Description}}">
</head>
<body>
  <!-- post list -->
  <ul>
  {{range .Posts}}<li><a href="{{.URL}}.html">{{.Title}}</a></li>
  {{end}}</ul>
</body>
</html>
`

const PostTemplate = `<!DOCTYPE html>
<html>
<head>
  <title>placeholder</title>
  <meta name="description" content="placeholder">
  <style>
    body   { margin: 0 auto; }
  </style>
</head>
<body>
  <article>
    <div id="markdown-content"></div>
  </article>
</body>
</html>
`

// Site is a complete site source tree under a temporary directory.
type Site struct {
	Dir        string
	ContentDir string
	PostsDir   string
	SiteFile   string
	SiteSchema string
	PostSchema string
	IndexView  string
	PostView   string
	OutputDir  string
}

// NewSite writes schemas, templates and a valid site descriptor. Post
// descriptors and markdown sources are added by the caller.
func NewSite(t *testing.T) *Site {
	t.Helper()
	dir := t.TempDir()
	s := &Site{
		Dir:        dir,
		ContentDir: filepath.Join(dir, "content"),
		PostsDir:   filepath.Join(dir, "content", "blog"),
		SiteFile:   filepath.Join(dir, "content", "site.yaml"),
		SiteSchema: filepath.Join(dir, "content", "schema", "site.schema.json"),
		PostSchema: filepath.Join(dir, "content", "schema", "post.schema.json"),
		IndexView:  filepath.Join(dir, "views", "index.html"),
		PostView:   filepath.Join(dir, "views", "post.html"),
		OutputDir:  filepath.Join(dir, "build"),
	}
	WriteFile(t, s.SiteSchema, SiteSchema)
	WriteFile(t, s.PostSchema, PostSchema)
	WriteFile(t, s.IndexView, IndexTemplate)
	WriteFile(t, s.PostView, PostTemplate)
	WriteFile(t, s.SiteFile, "title: My Blog\ndescription: Notes and essays\n")
	if err := os.MkdirAll(s.PostsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	return s
}

// AddPosts writes a post descriptor file named name under the posts dir.
func (s *Site) AddPosts(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(s.PostsDir, name)
	WriteFile(t, p, body)
	return p
}

// AddMarkdown writes a markdown source relative to the content root.
func (s *Site) AddMarkdown(t *testing.T, rel, body string) {
	t.Helper()
	WriteFile(t, filepath.Join(s.ContentDir, rel), body)
}

// WriteFile writes body to path, creating parent directories.
func WriteFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}
