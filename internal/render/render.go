// Package render turns descriptors into HTML pages. The index page is a
// structural html/template render; post pages substitute converted markdown
// into a fixed marker in the shared post template.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/starford/dainiki/internal/apperr"
	"github.com/starford/dainiki/internal/models"
)

// Marker is the element in the post template replaced by each post's HTML.
// It must occur exactly once.
const Marker = `<div id="markdown-content"></div>`

const (
	markerOpen  = `<div id="markdown-content">`
	markerClose = `</div>`
)

// IndexData is the data context the index template is executed with.
type IndexData struct {
	Site  models.SiteDescriptor
	Posts []models.PostDescriptor
}

// Options configures a Renderer.
type Options struct {
	ContentRoot   string
	IndexTemplate string
	PostTemplate  string
}

// Renderer renders the index and post pages.
type Renderer struct {
	contentRoot   string
	indexTemplate string
	postTemplate  string
	md            goldmark.Markdown

	postSource string // cached post template, loaded on first use
}

// New creates a Renderer.
func New(opts Options) *Renderer {
	return &Renderer{
		contentRoot:   opts.ContentRoot,
		indexTemplate: opts.IndexTemplate,
		postTemplate:  opts.PostTemplate,
		md:            goldmark.New(),
	}
}

// RenderIndex executes the index template with the site and every post.
func (r *Renderer) RenderIndex(site models.SiteDescriptor, posts []models.PostDescriptor) (string, error) {
	tpl, err := template.ParseFiles(r.indexTemplate)
	if err != nil {
		return "", fmt.Errorf("render: parse index template: %w", err)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, IndexData{Site: site, Posts: posts}); err != nil {
		return "", fmt.Errorf("render: execute index template: %w", err)
	}
	return buf.String(), nil
}

// RenderPost converts the post's markdown source and places it in the post template.
func (r *Renderer) RenderPost(post models.PostDescriptor) (string, error) {
	path, err := r.resolve(post.Filename)
	if err != nil {
		return "", fmt.Errorf("render: post %q: %w", post.URL, err)
	}
	// Checked before reading so the error names the post, not just the path.
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", &apperr.MissingContentError{URL: post.URL, Path: path}
		}
		return "", fmt.Errorf("render: post %q: stat %s: %w", post.URL, path, err)
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("render: post %q: read %s: %w", post.URL, path, err)
	}

	body, err := r.Markdown(src)
	if err != nil {
		return "", fmt.Errorf("render: post %q: %w", post.URL, err)
	}

	tpl, err := r.loadPostTemplate()
	if err != nil {
		return "", err
	}
	return strings.Replace(tpl, Marker, markerOpen+body+markerClose, 1), nil
}

// Markdown converts CommonMark source to HTML.
func (r *Renderer) Markdown(src []byte) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert(src, &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return buf.String(), nil
}

func (r *Renderer) loadPostTemplate() (string, error) {
	if r.postSource != "" {
		return r.postSource, nil
	}
	data, err := os.ReadFile(r.postTemplate)
	if err != nil {
		return "", fmt.Errorf("render: read post template: %w", err)
	}
	src := string(data)
	if n := strings.Count(src, Marker); n != 1 {
		return "", fmt.Errorf("render: %s: found %d occurrences of %s, want 1: %w",
			r.postTemplate, n, Marker, apperr.ErrTemplateMarker)
	}
	r.postSource = src
	return src, nil
}

// resolve joins rel onto the content root, rejecting paths that leave it.
func (r *Renderer) resolve(rel string) (string, error) {
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("absolute filename %s: %w", rel, apperr.ErrPathEscapesRoot)
	}
	root, err := filepath.Abs(r.contentRoot)
	if err != nil {
		return "", fmt.Errorf("resolve content root: %w", err)
	}
	abs := filepath.Join(root, cleaned)
	if !within(root, abs) {
		return "", fmt.Errorf("filename %s: %w", rel, apperr.ErrPathEscapesRoot)
	}
	return abs, nil
}

// within reports whether path lies strictly below root.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || rel == ".." {
		return false
	}
	return !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
