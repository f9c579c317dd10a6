// Package models defines the domain types for dainiki.
package models

import "time"

// SiteDescriptor is the parsed, schema-validated site configuration.
// It is immutable once loaded.
type SiteDescriptor struct {
	Title       string         `yaml:"title" json:"title"`
	Description string         `yaml:"description" json:"description"`
	Params      map[string]any `yaml:",inline" json:"-"`
}

// PostDescriptor describes one post declared under a descriptor file's posts collection.
type PostDescriptor struct {
	Filename    string         `yaml:"filename" json:"filename"`
	URL         string         `yaml:"url" json:"url"`
	Title       string         `yaml:"title" json:"title"`
	Description string         `yaml:"description" json:"description"`
	Params      map[string]any `yaml:",inline" json:"-"`

	// Source is the descriptor file the post was declared in.
	Source string `yaml:"-" json:"-"`
}

// PostFile is the top-level shape of a post descriptor file.
type PostFile struct {
	Posts []PostDescriptor `yaml:"posts"`
}

// PageMeta carries the per-page metadata injected into rendered HTML.
type PageMeta struct {
	Title       string
	Description string
}

// Meta returns the page metadata for the index page.
func (s SiteDescriptor) Meta() PageMeta {
	return PageMeta{Title: s.Title, Description: s.Description}
}

// Meta returns the page metadata for the post's page.
func (p PostDescriptor) Meta() PageMeta {
	return PageMeta{Title: p.Title, Description: p.Description}
}

// OutputName returns the file name the post is materialized under.
func (p PostDescriptor) OutputName() string {
	return p.URL + ".html"
}

// RenderedPage is a page between rendering and materialization.
type RenderedPage struct {
	OutputName string
	HTML       string
	Meta       PageMeta
}

// PageRecord describes a page written to the output directory.
type PageRecord struct {
	Name     string `json:"name"`
	Checksum string `json:"checksum"`
	Size     int64  `json:"size"`
}

// BuildRecord is one completed build as stored in the manifest.
type BuildRecord struct {
	ID        string        `json:"id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	OutputDir string        `json:"output_dir"`
	Pages     []PageRecord  `json:"pages,omitempty"`
}
