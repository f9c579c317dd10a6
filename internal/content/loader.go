// Package content discovers, parses and validates the site and post descriptors.
package content

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/dainiki/internal/apperr"
	"github.com/starford/dainiki/internal/logfields"
	"github.com/starford/dainiki/internal/models"
	"github.com/starford/dainiki/internal/schema"
)

// Options configures a Loader.
type Options struct {
	SiteFile   string
	PostsDir   string
	SiteSchema *schema.Schema
	PostSchema *schema.Schema
	Logger     *slog.Logger
}

// Loader reads descriptors and validates each one before it is used.
type Loader struct {
	siteFile   string
	postsDir   string
	siteSchema *schema.Schema
	postSchema *schema.Schema
	logger     *slog.Logger
}

// NewLoader creates a Loader.
func NewLoader(opts Options) *Loader {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		siteFile:   opts.SiteFile,
		postsDir:   opts.PostsDir,
		siteSchema: opts.SiteSchema,
		postSchema: opts.PostSchema,
		logger:     logger,
	}
}

// LoadSite reads and validates the site descriptor.
func (l *Loader) LoadSite() (models.SiteDescriptor, error) {
	var site models.SiteDescriptor
	node, err := l.parseAndValidate(l.siteFile, l.siteSchema)
	if err != nil {
		return site, err
	}
	if err := node.Decode(&site); err != nil {
		return site, fmt.Errorf("content: decode %s: %w", l.siteFile, err)
	}
	l.logger.Debug("site descriptor loaded", logfields.File(l.siteFile))
	return site, nil
}

// LoadPosts validates every post descriptor file and returns their posts
// in file-then-declaration order. Processing stops at the first invalid file.
func (l *Loader) LoadPosts() ([]models.PostDescriptor, error) {
	files, err := DiscoverPostFiles(l.postsDir)
	if err != nil {
		return nil, err
	}

	var posts []models.PostDescriptor
	for _, file := range files {
		node, err := l.parseAndValidate(file, l.postSchema)
		if err != nil {
			return nil, err
		}
		var pf models.PostFile
		if err := node.Decode(&pf); err != nil {
			return nil, fmt.Errorf("content: decode %s: %w", file, err)
		}
		for _, p := range pf.Posts {
			p.Source = file
			posts = append(posts, p)
		}
		l.logger.Debug("post descriptors loaded", logfields.File(file), logfields.Count(len(pf.Posts)))
	}

	if err := checkUniqueURLs(posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// DiscoverPostFiles lists the regular .yaml and .yml files directly under
// dir, in directory-listing order.
func DiscoverPostFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("content: list %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if !isDescriptorFile(e.Name()) {
			continue
		}
		p := filepath.Join(dir, e.Name())
		// Stat follows symlinks, so a link to a regular file is kept.
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("content: stat %s: %w", p, err)
		}
		if !info.Mode().IsRegular() {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func isDescriptorFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// parseAndValidate parses path as YAML and validates it against s. Every
// violation is logged before the ValidationError is returned.
func (l *Loader) parseAndValidate(path string, s *schema.Schema) (*yaml.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("content: read %s: %w", path, err)
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("content: parse %s: %w", path, err)
	}

	var doc any
	if err := node.Decode(&doc); err != nil {
		return nil, fmt.Errorf("content: parse %s: %w", path, err)
	}

	res, err := s.Validate(doc)
	if err != nil {
		return nil, fmt.Errorf("content: validate %s: %w", path, err)
	}
	if !res.Valid {
		for _, v := range res.Errors {
			l.logger.Error(v.Message, logfields.File(path), logfields.Location(v.Location))
		}
		return nil, &apperr.ValidationError{File: path, Violations: res.Errors}
	}
	return &node, nil
}

// reservedURLs are output names the build writes for itself.
var reservedURLs = []string{"index"}

// checkUniqueURLs rejects reserved urls and urls that collide once case is
// ignored, since output names must stay distinct on case-insensitive filesystems.
func checkUniqueURLs(posts []models.PostDescriptor) error {
	seen := make(map[string]string, len(posts))
	for _, p := range posts {
		for _, r := range reservedURLs {
			if strings.EqualFold(p.URL, r) {
				return &apperr.ReservedURLError{URL: p.URL, File: p.Source}
			}
		}
		key := strings.ToLower(p.URL)
		if first, ok := seen[key]; ok {
			return &apperr.DuplicateURLError{URL: p.URL, First: first, Second: p.Source}
		}
		seen[key] = p.Source
	}
	return nil
}
