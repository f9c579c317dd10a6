package internal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgconfig "github.com/starford/dainiki/pkg/config"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 300*time.Millisecond, cfg.Watch.Debounce)
}

func TestConfig_MissingContentRoot(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Content.Root = ""
	assert.Error(t, cfg.Validate())
}

func TestConfig_OutputMustNotContainSources(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"same as content root", func(c *Config) { c.Output.Dir = c.Content.Root }},
		{"parent of posts dir", func(c *Config) { c.Output.Dir = "./content" }},
		{"parent of views", func(c *Config) { c.Output.Dir = "./views" }},
		{"filesystem root", func(c *Config) { c.Output.Dir = "/" }},
		{"contains site file", func(c *Config) {
			c.Content.SiteFile = "./site/site.yaml"
			c.Output.Dir = "./site"
		}},
		{"contains schemas", func(c *Config) {
			c.Schema.Site = "./schemas/site.schema.json"
			c.Schema.Post = "./schemas/post.schema.json"
			c.Output.Dir = "./schemas"
		}},
		{"contains manifest", func(c *Config) {
			c.Manifest.Path = "./build/.dainiki/manifest.db"
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfig_SiblingOutputAllowed(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Output.Dir = "./content-build"
	assert.NoError(t, cfg.Validate())
}

func TestConfig_DebounceBounds(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Watch.Debounce = time.Millisecond
	assert.Error(t, cfg.Validate())

	cfg.Watch.Debounce = 2 * time.Minute
	assert.Error(t, cfg.Validate())
}

func TestConfig_LoadResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BUILD_DIR", "public")
	body := `
app:
  log_level: debug
content:
  root: content
  posts_dir: content/blog
  site_file: content/site.yaml
schema:
  site: content/schema/site.schema.json
  post: content/schema/post.schema.json
views:
  index: views/index.html
  post: views/post.html
output:
  dir: ${BUILD_DIR}
manifest:
  path: dainiki.db
watch:
  debounce: 1s
`
	path := filepath.Join(dir, "dainiki.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg := NewDefaultConfig()
	require.NoError(t, pkgconfig.Load(path, cfg))

	assert.Equal(t, filepath.Join(dir, "public"), cfg.Output.Dir)
	assert.Equal(t, filepath.Join(dir, "content", "blog"), cfg.Content.PostsDir)
	assert.Equal(t, filepath.Join(dir, "dainiki.db"), cfg.Manifest.Path)
	assert.Empty(t, cfg.Metrics.Textfile)
	assert.Equal(t, time.Second, cfg.Watch.Debounce)
	assert.Equal(t, "DEBUG", cfg.App.LogLevel.String())
}

func TestConfig_LoadRejectsOutputInConfigDir(t *testing.T) {
	dir := t.TempDir()
	sources := t.TempDir()
	body := `
content:
  root: ` + sources + `/content
  posts_dir: ` + sources + `/content/blog
  site_file: ` + sources + `/content/site.yaml
schema:
  site: ` + sources + `/schema/site.schema.json
  post: ` + sources + `/schema/post.schema.json
views:
  index: ` + sources + `/views/index.html
  post: ` + sources + `/views/post.html
output:
  dir: .
`
	path := filepath.Join(dir, "dainiki.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	err := pkgconfig.Load(path, NewDefaultConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file directory")
}

func TestConfig_OutputOutsideConfigDirAllowed(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.ResolvePaths(t.TempDir())
	assert.NoError(t, cfg.Validate())
}
