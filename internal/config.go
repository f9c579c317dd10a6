package internal

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	pkgconfig "github.com/starford/dainiki/pkg/config"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Content  ContentConfig     `yaml:"content"`
	Schema   SchemaConfig      `yaml:"schema"`
	Views    ViewsConfig       `yaml:"views"`
	Output   OutputConfig      `yaml:"output"`
	Manifest ManifestConfig    `yaml:"manifest"`
	Metrics  MetricsConfig     `yaml:"metrics"`
	Watch    WatchConfig       `yaml:"watch"`

	// dir is the directory of the loaded config file, set by ResolvePaths.
	dir string
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Content.Validate(); err != nil {
		return err
	}
	if err := c.Schema.Validate(); err != nil {
		return err
	}
	if err := c.Views.Validate(); err != nil {
		return err
	}
	if err := c.Output.Validate(); err != nil {
		return err
	}
	if err := c.Watch.Validate(); err != nil {
		return err
	}
	// The output directory is emptied on every build; it must never contain
	// the sources, the config file or the build manifest.
	return validation.ValidateStruct(&c.Output,
		validation.Field(&c.Output.Dir,
			validation.By(notAncestorOf("the config file directory", c.dir)),
			validation.By(notAncestorOf("content.root", c.Content.Root)),
			validation.By(notAncestorOf("content.posts_dir", c.Content.PostsDir)),
			validation.By(notAncestorOf("content.site_file", c.Content.SiteFile)),
			validation.By(notAncestorOf("schema.site", c.Schema.Site)),
			validation.By(notAncestorOf("schema.post", c.Schema.Post)),
			validation.By(notAncestorOf("views.index", filepath.Dir(c.Views.Index))),
			validation.By(notAncestorOf("views.post", filepath.Dir(c.Views.Post))),
			validation.By(notAncestorOf("manifest.path", c.Manifest.Path)),
		),
	)
}

// ResolvePaths makes every relative path absolute against baseDir.
func (c *Config) ResolvePaths(baseDir string) {
	c.dir = baseDir
	for _, p := range []*string{
		&c.Content.Root,
		&c.Content.PostsDir,
		&c.Content.SiteFile,
		&c.Schema.Site,
		&c.Schema.Post,
		&c.Views.Index,
		&c.Views.Post,
		&c.Output.Dir,
		&c.Manifest.Path,
		&c.Metrics.Textfile,
	} {
		*p = pkgconfig.ResolvePath(baseDir, *p)
	}
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
}

// ContentConfig locates the descriptor files and markdown sources.
type ContentConfig struct {
	// Root is the directory post filenames are resolved against.
	Root     string `yaml:"root"`
	PostsDir string `yaml:"posts_dir"`
	SiteFile string `yaml:"site_file"`
}

// Validate validates the content configuration.
func (c *ContentConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.PostsDir, validation.Required),
		validation.Field(&c.SiteFile, validation.Required),
	)
}

// SchemaConfig holds the JSON Schema files descriptors are validated against.
type SchemaConfig struct {
	Site string `yaml:"site"`
	Post string `yaml:"post"`
}

// Validate validates the schema configuration.
func (c *SchemaConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Site, validation.Required),
		validation.Field(&c.Post, validation.Required),
	)
}

// ViewsConfig holds the index and post templates.
type ViewsConfig struct {
	Index string `yaml:"index"`
	Post  string `yaml:"post"`
}

// Validate validates the views configuration.
func (c *ViewsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Index, validation.Required),
		validation.Field(&c.Post, validation.Required),
	)
}

// OutputConfig holds the directory pages are materialized into.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// Validate validates the output configuration.
func (c *OutputConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required, validation.NotIn("/", ".")),
	)
}

// ManifestConfig holds the SQLite build ledger location. An empty path
// disables the ledger.
type ManifestConfig struct {
	Path string `yaml:"path"`
}

// MetricsConfig holds the Prometheus textfile location. An empty path
// disables metrics export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// WatchConfig holds watch mode settings.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Min(10*time.Millisecond), validation.Max(time.Minute)),
	)
}

// notAncestorOf rejects an output directory equal to or containing path.
// Both sides are made absolute first, so "." and an absolute working
// directory compare equal.
func notAncestorOf(name, path string) validation.RuleFunc {
	return func(value interface{}) error {
		dir, _ := value.(string)
		if dir == "" || path == "" {
			return nil
		}
		out, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		p, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(out, p)
		if err != nil {
			return nil
		}
		if rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))) {
			return errors.New("must not contain " + name)
		}
		return nil
	}
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		Content: ContentConfig{
			Root:     "./content",
			PostsDir: "./content/blog",
			SiteFile: "./content/site.yaml",
		},
		Schema: SchemaConfig{
			Site: "./content/schema/site.schema.json",
			Post: "./content/schema/post.schema.json",
		},
		Views: ViewsConfig{
			Index: "./views/index.html",
			Post:  "./views/post.html",
		},
		Output: OutputConfig{
			Dir: "./build",
		},
		Watch: WatchConfig{
			Debounce: 300 * time.Millisecond,
		},
	}
}
