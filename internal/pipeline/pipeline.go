// Package pipeline sequences one full build: load → render → post-process →
// reset output → write.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/dainiki/internal/apperr"
	"github.com/starford/dainiki/internal/logfields"
	"github.com/starford/dainiki/internal/metrics"
	"github.com/starford/dainiki/internal/models"
)

// IndexPage is the output name of the index page.
const IndexPage = "index.html"

// Stage names used in logs and metrics.
const (
	StageLoad        = "load"
	StageRender      = "render"
	StagePostprocess = "postprocess"
	StageWrite       = "write"
)

// ContentLoader supplies validated descriptors.
type ContentLoader interface {
	LoadSite() (models.SiteDescriptor, error)
	LoadPosts() ([]models.PostDescriptor, error)
}

// PageRenderer turns descriptors into HTML.
type PageRenderer interface {
	RenderIndex(site models.SiteDescriptor, posts []models.PostDescriptor) (string, error)
	RenderPost(post models.PostDescriptor) (string, error)
}

// Minifier minifies a rendered page.
type Minifier interface {
	Minify(src string) (string, error)
}

// OutputWriter materializes pages.
type OutputWriter interface {
	Reset() error
	WritePage(name string, content []byte) (models.PageRecord, error)
}

// MetadataFunc injects page metadata into rendered HTML.
type MetadataFunc func(src string, meta models.PageMeta) (string, error)

// Deps are the collaborators a Pipeline drives.
type Deps struct {
	Loader   ContentLoader
	Renderer PageRenderer
	Metadata MetadataFunc
	Minifier Minifier
	Writer   OutputWriter
	Recorder metrics.Recorder
	Logger   *slog.Logger
}

// Report summarizes a successful build.
type Report struct {
	StartedAt time.Time
	Duration  time.Duration
	Posts     int
	Pages     []models.PageRecord
}

// Pipeline runs builds. It holds no state between builds.
type Pipeline struct {
	deps Deps
}

// New creates a Pipeline.
func New(deps Deps) *Pipeline {
	if deps.Recorder == nil {
		deps.Recorder = metrics.NoopRecorder{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Pipeline{deps: deps}
}

// Build runs one complete build. Every page is rendered and post-processed
// before the output directory is reset, so a failure in those stages leaves
// the previous output untouched. The reset happens exactly once, before the
// first write. Any error aborts the build.
func (p *Pipeline) Build(ctx context.Context) (*Report, error) {
	started := time.Now()
	log := p.deps.Logger

	site, posts, err := p.load()
	if err != nil {
		return nil, err
	}
	p.deps.Recorder.SetPostsLoaded(len(posts))
	log.Info("descriptors loaded", logfields.Count(len(posts)))

	pages, err := p.render(ctx, site, posts)
	if err != nil {
		return nil, err
	}

	pages, err = p.postprocess(ctx, pages)
	if err != nil {
		return nil, err
	}

	records, err := p.write(ctx, pages)
	if err != nil {
		return nil, err
	}

	report := &Report{
		StartedAt: started,
		Duration:  time.Since(started),
		Posts:     len(posts),
		Pages:     records,
	}
	p.deps.Recorder.ObserveBuildDuration(report.Duration)
	log.Info("build complete",
		logfields.Count(len(records)),
		logfields.DurationMS(report.Duration.Milliseconds()))
	return report, nil
}

func (p *Pipeline) load() (models.SiteDescriptor, []models.PostDescriptor, error) {
	defer p.timeStage(StageLoad)()

	site, err := p.deps.Loader.LoadSite()
	if err != nil {
		return site, nil, fmt.Errorf("load site: %w", err)
	}
	posts, err := p.deps.Loader.LoadPosts()
	if err != nil {
		return site, nil, fmt.Errorf("load posts: %w", err)
	}
	return site, posts, nil
}

// render produces the index page followed by one page per post, in
// aggregate order.
func (p *Pipeline) render(ctx context.Context, site models.SiteDescriptor, posts []models.PostDescriptor) ([]models.RenderedPage, error) {
	defer p.timeStage(StageRender)()

	index, err := p.deps.Renderer.RenderIndex(site, posts)
	if err != nil {
		return nil, fmt.Errorf("render index: %w", err)
	}
	pages := make([]models.RenderedPage, 0, len(posts)+1)
	pages = append(pages, models.RenderedPage{OutputName: IndexPage, HTML: index, Meta: site.Meta()})

	// Output names must be unique ignoring case, the index included.
	produced := map[string]string{strings.ToLower(IndexPage): ""}
	for _, post := range posts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := strings.ToLower(post.OutputName())
		if first, ok := produced[name]; ok {
			if name == strings.ToLower(IndexPage) {
				return nil, &apperr.ReservedURLError{URL: post.URL, File: post.Source}
			}
			return nil, &apperr.DuplicateURLError{URL: post.URL, First: first, Second: post.Source}
		}
		produced[name] = post.Source
		html, err := p.deps.Renderer.RenderPost(post)
		if err != nil {
			return nil, fmt.Errorf("render post %q: %w", post.URL, err)
		}
		pages = append(pages, models.RenderedPage{OutputName: post.OutputName(), HTML: html, Meta: post.Meta()})
		p.deps.Logger.Debug("post rendered", logfields.URL(post.URL))
	}
	return pages, nil
}

func (p *Pipeline) postprocess(ctx context.Context, pages []models.RenderedPage) ([]models.RenderedPage, error) {
	defer p.timeStage(StagePostprocess)()

	for i := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		html, err := p.deps.Metadata(pages[i].HTML, pages[i].Meta)
		if err != nil {
			return nil, fmt.Errorf("apply metadata %s: %w", pages[i].OutputName, err)
		}
		html, err = p.deps.Minifier.Minify(html)
		if err != nil {
			return nil, fmt.Errorf("minify %s: %w", pages[i].OutputName, err)
		}
		pages[i].HTML = html
	}
	return pages, nil
}

func (p *Pipeline) write(ctx context.Context, pages []models.RenderedPage) ([]models.PageRecord, error) {
	defer p.timeStage(StageWrite)()

	if err := p.deps.Writer.Reset(); err != nil {
		return nil, fmt.Errorf("reset output: %w", err)
	}
	records := make([]models.PageRecord, 0, len(pages))
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := p.deps.Writer.WritePage(page.OutputName, []byte(page.HTML))
		if err != nil {
			return nil, fmt.Errorf("write %s: %w", page.OutputName, err)
		}
		records = append(records, rec)
		p.deps.Logger.Debug("page written", logfields.Page(page.OutputName))
	}
	p.deps.Recorder.AddPagesWritten(len(records))
	return records, nil
}

func (p *Pipeline) timeStage(stage string) func() {
	start := time.Now()
	return func() {
		p.deps.Recorder.ObserveStageDuration(stage, time.Since(start))
	}
}
