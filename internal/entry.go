// Package internal provides the application wiring and the entry points
// behind each CLI command.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/starford/dainiki/internal/apperr"
	"github.com/starford/dainiki/internal/content"
	"github.com/starford/dainiki/internal/logfields"
	"github.com/starford/dainiki/internal/manifest"
	"github.com/starford/dainiki/internal/metrics"
	"github.com/starford/dainiki/internal/models"
	"github.com/starford/dainiki/internal/output"
	"github.com/starford/dainiki/internal/pipeline"
	"github.com/starford/dainiki/internal/postprocess"
	"github.com/starford/dainiki/internal/render"
	"github.com/starford/dainiki/internal/schema"
	"github.com/starford/dainiki/internal/watch"
)

// CheckReport summarizes a successful check.
type CheckReport struct {
	Site  models.SiteDescriptor
	Posts []models.PostDescriptor
}

func newApplication(opts []Option) (*application, error) {
	app := &application{out: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := app.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if app.logger == nil {
		// Initialize structured JSON logger.
		app.logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: app.config.App.LogLevel,
		}))
		slog.SetDefault(app.logger)
	}

	cfg := app.config
	app.logger.Debug("Configuration loaded",
		slog.String("content_root", cfg.Content.Root),
		slog.String("posts_dir", cfg.Content.PostsDir),
		slog.String("site_file", cfg.Content.SiteFile),
		slog.String("output_dir", cfg.Output.Dir),
		slog.String("log_level", cfg.App.LogLevel.String()))

	return app, nil
}

// Build runs one full build and records it in the manifest when configured.
func Build(ctx context.Context, opts ...Option) (*pipeline.Report, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}

	ledger, err := app.openLedger()
	if err != nil {
		return nil, err
	}
	if ledger != nil {
		defer ledger.Close()
	}

	return app.build(ctx, ledgerOrNil(ledger), app.newRecorder())
}

// Check loads and validates every descriptor without touching the output directory.
func Check(_ context.Context, opts ...Option) (*CheckReport, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}

	loader, err := app.newLoader()
	if err != nil {
		return nil, err
	}
	site, err := loader.LoadSite()
	if err != nil {
		return nil, fmt.Errorf("load site: %w", err)
	}
	posts, err := loader.LoadPosts()
	if err != nil {
		return nil, fmt.Errorf("load posts: %w", err)
	}

	app.logger.Info("descriptors valid", logfields.Count(len(posts)))
	return &CheckReport{Site: site, Posts: posts}, nil
}

// Watch builds once, then rebuilds whenever a source changes until ctx is
// cancelled or the process receives SIGINT/SIGTERM. Failed builds are logged.
func Watch(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	ledger, err := app.openLedger()
	if err != nil {
		return err
	}
	if ledger != nil {
		defer ledger.Close()
	}
	recorder := app.newRecorder()

	rebuild := func(ctx context.Context) error {
		_, err := app.build(ctx, ledgerOrNil(ledger), recorder)
		return err
	}
	if err := rebuild(ctx); err != nil {
		app.logger.Error("initial build failed", logfields.Error(err))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return watchSources(gCtx, app, rebuild)
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			app.logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			cancel()
		case <-gCtx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		app.logger.Error("watch error", logfields.Error(err))
		return err
	}

	app.logger.Info("Watcher stopped", logfields.Path(cfg.Output.Dir))
	return nil
}

// History prints the most recent builds recorded in the manifest.
func History(_ context.Context, limit int, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	if app.config.Manifest.Path == "" {
		return fmt.Errorf("history: manifest.path is not configured")
	}

	ledger, err := app.openLedger()
	if err != nil {
		return err
	}
	defer ledger.Close()

	builds, err := ledger.ListBuilds(limit)
	if err != nil {
		return err
	}
	for i := range builds {
		pages, err := ledger.Pages(builds[i].ID)
		if err != nil {
			return err
		}
		builds[i].Pages = pages
	}

	_, err = fmt.Fprintln(app.out, renderHistory(builds))
	return err
}

// build runs the pipeline once, then exports metrics and records the build.
func (a *application) build(ctx context.Context, ledger manifest.Ledger, recorder *recorderSink) (*pipeline.Report, error) {
	id := uuid.NewString()
	logger := a.logger.With(logfields.BuildID(id))

	p, err := a.newPipeline(logger, recorder.Recorder())
	if err != nil {
		return nil, err
	}

	report, err := p.Build(ctx)
	switch {
	case err == nil:
		recorder.Recorder().IncBuildOutcome(metrics.OutcomeSuccess)
	case errors.Is(err, apperr.ErrValidation):
		recorder.Recorder().IncBuildOutcome(metrics.OutcomeInvalid)
	default:
		recorder.Recorder().IncBuildOutcome(metrics.OutcomeFailed)
	}
	recorder.flush(logger)
	if err != nil {
		return nil, err
	}

	if ledger != nil {
		rec := models.BuildRecord{
			ID:        id,
			StartedAt: report.StartedAt,
			Duration:  report.Duration,
			OutputDir: a.config.Output.Dir,
			Pages:     report.Pages,
		}
		if err := ledger.RecordBuild(rec); err != nil {
			return nil, fmt.Errorf("record build: %w", err)
		}
	}
	return report, nil
}

func (a *application) newLoader() (*content.Loader, error) {
	cfg := a.config
	siteSchema, err := schema.Compile(cfg.Schema.Site)
	if err != nil {
		return nil, err
	}
	postSchema, err := schema.Compile(cfg.Schema.Post)
	if err != nil {
		return nil, err
	}
	return content.NewLoader(content.Options{
		SiteFile:   cfg.Content.SiteFile,
		PostsDir:   cfg.Content.PostsDir,
		SiteSchema: siteSchema,
		PostSchema: postSchema,
		Logger:     a.logger,
	}), nil
}

func (a *application) newPipeline(logger *slog.Logger, recorder metrics.Recorder) (*pipeline.Pipeline, error) {
	cfg := a.config

	loader, err := a.newLoader()
	if err != nil {
		return nil, err
	}
	writer, err := output.NewWriter(cfg.Output.Dir)
	if err != nil {
		return nil, err
	}

	return pipeline.New(pipeline.Deps{
		Loader: loader,
		Renderer: render.New(render.Options{
			ContentRoot:   cfg.Content.Root,
			IndexTemplate: cfg.Views.Index,
			PostTemplate:  cfg.Views.Post,
		}),
		Metadata: postprocess.ApplyMetadata,
		Minifier: postprocess.NewMinifier(),
		Writer:   writer,
		Recorder: recorder,
		Logger:   logger,
	}), nil
}

// openLedger opens the build manifest, or returns nil when it is disabled.
func (a *application) openLedger() (*manifest.DB, error) {
	path := a.config.Manifest.Path
	if path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create manifest dir: %w", err)
	}
	db, err := manifest.Open(path)
	if err != nil {
		return nil, fmt.Errorf("init manifest: %w", err)
	}
	return db, nil
}

// ledgerOrNil keeps a disabled manifest from becoming a non-nil Ledger.
func ledgerOrNil(db *manifest.DB) manifest.Ledger {
	if db == nil {
		return nil
	}
	return db
}

// watchSources watches every directory a build reads from. The output
// directory and the files the build itself writes are ignored so a rebuild
// never triggers another one.
func watchSources(ctx context.Context, a *application, rebuild watch.RebuildFunc) error {
	cfg := a.config

	var roots []string
	seen := make(map[string]bool)
	for _, dir := range []string{
		cfg.Content.Root,
		cfg.Content.PostsDir,
		filepath.Dir(cfg.Content.SiteFile),
		filepath.Dir(cfg.Schema.Site),
		filepath.Dir(cfg.Schema.Post),
		filepath.Dir(cfg.Views.Index),
		filepath.Dir(cfg.Views.Post),
	} {
		if seen[dir] || coveredBy(dir, roots) {
			continue
		}
		seen[dir] = true
		roots = append(roots, dir)
	}

	ignore := []string{cfg.Output.Dir}
	if p := cfg.Manifest.Path; p != "" {
		ignore = append(ignore, p, p+"-wal", p+"-shm", p+"-journal")
	}
	if cfg.Metrics.Textfile != "" {
		ignore = append(ignore, cfg.Metrics.Textfile)
	}

	return watch.Watch(ctx, watch.Options{
		Roots:    roots,
		Ignore:   ignore,
		Debounce: cfg.Watch.Debounce,
		Logger:   a.logger,
	}, rebuild)
}

// coveredBy reports whether dir lies inside one of roots.
func coveredBy(dir string, roots []string) bool {
	for _, root := range roots {
		rel, err := filepath.Rel(root, dir)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// recorderSink pairs a Recorder with the textfile it is exported to.
type recorderSink struct {
	prom     *metrics.PrometheusRecorder
	textfile string
}

func (a *application) newRecorder() *recorderSink {
	if a.config.Metrics.Textfile == "" {
		return &recorderSink{}
	}
	return &recorderSink{
		prom:     metrics.NewPrometheusRecorder(nil),
		textfile: a.config.Metrics.Textfile,
	}
}

func (s *recorderSink) Recorder() metrics.Recorder {
	if s.prom == nil {
		return metrics.NoopRecorder{}
	}
	return s.prom
}

// flush writes the metrics textfile. Export failures never fail a build.
func (s *recorderSink) flush(logger *slog.Logger) {
	if s.prom == nil {
		return
	}
	start := time.Now()
	if err := os.MkdirAll(filepath.Dir(s.textfile), 0o755); err != nil {
		logger.Warn("metrics export failed", logfields.Error(err))
		return
	}
	if err := s.prom.WriteTextfile(s.textfile); err != nil {
		logger.Warn("metrics export failed", logfields.Error(err))
		return
	}
	logger.Debug("metrics exported", logfields.Path(s.textfile), logfields.DurationMS(time.Since(start).Milliseconds()))
}
