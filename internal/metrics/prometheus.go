package metrics

import (
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	registry      *prom.Registry
	stageDuration *prom.HistogramVec
	buildDuration prom.Histogram
	buildOutcome  *prom.CounterVec
	pagesWritten  prom.Counter
	postsLoaded   prom.Gauge
	lastBuild     prom.Gauge
}

// NewPrometheusRecorder constructs metrics and registers them on reg, or on a
// fresh registry when reg is nil.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		registry: reg,
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "dainiki",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "dainiki",
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "dainiki",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
		pagesWritten: prom.NewCounter(prom.CounterOpts{
			Namespace: "dainiki",
			Name:      "pages_written_total",
			Help:      "Pages materialized into the output directory",
		}),
		postsLoaded: prom.NewGauge(prom.GaugeOpts{
			Namespace: "dainiki",
			Name:      "posts_loaded",
			Help:      "Post descriptors loaded by the last build",
		}),
		lastBuild: prom.NewGauge(prom.GaugeOpts{
			Namespace: "dainiki",
			Name:      "last_build_timestamp_seconds",
			Help:      "Unix time the last build finished",
		}),
	}
	reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.buildOutcome, pr.pagesWritten, pr.postsLoaded, pr.lastBuild)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome Outcome) {
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
	p.lastBuild.SetToCurrentTime()
}

func (p *PrometheusRecorder) AddPagesWritten(n int) {
	p.pagesWritten.Add(float64(n))
}

func (p *PrometheusRecorder) SetPostsLoaded(n int) {
	p.postsLoaded.Set(float64(n))
}

// WriteTextfile writes every registered metric to path in the text
// exposition format, for node_exporter's textfile collector.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	if err := prom.WriteToTextfile(path, p.registry); err != nil {
		return fmt.Errorf("metrics: write textfile %s: %w", path, err)
	}
	return nil
}
