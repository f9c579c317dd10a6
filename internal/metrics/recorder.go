// Package metrics records build observations and exports them in the
// Prometheus text format.
package metrics

import "time"

// Outcome labels a finished build.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeInvalid Outcome = "invalid"
	OutcomeFailed  Outcome = "failed"
)

// Recorder receives build observations.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome Outcome)
	AddPagesWritten(n int)
	SetPostsLoaded(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) IncBuildOutcome(Outcome)                    {}
func (NoopRecorder) AddPagesWritten(int)                        {}
func (NoopRecorder) SetPostsLoaded(int)                         {}
