package metrics

import "time"

// ResultLabel enumerates per-document result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultSkipped ResultLabel = "skipped"
	ResultFailed  ResultLabel = "failed"
)

// BuildOutcomeLabel enumerates whole-build outcomes.
type BuildOutcomeLabel string

const (
	BuildSuccess  BuildOutcomeLabel = "success"
	BuildWarning  BuildOutcomeLabel = "warning"
	BuildFailed   BuildOutcomeLabel = "failed"
	BuildCanceled BuildOutcomeLabel = "canceled"
)

// MediaKind distinguishes staged files from staged directory trees.
type MediaKind string

const (
	MediaFile MediaKind = "file"
	MediaDir  MediaKind = "dir"
)

// Recorder defines observability hooks for resolution, staging and builds.
type Recorder interface {
	IncResolution(result ResultLabel)
	IncMediaStaged(kind MediaKind)
	IncMediaMissing()
	ObserveDocumentDuration(docType string, d time.Duration)
	IncDocumentResult(docType string, result ResultLabel)
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome BuildOutcomeLabel)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncResolution(ResultLabel)                     {}
func (NoopRecorder) IncMediaStaged(MediaKind)                      {}
func (NoopRecorder) IncMediaMissing()                              {}
func (NoopRecorder) ObserveDocumentDuration(string, time.Duration) {}
func (NoopRecorder) IncDocumentResult(string, ResultLabel)         {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)            {}
func (NoopRecorder) IncBuildOutcome(BuildOutcomeLabel)             {}
