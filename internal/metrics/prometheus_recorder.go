package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "nblink"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	registry      *prom.Registry
	resolutions   *prom.CounterVec
	mediaStaged   *prom.CounterVec
	mediaMissing  prom.Counter
	docDuration   *prom.HistogramVec
	docResults    *prom.CounterVec
	buildDuration prom.Histogram
	buildOutcome  *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers the nblink collectors on reg.
// A nil reg gets a fresh private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		registry: reg,
		resolutions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Descriptor link resolutions by result",
		}, []string{"result"}),
		mediaStaged: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "media_staged_total",
			Help:      "Extra-media entries copied next to the linked notebook",
		}, []string{"kind"}),
		mediaMissing: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "media_missing_total",
			Help:      "Declared extra-media entries that did not exist",
		}),
		docDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "document_duration_seconds",
			Help:      "Time spent parsing a single document",
			Buckets:   prom.DefBuckets,
		}, []string{"doc_type"}),
		docResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "document_results_total",
			Help:      "Document results by type and outcome",
		}, []string{"doc_type", "result"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
	}
	reg.MustRegister(pr.resolutions, pr.mediaStaged, pr.mediaMissing, pr.docDuration, pr.docResults, pr.buildDuration, pr.buildOutcome)
	return pr
}

// Registry returns the registry the collectors live on.
func (p *PrometheusRecorder) Registry() *prom.Registry {
	return p.registry
}

func (p *PrometheusRecorder) IncResolution(result ResultLabel) {
	if p == nil {
		return
	}
	p.resolutions.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) IncMediaStaged(kind MediaKind) {
	if p == nil {
		return
	}
	p.mediaStaged.WithLabelValues(string(kind)).Inc()
}

func (p *PrometheusRecorder) IncMediaMissing() {
	if p == nil {
		return
	}
	p.mediaMissing.Inc()
}

func (p *PrometheusRecorder) ObserveDocumentDuration(docType string, d time.Duration) {
	if p == nil {
		return
	}
	p.docDuration.WithLabelValues(docType).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncDocumentResult(docType string, result ResultLabel) {
	if p == nil {
		return
	}
	p.docResults.WithLabelValues(docType, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcomeLabel) {
	if p == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

// WriteTextfile writes the registry in text exposition format to path,
// creating the parent directory when needed.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prom.WriteToTextfile(path, p.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
