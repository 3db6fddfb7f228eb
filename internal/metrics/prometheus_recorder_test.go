package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.IncResolution(ResultSuccess)
	pr.IncResolution(ResultSuccess)
	pr.IncResolution(ResultFailed)
	pr.IncMediaStaged(MediaDir)
	pr.IncMediaMissing()
	pr.ObserveDocumentDuration("linked_jupyter_notebook", 15*time.Millisecond)
	pr.IncDocumentResult("linked_jupyter_notebook", ResultSkipped)
	pr.ObserveBuildDuration(500 * time.Millisecond)
	pr.IncBuildOutcome(BuildSuccess)

	require.InDelta(t, 2, testutil.ToFloat64(pr.resolutions.WithLabelValues("success")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(pr.resolutions.WithLabelValues("failed")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(pr.mediaMissing), 0)
	require.InDelta(t, 1, testutil.ToFloat64(pr.mediaStaged.WithLabelValues("dir")), 0)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, mfs)
}

func TestPrometheusRecorderWriteTextfile(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	pr.IncBuildOutcome(BuildFailed)

	path := filepath.Join(t.TempDir(), "metrics", "nblink.prom")
	require.NoError(t, pr.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(data), `nblink_build_outcomes_total{outcome="failed"} 1`))
}

func TestNilPrometheusRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	require.NotPanics(t, func() {
		pr.IncResolution(ResultSuccess)
		pr.IncMediaMissing()
		pr.IncBuildOutcome(BuildSuccess)
	})
}

var _ Recorder = NoopRecorder{}
var _ Recorder = (*PrometheusRecorder)(nil)
