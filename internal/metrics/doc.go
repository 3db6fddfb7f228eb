// Package metrics provides build observability for nblink.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no nil checks are needed at call sites:
//
//	resolver := nblink.NewResolver(nblink.ResolverConfig{DocRoot: root, Recorder: metrics.NoopRecorder{}})
//
// PrometheusRecorder registers real collectors on a prometheus.Registry. nblink has
// no network surface, so the registry is exported with WriteTextfile for the node
// exporter textfile collector instead of being scraped over HTTP.
package metrics
