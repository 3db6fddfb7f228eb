// Package build runs descriptor documents through the registered parsers.
//
// A Builder discovers every source with a registered suffix below the
// documentation root, decides per document whether it is outdated using the
// dependency store, and parses outdated documents on a bounded worker pool.
// Each document gets its own Env which records the dependencies, metadata and
// reread requests the parser reports. Per-document failures are classified and
// collected in the Report; the build only stops early when FailFast is set.
package build
