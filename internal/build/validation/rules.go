package validation

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"git.home.luguber.info/inful/nblink/internal/depstore"
)

// RecordRule requires a stored record.
type RecordRule struct{}

func (RecordRule) Name() string { return "record" }

func (RecordRule) Validate(_ context.Context, vctx Context) Result {
	if !vctx.Found {
		return Failure("new")
	}
	return Success()
}

// StatusRule requires the previous build of the document to have succeeded.
type StatusRule struct{}

func (StatusRule) Name() string { return "status" }

func (StatusRule) Validate(_ context.Context, vctx Context) Result {
	if vctx.Record.Status != depstore.StatusOK {
		return Failure("previous build failed")
	}
	return Success()
}

// RereadRule fails for documents that asked to be processed on every build.
type RereadRule struct{}

func (RereadRule) Name() string { return "reread" }

func (RereadRule) Validate(_ context.Context, vctx Context) Result {
	if vctx.Record.Reread {
		return Failure("reread requested")
	}
	return Success()
}

// SourceHashRule requires unchanged source content.
type SourceHashRule struct{}

func (SourceHashRule) Name() string { return "source_hash" }

func (SourceHashRule) Validate(_ context.Context, vctx Context) Result {
	if vctx.Record.SourceHash != vctx.SourceHash {
		return Failure("source changed")
	}
	return Success()
}

// DependencyHashRule requires every recorded dependency to still exist with
// the recorded content.
type DependencyHashRule struct{}

func (DependencyHashRule) Name() string { return "dependency_hash" }

func (DependencyHashRule) Validate(ctx context.Context, vctx Context) Result {
	paths := make([]string, 0, len(vctx.Record.Dependencies))
	for p := range vctx.Record.Dependencies {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if ctx.Err() != nil {
			return Failure("canceled")
		}
		hash, err := depstore.HashFile(filepath.Join(vctx.DocRoot, filepath.FromSlash(p)))
		if err != nil || hash != vctx.Record.Dependencies[p] {
			return Failure("dependency changed: " + p)
		}
	}
	return Success()
}

// OutputRule requires the primary output and every file the previous build
// wrote (further notebooks, staged media) to still exist.
type OutputRule struct{}

func (OutputRule) Name() string { return "output" }

func (OutputRule) Validate(_ context.Context, vctx Context) Result {
	if vctx.OutputPath != "" {
		if _, err := os.Stat(vctx.OutputPath); err != nil {
			return Failure("output missing")
		}
	}
	for _, p := range vctx.Record.Outputs {
		if _, err := os.Stat(p); err != nil {
			return Failure("output missing: " + p)
		}
	}
	return Success()
}
