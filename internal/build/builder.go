package build

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/nblink/internal/build/validation"
	"git.home.luguber.info/inful/nblink/internal/config"
	"git.home.luguber.info/inful/nblink/internal/depstore"
	nberrors "git.home.luguber.info/inful/nblink/internal/foundation/errors"
	"git.home.luguber.info/inful/nblink/internal/logfields"
	"git.home.luguber.info/inful/nblink/internal/metrics"
	"git.home.luguber.info/inful/nblink/internal/nblink"
	"git.home.luguber.info/inful/nblink/internal/registry"
	"git.home.luguber.info/inful/nblink/internal/version"
)

// Source is a discovered document.
type Source struct {
	DocName string
	Path    string
	DocType string
}

// Builder runs descriptor documents through the registry.
type Builder struct {
	cfg       *config.Config
	docRoot   string
	outputDir string
	logger    *slog.Logger
	recorder  metrics.Recorder
	store     *depstore.Store
	registry  *registry.Registry
	resolver  *nblink.Resolver
	writer    *NotebookWriter
}

// Option configures a Builder.
type Option func(*Builder)

func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

func WithRecorder(recorder metrics.Recorder) Option {
	return func(b *Builder) {
		if recorder != nil {
			b.recorder = recorder
		}
	}
}

// WithStore enables incremental builds backed by store.
func WithStore(store *depstore.Store) Option {
	return func(b *Builder) { b.store = store }
}

// New creates a builder and installs the nblink extension into its registry.
func New(cfg *config.Config, opts ...Option) (*Builder, error) {
	if cfg == nil {
		return nil, nberrors.ConfigError("config required").Build()
	}
	b := &Builder{
		cfg:      cfg,
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(b)
	}

	b.resolver = nblink.NewResolver(nblink.ResolverConfig{
		DocRoot:    cfg.Docs.Root,
		TargetRoot: cfg.Link.TargetRoot,
		Logger:     b.logger,
		Recorder:   b.recorder,
	})
	b.docRoot = b.resolver.DocRoot()
	outputDir, err := filepath.Abs(cfg.Build.OutputDir)
	if err != nil {
		return nil, nberrors.WrapError(err, nberrors.CategoryConfig, "invalid build.output_dir").Build()
	}
	b.outputDir = outputDir
	b.writer = NewNotebookWriter(outputDir)

	b.registry = registry.New(b.logger)
	parser := nblink.NewParser(b.resolver, b.writer)
	ext := nblink.Extension(parser, version.Version, nblink.ExtensionOptions{
		Suffixes:      cfg.Docs.Suffixes,
		CustomFormats: cfg.Link.CustomFormats,
	})
	if err := b.registry.Install(ext); err != nil {
		return nil, nberrors.WrapError(err, nberrors.CategoryRegistry, "failed to install extension").
			WithContext("extension", ext.Name).
			Build()
	}
	return b, nil
}

func (b *Builder) Registry() *registry.Registry { return b.registry }
func (b *Builder) Resolver() *nblink.Resolver   { return b.resolver }
func (b *Builder) Writer() *NotebookWriter      { return b.writer }
func (b *Builder) DocRoot() string              { return b.docRoot }

// Discover lists every source with a registered suffix below the doc root.
// Hidden directories and the output directory are not descended into.
func (b *Builder) Discover() ([]Source, error) {
	var sources []Source
	err := filepath.WalkDir(b.docRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != b.docRoot && (strings.HasPrefix(d.Name(), ".") || path == b.outputDir) {
				return filepath.SkipDir
			}
			return nil
		}
		src, ok := b.Source(path)
		if ok {
			sources = append(sources, src)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sources, nil
}

// Source describes the document at path, which must lie below the doc root and
// carry a registered suffix.
func (b *Builder) Source(path string) (Source, bool) {
	docType, ok := b.registry.DocTypeFor(path)
	if !ok {
		return Source{}, false
	}
	rel, err := filepath.Rel(b.docRoot, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return Source{}, false
	}
	rel = filepath.ToSlash(rel)
	return Source{
		DocName: strings.TrimSuffix(rel, b.registry.SuffixFor(path)),
		Path:    path,
		DocType: docType,
	}, true
}

// RunOptions modify a single build.
type RunOptions struct {
	// Full rebuilds every document regardless of the dependency store.
	Full bool
}

// Run builds every discovered document. Per-document failures are reported in
// the Report; the returned error is non-nil only when the build could not run,
// was canceled, or stopped on the first failure with build.fail_fast.
func (b *Builder) Run(ctx context.Context, opts RunOptions) (*Report, error) {
	report := &Report{BuildID: uuid.NewString(), StartTime: time.Now()}
	logger := b.logger.With(logfields.BuildID(report.BuildID))

	sources, err := b.Discover()
	if err != nil {
		report.finish(BuildStatusFailed)
		b.recorder.IncBuildOutcome(metrics.BuildFailed)
		return report, nberrors.WrapError(err, nberrors.CategoryFileSystem, "failed to discover documents").
			WithContext("root", b.docRoot).
			Fatal().
			Build()
	}
	logger.Info("Starting build", logfields.Count(len(sources)), slog.Bool("full", opts.Full))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := 1
	if b.registry.ParallelSafe() {
		workers = b.cfg.Build.Workers
	}
	results := runOrdered(runCtx, sources, workers, func(ctx context.Context, src Source) (DocumentResult, error) {
		res := b.buildOne(ctx, logger, report.BuildID, src, opts)
		if res.Status == DocumentFailed && b.cfg.Build.FailFast {
			cancel()
		}
		return res, nil
	})
	for _, r := range results {
		if r.Err == nil {
			report.add(r.Value)
		}
	}

	if ctx.Err() == nil {
		report.Removed = b.prune(ctx, logger, sources)
	}

	status := BuildStatusSuccess
	outcome := metrics.BuildSuccess
	switch {
	case ctx.Err() != nil:
		status, outcome = BuildStatusCanceled, metrics.BuildCanceled
	case report.Failed > 0:
		status, outcome = BuildStatusFailed, metrics.BuildFailed
	case report.Built == 0 && report.Skipped > 0:
		status = BuildStatusSkipped
	case len(sources) == 0:
		outcome = metrics.BuildWarning
	}
	report.finish(status)
	b.recorder.IncBuildOutcome(outcome)
	b.recorder.ObserveBuildDuration(report.Duration)
	b.writeMetrics(logger)

	logger.Info("Build finished",
		slog.String("status", string(status)),
		slog.Int("built", report.Built),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", report.Failed),
		logfields.DurationMS(float64(report.Duration.Milliseconds())))

	if err := ctx.Err(); err != nil {
		return report, nberrors.WrapError(err, nberrors.CategoryRuntime, "build canceled").Build()
	}
	if b.cfg.Build.FailFast && report.Failed > 0 {
		return report, report.Errors()[0]
	}
	return report, nil
}

func (b *Builder) buildOne(ctx context.Context, logger *slog.Logger, buildID string, src Source, opts RunOptions) DocumentResult {
	start := time.Now()
	res := DocumentResult{DocName: src.DocName, Source: src.Path, DocType: src.DocType}
	logger = logger.With(logfields.Document(src.DocName))

	content, err := os.ReadFile(src.Path)
	if err != nil {
		res.Status = DocumentFailed
		res.Err = classify(fmt.Errorf("read source: %w", err), src)
		b.finishDocument(logger, &res, start)
		return res
	}
	sourceHash := depstore.HashBytes(content)

	reason, skip := b.upToDate(ctx, logger, src, sourceHash, opts)
	if skip {
		res.Status = DocumentSkipped
		res.Reason = "up to date"
		b.finishDocument(logger, &res, start)
		return res
	}
	res.Reason = reason

	capability, ok := b.registry.Parser(src.DocType)
	if !ok {
		res.Status = DocumentFailed
		res.Err = nberrors.RegistryError("no parser registered").
			WithContext("document", src.DocName).
			WithContext("doc_type", src.DocType).
			Build()
		b.finishDocument(logger, &res, start)
		return res
	}

	env := NewEnv(src.DocName, src.Path, src.DocType)
	res.Status = DocumentBuilt
	if err := capability.Parse(ctx, env, content); err != nil {
		res.Status = DocumentFailed
		res.Err = classify(err, src)
	}
	res.Dependencies = env.Dependencies()
	res.Outputs = env.Outputs()
	b.record(ctx, logger, buildID, src, sourceHash, env, res)
	b.finishDocument(logger, &res, start)
	return res
}

// upToDate reports whether the document can be skipped, or why not.
func (b *Builder) upToDate(ctx context.Context, logger *slog.Logger, src Source, sourceHash string, opts RunOptions) (string, bool) {
	switch {
	case opts.Full:
		return "full build", false
	case !b.cfg.Build.Incremental || b.store == nil:
		return "incremental disabled", false
	}
	rec, found, err := b.store.Get(ctx, src.DocName)
	if err != nil {
		logger.Warn("Failed to read dependency record", logfields.Error(err))
		return "state unavailable", false
	}
	return validation.Evaluate(ctx, validation.Context{
		DocName:    src.DocName,
		Record:     rec,
		Found:      found,
		SourceHash: sourceHash,
		DocRoot:    b.docRoot,
		OutputPath: b.writer.OutputPath(src.DocName, 0),
		Logger:     logger,
	})
}

func (b *Builder) record(ctx context.Context, logger *slog.Logger, buildID string, src Source, sourceHash string, env *Env, res DocumentResult) {
	if b.store == nil {
		return
	}
	deps := make(map[string]string, len(res.Dependencies))
	for _, dep := range res.Dependencies {
		// An unreadable dependency gets an empty hash so the next build retries.
		hash, _ := depstore.HashFile(filepath.Join(b.docRoot, filepath.FromSlash(dep)))
		deps[dep] = hash
	}
	status := depstore.StatusOK
	if res.Status == DocumentFailed {
		status = depstore.StatusFailed
	}
	rec := depstore.Record{
		DocName:      src.DocName,
		SourcePath:   src.Path,
		SourceHash:   sourceHash,
		Status:       status,
		Reread:       env.Reread(),
		BuildID:      buildID,
		Dependencies: deps,
		Outputs:      env.Outputs(),
		Metadata:     env.Metadata(),
	}
	if err := b.store.Put(ctx, rec); err != nil {
		logger.Warn("Failed to store dependency record", logfields.Error(err))
	}
}

func (b *Builder) finishDocument(logger *slog.Logger, res *DocumentResult, start time.Time) {
	res.Duration = time.Since(start)
	b.recorder.ObserveDocumentDuration(res.DocType, res.Duration)
	switch res.Status {
	case DocumentBuilt:
		b.recorder.IncDocumentResult(res.DocType, metrics.ResultSuccess)
		logger.Debug("Document built", slog.String("reason", res.Reason), logfields.Count(len(res.Dependencies)))
	case DocumentSkipped:
		b.recorder.IncDocumentResult(res.DocType, metrics.ResultSkipped)
		logger.Debug("Document up to date")
	case DocumentFailed:
		b.recorder.IncDocumentResult(res.DocType, metrics.ResultFailed)
		logger.Error("Document failed",
			slog.String("category", string(res.Err.Category())),
			logfields.Error(res.Err))
	}
}

// prune forgets documents that no longer exist.
func (b *Builder) prune(ctx context.Context, logger *slog.Logger, sources []Source) int {
	if b.store == nil {
		return 0
	}
	known, err := b.store.DocNames(ctx)
	if err != nil {
		logger.Warn("Failed to list dependency records", logfields.Error(err))
		return 0
	}
	current := make([]string, 0, len(sources))
	for _, s := range sources {
		current = append(current, s.DocName)
	}
	removed := 0
	for _, name := range known {
		if slices.Contains(current, name) {
			continue
		}
		if err := b.store.Delete(ctx, name); err != nil {
			logger.Warn("Failed to remove dependency record", logfields.Document(name), logfields.Error(err))
			continue
		}
		removed++
	}
	return removed
}

type textfileWriter interface {
	WriteTextfile(path string) error
}

func (b *Builder) writeMetrics(logger *slog.Logger) {
	path := b.cfg.Metrics.Textfile
	if path == "" {
		return
	}
	w, ok := b.recorder.(textfileWriter)
	if !ok {
		return
	}
	if err := w.WriteTextfile(path); err != nil {
		logger.Warn("Failed to write metrics textfile", logfields.Path(path), logfields.Error(err))
	}
}

// classify maps a per-document failure onto an error category.
func classify(err error, src Source) *nberrors.ClassifiedError {
	var (
		descriptorErr *nblink.DescriptorError
		targetErr     *nblink.TargetUnreadableError
		mediaErr      *nblink.MediaError
		builder       *nberrors.ErrorBuilder
	)
	switch {
	case errors.As(err, &descriptorErr):
		builder = nberrors.WrapError(err, nberrors.CategoryDescriptor, "invalid descriptor").UserAction()
	case errors.As(err, &targetErr):
		builder = nberrors.WrapError(err, nberrors.CategoryTarget, "linked notebook unreadable").
			WithContext("declared_path", targetErr.DeclaredPath).
			UserAction()
	case errors.As(err, &mediaErr):
		builder = nberrors.WrapError(err, nberrors.CategoryMedia, "failed to stage extra media").
			WithContext("media_source", mediaErr.Source)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		builder = nberrors.WrapError(err, nberrors.CategoryRuntime, "document build canceled")
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission):
		builder = nberrors.WrapError(err, nberrors.CategoryFileSystem, "document source unreadable")
	default:
		builder = nberrors.WrapError(err, nberrors.CategoryBuild, "document build failed")
	}
	return builder.
		WithContext("document", src.DocName).
		WithContext("source", src.Path).
		Build()
}
