package nblink

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"

	"git.home.luguber.info/inful/nblink/internal/logfields"
	"git.home.luguber.info/inful/nblink/internal/metrics"
	"git.home.luguber.info/inful/nblink/internal/registry"
)

// MetadataTargetKey is the document metadata key holding the target-root-relative
// notebook path.
const MetadataTargetKey = "nblink-target"

// Document is the build environment of the document being resolved.
type Document = registry.Document

// ResolverConfig carries the roots and collaborators of a Resolver.
type ResolverConfig struct {
	// DocRoot is the documentation root; dependency keys are relative to it.
	DocRoot string
	// TargetRoot anchors the cross-reference metadata. Empty means DocRoot.
	TargetRoot string
	Logger     *slog.Logger
	Recorder   metrics.Recorder
}

// Resolver resolves descriptors for documents of one build.
type Resolver struct {
	docRoot    string
	targetRoot string
	stager     *Stager
	logger     *slog.Logger
	recorder   metrics.Recorder
}

// Resolved is the outcome for one descriptor entry.
type Resolved struct {
	Resolution
	Media []CopyInstruction `json:"media,omitempty"`
	// Notebook is the decoded notebook text, exactly as read.
	Notebook string `json:"-"`
}

// NewResolver creates a resolver. Roots are made absolute once here.
func NewResolver(cfg ResolverConfig) *Resolver {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := cfg.Recorder
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	docRoot := absOrClean(cfg.DocRoot)
	targetRoot := docRoot
	if cfg.TargetRoot != "" {
		targetRoot = absOrClean(cfg.TargetRoot)
	}
	return &Resolver{
		docRoot:    docRoot,
		targetRoot: targetRoot,
		stager:     NewStager(docRoot, logger, recorder),
		logger:     logger,
		recorder:   recorder,
	}
}

// DocRoot returns the absolute documentation root.
func (r *Resolver) DocRoot() string { return r.docRoot }

// TargetRoot returns the absolute target root.
func (r *Resolver) TargetRoot() string { return r.targetRoot }

// Resolve parses descriptorText for doc and resolves every entry: paths are
// computed, extra media staged, the notebook registered as a dependency, the
// target-relative path recorded as metadata and the notebook read as text.
//
// A malformed descriptor yields *DescriptorError and registers nothing. An
// unreadable notebook yields *TargetUnreadableError.
func (r *Resolver) Resolve(ctx context.Context, doc Document, descriptorText []byte) ([]Resolved, error) {
	links, err := ParseDescriptor(descriptorText)
	if err != nil {
		var derr *DescriptorError
		if errors.As(err, &derr) {
			derr.Document = doc.Name()
		}
		r.recorder.IncResolution(metrics.ResultFailed)
		return nil, err
	}

	out := make([]Resolved, 0, len(links))
	for _, link := range links {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		resolved, err := r.resolveLink(doc, link)
		if err != nil {
			r.recorder.IncResolution(metrics.ResultFailed)
			return out, err
		}
		r.recorder.IncResolution(metrics.ResultSuccess)
		out = append(out, resolved)
	}
	return out, nil
}

func (r *Resolver) resolveLink(doc Document, link Link) (Resolved, error) {
	res, err := ResolvePaths(link, doc.SourcePath(), r.docRoot, r.targetRoot)
	if err != nil {
		return Resolved{}, &TargetUnreadableError{
			Document:     doc.Name(),
			DeclaredPath: link.Path,
			ResolvedPath: joinFrom(filepath.Dir(doc.SourcePath()), link.Path),
			Err:          err,
		}
	}

	resolved := Resolved{Resolution: res}
	if len(link.ExtraMedia) > 0 {
		media, err := r.stager.Stage(doc, link.ExtraMedia, doc.SourcePath(), res.AbsPath)
		resolved.Media = media
		if err != nil {
			return resolved, err
		}
	}

	doc.NoteDependency(res.DocRelPath)
	doc.SetMetadata(MetadataTargetKey, res.TargetRelPath)

	text, err := ReadNotebook(res.AbsPath)
	if err != nil {
		return resolved, &TargetUnreadableError{
			Document:     doc.Name(),
			DeclaredPath: link.Path,
			ResolvedPath: res.AbsPath,
			Err:          err,
		}
	}
	resolved.Notebook = text

	r.logger.Debug("Resolved linked notebook",
		logfields.Document(doc.Name()),
		logfields.DeclaredPath(link.Path),
		logfields.ResolvedPath(res.AbsPath),
		logfields.TargetPath(res.TargetRelPath))
	return resolved, nil
}

// ReadLinked returns the text of the first notebook linked by the descriptor at
// sourcePath without staging media or touching any document state. It backs the
// ".nblink" custom format for consumers that read descriptors as notebooks.
func (r *Resolver) ReadLinked(sourcePath string, content []byte) ([]byte, error) {
	links, err := ParseDescriptor(content)
	if err != nil {
		var derr *DescriptorError
		if errors.As(err, &derr) {
			derr.Document = sourcePath
		}
		return nil, err
	}
	res, err := ResolvePaths(links[0], sourcePath, r.docRoot, r.targetRoot)
	if err != nil {
		return nil, &TargetUnreadableError{Document: sourcePath, DeclaredPath: links[0].Path, Err: err}
	}
	text, err := ReadNotebook(res.AbsPath)
	if err != nil {
		return nil, &TargetUnreadableError{
			Document:     sourcePath,
			DeclaredPath: links[0].Path,
			ResolvedPath: res.AbsPath,
			Err:          err,
		}
	}
	return []byte(text), nil
}

func absOrClean(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
