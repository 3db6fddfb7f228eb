// Package registry holds the explicit extension registration used by the build:
// which source suffixes map to which document types, which parser handles each
// document type, and which custom-format decoders secondary consumers may use.
//
// Everything is registered once at initialization through Install; nothing is
// added while documents are being processed.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"git.home.luguber.info/inful/nblink/internal/logfields"
)

// Document is the per-document view of the build environment handed to parsers.
type Document interface {
	// Name is the document identity (source path relative to the doc root, without suffix).
	Name() string
	// SourcePath is the absolute path of the document's source file.
	SourcePath() string
	// NoteDependency records a doc-root-relative, slash-separated path whose changes
	// invalidate this document.
	NoteDependency(relPath string)
	// SetMetadata attaches a value to the document's build metadata.
	SetMetadata(key string, value any)
	// NoteReread marks the document to be parsed again on every build.
	NoteReread()
}

// ParseFunc turns a document's raw source into output via the document environment.
type ParseFunc func(ctx context.Context, doc Document, input []byte) error

// Capability pairs a parse function with the document type it supports.
type Capability struct {
	DocType string
	Parse   ParseFunc
}

// Extension is the capability object installed once at build-system initialization.
type Extension struct {
	Name    string
	Version string
	// Suffixes maps a source file suffix (".nblink") to a document type.
	Suffixes map[string]string
	Parsers  []Capability
	// Formats are custom-format decoders offered to secondary consumers.
	Formats map[string]FormatDecoder
	// ParallelSafe reports whether the parsers may run concurrently on distinct documents.
	ParallelSafe bool
}

// Validate checks the extension metadata and that every suffix has a parser.
func (e Extension) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("extension name is required")
	}
	if e.Version == "" {
		return fmt.Errorf("extension %s: version is required", e.Name)
	}
	for suffix, docType := range e.Suffixes {
		if !strings.HasPrefix(suffix, ".") {
			return fmt.Errorf("extension %s: suffix %q must start with a dot", e.Name, suffix)
		}
		if docType == "" {
			return fmt.Errorf("extension %s: suffix %q has no document type", e.Name, suffix)
		}
	}
	for _, c := range e.Parsers {
		if c.DocType == "" || c.Parse == nil {
			return fmt.Errorf("extension %s: parser capability needs a document type and a parse function", e.Name)
		}
	}
	return nil
}

// String returns a human-readable identifier.
func (e Extension) String() string {
	return e.Name + "@" + e.Version
}

// Registry manages installed extensions.
type Registry struct {
	mu         sync.RWMutex
	logger     *slog.Logger
	extensions map[string]Extension
	suffixes   map[string]string
	parsers    map[string]Capability
	formats    *Formats
}

// New creates an empty registry.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger:     logger,
		extensions: make(map[string]Extension),
		suffixes:   make(map[string]string),
		parsers:    make(map[string]Capability),
		formats:    NewFormats(logger),
	}
}

// Install registers an extension's suffixes, parsers and custom formats.
// Suffix and parser conflicts with previously installed extensions are errors;
// custom formats follow first-registration-wins and never fail.
func (r *Registry) Install(ext Extension) error {
	if err := ext.Validate(); err != nil {
		return fmt.Errorf("invalid extension: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.extensions[ext.Name]; exists {
		return fmt.Errorf("extension %s already installed", ext.Name)
	}
	for suffix, docType := range ext.Suffixes {
		if existing, ok := r.suffixes[suffix]; ok && existing != docType {
			return fmt.Errorf("suffix %s already registered for document type %s", suffix, existing)
		}
	}
	for _, c := range ext.Parsers {
		if _, ok := r.parsers[c.DocType]; ok {
			return fmt.Errorf("parser for document type %s already registered", c.DocType)
		}
	}

	for suffix, docType := range ext.Suffixes {
		r.suffixes[suffix] = docType
	}
	for _, c := range ext.Parsers {
		r.parsers[c.DocType] = c
	}
	for suffix, dec := range ext.Formats {
		r.formats.Register(suffix, dec)
	}
	r.extensions[ext.Name] = ext

	r.logger.Debug("Installed extension",
		slog.String("extension", ext.String()),
		logfields.Count(len(ext.Parsers)))
	return nil
}

// DocTypeFor returns the document type registered for path's suffix.
// The longest matching suffix wins so ".nb.json" can coexist with ".json".
func (r *Registry) DocTypeFor(path string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	suffix := r.matchSuffix(path)
	if suffix == "" {
		return "", false
	}
	return r.suffixes[suffix], true
}

// SuffixFor returns the registered suffix matching path, or "".
func (r *Registry) SuffixFor(path string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.matchSuffix(path)
}

// matchSuffix requires r.mu held. A bare suffix (a file named ".nblink") never matches.
func (r *Registry) matchSuffix(path string) string {
	base := filepath.Base(path)
	best := ""
	for suffix := range r.suffixes {
		if strings.HasSuffix(base, suffix) && len(suffix) > len(best) && len(base) > len(suffix) {
			best = suffix
		}
	}
	return best
}

// Parser returns the capability registered for docType.
func (r *Registry) Parser(docType string) (Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.parsers[docType]
	return c, ok
}

// Suffixes returns all registered source suffixes, sorted.
func (r *Registry) Suffixes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.suffixes))
	for s := range r.suffixes {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Extensions returns installed extensions sorted by name.
func (r *Registry) Extensions() []Extension {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Extension, 0, len(r.extensions))
	for _, e := range r.extensions {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ParallelSafe reports whether every installed extension allows concurrent parsing.
func (r *Registry) ParallelSafe() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.extensions {
		if !e.ParallelSafe {
			return false
		}
	}
	return true
}

// Formats returns the custom-format table.
func (r *Registry) Formats() *Formats {
	return r.formats
}
