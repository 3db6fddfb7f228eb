package build

import (
	"maps"
	"path/filepath"
	"slices"
	"sync"
)

// Env is the build environment of one document.
type Env struct {
	name    string
	source  string
	docType string

	mu       sync.Mutex
	deps     map[string]struct{}
	metadata map[string]any
	reread   bool
	outputs  int
	written  map[string]struct{}
}

// NewEnv creates the environment for the document name read from source.
func NewEnv(name, source, docType string) *Env {
	return &Env{
		name:     name,
		source:   source,
		docType:  docType,
		deps:     make(map[string]struct{}),
		metadata: make(map[string]any),
		written:  make(map[string]struct{}),
	}
}

func (e *Env) Name() string       { return e.name }
func (e *Env) SourcePath() string { return e.source }
func (e *Env) DocType() string    { return e.docType }

// NoteDependency records a doc-root-relative path the document depends on.
func (e *Env) NoteDependency(rel string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deps[filepath.ToSlash(rel)] = struct{}{}
}

func (e *Env) SetMetadata(key string, value any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.metadata[key] = value
}

// NoteReread marks the document to be processed again on the next build.
func (e *Env) NoteReread() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reread = true
}

// Dependencies returns the recorded dependencies, sorted.
func (e *Env) Dependencies() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Sorted(maps.Keys(e.deps))
}

// Metadata returns a copy of the recorded metadata.
func (e *Env) Metadata() map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return maps.Clone(e.metadata)
}

func (e *Env) Reread() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reread
}

// NoteOutput records a file the build of the document wrote.
func (e *Env) NoteOutput(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.written[path] = struct{}{}
}

// Outputs returns the written files, sorted.
func (e *Env) Outputs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Sorted(maps.Keys(e.written))
}

// nextOutput returns how many outputs were written for the document before.
func (e *Env) nextOutput() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := e.outputs
	e.outputs++
	return n
}
