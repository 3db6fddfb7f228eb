package nblink

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// memDocument is an in-memory build environment for a single document.
type memDocument struct {
	mu      sync.Mutex
	name    string
	source  string
	deps    []string
	outputs []string
	meta    map[string]any
	reread  bool
}

func newMemDocument(name, source string) *memDocument {
	return &memDocument{name: name, source: source, meta: map[string]any{}}
}

func (d *memDocument) Name() string       { return d.name }
func (d *memDocument) SourcePath() string { return d.source }
func (d *memDocument) NoteReread()        { d.reread = true }

func (d *memDocument) NoteDependency(rel string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deps = append(d.deps, rel)
}

func (d *memDocument) NoteOutput(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.outputs = append(d.outputs, path)
}

func (d *memDocument) SetMetadata(key string, value any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.meta[key] = value
}

// writeFile creates path (and parents) below root with content.
func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}
