package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/nblink/internal/nblink"
)

// NotebookWriter is the renderer of the build: it writes the linked notebook
// text unchanged to <output>/<docname>.ipynb. Further notebooks of the same
// descriptor go to <docname>-<n>.ipynb.
type NotebookWriter struct {
	outputDir string
}

func NewNotebookWriter(outputDir string) *NotebookWriter {
	return &NotebookWriter{outputDir: outputDir}
}

type outputCounter interface {
	nextOutput() int
}

// OutputPath returns where the n-th notebook of docName is written.
func (w *NotebookWriter) OutputPath(docName string, n int) string {
	name := docName
	if n > 0 {
		name = fmt.Sprintf("%s-%d", docName, n)
	}
	return filepath.Join(w.outputDir, filepath.FromSlash(name)+".ipynb")
}

func (w *NotebookWriter) Render(ctx context.Context, doc nblink.Document, _ nblink.Resolution, notebook string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n := 0
	if c, ok := doc.(outputCounter); ok {
		n = c.nextOutput()
	}
	path := w.OutputPath(doc.Name(), n)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(notebook), 0o644); err != nil {
		return fmt.Errorf("write notebook: %w", err)
	}
	if r, ok := doc.(nblink.OutputRecorder); ok {
		r.NoteOutput(path)
	}
	return nil
}
