package nblink

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/nblink/internal/registry"
)

type recordingRenderer struct {
	links     []Resolution
	notebooks []string
	err       error
}

func (r *recordingRenderer) Render(_ context.Context, _ Document, link Resolution, notebook string) error {
	r.links = append(r.links, link)
	r.notebooks = append(r.notebooks, notebook)
	return r.err
}

func TestParser_HandsNotebookTextToRenderer(t *testing.T) {
	docs := t.TempDir()
	descriptor := writeFile(t, docs, "links/foo.nblink", `{"path": "../nb/foo.ipynb"}`)
	writeFile(t, docs, "nb/foo.ipynb", notebookJSON)

	renderer := &recordingRenderer{}
	parser := NewParser(NewResolver(ResolverConfig{DocRoot: docs}), renderer)

	require.NoError(t, parser.Parse(context.Background(), newMemDocument("links/foo", descriptor), []byte(readFile(t, descriptor))))
	require.Equal(t, []string{notebookJSON}, renderer.notebooks)
	require.Equal(t, "nb/foo.ipynb", renderer.links[0].DocRelPath)
}

func TestParser_RendererErrorPropagates(t *testing.T) {
	docs := t.TempDir()
	descriptor := writeFile(t, docs, "a.nblink", `{"path": "a.ipynb"}`)
	writeFile(t, docs, "a.ipynb", notebookJSON)
	boom := errors.New("boom")

	parser := NewParser(NewResolver(ResolverConfig{DocRoot: docs}), &recordingRenderer{err: boom})
	err := parser.Parse(context.Background(), newMemDocument("a", descriptor), []byte(readFile(t, descriptor)))
	require.ErrorIs(t, err, boom)
}

func TestParser_DoesNotRenderOnDescriptorError(t *testing.T) {
	docs := t.TempDir()
	renderer := &recordingRenderer{}
	parser := NewParser(NewResolver(ResolverConfig{DocRoot: docs}), renderer)

	err := parser.Parse(context.Background(), newMemDocument("a", filepath.Join(docs, "a.nblink")), []byte(`[]`))
	var derr *DescriptorError
	require.ErrorAs(t, err, &derr)
	require.Empty(t, renderer.notebooks)
}

func TestExtension_InstallsIntoRegistry(t *testing.T) {
	docs := t.TempDir()
	descriptor := writeFile(t, docs, "links/foo.nblink", `{"path": "../nb.ipynb"}`)
	writeFile(t, docs, "nb.ipynb", notebookJSON)

	parser := NewParser(NewResolver(ResolverConfig{DocRoot: docs}), &recordingRenderer{})
	reg := registry.New(nil)
	require.NoError(t, reg.Install(Extension(parser, "v0.0.1", ExtensionOptions{CustomFormats: true})))

	docType, ok := reg.DocTypeFor(descriptor)
	require.True(t, ok)
	require.Equal(t, DocType, docType)
	require.True(t, reg.ParallelSafe())

	out, err := reg.Formats().Decode(descriptor, []byte(readFile(t, descriptor)))
	require.NoError(t, err)
	require.Equal(t, notebookJSON, string(out))
}

func TestExtension_CustomSuffixesWithoutFormats(t *testing.T) {
	parser := NewParser(NewResolver(ResolverConfig{DocRoot: t.TempDir()}), &recordingRenderer{})
	ext := Extension(parser, "v0.0.1", ExtensionOptions{Suffixes: []string{".nblink", ".nb.json"}})

	require.Equal(t, map[string]string{".nblink": DocType, ".nb.json": DocType}, ext.Suffixes)
	require.Empty(t, ext.Formats)
	require.NoError(t, ext.Validate())
}
