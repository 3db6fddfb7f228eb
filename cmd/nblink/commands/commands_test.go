package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	nberrors "git.home.luguber.info/inful/nblink/internal/foundation/errors"
	"git.home.luguber.info/inful/nblink/internal/nblink"
)

const notebook = `{"cells": [], "metadata": {}, "nbformat": 4, "nbformat_minor": 5}`

type project struct {
	dir  string
	docs string
	cli  *CLI
	out  *bytes.Buffer
}

func newProject(t *testing.T) *project {
	t.Helper()
	dir := t.TempDir()
	docs := filepath.Join(dir, "docs")
	cfgPath := filepath.Join(dir, "nblink.yaml")
	cfg := "docs:\n  root: " + docs + "\nbuild:\n  output_dir: " + filepath.Join(dir, "_build") + "\n  workers: 1\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	return &project{dir: dir, docs: docs, cli: &CLI{Config: cfgPath}, out: &bytes.Buffer{}}
}

func (p *project) write(t *testing.T, rel, content string) string {
	t.Helper()
	path := filepath.Join(p.docs, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (p *project) global() *Global { return &Global{Out: p.out} }

func TestBuildCmd(t *testing.T) {
	p := newProject(t)
	p.write(t, "links/foo.nblink", `{"path": "../nb/foo.ipynb"}`)
	p.write(t, "nb/foo.ipynb", notebook)

	require.NoError(t, (&BuildCmd{}).Run(p.global(), p.cli))
	require.Contains(t, p.out.String(), "1 built")
	require.FileExists(t, filepath.Join(p.dir, "_build", "links", "foo.ipynb"))
	require.FileExists(t, filepath.Join(p.dir, "_build", ".nblink-state.db"))

	p.out.Reset()
	require.NoError(t, (&BuildCmd{}).Run(p.global(), p.cli))
	require.Contains(t, p.out.String(), "1 up to date")

	p.out.Reset()
	require.NoError(t, (&BuildCmd{Full: true}).Run(p.global(), p.cli))
	require.Contains(t, p.out.String(), "1 built")
}

func TestBuildCmd_FailureMapsToExitCategory(t *testing.T) {
	p := newProject(t)
	p.write(t, "bad.nblink", `{"path": "missing.ipynb"}`)

	err := (&BuildCmd{}).Run(p.global(), p.cli)
	require.Error(t, err)
	require.True(t, nberrors.HasCategory(err, nberrors.CategoryTarget))
	require.Equal(t, 11, nberrors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
	require.Contains(t, p.out.String(), "FAILED  bad")
}

func TestResolveCmd_PlansWithoutStaging(t *testing.T) {
	p := newProject(t)
	descriptor := p.write(t, "links/foo.nblink", `{"path": "../nb/foo.ipynb", "extra-media": "img.png"}`)
	p.write(t, "links/img.png", "png")
	p.write(t, "nb/foo.ipynb", notebook)

	require.NoError(t, (&ResolveCmd{Descriptor: descriptor}).Run(p.global(), p.cli))

	var out resolveOutput
	require.NoError(t, json.Unmarshal(p.out.Bytes(), &out))
	require.Equal(t, "links/foo", out.Document)
	require.Len(t, out.Links, 1)
	require.Equal(t, "nb/foo.ipynb", out.Links[0].DocRelPath)
	require.Len(t, out.Links[0].Media, 1)
	require.Equal(t, filepath.Join(p.docs, "nb", "img.png"), out.Links[0].Media[0].Destination)
	require.NoFileExists(t, filepath.Join(p.docs, "nb", "img.png"))
}

func TestResolveCmd_Stage(t *testing.T) {
	p := newProject(t)
	descriptor := p.write(t, "links/foo.nblink", `{"path": "../nb/foo.ipynb", "extra-media": "img.png"}`)
	p.write(t, "links/img.png", "png")
	p.write(t, "nb/foo.ipynb", notebook)

	require.NoError(t, (&ResolveCmd{Descriptor: descriptor, Stage: true}).Run(p.global(), p.cli))

	var out resolveOutput
	require.NoError(t, json.Unmarshal(p.out.Bytes(), &out))
	require.ElementsMatch(t, []string{"links/img.png", "nb/foo.ipynb"}, out.Dependencies)
	require.Equal(t, "nb/foo.ipynb", out.Metadata[nblink.MetadataTargetKey])
	require.FileExists(t, filepath.Join(p.docs, "nb", "img.png"))
}

func TestResolveCmd_DescriptorError(t *testing.T) {
	p := newProject(t)
	descriptor := p.write(t, "broken.nblink", `{"extra-media": []}`)

	err := (&ResolveCmd{Descriptor: descriptor}).Run(p.global(), p.cli)
	require.True(t, nberrors.HasCategory(err, nberrors.CategoryDescriptor))
	classified, ok := nberrors.AsClassified(err)
	require.True(t, ok)
	doc, _ := classified.Context().GetString("document")
	require.Equal(t, "broken", doc)
}

func TestCatCmd(t *testing.T) {
	p := newProject(t)
	descriptor := p.write(t, "links/foo.nblink", `{"path": "../nb/foo.ipynb"}`)
	p.write(t, "nb/foo.ipynb", notebook)

	require.NoError(t, (&CatCmd{Path: descriptor}).Run(p.global(), p.cli))
	require.Equal(t, notebook, p.out.String())
}

func TestInitCmd(t *testing.T) {
	dir := t.TempDir()
	cli := &CLI{Config: filepath.Join(dir, "nblink.yaml")}
	var out bytes.Buffer

	require.NoError(t, (&InitCmd{}).Run(&Global{Out: &out}, cli))
	require.FileExists(t, cli.Config)
	require.Contains(t, out.String(), "Wrote configuration")

	err := (&InitCmd{}).Run(&Global{Out: &out}, cli)
	require.True(t, nberrors.HasCategory(err, nberrors.CategoryConfig))
	require.NoError(t, (&InitCmd{Force: true}).Run(&Global{Out: &out}, cli))
}

func TestLoadConfig_Missing(t *testing.T) {
	cli := &CLI{Config: filepath.Join(t.TempDir(), "nope.yaml")}
	err := (&BuildCmd{}).Run(&Global{Out: &bytes.Buffer{}}, cli)
	require.Equal(t, 7, nberrors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
}

func TestWatchRoots_IncludeRecordedNotebookDirectories(t *testing.T) {
	p := newProject(t)
	p.write(t, "foo.nblink", `{"path": "../notebooks/foo.ipynb"}`)
	notebooks := filepath.Join(p.dir, "notebooks")
	require.NoError(t, os.MkdirAll(notebooks, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(notebooks, "foo.ipynb"), []byte(notebook), 0o644))
	require.NoError(t, (&BuildCmd{}).Run(p.global(), p.cli))

	cfg, err := p.cli.loadConfig()
	require.NoError(t, err)
	s, err := openSession(cfg, true)
	require.NoError(t, err)
	defer s.Close()

	roots := s.watchRoots(context.Background())
	require.Contains(t, roots, p.docs)
	require.Contains(t, roots, notebooks)
	require.True(t, underAny(filepath.Join(notebooks, "sub"), roots))
}
