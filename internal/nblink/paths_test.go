package nblink

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolvePaths_NotebookOutsideDocsTree(t *testing.T) {
	root := t.TempDir()
	descriptor := filepath.Join(root, "docs", "links", "foo.nblink")

	res, err := ResolvePaths(Link{Path: "../../notebooks/foo.ipynb"}, descriptor, filepath.Join(root, "docs"), "")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "notebooks", "foo.ipynb"), res.AbsPath)
	require.Equal(t, "../notebooks/foo.ipynb", res.DocRelPath)
	require.Equal(t, "../notebooks/foo.ipynb", res.TargetRelPath)
	require.Equal(t, "../../notebooks/foo.ipynb", res.DeclaredPath)
}

func TestResolvePaths_NormalizesDotSegments(t *testing.T) {
	root := t.TempDir()
	descriptor := filepath.Join(root, "docs", "links", "foo.nblink")

	res, err := ResolvePaths(Link{Path: "./../notebooks/./sub/../foo.ipynb"}, descriptor, filepath.Join(root, "docs"), root)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "docs", "notebooks", "foo.ipynb"), res.AbsPath)
	require.Equal(t, "notebooks/foo.ipynb", res.DocRelPath)
	require.Equal(t, "docs/notebooks/foo.ipynb", res.TargetRelPath)
}

func TestResolvePaths_AbsoluteDeclaredPath(t *testing.T) {
	root := t.TempDir()
	nb := filepath.Join(root, "elsewhere", "nb.ipynb")

	res, err := ResolvePaths(Link{Path: nb}, filepath.Join(root, "docs", "a.nblink"), filepath.Join(root, "docs"), "")
	require.NoError(t, err)
	require.Equal(t, nb, res.AbsPath)
	require.Equal(t, "../elsewhere/nb.ipynb", res.DocRelPath)
}

func TestResolvePaths_RelativeFormsUseForwardSlashes(t *testing.T) {
	root := t.TempDir()
	descriptor := filepath.Join(root, "docs", "a", "b", "c.nblink")

	res, err := ResolvePaths(Link{Path: "x/y/z.ipynb"}, descriptor, filepath.Join(root, "docs"), filepath.Join(root, "docs", "a"))
	require.NoError(t, err)
	require.Equal(t, "a/b/x/y/z.ipynb", res.DocRelPath)
	require.Equal(t, "b/x/y/z.ipynb", res.TargetRelPath)
	for _, p := range []string{res.DocRelPath, res.TargetRelPath} {
		require.False(t, strings.ContainsRune(p, '\\'), p)
	}
}

func TestResolvePaths_EmptyPath(t *testing.T) {
	_, err := ResolvePaths(Link{}, "docs/a.nblink", "docs", "")
	require.Error(t, err)
}

func TestIsWithin(t *testing.T) {
	base := filepath.Join(string(filepath.Separator), "a", "b")
	require.True(t, isWithin(filepath.Join(base, "c"), base))
	require.False(t, isWithin(base, base))
	require.False(t, isWithin(filepath.Join(string(filepath.Separator), "a"), base))
	require.False(t, isWithin(filepath.Join(string(filepath.Separator), "a", "b..c"), base))
}
