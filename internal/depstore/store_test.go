package depstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_PutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	rec := Record{
		DocName:      "links/foo",
		SourcePath:   "/docs/links/foo.nblink",
		SourceHash:   "abc",
		Status:       StatusOK,
		Reread:       true,
		BuildID:      "b1",
		Dependencies: map[string]string{"nb/foo.ipynb": "h1", "nb/img.png": "h2"},
		Outputs:      []string{"/out/links/foo.ipynb", "/docs/nb/img.png"},
		Metadata:     map[string]any{"nblink-target": "nb/foo.ipynb"},
	}
	require.NoError(t, s.Put(ctx, rec))

	got, found, err := s.Get(ctx, "links/foo")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, rec.SourceHash, got.SourceHash)
	require.True(t, got.Reread)
	require.Equal(t, rec.Dependencies, got.Dependencies)
	require.Equal(t, []string{"/docs/nb/img.png", "/out/links/foo.ipynb"}, got.Outputs)
	require.Equal(t, rec.Metadata, got.Metadata)

	dependents, err := s.Dependents(ctx, "nb/img.png")
	require.NoError(t, err)
	require.Equal(t, []string{"links/foo"}, dependents)
}

func TestStore_PutReplacesDependencies(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	require.NoError(t, s.Put(ctx, Record{DocName: "a", Status: StatusOK, Dependencies: map[string]string{"x": "1"}}))
	require.NoError(t, s.Put(ctx, Record{DocName: "a", Status: StatusOK, Dependencies: map[string]string{"y": "2"}}))

	got, _, err := s.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"y": "2"}, got.Dependencies)
}

func TestStore_GetMissingAndDelete(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	_, found, err := s.Get(ctx, "nope")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, s.Put(ctx, Record{DocName: "a", Status: StatusOK}))
	require.NoError(t, s.Put(ctx, Record{DocName: "b", Status: StatusOK}))
	names, err := s.DocNames(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, names)

	require.NoError(t, s.Delete(ctx, "a"))
	_, found, err = s.Get(ctx, "a")
	require.NoError(t, err)
	require.False(t, found)
}

func TestStore_PersistsToFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "deps.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, Record{DocName: "a", Status: StatusOK, SourceHash: "h"}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, found, err := s.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "h", got.SourceHash)
}

func TestHashBytesMatchesHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))
	fromFile, err := HashFile(path)
	require.NoError(t, err)
	require.Equal(t, HashBytes([]byte("content")), fromFile)
}
