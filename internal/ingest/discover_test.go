package ingest

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func paths(rs []FileResult) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, filepath.Base(r.Path))
	}
	sort.Strings(out)
	return out
}

func TestDiscover_WalksAndFilters(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "a.pdf"), "one")
	write(t, filepath.Join(dir, "sub", "b.JPG"), "two")
	write(t, filepath.Join(dir, "sub", "notes.txt"), "skip")
	write(t, filepath.Join(dir, ".cache", "c.png"), "hidden")
	write(t, filepath.Join(dir, ".d.pdf"), "hidden")

	got, stats, err := Discover([]string{dir}, Options{SkipHidden: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf", "b.JPG"}, paths(got))
	assert.EqualValues(t, 2, stats.Matched)
	assert.Zero(t, stats.Failed)

	got, _, err = Discover([]string{dir}, Options{})
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestDiscover_Dedupe(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "x.pdf"), "same")
	write(t, filepath.Join(dir, "copy", "x.pdf"), "same")
	write(t, filepath.Join(dir, "y.pdf"), "other")

	got, stats, err := Discover([]string{dir}, Options{Dedupe: true})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.EqualValues(t, 1, stats.Deduplicated)
	assert.Len(t, got[0].HashHex, 64)
}

func TestDiscover_PlainFilesAndErrors(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "scan.pdf")
	txt := filepath.Join(dir, "readme.txt")
	write(t, pdf, "12345")
	write(t, txt, "x")

	got, stats, err := Discover([]string{pdf, txt, filepath.Join(dir, "missing.pdf"), "  "}, Options{})
	assert.Error(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, pdf, got[0].Path)
	assert.EqualValues(t, 5, got[0].Size)
	assert.EqualValues(t, 2, stats.Failed)
}

func TestAllowedExtAndHidden(t *testing.T) {
	assert.True(t, AllowedExt(".PDF"))
	assert.True(t, AllowedExt("jpeg"))
	assert.False(t, AllowedExt(".docx"))
	assert.True(t, IsHidden("/tmp/.git"))
	assert.False(t, IsHidden("/tmp/.git/file.pdf"))
}
