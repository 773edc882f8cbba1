package archive

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedArchiver(at time.Time) *Archiver {
	a := New(nil)
	a.now = func() time.Time { return at }
	return a
}

func readArchive(t *testing.T, path string) map[string]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(zr)
	out := map[string]string{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(tr)
		require.NoError(t, err)
		out[hdr.Name] = string(data)
	}
	return out
}

func TestName(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	assert.Equal(t, "sims_20240309-140507_upto_42.tar.gz", Name(at, 42))
}

func TestArchiveBundlesAndRemovesFiles(t *testing.T) {
	src := filepath.Join(t.TempDir(), "runs")
	dst := filepath.Join(t.TempDir(), "archives")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sim_000001.json"), []byte(`{"a":1}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sim_000002.json"), []byte(`{"b":2}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, ".sim_000003.json.tmp"), []byte("partial"), 0o644))

	at := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	summary, err := fixedArchiver(at).Archive(dst, src, 2)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dst, "sims_20240309-140507_upto_2.tar.gz"), summary.Path)
	assert.Equal(t, 2, summary.Files)
	assert.Equal(t, int64(14), summary.Bytes)
	assert.Positive(t, summary.Compressed)

	contents := readArchive(t, summary.Path)
	assert.Equal(t, map[string]string{
		"runs/sim_000001.json": `{"a":1}`,
		"runs/sim_000002.json": `{"b":2}`,
	}, contents)

	entries, err := os.ReadDir(src)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"nested", ".sim_000003.json.tmp"}, names)
}

func TestArchiveEmptyDirIsNoop(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "archives")

	summary, err := New(nil).Archive(dst, src, 0)
	require.NoError(t, err)
	assert.Equal(t, Summary{}, summary)
	_, err = os.Stat(dst)
	assert.True(t, os.IsNotExist(err))
}

func TestArchiveRefusesToOverwrite(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, os.WriteFile(filepath.Join(dst, Name(at, 5)), []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sim_000005.json"), []byte("{}"), 0o644))

	_, err := fixedArchiver(at).Archive(dst, src, 5)
	require.Error(t, err)
	_, err = os.Stat(filepath.Join(src, "sim_000005.json"))
	require.NoError(t, err)
}

func TestArchiveMissingSource(t *testing.T) {
	_, err := New(nil).Archive(t.TempDir(), filepath.Join(t.TempDir(), "missing"), 0)
	require.Error(t, err)
}
