// Package archive bundles finished per-run artifacts into compressed tarballs
// so a long sweep does not leave thousands of small files behind.
package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
)

const timeLayout = "20060102-150405"

// Name is the archive file name for artifacts up to and including index.
func Name(at time.Time, index int) string {
	return fmt.Sprintf("sims_%s_upto_%d.tar.gz", at.UTC().Format(timeLayout), index)
}

// Summary describes one archive pass.
type Summary struct {
	Path       string
	Files      int
	Bytes      int64
	Compressed int64
}

type Archiver struct {
	log *zap.Logger
	now func() time.Time
}

func New(log *zap.Logger) *Archiver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Archiver{log: log, now: time.Now}
}

// Archive writes every regular, non-hidden file of srcDir into a gzipped tar
// under dstDir and removes the originals once the archive is on disk. An
// empty srcDir produces no archive and a zero Summary.
func (a *Archiver) Archive(dstDir, srcDir string, index int) (Summary, error) {
	files, err := regularFiles(srcDir)
	if err != nil {
		return Summary{}, err
	}
	if len(files) == 0 {
		return Summary{}, nil
	}
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return Summary{}, fmt.Errorf("create archive dir: %w", err)
	}

	path := filepath.Join(dstDir, Name(a.now(), index))
	if _, err := os.Stat(path); err == nil {
		return Summary{}, fmt.Errorf("archive %s already exists", path)
	}
	tmp := path + ".tmp"
	summary, err := writeArchive(tmp, srcDir, files)
	if err != nil {
		_ = os.Remove(tmp)
		return Summary{}, err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return Summary{}, fmt.Errorf("rename %s: %w", path, err)
	}
	summary.Path = path

	for _, name := range files {
		if err := os.Remove(filepath.Join(srcDir, name)); err != nil {
			return summary, fmt.Errorf("remove archived %s: %w", name, err)
		}
	}
	a.log.Info("artifacts archived",
		zap.String("archive", path),
		zap.String("files", humanize.Comma(int64(summary.Files))),
		zap.String("size", humanize.Bytes(uint64(summary.Bytes))),
		zap.String("compressed", humanize.Bytes(uint64(summary.Compressed))),
	)
	return summary, nil
}

func regularFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

func writeArchive(path, srcDir string, files []string) (Summary, error) {
	out, err := os.Create(path)
	if err != nil {
		return Summary{}, fmt.Errorf("create %s: %w", path, err)
	}
	defer out.Close()

	zw := gzip.NewWriter(out)
	tw := tar.NewWriter(zw)
	prefix := filepath.Base(srcDir)
	summary := Summary{Files: len(files)}
	for _, name := range files {
		n, err := addFile(tw, filepath.Join(srcDir, name), prefix+"/"+name)
		if err != nil {
			return Summary{}, err
		}
		summary.Bytes += n
	}
	if err := tw.Close(); err != nil {
		return Summary{}, fmt.Errorf("close tar: %w", err)
	}
	if err := zw.Close(); err != nil {
		return Summary{}, fmt.Errorf("close gzip: %w", err)
	}
	if err := out.Sync(); err != nil {
		return Summary{}, fmt.Errorf("sync %s: %w", path, err)
	}
	info, err := out.Stat()
	if err != nil {
		return Summary{}, fmt.Errorf("stat %s: %w", path, err)
	}
	summary.Compressed = info.Size()
	return summary, nil
}

func addFile(tw *tar.Writer, path, name string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return 0, fmt.Errorf("tar header %s: %w", path, err)
	}
	hdr.Name = name
	if err := tw.WriteHeader(hdr); err != nil {
		return 0, fmt.Errorf("write header %s: %w", name, err)
	}
	n, err := io.Copy(tw, f)
	if err != nil {
		return 0, fmt.Errorf("write %s: %w", name, err)
	}
	return n, nil
}
