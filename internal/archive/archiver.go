// Package archive converts between directory trees and zip blobs.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/klauspost/compress/zip"

	"vsync/internal/vsync"
)

// Archiver builds deflate zip archives of a tree in memory.
type Archiver struct {
	walker vsync.Walker
	logger vsync.Logger
}

// NewArchiver creates an Archiver that enumerates files with walker.
func NewArchiver(walker vsync.Walker, logger vsync.Logger) *Archiver {
	if logger == nil {
		logger = vsync.NewNopLogger()
	}
	return &Archiver{walker: walker, logger: logger}
}

// Build archives every regular file under root that excl does not match.
// Entries are named by RelativePath; no directory entries are written.
// Nothing under root is modified.
func (a *Archiver) Build(root string, excl vsync.ExclusionSet, skip ...string) (vsync.ArchiveBlob, error) {
	abs, err := vsync.ResolveRoot(root)
	if err != nil {
		return nil, &vsync.ArchiveBuildError{Root: root, Err: err}
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	entries, skipped := 0, 0
	for rel, err := range a.walker.Walk(abs, skip...) {
		if err != nil {
			zw.Close()
			return nil, &vsync.ArchiveBuildError{Root: abs, Err: err}
		}
		if excl != nil && excl.Excludes(rel) {
			skipped++
			continue
		}

		ok, err := a.addFile(zw, rel, rel.OSPath(abs))
		if err != nil {
			zw.Close()
			return nil, &vsync.ArchiveBuildError{Root: abs, Err: err}
		}
		if ok {
			entries++
		}
	}

	if err := zw.Close(); err != nil {
		return nil, &vsync.ArchiveBuildError{Root: abs, Err: fmt.Errorf("finishing archive: %w", err)}
	}

	a.logger.Debug("archive built", "root", abs, "entries", entries, "excluded", skipped, "bytes", buf.Len())
	return buf.Bytes(), nil
}

// addFile copies one file into the archive. A file that disappeared since
// it was enumerated, or that cannot be opened, is skipped with a warning and
// reported as not added. Errors returned here leave the archive unusable.
func (a *Archiver) addFile(zw *zip.Writer, rel vsync.RelativePath, path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			a.logger.Warn("file vanished before archiving", "path", rel)
		} else {
			a.logger.Warn("skipping unreadable file", "path", rel, "error", err)
		}
		return false, nil
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		a.logger.Warn("skipping unreadable file", "path", rel, "error", err)
		return false, nil
	}

	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return false, fmt.Errorf("header for %s: %w", rel, err)
	}
	hdr.Name = string(rel)
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return false, fmt.Errorf("adding %s: %w", rel, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return false, fmt.Errorf("compressing %s: %w", rel, err)
	}
	return true, nil
}

var _ vsync.Archiver = (*Archiver)(nil)
