package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"golang.org/x/sync/errgroup"

	"vsync/internal/vsync"
)

// DefaultWorkers bounds concurrent entry writes when none is configured.
const DefaultWorkers = 8

// Extractor unpacks zip blobs into a directory.
type Extractor struct {
	logger  vsync.Logger
	workers int
}

// NewExtractor creates an Extractor writing up to workers entries at once.
func NewExtractor(logger vsync.Logger, workers int) *Extractor {
	if logger == nil {
		logger = vsync.NewNopLogger()
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Extractor{logger: logger, workers: workers}
}

// Extract writes every entry of blob to dir/<name>, creating parent
// directories first. Entry names that are absolute, contain "..", or have
// empty elements are rejected before any file is written, as are file
// entries sharing a name. On failure the entries already written stay in dir.
func (x *Extractor) Extract(ctx context.Context, blob vsync.ArchiveBlob, dir string) error {
	// A reader returned alongside an insecure-path error is still usable;
	// entry names are validated below.
	zr, err := zip.NewReader(bytes.NewReader(blob), int64(len(blob)))
	if zr == nil {
		return &vsync.ExtractError{Err: fmt.Errorf("reading archive: %w", err)}
	}

	var files []*zip.File
	seen := make(map[string]bool, len(zr.File))
	for _, f := range zr.File {
		name := strings.TrimSuffix(f.Name, "/")
		if !fs.ValidPath(name) || name == "." || strings.Contains(f.Name, `\`) {
			return &vsync.ExtractError{Entry: f.Name, Err: fmt.Errorf("unsafe entry name")}
		}
		if strings.HasSuffix(f.Name, "/") || f.FileInfo().IsDir() {
			if err := os.MkdirAll(filepath.Join(dir, filepath.FromSlash(name)), 0755); err != nil {
				return &vsync.ExtractError{Entry: f.Name, Err: err}
			}
			continue
		}
		if seen[name] {
			return &vsync.ExtractError{Entry: f.Name, Err: fmt.Errorf("duplicate entry name")}
		}
		seen[name] = true
		files = append(files, f)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(x.workers)
	for _, f := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := writeEntry(f, dir); err != nil {
				return &vsync.ExtractError{Entry: f.Name, Err: err}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	x.logger.Debug("archive extracted", "dir", dir, "entries", len(files))
	return nil
}

func writeEntry(f *zip.File, dir string) error {
	dest := filepath.Join(dir, filepath.FromSlash(f.Name))
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("opening entry: %w", err)
	}
	defer rc.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("writing file: %w", err)
	}
	return out.Close()
}

var _ vsync.Extractor = (*Extractor)(nil)
