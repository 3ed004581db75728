// Package reconcile applies a computed diff to a local tree.
package reconcile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"vsync/internal/fs"
	"vsync/internal/vsync"
)

// DefaultWorkers bounds concurrent path operations when none is configured.
const DefaultWorkers = 8

// Reconciler makes a local tree match a staging area by deleting and
// overwriting files. Deletions all finish before the first write starts.
type Reconciler struct {
	logger  vsync.Logger
	workers int
}

// NewReconciler creates a Reconciler running up to workers path operations at once.
func NewReconciler(logger vsync.Logger, workers int) *Reconciler {
	if logger == nil {
		logger = vsync.NewNopLogger()
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Reconciler{logger: logger, workers: workers}
}

// Apply deletes diff.ToDelete from localRoot, prunes the directories those
// deletions leave empty, then copies every diff.ToWrite file from
// stagingRoot over localRoot. Failures on individual paths are logged and
// collected in the report; only the loss of localRoot itself is returned as
// a *vsync.ReconcileError. A cancelled ctx stops scheduling new paths.
func (r *Reconciler) Apply(ctx context.Context, diff *vsync.DiffResult, localRoot, stagingRoot string) (*vsync.ReconcileReport, error) {
	if err := checkRoot(localRoot); err != nil {
		return nil, err
	}

	a := &apply{
		logger:      r.logger,
		localRoot:   filepath.Clean(localRoot),
		stagingRoot: filepath.Clean(stagingRoot),
		report:      &vsync.ReconcileReport{},
	}

	if err := r.batch(ctx, diff.ToDelete.Sorted(), a.delete); err != nil {
		return nil, err
	}
	if err := r.batch(ctx, diff.ToWrite.Sorted(), a.write); err != nil {
		return nil, err
	}

	if err := checkRoot(localRoot); err != nil {
		return nil, err
	}

	r.logger.Debug("diff applied", "root", localRoot,
		"deleted", a.report.Deleted, "written", a.report.Written,
		"pruned", a.report.Pruned, "failures", len(a.report.Failures))
	return a.report, nil
}

// batch runs op for every path on the worker pool and waits for all of them.
func (r *Reconciler) batch(ctx context.Context, paths []vsync.RelativePath, op func(vsync.RelativePath)) error {
	var g errgroup.Group
	g.SetLimit(r.workers)
	for _, p := range paths {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() == nil {
				op(p)
			}
			return nil
		})
	}
	g.Wait()
	return ctx.Err()
}

func checkRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return &vsync.ReconcileError{Root: root, Err: err}
	}
	if !info.IsDir() {
		return &vsync.ReconcileError{Root: root, Err: fmt.Errorf("not a directory")}
	}
	return nil
}

// apply is the shared state of one Apply call.
type apply struct {
	logger      vsync.Logger
	localRoot   string
	stagingRoot string

	mu     sync.Mutex
	report *vsync.ReconcileReport
}

func (a *apply) delete(p vsync.RelativePath) {
	path := p.OSPath(a.localRoot)
	if err := fs.RemoveFile(path); err != nil {
		a.fail(p, "delete", err)
		return
	}
	pruned := fs.PruneEmptyParents(a.localRoot, filepath.Dir(path))

	a.mu.Lock()
	a.report.Deleted++
	a.report.Pruned += pruned
	a.mu.Unlock()
}

func (a *apply) write(p vsync.RelativePath) {
	dest := p.OSPath(a.localRoot)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		a.fail(p, "write", fmt.Errorf("creating parent directory: %w", err))
		return
	}
	if err := fs.CopyFileAtomic(p.OSPath(a.stagingRoot), dest, 0644); err != nil {
		a.fail(p, "write", err)
		return
	}

	a.mu.Lock()
	a.report.Written++
	a.mu.Unlock()
}

func (a *apply) fail(p vsync.RelativePath, op string, err error) {
	a.logger.Warn("reconcile failed for path", "op", op, "path", p, "error", err)

	a.mu.Lock()
	a.report.Failures = append(a.report.Failures, vsync.PathFailure{Path: p, Op: op, Err: err})
	a.mu.Unlock()
}

var _ vsync.Reconciler = (*Reconciler)(nil)
