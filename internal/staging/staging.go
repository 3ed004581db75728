// Package staging provides the temporary directories a pull extracts into.
package staging

import (
	"fmt"
	"os"
	"sync"

	"vsync/internal/vsync"
)

// area is one staging directory. It is removed on Close.
type area struct {
	path string

	mu     sync.Mutex
	closed bool
}

var _ vsync.StagingArea = (*area)(nil)

func (a *area) Path() string { return a.path }

// Close removes the directory and everything below it. Only the first call
// does any work.
func (a *area) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	if err := os.RemoveAll(a.path); err != nil {
		return fmt.Errorf("removing staging area %s: %w", a.path, err)
	}
	return nil
}
