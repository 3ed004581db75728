package vsync

// StagingArea is a temporary directory holding an extracted snapshot while
// it is reconciled into the local tree. It belongs to exactly one pull and
// is never part of the local tree.
type StagingArea interface {
	// Path returns the absolute path of the staging directory.
	Path() string

	// Close removes the staging directory and everything in it.
	// Calling Close more than once is safe.
	Close() error
}

// StagingProvider creates fresh, empty staging areas.
type StagingProvider interface {
	Create() (StagingArea, error)
}
