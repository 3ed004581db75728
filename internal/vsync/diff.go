package vsync

// Diff classifies every path of two snapshots.
//
// Every staged path is written, whether or not a local copy exists and
// whatever its bytes are. Local paths missing from staged are deleted unless
// excl matches them. A nil excl excludes nothing.
func Diff(local, staged TreeSnapshot, excl ExclusionSet) *DiffResult {
	toWrite := make(TreeSnapshot, len(staged))
	for p := range staged {
		toWrite.Add(p)
	}

	toDelete := make(TreeSnapshot)
	for p := range local {
		if staged.Contains(p) {
			continue
		}
		if excl != nil && excl.Excludes(p) {
			continue
		}
		toDelete.Add(p)
	}

	return &DiffResult{ToDelete: toDelete, ToWrite: toWrite}
}
