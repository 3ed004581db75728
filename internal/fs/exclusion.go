package fs

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"vsync/internal/vsync"
)

// ExcludeFileName is the per-vault exclusion file, read from the vault root.
const ExcludeFileName = ".vsyncignore"

// DefaultExcludePatterns cover the artifacts vsync itself leaves around a
// vault. They are always applied regardless of config or .vsyncignore.
var DefaultExcludePatterns = []string{"*.vsync.zip", ".vsync-tmp-*", "vsync-staging-*"}

// exclusionPattern is a parsed pattern with its matching strategy.
type exclusionPattern struct {
	pattern   string
	matchPath bool // true = match the path or an ancestor; false = match any component
}

// ExclusionSet decides which paths are never archived and never deleted.
//
// Patterns without '/' match against every component of the path, so a
// directory name excludes its whole subtree. Patterns with '/' match the
// full relative path or any of its ancestor directories. A trailing '/' is
// ignored. Malformed globs never match.
type ExclusionSet struct {
	patterns []exclusionPattern
}

// NewExclusionSet creates an ExclusionSet from raw pattern strings plus the
// defaults. Blank lines and lines starting with '#' are skipped.
func NewExclusionSet(rawPatterns ...string) *ExclusionSet {
	var patterns []exclusionPattern
	for _, raw := range append(append([]string{}, DefaultExcludePatterns...), rawPatterns...) {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		raw = strings.Trim(raw, "/")
		if raw == "" {
			continue
		}
		patterns = append(patterns, exclusionPattern{
			pattern:   raw,
			matchPath: strings.Contains(raw, "/"),
		})
	}
	return &ExclusionSet{patterns: patterns}
}

// LoadExclusionSet builds the set for a vault: configured patterns plus the
// contents of root/.vsyncignore if it exists.
func LoadExclusionSet(root string, configured []string) (*ExclusionSet, error) {
	fromFile, err := ParseExcludeFile(filepath.Join(root, ExcludeFileName))
	if err != nil {
		return nil, err
	}
	return NewExclusionSet(append(append([]string{}, configured...), fromFile...)...), nil
}

// Excludes reports whether p is excluded.
func (e *ExclusionSet) Excludes(p vsync.RelativePath) bool {
	s := string(p)
	if s == "" || len(e.patterns) == 0 {
		return false
	}

	components := strings.Split(s, "/")
	for _, pat := range e.patterns {
		if pat.matchPath {
			if matchPathOrAncestor(pat.pattern, s) {
				return true
			}
			continue
		}
		for _, c := range components {
			if ok, err := path.Match(pat.pattern, c); err == nil && ok {
				return true
			}
		}
	}
	return false
}

// Len returns the number of active patterns, defaults included.
func (e *ExclusionSet) Len() int { return len(e.patterns) }

func matchPathOrAncestor(pattern, p string) bool {
	for {
		if ok, err := path.Match(pattern, p); err != nil {
			return false
		} else if ok {
			return true
		}
		i := strings.LastIndex(p, "/")
		if i < 0 {
			return false
		}
		p = p[:i]
	}
}

// ParseExcludeFile reads an exclusion file and returns the raw pattern strings.
// Returns nil and no error if the file does not exist.
func ParseExcludeFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening exclude file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading exclude file: %w", err)
	}
	return patterns, nil
}

var _ vsync.ExclusionSet = (*ExclusionSet)(nil)
