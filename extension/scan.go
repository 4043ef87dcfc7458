package extension

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-multierror"
)

// ScanError reports a path the walk could not read.
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Path, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// Scan walks root at most depth levels deep and returns the files matching any of patterns,
// sorted lexicographically. A pattern without a slash matches the base name; a pattern with a
// slash matches the slash-separated path relative to root.
//
// Unreadable entries are skipped and reported through the returned error together with
// whatever was found.
func Scan(root string, depth int, patterns []string) ([]string, error) {
	var (
		found []string
		errs  *multierror.Error
	)
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			errs = multierror.Append(errs, &ScanError{Path: path, Err: err})
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			errs = multierror.Append(errs, &ScanError{Path: path, Err: err})
			return nil
		}
		level := levelOf(rel)
		if d.IsDir() {
			if level >= depth {
				return fs.SkipDir
			}
			return nil
		}
		if level > depth {
			return nil
		}
		if Match(patterns, rel) {
			found = append(found, path)
		}
		return nil
	})
	if walkErr != nil && !errors.Is(walkErr, fs.SkipDir) {
		errs = multierror.Append(errs, &ScanError{Path: root, Err: walkErr})
	}
	sort.Strings(found)
	return found, errs.ErrorOrNil()
}

// Match reports whether the root-relative path rel matches any pattern.
func Match(patterns []string, rel string) bool {
	slashed := filepath.ToSlash(rel)
	base := filepath.Base(rel)
	for _, p := range patterns {
		subject := base
		if strings.Contains(p, "/") {
			subject = slashed
		}
		if ok, err := doublestar.Match(p, subject); err == nil && ok {
			return true
		}
	}
	return false
}

// ValidatePatterns rejects malformed glob patterns.
func ValidatePatterns(patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid extension pattern %q", p)
		}
	}
	return nil
}

func levelOf(rel string) int {
	if rel == "." {
		return 0
	}
	return strings.Count(filepath.ToSlash(rel), "/") + 1
}
