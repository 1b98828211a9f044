// Package docstore is a hierarchical document store abstraction: documents
// live at slash-separated paths (collection/doc/collection/doc...), can be
// written individually or in atomic batches, and can be watched live.
package docstore

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/famtree/internal/common"
)

// Join builds a path from segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

func split(path string) []string {
	return strings.Split(path, "/")
}

// ValidateDocument reports whether path addresses a document, i.e. has an
// even, non-zero number of non-empty segments.
func ValidateDocument(path string) error {
	segs := split(path)
	if len(segs)%2 != 0 || !nonEmpty(segs) {
		return fmt.Errorf("%w: bad document path %q", common.ErrInvalidArgument, path)
	}
	return nil
}

// ValidateCollection reports whether path addresses a collection.
func ValidateCollection(path string) error {
	segs := split(path)
	if len(segs)%2 != 1 || !nonEmpty(segs) {
		return fmt.Errorf("%w: bad collection path %q", common.ErrInvalidArgument, path)
	}
	return nil
}

func nonEmpty(segs []string) bool {
	for _, s := range segs {
		if s == "" {
			return false
		}
	}
	return true
}

// Parent returns the collection containing the document at path.
func Parent(path string) string {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return ""
	}
	return path[:i]
}

// Base returns the last segment of path, the document id.
func Base(path string) string {
	return path[strings.LastIndex(path, "/")+1:]
}
