package urlform

import (
	"fmt"
	"strings"
)

// pathSegment is one step of a composite key. The reserved bare "[]" segment
// is represented by Index rather than a key string.
type pathSegment struct {
	Key   string
	Index bool // true for []
}

// parseKey splits a composite key such as "a[b][]" into its segments. Text
// before the first bracket is the root segment; every bracketed part after it
// is one nesting step. An unterminated bracket is an error.
func parseKey(key string) ([]pathSegment, error) {
	var path []pathSegment
	head, rest, bracketed := strings.Cut(key, "[")
	for {
		if head != "" {
			path = append(path, pathSegment{Key: head})
		}
		if !bracketed {
			return path, nil
		}

		var part string
		var closed bool
		part, rest, closed = strings.Cut(rest, "]")
		if !closed {
			return nil, fmt.Errorf("urlform: invalid key: missing ']'")
		}
		if part == "" {
			path = append(path, pathSegment{Index: true})
		} else {
			path = append(path, pathSegment{Key: part})
		}

		head, rest, bracketed = strings.Cut(rest, "[")
	}
}
