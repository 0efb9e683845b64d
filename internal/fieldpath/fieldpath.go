// Package fieldpath reads and writes dotted field paths such as
// "address.city" inside nested documents.
package fieldpath

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotAnObject is returned when a path walks through a non-map value.
var ErrNotAnObject = errors.New("path walks through a value that is not an object")

// Split splits path on dots. An empty path yields no segments.
func Split(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// Get returns the value at path and whether it was present.
func Get(doc map[string]any, path string) (any, bool) {
	segs := Split(path)
	if len(segs) == 0 {
		return nil, false
	}
	cur := doc
	for i, seg := range segs {
		v, ok := cur[seg]
		if !ok {
			return nil, false
		}
		if i == len(segs)-1 {
			return v, true
		}
		next, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return nil, false
}

// Set stores value at path, creating intermediate objects as needed.
func Set(doc map[string]any, path string, value any) error {
	segs := Split(path)
	if len(segs) == 0 {
		return fmt.Errorf("empty field path")
	}
	cur := doc
	for i, seg := range segs[:len(segs)-1] {
		v, ok := cur[seg]
		if !ok || v == nil {
			next := map[string]any{}
			cur[seg] = next
			cur = next
			continue
		}
		next, ok := v.(map[string]any)
		if !ok {
			return fmt.Errorf("%s: %w", strings.Join(segs[:i+1], "."), ErrNotAnObject)
		}
		cur = next
	}
	cur[segs[len(segs)-1]] = value
	return nil
}

// Unset removes the value at path. Missing paths are not an error.
func Unset(doc map[string]any, path string) {
	segs := Split(path)
	if len(segs) == 0 {
		return
	}
	cur := doc
	for _, seg := range segs[:len(segs)-1] {
		next, ok := cur[seg].(map[string]any)
		if !ok {
			return
		}
		cur = next
	}
	delete(cur, segs[len(segs)-1])
}
