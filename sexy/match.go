package sexy

import (
	"fmt"
	"strings"
)

// MatchError reports where a pattern and a datum first diverge.
type MatchError struct {
	Path    []string
	Message string
}

func (e *MatchError) Error() string {
	if len(e.Path) == 0 {
		return e.Message
	}
	return strings.Join(e.Path, "") + ": " + e.Message
}

// Match checks actual against pattern. An ellipsis inside a list matches
// zero or more items and an ellipsis on its own matches any datum. A map
// pattern only constrains the keys it names.
func Match(pattern, actual *Node) error {
	return match(pattern, actual, nil)
}

func mismatch(path []string, format string, args ...any) error {
	return &MatchError{Path: append([]string(nil), path...), Message: fmt.Sprintf(format, args...)}
}

func match(pattern, actual *Node, path []string) error {
	if pattern.Type == NodeEllipsis {
		return nil
	}
	if actual == nil {
		return mismatch(path, "expected %s but got nothing", pattern)
	}
	if pattern.Type != actual.Type {
		return mismatch(path, "expected %s %s but got %s %s", pattern.Type, pattern, actual.Type, actual)
	}
	switch pattern.Type {
	case NodeList:
		return matchItems(pattern.Items, actual.Items, path, 0)
	case NodeMap:
		for i, key := range pattern.Keys {
			value, ok := actual.Get(key)
			if !ok {
				return mismatch(path, "missing key %s", key)
			}
			if err := match(pattern.Items[i], value, append(path, "."+key)); err != nil {
				return err
			}
		}
		return nil
	}
	if pattern.Text != actual.Text {
		return mismatch(path, "expected %s but got %s", pattern, actual)
	}
	return nil
}

// matchItems matches a list's items. offset is the index of items[0] in the
// enclosing list and only feeds the error path.
func matchItems(patterns, items []*Node, path []string, offset int) error {
	for i, p := range patterns {
		if p.Type == NodeEllipsis {
			rest := patterns[i+1:]
			if len(rest) == 0 {
				return nil
			}
			var firstErr error
			for skip := i; skip <= len(items); skip++ {
				err := matchItems(rest, items[skip:], path, offset+skip)
				if err == nil {
					return nil
				}
				if firstErr == nil {
					firstErr = err
				}
			}
			return firstErr
		}
		if i >= len(items) {
			return mismatch(path, "expected %s at index %d but the list ended", p, offset+i)
		}
		if err := match(p, items[i], append(path, fmt.Sprintf("[%d]", offset+i))); err != nil {
			return err
		}
	}
	if len(items) > len(patterns) {
		return mismatch(path, "unexpected %s at index %d", items[len(patterns)], offset+len(patterns))
	}
	return nil
}
