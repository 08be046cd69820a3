// Package authz turns a request path into target labels and decides whether
// a resolved identity may trigger builds for those targets.
package authz

import "strings"

// triggerSegment is the path marker; everything after it names targets.
const triggerSegment = "trigger"

// ParseTargets extracts the ordered target labels from a request path.
// The path is lower-cased, stripped of surrounding slashes, and split; all
// non-empty segments after the first "trigger" segment are returned in
// order, duplicates included. A path without the marker, or with nothing
// after it, yields no targets. Pure and stateless.
func ParseTargets(path string) []string {
	trimmed := strings.Trim(strings.ToLower(path), "/")
	segments := strings.Split(trimmed, "/")

	marker := -1
	for i, seg := range segments {
		if seg == triggerSegment {
			marker = i
			break
		}
	}
	if marker < 0 || marker == len(segments)-1 {
		return nil
	}

	var targets []string
	for _, seg := range segments[marker+1:] {
		if seg != "" {
			targets = append(targets, seg)
		}
	}
	return targets
}
