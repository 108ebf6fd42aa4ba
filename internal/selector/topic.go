package selector

import (
	"fmt"
	"strings"
)

// Wildcard segments understood by topic selectors.
const (
	// WildcardSingle matches exactly one segment.
	WildcardSingle = "*"

	// WildcardMulti matches zero or more segments.
	WildcardMulti = "**"

	// Separator is the character used to separate topic segments.
	Separator = "."
)

// TopicMatcher matches dot-separated keys against a pattern such as
// "buffer.*" or "plugin.**.activated".
type TopicMatcher struct {
	pattern  string
	segments []string
}

// Matches implements Matcher.
func (t *TopicMatcher) Matches(key any) bool {
	s, ok := text(key)
	if !ok || s == "" {
		return false
	}
	return matchSegments(strings.Split(s, Separator), t.segments)
}

// String returns the topic pattern.
func (t *TopicMatcher) String() string {
	return t.pattern
}

// Topic returns a pattern selector over hierarchical dot-notation keys.
func Topic(pattern string) (Selector, error) {
	if !validTopic(pattern) {
		return Selector{}, fmt.Errorf("%w: malformed topic %q", ErrInvalidSelector, pattern)
	}
	return New(pattern, &TopicMatcher{
		pattern:  pattern,
		segments: strings.Split(pattern, Separator),
	})
}

// validTopic rejects empty topics and empty segments.
func validTopic(s string) bool {
	if s == "" {
		return false
	}
	for _, seg := range strings.Split(s, Separator) {
		if seg == "" {
			return false
		}
	}
	return true
}

// matchSegments performs recursive pattern matching on topic segments.
func matchSegments(topic, pattern []string) bool {
	ti, pi := 0, 0

	for pi < len(pattern) {
		if pattern[pi] == WildcardMulti {
			for ti <= len(topic) {
				if matchSegments(topic[ti:], pattern[pi+1:]) {
					return true
				}
				ti++
			}
			return false
		}

		if ti >= len(topic) {
			return false
		}

		if pattern[pi] != WildcardSingle && pattern[pi] != topic[ti] {
			return false
		}
		ti++
		pi++
	}

	// Pattern consumed - topic must also be consumed
	return ti == len(topic)
}
