package selector

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// JSONMatcher matches JSON-encoded keys on the value at a gjson path.
type JSONMatcher struct {
	path string
	want string
}

// Matches implements Matcher. An empty want only requires the path to
// exist.
func (j *JSONMatcher) Matches(key any) bool {
	s, ok := text(key)
	if !ok || !gjson.Valid(s) {
		return false
	}
	res := gjson.Get(s, j.path)
	if !res.Exists() {
		return false
	}
	return j.want == "" || res.String() == j.want
}

// String describes the matcher.
func (j *JSONMatcher) String() string {
	if j.want == "" {
		return j.path
	}
	return j.path + "==" + j.want
}

// JSONField returns a pattern selector for JSON documents whose value at
// path equals want.
func JSONField(path, want string) (Selector, error) {
	if path == "" {
		return Selector{}, fmt.Errorf("%w: empty json path", ErrInvalidSelector)
	}
	m := &JSONMatcher{path: path, want: want}
	return New(m.String(), m)
}
