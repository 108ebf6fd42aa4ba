package selector

import (
	"fmt"
	"regexp"

	"github.com/tidwall/match"
)

// text extracts the string form of keys that text-based matchers accept.
func text(key any) (string, bool) {
	switch k := key.(type) {
	case string:
		return k, true
	case []byte:
		return string(k), true
	case fmt.Stringer:
		return k.String(), true
	default:
		return "", false
	}
}

// GlobMatcher matches text keys against a glob where '*' spans any run
// of characters and '?' exactly one.
type GlobMatcher struct {
	pattern string
}

// Matches implements Matcher.
func (g *GlobMatcher) Matches(key any) bool {
	s, ok := text(key)
	return ok && match.Match(s, g.pattern)
}

// String returns the glob source.
func (g *GlobMatcher) String() string {
	return g.pattern
}

// Glob returns a pattern selector for a glob such as "a*" or "user.?".
func Glob(pattern string) (Selector, error) {
	if pattern == "" {
		return Selector{}, fmt.Errorf("%w: empty glob", ErrInvalidSelector)
	}
	return New(pattern, &GlobMatcher{pattern: pattern})
}

// RegexMatcher matches text keys against a regular expression.
type RegexMatcher struct {
	re *regexp.Regexp
}

// Matches implements Matcher.
func (r *RegexMatcher) Matches(key any) bool {
	s, ok := text(key)
	return ok && r.re.MatchString(s)
}

// Groups returns the submatches of key, or nil when it does not match.
func (r *RegexMatcher) Groups(key any) []string {
	s, ok := text(key)
	if !ok {
		return nil
	}
	return r.re.FindStringSubmatch(s)
}

// Regex returns a pattern selector for expr. The expression is not
// implicitly anchored.
func Regex(expr string) (Selector, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return Selector{}, fmt.Errorf("%w: %w", ErrInvalidSelector, err)
	}
	return New(expr, &RegexMatcher{re: re})
}

// R is shorthand for Regex that panics on a bad expression.
func R(expr string) Selector {
	s, err := Regex(expr)
	if err != nil {
		panic(err)
	}
	return s
}
