package selector

import (
	"fmt"
	"regexp"
	"strings"
)

// URITemplate matches path-like keys against a template such as
// "/users/{id}/orders/{order}". Each {name} spans one path segment; a
// trailing "/**" accepts any remainder.
type URITemplate struct {
	template string
	names    []string
	re       *regexp.Regexp
}

var templateVar = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// NewURITemplate compiles template.
func NewURITemplate(template string) (*URITemplate, error) {
	if template == "" {
		return nil, fmt.Errorf("%w: empty uri template", ErrInvalidSelector)
	}

	body, rest := template, ""
	if strings.HasSuffix(body, "/**") {
		body, rest = strings.TrimSuffix(body, "/**"), "(?:/.*)?"
	}

	var (
		b     strings.Builder
		names []string
		last  int
	)
	b.WriteString("^")
	for _, loc := range templateVar.FindAllStringSubmatchIndex(body, -1) {
		b.WriteString(regexp.QuoteMeta(body[last:loc[0]]))
		name := body[loc[2]:loc[3]]
		for _, n := range names {
			if n == name {
				return nil, fmt.Errorf("%w: duplicate variable %q in %q", ErrInvalidSelector, name, template)
			}
		}
		names = append(names, name)
		b.WriteString("([^/]+)")
		last = loc[1]
	}
	b.WriteString(regexp.QuoteMeta(body[last:]))
	b.WriteString(rest)
	b.WriteString("$")

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSelector, err)
	}
	return &URITemplate{template: template, names: names, re: re}, nil
}

// Matches implements Matcher.
func (u *URITemplate) Matches(key any) bool {
	s, ok := text(key)
	return ok && u.re.MatchString(s)
}

// Params resolves the template variables in key. It returns nil when key
// does not match.
func (u *URITemplate) Params(key any) map[string]string {
	s, ok := text(key)
	if !ok {
		return nil
	}
	m := u.re.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	params := make(map[string]string, len(u.names))
	for i, name := range u.names {
		params[name] = m[i+1]
	}
	return params
}

// String returns the template source.
func (u *URITemplate) String() string {
	return u.template
}

// URI returns a pattern selector for a URI template.
func URI(template string) (Selector, error) {
	u, err := NewURITemplate(template)
	if err != nil {
		return Selector{}, err
	}
	return New(template, u)
}

// U is shorthand for URI that panics on a bad template.
func U(template string) Selector {
	s, err := URI(template)
	if err != nil {
		panic(err)
	}
	return s
}

// ParamsOf returns the template variables bound by s for key, or nil when
// s is not a URI template selector.
func ParamsOf(s Selector, key any) map[string]string {
	u, ok := s.matcher.(*URITemplate)
	if !ok {
		return nil
	}
	return u.Params(key)
}
