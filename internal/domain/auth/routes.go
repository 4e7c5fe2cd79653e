package auth

import (
	"fmt"
	"sort"
	"strings"
)

// RouteRule tags a path prefix with the capability it requires.
// NoRedirect marks an explicit opt-out: matching requests pass through without judgment.
type RouteRule struct {
	Prefix     string
	Capability Capability
	NoRedirect bool
}

// RouteTable classifies request paths by longest matching prefix.
// The zero value matches nothing.
type RouteTable struct {
	rules []RouteRule
}

// NewRouteTable builds a table from rules. Later duplicates of a prefix replace earlier ones.
func NewRouteTable(rules ...RouteRule) (RouteTable, error) {
	byPrefix := make(map[string]RouteRule, len(rules))
	for _, r := range rules {
		if !strings.HasPrefix(r.Prefix, "/") {
			return RouteTable{}, fmt.Errorf("route prefix %q must start with /", r.Prefix)
		}
		byPrefix[r.Prefix] = r
	}

	out := make([]RouteRule, 0, len(byPrefix))
	for _, r := range byPrefix {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].Prefix) != len(out[j].Prefix) {
			return len(out[i].Prefix) > len(out[j].Prefix)
		}
		return out[i].Prefix < out[j].Prefix
	})
	return RouteTable{rules: out}, nil
}

// Match returns the most specific rule for path.
func (t RouteTable) Match(path string) (RouteRule, bool) {
	for _, r := range t.rules {
		if strings.HasPrefix(path, r.Prefix) {
			return r, true
		}
	}
	return RouteRule{}, false
}

// Rules returns the rules ordered most specific first.
func (t RouteTable) Rules() []RouteRule {
	return append([]RouteRule(nil), t.rules...)
}

// ParseRouteRules parses "prefix[=capability]" entries separated by ';' or ','.
// An entry without a capability requires only an authenticated session.
func ParseRouteRules(s string) ([]RouteRule, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == ',' })
	rules := make([]RouteRule, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		prefix, capability, _ := strings.Cut(f, "=")
		prefix = strings.TrimSpace(prefix)
		if !strings.HasPrefix(prefix, "/") {
			return nil, fmt.Errorf("invalid route %q: prefix must start with /", f)
		}
		rules = append(rules, RouteRule{
			Prefix:     prefix,
			Capability: Capability(strings.TrimSpace(capability)),
		})
	}
	return rules, nil
}
