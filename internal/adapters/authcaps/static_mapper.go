// Package authcaps derives gateway capabilities from CAS principals.
package authcaps

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strconv"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	domainauth "github.com/target/casgate/internal/domain/auth"
	"github.com/target/casgate/internal/ports"
)

// Config lists the static membership rules and optional JMESPath rules.
type Config struct {
	// StaffAttribute names a CAS attribute whose truthy value grants staff.
	StaffAttribute string
	// StaffGroups grants staff to members of any listed group.
	StaffGroups []string
	// StaffUsers grants staff to the listed user names.
	StaffUsers []string
	// SuperuserGroups grants superuser (and staff) to members of any listed group.
	SuperuserGroups []string
	// Rules maps a capability to a JMESPath expression evaluated against
	// {"user": ..., "attributes": {...}, "memberOf": [...]}.
	Rules map[domainauth.Capability]string

	Logger *slog.Logger
}

type rule struct {
	capability domainauth.Capability
	expr       jmespath.JMESPath
}

// StaticCapabilityMapper maps principals to capabilities using Config.
type StaticCapabilityMapper struct {
	staffAttribute  string
	staffGroups     []string
	staffUsers      []string
	superuserGroups []string
	rules           []rule
	logger          *slog.Logger
}

var _ ports.CapabilityMapper = (*StaticCapabilityMapper)(nil)

// NewStaticCapabilityMapper validates every rule expression up front.
func NewStaticCapabilityMapper(cfg Config) (*StaticCapabilityMapper, error) {
	m := &StaticCapabilityMapper{
		staffAttribute:  strings.TrimSpace(cfg.StaffAttribute),
		staffGroups:     compact(cfg.StaffGroups),
		staffUsers:      compact(cfg.StaffUsers),
		superuserGroups: compact(cfg.SuperuserGroups),
		logger:          cfg.Logger,
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}

	for capability, expr := range cfg.Rules {
		expr = strings.TrimSpace(expr)
		if capability == "" || expr == "" {
			continue
		}
		compiled, err := jmespath.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("capability rule %q: %w", capability, err)
		}
		m.rules = append(m.rules, rule{capability: capability, expr: compiled})
	}
	sort.Slice(m.rules, func(i, j int) bool { return m.rules[i].capability < m.rules[j].capability })
	return m, nil
}

// Capabilities returns the sorted, de-duplicated capabilities granted to p.
func (m *StaticCapabilityMapper) Capabilities(p domainauth.Principal) []domainauth.Capability {
	granted := make(map[domainauth.Capability]struct{})

	if m.isSuperuser(p) {
		granted[domainauth.CapabilitySuperuser] = struct{}{}
		granted[domainauth.CapabilityStaff] = struct{}{}
	}
	if m.isStaff(p) {
		granted[domainauth.CapabilityStaff] = struct{}{}
	}

	if len(m.rules) > 0 {
		doc := principalDocument(p)
		for _, r := range m.rules {
			if _, ok := granted[r.capability]; ok {
				continue
			}
			out, err := r.expr.Search(doc)
			if err != nil {
				m.logger.Warn("capability rule evaluation failed",
					"capability", string(r.capability), "user", p.User, "error", err)
				continue
			}
			if truthy(out) {
				granted[r.capability] = struct{}{}
			}
		}
	}

	if len(granted) == 0 {
		return nil
	}
	caps := make([]domainauth.Capability, 0, len(granted))
	for c := range granted {
		caps = append(caps, c)
	}
	slices.Sort(caps)
	return caps
}

func (m *StaticCapabilityMapper) isStaff(p domainauth.Principal) bool {
	if m.staffAttribute != "" {
		for _, v := range p.Attributes[m.staffAttribute] {
			if truthyString(v) {
				return true
			}
		}
	}
	if slices.Contains(m.staffUsers, p.User) {
		return true
	}
	return intersects(m.staffGroups, p.MemberOf)
}

func (m *StaticCapabilityMapper) isSuperuser(p domainauth.Principal) bool {
	return intersects(m.superuserGroups, p.MemberOf)
}

// principalDocument converts p to plain JSON-shaped values for JMESPath.
func principalDocument(p domainauth.Principal) map[string]any {
	attrs := make(map[string]any, len(p.Attributes))
	for k, vals := range p.Attributes {
		list := make([]any, len(vals))
		for i, v := range vals {
			list[i] = v
		}
		attrs[k] = list
	}
	groups := make([]any, len(p.MemberOf))
	for i, g := range p.MemberOf {
		groups[i] = g
	}
	return map[string]any{
		"user":       p.User,
		"attributes": attrs,
		"memberOf":   groups,
	}
}

// truthy follows JMESPath truthiness: false, null, and empty strings, arrays
// and objects are false; everything else is true.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

func truthyString(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "yes" || s == "y" {
		return true
	}
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

func intersects(want, have []string) bool {
	for _, g := range have {
		if slices.Contains(want, g) {
			return true
		}
	}
	return false
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
