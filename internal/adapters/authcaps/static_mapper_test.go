package authcaps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/casgate/internal/domain/auth"
)

func TestStaticCapabilityMapper_StaticRules(t *testing.T) {
	m, err := NewStaticCapabilityMapper(Config{
		StaffAttribute:  "is_staff",
		StaffGroups:     []string{"staff", " "},
		StaffUsers:      []string{"root"},
		SuperuserGroups: []string{"admins"},
	})
	require.NoError(t, err)

	tests := []struct {
		name string
		p    domainauth.Principal
		want []domainauth.Capability
	}{
		{
			name: "no grants",
			p:    domainauth.Principal{User: "bob", MemberOf: []string{"users"}},
			want: nil,
		},
		{
			name: "truthy attribute",
			p:    domainauth.Principal{User: "bob", Attributes: map[string][]string{"is_staff": {"True"}}},
			want: []domainauth.Capability{domainauth.CapabilityStaff},
		},
		{
			name: "falsy attribute",
			p:    domainauth.Principal{User: "bob", Attributes: map[string][]string{"is_staff": {"false"}}},
			want: nil,
		},
		{
			name: "yes attribute",
			p:    domainauth.Principal{User: "bob", Attributes: map[string][]string{"is_staff": {"yes"}}},
			want: []domainauth.Capability{domainauth.CapabilityStaff},
		},
		{
			name: "group membership",
			p:    domainauth.Principal{User: "bob", MemberOf: []string{"users", "staff"}},
			want: []domainauth.Capability{domainauth.CapabilityStaff},
		},
		{
			name: "listed user",
			p:    domainauth.Principal{User: "root"},
			want: []domainauth.Capability{domainauth.CapabilityStaff},
		},
		{
			name: "superuser implies staff",
			p:    domainauth.Principal{User: "carol", MemberOf: []string{"admins"}},
			want: []domainauth.Capability{domainauth.CapabilityStaff, domainauth.CapabilitySuperuser},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Capabilities(tt.p))
		})
	}
}

func TestStaticCapabilityMapper_JMESPathRules(t *testing.T) {
	m, err := NewStaticCapabilityMapper(Config{
		Rules: map[domainauth.Capability]string{
			domainauth.CapabilityStaff: "contains(memberOf, 'ops')",
			"reports":                  "attributes.department[0] == 'finance'",
			"flagged":                  "attributes.flag[0] == '1'",
		},
	})
	require.NoError(t, err)

	caps := m.Capabilities(domainauth.Principal{
		User:       "dana",
		MemberOf:   []string{"ops"},
		Attributes: map[string][]string{"department": {"finance"}, "flag": {"1"}},
	})
	assert.Equal(t, []domainauth.Capability{"flagged", "reports", domainauth.CapabilityStaff}, caps)

	caps = m.Capabilities(domainauth.Principal{User: "erin", Attributes: map[string][]string{"flag": {"0"}}})
	assert.Empty(t, caps)
}

func TestStaticCapabilityMapper_JMESPathTruthiness(t *testing.T) {
	m, err := NewStaticCapabilityMapper(Config{
		Rules: map[domainauth.Capability]string{
			"team":    "attributes.team",
			"named":   "user",
			"grouped": "memberOf",
		},
	})
	require.NoError(t, err)

	caps := m.Capabilities(domainauth.Principal{
		User:       "dana",
		MemberOf:   []string{"eng"},
		Attributes: map[string][]string{"team": {"eng"}},
	})
	assert.Equal(t, []domainauth.Capability{"grouped", "named", "team"}, caps)

	caps = m.Capabilities(domainauth.Principal{Attributes: map[string][]string{"team": {}}})
	assert.Empty(t, caps)
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		in   any
		want bool
	}{
		{nil, false},
		{false, false},
		{true, true},
		{"", false},
		{"eng", true},
		{"false", true},
		{[]any{}, false},
		{[]any{"eng"}, true},
		{map[string]any{}, false},
		{map[string]any{"a": 1.0}, true},
		{0.0, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, truthy(tt.in), "truthy(%#v)", tt.in)
	}
}

func TestNewStaticCapabilityMapper_InvalidRule(t *testing.T) {
	_, err := NewStaticCapabilityMapper(Config{
		Rules: map[domainauth.Capability]string{domainauth.CapabilityStaff: "contains(memberOf,"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "staff")
}
