package testutil

import (
	"fmt"
	"html"
	"sort"
	"strings"
)

// CASSuccessBuilder builds a CAS 2.0/3.0 authenticationSuccess document.
type CASSuccessBuilder struct {
	user     string
	memberOf []string
	attrs    map[string][]string
}

// CASSuccess starts a success response for user.
func CASSuccess(user string) *CASSuccessBuilder {
	return &CASSuccessBuilder{user: user, attrs: make(map[string][]string)}
}

// WithGroups adds memberOf values.
func (b *CASSuccessBuilder) WithGroups(groups ...string) *CASSuccessBuilder {
	b.memberOf = append(b.memberOf, groups...)
	return b
}

// WithAttribute adds one or more values for name.
func (b *CASSuccessBuilder) WithAttribute(name string, values ...string) *CASSuccessBuilder {
	b.attrs[name] = append(b.attrs[name], values...)
	return b
}

// XML renders the serviceResponse body.
func (b *CASSuccessBuilder) XML() string {
	var sb strings.Builder
	sb.WriteString(`<cas:serviceResponse xmlns:cas="http://www.yale.edu/tp/cas">`)
	sb.WriteString("<cas:authenticationSuccess>")
	fmt.Fprintf(&sb, "<cas:user>%s</cas:user>", html.EscapeString(b.user))
	if len(b.memberOf) > 0 || len(b.attrs) > 0 {
		sb.WriteString("<cas:attributes>")
		for _, g := range b.memberOf {
			fmt.Fprintf(&sb, "<cas:memberOf>%s</cas:memberOf>", html.EscapeString(g))
		}
		names := make([]string, 0, len(b.attrs))
		for name := range b.attrs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			for _, v := range b.attrs[name] {
				fmt.Fprintf(&sb, "<cas:%s>%s</cas:%s>", name, html.EscapeString(v), name)
			}
		}
		sb.WriteString("</cas:attributes>")
	}
	sb.WriteString("</cas:authenticationSuccess></cas:serviceResponse>")
	return sb.String()
}

// CASFailure renders an authenticationFailure document with the given code.
func CASFailure(code, message string) string {
	return fmt.Sprintf(
		`<cas:serviceResponse xmlns:cas="http://www.yale.edu/tp/cas">`+
			`<cas:authenticationFailure code="%s">%s</cas:authenticationFailure>`+
			`</cas:serviceResponse>`,
		html.EscapeString(code), html.EscapeString(message))
}
