package auth

import (
	"context"
	"time"
)

type principalKey struct{}

// Principal is the requesting identity: a set of role names plus the
// timezone offset used to interpret date filters. The zero of everything is
// the anonymous principal with no roles and UTC.
type Principal struct {
	Name  string
	roles map[string]struct{}
	// offset east of UTC, in minutes
	tzOffsetMin int
}

// NewPrincipal builds a principal from a name, role list and timezone offset
// in minutes east of UTC.
func NewPrincipal(name string, roles []string, tzOffsetMin int) *Principal {
	p := &Principal{
		Name:        name,
		roles:       make(map[string]struct{}, len(roles)),
		tzOffsetMin: tzOffsetMin,
	}
	for _, r := range roles {
		p.roles[r] = struct{}{}
	}
	return p
}

// Anonymous returns the unauthenticated principal.
func Anonymous() *Principal {
	return NewPrincipal("", nil, 0)
}

// IsInRole reports role membership. Nil-safe: a nil principal holds no roles.
func (p *Principal) IsInRole(role string) bool {
	if p == nil {
		return false
	}
	_, ok := p.roles[role]
	return ok
}

// HasAnyRole reports whether the principal holds at least one of roles.
func (p *Principal) HasAnyRole(roles []string) bool {
	for _, r := range roles {
		if p.IsInRole(r) {
			return true
		}
	}
	return false
}

// Roles returns the principal's role names in unspecified order.
func (p *Principal) Roles() []string {
	if p == nil {
		return nil
	}
	out := make([]string, 0, len(p.roles))
	for r := range p.roles {
		out = append(out, r)
	}
	return out
}

// Location returns the principal's timezone as a fixed offset.
func (p *Principal) Location() *time.Location {
	if p == nil || p.tzOffsetMin == 0 {
		return time.UTC
	}
	return time.FixedZone("user", p.tzOffsetMin*60)
}

// TZOffsetMinutes returns the raw offset east of UTC.
func (p *Principal) TZOffsetMinutes() int {
	if p == nil {
		return 0
	}
	return p.tzOffsetMin
}

// FromClaims maps validated JWT claims to a principal. Roles come from the
// "roles" claim (string list), the timezone offset from "tz_offset" minutes.
func FromClaims(claims map[string]any) *Principal {
	name, _ := claims["sub"].(string)

	var roles []string
	switch raw := claims["roles"].(type) {
	case []any:
		for _, item := range raw {
			if s, ok := item.(string); ok {
				roles = append(roles, s)
			}
		}
	case []string:
		roles = raw
	case string:
		roles = []string{raw}
	}

	offset := 0
	if v, ok := claims["tz_offset"].(float64); ok {
		offset = int(v)
	}
	return NewPrincipal(name, roles, offset)
}

// WithPrincipal stores the principal on the context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the stored principal, or the anonymous one.
func PrincipalFromContext(ctx context.Context) *Principal {
	if p, ok := ctx.Value(principalKey{}).(*Principal); ok && p != nil {
		return p
	}
	return Anonymous()
}
