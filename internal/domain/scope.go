package domain

import "fmt"

// Capability is a single authorization grant carried inside a credential.
type Capability string

const (
	CapabilityUser    Capability = "user"
	CapabilityAdmin   Capability = "admin"
	CapabilityService Capability = "service"
)

// ParseCapability validates a wire-level capability tag.
func ParseCapability(s string) (Capability, error) {
	switch Capability(s) {
	case CapabilityUser, CapabilityAdmin, CapabilityService:
		return Capability(s), nil
	default:
		return "", fmt.Errorf("unknown capability %q", s)
	}
}

// Scope is the set of capabilities granted to a principal.
type Scope []Capability

// DefaultScope is assigned to self-registered principals.
func DefaultScope() Scope {
	return Scope{CapabilityUser}
}

// Has reports whether the scope grants the given capability.
func (s Scope) Has(c Capability) bool {
	for _, have := range s {
		if have == c {
			return true
		}
	}
	return false
}

// Strings converts the scope to its wire representation.
func (s Scope) Strings() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = string(c)
	}
	return out
}

// ParseScope converts wire-level tags into a Scope, rejecting unknown tags.
func ParseScope(tags []string) (Scope, error) {
	scope := make(Scope, 0, len(tags))
	for _, tag := range tags {
		c, err := ParseCapability(tag)
		if err != nil {
			return nil, err
		}
		scope = append(scope, c)
	}
	return scope, nil
}
