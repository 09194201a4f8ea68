package provider

// Capability is a role a provider can fill.
type Capability int

const (
	// CapabilityAny matches every provider.
	CapabilityAny Capability = iota
	CapabilityGit
	CapabilityCI
	CapabilitySite
)

// String returns the capability's short name.
func (c Capability) String() string {
	switch c {
	case CapabilityGit:
		return "git"
	case CapabilityCI:
		return "ci"
	case CapabilitySite:
		return "site"
	default:
		return "any"
	}
}

// ParseCapability converts a short name back to a Capability.
func ParseCapability(s string) (Capability, bool) {
	for _, c := range []Capability{CapabilityAny, CapabilityGit, CapabilityCI, CapabilitySite} {
		if c.String() == s {
			return c, true
		}
	}
	return CapabilityAny, false
}

// Implements reports whether p fills the role c.
func Implements(p Provider, c Capability) bool {
	switch c {
	case CapabilityAny:
		return p != nil
	case CapabilityGit:
		_, ok := p.(GitProvider)
		return ok
	case CapabilityCI:
		_, ok := p.(CIProvider)
		return ok
	case CapabilitySite:
		_, ok := p.(SiteProvider)
		return ok
	default:
		return false
	}
}
