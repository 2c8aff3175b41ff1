// Package security decides, per property and principal, which capabilities
// apply. All functions are pure; an unauthorized field is simply reported as
// not filterable/searchable/readable, never as an error, so callers skip it
// without revealing that the field exists.
package security

import (
	"github.com/adamskt/Coalesce/internal/auth"
	"github.com/adamskt/Coalesce/internal/meta"
)

// IsReadable reports whether the principal may see the property's value.
func IsReadable(p *meta.PropertyDescriptor, pr *auth.Principal) bool {
	if p.InternalUse {
		return false
	}
	if len(p.Security.Read) == 0 {
		return true
	}
	return pr.HasAnyRole(p.Security.Read)
}

// IsFilterable reports whether the property may participate in a store-level
// filter predicate for this principal. Unmapped properties never can: they
// would force row-by-row evaluation in the application.
func IsFilterable(p *meta.PropertyDescriptor, pr *auth.Principal) bool {
	if p.Unmapped || !p.Kind.IsValue() {
		return false
	}
	return IsReadable(p, pr)
}

// IsSearchable reports whether the property may be a search target for this
// principal. Gates are identical to IsFilterable.
func IsSearchable(p *meta.PropertyDescriptor, pr *auth.Principal) bool {
	return IsFilterable(p, pr)
}

// IsCreateAllowed reports whether the principal may create entities of this
// type.
func IsCreateAllowed(e *meta.EntityDescriptor, pr *auth.Principal) bool {
	if len(e.Security.Create) == 0 {
		return true
	}
	return pr.HasAnyRole(e.Security.Create)
}

// IsEditAllowed reports whether the principal may edit entities of this type.
func IsEditAllowed(e *meta.EntityDescriptor, pr *auth.Principal) bool {
	if len(e.Security.Edit) == 0 {
		return true
	}
	return pr.HasAnyRole(e.Security.Edit)
}

// IsDeleteAllowed reports whether the principal may delete entities of this
// type.
func IsDeleteAllowed(e *meta.EntityDescriptor, pr *auth.Principal) bool {
	if len(e.Security.Delete) == 0 {
		return true
	}
	return pr.HasAnyRole(e.Security.Delete)
}
