package datasource

import (
	"github.com/adamskt/Coalesce/internal/auth"
	"github.com/adamskt/Coalesce/internal/meta"
	"github.com/adamskt/Coalesce/internal/security"
)

// ProjectVisible trims wire-shaped rows, in place, down to the fields the
// principal may read: internal-use and role-restricted properties disappear
// entirely, as do navigations outside the include tree and keys that match
// no declared property. Related rows are trimmed against their own entity's
// descriptor, recursively along the tree.
func ProjectVisible(e *meta.EntityDescriptor, tree meta.IncludeTree, pr *auth.Principal, items []map[string]any) {
	for _, item := range items {
		projectRow(e, tree, pr, item)
	}
}

func projectRow(e *meta.EntityDescriptor, tree meta.IncludeTree, pr *auth.Principal, row map[string]any) {
	for key, val := range row {
		p := e.PropertyByJSON(key)
		if p == nil || !security.IsReadable(p, pr) {
			delete(row, key)
			continue
		}
		if p.Ref == nil {
			continue
		}
		sub := tree.Child(p.JSONName)
		if sub == nil {
			delete(row, key)
			continue
		}
		switch nested := val.(type) {
		case map[string]any:
			projectRow(p.Ref.Entity(), sub, pr, nested)
		case []map[string]any:
			ProjectVisible(p.Ref.Entity(), sub, pr, nested)
		}
	}
}
