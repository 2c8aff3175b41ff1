package meta

import "strings"

// IncludeTree is a recursively nested set of navigation wire-names to
// eager-load. The zero-length tree loads nothing.
type IncludeTree map[string]IncludeTree

// DefaultTreeName is the key under which the linker stores the tree used when
// a request names no tree (or an unrecognized one).
const DefaultTreeName = "default"

// includesNone is the reserved directive that disables eager loading.
const includesNone = "none"

// IsEmpty reports whether the tree loads anything at all.
func (t IncludeTree) IsEmpty() bool { return len(t) == 0 }

// Child returns the subtree for a navigation wire-name, nil when absent.
func (t IncludeTree) Child(name string) IncludeTree {
	if sub, ok := t[name]; ok {
		if sub == nil {
			return IncludeTree{}
		}
		return sub
	}
	return nil
}

// ResolveIncludeTree maps an includes directive to a concrete tree:
// "none" (any case) loads nothing; a declared tree name selects that tree;
// anything else, including the empty string, selects the default tree.
func (e *EntityDescriptor) ResolveIncludeTree(directive string) IncludeTree {
	if strings.EqualFold(strings.TrimSpace(directive), includesNone) {
		return IncludeTree{}
	}
	if t, ok := e.Includes[directive]; ok {
		return t
	}
	return e.Includes[DefaultTreeName]
}

// defaultIncludeTree loads every direct object reference one hop deep, and
// every collection together with its own direct object references.
func (e *EntityDescriptor) defaultIncludeTree() IncludeTree {
	tree := IncludeTree{}
	for _, p := range e.Properties {
		switch p.Kind {
		case KindObject:
			tree[p.JSONName] = IncludeTree{}
		case KindCollection:
			sub := IncludeTree{}
			if rel := p.Ref.Entity(); rel != nil {
				for _, rp := range rel.Properties {
					if rp.Kind == KindObject {
						sub[rp.JSONName] = IncludeTree{}
					}
				}
			}
			tree[p.JSONName] = sub
		}
	}
	return tree
}
