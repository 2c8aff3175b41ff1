package meta

import "strings"

// EntityDescriptor is the static metadata for one entity type. Descriptors
// are built once at startup and shared read-only across all requests.
type EntityDescriptor struct {
	Name  string
	Table string

	// Properties in declaration order.
	Properties []*PropertyDescriptor

	PrimaryKey *PropertyDescriptor
	// ListText is the default human-readable label property, used as the
	// broadcast-search target when no property carries a search annotation.
	ListText *PropertyDescriptor

	Security EntitySecurity

	// Includes holds the named eager-load trees declared for this entity.
	// The "default" tree is synthesized by the linker when not declared.
	Includes map[string]IncludeTree

	byName map[string]*PropertyDescriptor
	byJSON map[string]*PropertyDescriptor
}

// EntitySecurity gates entity-level mutations by role. Empty slice = public.
type EntitySecurity struct {
	Create []string
	Edit   []string
	Delete []string
}

// SecurityInfo is the per-property role annotation set. An empty role list
// means the capability is unrestricted.
type SecurityInfo struct {
	Read   []string
	Create []string
	Edit   []string
}

// PropertyDescriptor describes one property of an entity.
type PropertyDescriptor struct {
	Name     string
	JSONName string
	Column   string
	Kind     Kind

	// InternalUse properties are never exposed, filtered, or searched.
	InternalUse bool
	// Unmapped properties have no store column and can never become a
	// store-level predicate.
	Unmapped bool

	Security SecurityInfo

	// SearchMethod is set when the property carries a search annotation:
	// "begins_with", "contains" or "equals". Annotated properties are
	// broadcast-search targets.
	SearchMethod string

	// Enum is non-nil for KindEnum.
	Enum *EnumTable

	// Ref is non-nil for KindObject and KindCollection.
	Ref *RelationRef

	// Accessors over wire-shaped rows, resolved once at link time.
	Get func(row map[string]any) any
	Set func(row map[string]any, v any)
}

// RelationRef links a navigation property to its related entity.
type RelationRef struct {
	Model string
	// FK is the foreign-key column: on the owning table for KindObject, on
	// the related table for KindCollection.
	FK string
	// PK is the key column the FK points at; defaults to the related (object)
	// or owning (collection) primary key column.
	PK string

	entity *EntityDescriptor
}

// Entity returns the linked related descriptor.
func (r *RelationRef) Entity() *EntityDescriptor { return r.entity }

// EnumTable maps an enum's integer codes to canonical names, in declaration
// order of the codes.
type EnumTable struct {
	Values []int
	names  map[int]string
	codes  map[string]int
}

// NewEnumTable builds a table from code -> name pairs.
func NewEnumTable(pairs map[int]string) *EnumTable {
	t := &EnumTable{
		names: make(map[int]string, len(pairs)),
		codes: make(map[string]int, len(pairs)),
	}
	for code, name := range pairs {
		t.Values = append(t.Values, code)
		t.names[code] = name
		t.codes[strings.ToLower(name)] = code
	}
	sortInts(t.Values)
	return t
}

// Name returns the canonical name for a code.
func (t *EnumTable) Name(code int) (string, bool) {
	n, ok := t.names[code]
	return n, ok
}

// Code resolves a case-insensitive name to its integer code.
func (t *EnumTable) Code(name string) (int, bool) {
	c, ok := t.codes[strings.ToLower(name)]
	return c, ok
}

func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// PropertyByName resolves a property by its declared name, case-insensitively.
func (e *EntityDescriptor) PropertyByName(name string) *PropertyDescriptor {
	return e.byName[strings.ToLower(name)]
}

// PropertyByJSON resolves a property by its wire name, case-insensitively.
func (e *EntityDescriptor) PropertyByJSON(name string) *PropertyDescriptor {
	return e.byJSON[strings.ToLower(name)]
}

// PropertyByColumn resolves a mapped property by its store column.
func (e *EntityDescriptor) PropertyByColumn(column string) *PropertyDescriptor {
	for _, p := range e.Properties {
		if !p.Unmapped && p.Column == column {
			return p
		}
	}
	return nil
}

// ValueProperties returns the mapped scalar properties in declaration order.
func (e *EntityDescriptor) ValueProperties() []*PropertyDescriptor {
	out := make([]*PropertyDescriptor, 0, len(e.Properties))
	for _, p := range e.Properties {
		if p.Kind.IsValue() && !p.Unmapped {
			out = append(out, p)
		}
	}
	return out
}

// SearchTargets returns the default broadcast-search properties: every
// annotated property, or the list-text property when nothing is annotated.
func (e *EntityDescriptor) SearchTargets() []*PropertyDescriptor {
	var out []*PropertyDescriptor
	for _, p := range e.Properties {
		if p.SearchMethod != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 && e.ListText != nil {
		out = append(out, e.ListText)
	}
	return out
}

func (e *EntityDescriptor) index() {
	e.byName = make(map[string]*PropertyDescriptor, len(e.Properties))
	e.byJSON = make(map[string]*PropertyDescriptor, len(e.Properties))
	for _, p := range e.Properties {
		e.byName[strings.ToLower(p.Name)] = p
		e.byJSON[strings.ToLower(p.JSONName)] = p
	}
}
