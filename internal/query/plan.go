// Package query turns descriptors and include trees into deferred SQL
// queries. Nothing here touches the store: a Query accumulates predicates,
// sort and paging intent, and only the caller materializes it.
package query

import (
	"fmt"
	"strings"

	"github.com/adamskt/Coalesce/internal/meta"
)

// Join is one eager-load join derived from an include tree.
type Join struct {
	Table string `json:"table"`
	Alias string `json:"alias"`
	On    string `json:"on"`
	// Path is the wire path of the navigation ("assignedTo",
	// "caseProducts.product").
	Path string `json:"path"`
	// Entity is the related descriptor's registry name.
	Entity string `json:"entity"`
	// PKKey is the wire path of the joined entity's primary key; a null
	// value there after scanning means the navigation is absent.
	PKKey string `json:"pk_key"`
}

// Column is one select-list entry together with the wire path its scanned
// value lands under.
type Column struct {
	Expr string `json:"expr"`
	Key  string `json:"key"`
}

// Plan is the compiled shape of a select: which joins to attach and which
// columns to read. Plans depend only on (entity, include tree), so they are
// cacheable across requests.
type Plan struct {
	Joins   []Join   `json:"joins"`
	Columns []Column `json:"columns"`
}

// BuildPlan compiles an include tree over an entity into joins and columns.
// Collection navigations are not joined; they are loaded per-parent after
// the main query (see datasource tail loading) and only contribute their
// owning key to the select list.
func BuildPlan(e *meta.EntityDescriptor, tree meta.IncludeTree) (*Plan, error) {
	p := &Plan{}
	n := 0
	if err := p.walk(e, tree, "", "main", &n); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Plan) walk(e *meta.EntityDescriptor, tree meta.IncludeTree, pathPrefix, alias string, n *int) error {
	for _, prop := range e.ValueProperties() {
		p.addColumn(alias+"."+prop.Column, joinPath(pathPrefix, prop.JSONName))
	}

	for _, prop := range e.Properties {
		if prop.Ref == nil {
			continue
		}
		sub := tree.Child(prop.JSONName)
		if sub == nil {
			continue
		}
		related := prop.Ref.Entity()
		if related == nil {
			return fmt.Errorf("navigation %s of %s is not linked", prop.Name, e.Name)
		}
		navPath := joinPath(pathPrefix, prop.JSONName)

		switch prop.Kind {
		case meta.KindObject:
			*n++
			next := fmt.Sprintf("t%d", *n)
			p.Joins = append(p.Joins, Join{
				Table:  related.Table,
				Alias:  next,
				On:     fmt.Sprintf("%s.%s = %s.%s", alias, prop.Ref.FK, next, prop.Ref.PK),
				Path:   navPath,
				Entity: related.Name,
				PKKey:  joinPath(navPath, related.PrimaryKey.JSONName),
			})
			if err := p.walk(related, sub, navPath, next, n); err != nil {
				return err
			}
		case meta.KindCollection:
			// the owning key is all the main query needs; rows are fetched
			// by a follow-up query keyed on it
			if owner := e.PropertyByColumn(prop.Ref.PK); owner != nil {
				p.addColumn(alias+"."+owner.Column, joinPath(pathPrefix, owner.JSONName))
			}
		}
	}
	return nil
}

func (p *Plan) addColumn(expr, key string) {
	for _, c := range p.Columns {
		if c.Expr == expr {
			return
		}
	}
	p.Columns = append(p.Columns, Column{Expr: expr, Key: key})
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// SetPath stores v into a nested wire-shaped row, creating intermediate
// objects as needed.
func SetPath(row map[string]any, path string, v any) {
	parts := strings.Split(path, ".")
	for _, part := range parts[:len(parts)-1] {
		next, ok := row[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			row[part] = next
		}
		row = next
	}
	row[parts[len(parts)-1]] = v
}

// GetPath reads a nested value; ok is false when any segment is absent or
// not an object.
func GetPath(row map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var cur any = row
	for _, part := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
