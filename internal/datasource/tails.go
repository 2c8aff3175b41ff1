package datasource

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/adamskt/Coalesce/internal/meta"
	"github.com/adamskt/Coalesce/internal/query"
)

// hiddenFKKey carries the grouping key for collection rows whose foreign-key
// column is not a declared property. It is stripped before projection.
const hiddenFKKey = "__fk"

// loadCollections walks the include tree and fetches collection navigations
// with one query per navigation, keyed on the owning rows' key values.
// Object navigations were already joined into the parent rows; recursion
// descends through them to reach deeper collections.
func (s *StandardDataSource) loadCollections(ctx context.Context, e *meta.EntityDescriptor, tree meta.IncludeTree, items []map[string]any) error {
	for _, prop := range e.Properties {
		if prop.Ref == nil {
			continue
		}
		sub := tree.Child(prop.JSONName)
		if sub == nil {
			continue
		}
		related := prop.Ref.Entity()

		switch prop.Kind {
		case meta.KindObject:
			children := make([]map[string]any, 0, len(items))
			for _, item := range items {
				if child, ok := item[prop.JSONName].(map[string]any); ok {
					children = append(children, child)
				}
			}
			if len(children) > 0 {
				if err := s.loadCollections(ctx, related, sub, children); err != nil {
					return err
				}
			}

		case meta.KindCollection:
			if err := s.loadCollection(ctx, e, prop, sub, items); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *StandardDataSource) loadCollection(ctx context.Context, e *meta.EntityDescriptor, prop *meta.PropertyDescriptor, sub meta.IncludeTree, items []map[string]any) error {
	owner := e.PropertyByColumn(prop.Ref.PK)
	if owner == nil {
		return fmt.Errorf("collection %s of %s: owning key column %s has no property", prop.Name, e.Name, prop.Ref.PK)
	}

	seen := make(map[any]struct{}, len(items))
	ids := make([]any, 0, len(items))
	for _, item := range items {
		item[prop.JSONName] = []map[string]any{}
		v := owner.Get(item)
		if v == nil {
			continue
		}
		if _, dup := seen[v]; !dup {
			seen[v] = struct{}{}
			ids = append(ids, v)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	related := prop.Ref.Entity()
	plan, err := query.BuildPlan(related, sub)
	if err != nil {
		return err
	}

	// the grouping key must be in the select list; use the declared property
	// when the FK column has one, a hidden column otherwise
	fkKey := hiddenFKKey
	if fkProp := related.PropertyByColumn(prop.Ref.FK); fkProp != nil {
		fkKey = fkProp.JSONName
	} else {
		plan.Columns = append(plan.Columns, query.Column{Expr: "main." + prop.Ref.FK, Key: hiddenFKKey})
	}

	q := query.New(related, sub, plan)
	q.Where(squirrel.Eq{"main." + prop.Ref.FK: ids})
	q.OrderBy("main." + related.PrimaryKey.Column + " ASC")

	sqlStr, args, err := q.SelectSQL()
	if err != nil {
		return err
	}
	rows, err := s.db.Query(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("load %s.%s: %w", e.Name, prop.Name, err)
	}
	defer rows.Close()

	children, err := plan.ScanRows(rows)
	if err != nil {
		return fmt.Errorf("scan %s.%s: %w", e.Name, prop.Name, err)
	}

	grouped := make(map[any][]map[string]any, len(ids))
	for _, child := range children {
		key := child[fkKey]
		if fkKey == hiddenFKKey {
			delete(child, hiddenFKKey)
		}
		if key == nil {
			continue
		}
		grouped[key] = append(grouped[key], child)
	}
	for _, item := range items {
		if v := owner.Get(item); v != nil {
			if group, ok := grouped[v]; ok {
				item[prop.JSONName] = group
			}
		}
	}

	if len(children) > 0 {
		return s.loadCollections(ctx, related, sub, children)
	}
	return nil
}
