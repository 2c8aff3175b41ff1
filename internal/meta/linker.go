package meta

import "fmt"

// LinkRegistry resolves cross-entity references, fills relation defaults,
// binds accessor closures and synthesizes default include trees. Must run
// after every descriptor has been loaded.
func LinkRegistry() error {
	for name, e := range Registry {
		if err := linkEntity(name, e); err != nil {
			return err
		}
	}
	// default trees need linked relation refs on the related entities too,
	// so they are built in a second pass
	for name, e := range Registry {
		if _, declared := e.Includes[DefaultTreeName]; !declared {
			e.Includes[DefaultTreeName] = e.defaultIncludeTree()
		}
		for treeName, tree := range e.Includes {
			if err := validateIncludeTree(e, tree); err != nil {
				return fmt.Errorf("entity %s: include tree %q: %w", name, treeName, err)
			}
		}
	}
	return nil
}

func linkEntity(name string, e *EntityDescriptor) error {
	for _, p := range e.Properties {
		bindAccessors(p)
		if p.Ref == nil {
			continue
		}
		related, ok := Registry[p.Ref.Model]
		if !ok {
			return fmt.Errorf("entity %s: property %s references unknown entity %q", name, p.Name, p.Ref.Model)
		}
		p.Ref.entity = related
		if p.Ref.PK == "" {
			switch p.Kind {
			case KindObject:
				p.Ref.PK = related.PrimaryKey.Column
			case KindCollection:
				p.Ref.PK = e.PrimaryKey.Column
			}
		}
	}
	return nil
}

// bindAccessors resolves the get/set pair once; rows are wire-shaped maps
// keyed by JSON name.
func bindAccessors(p *PropertyDescriptor) {
	key := p.JSONName
	p.Get = func(row map[string]any) any {
		if row == nil {
			return nil
		}
		return row[key]
	}
	p.Set = func(row map[string]any, v any) {
		if row != nil {
			row[key] = v
		}
	}
}

func validateIncludeTree(e *EntityDescriptor, tree IncludeTree) error {
	for nav, sub := range tree {
		p := e.PropertyByJSON(nav)
		if p == nil || p.Ref == nil {
			return fmt.Errorf("%q is not a navigation of %s", nav, e.Name)
		}
		if err := validateIncludeTree(p.Ref.Entity(), sub); err != nil {
			return err
		}
	}
	return nil
}
