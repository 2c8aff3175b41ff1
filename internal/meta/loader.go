package meta

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

type rawEntity struct {
	Table      string                `yaml:"table"`
	PrimaryKey string                `yaml:"primary_key"`
	ListText   string                `yaml:"list_text"`
	Security   rawEntitySecurity     `yaml:"security"`
	Properties []rawProperty         `yaml:"properties"`
	Includes   map[string]rawInclude `yaml:"includes"`
}

type rawEntitySecurity struct {
	Create []string `yaml:"create"`
	Edit   []string `yaml:"edit"`
	Delete []string `yaml:"delete"`
}

type rawProperty struct {
	Name     string         `yaml:"name"`
	JSON     string         `yaml:"json"`
	Column   string         `yaml:"column"`
	Type     string         `yaml:"type"`
	Internal bool           `yaml:"internal"`
	Unmapped bool           `yaml:"unmapped"`
	Roles    rawRoles       `yaml:"roles"`
	Search   string         `yaml:"search"`
	Values   map[int]string `yaml:"values"`
	Model    string         `yaml:"model"`
	FK       string         `yaml:"fk"`
	PK       string         `yaml:"pk"`
}

type rawRoles struct {
	Read   []string `yaml:"read"`
	Create []string `yaml:"create"`
	Edit   []string `yaml:"edit"`
}

// rawInclude decodes a nested navigation-name mapping; a null value is an
// empty subtree.
type rawInclude map[string]rawInclude

// LoadEntitiesFromDir reads every *.yml entity file in dir into the registry.
// Each file is validated structurally as a yaml.Node before decoding, so a
// malformed descriptor stops startup with a file/line diagnostic.
func LoadEntitiesFromDir(dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.yml"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no entity files found in %s", dir)
	}

	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		var root yaml.Node
		if err := yaml.Unmarshal(data, &root); err != nil {
			return fmt.Errorf("YAML parse error in %s: %w", path, err)
		}
		if len(root.Content) == 0 {
			return fmt.Errorf("empty YAML in %s", path)
		}
		if err := validateEntityNode(root.Content[0]); err != nil {
			return fmt.Errorf("validation error in %s: %w", path, err)
		}

		var raw rawEntity
		if err := root.Decode(&raw); err != nil {
			return fmt.Errorf("unmarshal error in %s: %w", path, err)
		}

		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		ed, err := buildDescriptor(name, &raw)
		if err != nil {
			return fmt.Errorf("entity %s: %w", name, err)
		}
		Registry[name] = ed
	}
	return nil
}

func buildDescriptor(name string, raw *rawEntity) (*EntityDescriptor, error) {
	if raw.Table == "" {
		return nil, fmt.Errorf("table is required")
	}
	if len(raw.Properties) == 0 {
		return nil, fmt.Errorf("at least one property is required")
	}

	e := &EntityDescriptor{
		Name:  name,
		Table: raw.Table,
		Security: EntitySecurity{
			Create: raw.Security.Create,
			Edit:   raw.Security.Edit,
			Delete: raw.Security.Delete,
		},
		Includes: make(map[string]IncludeTree, len(raw.Includes)+1),
	}

	for _, rp := range raw.Properties {
		p, err := buildProperty(&rp)
		if err != nil {
			return nil, err
		}
		e.Properties = append(e.Properties, p)
	}
	e.index()

	pkName := raw.PrimaryKey
	if pkName == "" {
		pkName = "id"
	}
	e.PrimaryKey = e.PropertyByName(pkName)
	if e.PrimaryKey == nil {
		return nil, fmt.Errorf("primary key property %q not declared", pkName)
	}
	if raw.ListText != "" {
		e.ListText = e.PropertyByName(raw.ListText)
		if e.ListText == nil {
			return nil, fmt.Errorf("list_text property %q not declared", raw.ListText)
		}
	}

	for treeName, rt := range raw.Includes {
		e.Includes[treeName] = toIncludeTree(rt)
	}
	return e, nil
}

func buildProperty(rp *rawProperty) (*PropertyDescriptor, error) {
	if rp.Name == "" {
		return nil, fmt.Errorf("property name is required")
	}
	kind, err := ParseKind(rp.Type)
	if err != nil {
		return nil, fmt.Errorf("property %s: %w", rp.Name, err)
	}

	p := &PropertyDescriptor{
		Name:        rp.Name,
		JSONName:    rp.JSON,
		Column:      rp.Column,
		Kind:        kind,
		InternalUse: rp.Internal,
		Unmapped:    rp.Unmapped,
		Security: SecurityInfo{
			Read:   rp.Roles.Read,
			Create: rp.Roles.Create,
			Edit:   rp.Roles.Edit,
		},
		SearchMethod: rp.Search,
	}
	if p.JSONName == "" {
		p.JSONName = lowerCamel(rp.Name)
	}
	if p.Column == "" && !rp.Unmapped {
		p.Column = snakeCase(rp.Name)
	}

	switch kind {
	case KindEnum:
		if len(rp.Values) == 0 {
			return nil, fmt.Errorf("property %s: enum requires values", rp.Name)
		}
		p.Enum = NewEnumTable(rp.Values)
	case KindObject, KindCollection:
		if rp.Model == "" || rp.FK == "" {
			return nil, fmt.Errorf("property %s: object/collection requires model and fk", rp.Name)
		}
		p.Ref = &RelationRef{Model: rp.Model, FK: rp.FK, PK: rp.PK}
	default:
		if rp.Model != "" || rp.FK != "" {
			return nil, fmt.Errorf("property %s: model/fk only valid for navigations", rp.Name)
		}
	}
	return p, nil
}

func toIncludeTree(raw rawInclude) IncludeTree {
	tree := IncludeTree{}
	for nav, sub := range raw {
		tree[nav] = toIncludeTree(sub)
	}
	return tree
}

func lowerCamel(s string) string {
	if s == "" {
		return s
	}
	// leading acronym runs stay lowered as a block: "FKOrder" -> "fkOrder"
	runes := []rune(s)
	i := 0
	for i < len(runes) && unicode.IsUpper(runes[i]) {
		i++
	}
	if i == 0 {
		return s
	}
	if i > 1 && i < len(runes) {
		i--
	}
	return strings.ToLower(string(runes[:i])) + string(runes[i:])
}

func snakeCase(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (!unicode.IsUpper(runes[i-1]) || (i+1 < len(runes) && !unicode.IsUpper(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
