package meta

import "fmt"

// Kind is the closed set of value kinds a property can have. Filtering and
// searching dispatch on it; there is no runtime type inspection anywhere else.
type Kind int

const (
	KindUnknown Kind = iota
	KindString
	KindInt
	KindDecimal
	KindBool
	KindGuid
	KindEnum
	KindDate
	KindDateOffset
	KindObject
	KindCollection
)

var kindNames = map[Kind]string{
	KindString:     "string",
	KindInt:        "int",
	KindDecimal:    "decimal",
	KindBool:       "bool",
	KindGuid:       "guid",
	KindEnum:       "enum",
	KindDate:       "date",
	KindDateOffset: "date_offset",
	KindObject:     "object",
	KindCollection: "collection",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, n := range kindNames {
		m[n] = k
	}
	return m
}()

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a YAML type tag to a Kind.
func ParseKind(s string) (Kind, error) {
	if k, ok := kindsByName[s]; ok {
		return k, nil
	}
	return KindUnknown, fmt.Errorf("unknown property type: %q", s)
}

// IsValue reports whether the kind holds a scalar value as opposed to a
// navigation to another entity.
func (k Kind) IsValue() bool {
	return k != KindObject && k != KindCollection && k != KindUnknown
}
