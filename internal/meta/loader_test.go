package meta

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const orderYML = `
table: orders
primary_key: Id
list_text: Number
security:
  edit: [Clerk, Admin]
  delete: [Admin]
properties:
  - name: Id
    type: int
  - name: Number
    type: string
    search: begins_with
  - name: Notes
    type: string
  - name: AuditTag
    type: string
    internal: true
  - name: Margin
    type: decimal
    roles:
      read: [Admin]
  - name: State
    type: enum
    values:
      0: Draft
      1: Placed
      2: Shipped
  - name: PlacedAt
    type: date_offset
  - name: CustomerId
    type: int
  - name: Customer
    type: object
    model: customer
    fk: customer_id
  - name: Lines
    type: collection
    model: order_line
    fk: order_id
includes:
  detail:
    customer: {}
    lines: {}
`

const customerYML = `
table: customers
primary_key: Id
list_text: FullName
properties:
  - name: Id
    type: int
  - name: FullName
    type: string
  - name: ShippingNote
    type: string
    unmapped: true
`

const orderLineYML = `
table: order_lines
primary_key: Id
properties:
  - name: Id
    type: int
  - name: OrderId
    type: int
  - name: Sku
    type: string
  - name: Order
    type: object
    model: order
    fk: order_id
`

func writeFixtureDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write fixture %s: %v", name, err)
		}
	}
	return dir
}

func initFixtureRegistry(t *testing.T) {
	t.Helper()
	dir := writeFixtureDir(t, map[string]string{
		"order.yml":      orderYML,
		"customer.yml":   customerYML,
		"order_line.yml": orderLineYML,
	})
	ResetRegistry()
	if err := InitRegistry(dir); err != nil {
		t.Fatalf("InitRegistry: %v", err)
	}
}

func TestLoadDescriptor_Defaults(t *testing.T) {
	initFixtureRegistry(t)

	e := Registry["order"]
	if e == nil {
		t.Fatal("order entity missing from registry")
	}
	if e.Table != "orders" {
		t.Fatalf("table mismatch: %q", e.Table)
	}
	if e.PrimaryKey == nil || e.PrimaryKey.Name != "Id" {
		t.Fatalf("primary key not resolved: %+v", e.PrimaryKey)
	}
	if e.ListText == nil || e.ListText.Name != "Number" {
		t.Fatalf("list_text not resolved: %+v", e.ListText)
	}

	// wire name defaults to lowerCamel, column to snake_case
	p := e.PropertyByName("PlacedAt")
	if p == nil {
		t.Fatal("PlacedAt missing")
	}
	if p.JSONName != "placedAt" {
		t.Fatalf("json name default mismatch: %q", p.JSONName)
	}
	if p.Column != "placed_at" {
		t.Fatalf("column default mismatch: %q", p.Column)
	}
	if p.Kind != KindDateOffset {
		t.Fatalf("kind mismatch: %v", p.Kind)
	}

	// lookups are case-insensitive on both names
	if e.PropertyByJSON("PLACEDAT") == nil {
		t.Fatal("case-insensitive json lookup failed")
	}
	if e.PropertyByName("placedat") == nil {
		t.Fatal("case-insensitive name lookup failed")
	}
}

func TestLoadDescriptor_EnumTable(t *testing.T) {
	initFixtureRegistry(t)

	p := Registry["order"].PropertyByName("State")
	if p == nil || p.Enum == nil {
		t.Fatal("State enum not built")
	}
	if code, ok := p.Enum.Code("shipped"); !ok || code != 2 {
		t.Fatalf("case-insensitive name lookup: got %d %v", code, ok)
	}
	if name, ok := p.Enum.Name(1); !ok || name != "Placed" {
		t.Fatalf("name for code 1: got %q %v", name, ok)
	}
	if _, ok := p.Enum.Code("bogus"); ok {
		t.Fatal("bogus enum name resolved")
	}
	for i := 1; i < len(p.Enum.Values); i++ {
		if p.Enum.Values[i-1] > p.Enum.Values[i] {
			t.Fatalf("values not sorted: %v", p.Enum.Values)
		}
	}
}

func TestLoadDescriptor_SecurityAnnotations(t *testing.T) {
	initFixtureRegistry(t)
	e := Registry["order"]

	if p := e.PropertyByName("AuditTag"); !p.InternalUse {
		t.Fatal("internal flag not carried")
	}
	if p := e.PropertyByName("Margin"); len(p.Security.Read) != 1 || p.Security.Read[0] != "Admin" {
		t.Fatalf("read roles mismatch: %v", p.Security.Read)
	}
	if len(e.Security.Edit) != 2 || len(e.Security.Delete) != 1 {
		t.Fatalf("entity security mismatch: %+v", e.Security)
	}
	if p := Registry["customer"].PropertyByName("ShippingNote"); !p.Unmapped {
		t.Fatal("unmapped flag not carried")
	}
}

func TestSearchTargets_AnnotatedElseListText(t *testing.T) {
	initFixtureRegistry(t)

	targets := Registry["order"].SearchTargets()
	if len(targets) != 1 || targets[0].Name != "Number" {
		t.Fatalf("annotated targets mismatch: %+v", targets)
	}

	// customer has no annotations: list_text is the fallback
	targets = Registry["customer"].SearchTargets()
	if len(targets) != 1 || targets[0].Name != "FullName" {
		t.Fatalf("list_text fallback mismatch: %+v", targets)
	}

	// order_line has neither: broadcast search has no targets
	if targets = Registry["order_line"].SearchTargets(); len(targets) != 0 {
		t.Fatalf("expected no targets, got %+v", targets)
	}
}

func TestLoad_RejectsBadDescriptors(t *testing.T) {
	cases := []struct {
		name string
		yml  string
		want string
	}{
		{"unknown_type", "table: t\nproperties:\n  - name: A\n    type: blob\n", "type"},
		{"enum_without_values", "table: t\nproperties:\n  - name: A\n    type: enum\n", "enum"},
		{"nav_without_model", "table: t\nproperties:\n  - name: A\n    type: object\n    fk: a_id\n", "model"},
		{"model_on_scalar", "table: t\nproperties:\n  - name: A\n    type: int\n    model: x\n", "model"},
		{"missing_pk_property", "table: t\nprimary_key: Nope\nproperties:\n  - name: A\n    type: int\n", "primary key"},
		{"unknown_key", "table: t\nbanana: 1\nproperties:\n  - name: A\n    type: int\n", "banana"},
		{"bad_search_value", "table: t\nproperties:\n  - name: A\n    type: string\n    search: fuzzy\n", "search"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := writeFixtureDir(t, map[string]string{"bad.yml": tc.yml})
			ResetRegistry()
			err := InitRegistry(dir)
			if err == nil {
				t.Fatal("expected load error, got nil")
			}
			if !strings.Contains(strings.ToLower(err.Error()), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestLowerCamel(t *testing.T) {
	cases := map[string]string{
		"Id":          "id",
		"PlacedAt":    "placedAt",
		"FKOrder":     "fkOrder",
		"name":        "name",
		"URL":         "url",
		"CaseProduct": "caseProduct",
	}
	for in, want := range cases {
		if got := lowerCamel(in); got != want {
			t.Fatalf("lowerCamel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSnakeCase(t *testing.T) {
	cases := map[string]string{
		"Id":         "id",
		"PlacedAt":   "placed_at",
		"AssignedTo": "assigned_to",
		"SKUCode":    "sku_code",
	}
	for in, want := range cases {
		if got := snakeCase(in); got != want {
			t.Fatalf("snakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}
