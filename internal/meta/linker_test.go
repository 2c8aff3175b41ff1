package meta

import "testing"

func TestLink_RelationDefaults(t *testing.T) {
	initFixtureRegistry(t)

	order := Registry["order"]
	customer := order.PropertyByName("Customer")
	if customer.Ref.Entity() != Registry["customer"] {
		t.Fatal("object ref not linked to customer descriptor")
	}
	// object nav: PK defaults to the related entity's key column
	if customer.Ref.PK != "id" {
		t.Fatalf("object ref PK default mismatch: %q", customer.Ref.PK)
	}

	lines := order.PropertyByName("Lines")
	if lines.Ref.Entity() != Registry["order_line"] {
		t.Fatal("collection ref not linked")
	}
	// collection nav: PK defaults to the owning entity's key column
	if lines.Ref.PK != "id" {
		t.Fatalf("collection ref PK default mismatch: %q", lines.Ref.PK)
	}
	if lines.Ref.FK != "order_id" {
		t.Fatalf("collection ref FK mismatch: %q", lines.Ref.FK)
	}
}

func TestLink_UnknownModelFails(t *testing.T) {
	dir := writeFixtureDir(t, map[string]string{
		"broken.yml": "table: b\nproperties:\n  - name: Id\n    type: int\n  - name: Ghost\n    type: object\n    model: phantom\n    fk: ghost_id\n",
	})
	ResetRegistry()
	if err := InitRegistry(dir); err == nil {
		t.Fatal("expected link error for unknown model")
	}
}

func TestLink_Accessors(t *testing.T) {
	initFixtureRegistry(t)

	p := Registry["order"].PropertyByName("Number")
	row := map[string]any{"number": "A-100"}
	if got := p.Get(row); got != "A-100" {
		t.Fatalf("Get: %v", got)
	}
	p.Set(row, "B-200")
	if row["number"] != "B-200" {
		t.Fatalf("Set: %v", row["number"])
	}
	if got := p.Get(nil); got != nil {
		t.Fatalf("Get(nil) must be nil, got %v", got)
	}
	p.Set(nil, "x") // must not panic
}

func TestLink_ValidatesIncludeTrees(t *testing.T) {
	dir := writeFixtureDir(t, map[string]string{
		"solo.yml": "table: s\nproperties:\n  - name: Id\n    type: int\nincludes:\n  bad:\n    nothere: {}\n",
	})
	ResetRegistry()
	if err := InitRegistry(dir); err == nil {
		t.Fatal("expected error for include tree naming a non-navigation")
	}
}

func TestDefaultIncludeTree_Synthesis(t *testing.T) {
	initFixtureRegistry(t)

	tree := Registry["order"].Includes[DefaultTreeName]
	if tree == nil {
		t.Fatal("default tree not synthesized")
	}
	if tree.Child("customer") == nil {
		t.Fatal("object nav missing from default tree")
	}
	sub := tree.Child("lines")
	if sub == nil {
		t.Fatal("collection nav missing from default tree")
	}
	// the collection subtree pulls the line's own object refs one hop
	if sub.Child("order") == nil {
		t.Fatalf("collection subtree missing object refs: %v", sub)
	}
	// scalars never appear
	if tree.Child("number") != nil {
		t.Fatal("scalar leaked into default tree")
	}
}

func TestResolveIncludeTree(t *testing.T) {
	initFixtureRegistry(t)
	e := Registry["order"]

	if tr := e.ResolveIncludeTree("none"); !tr.IsEmpty() {
		t.Fatalf("'none' must load nothing, got %v", tr)
	}
	if tr := e.ResolveIncludeTree("NONE"); !tr.IsEmpty() {
		t.Fatal("'none' must be case-insensitive")
	}
	if tr := e.ResolveIncludeTree("detail"); tr.Child("customer") == nil || tr.Child("lines") == nil {
		t.Fatalf("declared tree not selected: %v", tr)
	}
	def := e.ResolveIncludeTree("")
	if def.IsEmpty() {
		t.Fatal("empty directive must select the default tree")
	}
	if tr := e.ResolveIncludeTree("no_such_tree"); tr.Child("customer") == nil {
		t.Fatal("unknown directive must fall back to the default tree")
	}
}
