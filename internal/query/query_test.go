package query

import (
	"strings"
	"testing"

	"github.com/Masterminds/squirrel"

	"github.com/adamskt/Coalesce/internal/meta"
)

func buildOrderQuery(t *testing.T) *Query {
	t.Helper()
	initTestRegistry(t)
	e := meta.Registry["order"]
	tree := e.ResolveIncludeTree("detail")
	plan, err := BuildPlan(e, tree)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	return New(e, tree, plan)
}

func TestSelectSQL_Shape(t *testing.T) {
	q := buildOrderQuery(t)
	q.Where(squirrel.Eq{"main.state": 2})
	q.OrderBy("main.number ASC")
	q.Page(4, 2)

	sql, args, err := q.SelectSQL()
	if err != nil {
		t.Fatalf("SelectSQL: %v", err)
	}

	if !strings.Contains(sql, "FROM orders AS main") {
		t.Fatalf("missing aliased FROM: %s", sql)
	}
	if !strings.Contains(sql, "LEFT JOIN customers AS t1 ON main.customer_id = t1.id") {
		t.Fatalf("missing eager-load join: %s", sql)
	}
	if !strings.Contains(sql, "main.state = $1") {
		t.Fatalf("expected dollar placeholders: %s", sql)
	}
	if !strings.Contains(sql, "ORDER BY main.number ASC") {
		t.Fatalf("missing order: %s", sql)
	}
	if !strings.Contains(sql, "LIMIT 2") || !strings.Contains(sql, "OFFSET 4") {
		t.Fatalf("missing paging: %s", sql)
	}
	if len(args) != 1 || args[0] != 2 {
		t.Fatalf("args mismatch: %v", args)
	}
}

func TestSelectSQL_NilWhereIgnored(t *testing.T) {
	q := buildOrderQuery(t)
	q.Where(nil)

	sql, _, err := q.SelectSQL()
	if err != nil {
		t.Fatalf("SelectSQL: %v", err)
	}
	if strings.Contains(sql, "WHERE") {
		t.Fatalf("nil predicate produced a WHERE clause: %s", sql)
	}
}

func TestCountSQL_NoJoinsNoPaging(t *testing.T) {
	q := buildOrderQuery(t)
	q.Where(squirrel.Eq{"main.state": 2})
	q.OrderBy("main.number ASC")
	q.Page(4, 2)

	sql, args, err := q.CountSQL()
	if err != nil {
		t.Fatalf("CountSQL: %v", err)
	}
	if !strings.Contains(sql, "SELECT COUNT(*) FROM orders AS main") {
		t.Fatalf("count shape mismatch: %s", sql)
	}
	if strings.Contains(sql, "JOIN") {
		t.Fatalf("count must not attach eager-load joins: %s", sql)
	}
	if strings.Contains(sql, "LIMIT") || strings.Contains(sql, "ORDER BY") {
		t.Fatalf("count must ignore paging and sort: %s", sql)
	}
	if !strings.Contains(sql, "main.state = $1") || len(args) != 1 {
		t.Fatalf("count must keep predicates: %s %v", sql, args)
	}
}
