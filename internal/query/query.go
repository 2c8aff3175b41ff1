package query

import (
	"github.com/Masterminds/squirrel"

	"github.com/adamskt/Coalesce/internal/meta"
)

// Query is the deferred queryable: an accumulating description of one select
// over an entity. Predicates, sort and paging layer on cheaply; the store is
// only touched when a caller materializes SelectSQL or CountSQL through pgx.
type Query struct {
	Entity *meta.EntityDescriptor

	tree meta.IncludeTree
	plan *Plan

	conds  []squirrel.Sqlizer
	orders []string
	limit  uint64
	offset uint64
	paged  bool
}

// New wraps an entity, its resolved include tree and the compiled plan.
func New(e *meta.EntityDescriptor, tree meta.IncludeTree, plan *Plan) *Query {
	return &Query{Entity: e, tree: tree, plan: plan}
}

// IncludeTree returns the resolved eager-load tree.
func (q *Query) IncludeTree() meta.IncludeTree { return q.tree }

// Plan returns the compiled join/column plan.
func (q *Query) Plan() *Plan { return q.plan }

// Where conjoins a predicate onto the query. Nil predicates are ignored so
// that no-op matchers compose silently.
func (q *Query) Where(cond squirrel.Sqlizer) {
	if cond != nil {
		q.conds = append(q.conds, cond)
	}
}

// OrderBy appends a raw order expression ("main.title ASC").
func (q *Query) OrderBy(expr string) {
	q.orders = append(q.orders, expr)
}

// Page sets LIMIT/OFFSET.
func (q *Query) Page(offset, limit uint64) {
	q.offset = offset
	q.limit = limit
	q.paged = true
}

// SelectSQL materializes the row query.
func (q *Query) SelectSQL() (string, []any, error) {
	sb := q.base()
	exprs := make([]string, len(q.plan.Columns))
	for i, c := range q.plan.Columns {
		exprs[i] = c.Expr
	}
	sb = sb.Columns(exprs...)
	for _, j := range q.plan.Joins {
		sb = sb.LeftJoin(j.Table + " AS " + j.Alias + " ON " + j.On)
	}
	for _, o := range q.orders {
		sb = sb.OrderBy(o)
	}
	if q.paged {
		if q.limit > 0 {
			sb = sb.Limit(q.limit)
		}
		if q.offset > 0 {
			sb = sb.Offset(q.offset)
		}
	}
	return sb.ToSql()
}

// CountSQL materializes the pre-paging count over the same predicate set.
// Filters and search only ever reference root columns, so eager-load joins
// are not attached.
func (q *Query) CountSQL() (string, []any, error) {
	sb := q.base().Column("COUNT(*)")
	return sb.ToSql()
}

func (q *Query) base() squirrel.SelectBuilder {
	sb := squirrel.SelectBuilder{}.PlaceholderFormat(squirrel.Dollar)
	sb = sb.From(q.Entity.Table + " AS main")
	for _, cond := range q.conds {
		sb = sb.Where(cond)
	}
	return sb
}
