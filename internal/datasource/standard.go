// Package datasource orchestrates the metadata-driven query pipeline:
// base query, include tree, filters, search, sort, count, paging, and the
// security-visible projection of the scanned rows.
package datasource

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/adamskt/Coalesce/internal/auth"
	"github.com/adamskt/Coalesce/internal/logger"
	"github.com/adamskt/Coalesce/internal/match"
	"github.com/adamskt/Coalesce/internal/meta"
	"github.com/adamskt/Coalesce/internal/query"
	"github.com/adamskt/Coalesce/internal/security"
)

const (
	DefaultPageSize = 25
	MaxPageSize     = 1000
)

// DB is the slice of the pgx pool surface the data source materializes
// queries through.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// StandardDataSource produces filtered, authorized, paged views of one
// entity type. It is stateless per request; one instance per entity may be
// shared across goroutines.
type StandardDataSource struct {
	Entity *meta.EntityDescriptor

	db    DB
	plans *query.PlanCache

	DefaultPageSize int
	MaxPageSize     int
}

// NewStandardDataSource wires a data source for one entity.
func NewStandardDataSource(e *meta.EntityDescriptor, db DB, plans *query.PlanCache) *StandardDataSource {
	return &StandardDataSource{
		Entity:          e,
		db:              db,
		plans:           plans,
		DefaultPageSize: DefaultPageSize,
		MaxPageSize:     MaxPageSize,
	}
}

// GetQuery builds the base deferred query: FROM the entity's table with the
// resolved include tree attached. No store access happens here.
func (s *StandardDataSource) GetQuery(ctx context.Context, params *DataSourceParameters) (*query.Query, error) {
	directive := ""
	if params != nil {
		directive = params.Includes
	}
	tree := s.Entity.ResolveIncludeTree(directive)
	plan, err := s.plans.PlanFor(ctx, s.Entity, s.treeName(directive), tree)
	if err != nil {
		return nil, err
	}
	return query.New(s.Entity, tree, plan), nil
}

// treeName maps a directive to the cache name of the tree it resolves to.
func (s *StandardDataSource) treeName(directive string) string {
	if strings.EqualFold(strings.TrimSpace(directive), "none") {
		return "none"
	}
	if _, ok := s.Entity.Includes[directive]; ok {
		return directive
	}
	return meta.DefaultTreeName
}

// ApplyListPropertyFilters conjoins one predicate per authorized filter
// entry. Unknown, unmapped, internal or unauthorized fields are skipped
// silently; inputs that cannot be interpreted add no restriction.
func (s *StandardDataSource) ApplyListPropertyFilters(pr *auth.Principal, q *query.Query, params *FilterParameters) {
	if params == nil || len(params.Filter) == 0 {
		return
	}
	names := make([]string, 0, len(params.Filter))
	for name := range params.Filter {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p := s.resolveProperty(name)
		if p == nil || !security.IsFilterable(p, pr) {
			continue
		}
		cond := match.Filter(p.Kind, "main."+p.Column, params.Filter[name], match.Options{
			Enum: p.Enum,
			Loc:  pr.Location(),
		})
		q.Where(cond)
	}
}

// ApplyListSearchTerm applies the free-text search. A "Field:term" prefix
// targets one searchable field; when the field does not resolve or is not
// searchable for this principal, the entire original string falls back to a
// literal broadcast search, so a denied field is indistinguishable from a
// nonexistent one.
func (s *StandardDataSource) ApplyListSearchTerm(pr *auth.Principal, q *query.Query, params *FilterParameters) {
	if params == nil {
		return
	}
	term := strings.TrimSpace(params.Search)
	if term == "" {
		return
	}

	if field, fieldTerm, ok := match.SplitTargeted(term); ok {
		p := s.resolveProperty(field)
		if p != nil && security.IsSearchable(p, pr) {
			pred, built := match.Search(p, "main."+p.Column, fieldTerm, pr.Location())
			if built {
				q.Where(pred)
			} else {
				// the field was targeted legitimately but the term cannot
				// be interpreted for its type: match nothing
				q.Where(squirrel.Expr("FALSE"))
			}
			return
		}
	}

	var ors squirrel.Or
	for _, p := range s.Entity.SearchTargets() {
		if !security.IsSearchable(p, pr) {
			continue
		}
		if pred, built := match.Search(p, "main."+p.Column, term, pr.Location()); built {
			ors = append(ors, pred)
		}
	}
	if len(ors) > 0 {
		q.Where(ors)
	} else {
		q.Where(squirrel.Expr("FALSE"))
	}
}

// ApplyListSort orders by the requested field, ascending or descending.
// Unrecognized or unauthorized fields are a no-op; without any usable sort
// the primary key keeps paging stable.
func (s *StandardDataSource) ApplyListSort(pr *auth.Principal, q *query.Query, params *ListParameters) {
	applied := false
	apply := func(name, dir string) {
		p := s.resolveProperty(name)
		if p == nil || !security.IsFilterable(p, pr) {
			return
		}
		q.OrderBy("main." + p.Column + " " + dir)
		applied = true
	}
	if params != nil {
		if params.OrderBy != "" {
			apply(params.OrderBy, "ASC")
		}
		if params.OrderByDescending != "" {
			apply(params.OrderByDescending, "DESC")
		}
	}
	if !applied {
		q.OrderBy("main." + s.Entity.PrimaryKey.Column + " ASC")
	}
}

// GetList runs the full pipeline and returns one page plus pre-paging
// totals. Zero matches is a successful, empty result.
func (s *StandardDataSource) GetList(ctx context.Context, pr *auth.Principal, params *ListParameters) (*ListResult, error) {
	if params == nil {
		params = &ListParameters{}
	}
	q, err := s.GetQuery(ctx, &params.DataSourceParameters)
	if err != nil {
		return nil, err
	}
	s.ApplyListPropertyFilters(pr, q, &params.FilterParameters)
	s.ApplyListSearchTerm(pr, q, &params.FilterParameters)
	s.ApplyListSort(pr, q, params)

	total, err := s.count(ctx, q)
	if err != nil {
		return nil, err
	}

	page, pageSize := s.normalizePaging(params.Page, params.PageSize)
	pageCount := 0
	if total > 0 {
		pageCount = (total + pageSize - 1) / pageSize
		if page > pageCount {
			page = pageCount
		}
	}
	q.Page(uint64((page-1)*pageSize), uint64(pageSize))

	items, err := s.fetch(ctx, pr, q)
	if err != nil {
		return nil, err
	}

	return &ListResult{
		WasSuccessful: true,
		List:          items,
		Page:          page,
		PageSize:      pageSize,
		PageCount:     pageCount,
		TotalCount:    total,
	}, nil
}

// GetCount runs the same filter/search pipeline and returns the total only.
func (s *StandardDataSource) GetCount(ctx context.Context, pr *auth.Principal, params *FilterParameters) (*CountResult, error) {
	if params == nil {
		params = &FilterParameters{}
	}
	// no eager loading is needed to count
	none := *params
	none.Includes = "none"
	q, err := s.GetQuery(ctx, &none.DataSourceParameters)
	if err != nil {
		return nil, err
	}
	s.ApplyListPropertyFilters(pr, q, params)
	s.ApplyListSearchTerm(pr, q, params)

	total, err := s.count(ctx, q)
	if err != nil {
		return nil, err
	}
	return &CountResult{WasSuccessful: true, Count: total}, nil
}

// GetItem fetches a single entity by primary key. Filters and search still
// apply so that rows the caller could not list cannot be fetched directly.
func (s *StandardDataSource) GetItem(ctx context.Context, pr *auth.Principal, id string, params *FilterParameters) (*ItemResult, error) {
	if params == nil {
		params = &FilterParameters{}
	}
	notFound := &ItemResult{
		WasSuccessful: false,
		Message:       fmt.Sprintf("%s item with ID %s was not found", s.Entity.Name, id),
	}

	pk := s.Entity.PrimaryKey
	keyCond := match.Filter(pk.Kind, "main."+pk.Column, id, match.Options{Enum: pk.Enum, Loc: pr.Location()})
	if keyCond == nil {
		// an id that cannot be interpreted as the key type identifies nothing
		return notFound, nil
	}

	q, err := s.GetQuery(ctx, &params.DataSourceParameters)
	if err != nil {
		return nil, err
	}
	q.Where(keyCond)
	s.ApplyListPropertyFilters(pr, q, params)
	s.ApplyListSearchTerm(pr, q, params)

	items, err := s.fetch(ctx, pr, q)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return notFound, nil
	}
	return &ItemResult{WasSuccessful: true, Object: items[0]}, nil
}

func (s *StandardDataSource) count(ctx context.Context, q *query.Query) (int, error) {
	sqlStr, args, err := q.CountSQL()
	if err != nil {
		return 0, err
	}
	logger.Debug("sql_count", map[string]any{"entity": s.Entity.Name, "sql": sqlStr, "args": args})

	var total int
	if err := s.db.QueryRow(ctx, sqlStr, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count %s: %w", s.Entity.Name, err)
	}
	return total, nil
}

// fetch materializes the row query, loads collection navigations and trims
// the result down to what the principal may read.
func (s *StandardDataSource) fetch(ctx context.Context, pr *auth.Principal, q *query.Query) ([]map[string]any, error) {
	sqlStr, args, err := q.SelectSQL()
	if err != nil {
		return nil, err
	}
	logger.Debug("sql_select", map[string]any{"entity": s.Entity.Name, "sql": sqlStr, "args": args})

	rows, err := s.db.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.Entity.Name, err)
	}
	defer rows.Close()

	items, err := q.Plan().ScanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.Entity.Name, err)
	}
	if len(items) > 0 {
		if err := s.loadCollections(ctx, s.Entity, q.IncludeTree(), items); err != nil {
			return nil, err
		}
	}
	ProjectVisible(s.Entity, q.IncludeTree(), pr, items)
	return items, nil
}

func (s *StandardDataSource) normalizePaging(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = s.DefaultPageSize
	}
	if pageSize > s.MaxPageSize {
		pageSize = s.MaxPageSize
	}
	return page, pageSize
}

// resolveProperty accepts either a wire name or a declared name, both
// case-insensitive, since filter keys arrive as free-form client input.
func (s *StandardDataSource) resolveProperty(name string) *meta.PropertyDescriptor {
	if p := s.Entity.PropertyByJSON(name); p != nil {
		return p
	}
	return s.Entity.PropertyByName(name)
}
