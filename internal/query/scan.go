package query

import (
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ScanRows reads a materialized result into wire-shaped nested maps, one per
// row, using the plan's column keys. A joined navigation whose primary key
// scanned as NULL (no related row) is replaced by an explicit nil.
func (p *Plan) ScanRows(rows pgx.Rows) ([]map[string]any, error) {
	if rows == nil {
		return nil, fmt.Errorf("rows is nil")
	}

	out := make([]map[string]any, 0, 64)
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		if len(vals) != len(p.Columns) {
			return nil, fmt.Errorf("scan: %d values for %d planned columns", len(vals), len(p.Columns))
		}
		row := make(map[string]any, len(p.Columns))
		for i, c := range p.Columns {
			SetPath(row, c.Key, vals[i])
		}
		p.nullAbsentNavs(row)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// nullAbsentNavs collapses joined objects that came back all-NULL. Deepest
// paths are checked first so that an absent parent wins over its children.
func (p *Plan) nullAbsentNavs(row map[string]any) {
	for i := len(p.Joins) - 1; i >= 0; i-- {
		j := p.Joins[i]
		if pk, ok := GetPath(row, j.PKKey); ok && pk == nil {
			SetPath(row, j.Path, nil)
		}
	}
}
