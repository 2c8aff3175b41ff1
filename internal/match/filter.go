// Package match builds store-level predicates from raw client input, one
// strategy per value kind. Input that cannot be interpreted for a kind
// yields no predicate at all: filters are additive constraints, so a
// meaningless value must select every row rather than none.
package match

import (
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/adamskt/Coalesce/internal/meta"
)

// Options carries the per-property context a matcher may need.
type Options struct {
	// Enum table for KindEnum properties.
	Enum *meta.EnumTable
	// Loc is the requesting principal's timezone, used to anchor day spans
	// for KindDateOffset. KindDate always compares wall-clock values.
	Loc *time.Location
}

// Filter returns the predicate for a raw filter value against a column
// expression, or nil when the input imposes no restriction.
func Filter(kind meta.Kind, column, input string, opts Options) squirrel.Sqlizer {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	switch kind {
	case meta.KindString:
		return filterString(column, input)
	case meta.KindInt:
		return filterInt(column, input)
	case meta.KindDecimal:
		return filterDecimal(column, input)
	case meta.KindBool:
		return filterBool(column, input)
	case meta.KindGuid:
		return filterGuid(column, input)
	case meta.KindEnum:
		return filterEnum(column, input, opts.Enum)
	case meta.KindDate:
		return filterDate(column, input, time.UTC)
	case meta.KindDateOffset:
		loc := opts.Loc
		if loc == nil {
			loc = time.UTC
		}
		return filterDate(column, input, loc)
	}
	return nil
}

// filterString treats a single trailing "*" as a prefix match. Any other
// star placement falls back to exact equality against the literal input.
func filterString(column, input string) squirrel.Sqlizer {
	value := strings.TrimSpace(input)
	if strings.Count(value, "*") == 1 && strings.HasSuffix(value, "*") {
		prefix := strings.TrimSuffix(value, "*")
		return squirrel.ILike{column: escapeLike(prefix) + "%"}
	}
	return squirrel.Expr("LOWER("+column+") = LOWER(?)", value)
}

func filterInt(column, input string) squirrel.Sqlizer {
	var vals []int64
	for _, tok := range splitTokens(input) {
		if n, err := strconv.ParseInt(tok, 10, 64); err == nil {
			vals = append(vals, n)
		}
	}
	if len(vals) == 0 {
		return nil
	}
	return squirrel.Eq{column: vals}
}

func filterDecimal(column, input string) squirrel.Sqlizer {
	var vals []float64
	for _, tok := range splitTokens(input) {
		if f, err := strconv.ParseFloat(tok, 64); err == nil {
			vals = append(vals, f)
		}
	}
	if len(vals) == 0 {
		return nil
	}
	return squirrel.Eq{column: vals}
}

func filterBool(column, input string) squirrel.Sqlizer {
	b, err := strconv.ParseBool(strings.TrimSpace(input))
	if err != nil {
		return nil
	}
	return squirrel.Eq{column: b}
}

func filterGuid(column, input string) squirrel.Sqlizer {
	var vals []string
	for _, tok := range splitTokens(input) {
		if id, ok := parseGuid(tok); ok {
			vals = append(vals, id)
		}
	}
	if len(vals) == 0 {
		return nil
	}
	return squirrel.Eq{column: vals}
}

// parseGuid normalizes a token to the canonical lowercase hyphenated form.
// Braces and missing hyphens are tolerated.
func parseGuid(token string) (string, bool) {
	token = strings.TrimSpace(token)
	token = strings.TrimPrefix(token, "{")
	token = strings.TrimSuffix(token, "}")
	id, err := uuid.Parse(token)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

// filterEnum resolves each token either as the underlying integer code or as
// a case-insensitive canonical name.
func filterEnum(column, input string, table *meta.EnumTable) squirrel.Sqlizer {
	if table == nil {
		return nil
	}
	var vals []int
	for _, tok := range splitTokens(input) {
		if n, err := strconv.Atoi(tok); err == nil {
			vals = append(vals, n)
			continue
		}
		if code, ok := table.Code(tok); ok {
			vals = append(vals, code)
		}
	}
	if len(vals) == 0 {
		return nil
	}
	return squirrel.Eq{column: vals}
}

// filterDate matches a date-only input against the full 24-hour span of that
// date, inclusive of both boundaries, and an input with a time component by
// equality to the second. The span is anchored in loc, so stored values in a
// different offset are compared as instants, not wall clocks.
func filterDate(column, input string, loc *time.Location) squirrel.Sqlizer {
	t, dateOnly, ok := parseDateInput(strings.TrimSpace(input), loc)
	if !ok {
		return nil
	}
	if dateOnly {
		start := t
		end := start.Add(24*time.Hour - time.Second)
		return squirrel.And{
			squirrel.GtOrEq{column: start},
			squirrel.LtOrEq{column: end},
		}
	}
	return squirrel.Eq{column: t}
}

var dateOnlyLayouts = []string{"2006-01-02"}

var dateTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

func parseDateInput(s string, loc *time.Location) (t time.Time, dateOnly bool, ok bool) {
	for _, layout := range dateOnlyLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true, true
		}
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.Truncate(time.Second), false, true
		}
	}
	// explicit offset in the input wins over the principal's
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Truncate(time.Second), false, true
	}
	return time.Time{}, false, false
}

func splitTokens(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// escapeLike protects LIKE metacharacters in user input.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
