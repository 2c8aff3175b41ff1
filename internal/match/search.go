package match

import (
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/adamskt/Coalesce/internal/meta"
)

// Search method names as they appear on property annotations.
const (
	SearchBeginsWith = "begins_with"
	SearchContains   = "contains"
	SearchEquals     = "equals"
)

// Search returns the predicate for a free-text term against a property.
// ok is false when the term cannot be interpreted for the property's kind;
// a targeted search then matches nothing, while a broadcast search simply
// skips the property.
func Search(p *meta.PropertyDescriptor, column, term string, loc *time.Location) (pred squirrel.Sqlizer, ok bool) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, false
	}
	switch p.Kind {
	case meta.KindString:
		return searchString(p, column, term), true
	case meta.KindInt:
		if n, err := strconv.ParseInt(term, 10, 64); err == nil {
			return squirrel.Eq{column: n}, true
		}
	case meta.KindDecimal:
		if f, err := strconv.ParseFloat(term, 64); err == nil {
			return squirrel.Eq{column: f}, true
		}
	case meta.KindGuid:
		if id, parsed := parseGuid(term); parsed {
			return squirrel.Eq{column: id}, true
		}
	case meta.KindEnum:
		if p.Enum != nil {
			if n, err := strconv.Atoi(term); err == nil {
				return squirrel.Eq{column: n}, true
			}
			if code, found := p.Enum.Code(term); found {
				return squirrel.Eq{column: code}, true
			}
		}
	case meta.KindDate:
		if cond := filterDate(column, term, time.UTC); cond != nil {
			return cond, true
		}
	case meta.KindDateOffset:
		if loc == nil {
			loc = time.UTC
		}
		if cond := filterDate(column, term, loc); cond != nil {
			return cond, true
		}
	}
	return nil, false
}

// searchString honors the property's annotated method; begins-with is the
// default, matching the behavior of generated list views.
func searchString(p *meta.PropertyDescriptor, column, term string) squirrel.Sqlizer {
	switch p.SearchMethod {
	case SearchContains:
		return squirrel.ILike{column: "%" + escapeLike(term) + "%"}
	case SearchEquals:
		return squirrel.Expr("LOWER("+column+") = LOWER(?)", term)
	default:
		return squirrel.ILike{column: escapeLike(term) + "%"}
	}
}

// SplitTargeted recognizes the "Field:term" targeted-search syntax. The
// field part must look like an identifier; anything else is a plain term.
func SplitTargeted(search string) (field, term string, ok bool) {
	idx := strings.IndexByte(search, ':')
	if idx <= 0 {
		return "", "", false
	}
	field = strings.TrimSpace(search[:idx])
	term = strings.TrimSpace(search[idx+1:])
	if field == "" || term == "" {
		return "", "", false
	}
	for _, r := range field {
		if !isIdentRune(r) {
			return "", "", false
		}
	}
	return field, term, true
}

func isIdentRune(r rune) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
