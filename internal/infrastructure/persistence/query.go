package persistence

import (
	"strings"

	"github.com/erp/stockledger/internal/domain/shared"
	"gorm.io/gorm"
)

const defaultPageSize = 20

// sortColumns whitelists the columns a listing may be ordered by. Client
// input never reaches ORDER BY unless it names one of them exactly.
type sortColumns struct {
	fallback string
	allowed  map[string]struct{}
}

func sortableBy(fallback string, names ...string) sortColumns {
	s := sortColumns{fallback: fallback, allowed: make(map[string]struct{}, len(names)+1)}
	s.allowed[fallback] = struct{}{}
	for _, n := range names {
		s.allowed[n] = struct{}{}
	}
	return s
}

var (
	tenantSort = sortableBy("created_at", "id", "updated_at", "code", "name", "status")
	itemSort   = sortableBy("created_at", "id", "updated_at", "name", "category",
		"quantity", "low_stock_threshold", "unit_price")
	auditSort = sortableBy("created_at", "entity_type", "action")
)

// orderBy returns "<column> ASC|DESC, id ASC". Unknown columns fall back to
// the default and anything but asc sorts descending. The id tiebreak keeps
// offset pages stable when many rows share the sort value.
func (s sortColumns) orderBy(field, dir string) string {
	column := strings.TrimSpace(field)
	if _, ok := s.allowed[column]; !ok {
		column = s.fallback
	}
	order := column + " DESC"
	if strings.EqualFold(strings.TrimSpace(dir), "asc") {
		order = column + " ASC"
	}
	if column == "id" {
		return order
	}
	return order + ", id ASC"
}

func paginate(query *gorm.DB, filter shared.Filter, cols sortColumns) *gorm.DB {
	limit := filter.PageSize
	if limit <= 0 {
		limit = defaultPageSize
	}
	return query.
		Order(cols.orderBy(filter.OrderBy, filter.OrderDir)).
		Offset(filter.Offset()).
		Limit(limit)
}

// likePattern is compared against LOWER(column), which behaves the same on
// PostgreSQL and SQLite.
func likePattern(search string) string {
	return "%" + strings.ToLower(strings.TrimSpace(search)) + "%"
}
