package persistence

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/stocksync/backend/internal/domain/shared"
)

// sortableColumns whitelists the columns exposed for sorting. Anything else
// falls back to created_at to keep user input out of the ORDER BY clause.
var sortableColumns = map[string]bool{
	"created_at":       true,
	"updated_at":       true,
	"order_number":     true,
	"stage":            true,
	"name":             true,
	"transaction_date": true,
	"type":             true,
	"location":         true,
}

// applyFilter applies pagination and ordering from a shared.Filter
func applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	column := filter.OrderBy
	if !sortableColumns[column] {
		column = "created_at"
	}
	direction := "DESC"
	if strings.EqualFold(filter.OrderDir, "asc") {
		direction = "ASC"
	}
	return query.
		Order(fmt.Sprintf("%s %s", column, direction)).
		Offset(filter.Offset()).
		Limit(filter.Limit())
}
