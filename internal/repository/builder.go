package repository

import (
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
)

// psql builds PostgreSQL statements with $n placeholders.
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// paginate normalises page parameters and returns page, size and offset.
func paginate(page, size int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > maxPageSize {
		size = defaultPageSize
	}
	return page, size, (page - 1) * size
}

// orderClause resolves a whitelisted sort column and direction.
func orderClause(allowed map[string]string, sortBy, sortOrder, fallback string) string {
	column, ok := allowed[sortBy]
	if !ok {
		column = allowed[fallback]
	}
	order := strings.ToUpper(sortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	return column + " " + order
}

// rangeEnd turns an inclusive "to" filter into the exclusive upper bound the
// queries compare with. A bound at midnight is a bare date and covers that
// whole day.
func rangeEnd(to time.Time) time.Time {
	if to.Hour() == 0 && to.Minute() == 0 && to.Second() == 0 && to.Nanosecond() == 0 {
		return to.AddDate(0, 0, 1)
	}
	return to
}
