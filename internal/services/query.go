package services

import (
	"strings"

	"gorm.io/gorm"

	"medicare-server/internal/pagination"
)

// contains adds a case-insensitive substring match on one column.
func contains(db *gorm.DB, column, term string) *gorm.DB {
	return db.Where("LOWER("+column+") LIKE ?", likePattern(term))
}

// containsAny ORs a case-insensitive substring match over several columns.
func containsAny(db *gorm.DB, term string, columns ...string) *gorm.DB {
	if term == "" || len(columns) == 0 {
		return db
	}
	pattern := likePattern(term)
	clauses := make([]string, len(columns))
	args := make([]interface{}, len(columns))
	for i, c := range columns {
		clauses[i] = "LOWER(" + c + ") LIKE ?"
		args[i] = pattern
	}
	return db.Where("("+strings.Join(clauses, " OR ")+")", args...)
}

func likePattern(term string) string {
	return "%" + strings.ToLower(strings.TrimSpace(term)) + "%"
}

// page counts the filtered query, then loads one page of it.
func page[T any](db *gorm.DB, opts pagination.Options, sortable pagination.Sortable, preload ...string) (*pagination.Result[T], error) {
	var total int64
	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}

	q := opts.Apply(db.Session(&gorm.Session{}), sortable)
	for _, p := range preload {
		q = q.Preload(p)
	}
	rows := make([]T, 0, opts.Limit)
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return &pagination.Result[T]{Meta: pagination.NewMeta(opts, total), Data: rows}, nil
}
