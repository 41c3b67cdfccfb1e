package services

import (
	"fmt"
	"strings"

	"github.com/saeed-rahimi/ss/apperrors"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Pagination is a 1-based page request
type Pagination struct {
	Page  int
	Limit int
}

// Normalize applies defaults: page 1, limit 10, capped at 100
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

// Offset is the number of rows skipped before this page
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Pages is the number of pages needed for total rows
func (p Pagination) Pages(total int64) int {
	if p.Limit < 1 {
		return 0
	}
	return int((total + int64(p.Limit) - 1) / int64(p.Limit))
}

// parseSort turns "field:dir" into an ORDER BY clause using the allowed
// field-to-column map. Empty input yields fallback.
func parseSort(sort string, allowed map[string]string, fallback string) (string, error) {
	sort = strings.TrimSpace(sort)
	if sort == "" {
		return fallback, nil
	}

	field, dir, _ := strings.Cut(sort, ":")
	column, ok := allowed[field]
	if !ok {
		return "", apperrors.Validation(fmt.Sprintf("Cannot sort by %q", field))
	}

	switch strings.ToLower(dir) {
	case "desc":
		return column + " DESC", nil
	case "", "asc":
		return column + " ASC", nil
	default:
		return "", apperrors.Validation(fmt.Sprintf("Sort direction must be asc or desc, got %q", dir))
	}
}
