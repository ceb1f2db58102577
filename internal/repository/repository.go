package repository

import (
	"errors"

	sq "github.com/Masterminds/squirrel"
)

var (
	// ErrNotFound is returned when no record matches the lookup.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a conditional update matched no record
	// because the record is not in the expected state.
	ErrConflict = errors.New("record is not in the expected state")
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Page is a 1-based page of a listing.
type Page struct {
	Page  int
	Limit int
}

func (p Page) normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultPageSize
	}
	if p.Limit > maxPageSize {
		p.Limit = maxPageSize
	}
	return p
}

func (p Page) offset() uint64 {
	p = p.normalize()
	return uint64((p.Page - 1) * p.Limit)
}

func (p Page) limit() uint64 {
	return uint64(p.normalize().Limit)
}

type scanner interface {
	Scan(dest ...any) error
}

func statementBuilder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}
