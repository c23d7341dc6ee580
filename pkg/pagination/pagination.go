package pagination

import (
	"gorm.io/gorm"
)

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 25
	// MaxLimit caps how many rows any list query can request.
	MaxLimit = 100
)

// Params holds page pagination inputs from controllers.
type Params struct {
	Page  int
	Limit int
}

// Normalize clamps the inputs to sane values. Page numbering starts at 1.
func (p Params) Normalize() Params {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// Offset returns the row offset for the normalized page.
func (p Params) Offset() int {
	p = p.Normalize()
	return (p.Page - 1) * p.Limit
}

// Meta describes the page a list response carries.
type Meta struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Count int `json:"count"`
}

// MetaFor builds response metadata for a returned slice length.
func MetaFor(p Params, count int) Meta {
	p = p.Normalize()
	return Meta{Page: p.Page, Limit: p.Limit, Count: count}
}

// Apply adds the normalized limit and offset to a gorm query.
func Apply(tx *gorm.DB, p Params) *gorm.DB {
	p = p.Normalize()
	return tx.Limit(p.Limit).Offset(p.Offset())
}
