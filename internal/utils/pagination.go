// Package utils provides small helpers shared by the HTTP handlers and the
// services, independent of domain logic.
package utils

import "strconv"

const (
	// DefaultPageSize applies when the caller gives no usable page size.
	DefaultPageSize = 20
	// MaxPageSize caps list pages.
	MaxPageSize = 100
)

// AtoiDefault converts s with strconv.Atoi and returns def when s is empty
// or malformed.
//
//	n := utils.AtoiDefault("42", 0) // 42
//	n = utils.AtoiDefault("", 10)   // 10
//	n = utils.AtoiDefault("x", 5)   // 5
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// Page is a 1-based page request with a bounded size.
type Page struct {
	Number int
	Size   int
}

// NewPage clamps number to >= 1 and size to [1, MaxPageSize]. A size <= 0
// means DefaultPageSize.
func NewPage(number, size int) Page {
	if number < 1 {
		number = 1
	}
	switch {
	case size <= 0:
		size = DefaultPageSize
	case size > MaxPageSize:
		size = MaxPageSize
	}
	return Page{Number: number, Size: size}
}

// ParsePage builds a Page from raw page and page_size query values.
// Malformed values fall back to the first page of DefaultPageSize rows; an
// explicit size below one becomes one.
func ParsePage(number, size string) Page {
	n := AtoiDefault(number, 1)
	s := AtoiDefault(size, DefaultPageSize)
	if s < 1 {
		s = 1
	}
	return NewPage(n, s)
}

// Offset is the number of rows before this page.
func (p Page) Offset() int { return (p.Number - 1) * p.Size }

// TotalPages is the page count for total rows.
func (p Page) TotalPages(total int64) int {
	if total <= 0 || p.Size <= 0 {
		return 0
	}
	return int((total + int64(p.Size) - 1) / int64(p.Size))
}

// HasNext reports whether rows exist past this page.
func (p Page) HasNext(total int64) bool { return p.Number < p.TotalPages(total) }
