package pagination

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 12
	// MaxLimit caps how many records any page request can ask the commerce API for.
	MaxLimit = 100
	// FirstPage is the first 1-based page number.
	FirstPage = 1
)

// Params holds page-number pagination inputs from controllers or services.
type Params struct {
	Page  int
	Limit int
}

// Normalize clamps page and limit to their valid ranges.
func (p Params) Normalize() Params {
	return Params{Page: NormalizePage(p.Page), Limit: NormalizeLimit(p.Limit)}
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// NormalizePage returns page, or FirstPage when page is not positive.
func NormalizePage(page int) int {
	if page < FirstPage {
		return FirstPage
	}
	return page
}

// HasMore reports whether pages remain after page.
func HasMore(page, pages int) bool {
	return page < pages
}

// ParsePage reads a page number from a query value. Empty means FirstPage.
func ParsePage(raw string) (int, error) {
	return parsePositive("page", raw, FirstPage)
}

// ParseLimit reads a limit from a query value. Empty means DefaultLimit.
func ParseLimit(raw string) (int, error) {
	limit, err := parsePositive("limit", raw, DefaultLimit)
	if err != nil {
		return 0, err
	}
	return NormalizeLimit(limit), nil
}

func parsePositive(name, raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return value, nil
}
