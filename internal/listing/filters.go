package listing

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/spree-storefront/pkg/errors"
)

// Availability narrows the listing by stock status.
type Availability string

const (
	AvailabilityInStock    Availability = "in_stock"
	AvailabilityOutOfStock Availability = "out_of_stock"
)

// SortKey is the storefront-facing sort selection.
type SortKey string

const (
	SortManual         SortKey = "manual"
	SortBestSelling    SortKey = "best-selling"
	SortPriceLowToHigh SortKey = "price-low-to-high"
	SortPriceHighToLow SortKey = "price-high-to-low"
	SortNewestFirst    SortKey = "newest-first"
	SortOldestFirst    SortKey = "oldest-first"
	SortNameAscending  SortKey = "name-a-z"
	SortNameDescending SortKey = "name-z-a"
)

// Upstream query parameter names.
const (
	ParamPriceBetween = "q[price_between][]"
	ParamPriceGTE     = "q[price_gte]"
	ParamPriceLTE     = "q[price_lte]"
	ParamOptionValues = "q[with_option_value_ids][]"
	ParamInStock      = "q[in_stock]"
	ParamOutOfStock   = "q[out_of_stock]"
	ParamSearch       = "q[multi_search]"
	ParamSortBy       = "sort_by"
	ParamSort         = "sort"
)

// Storefront query-string keys.
const (
	KeyPriceMin     = "price_min"
	KeyPriceMax     = "price_max"
	KeyOptions      = "options"
	KeyAvailability = "availability"
	KeySort         = "sort"
	KeyQuery        = "q"
	KeyPage         = "page"
)

// sort keys Spree understands natively.
var sortByKeys = map[SortKey]struct{}{
	SortManual:         {},
	SortBestSelling:    {},
	SortPriceLowToHigh: {},
	SortPriceHighToLow: {},
}

// sort keys expressed as field plus direction.
var sortFields = map[SortKey]string{
	SortNewestFirst:    "-available_on",
	SortOldestFirst:    "available_on",
	SortNameAscending:  "name",
	SortNameDescending: "-name",
}

// ActiveFilters is the filter and sort selection of one listing view.
type ActiveFilters struct {
	PriceMin     *decimal.Decimal `json:"price_min,omitempty"`
	PriceMax     *decimal.Decimal `json:"price_max,omitempty"`
	OptionValues []string         `json:"option_values,omitempty"`
	Availability Availability     `json:"availability,omitempty"`
	SortBy       SortKey          `json:"sort_by,omitempty"`
}

// ToQuery translates the filters into Spree product query parameters.
// Unknown availability and sort keys produce no parameter.
func (f ActiveFilters) ToQuery() url.Values {
	q := url.Values{}

	switch {
	case f.PriceMin != nil && f.PriceMax != nil:
		q[ParamPriceBetween] = []string{f.PriceMin.String(), f.PriceMax.String()}
	case f.PriceMin != nil:
		q.Set(ParamPriceGTE, f.PriceMin.String())
	case f.PriceMax != nil:
		q.Set(ParamPriceLTE, f.PriceMax.String())
	}

	for _, id := range f.OptionValues {
		if id = strings.TrimSpace(id); id != "" {
			q.Add(ParamOptionValues, id)
		}
	}

	switch f.Availability {
	case AvailabilityInStock:
		q.Set(ParamInStock, "true")
	case AvailabilityOutOfStock:
		q.Set(ParamOutOfStock, "true")
	}

	if _, ok := sortByKeys[f.SortBy]; ok {
		q.Set(ParamSortBy, string(f.SortBy))
	} else if field, ok := sortFields[f.SortBy]; ok {
		q.Set(ParamSort, field)
	}

	return q
}

// Values renders the filters as storefront query-string keys, the inverse of ParseFilters.
func (f ActiveFilters) Values() url.Values {
	v := url.Values{}
	if f.PriceMin != nil {
		v.Set(KeyPriceMin, f.PriceMin.String())
	}
	if f.PriceMax != nil {
		v.Set(KeyPriceMax, f.PriceMax.String())
	}
	if len(f.OptionValues) > 0 {
		v.Set(KeyOptions, strings.Join(f.OptionValues, ","))
	}
	if f.Availability != "" {
		v.Set(KeyAvailability, string(f.Availability))
	}
	if f.SortBy != "" {
		v.Set(KeySort, string(f.SortBy))
	}
	return v
}

// IsEmpty reports whether no filter or sort is selected.
func (f ActiveFilters) IsEmpty() bool {
	return f.PriceMin == nil && f.PriceMax == nil && len(f.OptionValues) == 0 && f.Availability == "" && f.SortBy == ""
}

// Equal compares the serialized form of both filter sets.
func (f ActiveFilters) Equal(other ActiveFilters) bool {
	a, errA := json.Marshal(f)
	b, errB := json.Marshal(other)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(a, b)
}

// ParseFilters reads storefront query-string keys. Options may be repeated or comma separated.
func ParseFilters(values url.Values) (ActiveFilters, error) {
	var f ActiveFilters

	lo, err := parsePrice(KeyPriceMin, values.Get(KeyPriceMin))
	if err != nil {
		return ActiveFilters{}, err
	}
	hi, err := parsePrice(KeyPriceMax, values.Get(KeyPriceMax))
	if err != nil {
		return ActiveFilters{}, err
	}
	if lo != nil && hi != nil && lo.GreaterThan(*hi) {
		return ActiveFilters{}, pkgerrors.New(pkgerrors.CodeValidation, "price_min must not exceed price_max")
	}
	f.PriceMin, f.PriceMax = lo, hi

	for _, raw := range values[KeyOptions] {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				f.OptionValues = append(f.OptionValues, id)
			}
		}
	}

	f.Availability = Availability(strings.ToLower(strings.TrimSpace(values.Get(KeyAvailability))))
	f.SortBy = SortKey(strings.ToLower(strings.TrimSpace(values.Get(KeySort))))
	return f, nil
}

func parsePrice(key, raw string) (*decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, key+" must be a non-negative number").
			WithDetails(map[string]string{key: raw})
	}
	return &d, nil
}

// upstreamQuery combines filters and the free-text search into the Spree parameters.
func upstreamQuery(filters ActiveFilters, search string) url.Values {
	q := filters.ToQuery()
	if search = strings.TrimSpace(search); search != "" {
		q.Set(ParamSearch, search)
	}
	return q
}
