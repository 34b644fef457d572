package spree

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/spree-storefront/pkg/errors"
	"github.com/angelmondragon/spree-storefront/pkg/types"
)

// ProductQuery is a page request against the product catalog. Params holds the
// ransack/sort parameters produced by the listing filters.
type ProductQuery struct {
	Params url.Values
	Page   int
	Limit  int
}

// Values returns the full query string sent upstream.
func (q ProductQuery) Values() url.Values {
	values := url.Values{}
	for k, v := range q.Params {
		values[k] = append([]string(nil), v...)
	}
	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	return values
}

// ListProducts fetches one page of the filtered and sorted catalog.
func (c *Client) ListProducts(ctx context.Context, session types.Session, q ProductQuery) (*ProductPage, error) {
	var page ProductPage
	err := c.do(ctx, call{
		operation: "products.list",
		method:    http.MethodGet,
		path:      "products",
		query:     q.Values(),
		session:   session,
	}, &page)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// GetProduct fetches a single product by slug.
func (c *Client) GetProduct(ctx context.Context, session types.Session, slug string) (*Product, error) {
	trimmed := strings.TrimSpace(slug)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product slug is required")
	}
	var env dataEnvelope[Product]
	err := c.do(ctx, call{
		operation: "products.get",
		method:    http.MethodGet,
		path:      "products/" + url.PathEscape(trimmed),
		session:   session,
	}, &env)
	if err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// ListTaxons returns the category tree flattened into a list.
func (c *Client) ListTaxons(ctx context.Context, session types.Session) ([]Taxon, error) {
	var env dataEnvelope[[]Taxon]
	err := c.do(ctx, call{
		operation: "taxons.list",
		method:    http.MethodGet,
		path:      "taxons",
		query:     url.Values{"limit": {"500"}},
		session:   session,
	}, &env)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

// ListCountries returns the countries available for addresses.
func (c *Client) ListCountries(ctx context.Context, session types.Session) ([]Country, error) {
	var env dataEnvelope[[]Country]
	err := c.do(ctx, call{
		operation: "countries.list",
		method:    http.MethodGet,
		path:      "countries",
		session:   session,
	}, &env)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}
