package listing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/spree-storefront/pkg/logger"
	"github.com/angelmondragon/spree-storefront/pkg/pagination"
	"github.com/angelmondragon/spree-storefront/pkg/redis"
	"github.com/angelmondragon/spree-storefront/pkg/spree"
	"github.com/angelmondragon/spree-storefront/pkg/types"
)

const (
	cacheScopeProducts = "products"
	cacheScopeTaxons   = "taxons"
)

type catalog interface {
	ListProducts(ctx context.Context, session types.Session, q spree.ProductQuery) (*spree.ProductPage, error)
	GetProduct(ctx context.Context, session types.Session, slug string) (*spree.Product, error)
	ListTaxons(ctx context.Context, session types.Session) ([]spree.Taxon, error)
}

// PageRequest is a stateless listing page request.
type PageRequest struct {
	Filters ActiveFilters
	Search  string
	Page    int
	Limit   int
}

// PageResult is one listing page with its pagination state.
type PageResult struct {
	Products []spree.Product `json:"products"`
	Page     int             `json:"page"`
	Pages    int             `json:"pages"`
	Total    int             `json:"total"`
	Limit    int             `json:"limit"`
	HasMore  bool            `json:"has_more"`
	Filters  ActiveFilters   `json:"filters"`
	Search   string          `json:"search,omitempty"`
}

// Service exposes catalog reads for the listing pages.
type Service interface {
	Page(ctx context.Context, session types.Session, req PageRequest) (*PageResult, error)
	Product(ctx context.Context, session types.Session, slug string) (*spree.Product, error)
	Taxons(ctx context.Context, session types.Session) ([]spree.Taxon, error)
	Fetcher(session types.Session, limit int) FetchFunc
}

type service struct {
	catalog  catalog
	cache    redis.Cache
	cacheTTL time.Duration
	pageSize int
	logg     *logger.Logger
}

// ServiceParams groups the listing service dependencies.
type ServiceParams struct {
	Catalog  catalog
	Cache    redis.Cache
	CacheTTL time.Duration
	PageSize int
	Logger   *logger.Logger
}

// NewService builds the listing service. Cache is optional.
func NewService(params ServiceParams) (Service, error) {
	if params.Catalog == nil {
		return nil, errors.New("catalog client required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		catalog:  params.Catalog,
		cache:    params.Cache,
		cacheTTL: params.CacheTTL,
		pageSize: pagination.NormalizeLimit(params.PageSize),
		logg:     logg,
	}, nil
}

// Page fetches a single page. Anonymous sessions are served from the cache when possible.
func (s *service) Page(ctx context.Context, session types.Session, req PageRequest) (*PageResult, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = s.pageSize
	}
	params := pagination.Params{Page: req.Page, Limit: limit}.Normalize()
	query := spree.ProductQuery{
		Params: upstreamQuery(req.Filters, req.Search),
		Page:   params.Page,
		Limit:  params.Limit,
	}

	page, err := s.cachedProducts(ctx, session, query)
	if err != nil {
		return nil, err
	}

	current := page.Meta.Page
	if current <= 0 {
		current = params.Page
	}
	return &PageResult{
		Products: page.Products,
		Page:     current,
		Pages:    page.Meta.Pages,
		Total:    page.Meta.Count,
		Limit:    params.Limit,
		HasMore:  pagination.HasMore(current, page.Meta.Pages),
		Filters:  req.Filters,
		Search:   strings.TrimSpace(req.Search),
	}, nil
}

func (s *service) Product(ctx context.Context, session types.Session, slug string) (*spree.Product, error) {
	return s.catalog.GetProduct(ctx, session, slug)
}

// Taxons returns the category list, cached per market.
func (s *service) Taxons(ctx context.Context, session types.Session) ([]spree.Taxon, error) {
	var key string
	if s.cache != nil {
		key = s.cache.CacheKey(cacheScopeTaxons, session.Country, session.Locale)
		var cached []spree.Taxon
		if hit, err := s.cache.GetJSON(ctx, key, &cached); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "cache_key", key), "listing.cache.read_failed")
		} else if hit {
			return cached, nil
		}
	}

	taxons, err := s.catalog.ListTaxons(ctx, session)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, taxons)
	return taxons, nil
}

// Fetcher adapts the catalog to an Aggregator for one session.
func (s *service) Fetcher(session types.Session, limit int) FetchFunc {
	if limit <= 0 {
		limit = s.pageSize
	}
	return func(ctx context.Context, filters ActiveFilters, search string, page int) (*spree.ProductPage, error) {
		return s.catalog.ListProducts(ctx, session, spree.ProductQuery{
			Params: upstreamQuery(filters, search),
			Page:   page,
			Limit:  pagination.NormalizeLimit(limit),
		})
	}
}

func (s *service) cachedProducts(ctx context.Context, session types.Session, query spree.ProductQuery) (*spree.ProductPage, error) {
	// Signed-in customers can see account-specific prices.
	if s.cache == nil || session.SignedIn() {
		return s.catalog.ListProducts(ctx, session, query)
	}

	key := s.cache.CacheKey(cacheScopeProducts, session.Country, session.Locale, queryDigest(query))
	var cached spree.ProductPage
	if hit, err := s.cache.GetJSON(ctx, key, &cached); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "cache_key", key), "listing.cache.read_failed")
	} else if hit {
		return &cached, nil
	}

	page, err := s.catalog.ListProducts(ctx, session, query)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, page)
	return page, nil
}

func (s *service) store(ctx context.Context, key string, value any) {
	if s.cache == nil || key == "" || s.cacheTTL <= 0 {
		return
	}
	if err := s.cache.SetJSON(ctx, key, value, s.cacheTTL); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "cache_key", key), "listing.cache.write_failed")
	}
}

// queryDigest hashes the encoded query; url.Values.Encode sorts keys so equal queries share a key.
func queryDigest(q spree.ProductQuery) string {
	sum := sha256.Sum256([]byte(q.Values().Encode() + "|" + strconv.Itoa(q.Limit)))
	return hex.EncodeToString(sum[:16])
}
