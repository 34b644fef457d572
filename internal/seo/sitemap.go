package seo

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/angelmondragon/spree-storefront/pkg/config"
	"github.com/angelmondragon/spree-storefront/pkg/logger"
	"github.com/angelmondragon/spree-storefront/pkg/pagination"
	"github.com/angelmondragon/spree-storefront/pkg/redis"
	"github.com/angelmondragon/spree-storefront/pkg/spree"
	"github.com/angelmondragon/spree-storefront/pkg/types"
)

const (
	sitemapNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"
	// maxSitemapURLs is the per-file limit of the sitemap protocol.
	maxSitemapURLs  = 50000
	maxCatalogPages = 500
	cacheScope      = "sitemap"
)

type catalog interface {
	ListProducts(ctx context.Context, session types.Session, q spree.ProductQuery) (*spree.ProductPage, error)
	ListTaxons(ctx context.Context, session types.Session) ([]spree.Taxon, error)
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

// Settings controls robots.txt and sitemap output.
type Settings struct {
	PublicURL  string
	Markets    []config.CountryLocale
	LocaleMode string
	DisallowAI bool
	CacheTTL   time.Duration
}

// Service renders the crawler-facing documents.
type Service interface {
	Robots() string
	Sitemap(ctx context.Context) ([]byte, error)
	Warm(ctx context.Context) error
}

type service struct {
	catalog  catalog
	cache    redis.Cache
	settings Settings
	markets  []config.CountryLocale
	logg     *logger.Logger
	builds   singleflight.Group
}

// NewService builds the SEO service. cache may be nil.
func NewService(catalog catalog, cache redis.Cache, settings Settings, logg *logger.Logger) (Service, error) {
	if catalog == nil {
		return nil, errors.New("catalog client required")
	}
	if _, err := url.Parse(settings.PublicURL); err != nil || settings.PublicURL == "" {
		return nil, fmt.Errorf("public url required")
	}
	markets := sitemapMarkets(settings.Markets, settings.LocaleMode)
	if len(markets) == 0 {
		return nil, errors.New("at least one sitemap market required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	settings.PublicURL = strings.TrimRight(settings.PublicURL, "/")
	return &service{catalog: catalog, cache: cache, settings: settings, markets: markets, logg: logg}, nil
}

// sitemapMarkets applies the locale mode: "all" keeps every pair, "default"
// keeps the first locale listed for each country.
func sitemapMarkets(markets []config.CountryLocale, mode string) []config.CountryLocale {
	if mode == config.SitemapLocaleModeAll {
		return append([]config.CountryLocale(nil), markets...)
	}
	seen := make(map[string]struct{}, len(markets))
	out := make([]config.CountryLocale, 0, len(markets))
	for _, m := range markets {
		if _, ok := seen[m.Country]; ok {
			continue
		}
		seen[m.Country] = struct{}{}
		out = append(out, m)
	}
	return out
}

func (s *service) Robots() string {
	return Robots(s.settings.PublicURL, s.settings.DisallowAI)
}

// Sitemap lists the home, category and product pages for every market.
// Concurrent misses share one catalog walk.
func (s *service) Sitemap(ctx context.Context) ([]byte, error) {
	if key := s.cacheKey(); key != "" {
		var cached string
		if hit, err := s.cache.GetJSON(ctx, key, &cached); err == nil && hit {
			return []byte(cached), nil
		}
	}
	return s.rebuild(ctx)
}

// Warm regenerates the sitemap and refreshes the cache.
func (s *service) Warm(ctx context.Context) error {
	body, err := s.rebuild(ctx)
	if err != nil {
		return err
	}
	s.logg.Info(s.logg.WithField(ctx, "bytes", len(body)), "seo.sitemap.warmed")
	return nil
}

func (s *service) rebuild(ctx context.Context) ([]byte, error) {
	v, err, _ := s.builds.Do(cacheScope, func() (any, error) {
		// The walk outlives a single crawler disconnecting.
		return s.build(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (s *service) cacheKey() string {
	if s.cache == nil || s.settings.CacheTTL <= 0 {
		return ""
	}
	return s.cache.CacheKey(cacheScope)
}

func (s *service) build(ctx context.Context) ([]byte, error) {
	products, err := s.allProducts(ctx)
	if err != nil {
		return nil, err
	}
	taxons, err := s.catalog.ListTaxons(ctx, types.Session{})
	if err != nil {
		return nil, err
	}

	set := urlSet{XMLNS: sitemapNamespace}
	for _, market := range s.markets {
		prefix := s.settings.PublicURL + "/" + market.Country + "/" + market.Locale
		set.URLs = append(set.URLs, sitemapURL{Loc: prefix, ChangeFreq: "daily", Priority: "1.0"})
		for _, taxon := range taxons {
			set.URLs = append(set.URLs, sitemapURL{
				Loc:        prefix + "/t/" + escapePath(taxon.Permalink),
				LastMod:    lastMod(taxon.UpdatedAt),
				ChangeFreq: "weekly",
				Priority:   "0.7",
			})
		}
		for _, product := range products {
			set.URLs = append(set.URLs, sitemapURL{
				Loc:        prefix + "/products/" + url.PathEscape(product.Slug),
				LastMod:    lastMod(product.UpdatedAt),
				ChangeFreq: "weekly",
				Priority:   "0.8",
			})
		}
	}
	if len(set.URLs) > maxSitemapURLs {
		s.logg.Warn(s.logg.WithField(ctx, "url_count", len(set.URLs)), "seo.sitemap.truncated")
		set.URLs = set.URLs[:maxSitemapURLs]
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		return nil, fmt.Errorf("encode sitemap: %w", err)
	}
	buf.WriteByte('\n')

	if key := s.cacheKey(); key != "" {
		if err := s.cache.SetJSON(ctx, key, buf.String(), s.settings.CacheTTL); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "cache_key", key), "seo.sitemap.cache_failed")
		}
	}
	return buf.Bytes(), nil
}

func (s *service) allProducts(ctx context.Context) ([]spree.Product, error) {
	var out []spree.Product
	for page := pagination.FirstPage; page <= maxCatalogPages; page++ {
		result, err := s.catalog.ListProducts(ctx, types.Session{}, spree.ProductQuery{Page: page, Limit: pagination.MaxLimit})
		if err != nil {
			return nil, err
		}
		out = append(out, result.Products...)
		if !pagination.HasMore(page, result.Meta.Pages) {
			break
		}
	}
	return out, nil
}

func escapePath(permalink string) string {
	parts := strings.Split(strings.Trim(permalink, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func lastMod(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}
