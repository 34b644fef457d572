package listing

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/angelmondragon/spree-storefront/pkg/logger"
	"github.com/angelmondragon/spree-storefront/pkg/pagination"
	"github.com/angelmondragon/spree-storefront/pkg/spree"
)

// ErrStale is returned when a load finished after a newer load replaced it.
var ErrStale = errors.New("listing load superseded")

// FetchFunc loads one page of products for the given filters and search text.
type FetchFunc func(ctx context.Context, filters ActiveFilters, search string, page int) (*spree.ProductPage, error)

// Snapshot is a copy of the aggregator state.
type Snapshot struct {
	Filters     ActiveFilters
	Search      string
	Products    []spree.Product
	Page        int
	Pages       int
	Total       int
	HasMore     bool
	Loading     bool
	LoadingMore bool
	LoadID      uint64
	Err         error
}

// CanLoadMore reports whether a load-more request would be issued.
func (s Snapshot) CanLoadMore() bool {
	return s.HasMore && !s.Loading && !s.LoadingMore
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithUpdateHook registers fn to receive a snapshot after every applied load.
func WithUpdateHook(fn func(Snapshot)) AggregatorOption {
	return func(a *Aggregator) {
		a.onUpdate = fn
	}
}

// WithAggregatorLogger attaches a logger for failed loads.
func WithAggregatorLogger(logg *logger.Logger) AggregatorOption {
	return func(a *Aggregator) {
		a.logg = logg
	}
}

// Aggregator accumulates product pages for an infinite-scroll listing.
// Results of a load are applied only while its load id is still current.
type Aggregator struct {
	fetch    FetchFunc
	logg     *logger.Logger
	onUpdate func(Snapshot)

	mu          sync.Mutex
	started     bool
	filters     ActiveFilters
	search      string
	loadID      uint64
	loadCtx     context.Context
	cancelLoad  context.CancelFunc
	products    []spree.Product
	page        int
	pages       int
	total       int
	loading     bool
	loadingMore bool
	err         error
}

// NewAggregator builds an aggregator over fetch.
func NewAggregator(fetch FetchFunc, opts ...AggregatorOption) (*Aggregator, error) {
	if fetch == nil {
		return nil, errors.New("listing fetch func required")
	}
	a := &Aggregator{fetch: fetch, page: pagination.FirstPage}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a, nil
}

// Apply sets the filters and search text and reloads from page 1. It returns
// false without fetching when both serialize identically to the current ones
// and the last load succeeded.
func (a *Aggregator) Apply(ctx context.Context, filters ActiveFilters, search string) (bool, error) {
	search = strings.TrimSpace(search)

	a.mu.Lock()
	if a.started && a.err == nil && a.search == search && a.filters.Equal(filters) {
		a.mu.Unlock()
		return false, nil
	}
	a.filters = filters
	a.search = search
	a.mu.Unlock()

	return true, a.Reload(ctx)
}

// Reload fetches page 1 for the current filters, replacing the accumulated products.
// The cursor is cleared up front so nothing can be appended until page 1 arrives.
// Loads started for earlier filters are canceled.
func (a *Aggregator) Reload(ctx context.Context) error {
	a.mu.Lock()
	a.started = true
	a.loadID++
	id := a.loadID
	if a.cancelLoad != nil {
		a.cancelLoad()
	}
	a.loadCtx, a.cancelLoad = context.WithCancel(context.Background())
	ctx, release := a.loadContextLocked(ctx)
	defer release()
	filters, search := a.filters, a.search
	a.products = nil
	a.page = pagination.FirstPage
	a.pages = 0
	a.total = 0
	a.loading = true
	a.loadingMore = false
	a.mu.Unlock()

	result, err := a.fetch(ctx, filters, search, pagination.FirstPage)

	a.mu.Lock()
	if id != a.loadID {
		a.mu.Unlock()
		return ErrStale
	}
	a.loading = false
	if err != nil {
		a.err = err
		snap := a.snapshotLocked()
		a.mu.Unlock()
		a.logFailure(ctx, "listing.reload.failed", err)
		a.notify(snap)
		return err
	}
	a.err = nil
	a.products = append([]spree.Product(nil), result.Products...)
	a.page = pagination.FirstPage
	a.pages = result.Meta.Pages
	a.total = result.Meta.Count
	snap := a.snapshotLocked()
	a.mu.Unlock()

	a.notify(snap)
	return nil
}

// LoadMore fetches the next page and appends it. It returns false without
// fetching when no further page exists or a load is already in flight.
func (a *Aggregator) LoadMore(ctx context.Context) (bool, error) {
	a.mu.Lock()
	if !a.started || a.loading || a.loadingMore || !pagination.HasMore(a.page, a.pages) {
		a.mu.Unlock()
		return false, nil
	}
	a.loadingMore = true
	id := a.loadID
	next := a.page + 1
	filters, search := a.filters, a.search
	ctx, release := a.loadContextLocked(ctx)
	a.mu.Unlock()
	defer release()

	result, err := a.fetch(ctx, filters, search, next)

	a.mu.Lock()
	if id != a.loadID {
		a.mu.Unlock()
		return false, ErrStale
	}
	a.loadingMore = false
	if err != nil {
		a.err = err
		snap := a.snapshotLocked()
		a.mu.Unlock()
		a.logFailure(ctx, "listing.load_more.failed", err)
		a.notify(snap)
		return false, err
	}
	a.err = nil
	a.products = append(a.products, result.Products...)
	a.page = next
	a.pages = result.Meta.Pages
	a.total = result.Meta.Count
	snap := a.snapshotLocked()
	a.mu.Unlock()

	a.notify(snap)
	return true, nil
}

// Watch calls LoadMore each time the sentinel becomes visible, as long as more
// pages exist and nothing is loading. It returns when visible is closed or ctx ends,
// after in-flight loads finish.
func (a *Aggregator) Watch(ctx context.Context, visible <-chan struct{}) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-visible:
			if !ok {
				return nil
			}
			if !a.Snapshot().CanLoadMore() {
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = a.LoadMore(ctx)
			}()
		}
	}
}

// loadContextLocked derives a fetch context that is canceled with the caller's
// ctx or when the next Reload supersedes the current load id.
func (a *Aggregator) loadContextLocked(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(a.loadCtx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// Snapshot returns a copy of the current state.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

func (a *Aggregator) snapshotLocked() Snapshot {
	return Snapshot{
		Filters:     a.filters,
		Search:      a.search,
		Products:    append([]spree.Product(nil), a.products...),
		Page:        a.page,
		Pages:       a.pages,
		Total:       a.total,
		HasMore:     pagination.HasMore(a.page, a.pages),
		Loading:     a.loading,
		LoadingMore: a.loadingMore,
		LoadID:      a.loadID,
		Err:         a.err,
	}
}

func (a *Aggregator) notify(s Snapshot) {
	if a.onUpdate != nil {
		a.onUpdate(s)
	}
}

func (a *Aggregator) logFailure(ctx context.Context, msg string, err error) {
	if a.logg == nil || errors.Is(err, context.Canceled) {
		return
	}
	a.logg.Error(ctx, msg, err)
}
