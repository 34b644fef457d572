package listing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/spree-storefront/pkg/spree"
)

type fetchCall struct {
	filters ActiveFilters
	search  string
	page    int
}

// fakeCatalog serves pages of a fixed-size catalog and can hold calls until released.
type fakeCatalog struct {
	mu     sync.Mutex
	pages  int
	calls  []fetchCall
	gates  map[int]chan struct{}
	failOn map[int]error
}

func newFakeCatalog(pages int) *fakeCatalog {
	return &fakeCatalog{pages: pages, gates: map[int]chan struct{}{}, failOn: map[int]error{}}
}

// hold makes the n-th call (1-based) block until the returned func is called.
func (f *fakeCatalog) hold(n int) func() {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gates[n] = gate
	f.mu.Unlock()
	return func() { close(gate) }
}

func (f *fakeCatalog) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeCatalog) fetch(ctx context.Context, filters ActiveFilters, search string, page int) (*spree.ProductPage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fetchCall{filters: filters, search: search, page: page})
	n := len(f.calls)
	gate := f.gates[n]
	err := f.failOn[n]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &spree.ProductPage{
		Products: []spree.Product{{ID: fmt.Sprintf("%s-p%d", search, page), Slug: fmt.Sprintf("%s-%d", search, page)}},
		Meta:     spree.ListMeta{Count: f.pages, Page: page, Pages: f.pages, Limit: 1},
	}, nil
}

func newTestAggregator(t *testing.T, catalog *fakeCatalog, opts ...AggregatorOption) *Aggregator {
	t.Helper()
	agg, err := NewAggregator(catalog.fetch, opts...)
	if err != nil {
		t.Fatalf("new aggregator: %v", err)
	}
	return agg
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestNewAggregatorRequiresFetch(t *testing.T) {
	if _, err := NewAggregator(nil); err == nil {
		t.Fatalf("expected error for nil fetch func")
	}
}

func TestHasMoreAcrossPages(t *testing.T) {
	ctx := context.Background()
	catalog := newFakeCatalog(3)
	agg := newTestAggregator(t, catalog)

	if _, err := agg.Apply(ctx, ActiveFilters{}, "tee"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	snap := agg.Snapshot()
	if snap.Page != 1 || !snap.HasMore {
		t.Fatalf("after page 1 of 3 expected hasMore, got page=%d hasMore=%v", snap.Page, snap.HasMore)
	}

	for i := 0; i < 2; i++ {
		loaded, err := agg.LoadMore(ctx)
		if err != nil || !loaded {
			t.Fatalf("load more %d: loaded=%v err=%v", i, loaded, err)
		}
	}
	snap = agg.Snapshot()
	if snap.Page != 3 || snap.HasMore {
		t.Fatalf("after page 3 of 3 expected no more, got page=%d hasMore=%v", snap.Page, snap.HasMore)
	}
	if len(snap.Products) != 3 || snap.Products[2].ID != "tee-p3" {
		t.Fatalf("expected pages appended in order, got %+v", snap.Products)
	}

	loaded, err := agg.LoadMore(ctx)
	if err != nil || loaded {
		t.Fatalf("load more past last page should be a no-op, loaded=%v err=%v", loaded, err)
	}
	if catalog.callCount() != 3 {
		t.Fatalf("expected 3 fetches, got %d", catalog.callCount())
	}
}

func TestApplyResetsPage(t *testing.T) {
	ctx := context.Background()
	catalog := newFakeCatalog(3)
	agg := newTestAggregator(t, catalog)

	_, _ = agg.Apply(ctx, ActiveFilters{}, "")
	_, _ = agg.LoadMore(ctx)
	if agg.Snapshot().Page != 2 {
		t.Fatalf("expected page 2 before filter change")
	}

	if _, err := agg.Apply(ctx, ActiveFilters{Availability: AvailabilityInStock}, ""); err != nil {
		t.Fatalf("apply: %v", err)
	}
	snap := agg.Snapshot()
	if snap.Page != 1 || len(snap.Products) != 1 {
		t.Fatalf("filter change must restart at page 1, got page=%d products=%d", snap.Page, len(snap.Products))
	}
	last := catalog.calls[len(catalog.calls)-1]
	if last.page != 1 || last.filters.Availability != AvailabilityInStock {
		t.Fatalf("unexpected reload call %+v", last)
	}
}

func TestApplyIdenticalFiltersSkipsReload(t *testing.T) {
	ctx := context.Background()
	catalog := newFakeCatalog(2)
	agg := newTestAggregator(t, catalog)

	filters := ActiveFilters{PriceMin: price("10"), PriceMax: price("50")}
	if reloaded, _ := agg.Apply(ctx, filters, "tee"); !reloaded {
		t.Fatalf("first apply must load")
	}
	same := ActiveFilters{PriceMin: price("10"), PriceMax: price("50")}
	reloaded, err := agg.Apply(ctx, same, " tee ")
	if err != nil || reloaded {
		t.Fatalf("identical filters must not reload, reloaded=%v err=%v", reloaded, err)
	}
	if catalog.callCount() != 1 {
		t.Fatalf("expected a single fetch, got %d", catalog.callCount())
	}
}

func TestStaleReloadIsDiscarded(t *testing.T) {
	ctx := context.Background()
	catalog := newFakeCatalog(3)
	releaseFirst := catalog.hold(1)
	agg := newTestAggregator(t, catalog)

	firstDone := make(chan error, 1)
	go func() {
		_, err := agg.Apply(ctx, ActiveFilters{}, "old")
		firstDone <- err
	}()
	waitFor(t, func() bool { return catalog.callCount() == 1 })

	if _, err := agg.Apply(ctx, ActiveFilters{}, "new"); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	releaseFirst()

	if err := <-firstDone; !errors.Is(err, ErrStale) {
		t.Fatalf("superseded load should report ErrStale, got %v", err)
	}
	snap := agg.Snapshot()
	if len(snap.Products) != 1 || snap.Products[0].ID != "new-p1" {
		t.Fatalf("stale response overwrote state: %+v", snap.Products)
	}
	if snap.LoadID != 2 || snap.Loading {
		t.Fatalf("unexpected load state id=%d loading=%v", snap.LoadID, snap.Loading)
	}
}

func TestReloadCancelsSupersededFetch(t *testing.T) {
	ctx := context.Background()
	catalog := newFakeCatalog(3)
	_ = catalog.hold(1)
	agg := newTestAggregator(t, catalog)

	firstDone := make(chan error, 1)
	go func() {
		_, err := agg.Apply(ctx, ActiveFilters{}, "old")
		firstDone <- err
	}()
	waitFor(t, func() bool { return catalog.callCount() == 1 })

	if _, err := agg.Apply(ctx, ActiveFilters{}, "new"); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	select {
	case err := <-firstDone:
		if !errors.Is(err, ErrStale) {
			t.Fatalf("expected ErrStale, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("superseded fetch was not canceled")
	}
}

func TestReloadFailureResetsCursor(t *testing.T) {
	ctx := context.Background()
	catalog := newFakeCatalog(3)
	catalog.failOn[3] = errors.New("boom")
	agg := newTestAggregator(t, catalog)

	if _, err := agg.Apply(ctx, ActiveFilters{}, "old"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if loaded, err := agg.LoadMore(ctx); err != nil || !loaded {
		t.Fatalf("load more: loaded=%v err=%v", loaded, err)
	}
	if _, err := agg.Apply(ctx, ActiveFilters{}, "new"); err == nil {
		t.Fatalf("expected reload failure")
	}

	snap := agg.Snapshot()
	if snap.Page != 1 || snap.HasMore || len(snap.Products) != 0 {
		t.Fatalf("failed reload kept the old cursor: page=%d hasMore=%v products=%+v", snap.Page, snap.HasMore, snap.Products)
	}
	if loaded, err := agg.LoadMore(ctx); err != nil || loaded {
		t.Fatalf("load more after a failed reload must not fetch, loaded=%v err=%v", loaded, err)
	}
	if catalog.callCount() != 3 {
		t.Fatalf("expected no fetch after failed reload, calls=%d", catalog.callCount())
	}

	applied, err := agg.Apply(ctx, ActiveFilters{}, "new")
	if err != nil || !applied {
		t.Fatalf("identical filters must retry after a failure, applied=%v err=%v", applied, err)
	}
	snap = agg.Snapshot()
	if snap.Page != 1 || len(snap.Products) != 1 || snap.Products[0].ID != "new-p1" || !snap.HasMore {
		t.Fatalf("unexpected state after retry: %+v", snap)
	}
}

func TestReloadCancelsSupersededLoadMore(t *testing.T) {
	ctx := context.Background()
	catalog := newFakeCatalog(3)
	agg := newTestAggregator(t, catalog)
	_, _ = agg.Apply(ctx, ActiveFilters{}, "old")

	_ = catalog.hold(2)
	moreDone := make(chan error, 1)
	go func() {
		_, err := agg.LoadMore(ctx)
		moreDone <- err
	}()
	waitFor(t, func() bool { return catalog.callCount() == 2 })

	if _, err := agg.Apply(ctx, ActiveFilters{}, "new"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	select {
	case err := <-moreDone:
		if !errors.Is(err, ErrStale) {
			t.Fatalf("expected ErrStale, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("superseded load more was not canceled")
	}
}

func TestStaleLoadMoreIsDiscarded(t *testing.T) {
	ctx := context.Background()
	catalog := newFakeCatalog(3)
	agg := newTestAggregator(t, catalog)
	_, _ = agg.Apply(ctx, ActiveFilters{}, "old")

	releaseMore := catalog.hold(2)
	moreDone := make(chan error, 1)
	go func() {
		_, err := agg.LoadMore(ctx)
		moreDone <- err
	}()
	waitFor(t, func() bool { return catalog.callCount() == 2 })

	if _, err := agg.Apply(ctx, ActiveFilters{}, "new"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	releaseMore()

	if err := <-moreDone; !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
	snap := agg.Snapshot()
	if snap.Page != 1 || len(snap.Products) != 1 || snap.Products[0].ID != "new-p1" {
		t.Fatalf("stale page appended: page=%d products=%+v", snap.Page, snap.Products)
	}
}

func TestLoadMoreGuardPreventsOverlap(t *testing.T) {
	ctx := context.Background()
	catalog := newFakeCatalog(5)
	agg := newTestAggregator(t, catalog)
	_, _ = agg.Apply(ctx, ActiveFilters{}, "")

	release := catalog.hold(2)
	done := make(chan struct{})
	go func() {
		_, _ = agg.LoadMore(ctx)
		close(done)
	}()
	waitFor(t, func() bool { return agg.Snapshot().LoadingMore })

	loaded, err := agg.LoadMore(ctx)
	if err != nil || loaded {
		t.Fatalf("overlapping load more must be skipped, loaded=%v err=%v", loaded, err)
	}
	release()
	<-done
	if catalog.callCount() != 2 || agg.Snapshot().Page != 2 {
		t.Fatalf("expected exactly one load more, calls=%d page=%d", catalog.callCount(), agg.Snapshot().Page)
	}
}

func TestLoadMoreErrorKeepsPage(t *testing.T) {
	ctx := context.Background()
	catalog := newFakeCatalog(3)
	catalog.failOn[2] = errors.New("boom")
	agg := newTestAggregator(t, catalog)
	_, _ = agg.Apply(ctx, ActiveFilters{}, "")

	if _, err := agg.LoadMore(ctx); err == nil {
		t.Fatalf("expected error")
	}
	snap := agg.Snapshot()
	if snap.Page != 1 || snap.Err == nil || snap.LoadingMore {
		t.Fatalf("unexpected state after failure %+v", snap)
	}
	if loaded, err := agg.LoadMore(ctx); err != nil || !loaded {
		t.Fatalf("retry by caller should succeed, loaded=%v err=%v", loaded, err)
	}
	if agg.Snapshot().Err != nil {
		t.Fatalf("successful load should clear the error")
	}
}

func TestWatchLoadsOnVisibility(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	catalog := newFakeCatalog(3)
	var mu sync.Mutex
	var updates []int
	agg := newTestAggregator(t, catalog, WithUpdateHook(func(s Snapshot) {
		mu.Lock()
		updates = append(updates, s.Page)
		mu.Unlock()
	}))
	_, _ = agg.Apply(ctx, ActiveFilters{}, "")

	visible := make(chan struct{})
	watchDone := make(chan error, 1)
	go func() { watchDone <- agg.Watch(ctx, visible) }()

	for i := 0; i < 4; i++ {
		visible <- struct{}{}
		want := min(i+2, 3)
		waitFor(t, func() bool {
			s := agg.Snapshot()
			return s.Page == want && !s.LoadingMore
		})
	}
	close(visible)
	if err := <-watchDone; err != nil {
		t.Fatalf("watch: %v", err)
	}

	if got := agg.Snapshot().Page; got != 3 {
		t.Fatalf("expected to stop at last page, got %d", got)
	}
	if catalog.callCount() != 3 {
		t.Fatalf("signals past the last page must not fetch, calls=%d", catalog.callCount())
	}
	mu.Lock()
	defer mu.Unlock()
	if len(updates) != 3 || updates[2] != 3 {
		t.Fatalf("unexpected update hook pages %v", updates)
	}
}

func TestWatchStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	agg := newTestAggregator(t, newFakeCatalog(1))
	cancel()
	if err := agg.Watch(ctx, make(chan struct{})); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
