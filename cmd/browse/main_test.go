package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/angelmondragon/spree-storefront/internal/listing"
	"github.com/angelmondragon/spree-storefront/pkg/spree"
)

func TestReadCommandsAppliesFiltersAndSignals(t *testing.T) {
	fetch := func(_ context.Context, _ listing.ActiveFilters, _ string, page int) (*spree.ProductPage, error) {
		return &spree.ProductPage{
			Products: []spree.Product{{ID: "p"}},
			Meta:     spree.ListMeta{Page: page, Pages: 2, Count: 2},
		}, nil
	}
	agg, err := listing.NewAggregator(fetch)
	if err != nil {
		t.Fatalf("aggregator: %v", err)
	}

	visible := make(chan struct{}, 4)
	in := strings.NewReader("f sort=name-a-z&q=shirt\n\nq\nignored\n")
	if err := readCommands(context.Background(), in, agg, visible); err != nil {
		t.Fatalf("read commands: %v", err)
	}

	snap := agg.Snapshot()
	if snap.Filters.SortBy != listing.SortNameAscending || snap.Search != "shirt" {
		t.Fatalf("filters not applied: %+v", snap)
	}
	if len(visible) != 1 {
		t.Fatalf("expected one visibility signal, got %d", len(visible))
	}
}

func TestRenderSnapshot(t *testing.T) {
	var buf bytes.Buffer
	render(&buf)(listing.Snapshot{Page: 2, Pages: 2, Total: 24, Products: make([]spree.Product, 24)})
	out := buf.String()
	if !strings.Contains(out, "page 2/2, 24 of 24 products") || !strings.Contains(out, "end of results") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestReadCommandsIgnoresWordsStartingWithF(t *testing.T) {
	calls := 0
	fetch := func(_ context.Context, _ listing.ActiveFilters, _ string, page int) (*spree.ProductPage, error) {
		calls++
		return &spree.ProductPage{Meta: spree.ListMeta{Page: page, Pages: 1}}, nil
	}
	agg, err := listing.NewAggregator(fetch)
	if err != nil {
		t.Fatalf("aggregator: %v", err)
	}

	in := strings.NewReader("foo\nfsort=name-a-z\nq\n")
	if err := readCommands(context.Background(), in, agg, make(chan struct{}, 1)); err != nil {
		t.Fatalf("read commands: %v", err)
	}
	if calls != 0 || agg.Snapshot().LoadID != 0 {
		t.Fatalf("only \"f \" lines apply filters, fetches=%d", calls)
	}
}
