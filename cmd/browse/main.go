package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/spree-storefront/internal/listing"
	"github.com/angelmondragon/spree-storefront/pkg/config"
	"github.com/angelmondragon/spree-storefront/pkg/logger"
	"github.com/angelmondragon/spree-storefront/pkg/spree"
	"github.com/angelmondragon/spree-storefront/pkg/types"
)

const usage = `Enter   load the next page (the end of the list scrolled into view)
f QUERY apply filters, e.g. f price_min=10&sort=price-low-to-high&q=shirt
q       quit
`

func main() {
	_ = godotenv.Load()

	country := flag.String("country", "", "market country code sent to the commerce API")
	locale := flag.String("locale", "", "market locale sent to the commerce API")
	limit := flag.Int("limit", 0, "products per page (defaults to STOREFRONT_LISTING_PAGE_SIZE)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logg := logger.New(logger.Options{
		ServiceName: "browse",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Output:      os.Stderr,
	})

	client, err := spree.NewClient(cfg.Spree, spree.WithLogger(logg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "spree client: %v\n", err)
		os.Exit(1)
	}
	svc, err := listing.NewService(listing.ServiceParams{Catalog: client, PageSize: cfg.Listing.PageSize, Logger: logg})
	if err != nil {
		fmt.Fprintf(os.Stderr, "listing service: %v\n", err)
		os.Exit(1)
	}

	session := types.Session{Country: strings.ToLower(*country), Locale: strings.ToLower(*locale)}
	agg, err := listing.NewAggregator(svc.Fetcher(session, *limit),
		listing.WithAggregatorLogger(logg),
		listing.WithUpdateHook(render(os.Stdout)),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "aggregator: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Print(usage)
	if _, err := agg.Apply(ctx, listing.ActiveFilters{}, ""); err != nil {
		fmt.Fprintf(os.Stderr, "initial load: %v\n", err)
	}

	visible := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- agg.Watch(ctx, visible) }()

	if err := readCommands(ctx, os.Stdin, agg, visible); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
	}
	close(visible)
	if err := <-done; err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "watch: %v\n", err)
	}
}

func readCommands(ctx context.Context, in io.Reader, agg *listing.Aggregator, visible chan<- struct{}) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			select {
			case visible <- struct{}{}:
			case <-ctx.Done():
				return nil
			}
		case line == "q":
			return nil
		case line == "f" || strings.HasPrefix(line, "f "):
			values, err := url.ParseQuery(strings.TrimSpace(strings.TrimPrefix(line, "f")))
			if err != nil {
				fmt.Fprintf(os.Stderr, "bad filter query: %v\n", err)
				continue
			}
			filters, err := listing.ParseFilters(values)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
				continue
			}
			if _, err := agg.Apply(ctx, filters, values.Get("q")); err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
			}
		default:
			fmt.Print(usage)
		}
	}
	return scanner.Err()
}

func render(w io.Writer) func(listing.Snapshot) {
	return func(s listing.Snapshot) {
		switch {
		case s.Loading:
			fmt.Fprintln(w, "loading...")
			return
		case s.LoadingMore:
			fmt.Fprintln(w, "loading more...")
			return
		case s.Err != nil:
			fmt.Fprintf(w, "error: %v\n", s.Err)
			return
		}
		fmt.Fprintf(w, "page %d/%d, %d of %d products\n", s.Page, s.Pages, len(s.Products), s.Total)
		if !s.HasMore {
			fmt.Fprintln(w, "end of results")
		}
	}
}
