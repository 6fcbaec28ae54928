package square

import (
	"context"
	"io"
	"log"
	"time"
)

// Fetcher drives cursor-paginated search endpoints to completion, applying
// the client-side date-window filter and a defensive record cap.
type Fetcher struct {
	client     *Client
	logger     *log.Logger
	windowDays int
	maxRecords int
	pageLimit  int
}

// NewFetcher builds a Fetcher. windowDays bounds how far back records are
// kept; maxRecords caps accumulation per fetch (0 disables the cap).
func NewFetcher(client *Client, logger *log.Logger, windowDays, maxRecords int) *Fetcher {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Fetcher{
		client:     client,
		logger:     logger,
		windowDays: windowDays,
		maxRecords: maxRecords,
		pageLimit:  100,
	}
}

// Customers fetches the merchant's customers created or updated within the
// history window. The search endpoint filters server-side on created_at;
// a client-side pass also keeps records merely *updated* inside the window,
// which the server filter would miss. If the first search page fails, the
// plain list endpoint serves as fallback with the same client-side filter.
// The returned error is non-nil only when nothing could be fetched at all.
func (f *Fetcher) Customers(ctx context.Context, accessToken string) ([]Customer, error) {
	cutoff := time.Now().AddDate(0, 0, -f.windowDays)

	customers, err := paginate(ctx, f.maxRecords, func(cursor string) ([]Customer, string, error) {
		page, err := f.client.SearchCustomers(ctx, accessToken, SearchCustomersRequest{
			Limit:  f.pageLimit,
			Cursor: cursor,
			Query: &CustomerQuery{Filter: &CustomerFilter{
				CreatedAt: &TimeRange{StartAt: cutoff.UTC().Format(time.RFC3339)},
			}},
		})
		if err != nil {
			return nil, "", err
		}
		return filterByWindow(page.Customers, cutoff), page.Cursor, nil
	})
	if err == nil {
		return customers, nil
	}

	f.logger.Printf("square: customer search failed, using list fallback: %v", err)
	return paginate(ctx, f.maxRecords, func(cursor string) ([]Customer, string, error) {
		page, err := f.client.ListCustomers(ctx, accessToken, cursor, f.pageLimit)
		if err != nil {
			return nil, "", err
		}
		return filterByWindow(page.Customers, cutoff), page.Cursor, nil
	})
}

// Invoices fetches the merchant's invoices for the given locations, most
// recent first. A first-page error propagates so the caller can degrade.
func (f *Fetcher) Invoices(ctx context.Context, accessToken string, locationIDs []string) ([]Invoice, error) {
	return paginate(ctx, f.maxRecords, func(cursor string) ([]Invoice, string, error) {
		page, err := f.client.SearchInvoices(ctx, accessToken, SearchInvoicesRequest{
			Limit:  f.pageLimit,
			Cursor: cursor,
			Query: &InvoiceQuery{
				Filter: &InvoiceFilter{LocationIDs: locationIDs},
				Sort:   &InvoiceSort{Field: "INVOICE_SORT_DATE", Order: "DESC"},
			},
		})
		if err != nil {
			return nil, "", err
		}
		return page.Invoices, page.Cursor, nil
	})
}

// Locations passes through to the client. Location lists are small and the
// endpoint is not paginated.
func (f *Fetcher) Locations(ctx context.Context, accessToken string) ([]Location, error) {
	return f.client.Locations(ctx, accessToken)
}

// BatchOrders passes through to the client; callers chunk the id list.
func (f *Fetcher) BatchOrders(ctx context.Context, accessToken string, orderIDs []string) ([]Order, error) {
	return f.client.BatchOrders(ctx, accessToken, orderIDs)
}

// paginate follows cursors until exhaustion or the cap. A first-page failure
// is returned to the caller; a mid-pagination failure returns what has
// accumulated rather than raising, since the next cycle retries anyway.
func paginate[T any](ctx context.Context, max int, page func(cursor string) ([]T, string, error)) ([]T, error) {
	var all []T
	cursor := ""
	for {
		if err := ctx.Err(); err != nil {
			if len(all) == 0 {
				return nil, err
			}
			return all, nil
		}
		items, next, err := page(cursor)
		if err != nil {
			if len(all) == 0 {
				return nil, err
			}
			return all, nil
		}
		all = append(all, items...)
		if max > 0 && len(all) >= max {
			return all[:max], nil
		}
		if next == "" {
			return all, nil
		}
		cursor = next
	}
}

// filterByWindow keeps a customer if either created_at or updated_at falls
// inside the window. Both conditions are deliberate: the second catches old
// customers that changed recently. Malformed timestamps exclude the record.
func filterByWindow(customers []Customer, cutoff time.Time) []Customer {
	kept := customers[:0]
	for _, c := range customers {
		if withinWindow(c.CreatedAt, cutoff) || withinWindow(c.UpdatedAt, cutoff) {
			kept = append(kept, c)
		}
	}
	return kept
}

func withinWindow(ts string, cutoff time.Time) bool {
	t, ok := parseTimestamp(ts)
	return ok && !t.Before(cutoff)
}

// parseTimestamp parses the API's RFC 3339 timestamps (trailing Z included).
func parseTimestamp(ts string) (time.Time, bool) {
	if ts == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
