package linker

import (
	"context"
	"errors"
	"io"
	"log"

	"golang.org/x/time/rate"

	"square-customer-sync/internal/domain"
	"square-customer-sync/internal/square"
)

// SquareAPI is the slice of the Square client the linker needs.
type SquareAPI interface {
	Locations(ctx context.Context, accessToken string) ([]square.Location, error)
	Invoices(ctx context.Context, accessToken string, locationIDs []string) ([]square.Invoice, error)
	BatchOrders(ctx context.Context, accessToken string, orderIDs []string) ([]square.Order, error)
}

// LocationCache writes resolved location ids back to the credential store.
type LocationCache interface {
	UpdateLocations(ctx context.Context, merchantID string, locationIDs []string) error
}

// Linker joins a merchant's invoices to their originating orders and maps
// each requested customer to its most recent invoice. Linking failures
// degrade to an empty map; they never abort the customer sync.
type Linker struct {
	api       SquareAPI
	cache     LocationCache
	logger    *log.Logger
	batchSize int
	pacer     *rate.Limiter
}

// New builds a Linker. batchSize bounds the ids per order batch retrieve;
// batchDelay spaces consecutive batches to stay under API rate limits.
func New(api SquareAPI, cache LocationCache, logger *log.Logger, batchSize int, batchDelay rate.Limit) *Linker {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if batchSize <= 0 {
		batchSize = 25
	}
	return &Linker{
		api:       api,
		cache:     cache,
		logger:    logger,
		batchSize: batchSize,
		pacer:     rate.NewLimiter(batchDelay, 1),
	}
}

// Link returns customer id -> latest invoice linkage for every customer in
// customerIDs that has a matching invoice. The invoice list arrives sorted
// most recent first, so the first match per customer wins. An empty map
// means "no invoices matched"; it is not an error.
func (l *Linker) Link(ctx context.Context, cred *domain.MerchantCredential, customerIDs map[string]struct{}) map[string]domain.InvoiceLinkage {
	out := make(map[string]domain.InvoiceLinkage)
	if len(customerIDs) == 0 {
		return out
	}

	locations := l.resolveLocations(ctx, cred)
	if len(locations) == 0 {
		l.logger.Printf("linker: no locations for merchant %s, skipping invoice linkage", cred.MerchantID)
		return out
	}

	invoices, err := l.api.Invoices(ctx, cred.AccessToken, locations)
	if err != nil {
		if errors.Is(err, square.ErrPermissionDenied) {
			l.logger.Printf("linker: invoices not entitled for merchant %s", cred.MerchantID)
		} else {
			l.logger.Printf("linker: invoice fetch failed for merchant %s: %v", cred.MerchantID, err)
		}
		return out
	}

	orders := l.fetchOrders(ctx, cred.AccessToken, collectOrderIDs(invoices))

	for _, inv := range invoices {
		var order *square.Order
		if o, ok := orders[inv.OrderID]; ok {
			order = &o
		}
		customerID := resolveCustomerID(inv, order)
		if customerID == "" {
			continue
		}
		if _, wanted := customerIDs[customerID]; !wanted {
			continue
		}
		if _, done := out[customerID]; done {
			continue
		}
		out[customerID] = buildLinkage(inv, order)
	}
	return out
}

// resolveLocations prefers the cached ids on the credential; on a miss it
// calls the locations endpoint and writes the result back so subsequent
// syncs skip the lookup.
func (l *Linker) resolveLocations(ctx context.Context, cred *domain.MerchantCredential) []string {
	if len(cred.LocationIDs) > 0 {
		return cred.LocationIDs
	}
	locations, err := l.api.Locations(ctx, cred.AccessToken)
	if err != nil {
		l.logger.Printf("linker: location lookup failed for merchant %s: %v", cred.MerchantID, err)
		return nil
	}
	ids := make([]string, 0, len(locations))
	for _, loc := range locations {
		if loc.ID != "" {
			ids = append(ids, loc.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	cred.LocationIDs = ids
	if err := l.cache.UpdateLocations(ctx, cred.MerchantID, ids); err != nil {
		l.logger.Printf("linker: caching locations for merchant %s failed: %v", cred.MerchantID, err)
	}
	return ids
}

// fetchOrders batch-retrieves the orders behind the invoices, chunked with
// spacing between batches. A failed batch is skipped, not fatal.
func (l *Linker) fetchOrders(ctx context.Context, accessToken string, orderIDs []string) map[string]square.Order {
	orders := make(map[string]square.Order, len(orderIDs))
	for start := 0; start < len(orderIDs); start += l.batchSize {
		end := start + l.batchSize
		if end > len(orderIDs) {
			end = len(orderIDs)
		}
		if start > 0 {
			if err := l.pacer.Wait(ctx); err != nil {
				return orders
			}
		}
		batch, err := l.api.BatchOrders(ctx, accessToken, orderIDs[start:end])
		if err != nil {
			l.logger.Printf("linker: order batch %d-%d failed: %v", start, end, err)
			continue
		}
		for _, o := range batch {
			orders[o.ID] = o
		}
	}
	return orders
}

func collectOrderIDs(invoices []square.Invoice) []string {
	seen := make(map[string]struct{}, len(invoices))
	ids := make([]string, 0, len(invoices))
	for _, inv := range invoices {
		if inv.OrderID == "" {
			continue
		}
		if _, ok := seen[inv.OrderID]; ok {
			continue
		}
		seen[inv.OrderID] = struct{}{}
		ids = append(ids, inv.OrderID)
	}
	return ids
}

// resolveCustomerID tries the known recipient shapes in priority order:
// primary recipient, then the recipient list, then the order's own customer
// reference. First non-empty wins.
func resolveCustomerID(inv square.Invoice, order *square.Order) string {
	if inv.PrimaryRecipient != nil && inv.PrimaryRecipient.CustomerID != "" {
		return inv.PrimaryRecipient.CustomerID
	}
	for _, r := range inv.Recipients {
		if r.CustomerID != "" {
			return r.CustomerID
		}
	}
	if order != nil {
		return order.CustomerID
	}
	return ""
}

// buildLinkage merges invoice-level fields with order timestamps and the
// order's fulfillment details. With multiple fulfillments the last one seen
// wins for both pickup and delivery.
func buildLinkage(inv square.Invoice, order *square.Order) domain.InvoiceLinkage {
	link := domain.InvoiceLinkage{
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		Status:        inv.Status,
		CreatedAt:     inv.CreatedAt,
		UpdatedAt:     inv.UpdatedAt,
		ScheduledAt:   inv.ScheduledAt,
		OrderID:       inv.OrderID,
	}
	if len(inv.PaymentRequests) > 0 {
		req := inv.PaymentRequests[0]
		link.DueDate = req.DueDate
		if req.ComputedAmountMoney != nil {
			link.AmountCents = req.ComputedAmountMoney.Amount
		} else if req.TotalCompletedMoney != nil {
			link.AmountCents = req.TotalCompletedMoney.Amount
		}
	}
	if order == nil {
		return link
	}
	link.OrderCreated = order.CreatedAt
	link.OrderUpdated = order.UpdatedAt
	for _, f := range order.Fulfillments {
		if f.PickupDetails != nil {
			link.PickupDate = f.PickupDetails.PickupAt
			link.PickupNotes = f.PickupDetails.Note
		}
		if f.DeliveryDetails != nil {
			link.DeliveryDate = f.DeliveryDetails.DeliverAt
			link.DeliveryNotes = f.DeliveryDetails.Note
		}
	}
	return link
}
