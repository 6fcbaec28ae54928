package square

import (
	"context"
	"fmt"
	"net/url"
)

// Locations returns the merchant's locations.
func (c *Client) Locations(ctx context.Context, accessToken string) ([]Location, error) {
	var out locationsResponse
	if err := c.getJSON(ctx, "v2/locations", accessToken, &out); err != nil {
		return nil, err
	}
	return out.Locations, nil
}

// BatchOrders retrieves full order objects for the given ids in one call.
// Callers chunk the id list to respect request-size limits.
func (c *Client) BatchOrders(ctx context.Context, accessToken string, orderIDs []string) ([]Order, error) {
	var out batchOrdersResponse
	err := c.postJSON(ctx, "v2/orders/batch-retrieve", accessToken, batchOrdersRequest{OrderIDs: orderIDs}, &out)
	if err != nil {
		return nil, err
	}
	return out.Orders, nil
}

// SearchCustomers returns one page from the customer search endpoint.
func (c *Client) SearchCustomers(ctx context.Context, accessToken string, req SearchCustomersRequest) (*CustomersPage, error) {
	var out CustomersPage
	if err := c.postJSON(ctx, "v2/customers/search", accessToken, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListCustomers returns one page from the plain customer list endpoint, the
// fallback when search is unavailable.
func (c *Client) ListCustomers(ctx context.Context, accessToken, cursor string, limit int) (*CustomersPage, error) {
	endpoint := fmt.Sprintf("v2/customers?limit=%d", limit)
	if cursor != "" {
		endpoint += "&cursor=" + url.QueryEscape(cursor)
	}
	var out CustomersPage
	if err := c.getJSON(ctx, endpoint, accessToken, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchInvoices returns one page from the invoice search endpoint.
func (c *Client) SearchInvoices(ctx context.Context, accessToken string, req SearchInvoicesRequest) (*InvoicesPage, error) {
	var out InvoicesPage
	if err := c.postJSON(ctx, "v2/invoices/search", accessToken, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
