package square

// Wire shapes for the Square endpoints the sync touches. Only the fields the
// sync reads are declared; everything else passes through untouched.

// Customer is one entry from the customers search/list endpoints.
type Customer struct {
	ID           string                 `json:"id"`
	GivenName    string                 `json:"given_name"`
	FamilyName   string                 `json:"family_name"`
	CompanyName  string                 `json:"company_name"`
	Nickname     string                 `json:"nickname"`
	EmailAddress string                 `json:"email_address"`
	PhoneNumber  string                 `json:"phone_number"`
	Address      *Address               `json:"address"`
	CreatedAt    string                 `json:"created_at"`
	UpdatedAt    string                 `json:"updated_at"`
	Birthday     string                 `json:"birthday"`
	Note         string                 `json:"note"`
	ReferenceID  string                 `json:"reference_id"`
	GroupIDs     []string               `json:"group_ids"`
	SegmentIDs   []string               `json:"segment_ids"`
	Preferences  map[string]interface{} `json:"preferences"`
	Version      int64                  `json:"version"`
}

// Address is the customer address sub-object.
type Address struct {
	AddressLine1                 string `json:"address_line_1"`
	AddressLine2                 string `json:"address_line_2"`
	Locality                     string `json:"locality"`
	AdministrativeDistrictLevel1 string `json:"administrative_district_level_1"`
	PostalCode                   string `json:"postal_code"`
	Country                      string `json:"country"`
}

// Location is one entry from the locations endpoint.
type Location struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Invoice is one entry from the invoices search endpoint.
type Invoice struct {
	ID               string           `json:"id"`
	InvoiceNumber    string           `json:"invoice_number"`
	Status           string           `json:"status"`
	OrderID          string           `json:"order_id"`
	PrimaryRecipient *Recipient       `json:"primary_recipient"`
	Recipients       []Recipient      `json:"recipients"`
	PaymentRequests  []PaymentRequest `json:"payment_requests"`
	CreatedAt        string           `json:"created_at"`
	UpdatedAt        string           `json:"updated_at"`
	ScheduledAt      string           `json:"scheduled_at"`
}

// Recipient identifies the customer an invoice is addressed to.
type Recipient struct {
	CustomerID string `json:"customer_id"`
}

// PaymentRequest carries the invoice amounts and due date.
type PaymentRequest struct {
	DueDate             string `json:"due_date"`
	ComputedAmountMoney *Money `json:"computed_amount_money"`
	TotalCompletedMoney *Money `json:"total_completed_amount_money"`
}

// Money is an integer amount in minor currency units.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Order is one entry from the batch order retrieve endpoint.
type Order struct {
	ID           string        `json:"id"`
	CustomerID   string        `json:"customer_id"`
	CreatedAt    string        `json:"created_at"`
	UpdatedAt    string        `json:"updated_at"`
	Fulfillments []Fulfillment `json:"fulfillments"`
}

// Fulfillment describes how an order is completed (pickup or delivery).
type Fulfillment struct {
	Type            string           `json:"type"`
	PickupDetails   *PickupDetails   `json:"pickup_details"`
	DeliveryDetails *DeliveryDetails `json:"delivery_details"`
}

type PickupDetails struct {
	PickupAt string `json:"pickup_at"`
	Note     string `json:"note"`
}

type DeliveryDetails struct {
	DeliverAt string `json:"deliver_at"`
	Note      string `json:"note"`
}

// Request/response envelopes.

type SearchCustomersRequest struct {
	Limit  int            `json:"limit,omitempty"`
	Cursor string         `json:"cursor,omitempty"`
	Query  *CustomerQuery `json:"query,omitempty"`
}

type CustomerQuery struct {
	Filter *CustomerFilter `json:"filter,omitempty"`
}

type CustomerFilter struct {
	CreatedAt *TimeRange `json:"created_at,omitempty"`
}

type TimeRange struct {
	StartAt string `json:"start_at,omitempty"`
}

// CustomersPage is one page of customers plus the continuation cursor.
type CustomersPage struct {
	Customers []Customer `json:"customers"`
	Cursor    string     `json:"cursor"`
}

type SearchInvoicesRequest struct {
	Limit  int           `json:"limit,omitempty"`
	Cursor string        `json:"cursor,omitempty"`
	Query  *InvoiceQuery `json:"query,omitempty"`
}

type InvoiceQuery struct {
	Filter *InvoiceFilter `json:"filter,omitempty"`
	Sort   *InvoiceSort   `json:"sort,omitempty"`
}

type InvoiceFilter struct {
	LocationIDs []string `json:"location_ids,omitempty"`
}

// InvoiceSort requests most-recent-first ordering; the linker relies on it
// so that first match per customer approximates "latest invoice".
type InvoiceSort struct {
	Field string `json:"field"`
	Order string `json:"order"`
}

type InvoicesPage struct {
	Invoices []Invoice `json:"invoices"`
	Cursor   string    `json:"cursor"`
}

type locationsResponse struct {
	Locations []Location `json:"locations"`
}

type batchOrdersRequest struct {
	OrderIDs []string `json:"order_ids"`
}

type batchOrdersResponse struct {
	Orders []Order `json:"orders"`
}
