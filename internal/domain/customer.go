package domain

// CustomerAddress stores the structured address fields synced per customer.
type CustomerAddress struct {
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	Locality   string `json:"locality,omitempty"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
}

// CustomerRecord is one synced customer for a merchant. Timestamps stay in
// the wire format (RFC 3339 strings); they are parsed only where a date
// comparison is actually needed.
type CustomerRecord struct {
	CustomerID    string                 `json:"customerId"`
	GivenName     string                 `json:"givenName,omitempty"`
	FamilyName    string                 `json:"familyName,omitempty"`
	CompanyName   string                 `json:"companyName,omitempty"`
	Nickname      string                 `json:"nickname,omitempty"`
	Email         string                 `json:"email,omitempty"`
	Phone         string                 `json:"phone,omitempty"`
	Address       CustomerAddress        `json:"address"`
	CreatedAt     string                 `json:"createdAt,omitempty"`
	UpdatedAt     string                 `json:"updatedAt,omitempty"`
	Birthday      string                 `json:"birthday,omitempty"`
	Note          string                 `json:"note,omitempty"`
	ReferenceID   string                 `json:"referenceId,omitempty"`
	GroupIDs      []string               `json:"groupIds,omitempty"`
	SegmentIDs    []string               `json:"segmentIds,omitempty"`
	Preferences   map[string]interface{} `json:"preferences,omitempty"`
	Version       int64                  `json:"version"`
	LatestInvoice *InvoiceLinkage        `json:"latestInvoice,omitempty"`
}

// InvoiceLinkage is the enriched join of a customer's most recent invoice
// with its originating order and that order's fulfillment details.
type InvoiceLinkage struct {
	InvoiceID     string `json:"invoiceId"`
	InvoiceNumber string `json:"invoiceNumber,omitempty"`
	Status        string `json:"status,omitempty"`
	AmountCents   int64  `json:"amountCents"`
	DueDate       string `json:"dueDate,omitempty"`
	CreatedAt     string `json:"createdAt,omitempty"`
	UpdatedAt     string `json:"updatedAt,omitempty"`
	ScheduledAt   string `json:"scheduledAt,omitempty"`
	OrderID       string `json:"orderId,omitempty"`
	OrderCreated  string `json:"orderCreatedAt,omitempty"`
	OrderUpdated  string `json:"orderUpdatedAt,omitempty"`
	PickupDate    string `json:"pickupDate,omitempty"`
	PickupNotes   string `json:"pickupNotes,omitempty"`
	DeliveryDate  string `json:"deliveryDate,omitempty"`
	DeliveryNotes string `json:"deliveryNotes,omitempty"`
}
