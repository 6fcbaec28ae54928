package sync

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"square-customer-sync/internal/domain"
	credrepo "square-customer-sync/internal/repository/credential"
	recordrepo "square-customer-sync/internal/repository/record"
	"square-customer-sync/internal/square"
)

// CustomerFetcher yields the merchant's customers within the history window.
type CustomerFetcher interface {
	Customers(ctx context.Context, accessToken string) ([]square.Customer, error)
}

// InvoiceLinker maps customer ids to their latest invoice linkage.
type InvoiceLinker interface {
	Link(ctx context.Context, cred *domain.MerchantCredential, customerIDs map[string]struct{}) map[string]domain.InvoiceLinkage
}

// Orchestrator runs one merchant's sync end to end: load credential, fetch
// customers, link invoices, replace the stored collection, update status.
// A failure in invoice linking never aborts customer persistence.
type Orchestrator struct {
	creds    credrepo.Repository
	records  recordrepo.Repository
	fetcher  CustomerFetcher
	linker   InvoiceLinker
	logger   *log.Logger
	deadline time.Duration

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewOrchestrator builds an Orchestrator. deadline is the soft bound on one
// merchant's sync so a slow merchant cannot starve a whole cycle.
func NewOrchestrator(creds credrepo.Repository, records recordrepo.Repository, fetcher CustomerFetcher, invLinker InvoiceLinker, logger *log.Logger, deadline time.Duration) *Orchestrator {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Orchestrator{
		creds:    creds,
		records:  records,
		fetcher:  fetcher,
		linker:   invLinker,
		logger:   logger,
		deadline: deadline,
		inflight: make(map[string]struct{}),
	}
}

// SyncMerchant syncs one merchant. At most one sync per merchant runs at a
// time; a concurrent second request gets domain.ErrSyncInProgress instead of
// interleaving writes on the record store.
func (o *Orchestrator) SyncMerchant(ctx context.Context, merchantID string) (domain.SyncReport, error) {
	if !o.acquire(merchantID) {
		return domain.SyncReport{}, domain.ErrSyncInProgress
	}
	defer o.release(merchantID)

	if o.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.deadline)
		defer cancel()
	}

	report := domain.SyncReport{
		ID:         uuid.NewString(),
		MerchantID: merchantID,
		StartedAt:  time.Now().UTC(),
	}

	cred, err := o.creds.Get(ctx, merchantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return o.finish(report, domain.SyncFailure, "merchant not connected", "authorize the merchant"), nil
		}
		return o.finish(report, domain.SyncFailure, "credential lookup failed: "+err.Error(), "retry"), nil
	}

	customers, err := o.fetcher.Customers(ctx, cred.AccessToken)
	if err != nil {
		if errors.Is(err, square.ErrUnauthorized) {
			return o.finish(report, domain.SyncFailure, "access token rejected", "refresh token or reauthorize"), nil
		}
		return o.finish(report, domain.SyncFailure, "customer fetch failed: "+err.Error(), "retry"), nil
	}

	// An empty list is valid (brand-new or test merchants); the overwrite
	// still runs so stale rows do not linger.
	ids := make(map[string]struct{}, len(customers))
	for _, c := range customers {
		if c.ID != "" {
			ids[c.ID] = struct{}{}
		}
	}

	linkages := o.linker.Link(ctx, cred, ids)

	records := make([]domain.CustomerRecord, 0, len(customers))
	for _, c := range customers {
		rec := toRecord(c)
		if link, ok := linkages[c.ID]; ok {
			l := link
			rec.LatestInvoice = &l
		}
		records = append(records, rec)
	}

	if err := o.records.Replace(ctx, merchantID, records); err != nil {
		return o.finish(report, domain.SyncFailure, "record store write failed: "+err.Error(), "retry"), nil
	}
	report.RecordCount = len(records)
	report.LinkedCount = len(linkages)

	if err := o.creds.UpdateSyncStatus(ctx, merchantID, len(records)); err != nil {
		o.logger.Printf("sync: status update failed merchant=%s err=%v", merchantID, err)
		return o.finish(report, domain.SyncPartial, "records saved but sync status update failed", "retry"), nil
	}

	if len(customers) > 0 && len(linkages) == 0 {
		return o.finish(report, domain.SyncPartial, "customers saved without invoice linkage", "check invoice permissions"), nil
	}
	return o.finish(report, domain.SyncSuccess, "", ""), nil
}

func (o *Orchestrator) finish(report domain.SyncReport, outcome domain.SyncOutcome, reason, next string) domain.SyncReport {
	report.Outcome = outcome
	report.Reason = reason
	report.NextStep = next
	report.FinishedAt = time.Now().UTC()
	o.logger.Printf("sync: merchant=%s outcome=%s records=%d linked=%d reason=%q",
		report.MerchantID, outcome, report.RecordCount, report.LinkedCount, reason)
	return report
}

func (o *Orchestrator) acquire(merchantID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.inflight[merchantID]; busy {
		return false
	}
	o.inflight[merchantID] = struct{}{}
	return true
}

func (o *Orchestrator) release(merchantID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inflight, merchantID)
}

// toRecord maps the wire customer onto the stored record shape.
func toRecord(c square.Customer) domain.CustomerRecord {
	rec := domain.CustomerRecord{
		CustomerID:  c.ID,
		GivenName:   c.GivenName,
		FamilyName:  c.FamilyName,
		CompanyName: c.CompanyName,
		Nickname:    c.Nickname,
		Email:       c.EmailAddress,
		Phone:       c.PhoneNumber,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
		Birthday:    c.Birthday,
		Note:        c.Note,
		ReferenceID: c.ReferenceID,
		GroupIDs:    c.GroupIDs,
		SegmentIDs:  c.SegmentIDs,
		Preferences: c.Preferences,
		Version:     c.Version,
	}
	if c.Address != nil {
		rec.Address = domain.CustomerAddress{
			Line1:      c.Address.AddressLine1,
			Line2:      c.Address.AddressLine2,
			Locality:   c.Address.Locality,
			Region:     c.Address.AdministrativeDistrictLevel1,
			PostalCode: c.Address.PostalCode,
			Country:    c.Address.Country,
		}
	}
	return rec
}
