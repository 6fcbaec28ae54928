package credential

import (
	"context"

	"square-customer-sync/internal/domain"
)

// UpsertInput carries the fields written on authorization or token refresh.
// Empty DisplayName and nil LocationIDs preserve whatever is stored.
type UpsertInput struct {
	MerchantID   string
	AccessToken  string
	RefreshToken string
	DisplayName  string
	LocationIDs  []string
}

// Repository persists merchant credentials and sync metadata.
type Repository interface {
	Get(ctx context.Context, merchantID string) (*domain.MerchantCredential, error)
	// Upsert updates the active row for the merchant if one exists, else
	// inserts a new one. It never appends a second active row for the same
	// merchant id, and an update preserves last_sync_at and record_count.
	Upsert(ctx context.Context, in UpsertInput) error
	// ListActive returns active credentials deduplicated by merchant id,
	// keeping the first occurrence even if the store holds duplicates.
	ListActive(ctx context.Context) ([]domain.MerchantCredential, error)
	UpdateSyncStatus(ctx context.Context, merchantID string, recordCount int) error
	UpdateLocations(ctx context.Context, merchantID string, locationIDs []string) error
	Revoke(ctx context.Context, merchantID string) error
	// RemoveDuplicates is a maintenance operation: it keeps the oldest row
	// per merchant id and deletes the rest, returning the delete count.
	RemoveDuplicates(ctx context.Context) (int, error)
}
