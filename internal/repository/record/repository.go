package record

import (
	"context"

	"square-customer-sync/internal/domain"
)

// Repository persists synced customer collections per merchant.
type Repository interface {
	// Replace atomically overwrites the merchant's whole collection. The
	// sync is a full-replace, not a delta merge: delete and rewrite happen
	// in one transaction so readers never observe a half-updated state.
	Replace(ctx context.Context, merchantID string, records []domain.CustomerRecord) error
	List(ctx context.Context, merchantID string) ([]domain.CustomerRecord, error)
}
