package domain

import "time"

// Merchant credential statuses. Credentials are never deleted; a
// disconnected merchant is flipped to revoked.
const (
	MerchantStatusActive  = "active"
	MerchantStatusRevoked = "revoked"
)

// MerchantCredential holds the OAuth tokens and sync metadata for one
// connected Square merchant. At most one active row exists per merchant id.
type MerchantCredential struct {
	MerchantID     string     `json:"merchantId"`
	AccessToken    string     `json:"-"`
	RefreshToken   string     `json:"-"`
	TokenUpdatedAt time.Time  `json:"tokenUpdatedAt"`
	Status         string     `json:"status"`
	DisplayName    string     `json:"displayName,omitempty"`
	LastSyncAt     *time.Time `json:"lastSyncAt,omitempty"`
	LocationIDs    []string   `json:"locationIds,omitempty"`
	RecordCount    int        `json:"recordCount"`
}
