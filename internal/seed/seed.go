package seed

import (
	"context"
	"errors"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	credrepo "square-customer-sync/internal/repository/credential"
)

// Apply inserts a sandbox merchant credential from SEED_* environment
// variables so local runs have a merchant to sync.
func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	merchantID := os.Getenv("SEED_MERCHANT_ID")
	accessToken := os.Getenv("SEED_ACCESS_TOKEN")
	refreshToken := os.Getenv("SEED_REFRESH_TOKEN")
	if merchantID == "" || accessToken == "" {
		return errors.New("SEED_MERCHANT_ID and SEED_ACCESS_TOKEN are required")
	}

	repo := credrepo.NewPostgres(pool, nil)
	return repo.Upsert(ctx, credrepo.UpsertInput{
		MerchantID:   merchantID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		DisplayName:  os.Getenv("SEED_DISPLAY_NAME"),
	})
}
