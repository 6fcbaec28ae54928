package credential

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"square-customer-sync/internal/domain"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

const credentialColumns = `
merchant_id, access_token, refresh_token, token_updated_at, status,
display_name, last_sync_at, location_ids, record_count`

func (r *postgresRepo) Get(ctx context.Context, merchantID string) (*domain.MerchantCredential, error) {
	q := `
SELECT ` + credentialColumns + `
FROM merchants
WHERE merchant_id = $1 AND status = $2
ORDER BY id
LIMIT 1
`
	return r.scanCredential(r.pool.QueryRow(ctx, q, merchantID, domain.MerchantStatusActive))
}

// Upsert performs find-then-update-or-insert as a single transaction so
// repeated authorizations never accumulate duplicate active rows. The row
// lock keeps two concurrent callbacks for the same merchant from both taking
// the insert path.
func (r *postgresRepo) Upsert(ctx context.Context, in UpsertInput) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx, `
SELECT id FROM merchants
WHERE merchant_id = $1 AND status = $2
ORDER BY id
LIMIT 1
FOR UPDATE
`, in.MerchantID, domain.MerchantStatusActive).Scan(&id)

	switch {
	case err == nil:
		locJSON, merr := locationsJSON(in.LocationIDs)
		if merr != nil {
			return merr
		}
		_, err = tx.Exec(ctx, `
UPDATE merchants
SET access_token = $2,
    refresh_token = $3,
    token_updated_at = now(),
    display_name = COALESCE(NULLIF($4, ''), display_name),
    location_ids = COALESCE($5, location_ids)
WHERE id = $1
`, id, in.AccessToken, in.RefreshToken, in.DisplayName, locJSON)
		if err != nil {
			return err
		}
	case errors.Is(err, pgx.ErrNoRows):
		locJSON, merr := locationsJSON(in.LocationIDs)
		if merr != nil {
			return merr
		}
		if locJSON == nil {
			locJSON = []byte(`[]`)
		}
		_, err = tx.Exec(ctx, `
INSERT INTO merchants (merchant_id, access_token, refresh_token, token_updated_at, status, display_name, location_ids, record_count)
VALUES ($1, $2, $3, now(), $4, $5, $6, 0)
`, in.MerchantID, in.AccessToken, in.RefreshToken, domain.MerchantStatusActive, in.DisplayName, locJSON)
		if err != nil {
			return err
		}
	default:
		return err
	}

	return tx.Commit(ctx)
}

func (r *postgresRepo) ListActive(ctx context.Context) ([]domain.MerchantCredential, error) {
	q := `
SELECT ` + credentialColumns + `
FROM merchants
WHERE status = $1
ORDER BY id
`
	rows, err := r.pool.Query(ctx, q, domain.MerchantStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var creds []domain.MerchantCredential
	for rows.Next() {
		c, err := r.scanCredential(rows)
		if err != nil {
			return nil, err
		}
		creds = append(creds, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return dedupeByMerchant(creds), nil
}

func (r *postgresRepo) UpdateSyncStatus(ctx context.Context, merchantID string, recordCount int) error {
	cmd, err := r.pool.Exec(ctx, `
UPDATE merchants
SET last_sync_at = now(), record_count = $2
WHERE merchant_id = $1 AND status = $3
`, merchantID, recordCount, domain.MerchantStatusActive)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) UpdateLocations(ctx context.Context, merchantID string, locationIDs []string) error {
	locJSON, err := locationsJSON(locationIDs)
	if err != nil {
		return err
	}
	if locJSON == nil {
		locJSON = []byte(`[]`)
	}
	cmd, err := r.pool.Exec(ctx, `
UPDATE merchants
SET location_ids = $2
WHERE merchant_id = $1 AND status = $3
`, merchantID, locJSON, domain.MerchantStatusActive)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) Revoke(ctx context.Context, merchantID string) error {
	cmd, err := r.pool.Exec(ctx, `
UPDATE merchants
SET status = $2
WHERE merchant_id = $1 AND status = $3
`, merchantID, domain.MerchantStatusRevoked, domain.MerchantStatusActive)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) RemoveDuplicates(ctx context.Context) (int, error) {
	cmd, err := r.pool.Exec(ctx, `
DELETE FROM merchants a
USING merchants b
WHERE a.merchant_id = b.merchant_id AND a.id > b.id
`)
	if err != nil {
		return 0, err
	}
	n := int(cmd.RowsAffected())
	if n > 0 {
		r.logger.Printf("credential repo: removed %d duplicate rows", n)
	}
	return n, nil
}

func (r *postgresRepo) scanCredential(row pgx.Row) (*domain.MerchantCredential, error) {
	var c domain.MerchantCredential
	var locJSON []byte
	err := row.Scan(
		&c.MerchantID,
		&c.AccessToken,
		&c.RefreshToken,
		&c.TokenUpdatedAt,
		&c.Status,
		&c.DisplayName,
		&c.LastSyncAt,
		&locJSON,
		&c.RecordCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("credential repo: scan error=%v", err)
		return nil, err
	}
	if len(locJSON) > 0 {
		if err := json.Unmarshal(locJSON, &c.LocationIDs); err != nil {
			r.logger.Printf("credential repo: decode locations merchant=%s err=%v", c.MerchantID, err)
			return nil, err
		}
	}
	return &c, nil
}

// locationsJSON keeps nil meaning "leave the stored value alone".
func locationsJSON(ids []string) ([]byte, error) {
	if ids == nil {
		return nil, nil
	}
	return json.Marshal(ids)
}

// dedupeByMerchant keeps the first row per merchant id. Defensive: the store
// may contain duplicates written by older non-conforming deployments.
func dedupeByMerchant(creds []domain.MerchantCredential) []domain.MerchantCredential {
	seen := make(map[string]struct{}, len(creds))
	out := creds[:0]
	for _, c := range creds {
		if _, ok := seen[c.MerchantID]; ok {
			continue
		}
		seen[c.MerchantID] = struct{}{}
		out = append(out, c)
	}
	return out
}
