package record

import (
	"context"
	"encoding/json"
	"fmt"
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

var recordColumns = []string{
	"merchant_id", "customer_id", "given_name", "family_name", "company_name",
	"nickname", "email_address", "phone_number", "address", "created_at",
	"updated_at", "birthday", "note", "reference_id", "group_ids",
	"segment_ids", "preferences", "version", "latest_invoice",
}

func (r *postgresRepo) Replace(ctx context.Context, merchantID string, records []domain.CustomerRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM customer_records WHERE merchant_id = $1`, merchantID); err != nil {
		return fmt.Errorf("clear collection: %w", err)
	}

	if len(records) > 0 {
		_, err = tx.CopyFrom(
			ctx,
			pgx.Identifier{"customer_records"},
			recordColumns,
			pgx.CopyFromSlice(len(records), func(i int) ([]interface{}, error) {
				return copyRow(merchantID, records[i])
			}),
		)
		if err != nil {
			return fmt.Errorf("copy records: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	r.logger.Printf("record repo: replaced collection merchant=%s records=%d", merchantID, len(records))
	return nil
}

func (r *postgresRepo) List(ctx context.Context, merchantID string) ([]domain.CustomerRecord, error) {
	const q = `
SELECT customer_id, given_name, family_name, company_name, nickname,
       email_address, phone_number, address, created_at, updated_at,
       birthday, note, reference_id, group_ids, segment_ids, preferences,
       version, latest_invoice
FROM customer_records
WHERE merchant_id = $1
ORDER BY customer_id
`
	rows, err := r.pool.Query(ctx, q, merchantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.CustomerRecord
	for rows.Next() {
		var rec domain.CustomerRecord
		var addrJSON, groupJSON, segmentJSON, prefJSON, invoiceJSON []byte
		err := rows.Scan(
			&rec.CustomerID,
			&rec.GivenName,
			&rec.FamilyName,
			&rec.CompanyName,
			&rec.Nickname,
			&rec.Email,
			&rec.Phone,
			&addrJSON,
			&rec.CreatedAt,
			&rec.UpdatedAt,
			&rec.Birthday,
			&rec.Note,
			&rec.ReferenceID,
			&groupJSON,
			&segmentJSON,
			&prefJSON,
			&rec.Version,
			&invoiceJSON,
		)
		if err != nil {
			r.logger.Printf("record repo: scan error merchant=%s err=%v", merchantID, err)
			return nil, err
		}
		if err := decodeJSONColumns(&rec, addrJSON, groupJSON, segmentJSON, prefJSON, invoiceJSON); err != nil {
			r.logger.Printf("record repo: decode customer=%s err=%v", rec.CustomerID, err)
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func copyRow(merchantID string, rec domain.CustomerRecord) ([]interface{}, error) {
	addrJSON, err := json.Marshal(rec.Address)
	if err != nil {
		return nil, err
	}
	groupJSON, err := json.Marshal(orEmpty(rec.GroupIDs))
	if err != nil {
		return nil, err
	}
	segmentJSON, err := json.Marshal(orEmpty(rec.SegmentIDs))
	if err != nil {
		return nil, err
	}
	prefJSON, err := json.Marshal(rec.Preferences)
	if err != nil {
		return nil, err
	}
	if rec.Preferences == nil {
		prefJSON = []byte(`{}`)
	}
	var invoiceJSON []byte
	if rec.LatestInvoice != nil {
		invoiceJSON, err = json.Marshal(rec.LatestInvoice)
		if err != nil {
			return nil, err
		}
	}
	return []interface{}{
		merchantID,
		rec.CustomerID,
		rec.GivenName,
		rec.FamilyName,
		rec.CompanyName,
		rec.Nickname,
		rec.Email,
		rec.Phone,
		addrJSON,
		rec.CreatedAt,
		rec.UpdatedAt,
		rec.Birthday,
		rec.Note,
		rec.ReferenceID,
		groupJSON,
		segmentJSON,
		prefJSON,
		rec.Version,
		invoiceJSON,
	}, nil
}

func decodeJSONColumns(rec *domain.CustomerRecord, addr, groups, segments, prefs, invoice []byte) error {
	if len(addr) > 0 {
		if err := json.Unmarshal(addr, &rec.Address); err != nil {
			return err
		}
	}
	if len(groups) > 0 {
		if err := json.Unmarshal(groups, &rec.GroupIDs); err != nil {
			return err
		}
	}
	if len(segments) > 0 {
		if err := json.Unmarshal(segments, &rec.SegmentIDs); err != nil {
			return err
		}
	}
	if len(prefs) > 0 {
		if err := json.Unmarshal(prefs, &rec.Preferences); err != nil {
			return err
		}
	}
	if len(invoice) > 0 {
		rec.LatestInvoice = &domain.InvoiceLinkage{}
		if err := json.Unmarshal(invoice, rec.LatestInvoice); err != nil {
			return err
		}
	}
	return nil
}

func orEmpty(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
