package importer

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"square-customer-sync/internal/domain"
)

// RecordWriter is the slice of the record store the importer needs.
type RecordWriter interface {
	Replace(ctx context.Context, merchantID string, records []domain.CustomerRecord) error
}

// CSVImporter reads a previously exported customer CSV and loads it into the
// record store, replacing the merchant's collection. Used to bootstrap a
// fresh database from sheet exports.
type CSVImporter struct {
	reader     *csv.Reader
	records    RecordWriter
	merchantID string
}

func NewCSVImporter(r io.Reader, records RecordWriter, merchantID string) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // exports may carry trailing commas
	return &CSVImporter{
		reader:     csvr,
		records:    records,
		merchantID: merchantID,
	}
}

// Run parses the CSV and replaces the merchant's collection with its rows.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := index["customer_id"]; !ok {
		return 0, errors.New("missing customer_id column")
	}

	var records []domain.CustomerRecord
	for {
		row, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read row: %w", err)
		}
		rec := parseRow(row, index)
		if rec.CustomerID == "" {
			continue
		}
		records = append(records, rec)
	}

	if err := i.records.Replace(ctx, i.merchantID, records); err != nil {
		return 0, fmt.Errorf("replace collection: %w", err)
	}
	return len(records), nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.TrimSpace(h)] = i
	}
	return idx
}

func parseRow(row []string, index map[string]int) domain.CustomerRecord {
	pick := func(key string) string {
		pos, ok := index[key]
		if !ok || pos >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[pos])
	}

	version, _ := strconv.ParseInt(pick("version"), 10, 64)

	rec := domain.CustomerRecord{
		CustomerID:  pick("customer_id"),
		GivenName:   pick("given_name"),
		FamilyName:  pick("family_name"),
		CompanyName: pick("company_name"),
		Nickname:    pick("nickname"),
		Email:       pick("email_address"),
		Phone:       pick("phone_number"),
		Address: domain.CustomerAddress{
			Line1:      pick("address_line_1"),
			Line2:      pick("address_line_2"),
			Locality:   pick("locality"),
			Region:     pick("administrative_district_level_1"),
			PostalCode: pick("postal_code"),
			Country:    pick("country"),
		},
		CreatedAt:   pick("created_at"),
		UpdatedAt:   pick("updated_at"),
		Birthday:    pick("birthday"),
		Note:        pick("note"),
		ReferenceID: pick("reference_id"),
		GroupIDs:    splitIDs(pick("group_ids")),
		SegmentIDs:  splitIDs(pick("segment_ids")),
		Version:     version,
	}
	if prefs := pick("preferences"); prefs != "" {
		var decoded map[string]interface{}
		if err := json.Unmarshal([]byte(prefs), &decoded); err == nil {
			rec.Preferences = decoded
		}
	}
	return rec
}

func splitIDs(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	return ids
}
