package httpserver

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"square-customer-sync/internal/domain"
	recordrepo "square-customer-sync/internal/repository/record"
)

// exportColumns matches the layout the sheet-based exports used, plus the
// invoice linkage columns.
var exportColumns = []string{
	"customer_id", "given_name", "family_name", "company_name", "nickname",
	"email_address", "phone_number", "address_line_1", "address_line_2",
	"locality", "administrative_district_level_1", "postal_code", "country",
	"created_at", "updated_at", "birthday", "note", "reference_id",
	"group_ids", "segment_ids", "preferences", "version",
	"invoice_id", "invoice_number", "invoice_status", "invoice_amount_cents",
	"invoice_due_date", "order_id", "pickup_date", "pickup_notes",
	"delivery_date", "delivery_notes",
}

func exportHandler(records recordrepo.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		merchantID := c.Param("merchantID")
		recs, err := records.List(c.Request.Context(), merchantID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read records"})
			return
		}
		if len(recs) == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "no customer data for merchant " + merchantID})
			return
		}

		filename := fmt.Sprintf("customers_%s_%s.csv", merchantID, time.Now().UTC().Format("20060102"))
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", `attachment; filename=`+filename)

		w := csv.NewWriter(c.Writer)
		_ = w.Write(exportColumns)
		for _, rec := range recs {
			_ = w.Write(exportRow(rec))
		}
		w.Flush()
	}
}

func exportRow(rec domain.CustomerRecord) []string {
	prefs := ""
	if len(rec.Preferences) > 0 {
		if b, err := json.Marshal(rec.Preferences); err == nil {
			prefs = string(b)
		}
	}
	row := []string{
		rec.CustomerID,
		rec.GivenName,
		rec.FamilyName,
		rec.CompanyName,
		rec.Nickname,
		rec.Email,
		rec.Phone,
		rec.Address.Line1,
		rec.Address.Line2,
		rec.Address.Locality,
		rec.Address.Region,
		rec.Address.PostalCode,
		rec.Address.Country,
		rec.CreatedAt,
		rec.UpdatedAt,
		rec.Birthday,
		rec.Note,
		rec.ReferenceID,
		strings.Join(rec.GroupIDs, ", "),
		strings.Join(rec.SegmentIDs, ", "),
		prefs,
		strconv.FormatInt(rec.Version, 10),
	}
	if inv := rec.LatestInvoice; inv != nil {
		row = append(row,
			inv.InvoiceID,
			inv.InvoiceNumber,
			inv.Status,
			strconv.FormatInt(inv.AmountCents, 10),
			inv.DueDate,
			inv.OrderID,
			inv.PickupDate,
			inv.PickupNotes,
			inv.DeliveryDate,
			inv.DeliveryNotes,
		)
	} else {
		row = append(row, "", "", "", "", "", "", "", "", "", "")
	}
	return row
}
