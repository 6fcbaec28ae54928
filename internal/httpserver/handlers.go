package httpserver

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"square-customer-sync/internal/domain"
	credrepo "square-customer-sync/internal/repository/credential"
)

type merchantSummary struct {
	MerchantID    string `json:"merchantId"`
	DisplayName   string `json:"displayName,omitempty"`
	RecordCount   int    `json:"recordCount"`
	LastSyncAt    string `json:"lastSyncAt,omitempty"`
	DaysSinceSync *int   `json:"daysSinceSync,omitempty"`
}

func dashboardHandler(creds credrepo.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		merchants, err := creds.ListActive(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list merchants"})
			return
		}
		out := make([]merchantSummary, 0, len(merchants))
		for _, m := range merchants {
			s := merchantSummary{
				MerchantID:  m.MerchantID,
				DisplayName: m.DisplayName,
				RecordCount: m.RecordCount,
			}
			if m.LastSyncAt != nil {
				s.LastSyncAt = m.LastSyncAt.UTC().Format(time.RFC3339)
				days := int(time.Since(*m.LastSyncAt).Hours() / 24)
				s.DaysSinceSync = &days
			}
			out = append(out, s)
		}
		c.JSON(http.StatusOK, gin.H{"merchants": out, "count": len(out)})
	}
}

func syncOneHandler(trigger SyncTrigger) gin.HandlerFunc {
	return func(c *gin.Context) {
		merchantID := c.Param("merchantID")
		report, err := trigger.SyncOne(c.Request.Context(), merchantID)
		if err != nil {
			if errors.Is(err, domain.ErrSyncInProgress) {
				c.JSON(http.StatusConflict, gin.H{"error": "sync already in progress", "merchantId": merchantID})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		status := http.StatusOK
		if report.Outcome == domain.SyncFailure {
			status = http.StatusBadGateway
		}
		c.JSON(status, report)
	}
}

func forceSyncAllHandler(trigger SyncTrigger) gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := trigger.SyncAll(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

func cronHandler(trigger SyncTrigger) gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := trigger.RunCycle(c.Request.Context(), false)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

func listMerchantsHandler(creds credrepo.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		merchants, err := creds.ListActive(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list merchants"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"merchants": merchants})
	}
}

// revokeMerchantHandler disconnects a merchant. The credential row stays
// but flips to revoked, so the scheduler stops picking it up.
func revokeMerchantHandler(creds credrepo.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		merchantID := c.Param("merchantID")
		if err := creds.Revoke(c.Request.Context(), merchantID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "merchant not connected"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"merchantId": merchantID, "status": "revoked"})
	}
}

func removeDuplicatesHandler(creds credrepo.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		removed, err := creds.RemoveDuplicates(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"removed": removed})
	}
}

// cronAuth checks the bearer shared secret used by external cron systems.
func cronAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "cron trigger not configured"})
			return
		}
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func apiKeyAuth(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "api key not configured"})
			return
		}
		if subtle.ConstantTimeCompare([]byte(c.GetHeader("X-API-Key")), []byte(key)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
