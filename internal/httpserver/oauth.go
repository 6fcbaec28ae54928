package httpserver

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	credrepo "square-customer-sync/internal/repository/credential"
)

const oauthScope = "CUSTOMERS_READ MERCHANT_PROFILE_READ INVOICES_READ ORDERS_READ"

func signinHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps.OAuth.ClientID == "" || deps.OAuth.RedirectURI == "" {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "oauth not configured"})
			return
		}
		c.Redirect(http.StatusFound, deps.Square.AuthorizeURL(deps.OAuth, oauthScope))
	}
}

// oauthCallbackHandler exchanges the authorization code, stores the tokens,
// and kicks off the merchant's initial sync in the background.
func oauthCallbackHandler(logger *log.Logger, deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if errMsg := c.Query("error"); errMsg != "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "authorization denied: " + errMsg})
			return
		}
		code := c.Query("code")
		if code == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no authorization code provided"})
			return
		}

		ctx := c.Request.Context()
		grant, err := deps.Square.ExchangeCode(ctx, deps.OAuth, code)
		if err != nil {
			logger.Printf("oauth: code exchange failed: %v", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "authorization failed"})
			return
		}

		// Best effort; a missing name never blocks the connection.
		displayName, err := deps.Square.BusinessName(ctx, grant.AccessToken)
		if err != nil {
			logger.Printf("oauth: business name lookup failed merchant=%s: %v", grant.MerchantID, err)
		}

		err = deps.Creds.Upsert(ctx, credrepo.UpsertInput{
			MerchantID:   grant.MerchantID,
			AccessToken:  grant.AccessToken,
			RefreshToken: grant.RefreshToken,
			DisplayName:  displayName,
		})
		if err != nil {
			logger.Printf("oauth: credential save failed merchant=%s: %v", grant.MerchantID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "authorized but saving credentials failed"})
			return
		}

		// Initial sync runs detached from the request.
		merchantID := grant.MerchantID
		go func() {
			syncCtx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
			defer cancel()
			if _, err := deps.Sync.SyncOne(syncCtx, merchantID); err != nil {
				logger.Printf("oauth: initial sync failed merchant=%s: %v", merchantID, err)
			}
		}()

		c.JSON(http.StatusOK, gin.H{
			"merchantId":  merchantID,
			"displayName": displayName,
			"status":      "connected",
			"note":        "initial customer sync started in the background",
		})
	}
}
