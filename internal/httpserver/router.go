package httpserver

import (
	"context"
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"square-customer-sync/internal/domain"
	credrepo "square-customer-sync/internal/repository/credential"
	recordrepo "square-customer-sync/internal/repository/record"
	"square-customer-sync/internal/square"
)

// SyncTrigger is the slice of the scheduler exposed over HTTP.
type SyncTrigger interface {
	SyncOne(ctx context.Context, merchantID string) (domain.SyncReport, error)
	SyncAll(ctx context.Context) (domain.CycleSummary, error)
	RunCycle(ctx context.Context, force bool) (domain.CycleSummary, error)
}

// Deps bundles everything the routes need.
type Deps struct {
	Creds      credrepo.Repository
	Records    recordrepo.Repository
	Sync       SyncTrigger
	Square     *square.Client
	OAuth      square.OAuthConfig
	CronSecret string
	APIKey     string
}

// buildRouter wires routes for the sync service.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery(), cors.Default())

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	router.GET("/signin", signinHandler(deps))
	router.GET("/oauth2callback", oauthCallbackHandler(logger, deps))

	router.GET("/dashboard", dashboardHandler(deps.Creds))

	api := router.Group("/api")
	{
		api.POST("/sync/:merchantID", syncOneHandler(deps.Sync))
		api.POST("/force-sync-all", forceSyncAllHandler(deps.Sync))
		api.POST("/cron", cronAuth(deps.CronSecret), cronHandler(deps.Sync))
		api.GET("/merchants", apiKeyAuth(deps.APIKey), listMerchantsHandler(deps.Creds))
		api.DELETE("/merchants/:merchantID", apiKeyAuth(deps.APIKey), revokeMerchantHandler(deps.Creds))
		api.GET("/export/:merchantID", exportHandler(deps.Records))
		api.POST("/maintenance/remove-duplicates", apiKeyAuth(deps.APIKey), removeDuplicatesHandler(deps.Creds))
	}

	return router
}
