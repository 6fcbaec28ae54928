package sync

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"square-customer-sync/internal/domain"
	credrepo "square-customer-sync/internal/repository/credential"
	"square-customer-sync/internal/square"
)

// TokenRefresher performs the OAuth refresh grant.
type TokenRefresher interface {
	Refresh(ctx context.Context, cfg square.OAuthConfig, refreshToken string) (*square.TokenGrant, error)
}

// SchedulerConfig carries the scheduling policy knobs.
type SchedulerConfig struct {
	Interval         time.Duration // spacing between cycles
	SyncThreshold    time.Duration // data age that makes a merchant due
	RefreshThreshold time.Duration // token age that forces a refresh
	MerchantDelay    time.Duration // spacing between merchants in a cycle
	ErrorCooldown    time.Duration // sleep after a cycle-level error
}

// Scheduler decides when each merchant is refreshed and synced and drives
// the orchestrator with inter-merchant spacing. One long-lived loop runs
// per process; the trigger endpoints run single cycles synchronously.
type Scheduler struct {
	creds    credrepo.Repository
	orch     *Orchestrator
	oauth    TokenRefresher
	oauthCfg square.OAuthConfig
	logger   *log.Logger
	cfg      SchedulerConfig
	pacer    *rate.Limiter
}

// NewScheduler builds a Scheduler around the given orchestrator.
func NewScheduler(creds credrepo.Repository, orch *Orchestrator, oauth TokenRefresher, oauthCfg square.OAuthConfig, logger *log.Logger, cfg SchedulerConfig) *Scheduler {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	limit := rate.Inf
	if cfg.MerchantDelay > 0 {
		limit = rate.Every(cfg.MerchantDelay)
	}
	return &Scheduler{
		creds:    creds,
		orch:     orch,
		oauth:    oauth,
		oauthCfg: oauthCfg,
		logger:   logger,
		cfg:      cfg,
		pacer:    rate.NewLimiter(limit, 1),
	}
}

// Run is the background loop. It never exits on error: a failed cycle logs
// and sleeps the cooldown, then the loop goes again. Returns when ctx is
// cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Printf("scheduler: started interval=%s sync_threshold=%s", s.cfg.Interval, s.cfg.SyncThreshold)
	for {
		summary, err := s.RunCycle(ctx, false)
		pause := s.cfg.Interval
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Printf("scheduler: cycle failed: %v", err)
			pause = s.cfg.ErrorCooldown
		} else {
			s.logger.Printf("scheduler: cycle %s done synced=%d refreshed=%d skipped=%d failed=%d",
				summary.ID, summary.Synced, summary.Refreshed, summary.Skipped, summary.Failed)
		}
		if !sleep(ctx, pause) {
			s.logger.Printf("scheduler: stopped")
			return
		}
	}
}

// RunCycle enumerates active merchants once: refresh tokens that are due,
// sync merchants that are due (all of them when force is set). One
// merchant's failure never affects the others.
func (s *Scheduler) RunCycle(ctx context.Context, force bool) (domain.CycleSummary, error) {
	summary := domain.CycleSummary{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}

	merchants, err := s.creds.ListActive(ctx)
	if err != nil {
		return summary, err
	}

	for _, m := range merchants {
		if err := s.pacer.Wait(ctx); err != nil {
			break
		}

		if ShouldRefreshToken(m.TokenUpdatedAt, s.cfg.RefreshThreshold) {
			if err := s.refreshMerchant(ctx, m); err != nil {
				// Leave the merchant stale; last_sync_at not advancing is
				// the operator's signal.
				s.logger.Printf("scheduler: token refresh failed merchant=%s err=%v", m.MerchantID, err)
			} else {
				summary.Refreshed++
			}
		}

		if !force && !ShouldSync(m.LastSyncAt, s.cfg.SyncThreshold) {
			summary.Skipped++
			continue
		}

		report, err := s.orch.SyncMerchant(ctx, m.MerchantID)
		if err != nil {
			summary.Failed++
			s.logger.Printf("scheduler: sync rejected merchant=%s err=%v", m.MerchantID, err)
			continue
		}
		summary.Reports = append(summary.Reports, report)
		if report.Outcome == domain.SyncFailure {
			summary.Failed++
		} else {
			summary.Synced++
		}
	}

	summary.FinishedAt = time.Now().UTC()
	return summary, nil
}

// SyncOne runs a synchronous sync for a single merchant (manual trigger).
func (s *Scheduler) SyncOne(ctx context.Context, merchantID string) (domain.SyncReport, error) {
	return s.orch.SyncMerchant(ctx, merchantID)
}

// SyncAll forces a synchronous cycle over every active merchant, ignoring
// the due-for-sync gate.
func (s *Scheduler) SyncAll(ctx context.Context) (domain.CycleSummary, error) {
	return s.RunCycle(ctx, true)
}

func (s *Scheduler) refreshMerchant(ctx context.Context, m domain.MerchantCredential) error {
	grant, err := s.oauth.Refresh(ctx, s.oauthCfg, m.RefreshToken)
	if err != nil {
		return err
	}
	return s.creds.Upsert(ctx, credrepo.UpsertInput{
		MerchantID:   m.MerchantID,
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
	})
}

// sleep waits for d or until ctx is done; false means cancelled.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
