package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"square-customer-sync/internal/square"
)

type stubRefresher struct {
	grants map[string]*square.TokenGrant // keyed by refresh token
	err    error
	calls  int
}

func (s *stubRefresher) Refresh(ctx context.Context, cfg square.OAuthConfig, refreshToken string) (*square.TokenGrant, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if g, ok := s.grants[refreshToken]; ok {
		return g, nil
	}
	return &square.TokenGrant{AccessToken: "fresh", RefreshToken: refreshToken}, nil
}

func testSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:         12 * time.Hour,
		SyncThreshold:    3 * 24 * time.Hour,
		RefreshThreshold: 25 * 24 * time.Hour,
		MerchantDelay:    0, // no pacing in tests
		ErrorCooldown:    time.Hour,
	}
}

func TestRunCycleSyncsDueAndSkipsFresh(t *testing.T) {
	now := time.Now()
	recent := now.Add(-time.Hour)
	stale := now.Add(-5 * 24 * time.Hour)

	due := activeCred("due")
	due.TokenUpdatedAt = now
	due.LastSyncAt = &stale
	fresh := activeCred("fresh")
	fresh.TokenUpdatedAt = now
	fresh.LastSyncAt = &recent

	creds := newStubCreds(due, fresh)
	orch := NewOrchestrator(creds, &stubRecords{}, &stubFetcher{}, &stubLinker{}, nil, time.Minute)
	s := NewScheduler(creds, orch, &stubRefresher{}, square.OAuthConfig{}, nil, testSchedulerConfig())

	summary, err := s.RunCycle(context.Background(), false)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if summary.Synced != 1 || summary.Skipped != 1 {
		t.Errorf("synced=%d skipped=%d, want 1/1", summary.Synced, summary.Skipped)
	}
	if len(summary.Reports) != 1 || summary.Reports[0].MerchantID != "due" {
		t.Errorf("reports = %+v, want one for the due merchant", summary.Reports)
	}
}

func TestRunCycleForceSyncsEveryone(t *testing.T) {
	now := time.Now()
	recent := now.Add(-time.Hour)
	m1 := activeCred("M1")
	m1.TokenUpdatedAt = now
	m1.LastSyncAt = &recent
	m2 := activeCred("M2")
	m2.TokenUpdatedAt = now
	m2.LastSyncAt = &recent

	creds := newStubCreds(m1, m2)
	orch := NewOrchestrator(creds, &stubRecords{}, &stubFetcher{}, &stubLinker{}, nil, time.Minute)
	s := NewScheduler(creds, orch, &stubRefresher{}, square.OAuthConfig{}, nil, testSchedulerConfig())

	summary, err := s.RunCycle(context.Background(), true)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if summary.Synced != 2 || summary.Skipped != 0 {
		t.Errorf("synced=%d skipped=%d, want 2/0", summary.Synced, summary.Skipped)
	}
}

func TestRunCycleRefreshesOldTokens(t *testing.T) {
	old := activeCred("M1")
	old.TokenUpdatedAt = time.Now().Add(-30 * 24 * time.Hour)
	old.RefreshToken = "refresh-M1"

	creds := newStubCreds(old)
	refresher := &stubRefresher{grants: map[string]*square.TokenGrant{
		"refresh-M1": {AccessToken: "brand-new", RefreshToken: "refresh-M1"},
	}}
	orch := NewOrchestrator(creds, &stubRecords{}, &stubFetcher{}, &stubLinker{}, nil, time.Minute)
	s := NewScheduler(creds, orch, refresher, square.OAuthConfig{}, nil, testSchedulerConfig())

	summary, err := s.RunCycle(context.Background(), false)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if summary.Refreshed != 1 {
		t.Errorf("refreshed = %d, want 1", summary.Refreshed)
	}
	if refresher.calls != 1 {
		t.Errorf("refresher called %d times, want 1", refresher.calls)
	}
	if len(creds.upserts) != 1 || creds.upserts[0].AccessToken != "brand-new" {
		t.Errorf("upserts = %+v, want the refreshed token stored", creds.upserts)
	}
}

func TestRunCycleRefreshFailureLeavesMerchantStale(t *testing.T) {
	old := activeCred("M1")
	old.TokenUpdatedAt = time.Now().Add(-30 * 24 * time.Hour)

	creds := newStubCreds(old)
	refresher := &stubRefresher{err: errors.New("oauth down")}
	orch := NewOrchestrator(creds, &stubRecords{}, &stubFetcher{}, &stubLinker{}, nil, time.Minute)
	s := NewScheduler(creds, orch, refresher, square.OAuthConfig{}, nil, testSchedulerConfig())

	summary, err := s.RunCycle(context.Background(), false)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if summary.Refreshed != 0 {
		t.Errorf("refreshed = %d, want 0 after a failed grant", summary.Refreshed)
	}
	// The cycle still attempts the sync with the stale token.
	if summary.Synced != 1 {
		t.Errorf("synced = %d, want 1", summary.Synced)
	}
	if len(creds.upserts) != 0 {
		t.Errorf("upserts = %+v, want none after a failed refresh", creds.upserts)
	}
}

func TestRunCycleListErrorPropagates(t *testing.T) {
	creds := newStubCreds()
	creds.listErr = errors.New("db down")
	orch := NewOrchestrator(creds, &stubRecords{}, &stubFetcher{}, &stubLinker{}, nil, time.Minute)
	s := NewScheduler(creds, orch, &stubRefresher{}, square.OAuthConfig{}, nil, testSchedulerConfig())

	if _, err := s.RunCycle(context.Background(), false); err == nil {
		t.Fatal("want error when listing merchants fails")
	}
}

func TestRunCycleCountsFailures(t *testing.T) {
	m := activeCred("M1")
	m.TokenUpdatedAt = time.Now()

	creds := newStubCreds(m)
	fetcher := &stubFetcher{err: square.ErrUnauthorized}
	orch := NewOrchestrator(creds, &stubRecords{}, fetcher, &stubLinker{}, nil, time.Minute)
	s := NewScheduler(creds, orch, &stubRefresher{}, square.OAuthConfig{}, nil, testSchedulerConfig())

	summary, err := s.RunCycle(context.Background(), false)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if summary.Failed != 1 || summary.Synced != 0 {
		t.Errorf("failed=%d synced=%d, want 1/0", summary.Failed, summary.Synced)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	creds := newStubCreds()
	orch := NewOrchestrator(creds, &stubRecords{}, &stubFetcher{}, &stubLinker{}, nil, time.Minute)
	s := NewScheduler(creds, orch, &stubRefresher{}, square.OAuthConfig{}, nil, testSchedulerConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
