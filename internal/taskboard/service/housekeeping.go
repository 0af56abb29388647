package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/store"
)

// HousekeepingService periodically deletes expired refresh token records and
// blacklist entries so neither table grows without bound.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	// Now defaults to time.Now.
	Now func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService returns a stopped service. A non-positive interval
// defaults to one hour.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &HousekeepingService{
		Store:    st,
		Logger:   logger,
		Interval: interval,
		Now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs a sweep immediately and then on every tick until Stop.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until any in-progress sweep has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Sweep(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Sweep(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// SweepResult counts the rows removed by one sweep.
type SweepResult struct {
	RefreshTokens int64
	RevokedTokens int64
}

// Sweep deletes everything that expired before now. Steps are independent:
// a failure in one is logged and the next still runs.
func (s *HousekeepingService) Sweep(ctx context.Context) SweepResult {
	now := s.Now()
	var res SweepResult

	n, err := s.Store.RefreshTokens().DeleteExpiredRefreshTokens(ctx, now)
	if err != nil {
		s.Logger.Error("failed to delete expired refresh tokens", "error", err)
	} else {
		res.RefreshTokens = n
	}

	n, err = s.Store.RevokedTokens().DeleteExpiredRevokedTokens(ctx, now)
	if err != nil {
		s.Logger.Error("failed to delete expired revoked access tokens", "error", err)
	} else {
		res.RevokedTokens = n
	}

	s.Logger.Info("housekeeping sweep completed",
		"refresh_tokens_deleted", res.RefreshTokens,
		"revoked_tokens_deleted", res.RevokedTokens,
	)
	return res
}
