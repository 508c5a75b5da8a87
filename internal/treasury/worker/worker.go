// Package worker runs the scheduled yield claim sweep. The treasury config
// sets the cadence; the worker acts as the admin account.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"verigrant/internal/treasury/models"
	id "verigrant/pkg/domain"
	"verigrant/pkg/requestcontext"
)

// Treasury is the slice of the service the worker drives.
type Treasury interface {
	GetTreasuryConfig(ctx context.Context) (*models.TreasuryConfig, error)
	ClaimYield(ctx context.Context, caller id.AccountID) (int64, error)
}

// YieldClaimer periodically claims accrued yield across all positions.
type YieldClaimer struct {
	treasury Treasury
	logger   *slog.Logger
	cron     *cron.Cron
}

func NewYieldClaimer(treasury Treasury, logger *slog.Logger) *YieldClaimer {
	return &YieldClaimer{
		treasury: treasury,
		logger:   logger,
		cron:     cron.New(),
	}
}

// Start schedules the sweep at the treasury's configured claim frequency.
// The treasury must be initialized before the worker starts.
func (w *YieldClaimer) Start(ctx context.Context) error {
	cfg, err := w.treasury.GetTreasuryConfig(ctx)
	if err != nil {
		return fmt.Errorf("load treasury config: %w", err)
	}
	frequency := cfg.YieldClaimFrequency
	if frequency <= 0 {
		w.logger.InfoContext(ctx, "yield claim frequency not set, worker idle")
		return nil
	}

	admin := cfg.Admin
	_, err = w.cron.AddFunc(fmt.Sprintf("@every %s", frequency), func() {
		w.sweep(admin)
	})
	if err != nil {
		return fmt.Errorf("schedule yield sweep: %w", err)
	}
	w.cron.Start()
	w.logger.InfoContext(ctx, "yield claim worker started", "frequency", frequency.String())
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (w *YieldClaimer) Stop() {
	<-w.cron.Stop().Done()
}

func (w *YieldClaimer) sweep(admin id.AccountID) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	ctx = requestcontext.WithCaller(ctx, admin)

	claimed, err := w.treasury.ClaimYield(ctx, admin)
	if err != nil {
		w.logger.ErrorContext(ctx, "scheduled yield claim failed", "error", err)
		return
	}
	w.logger.InfoContext(ctx, "scheduled yield claim complete", "claimed", claimed)
}
