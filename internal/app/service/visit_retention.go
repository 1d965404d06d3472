package service

import (
	"context"
	"time"

	apprepository "github.com/yinan077/PassGate/internal/app/repository"
	"go.uber.org/zap"
)

// VisitRetention periodically prunes visit events older than the retention window.
type VisitRetention struct {
	logger    *zap.Logger
	repo      apprepository.VisitEventRepository
	retention time.Duration
	interval  time.Duration
	stopChan  chan struct{}
}

// NewVisitRetention creates a pruner that keeps visit events for the given window.
func NewVisitRetention(logger *zap.Logger, repo apprepository.VisitEventRepository, retention time.Duration) *VisitRetention {
	return &VisitRetention{
		logger:    logger,
		repo:      repo,
		retention: retention,
		interval:  time.Hour,
		stopChan:  make(chan struct{}),
	}
}

// Start begins the periodic pruning loop.
func (r *VisitRetention) Start() {
	go r.run()
}

// Stop stops the pruning loop.
func (r *VisitRetention) Stop() {
	close(r.stopChan)
}

func (r *VisitRetention) run() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.prune()
		case <-r.stopChan:
			r.logger.Info("visit retention pruner stopped")
			return
		}
	}
}

func (r *VisitRetention) prune() {
	ctx := context.Background()
	before := time.Now().Add(-r.retention)

	removed, err := r.repo.DeleteOlderThan(ctx, before)
	if err != nil {
		r.logger.Error("failed to prune visit events", zap.Error(err))
		return
	}

	if removed > 0 {
		r.logger.Info("pruned old visit events",
			zap.Int64("count", removed),
			zap.Time("before", before),
		)
	}
}
