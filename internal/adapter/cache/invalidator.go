package cache

import (
	"context"
	"log/slog"
)

// Cache keys shared by the read models and the invalidator.
const (
	KeyActiveAlerts     = "alerts:active"
	KeyDashboardSummary = "dashboard:summary"
	PrefixDashboard     = "dashboard:"
)

// Invalidator drops cached read models after fusion changes alerts.
type Invalidator struct {
	store  Store
	logger *slog.Logger
}

// NewInvalidator creates an Invalidator over store.
func NewInvalidator(store Store, logger *slog.Logger) *Invalidator {
	return &Invalidator{store: store, logger: logger}
}

func (i *Invalidator) InvalidateActiveAlerts(ctx context.Context) {
	i.store.Delete(ctx, KeyActiveAlerts)
	i.logger.Debug("cache invalidated", "key", KeyActiveAlerts)
}

func (i *Invalidator) InvalidateDashboardData(ctx context.Context) {
	i.store.DeletePrefix(ctx, PrefixDashboard)
	i.logger.Debug("cache invalidated", "prefix", PrefixDashboard)
}
