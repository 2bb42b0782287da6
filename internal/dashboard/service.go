// Package dashboard serves cache-through read models over active alerts.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/couchcryptid/hazard-fusion-service/internal/adapter/cache"
	"github.com/couchcryptid/hazard-fusion-service/internal/domain"
	"github.com/couchcryptid/hazard-fusion-service/internal/observability"
)

// AlertSource loads active alerts from the system of record.
type AlertSource interface {
	GetActiveAlerts(ctx context.Context) ([]domain.Alert, error)
}

// Summary is the dashboard aggregate.
type Summary struct {
	GeneratedAt  time.Time                 `json:"generated_at"`
	ActiveAlerts int                       `json:"active_alerts"`
	BySeverity   map[domain.Severity]int   `json:"by_severity"`
	ByHazardType map[domain.HazardType]int `json:"by_hazard_type"`
	Alerts       []PrioritizedAlert        `json:"alerts"`
}

// PrioritizedAlert pairs an alert with its presentation priority.
type PrioritizedAlert struct {
	Priority float64      `json:"priority"`
	Alert    domain.Alert `json:"alert"`
}

// Service reads alerts through the shared cache store. Entries are dropped by
// cache.Invalidator whenever fusion or an operator changes alerts.
type Service struct {
	source  AlertSource
	store   cache.Store
	ttl     time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewService creates a dashboard service.
func NewService(source AlertSource, store cache.Store, ttl time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{source: source, store: store, ttl: ttl, logger: logger, metrics: metrics}
}

// ActiveAlerts returns the active alerts, served from cache when possible.
func (s *Service) ActiveAlerts(ctx context.Context) ([]domain.Alert, error) {
	var alerts []domain.Alert
	if s.lookup(ctx, cache.KeyActiveAlerts, &alerts) {
		return alerts, nil
	}

	alerts, err := s.source.GetActiveAlerts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load active alerts: %w", err)
	}
	if alerts == nil {
		alerts = []domain.Alert{}
	}
	s.save(ctx, cache.KeyActiveAlerts, alerts)
	return alerts, nil
}

// Summary returns the dashboard aggregate, served from cache when possible.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	var sum Summary
	if s.lookup(ctx, cache.KeyDashboardSummary, &sum) {
		return sum, nil
	}

	alerts, err := s.ActiveAlerts(ctx)
	if err != nil {
		return Summary{}, err
	}
	sum = Summarize(alerts, domain.Now())
	s.save(ctx, cache.KeyDashboardSummary, sum)
	return sum, nil
}

// Summarize aggregates alerts and orders them by descending priority. Equal
// priorities keep the newest alert first.
func Summarize(alerts []domain.Alert, now time.Time) Summary {
	sum := Summary{
		GeneratedAt:  now.UTC(),
		ActiveAlerts: len(alerts),
		BySeverity:   make(map[domain.Severity]int),
		ByHazardType: make(map[domain.HazardType]int),
		Alerts:       make([]PrioritizedAlert, 0, len(alerts)),
	}
	for _, a := range alerts {
		sum.BySeverity[a.Severity]++
		sum.ByHazardType[a.HazardType]++
		sum.Alerts = append(sum.Alerts, PrioritizedAlert{Priority: domain.CalculateAlertPriority(a), Alert: a})
	}
	sort.SliceStable(sum.Alerts, func(i, j int) bool {
		if sum.Alerts[i].Priority != sum.Alerts[j].Priority {
			return sum.Alerts[i].Priority > sum.Alerts[j].Priority
		}
		return sum.Alerts[i].Alert.Timestamp.After(sum.Alerts[j].Alert.Timestamp)
	})
	return sum
}

func (s *Service) lookup(ctx context.Context, key string, dst any) bool {
	raw, ok := s.store.Get(ctx, key)
	if ok {
		if err := json.Unmarshal(raw, dst); err == nil {
			s.metrics.CacheLookups.WithLabelValues("hit").Inc()
			return true
		}
		s.logger.Warn("discarding undecodable cache entry", "key", key)
		s.store.Delete(ctx, key)
	}
	s.metrics.CacheLookups.WithLabelValues("miss").Inc()
	return false
}

func (s *Service) save(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("cache encode failed", "key", key, "error", err)
		return
	}
	s.store.Set(ctx, key, raw, s.ttl)
}
