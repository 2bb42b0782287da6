// Package memory is an in-process repository for dry runs and replay. Nothing is
// persisted beyond the life of the value.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/couchcryptid/hazard-fusion-service/internal/domain"
	"github.com/couchcryptid/hazard-fusion-service/internal/fusion"
)

// Repository keeps reports and alerts in memory.
type Repository struct {
	mu      *sync.Mutex
	inTx    bool
	reports map[string]domain.Report
	alerts  []domain.Alert
}

// NewRepository seeds a repository. Later duplicates of a report id win.
func NewRepository(reports []domain.Report, alerts []domain.Alert) *Repository {
	r := &Repository{
		mu:      &sync.Mutex{},
		reports: make(map[string]domain.Report, len(reports)),
		alerts:  slices.Clone(alerts),
	}
	for _, rep := range reports {
		r.reports[rep.ID] = rep
	}
	return r
}

var _ fusion.Repository = (*Repository)(nil)

func (r *Repository) lock() func() {
	if r.inTx {
		return func() {}
	}
	r.mu.Lock()
	return r.mu.Unlock
}

// GetActiveAlerts returns active alerts, oldest first.
func (r *Repository) GetActiveAlerts(_ context.Context) ([]domain.Alert, error) {
	defer r.lock()()

	var out []domain.Alert
	for _, a := range r.alerts {
		if a.Status == domain.AlertActive {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// GetRecentReports returns up to limit of the newest pending reports in
// chronological order.
func (r *Repository) GetRecentReports(_ context.Context, limit int) ([]domain.Report, error) {
	defer r.lock()()

	out := make([]domain.Report, 0, len(r.reports))
	for _, rep := range r.reports {
		if rep.Status == domain.ReportPending {
			out = append(out, rep)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r *Repository) CreateAlert(_ context.Context, a domain.Alert) (domain.Alert, error) {
	defer r.lock()()

	for _, existing := range r.alerts {
		if existing.ID == a.ID {
			return domain.Alert{}, fmt.Errorf("alert %s already exists", a.ID)
		}
	}
	r.alerts = append(r.alerts, a)
	return a, nil
}

// UpdateAlert merges a.RelatedReports and a.Confidence into the stored alert
// without touching its status or any other field. Alerts that are missing or no
// longer active yield ErrNotFound.
func (r *Repository) UpdateAlert(_ context.Context, a domain.Alert) (domain.Alert, error) {
	defer r.lock()()

	for i := range r.alerts {
		if r.alerts[i].ID != a.ID {
			continue
		}
		if r.alerts[i].Status != domain.AlertActive {
			break
		}
		r.alerts[i] = domain.MergeReports(r.alerts[i], a.RelatedReports, a.Confidence)
		return r.alerts[i], nil
	}
	return domain.Alert{}, fmt.Errorf("merge into alert %s: %w", a.ID, domain.ErrNotFound)
}

func (r *Repository) UpdateAlertStatus(_ context.Context, id string, status domain.AlertStatus) (*domain.Alert, error) {
	defer r.lock()()

	for i := range r.alerts {
		if r.alerts[i].ID == id {
			r.alerts[i].Status = status
			a := r.alerts[i]
			return &a, nil
		}
	}
	return nil, nil
}

func (r *Repository) UpdateReportStatus(_ context.Context, id string, status domain.ReportStatus) (*domain.Report, error) {
	defer r.lock()()

	rep, ok := r.reports[id]
	if !ok {
		return nil, nil
	}
	rep.Status = status
	r.reports[id] = rep
	return &rep, nil
}

// WithinTx holds the lock for the duration of fn and restores the previous state
// when fn fails.
func (r *Repository) WithinTx(_ context.Context, fn func(fusion.Repository) error) error {
	if r.inTx {
		return fn(r)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	reports := maps.Clone(r.reports)
	alerts := slices.Clone(r.alerts)

	tx := &Repository{mu: r.mu, inTx: true, reports: r.reports, alerts: r.alerts}
	if err := fn(tx); err != nil {
		r.reports, r.alerts = reports, alerts
		return err
	}
	r.reports, r.alerts = tx.reports, tx.alerts
	return nil
}

// Alerts returns every stored alert regardless of status.
func (r *Repository) Alerts() []domain.Alert {
	defer r.lock()()
	return slices.Clone(r.alerts)
}

// Report returns the stored report with id.
func (r *Repository) Report(id string) (domain.Report, bool) {
	defer r.lock()()
	rep, ok := r.reports[id]
	return rep, ok
}
