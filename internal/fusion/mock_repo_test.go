package fusion_test

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/couchcryptid/hazard-fusion-service/internal/domain"
	"github.com/couchcryptid/hazard-fusion-service/internal/fusion"
)

// --- mocks ---

// memRepo is an in-memory Repository. WithinTx snapshots state and restores it
// when fn fails, so tests can observe rollback.
type memRepo struct {
	mu      sync.Mutex
	reports map[string]domain.Report
	order   []string
	alerts  []domain.Alert

	createErr       error
	updateErr       error
	reportErr       error
	failReportID    string // UpdateReportStatus fails for this id only
	missingReportID string // UpdateReportStatus reports not found for this id
	afterActive     func() // runs after GetActiveAlerts has taken its copy

	fetchLimit  int
	createCalls int
	updateCalls int
	commits     int
	rollbacks   int
}

func newMemRepo(reports []domain.Report, alerts []domain.Alert) *memRepo {
	r := &memRepo{reports: map[string]domain.Report{}}
	for _, rep := range reports {
		r.reports[rep.ID] = rep
		r.order = append(r.order, rep.ID)
	}
	r.alerts = append(r.alerts, alerts...)
	return r
}

func (m *memRepo) GetActiveAlerts(_ context.Context) ([]domain.Alert, error) {
	var out []domain.Alert
	for _, a := range m.alerts {
		if a.Status == domain.AlertActive {
			out = append(out, a)
		}
	}
	if m.afterActive != nil {
		m.afterActive()
	}
	return out, nil
}

func (m *memRepo) GetRecentReports(_ context.Context, limit int) ([]domain.Report, error) {
	m.fetchLimit = limit
	out := make([]domain.Report, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.reports[id])
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memRepo) CreateAlert(_ context.Context, a domain.Alert) (domain.Alert, error) {
	m.createCalls++
	if m.createErr != nil {
		return domain.Alert{}, m.createErr
	}
	m.alerts = append(m.alerts, a)
	return a, nil
}

func (m *memRepo) UpdateAlert(_ context.Context, a domain.Alert) (domain.Alert, error) {
	m.updateCalls++
	if m.updateErr != nil {
		return domain.Alert{}, m.updateErr
	}
	for i := range m.alerts {
		if m.alerts[i].ID == a.ID && m.alerts[i].Status == domain.AlertActive {
			m.alerts[i] = domain.MergeReports(m.alerts[i], a.RelatedReports, a.Confidence)
			return m.alerts[i], nil
		}
	}
	return domain.Alert{}, domain.ErrNotFound
}

func (m *memRepo) UpdateAlertStatus(_ context.Context, id string, status domain.AlertStatus) (*domain.Alert, error) {
	for i := range m.alerts {
		if m.alerts[i].ID == id {
			m.alerts[i].Status = status
			a := m.alerts[i]
			return &a, nil
		}
	}
	return nil, nil
}

func (m *memRepo) UpdateReportStatus(_ context.Context, id string, status domain.ReportStatus) (*domain.Report, error) {
	if m.reportErr != nil && (m.failReportID == "" || m.failReportID == id) {
		return nil, m.reportErr
	}
	if id == m.missingReportID {
		return nil, nil
	}
	r, ok := m.reports[id]
	if !ok {
		return nil, nil
	}
	r.Status = status
	m.reports[id] = r
	return &r, nil
}

func (m *memRepo) WithinTx(_ context.Context, fn func(fusion.Repository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	reports := maps.Clone(m.reports)
	alerts := slices.Clone(m.alerts)
	if err := fn(m); err != nil {
		m.reports, m.alerts = reports, alerts
		m.rollbacks++
		return err
	}
	m.commits++
	return nil
}

func (m *memRepo) status(id string) domain.ReportStatus {
	return m.reports[id].Status
}

func (m *memRepo) alert(id string) (domain.Alert, bool) {
	for _, a := range m.alerts {
		if a.ID == id {
			return a, true
		}
	}
	return domain.Alert{}, false
}

type mockInvalidator struct {
	activeCalls    int
	dashboardCalls int
}

func (m *mockInvalidator) InvalidateActiveAlerts(context.Context)  { m.activeCalls++ }
func (m *mockInvalidator) InvalidateDashboardData(context.Context) { m.dashboardCalls++ }

type mockGeocoder struct {
	name  string
	err   error
	calls int
}

func (m *mockGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (string, error) {
	m.calls++
	return m.name, m.err
}
