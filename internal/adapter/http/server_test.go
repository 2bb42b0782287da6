package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/hazard-fusion-service/internal/adapter/http"
	"github.com/couchcryptid/hazard-fusion-service/internal/dashboard"
	"github.com/couchcryptid/hazard-fusion-service/internal/domain"
	"github.com/couchcryptid/hazard-fusion-service/internal/fusion"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockFusion struct {
	res fusion.Result
	err error
}

func (m *mockFusion) RunOnce(context.Context) (fusion.Result, error) { return m.res, m.err }

type mockAlerts struct {
	alerts map[string]domain.Alert
	err    error
}

func (m *mockAlerts) UpdateAlertStatus(_ context.Context, id string, status domain.AlertStatus) (*domain.Alert, error) {
	if m.err != nil {
		return nil, m.err
	}
	a, ok := m.alerts[id]
	if !ok {
		return nil, nil
	}
	a.Status = status
	m.alerts[id] = a
	return &a, nil
}

type mockDashboard struct {
	alerts []domain.Alert
	err    error
}

func (m *mockDashboard) ActiveAlerts(context.Context) ([]domain.Alert, error) { return m.alerts, m.err }

func (m *mockDashboard) Summary(context.Context) (dashboard.Summary, error) {
	if m.err != nil {
		return dashboard.Summary{}, m.err
	}
	return dashboard.Summarize(m.alerts, domain.Now()), nil
}

type mockInvalidator struct {
	active, dashboard int
}

func (m *mockInvalidator) InvalidateActiveAlerts(context.Context)  { m.active++ }
func (m *mockInvalidator) InvalidateDashboardData(context.Context) { m.dashboard++ }

type fixture struct {
	srv     *httpadapter.Server
	fusion  *mockFusion
	alerts  *mockAlerts
	dash    *mockDashboard
	invalid *mockInvalidator
}

func newFixture(readyErr error) *fixture {
	f := &fixture{
		fusion: &mockFusion{},
		alerts: &mockAlerts{alerts: map[string]domain.Alert{
			"a1": {ID: "a1", HazardType: domain.HazardFlooding, Severity: domain.SeverityHigh, Status: domain.AlertActive},
		}},
		dash: &mockDashboard{alerts: []domain.Alert{
			{ID: "a1", HazardType: domain.HazardFlooding, Severity: domain.SeverityHigh, Confidence: 70, Status: domain.AlertActive},
			{ID: "a2", HazardType: domain.HazardTsunami, Severity: domain.SeverityModerate, Confidence: 95, Status: domain.AlertActive},
		}},
		invalid: &mockInvalidator{},
	}
	f.srv = httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, httpadapter.API{
		Fusion:      f.fusion,
		Alerts:      f.alerts,
		Dashboard:   f.dash,
		Invalidator: f.invalid,
	}, slog.Default())
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	f.srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := newFixture(nil).do(http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := newFixture(nil).do(http.MethodGet, "/readyz", "")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := newFixture(fmt.Errorf("no fusion cycle has completed yet")).do(http.MethodGet, "/readyz", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "no fusion cycle has completed yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := newFixture(nil).do(http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRunFusion(t *testing.T) {
	f := newFixture(nil)
	f.fusion.res = fusion.Result{
		Clusters:          make([]domain.Cluster, 3),
		NewAlerts:         []domain.Alert{{ID: "n1"}},
		UpdatedAlerts:     []domain.Alert{{ID: "u1"}, {ID: "u2"}},
		VerifiedReportIDs: []string{"r1", "r2", "r3", "r4"},
		SkippedClusters:   1,
	}

	rec := f.do(http.MethodPost, "/v1/fusion/run", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.InDelta(t, 3, body["clusters"], 0)
	assert.Equal(t, []any{"n1"}, body["new_alerts"])
	assert.Equal(t, []any{"u1", "u2"}, body["updated_alerts"])
	assert.InDelta(t, 4, body["verified_reports"], 0)
	assert.Equal(t, []any{}, body["malformed_reports"])
}

func TestRunFusion_Error(t *testing.T) {
	f := newFixture(nil)
	f.fusion.err = errors.New("repository get active alerts: boom")

	rec := f.do(http.MethodPost, "/v1/fusion/run", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "fusion cycle failed")
}

func TestRunFusion_MethodNotAllowed(t *testing.T) {
	rec := newFixture(nil).do(http.MethodGet, "/v1/fusion/run", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestActiveAlerts(t *testing.T) {
	rec := newFixture(nil).do(http.MethodGet, "/v1/alerts/active", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var alerts []domain.Alert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alerts))
	assert.Len(t, alerts, 2)
}

func TestDashboard(t *testing.T) {
	rec := newFixture(nil).do(http.MethodGet, "/v1/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var sum dashboard.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, 2, sum.ActiveAlerts)
	require.Len(t, sum.Alerts, 2)
	assert.Equal(t, "a1", sum.Alerts[0].Alert.ID, "high severity outranks higher confidence")
}

func TestDashboard_Error(t *testing.T) {
	f := newFixture(nil)
	f.dash.err = errors.New("db down")

	rec := f.do(http.MethodGet, "/v1/dashboard", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAlertStatus(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		body       string
		wantCode   int
		wantInval  int
		wantStatus domain.AlertStatus
	}{
		{name: "resolve", id: "a1", body: `{"status":"resolved"}`, wantCode: http.StatusOK, wantInval: 1, wantStatus: domain.AlertResolved},
		{name: "unknown alert", id: "missing", body: `{"status":"resolved"}`, wantCode: http.StatusNotFound},
		{name: "invalid status", id: "a1", body: `{"status":"closed"}`, wantCode: http.StatusBadRequest},
		{name: "bad json", id: "a1", body: `{`, wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(nil)
			rec := f.do(http.MethodPatch, "/v1/alerts/"+tt.id+"/status", tt.body)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantInval, f.invalid.active)
			assert.Equal(t, tt.wantInval, f.invalid.dashboard)
			if tt.wantStatus != "" {
				var a domain.Alert
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
				assert.Equal(t, tt.wantStatus, a.Status)
			}
		})
	}
}

func TestAlertStatus_RepositoryError(t *testing.T) {
	f := newFixture(nil)
	f.alerts.err = errors.New("db down")

	rec := f.do(http.MethodPatch, "/v1/alerts/a1/status", `{"status":"verified"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Zero(t, f.invalid.active)
}
