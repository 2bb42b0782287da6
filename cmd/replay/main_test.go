package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/hazard-fusion-service/internal/domain"
	"github.com/couchcryptid/hazard-fusion-service/internal/fusion"
)

func TestRun_CreatesAlert(t *testing.T) {
	var out bytes.Buffer
	code := run("testdata/reports.json", "", "2025-07-01T12:00:00Z", &out)

	require.Equal(t, 0, code)
	assert.Contains(t, out.String(), "flooding")
	assert.Contains(t, out.String(), "Chennai")
	assert.Contains(t, out.String(), "create ")
	assert.Contains(t, out.String(), "1 clusters, 0 skipped, 1 alerts created, 0 alerts updated, 3 reports verified")
	assert.Contains(t, out.String(), "malformed reports left pending: rep-005")
}

func TestRun_MergesIntoExistingAlert(t *testing.T) {
	alerts := filepath.Join(t.TempDir(), "alerts.json")
	require.NoError(t, os.WriteFile(alerts, []byte(`[{
		"id": "alert-existing",
		"timestamp": "2025-07-01T08:00:00Z",
		"region": {"name": "Chennai"},
		"hazard_type": "flooding",
		"severity": "high",
		"confidence": 60,
		"related_reports": ["rep-000"],
		"status": "active"
	}]`), 0o600))

	var out bytes.Buffer
	code := run("testdata/reports.json", alerts, "", &out)

	require.Equal(t, 0, code)
	assert.Contains(t, out.String(), "merge into alert-existing")
	assert.Contains(t, out.String(), "0 alerts created, 1 alerts updated")
}

func TestRun_BadInput(t *testing.T) {
	var out bytes.Buffer
	assert.Equal(t, 1, run("testdata/missing.json", "", "", &out))
	assert.Equal(t, 1, run("testdata/reports.json", "", "yesterday", &out))
}

func TestDecide(t *testing.T) {
	c := func(conf float64, ids ...string) domain.Cluster {
		cl := domain.Cluster{Confidence: conf}
		for _, id := range ids {
			cl.Reports = append(cl.Reports, domain.Report{ID: id})
		}
		return cl
	}
	res := fusion.Result{
		Clusters: []domain.Cluster{c(80, "r1", "r2"), c(75, "r3", "r4"), c(20, "r5", "r6"), c(90, "r7", "r8")},
		NewAlerts: []domain.Alert{
			{ID: "new", RelatedReports: []string{"r1", "r2", "r3", "r4"}},
		},
		UpdatedAlerts: []domain.Alert{
			{ID: "old", RelatedReports: []string{"r0", "r7", "r8"}},
		},
	}

	got := decide(res, 40)
	assert.Equal(t, []string{"create new", "merge into new", "skip (below 40)", "merge into old"}, got)
}
