package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateReport(t *testing.T) {
	valid := newReport("r-1", SourceCitizen, 36.9, -122.0, 0, HazardFlooding, 50)

	tests := []struct {
		name   string
		mutate func(r *Report)
		reason string
	}{
		{"valid", func(*Report) {}, ""},
		{"missing id", func(r *Report) { r.ID = "" }, "missing id"},
		{"missing location", func(r *Report) { r.Location = nil }, "missing location"},
		{"latitude too high", func(r *Report) { r.Location = &Location{Lat: 91, Lon: 0} }, "latitude"},
		{"longitude too low", func(r *Report) { r.Location = &Location{Lat: 0, Lon: -180.5} }, "longitude"},
		{"zero timestamp", func(r *Report) { r.Timestamp = time.Time{} }, "timestamp"},
		{"unlisted source type", func(r *Report) { r.SourceType = "radio" }, "unknown source type"},
		{"empty source type", func(r *Report) { r.SourceType = "" }, "unknown source type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)

			err := ValidateReport(r)
			if tt.reason == "" {
				assert.NoError(t, err)
				return
			}
			var malformed *MalformedReportError
			require.True(t, errors.As(err, &malformed))
			assert.Contains(t, malformed.Reason, tt.reason)
		})
	}
}

func TestSettingsValidate(t *testing.T) {
	require.NoError(t, DefaultSettings().Validate())

	tests := []struct {
		name   string
		mutate func(s *Settings)
		field  string
	}{
		{"zero radius", func(s *Settings) { s.ClusterRadiusKM = 0 }, "ClusterRadiusKM"},
		{"negative window", func(s *Settings) { s.ClusterTimeWindow = -time.Hour }, "ClusterTimeWindow"},
		{"zero min size", func(s *Settings) { s.MinClusterSize = 0 }, "MinClusterSize"},
		{"confidence above 100", func(s *Settings) { s.MinAlertConfidence = 101 }, "MinAlertConfidence"},
		{"negative severity threshold", func(s *Settings) { s.HighSeverityThreshold = -1 }, "HighSeverityThreshold"},
		{"zero match window", func(s *Settings) { s.MatchWindow = 0 }, "MatchWindow"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)

			var cfgErr *ConfigurationError
			require.True(t, errors.As(s.Validate(), &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestRepositoryError(t *testing.T) {
	err := &RepositoryError{Op: "update report r-1", Err: ErrNotFound}

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "repository update report r-1: not found", err.Error())
}
