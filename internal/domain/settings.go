package domain

import (
	"fmt"
	"time"
)

// Settings holds the fusion thresholds. Zero values are not meaningful; start from
// DefaultSettings and override.
type Settings struct {
	ClusterRadiusKM       float64
	ClusterTimeWindow     time.Duration
	MinClusterSize        int
	MinAlertConfidence    float64
	HighSeverityThreshold float64
	MatchWindow           time.Duration
}

// DefaultSettings returns the reference thresholds.
func DefaultSettings() Settings {
	return Settings{
		ClusterRadiusKM:       10,
		ClusterTimeWindow:     24 * time.Hour,
		MinClusterSize:        2,
		MinAlertConfidence:    40,
		HighSeverityThreshold: 70,
		MatchWindow:           48 * time.Hour,
	}
}

// Validate returns a *ConfigurationError for the first invalid threshold.
func (s Settings) Validate() error {
	if s.ClusterRadiusKM <= 0 {
		return &ConfigurationError{Field: "ClusterRadiusKM", Reason: "must be positive"}
	}
	if s.ClusterTimeWindow <= 0 {
		return &ConfigurationError{Field: "ClusterTimeWindow", Reason: "must be positive"}
	}
	if s.MinClusterSize < 1 {
		return &ConfigurationError{Field: "MinClusterSize", Reason: "must be at least 1"}
	}
	if err := checkPercent("MinAlertConfidence", s.MinAlertConfidence); err != nil {
		return err
	}
	if err := checkPercent("HighSeverityThreshold", s.HighSeverityThreshold); err != nil {
		return err
	}
	if s.MatchWindow <= 0 {
		return &ConfigurationError{Field: "MatchWindow", Reason: "must be positive"}
	}
	return nil
}

func checkPercent(field string, v float64) error {
	if v < 0 || v > 100 {
		return &ConfigurationError{Field: field, Reason: fmt.Sprintf("%v outside [0,100]", v)}
	}
	return nil
}
