package domain

import "time"

// AlertStatus is the lifecycle state of an alert. Fusion only ever creates active
// alerts; every other transition is made by operators or downstream services.
type AlertStatus string

const (
	AlertActive     AlertStatus = "active"
	AlertVerified   AlertStatus = "verified"
	AlertResolved   AlertStatus = "resolved"
	AlertFalseAlarm AlertStatus = "false_alarm"
)

// Valid reports whether s is one of the known alert statuses.
func (s AlertStatus) Valid() bool {
	switch s {
	case AlertActive, AlertVerified, AlertResolved, AlertFalseAlarm:
		return true
	default:
		return false
	}
}

// Region describes the area an alert covers.
//
// Polygon is a closed ring of [lat, lon] points. Alerts built by the factory carry a
// fixed ±0.1 degree square around the cluster centroid: it is an approximate marker
// for map display, NOT a containment shape, and must not be used for point-in-area
// decisions.
type Region struct {
	Name               string       `json:"name"`
	Polygon            [][2]float64 `json:"polygon"`
	AffectedPopulation int          `json:"affected_population"`
}

// Escalation records why a cluster was turned into a public alert.
type Escalation struct {
	ReportCount      int          `json:"report_count"`
	SourceTypes      []SourceType `json:"source_types"`
	TimeWindow       string       `json:"time_window"`
	GeographicSpread string       `json:"geographic_spread"`
	ThresholdsMet    []string     `json:"thresholds_met"`
	Reasoning        string       `json:"reasoning"`
}

// Alert is a persisted, public-facing hazard alert.
type Alert struct {
	ID              string      `json:"id"`
	IncidentID      string      `json:"incident_id,omitempty"`
	Timestamp       time.Time   `json:"timestamp"`
	Region          Region      `json:"region"`
	HazardType      HazardType  `json:"hazard_type"`
	Severity        Severity    `json:"severity"`
	Confidence      float64     `json:"confidence"`
	Escalation      Escalation  `json:"escalation"`
	RelatedReports  []string    `json:"related_reports"`
	Status          AlertStatus `json:"status"`
	Summary         string      `json:"summary"`
	Recommendations []string    `json:"recommendations,omitempty"`
}

// CalculateAlertPriority ranks alerts for presentation. Severity dominates; confidence
// orders alerts of equal severity. It plays no part in fusion decisions.
func CalculateAlertPriority(a Alert) float64 {
	return float64(a.Severity.rank())*1000 + clampScore(a.Confidence)
}
