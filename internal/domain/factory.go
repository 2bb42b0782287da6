package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// regionHalfSpanDeg is the half width of the approximate region square.
const regionHalfSpanDeg = 0.1

// Per-report population baselines by severity. A rough exposure heuristic for
// dashboards; there is no census data behind it.
var populationPerReport = map[Severity]int{
	SeverityLow:      50,
	SeverityModerate: 200,
	SeverityHigh:     1000,
}

// AlertFactory builds new alerts from clusters that match no active alert.
type AlertFactory struct {
	radiusKM           float64
	minClusterSize     int
	minAlertConfidence float64
}

// NewAlertFactory builds a factory from validated settings.
func NewAlertFactory(s Settings) *AlertFactory {
	return &AlertFactory{
		radiusKM:           s.ClusterRadiusKM,
		minClusterSize:     s.MinClusterSize,
		minAlertConfidence: s.MinAlertConfidence,
	}
}

// Create builds an active alert for the cluster, timestamped with the package clock.
func (f *AlertFactory) Create(c Cluster) Alert {
	sources := DistinctSourceTypes(c.Reports)
	hazard := c.alertHazardType()
	return Alert{
		ID:         uuid.NewString(),
		IncidentID: incidentID(hazard, c.Region, c.StartTime),
		Timestamp:  clock.Now().UTC(),
		Region: Region{
			Name:               c.Region,
			Polygon:            boundingSquare(c.Centroid),
			AffectedPopulation: populationPerReport[c.Severity] * len(c.Reports),
		},
		HazardType: hazard,
		Severity:   c.Severity,
		Confidence: clampScore(c.Confidence),
		Escalation: Escalation{
			ReportCount:      len(c.Reports),
			SourceTypes:      sources,
			TimeWindow:       timeWindowLabel(c.StartTime, c.EndTime),
			GeographicSpread: fmt.Sprintf("%.1f km", f.radiusKM),
			ThresholdsMet: []string{
				fmt.Sprintf("min_cluster_size>=%d", f.minClusterSize),
				fmt.Sprintf("confidence>=%.0f", f.minAlertConfidence),
			},
			Reasoning: fmt.Sprintf("%d reports from %d source type(s) (%s) within %.1f km over %s; confidence %.1f",
				len(c.Reports), len(sources), joinSourceTypes(sources), f.radiusKM,
				timeWindowLabel(c.StartTime, c.EndTime), c.Confidence),
		},
		RelatedReports:  dedupe(c.ReportIDs()),
		Status:          AlertActive,
		Summary:         summary(c.Severity, hazard, len(c.Reports), c.Region),
		Recommendations: GenerateRecommendations(hazard, c.Severity),
	}
}

func summary(sev Severity, hazard HazardType, count int, region string) string {
	if region == "" {
		region = "an unnamed area"
	}
	return fmt.Sprintf("%s severity %s reported by %d sources in %s", sev, hazard, count, region)
}

// boundingSquare returns a closed ±0.1 degree ring of [lat, lon] points around c.
// It marks the area for display only and is not a containment shape.
func boundingSquare(c Location) [][2]float64 {
	d := regionHalfSpanDeg
	return [][2]float64{
		{c.Lat - d, c.Lon - d},
		{c.Lat - d, c.Lon + d},
		{c.Lat + d, c.Lon + d},
		{c.Lat + d, c.Lon - d},
		{c.Lat - d, c.Lon - d},
	}
}

func timeWindowLabel(start, end time.Time) string {
	const layout = "2006-01-02 15:04 MST"
	if start.Equal(end) {
		return start.UTC().Format(layout)
	}
	return fmt.Sprintf("%s to %s (%s)", start.UTC().Format(layout), end.UTC().Format(layout), end.Sub(start).Round(time.Minute))
}

// incidentID produces a deterministic identifier for the real-world event so that
// alerts raised for the same hazard, region and day can be correlated across cycles.
func incidentID(hazard HazardType, region string, start time.Time) string {
	input := fmt.Sprintf("%s|%s|%s", hazard, region, start.UTC().Format("2006-01-02"))
	hash := sha256.Sum256([]byte(input))
	return "inc-" + hex.EncodeToString(hash[:8])
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
