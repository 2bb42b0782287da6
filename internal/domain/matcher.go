package domain

import (
	"slices"
	"time"
)

// AlertMatcher decides whether a cluster corroborates an existing active alert.
type AlertMatcher struct {
	window time.Duration
}

// NewAlertMatcher builds a matcher using the configured match window.
func NewAlertMatcher(s Settings) *AlertMatcher {
	return &AlertMatcher{window: s.MatchWindow}
}

// FindMatch returns the first active alert with the cluster's hazard type and region
// whose timestamp lies within the match window of the cluster start. Resolved,
// verified and false-alarm alerts are never reconsidered.
func (m *AlertMatcher) FindMatch(c Cluster, active []Alert) (Alert, bool) {
	for i := range active {
		a := active[i]
		if a.Status != AlertActive {
			continue
		}
		if a.HazardType != c.alertHazardType() || a.Region.Name != c.Region {
			continue
		}
		diff := a.Timestamp.Sub(c.StartTime)
		if diff < 0 {
			diff = -diff
		}
		if diff <= m.window {
			return a, true
		}
	}
	return Alert{}, false
}

// Merge folds a cluster into an existing alert. Related reports become the
// deduplicated union with existing identifiers first, and confidence never drops.
// Every other field is preserved.
func Merge(existing Alert, c Cluster) Alert {
	return MergeReports(existing, c.ReportIDs(), c.Confidence)
}

// MergeReports is Merge for stores that hold the authoritative alert: it adds
// reportIDs and confidence to stored without touching any other field.
func MergeReports(stored Alert, reportIDs []string, confidence float64) Alert {
	updated := stored
	seen := make(map[string]struct{}, len(stored.RelatedReports)+len(reportIDs))
	related := make([]string, 0, len(stored.RelatedReports)+len(reportIDs))
	for _, id := range append(slices.Clone(stored.RelatedReports), reportIDs...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		related = append(related, id)
	}
	updated.RelatedReports = related
	if confidence > stored.Confidence {
		updated.Confidence = confidence
	}
	return updated
}
