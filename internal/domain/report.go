package domain

import "time"

// SourceType is the channel a report arrived through.
type SourceType string

const (
	SourceCitizen  SourceType = "citizen"
	SourceSocial   SourceType = "social"
	SourceOfficial SourceType = "official"
)

// Valid reports whether t is one of the known source channels.
func (t SourceType) Valid() bool {
	switch t {
	case SourceCitizen, SourceSocial, SourceOfficial:
		return true
	default:
		return false
	}
}

// ReportStatus tracks a report through fusion. Only pending reports are clustered.
type ReportStatus string

const (
	ReportPending  ReportStatus = "pending"
	ReportVerified ReportStatus = "verified"
	ReportRejected ReportStatus = "rejected"
)

// HazardType classifies a coastal hazard. The empty value means unclassified.
type HazardType string

const (
	HazardFlooding   HazardType = "flooding"
	HazardTsunami    HazardType = "tsunami"
	HazardStormSurge HazardType = "storm_surge"
	HazardHighWaves  HazardType = "high_waves"
	HazardErosion    HazardType = "erosion"
	HazardRipCurrent HazardType = "rip_current"
	HazardOther      HazardType = "other"
)

// Severity is the qualitative impact level of a hazard. The empty value means unspecified.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
)

// rank orders severities so that ties can be broken toward the more severe label.
func (s Severity) rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityModerate:
		return 2
	case SeverityHigh:
		return 3
	default:
		return 0
	}
}

// Location is a WGS-84 coordinate pair with optional horizontal accuracy in meters.
type Location struct {
	Lat      float64  `json:"lat"`
	Lon      float64  `json:"lon"`
	Accuracy *float64 `json:"accuracy,omitempty"`
}

// Classification is the upstream (AI or analyst) labelling of a report.
type Classification struct {
	HazardType HazardType `json:"hazard_type,omitempty"`
	Severity   Severity   `json:"severity,omitempty"`
	Confidence float64    `json:"confidence"` // 0-100
}

// Report is a single hazard observation submitted by a citizen, derived from social
// media, or published by an official feed.
type Report struct {
	ID             string         `json:"id"`
	Timestamp      time.Time      `json:"timestamp"`
	Location       *Location      `json:"location,omitempty"`
	SourceType     SourceType     `json:"source_type"`
	Content        string         `json:"content"`
	Media          []string       `json:"media,omitempty"`
	SubmittedBy    string         `json:"submitted_by,omitempty"`
	Classification Classification `json:"classification"`
	Status         ReportStatus   `json:"status"`
	Region         string         `json:"region,omitempty"`
	AISummary      string         `json:"ai_summary,omitempty"`
}

// HasMedia reports whether the report carries any attached media evidence.
func (r Report) HasMedia() bool {
	return len(r.Media) > 0
}

// PendingOnly returns the reports whose status is pending, preserving order.
func PendingOnly(reports []Report) []Report {
	out := make([]Report, 0, len(reports))
	for i := range reports {
		if reports[i].Status == ReportPending {
			out = append(out, reports[i])
		}
	}
	return out
}
