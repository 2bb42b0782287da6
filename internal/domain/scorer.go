package domain

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
)

// Factor weights for the raw weighted score. They sum to 1.
const (
	weightSourceCount     = 0.20
	weightSourceDiversity = 0.20
	weightTemporal        = 0.15
	weightSpatial         = 0.15
	weightMedia           = 0.10
	weightAI              = 0.20
)

// Decay scales for the consistency factors and the source count saturation.
const (
	countSaturation   = 3.0 // reports
	temporalDecayHour = 6.0 // hours of spread for a 1/e drop
	spatialDecayKM    = 5.0 // mean km from centroid for a 1/e drop
)

// ScoreFactors holds the six sub-scores, each in [0,100].
type ScoreFactors struct {
	SourceCount         float64 `json:"source_count"`
	SourceDiversity     float64 `json:"source_diversity"`
	TemporalConsistency float64 `json:"temporal_consistency"`
	SpatialConsistency  float64 `json:"spatial_consistency"`
	MediaEvidence       float64 `json:"media_evidence"`
	AIConfidence        float64 `json:"ai_confidence"`
}

func (f ScoreFactors) weighted() float64 {
	return f.SourceCount*weightSourceCount +
		f.SourceDiversity*weightSourceDiversity +
		f.TemporalConsistency*weightTemporal +
		f.SpatialConsistency*weightSpatial +
		f.MediaEvidence*weightMedia +
		f.AIConfidence*weightAI
}

// ConfidenceScore is the result of scoring a set of reports.
//
// Factors always describe the full set. Overall is the weighted combination of
// OverallFactors, which are the factors of the source-type subset that scored
// best; they equal Factors when the full set wins.
type ConfidenceScore struct {
	Overall        float64      `json:"overall"`
	Factors        ScoreFactors `json:"factors"`
	OverallFactors ScoreFactors `json:"overall_factors"`
	Breakdown      []string     `json:"breakdown"`
}

// Score computes the 0-100 trust score for a set of reports.
//
// Overall is the best weighted score over every group of source types present in
// the set. Adding a report of a source type not yet present leaves every earlier
// group available, so corroboration from a new channel can never lower the score
// even when it widens the temporal or spatial spread.
func Score(reports []Report) ConfidenceScore {
	if len(reports) == 0 {
		return ConfidenceScore{Breakdown: []string{"no reports available for scoring"}}
	}

	factors := scoreFactors(reports)
	best := factors
	overall := factors.weighted()
	breakdown := []string{
		fmt.Sprintf("source count: %d reports (%.1f)", len(reports), factors.SourceCount),
		fmt.Sprintf("source diversity: %s (%.1f)", joinSourceTypes(DistinctSourceTypes(reports)), factors.SourceDiversity),
		fmt.Sprintf("temporal consistency: %s spread (%.1f)", timeSpread(reports), factors.TemporalConsistency),
		fmt.Sprintf("spatial consistency: %.2f km mean offset (%.1f)", meanOffsetKM(reports), factors.SpatialConsistency),
		fmt.Sprintf("media evidence: %d of %d reports (%.1f)", countWithMedia(reports), len(reports), factors.MediaEvidence),
		fmt.Sprintf("ai confidence: mean %.1f", factors.AIConfidence),
	}

	keys := sourceKeys(reports)
	if len(keys) > 1 {
		for mask := 1; mask < 1<<len(keys)-1; mask++ {
			subset := reportsWithKeys(reports, keys, mask)
			sf := scoreFactors(subset)
			if s := sf.weighted(); s > overall {
				overall, best = s, sf
				breakdown = append(breakdown[:6], fmt.Sprintf("overall taken from %d-report subset of sources %s", len(subset), joinSourceTypes(DistinctSourceTypes(subset))))
			}
		}
	}

	return ConfidenceScore{
		Overall:        math.Round(clampScore(overall)*100) / 100,
		Factors:        factors,
		OverallFactors: best,
		Breakdown:      breakdown,
	}
}

func scoreFactors(reports []Report) ScoreFactors {
	n := float64(len(reports))
	return ScoreFactors{
		SourceCount:         clampScore(100 * (1 - math.Exp(-n/countSaturation))),
		SourceDiversity:     sourceDiversity(reports),
		TemporalConsistency: clampScore(100 * math.Exp(-timeSpread(reports).Hours()/temporalDecayHour)),
		SpatialConsistency:  spatialConsistency(reports),
		MediaEvidence:       clampScore(100 * float64(countWithMedia(reports)) / n),
		AIConfidence:        meanConfidence(reports),
	}
}

// sourceReliability is the per-report weight used by the diversity factor.
func sourceReliability(t SourceType) float64 {
	switch t {
	case SourceOfficial:
		return 20
	case SourceCitizen:
		return 10
	default:
		return 5
	}
}

// sourceDiversity grows with each extra distinct source type and with accumulated
// per-report reliability. Both terms are non-decreasing under any addition.
func sourceDiversity(reports []Report) float64 {
	var reliability float64
	for i := range reports {
		reliability += sourceReliability(reports[i].SourceType)
	}
	distinct := len(sourceKeys(reports))
	return clampScore(float64(distinct-1)*25 + math.Min(50, reliability))
}

func spatialConsistency(reports []Report) float64 {
	located := 0
	for i := range reports {
		if reports[i].Location != nil {
			located++
		}
	}
	if located == 0 {
		return 0
	}
	return clampScore(100 * math.Exp(-meanOffsetKM(reports)/spatialDecayKM))
}

func meanOffsetKM(reports []Report) float64 {
	c := centroid(reports)
	var total float64
	n := 0
	for i := range reports {
		if reports[i].Location == nil {
			continue
		}
		total += DistanceKM(c, *reports[i].Location)
		n++
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

func timeSpread(reports []Report) time.Duration {
	start, end := timeRange(reports)
	return end.Sub(start)
}

func timeRange(reports []Report) (start, end time.Time) {
	for i := range reports {
		ts := reports[i].Timestamp
		if i == 0 || ts.Before(start) {
			start = ts
		}
		if i == 0 || ts.After(end) {
			end = ts
		}
	}
	return start, end
}

func countWithMedia(reports []Report) int {
	n := 0
	for i := range reports {
		if reports[i].HasMedia() {
			n++
		}
	}
	return n
}

func meanConfidence(reports []Report) float64 {
	var total float64
	for i := range reports {
		total += clampScore(reports[i].Classification.Confidence)
	}
	return clampScore(total / float64(len(reports)))
}

// sourceKeys lists the distinct source types that the subset search ranges over.
// The search is exponential in their number; validated reports carry at most three.
func sourceKeys(reports []Report) []SourceType {
	return DistinctSourceTypes(reports)
}

func reportsWithKeys(reports []Report, keys []SourceType, mask int) []Report {
	var out []Report
	for i := range reports {
		idx := slices.Index(keys, reports[i].SourceType)
		if mask&(1<<idx) != 0 {
			out = append(out, reports[i])
		}
	}
	return out
}

// DistinctSourceTypes lists the source types present, in first-occurrence order.
func DistinctSourceTypes(reports []Report) []SourceType {
	var out []SourceType
	for i := range reports {
		if !slices.Contains(out, reports[i].SourceType) {
			out = append(out, reports[i].SourceType)
		}
	}
	return out
}

func joinSourceTypes(types []SourceType) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}

// DetermineSeverity derives a cluster severity from member labels and the aggregate
// confidence.
//
// An explicit high label wins when confidence exceeds highThreshold. Otherwise the
// most common explicit label wins and a tie goes to the more severe label. With no
// explicit labels the confidence bands decide: >=80 high, >=50 moderate, else low.
func DetermineSeverity(reports []Report, confidence, highThreshold float64) Severity {
	votes := map[Severity]int{}
	for i := range reports {
		s := reports[i].Classification.Severity
		if s.rank() == 0 {
			continue
		}
		votes[s]++
		if s == SeverityHigh && confidence > highThreshold {
			return SeverityHigh
		}
	}

	if len(votes) == 0 {
		switch {
		case confidence >= 80:
			return SeverityHigh
		case confidence >= 50:
			return SeverityModerate
		default:
			return SeverityLow
		}
	}

	var best Severity
	for _, s := range []Severity{SeverityLow, SeverityModerate, SeverityHigh} {
		if votes[s] > 0 && votes[s] >= votes[best] {
			best = s
		}
	}
	return best
}
