package domain

import (
	"math"
	"time"
)

// Cluster is an ephemeral grouping of reports judged to describe one hazard event.
type Cluster struct {
	Reports    []Report        `json:"reports"`
	Centroid   Location        `json:"centroid"`
	HazardType HazardType      `json:"hazard_type"`
	Region     string          `json:"region"`
	Severity   Severity        `json:"severity"`
	Confidence float64         `json:"confidence"`
	Score      ConfidenceScore `json:"score"`
	StartTime  time.Time       `json:"start_time"`
	EndTime    time.Time       `json:"end_time"`
}

// ReportIDs returns member identifiers in cluster order.
func (c Cluster) ReportIDs() []string {
	ids := make([]string, len(c.Reports))
	for i := range c.Reports {
		ids[i] = c.Reports[i].ID
	}
	return ids
}

// alertHazardType is the hazard type an alert for this cluster carries. Clusters
// with no classified member are filed under "other".
func (c Cluster) alertHazardType() HazardType {
	if c.HazardType == "" {
		return HazardOther
	}
	return c.HazardType
}

// ClusterEngine groups pending reports into spatio-temporal clusters.
//
// Grouping is a single pass: each unclustered seed collects the still-unclustered
// reports compatible with it and with every member admitted before them, and the
// group is kept when it reaches the minimum size. Neighbors of neighbors are not
// pulled in.
type ClusterEngine struct {
	radiusKM      float64
	window        time.Duration
	minSize       int
	highThreshold float64
}

// NewClusterEngine builds an engine from validated settings.
func NewClusterEngine(s Settings) *ClusterEngine {
	return &ClusterEngine{
		radiusKM:      s.ClusterRadiusKM,
		window:        s.ClusterTimeWindow,
		minSize:       s.MinClusterSize,
		highThreshold: s.HighSeverityThreshold,
	}
}

// Cluster groups reports in input order. A seed that fails the minimum size stays
// unclustered and may still join a later seed. Reports without a location are
// never compatible with anything.
func (e *ClusterEngine) Cluster(reports []Report) []Cluster {
	clustered := make([]bool, len(reports))
	var out []Cluster

	for i := range reports {
		if clustered[i] {
			continue
		}
		members := []int{i}
		for j := range reports {
			if j != i && !clustered[j] && e.compatibleWithAll(reports, members, j) {
				members = append(members, j)
			}
		}
		if len(members) < e.minSize {
			continue
		}

		group := make([]Report, len(members))
		for k, idx := range members {
			clustered[idx] = true
			group[k] = reports[idx]
		}
		out = append(out, e.build(group))
	}
	return out
}

// compatibleWithAll reports whether candidate j fits the seed and every member
// admitted so far, so no two members of a cluster are farther apart than the
// radius or the window.
func (e *ClusterEngine) compatibleWithAll(reports []Report, members []int, j int) bool {
	for _, m := range members {
		if !e.compatible(reports[m], reports[j]) {
			return false
		}
	}
	return true
}

func (e *ClusterEngine) compatible(a, b Report) bool {
	if a.Location == nil || b.Location == nil {
		return false
	}
	if DistanceKM(*a.Location, *b.Location) > e.radiusKM {
		return false
	}
	if math.Abs(float64(a.Timestamp.Sub(b.Timestamp))) > float64(e.window) {
		return false
	}
	ha, hb := a.Classification.HazardType, b.Classification.HazardType
	return ha == "" || hb == "" || ha == hb
}

func (e *ClusterEngine) build(reports []Report) Cluster {
	score := Score(reports)
	start, end := timeRange(reports)
	return Cluster{
		Reports:    reports,
		Centroid:   centroid(reports),
		HazardType: HazardType(mostFrequent(reports, func(r Report) string { return string(r.Classification.HazardType) })),
		Region:     mostFrequent(reports, func(r Report) string { return r.Region }),
		Severity:   DetermineSeverity(reports, score.Overall, e.highThreshold),
		Confidence: score.Overall,
		Score:      score,
		StartTime:  start,
		EndTime:    end,
	}
}

// mostFrequent returns the most common non-empty value, ties going to the value seen first.
func mostFrequent(reports []Report, value func(Report) string) string {
	counts := map[string]int{}
	var order []string
	for i := range reports {
		v := value(reports[i])
		if v == "" {
			continue
		}
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}
	best := ""
	for _, v := range order {
		if counts[v] > counts[best] {
			best = v
		}
	}
	return best
}
