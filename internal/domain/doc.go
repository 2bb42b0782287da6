// Package domain is the coastal hazard fusion core.
//
// Reports arrive from citizens, social media and official feeds. The core decides
// when several independent reports describe one real-world event and turns that
// evidence into a public alert, merging into an existing alert instead of raising
// a duplicate.
//
// # Clustering
//
// [ClusterEngine] makes a single pass over pending reports in input order. Two
// reports are compatible when they are within the configured radius (haversine,
// Earth radius 6371 km), within the time window, and carry the same hazard type.
// An unclassified hazard type matches anything. A seed and its compatible
// neighbors form a cluster when they reach the minimum size; neighbors of
// neighbors are not pulled in, so grouping is deliberately non-transitive.
//
// Centroids are the arithmetic mean of member coordinates. This is not
// geodesically exact for wide clusters.
//
// # Scoring
//
// [Score] combines six factors, each in [0,100]:
//
//	source count          20%   saturates with the number of reports
//	source diversity      20%   distinct channels plus per-report reliability
//	temporal consistency  15%   decays with the time spread
//	spatial consistency   15%   decays with the mean distance from the centroid
//	media evidence        10%   share of reports with attached media
//	ai confidence         20%   mean upstream classification confidence
//
// The overall score is the best weighted score over the groups of source types
// present, so a report from a channel not yet represented never lowers it.
//
// # Alerts
//
// [AlertMatcher] only considers active alerts. A cluster matches an alert with
// the same hazard type and region name whose timestamp is within the match
// window of the cluster start. [Merge] unions related reports and keeps the
// higher confidence. [AlertFactory] builds new alerts; the region polygon is a
// fixed ±0.1 degree square around the centroid and is only a display marker.
//
// # ID Generation
//
// Alert IDs are random UUIDs. Incident IDs are deterministic SHA-256 hashes of
// hazard|region|start date so alerts for the same event can be correlated across
// cycles. See [incidentID].
package domain
