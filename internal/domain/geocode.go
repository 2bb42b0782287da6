package domain

import (
	"context"
	"log/slog"
)

// Geocoder resolves a coordinate to a human-readable place name.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (string, error)
}

// EnrichClusterRegion fills in a missing cluster region by reverse geocoding the
// centroid. The cluster is returned unchanged when it already has a region, when
// geocoder is nil, or when the lookup fails.
func EnrichClusterRegion(ctx context.Context, c Cluster, geocoder Geocoder, logger *slog.Logger) Cluster {
	if geocoder == nil || c.Region != "" {
		return c
	}

	name, err := geocoder.ReverseGeocode(ctx, c.Centroid.Lat, c.Centroid.Lon)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"lat", c.Centroid.Lat,
			"lon", c.Centroid.Lon,
			"cluster_size", len(c.Reports),
			"error", err,
		)
		return c
	}
	c.Region = name
	return c
}
