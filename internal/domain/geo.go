package domain

import "math"

const earthRadiusKM = 6371.0

// haversineKM returns the great-circle distance between two points in kilometers.
func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKM * c
}

// DistanceKM is the haversine distance between two locations.
func DistanceKM(a, b Location) float64 {
	return haversineKM(a.Lat, a.Lon, b.Lat, b.Lon)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// centroid is the arithmetic mean of member coordinates. Not geodesically exact for
// wide clusters or clusters straddling the antimeridian.
func centroid(reports []Report) Location {
	var lat, lon float64
	n := 0
	for i := range reports {
		if reports[i].Location == nil {
			continue
		}
		lat += reports[i].Location.Lat
		lon += reports[i].Location.Lon
		n++
	}
	if n == 0 {
		return Location{}
	}
	return Location{Lat: lat / float64(n), Lon: lon / float64(n)}
}

func clampScore(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}
