package domain

var recommendations = map[HazardType]map[Severity][]string{
	HazardFlooding: {
		SeverityLow:      {"Avoid walking or driving through standing water", "Monitor local water level updates"},
		SeverityModerate: {"Move valuables and vehicles to higher ground", "Avoid low-lying coastal roads", "Prepare an emergency kit"},
		SeverityHigh:     {"Evacuate low-lying areas immediately if instructed", "Move to higher ground", "Do not drive through flooded roads", "Follow official emergency channels"},
	},
	HazardTsunami: {
		SeverityLow:      {"Stay away from the shoreline", "Monitor official tsunami bulletins"},
		SeverityModerate: {"Leave beaches and harbors", "Move inland or to higher ground", "Monitor official tsunami bulletins"},
		SeverityHigh:     {"Evacuate coastal zones immediately", "Move to high ground or inland at least 3 km", "Do not return until officials give the all clear"},
	},
	HazardStormSurge: {
		SeverityLow:      {"Secure loose outdoor items", "Stay clear of seawalls and jetties"},
		SeverityModerate: {"Prepare to evacuate surge-prone areas", "Move vehicles away from the waterfront", "Avoid coastal roads at high tide"},
		SeverityHigh:     {"Evacuate surge zones immediately", "Shelter on upper floors if evacuation is impossible", "Follow official emergency channels"},
	},
	HazardHighWaves: {
		SeverityLow:      {"Use caution near the water's edge", "Keep children away from breakwaters"},
		SeverityModerate: {"Avoid swimming and surfing", "Stay off rocks, piers and jetties"},
		SeverityHigh:     {"Stay well back from the shoreline", "Small craft should remain in harbor", "Follow official marine warnings"},
	},
	HazardErosion: {
		SeverityLow:      {"Avoid the edges of dunes and bluffs"},
		SeverityModerate: {"Keep away from cliff edges and undercut banks", "Report new slumping to local authorities"},
		SeverityHigh:     {"Evacuate structures near failing bluffs", "Keep well back from cliff edges", "Follow official emergency channels"},
	},
	HazardRipCurrent: {
		SeverityLow:      {"Swim near a lifeguard", "If caught, swim parallel to the shore"},
		SeverityModerate: {"Avoid swimming at unguarded beaches", "If caught, swim parallel to the shore", "Do not attempt rescues without flotation"},
		SeverityHigh:     {"Stay out of the water", "Heed beach closure flags", "Call emergency services for anyone in distress"},
	},
	HazardOther: {
		SeverityLow:      {"Stay alert to local conditions"},
		SeverityModerate: {"Avoid the affected area", "Monitor official updates"},
		SeverityHigh:     {"Avoid the affected area", "Follow instructions from emergency services", "Monitor official updates"},
	},
}

// GenerateRecommendations returns ordered safety advice for a hazard and severity.
// Unknown hazard types use the generic "other" advice; unknown severities are
// treated as moderate. The returned slice is a copy.
func GenerateRecommendations(hazard HazardType, sev Severity) []string {
	bySeverity, ok := recommendations[hazard]
	if !ok {
		bySeverity = recommendations[HazardOther]
	}
	recs, ok := bySeverity[sev]
	if !ok {
		recs = bySeverity[SeverityModerate]
	}
	return append([]string(nil), recs...)
}
