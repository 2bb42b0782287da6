package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/couchcryptid/hazard-fusion-service/internal/domain"
)

const reportColumns = `id, reported_at, lat, lon, accuracy_m, source_type, content, media,
	submitted_by, hazard_type, severity, confidence, status, region, ai_summary`

const alertColumns = `id, incident_id, issued_at, region_name, region_polygon, affected_population,
	hazard_type, severity, confidence, escalation, related_reports, status, summary, recommendations`

type reportRow struct {
	ID          string
	ReportedAt  time.Time
	Lat         *float64
	Lon         *float64
	Accuracy    *float64
	SourceType  string
	Content     string
	Media       []string
	SubmittedBy string
	HazardType  string
	Severity    string
	Confidence  float64
	Status      string
	Region      string
	AISummary   string
}

func (r *reportRow) scanTargets() []any {
	return []any{
		&r.ID, &r.ReportedAt, &r.Lat, &r.Lon, &r.Accuracy, &r.SourceType, &r.Content, &r.Media,
		&r.SubmittedBy, &r.HazardType, &r.Severity, &r.Confidence, &r.Status, &r.Region, &r.AISummary,
	}
}

// reportFromRow drops the location unless both coordinates are present.
func reportFromRow(row reportRow) domain.Report {
	rep := domain.Report{
		ID:          row.ID,
		Timestamp:   row.ReportedAt.UTC(),
		SourceType:  domain.SourceType(row.SourceType),
		Content:     row.Content,
		Media:       row.Media,
		SubmittedBy: row.SubmittedBy,
		Classification: domain.Classification{
			HazardType: domain.HazardType(row.HazardType),
			Severity:   domain.Severity(row.Severity),
			Confidence: row.Confidence,
		},
		Status:    domain.ReportStatus(row.Status),
		Region:    row.Region,
		AISummary: row.AISummary,
	}
	if row.Lat != nil && row.Lon != nil {
		rep.Location = &domain.Location{Lat: *row.Lat, Lon: *row.Lon, Accuracy: row.Accuracy}
	}
	return rep
}

func reportToRow(rep domain.Report) reportRow {
	row := reportRow{
		ID:          rep.ID,
		ReportedAt:  rep.Timestamp.UTC(),
		SourceType:  string(rep.SourceType),
		Content:     rep.Content,
		Media:       rep.Media,
		SubmittedBy: rep.SubmittedBy,
		HazardType:  string(rep.Classification.HazardType),
		Severity:    string(rep.Classification.Severity),
		Confidence:  rep.Classification.Confidence,
		Status:      string(rep.Status),
		Region:      rep.Region,
		AISummary:   rep.AISummary,
	}
	if row.Media == nil {
		row.Media = []string{}
	}
	if row.Status == "" {
		row.Status = string(domain.ReportPending)
	}
	if rep.Location != nil {
		lat, lon := rep.Location.Lat, rep.Location.Lon
		row.Lat, row.Lon, row.Accuracy = &lat, &lon, rep.Location.Accuracy
	}
	return row
}

type alertRow struct {
	ID                 string
	IncidentID         string
	IssuedAt           time.Time
	RegionName         string
	RegionPolygon      []byte
	AffectedPopulation int
	HazardType         string
	Severity           string
	Confidence         float64
	Escalation         []byte
	RelatedReports     []string
	Status             string
	Summary            string
	Recommendations    []string
}

func (r *alertRow) scanTargets() []any {
	return []any{
		&r.ID, &r.IncidentID, &r.IssuedAt, &r.RegionName, &r.RegionPolygon, &r.AffectedPopulation,
		&r.HazardType, &r.Severity, &r.Confidence, &r.Escalation, &r.RelatedReports, &r.Status,
		&r.Summary, &r.Recommendations,
	}
}

func alertFromRow(row alertRow) (domain.Alert, error) {
	a := domain.Alert{
		ID:         row.ID,
		IncidentID: row.IncidentID,
		Timestamp:  row.IssuedAt.UTC(),
		Region: domain.Region{
			Name:               row.RegionName,
			AffectedPopulation: row.AffectedPopulation,
		},
		HazardType:      domain.HazardType(row.HazardType),
		Severity:        domain.Severity(row.Severity),
		Confidence:      row.Confidence,
		RelatedReports:  row.RelatedReports,
		Status:          domain.AlertStatus(row.Status),
		Summary:         row.Summary,
		Recommendations: row.Recommendations,
	}
	if len(row.RegionPolygon) > 0 {
		if err := json.Unmarshal(row.RegionPolygon, &a.Region.Polygon); err != nil {
			return domain.Alert{}, fmt.Errorf("decode polygon of alert %s: %w", row.ID, err)
		}
	}
	if len(row.Escalation) > 0 {
		if err := json.Unmarshal(row.Escalation, &a.Escalation); err != nil {
			return domain.Alert{}, fmt.Errorf("decode escalation of alert %s: %w", row.ID, err)
		}
	}
	return a, nil
}

func alertToRow(a domain.Alert) (alertRow, error) {
	polygon := a.Region.Polygon
	if polygon == nil {
		polygon = [][2]float64{}
	}
	polygonJSON, err := json.Marshal(polygon)
	if err != nil {
		return alertRow{}, fmt.Errorf("encode polygon of alert %s: %w", a.ID, err)
	}
	escalationJSON, err := json.Marshal(a.Escalation)
	if err != nil {
		return alertRow{}, fmt.Errorf("encode escalation of alert %s: %w", a.ID, err)
	}

	row := alertRow{
		ID:                 a.ID,
		IncidentID:         a.IncidentID,
		IssuedAt:           a.Timestamp.UTC(),
		RegionName:         a.Region.Name,
		RegionPolygon:      polygonJSON,
		AffectedPopulation: a.Region.AffectedPopulation,
		HazardType:         string(a.HazardType),
		Severity:           string(a.Severity),
		Confidence:         a.Confidence,
		Escalation:         escalationJSON,
		RelatedReports:     a.RelatedReports,
		Status:             string(a.Status),
		Summary:            a.Summary,
		Recommendations:    a.Recommendations,
	}
	if row.RelatedReports == nil {
		row.RelatedReports = []string{}
	}
	if row.Recommendations == nil {
		row.Recommendations = []string{}
	}
	return row, nil
}
