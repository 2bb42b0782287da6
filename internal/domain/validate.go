package domain

import "fmt"

// ValidateReport checks the fields clustering depends on. It returns a
// *MalformedReportError describing the first problem found.
func ValidateReport(r Report) error {
	switch {
	case r.ID == "":
		return &MalformedReportError{Reason: "missing id"}
	case r.Location == nil:
		return &MalformedReportError{ReportID: r.ID, Reason: "missing location"}
	case r.Location.Lat < -90 || r.Location.Lat > 90:
		return &MalformedReportError{ReportID: r.ID, Reason: "latitude out of range"}
	case r.Location.Lon < -180 || r.Location.Lon > 180:
		return &MalformedReportError{ReportID: r.ID, Reason: "longitude out of range"}
	case r.Timestamp.IsZero():
		return &MalformedReportError{ReportID: r.ID, Reason: "missing timestamp"}
	case !r.SourceType.Valid():
		return &MalformedReportError{ReportID: r.ID, Reason: fmt.Sprintf("unknown source type %q", r.SourceType)}
	}
	return nil
}
