package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned (wrapped) when a repository lookup matches nothing.
var ErrNotFound = errors.New("not found")

// RepositoryError wraps any persistence failure. It is fatal to the current fusion cycle.
type RepositoryError struct {
	Op  string
	Err error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("repository %s: %v", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error { return e.Err }

// MalformedReportError marks a report that cannot be clustered because a required
// field is missing or out of range. The report stays pending.
type MalformedReportError struct {
	ReportID string
	Reason   string
}

func (e *MalformedReportError) Error() string {
	if e.ReportID == "" {
		return "malformed report: " + e.Reason
	}
	return fmt.Sprintf("malformed report %s: %s", e.ReportID, e.Reason)
}

// ConfigurationError reports an invalid threshold or setting detected at startup.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Reason)
}
