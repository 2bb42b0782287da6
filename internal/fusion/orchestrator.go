package fusion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/hazard-fusion-service/internal/domain"
	"github.com/couchcryptid/hazard-fusion-service/internal/observability"
)

// Repository is the persistence port for reports and alerts.
//
// UpdateAlertStatus and UpdateReportStatus return nil when the id does not exist.
// WithinTx runs fn against a repository bound to a single transaction, committing
// when fn returns nil and rolling back otherwise.
type Repository interface {
	GetActiveAlerts(ctx context.Context) ([]domain.Alert, error)
	GetRecentReports(ctx context.Context, limit int) ([]domain.Report, error)
	CreateAlert(ctx context.Context, alert domain.Alert) (domain.Alert, error)
	UpdateAlert(ctx context.Context, alert domain.Alert) (domain.Alert, error)
	UpdateAlertStatus(ctx context.Context, id string, status domain.AlertStatus) (*domain.Alert, error)
	UpdateReportStatus(ctx context.Context, id string, status domain.ReportStatus) (*domain.Report, error)
	WithinTx(ctx context.Context, fn func(Repository) error) error
}

// CacheInvalidator receives fire-and-forget signals when cached read models go stale.
type CacheInvalidator interface {
	InvalidateActiveAlerts(ctx context.Context)
	InvalidateDashboardData(ctx context.Context)
}

// Result summarizes one fusion cycle.
type Result struct {
	Clusters          []domain.Cluster `json:"clusters"`
	NewAlerts         []domain.Alert   `json:"new_alerts"`
	UpdatedAlerts     []domain.Alert   `json:"updated_alerts"`
	VerifiedReportIDs []string         `json:"verified_report_ids"`
	SkippedClusters   int              `json:"skipped_clusters"`
	MalformedReports  []string         `json:"malformed_reports,omitempty"`
}

// Orchestrator drives a single fusion cycle: fetch, cluster, gate on confidence,
// match or create, persist, and invalidate caches.
//
// Callers must not run two cycles concurrently; Runner serializes them.
type Orchestrator struct {
	repo        Repository
	invalidator CacheInvalidator
	geocoder    domain.Geocoder
	engine      *domain.ClusterEngine
	matcher     *domain.AlertMatcher
	factory     *domain.AlertFactory
	settings    domain.Settings
	fetchLimit  int
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewOrchestrator validates settings and wires the fusion core. Pass a nil geocoder
// to disable region enrichment.
func NewOrchestrator(repo Repository, invalidator CacheInvalidator, geocoder domain.Geocoder, settings domain.Settings, fetchLimit int, logger *slog.Logger, metrics *observability.Metrics) (*Orchestrator, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if fetchLimit <= 0 {
		return nil, &domain.ConfigurationError{Field: "FetchLimit", Reason: "must be positive"}
	}
	return &Orchestrator{
		repo:        repo,
		invalidator: invalidator,
		geocoder:    geocoder,
		engine:      domain.NewClusterEngine(settings),
		matcher:     domain.NewAlertMatcher(settings),
		factory:     domain.NewAlertFactory(settings),
		settings:    settings,
		fetchLimit:  fetchLimit,
		logger:      logger,
		metrics:     metrics,
	}, nil
}

// Run fetches the most recent reports and processes them.
func (o *Orchestrator) Run(ctx context.Context) (Result, error) {
	reports, err := o.repo.GetRecentReports(ctx, o.fetchLimit)
	if err != nil {
		return Result{}, asRepositoryError("get recent reports", err)
	}
	o.metrics.ReportsFetched.Add(float64(len(reports)))
	return o.Process(ctx, reports)
}

// Process runs a cycle over a supplied batch. Non-pending reports are ignored and
// malformed ones are logged and left pending. A persistence failure aborts the
// cycle; clusters committed before the failure stay committed.
func (o *Orchestrator) Process(ctx context.Context, reports []domain.Report) (Result, error) {
	var result Result

	pending := o.wellFormed(domain.PendingOnly(reports), &result)
	if len(pending) == 0 {
		return result, nil
	}

	result.Clusters = o.engine.Cluster(pending)
	if len(result.Clusters) == 0 {
		o.logger.Debug("no clusters formed", "pending_reports", len(pending))
		return result, nil
	}

	active, err := o.repo.GetActiveAlerts(ctx)
	if err != nil {
		return result, asRepositoryError("get active alerts", err)
	}

	cycle := newWorkingSet(active)
	committed := 0
	for i := range result.Clusters {
		c := &result.Clusters[i]
		if c.Confidence < o.settings.MinAlertConfidence {
			result.SkippedClusters++
			o.metrics.Clusters.WithLabelValues("skipped").Inc()
			o.logger.Debug("cluster below confidence threshold",
				"cluster_size", len(c.Reports),
				"confidence", c.Confidence,
				"min_confidence", o.settings.MinAlertConfidence,
			)
			continue
		}

		*c = domain.EnrichClusterRegion(ctx, *c, o.geocoder, o.logger)

		if err := o.processCluster(ctx, *c, cycle); err != nil {
			if committed > 0 {
				o.invalidate(ctx)
			}
			result.NewAlerts, result.UpdatedAlerts = cycle.created(), cycle.updated()
			return result, fmt.Errorf("process cluster %d of %d: %w", i+1, len(result.Clusters), err)
		}
		committed++
		o.metrics.Clusters.WithLabelValues("processed").Inc()
		result.VerifiedReportIDs = append(result.VerifiedReportIDs, c.ReportIDs()...)
	}

	o.invalidate(ctx)

	result.NewAlerts, result.UpdatedAlerts = cycle.created(), cycle.updated()
	o.metrics.ReportsVerified.Add(float64(len(result.VerifiedReportIDs)))
	o.logger.Info("fusion cycle complete",
		"pending_reports", len(pending),
		"clusters", len(result.Clusters),
		"skipped_clusters", result.SkippedClusters,
		"alerts_created", len(result.NewAlerts),
		"alerts_updated", len(result.UpdatedAlerts),
		"reports_verified", len(result.VerifiedReportIDs),
	)
	return result, nil
}

// processCluster persists the alert and verifies member reports in one transaction.
func (o *Orchestrator) processCluster(ctx context.Context, c domain.Cluster, cycle *workingSet) error {
	var (
		saved   domain.Alert
		matched bool
		stale   string
	)

	err := o.repo.WithinTx(ctx, func(tx Repository) error {
		existing, ok := o.matcher.FindMatch(c, cycle.active)
		matched, stale = ok, ""

		var err error
		if ok {
			saved, err = tx.UpdateAlert(ctx, domain.Merge(existing, c))
			if errors.Is(err, domain.ErrNotFound) {
				// Resolved or removed since the cycle read it.
				o.logger.Warn("matched alert no longer active, creating a new one",
					"alert_id", existing.ID,
					"cluster_size", len(c.Reports),
				)
				matched, stale = false, existing.ID
			} else if err != nil {
				return asRepositoryError("update alert "+existing.ID, err)
			}
		}
		if !matched {
			saved, err = tx.CreateAlert(ctx, o.factory.Create(c))
			if err != nil {
				return asRepositoryError("create alert", err)
			}
		}

		for _, id := range c.ReportIDs() {
			r, err := tx.UpdateReportStatus(ctx, id, domain.ReportVerified)
			if err != nil {
				return asRepositoryError("verify report "+id, err)
			}
			if r == nil {
				return &domain.RepositoryError{Op: "verify report " + id, Err: domain.ErrNotFound}
			}
		}
		return nil
	})
	if stale != "" {
		cycle.drop(stale)
	}
	if err != nil {
		return asRepositoryError("transaction", err)
	}

	if matched {
		o.metrics.AlertsUpdated.Inc()
		cycle.recordUpdate(saved)
		o.logger.Info("merged cluster into alert",
			"alert_id", saved.ID,
			"cluster_size", len(c.Reports),
			"confidence", saved.Confidence,
			"related_reports", len(saved.RelatedReports),
		)
		return nil
	}

	o.metrics.AlertsCreated.Inc()
	cycle.recordCreate(saved)
	o.logger.Info("created alert",
		"alert_id", saved.ID,
		"hazard_type", saved.HazardType,
		"severity", saved.Severity,
		"region", saved.Region.Name,
		"confidence", saved.Confidence,
		"cluster_size", len(c.Reports),
	)
	return nil
}

func (o *Orchestrator) wellFormed(pending []domain.Report, result *Result) []domain.Report {
	out := pending[:0:0]
	for i := range pending {
		if err := domain.ValidateReport(pending[i]); err != nil {
			o.logger.Warn("skipping malformed report", "report_id", pending[i].ID, "error", err)
			o.metrics.MalformedReports.Inc()
			result.MalformedReports = append(result.MalformedReports, pending[i].ID)
			continue
		}
		out = append(out, pending[i])
	}
	return out
}

func (o *Orchestrator) invalidate(ctx context.Context) {
	if o.invalidator == nil {
		return
	}
	o.invalidator.InvalidateActiveAlerts(ctx)
	o.invalidator.InvalidateDashboardData(ctx)
}

// asRepositoryError wraps err as a *domain.RepositoryError unless it already is one.
func asRepositoryError(op string, err error) error {
	var repoErr *domain.RepositoryError
	if errors.As(err, &repoErr) {
		return err
	}
	return &domain.RepositoryError{Op: op, Err: err}
}
