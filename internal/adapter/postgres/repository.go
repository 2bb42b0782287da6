package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchcryptid/hazard-fusion-service/internal/domain"
	"github.com/couchcryptid/hazard-fusion-service/internal/fusion"
)

// querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Repository stores reports and alerts in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool // nil when bound to a transaction
	q    querier
}

// NewRepository creates a repository backed by pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, q: pool}
}

var _ fusion.Repository = (*Repository)(nil)

// GetActiveAlerts returns active alerts, oldest first.
func (r *Repository) GetActiveAlerts(ctx context.Context) ([]domain.Alert, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+alertColumns+` FROM alerts WHERE status = $1 ORDER BY issued_at, id`,
		string(domain.AlertActive))
	if err != nil {
		return nil, fmt.Errorf("query active alerts: %w", err)
	}
	defer rows.Close()

	var alerts []domain.Alert
	for rows.Next() {
		var row alertRow
		if err := rows.Scan(row.scanTargets()...); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a, err := alertFromRow(row)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return alerts, nil
}

// GetRecentReports returns up to limit of the newest pending reports in
// chronological order.
func (r *Repository) GetRecentReports(ctx context.Context, limit int) ([]domain.Report, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+reportColumns+` FROM (
			SELECT `+reportColumns+` FROM reports
			WHERE status = $1
			ORDER BY reported_at DESC, id DESC
			LIMIT $2
		) recent ORDER BY reported_at, id`,
		string(domain.ReportPending), limit)
	if err != nil {
		return nil, fmt.Errorf("query recent reports: %w", err)
	}
	defer rows.Close()

	var reports []domain.Report
	for rows.Next() {
		var row reportRow
		if err := rows.Scan(row.scanTargets()...); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, reportFromRow(row))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return reports, nil
}

// CreateAlert inserts a new alert.
func (r *Repository) CreateAlert(ctx context.Context, alert domain.Alert) (domain.Alert, error) {
	row, err := alertToRow(alert)
	if err != nil {
		return domain.Alert{}, err
	}
	_, err = r.q.Exec(ctx,
		`INSERT INTO alerts (`+alertColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		row.ID, row.IncidentID, row.IssuedAt, row.RegionName, row.RegionPolygon, row.AffectedPopulation,
		row.HazardType, row.Severity, row.Confidence, row.Escalation, row.RelatedReports, row.Status,
		row.Summary, row.Recommendations)
	if err != nil {
		return domain.Alert{}, fmt.Errorf("insert alert %s: %w", alert.ID, err)
	}
	return alert, nil
}

// UpdateAlert merges alert.RelatedReports and alert.Confidence into a stored
// active alert. New report ids are appended in order and confidence only rises.
// Every other column, status included, keeps its stored value. It returns the
// stored alert after the merge, or ErrNotFound when id is unknown or no longer
// active.
func (r *Repository) UpdateAlert(ctx context.Context, alert domain.Alert) (domain.Alert, error) {
	related := alert.RelatedReports
	if related == nil {
		related = []string{}
	}
	var row alertRow
	err := r.q.QueryRow(ctx,
		`UPDATE alerts SET
			related_reports = related_reports || ARRAY(
				SELECT x FROM unnest($2::text[]) WITH ORDINALITY AS t(x, n)
				WHERE NOT (x = ANY(alerts.related_reports))
				ORDER BY n),
			confidence = GREATEST(confidence, $3),
			updated_at = now()
		WHERE id = $1 AND status = $4
		RETURNING `+alertColumns,
		alert.ID, related, alert.Confidence, string(domain.AlertActive)).Scan(row.scanTargets()...)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Alert{}, fmt.Errorf("merge into alert %s: %w", alert.ID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Alert{}, fmt.Errorf("merge into alert %s: %w", alert.ID, err)
	}
	return alertFromRow(row)
}

// UpdateAlertStatus sets the status of an alert. It returns nil, nil when id is unknown.
func (r *Repository) UpdateAlertStatus(ctx context.Context, id string, status domain.AlertStatus) (*domain.Alert, error) {
	var row alertRow
	err := r.q.QueryRow(ctx,
		`UPDATE alerts SET status = $2, updated_at = now() WHERE id = $1 RETURNING `+alertColumns,
		id, string(status)).Scan(row.scanTargets()...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update status of alert %s: %w", id, err)
	}
	a, err := alertFromRow(row)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateReportStatus sets the status of a report. It returns nil, nil when id is unknown.
func (r *Repository) UpdateReportStatus(ctx context.Context, id string, status domain.ReportStatus) (*domain.Report, error) {
	var row reportRow
	err := r.q.QueryRow(ctx,
		`UPDATE reports SET status = $2, updated_at = now() WHERE id = $1 RETURNING `+reportColumns,
		id, string(status)).Scan(row.scanTargets()...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update status of report %s: %w", id, err)
	}
	rep := reportFromRow(row)
	return &rep, nil
}

// InsertReports stores reports, ignoring ids that already exist.
func (r *Repository) InsertReports(ctx context.Context, reports []domain.Report) error {
	if len(reports) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for i := range reports {
		row := reportToRow(reports[i])
		batch.Queue(
			`INSERT INTO reports (`+reportColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			ON CONFLICT (id) DO NOTHING`,
			row.ID, row.ReportedAt, row.Lat, row.Lon, row.Accuracy, row.SourceType, row.Content, row.Media,
			row.SubmittedBy, row.HazardType, row.Severity, row.Confidence, row.Status, row.Region, row.AISummary)
	}

	br := r.q.SendBatch(ctx, batch)
	defer func() { _ = br.Close() }()
	for i := range reports {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert report %s: %w", reports[i].ID, err)
		}
	}
	return nil
}

// WithinTx runs fn in a transaction. A repository that is already bound to a
// transaction runs fn directly.
func (r *Repository) WithinTx(ctx context.Context, fn func(fusion.Repository) error) error {
	if r.pool == nil {
		return fn(r)
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&Repository{q: tx})
	})
}

// Ping checks database connectivity for readiness probes.
func (r *Repository) Ping(ctx context.Context) error {
	if r.pool == nil {
		return nil
	}
	return r.pool.Ping(ctx)
}
