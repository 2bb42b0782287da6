package fusion

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/hazard-fusion-service/internal/domain"
	"github.com/couchcryptid/hazard-fusion-service/internal/observability"
	"golang.org/x/sync/singleflight"
)

// AlertPublisher delivers cycle output to subscribers.
type AlertPublisher interface {
	PublishAlerts(ctx context.Context, created, updated []domain.Alert) error
}

// Cycle is one fusion pass. *Orchestrator implements it.
type Cycle interface {
	Run(ctx context.Context) (Result, error)
}

// Runner serializes fusion cycles. Concurrent triggers (the scheduler and the
// HTTP API) share the in-flight cycle and its result.
type Runner struct {
	cycle     Cycle
	publisher AlertPublisher
	group     singleflight.Group
	ready     atomic.Bool
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewRunner wraps a cycle. Pass a nil publisher to disable broadcasting.
func NewRunner(cycle Cycle, publisher AlertPublisher, logger *slog.Logger, metrics *observability.Metrics) *Runner {
	return &Runner{
		cycle:     cycle,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// RunOnce runs a cycle, or joins the one already running. The cycle itself is not
// cancelled with ctx: stopping between alert persistence and report verification
// would drop evidence.
func (r *Runner) RunOnce(ctx context.Context) (Result, error) {
	v, err, shared := r.group.Do("fusion-cycle", func() (any, error) {
		return r.run(context.WithoutCancel(ctx))
	})
	if shared {
		r.logger.Debug("joined in-flight fusion cycle")
	}
	res, _ := v.(Result)
	return res, err
}

func (r *Runner) run(ctx context.Context) (Result, error) {
	start := time.Now()
	res, err := r.cycle.Run(ctx)
	r.metrics.CycleDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		r.metrics.Cycles.WithLabelValues("error").Inc()
		r.logger.Error("fusion cycle failed", "error", err)
		return res, err
	}
	r.metrics.Cycles.WithLabelValues("success").Inc()
	r.ready.Store(true)

	r.publish(ctx, res)
	return res, nil
}

func (r *Runner) publish(ctx context.Context, res Result) {
	if r.publisher == nil || len(res.NewAlerts)+len(res.UpdatedAlerts) == 0 {
		return
	}
	n := float64(len(res.NewAlerts) + len(res.UpdatedAlerts))
	if err := r.publisher.PublishAlerts(ctx, res.NewAlerts, res.UpdatedAlerts); err != nil {
		r.metrics.AlertsPublished.WithLabelValues("error").Add(n)
		r.logger.Warn("publish alerts failed",
			"created", len(res.NewAlerts),
			"updated", len(res.UpdatedAlerts),
			"error", err,
		)
		return
	}
	r.metrics.AlertsPublished.WithLabelValues("success").Add(n)
}

// CheckReadiness returns nil once a cycle has completed successfully.
func (r *Runner) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("no fusion cycle has completed yet")
	}
	return nil
}
