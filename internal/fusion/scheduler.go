package fusion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// NewScheduler registers the runner on a cron schedule such as "@every 1m" or
// "*/5 * * * *". Ticks that arrive while a cycle is still running are skipped.
// The returned scheduler is not started.
func NewScheduler(ctx context.Context, schedule string, r *Runner, logger *slog.Logger) (*cron.Cron, error) {
	cl := cronLogger{logger: logger}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	_, err := c.AddFunc(schedule, func() {
		if _, err := r.RunOnce(ctx); err != nil {
			logger.Warn("scheduled fusion cycle failed", "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule %q: %w", schedule, err)
	}
	return c, nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
