package fusion_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/hazard-fusion-service/internal/domain"
	"github.com/couchcryptid/hazard-fusion-service/internal/fusion"
	"github.com/couchcryptid/hazard-fusion-service/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCycle struct {
	result  fusion.Result
	err     error
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (m *mockCycle) Run(ctx context.Context) (fusion.Result, error) {
	m.calls.Add(1)
	if m.started != nil {
		close(m.started)
		<-m.release
	}
	if ctx.Err() != nil {
		return fusion.Result{}, ctx.Err()
	}
	return m.result, m.err
}

type mockPublisher struct {
	err     error
	created []domain.Alert
	updated []domain.Alert
	calls   int
}

func (m *mockPublisher) PublishAlerts(_ context.Context, created, updated []domain.Alert) error {
	m.calls++
	m.created, m.updated = created, updated
	return m.err
}

func TestRunner_ReadyAfterFirstSuccess(t *testing.T) {
	r := fusion.NewRunner(&mockCycle{}, nil, discardLogger(), observability.NewMetricsForTesting())

	require.Error(t, r.CheckReadiness(context.Background()))

	_, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.NoError(t, r.CheckReadiness(context.Background()))
}

func TestRunner_FailedCycleNotReady(t *testing.T) {
	cycle := &mockCycle{err: &domain.RepositoryError{Op: "get recent reports", Err: errors.New("timeout")}}
	r := fusion.NewRunner(cycle, nil, discardLogger(), observability.NewMetricsForTesting())

	_, err := r.RunOnce(context.Background())

	var repoErr *domain.RepositoryError
	assert.True(t, errors.As(err, &repoErr))
	assert.Error(t, r.CheckReadiness(context.Background()))
}

func TestRunner_PublishesAlerts(t *testing.T) {
	cycle := &mockCycle{result: fusion.Result{
		NewAlerts:     []domain.Alert{{ID: "new-1"}},
		UpdatedAlerts: []domain.Alert{{ID: "upd-1"}},
	}}
	pub := &mockPublisher{}
	r := fusion.NewRunner(cycle, pub, discardLogger(), observability.NewMetricsForTesting())

	_, err := r.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, pub.calls)
	assert.Equal(t, "new-1", pub.created[0].ID)
	assert.Equal(t, "upd-1", pub.updated[0].ID)
}

func TestRunner_NothingToPublish(t *testing.T) {
	pub := &mockPublisher{}
	r := fusion.NewRunner(&mockCycle{}, pub, discardLogger(), observability.NewMetricsForTesting())

	_, err := r.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Zero(t, pub.calls)
}

func TestRunner_PublishFailureIsNotFatal(t *testing.T) {
	cycle := &mockCycle{result: fusion.Result{NewAlerts: []domain.Alert{{ID: "new-1"}}}}
	pub := &mockPublisher{err: errors.New("broker unavailable")}
	r := fusion.NewRunner(cycle, pub, discardLogger(), observability.NewMetricsForTesting())

	res, err := r.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Len(t, res.NewAlerts, 1)
	assert.NoError(t, r.CheckReadiness(context.Background()))
}

func TestRunner_ConcurrentTriggersShareOneCycle(t *testing.T) {
	cycle := &mockCycle{
		result:  fusion.Result{VerifiedReportIDs: []string{"r1"}},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	r := fusion.NewRunner(cycle, nil, discardLogger(), observability.NewMetricsForTesting())

	var wg sync.WaitGroup
	results := make([]fusion.Result, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = r.RunOnce(context.Background())
	}()
	<-cycle.started

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], _ = r.RunOnce(context.Background())
	}()
	time.Sleep(50 * time.Millisecond)
	close(cycle.release)
	wg.Wait()

	assert.Equal(t, int32(1), cycle.calls.Load())
	assert.Equal(t, results[0], results[1])
}

func TestRunner_CycleIgnoresCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := fusion.NewRunner(&mockCycle{}, nil, discardLogger(), observability.NewMetricsForTesting())

	_, err := r.RunOnce(ctx)

	assert.NoError(t, err)
}

func TestNewScheduler(t *testing.T) {
	r := fusion.NewRunner(&mockCycle{}, nil, discardLogger(), observability.NewMetricsForTesting())

	t.Run("valid schedule", func(t *testing.T) {
		c, err := fusion.NewScheduler(context.Background(), "@every 1m", r, discardLogger())
		require.NoError(t, err)
		assert.Len(t, c.Entries(), 1)
	})

	t.Run("invalid schedule", func(t *testing.T) {
		_, err := fusion.NewScheduler(context.Background(), "every minute please", r, discardLogger())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "every minute please")
	})
}
