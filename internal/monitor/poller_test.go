package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/voyara/platform/internal/model"
	"github.com/voyara/platform/internal/probe"
)

// ---------- Mocks ----------

type mockRegistry struct {
	mock.Mock
}

func (m *mockRegistry) ListActiveProviders(ctx context.Context) ([]model.ProviderRef, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ProviderRef), args.Error(1)
}

func (m *mockRegistry) ProviderIDByName(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

type mockProber struct {
	mock.Mock
}

func (m *mockProber) CheckAll(ctx context.Context) ([]probe.Result, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]probe.Result), args.Error(1)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) AppendHealthLog(ctx context.Context, entry *model.ProviderHealthLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *mockStore) QueryHealthLogs(ctx context.Context, providerID string, since time.Time) ([]model.ProviderHealthLog, error) {
	args := m.Called(ctx, providerID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ProviderHealthLog), args.Error(1)
}

func (m *mockStore) UpdateCheckSnapshot(ctx context.Context, providerID, status string, checkedAt time.Time, latencyMS int64) error {
	args := m.Called(ctx, providerID, status, checkedAt, latencyMS)
	return args.Error(0)
}

func (m *mockStore) UpdateMetricsSnapshot(ctx context.Context, providerID string, metrics model.ProviderMetrics) error {
	args := m.Called(ctx, providerID, metrics)
	return args.Error(0)
}

func newTestPoller(registry *mockRegistry, prober *mockProber, store *mockStore) *Poller {
	return NewPoller(registry, prober, store, zerolog.Nop())
}

// ---------- RunHealthChecks ----------

func TestRunHealthChecks_RecordsEveryResult(t *testing.T) {
	ctx := context.Background()
	checkedAt := time.Now().UTC()

	prober := new(mockProber)
	prober.On("CheckAll", ctx).Return([]probe.Result{
		{Target: "skyfare", Status: model.HealthHealthy, LatencyMS: 42, StatusCode: 200, CheckedAt: checkedAt},
		{Target: "staywell", Status: model.HealthUnhealthy, LatencyMS: 310, Detail: "HTTP 503", StatusCode: 503, CheckedAt: checkedAt},
	}, nil)

	registry := new(mockRegistry)
	registry.On("ProviderIDByName", ctx, "skyfare").Return("prv_1", nil)
	registry.On("ProviderIDByName", ctx, "staywell").Return("prv_2", nil)

	store := new(mockStore)
	store.On("AppendHealthLog", ctx, mock.AnythingOfType("*model.ProviderHealthLog")).Return(nil).Twice()
	store.On("UpdateCheckSnapshot", ctx, "prv_1", model.HealthHealthy, checkedAt, int64(42)).Return(nil)
	store.On("UpdateCheckSnapshot", ctx, "prv_2", model.HealthUnhealthy, checkedAt, int64(310)).Return(nil)

	err := newTestPoller(registry, prober, store).RunHealthChecks(ctx)
	require.NoError(t, err)
	store.AssertExpectations(t)
	registry.AssertExpectations(t)
}

func TestRunHealthChecks_LogEntryCarriesProbeOutcome(t *testing.T) {
	ctx := context.Background()
	checkedAt := time.Now().UTC()

	prober := new(mockProber)
	prober.On("CheckAll", ctx).Return([]probe.Result{
		{Target: "skyfare", Status: model.HealthDegraded, LatencyMS: 180, Detail: "HTTP 429", StatusCode: 429, CheckedAt: checkedAt},
	}, nil)

	registry := new(mockRegistry)
	registry.On("ProviderIDByName", ctx, "skyfare").Return("prv_1", nil)

	var captured *model.ProviderHealthLog
	store := new(mockStore)
	store.On("AppendHealthLog", ctx, mock.AnythingOfType("*model.ProviderHealthLog")).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*model.ProviderHealthLog)
		}).
		Return(nil)
	store.On("UpdateCheckSnapshot", ctx, "prv_1", model.HealthDegraded, checkedAt, int64(180)).Return(nil)

	err := newTestPoller(registry, prober, store).RunHealthChecks(ctx)
	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.NotEmpty(t, captured.ID)
	assert.Equal(t, "prv_1", captured.ProviderID)
	assert.Equal(t, model.HealthDegraded, captured.Status)
	assert.Equal(t, int64(180), captured.LatencyMS)
	assert.Equal(t, "HTTP 429", captured.Detail)
	assert.JSONEq(t, `{"status_code":429}`, string(captured.Metadata))
	assert.Equal(t, checkedAt, captured.CheckedAt)
}

func TestRunHealthChecks_NoMetadataWithoutStatusCode(t *testing.T) {
	ctx := context.Background()

	prober := new(mockProber)
	prober.On("CheckAll", ctx).Return([]probe.Result{
		{Target: "skyfare", Status: model.HealthUnhealthy, Detail: "connection refused", CheckedAt: time.Now().UTC()},
	}, nil)

	registry := new(mockRegistry)
	registry.On("ProviderIDByName", ctx, "skyfare").Return("prv_1", nil)

	var captured *model.ProviderHealthLog
	store := new(mockStore)
	store.On("AppendHealthLog", ctx, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*model.ProviderHealthLog)
		}).
		Return(nil)
	store.On("UpdateCheckSnapshot", ctx, "prv_1", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	err := newTestPoller(registry, prober, store).RunHealthChecks(ctx)
	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.Nil(t, captured.Metadata)
}

func TestRunHealthChecks_SkipsUnregisteredProvider(t *testing.T) {
	ctx := context.Background()

	prober := new(mockProber)
	prober.On("CheckAll", ctx).Return([]probe.Result{
		{Target: "ghost", Status: model.HealthHealthy, CheckedAt: time.Now().UTC()},
		{Target: "skyfare", Status: model.HealthHealthy, LatencyMS: 50, CheckedAt: time.Now().UTC()},
	}, nil)

	registry := new(mockRegistry)
	registry.On("ProviderIDByName", ctx, "ghost").Return("", model.ErrProviderNotFound)
	registry.On("ProviderIDByName", ctx, "skyfare").Return("prv_1", nil)

	store := new(mockStore)
	store.On("AppendHealthLog", ctx, mock.Anything).Return(nil).Once()
	store.On("UpdateCheckSnapshot", ctx, "prv_1", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	err := newTestPoller(registry, prober, store).RunHealthChecks(ctx)
	require.NoError(t, err)
	store.AssertNumberOfCalls(t, "AppendHealthLog", 1)
}

func TestRunHealthChecks_ProbeFailureAborts(t *testing.T) {
	ctx := context.Background()

	prober := new(mockProber)
	prober.On("CheckAll", ctx).Return(nil, errors.New("dial tcp: connection refused"))

	registry := new(mockRegistry)
	store := new(mockStore)

	err := newTestPoller(registry, prober, store).RunHealthChecks(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "probe sweep")
	store.AssertNotCalled(t, "AppendHealthLog", mock.Anything, mock.Anything)
}

func TestRunHealthChecks_AppendFailureDoesNotAbortSweep(t *testing.T) {
	ctx := context.Background()
	checkedAt := time.Now().UTC()

	prober := new(mockProber)
	prober.On("CheckAll", ctx).Return([]probe.Result{
		{Target: "skyfare", Status: model.HealthHealthy, LatencyMS: 40, CheckedAt: checkedAt},
		{Target: "staywell", Status: model.HealthHealthy, LatencyMS: 60, CheckedAt: checkedAt},
	}, nil)

	registry := new(mockRegistry)
	registry.On("ProviderIDByName", ctx, "skyfare").Return("prv_1", nil)
	registry.On("ProviderIDByName", ctx, "staywell").Return("prv_2", nil)

	store := new(mockStore)
	store.On("AppendHealthLog", ctx, mock.MatchedBy(func(e *model.ProviderHealthLog) bool {
		return e.ProviderID == "prv_1"
	})).Return(errors.New("insert provider health log: connection reset"))
	store.On("AppendHealthLog", ctx, mock.MatchedBy(func(e *model.ProviderHealthLog) bool {
		return e.ProviderID == "prv_2"
	})).Return(nil)
	store.On("UpdateCheckSnapshot", ctx, "prv_2", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	err := newTestPoller(registry, prober, store).RunHealthChecks(ctx)
	require.NoError(t, err)
	// The failed provider never reaches the snapshot update.
	store.AssertNotCalled(t, "UpdateCheckSnapshot", ctx, "prv_1", mock.Anything, mock.Anything, mock.Anything)
	store.AssertCalled(t, "UpdateCheckSnapshot", ctx, "prv_2", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunHealthChecks_SnapshotFailureDoesNotAbortSweep(t *testing.T) {
	ctx := context.Background()
	checkedAt := time.Now().UTC()

	prober := new(mockProber)
	prober.On("CheckAll", ctx).Return([]probe.Result{
		{Target: "skyfare", Status: model.HealthHealthy, LatencyMS: 40, CheckedAt: checkedAt},
		{Target: "staywell", Status: model.HealthHealthy, LatencyMS: 60, CheckedAt: checkedAt},
	}, nil)

	registry := new(mockRegistry)
	registry.On("ProviderIDByName", ctx, "skyfare").Return("prv_1", nil)
	registry.On("ProviderIDByName", ctx, "staywell").Return("prv_2", nil)

	store := new(mockStore)
	store.On("AppendHealthLog", ctx, mock.Anything).Return(nil).Twice()
	store.On("UpdateCheckSnapshot", ctx, "prv_1", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("update provider snapshot: timeout"))
	store.On("UpdateCheckSnapshot", ctx, "prv_2", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	err := newTestPoller(registry, prober, store).RunHealthChecks(ctx)
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestRunHealthChecks_EmptySweepSucceeds(t *testing.T) {
	ctx := context.Background()

	prober := new(mockProber)
	prober.On("CheckAll", ctx).Return([]probe.Result{}, nil)

	err := newTestPoller(new(mockRegistry), prober, new(mockStore)).RunHealthChecks(ctx)
	require.NoError(t, err)
}

// ---------- CalculateProviderMetrics ----------

func TestCalculateProviderMetrics_AggregatesTrailingWindow(t *testing.T) {
	ctx := context.Background()

	// 7 healthy rows and 3 unhealthy rows: success 70%, error 30%,
	// average latency (100+120+90+110+95+105+115+500+600+550)/10 = 238.5.
	logs := make([]model.ProviderHealthLog, 0, 10)
	for _, ms := range []int64{100, 120, 90, 110, 95, 105, 115} {
		logs = append(logs, model.ProviderHealthLog{Status: model.HealthHealthy, LatencyMS: ms})
	}
	for _, ms := range []int64{500, 600, 550} {
		logs = append(logs, model.ProviderHealthLog{Status: model.HealthUnhealthy, LatencyMS: ms})
	}

	registry := new(mockRegistry)
	registry.On("ListActiveProviders", ctx).Return([]model.ProviderRef{{ID: "prv_1", Name: "skyfare"}}, nil)

	store := new(mockStore)
	store.On("QueryHealthLogs", ctx, "prv_1", mock.AnythingOfType("time.Time")).Return(logs, nil)

	var captured model.ProviderMetrics
	store.On("UpdateMetricsSnapshot", ctx, "prv_1", mock.AnythingOfType("model.ProviderMetrics")).
		Run(func(args mock.Arguments) {
			captured = args.Get(2).(model.ProviderMetrics)
		}).
		Return(nil)

	err := newTestPoller(registry, new(mockProber), store).CalculateProviderMetrics(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 70.0, captured.SuccessRate, 0.0001)
	assert.InDelta(t, 238.5, captured.AvgLatencyMS, 0.0001)
	assert.InDelta(t, 30.0, captured.ErrorRate, 0.0001)
}

func TestCalculateProviderMetrics_NoRowsYieldsZeros(t *testing.T) {
	ctx := context.Background()

	registry := new(mockRegistry)
	registry.On("ListActiveProviders", ctx).Return([]model.ProviderRef{{ID: "prv_1", Name: "skyfare"}}, nil)

	store := new(mockStore)
	store.On("QueryHealthLogs", ctx, "prv_1", mock.Anything).Return([]model.ProviderHealthLog{}, nil)
	store.On("UpdateMetricsSnapshot", ctx, "prv_1", model.ProviderMetrics{}).Return(nil)

	err := newTestPoller(registry, new(mockProber), store).CalculateProviderMetrics(ctx)
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestCalculateProviderMetrics_WindowIsTrailing24Hours(t *testing.T) {
	ctx := context.Background()

	registry := new(mockRegistry)
	registry.On("ListActiveProviders", ctx).Return([]model.ProviderRef{{ID: "prv_1", Name: "skyfare"}}, nil)

	var since time.Time
	store := new(mockStore)
	store.On("QueryHealthLogs", ctx, "prv_1", mock.AnythingOfType("time.Time")).
		Run(func(args mock.Arguments) {
			since = args.Get(2).(time.Time)
		}).
		Return([]model.ProviderHealthLog{}, nil)
	store.On("UpdateMetricsSnapshot", ctx, "prv_1", mock.Anything).Return(nil)

	err := newTestPoller(registry, new(mockProber), store).CalculateProviderMetrics(ctx)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC().Add(-24*time.Hour), since, 5*time.Second)
}

func TestCalculateProviderMetrics_ListFailureAborts(t *testing.T) {
	ctx := context.Background()

	registry := new(mockRegistry)
	registry.On("ListActiveProviders", ctx).Return(nil, errors.New("query providers: connection refused"))

	store := new(mockStore)

	err := newTestPoller(registry, new(mockProber), store).CalculateProviderMetrics(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list active providers")
	store.AssertNotCalled(t, "QueryHealthLogs", mock.Anything, mock.Anything, mock.Anything)
}

func TestCalculateProviderMetrics_ProviderFailureIsolated(t *testing.T) {
	ctx := context.Background()

	registry := new(mockRegistry)
	registry.On("ListActiveProviders", ctx).Return([]model.ProviderRef{
		{ID: "prv_1", Name: "skyfare"},
		{ID: "prv_2", Name: "staywell"},
		{ID: "prv_3", Name: "glidebus"},
	}, nil)

	healthy := []model.ProviderHealthLog{{Status: model.HealthHealthy, LatencyMS: 100}}

	store := new(mockStore)
	store.On("QueryHealthLogs", ctx, "prv_1", mock.Anything).Return(healthy, nil)
	store.On("QueryHealthLogs", ctx, "prv_2", mock.Anything).Return(nil, errors.New("query health logs: timeout"))
	store.On("QueryHealthLogs", ctx, "prv_3", mock.Anything).Return(healthy, nil)
	store.On("UpdateMetricsSnapshot", ctx, "prv_1", mock.Anything).Return(nil)
	store.On("UpdateMetricsSnapshot", ctx, "prv_3", mock.Anything).Return(nil)

	err := newTestPoller(registry, new(mockProber), store).CalculateProviderMetrics(ctx)
	require.NoError(t, err)
	store.AssertNotCalled(t, "UpdateMetricsSnapshot", ctx, "prv_2", mock.Anything)
	store.AssertCalled(t, "UpdateMetricsSnapshot", ctx, "prv_3", mock.Anything)
}

func TestCalculateProviderMetrics_SnapshotWriteFailureIsolated(t *testing.T) {
	ctx := context.Background()

	registry := new(mockRegistry)
	registry.On("ListActiveProviders", ctx).Return([]model.ProviderRef{
		{ID: "prv_1", Name: "skyfare"},
		{ID: "prv_2", Name: "staywell"},
	}, nil)

	healthy := []model.ProviderHealthLog{{Status: model.HealthHealthy, LatencyMS: 100}}

	store := new(mockStore)
	store.On("QueryHealthLogs", ctx, mock.Anything, mock.Anything).Return(healthy, nil)
	store.On("UpdateMetricsSnapshot", ctx, "prv_1", mock.Anything).Return(errors.New("update provider metrics: timeout"))
	store.On("UpdateMetricsSnapshot", ctx, "prv_2", mock.Anything).Return(nil)

	err := newTestPoller(registry, new(mockProber), store).CalculateProviderMetrics(ctx)
	require.NoError(t, err)
	store.AssertExpectations(t)
}

// ---------- computeMetrics ----------

func TestComputeMetrics_AllHealthy(t *testing.T) {
	logs := []model.ProviderHealthLog{
		{Status: model.HealthHealthy, LatencyMS: 80},
		{Status: model.HealthHealthy, LatencyMS: 120},
	}
	m := computeMetrics(logs)
	assert.Equal(t, 100.0, m.SuccessRate)
	assert.Equal(t, 100.0, m.AvgLatencyMS)
	assert.Equal(t, 0.0, m.ErrorRate)
}

func TestComputeMetrics_DegradedCountsAgainstSuccess(t *testing.T) {
	logs := []model.ProviderHealthLog{
		{Status: model.HealthHealthy, LatencyMS: 100},
		{Status: model.HealthDegraded, LatencyMS: 200},
		{Status: model.HealthUnhealthy, LatencyMS: 300},
		{Status: model.HealthUnknown, LatencyMS: 0},
	}
	m := computeMetrics(logs)
	assert.InDelta(t, 25.0, m.SuccessRate, 0.0001)
	assert.InDelta(t, 75.0, m.ErrorRate, 0.0001)
	assert.InDelta(t, 150.0, m.AvgLatencyMS, 0.0001)
}

func TestComputeMetrics_EmptyWindow(t *testing.T) {
	m := computeMetrics(nil)
	assert.Zero(t, m.SuccessRate)
	assert.Zero(t, m.AvgLatencyMS)
	assert.Zero(t, m.ErrorRate)
}
