package core

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/voyara/platform/internal/model"
)

func scanHealthLog(l model.ProviderHealthLog) func(dest ...any) error {
	return func(dest ...any) error {
		*(dest[0].(*string)) = l.ID
		*(dest[1].(*string)) = l.ProviderID
		*(dest[2].(*string)) = l.Status
		*(dest[3].(*int64)) = l.LatencyMS
		*(dest[4].(*string)) = l.Detail
		*(dest[5].(*json.RawMessage)) = l.Metadata
		*(dest[6].(*time.Time)) = l.CheckedAt
		return nil
	}
}

func TestHealthLogService_Append_Success(t *testing.T) {
	db := &mockDB{}
	svc := NewHealthLogService(db)
	ctx := context.Background()

	var gotArgs []any
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Run(func(args mock.Arguments) { gotArgs = args.Get(2).([]any) }).
		Return(pgconn.CommandTag{}, nil)

	entry := &model.ProviderHealthLog{
		ID:         "hl_1",
		ProviderID: "prv_1",
		Status:     model.HealthHealthy,
		LatencyMS:  42,
		CheckedAt:  time.Now().UTC(),
	}
	err := svc.Append(ctx, entry)
	require.NoError(t, err)
	assert.Equal(t, "hl_1", gotArgs[0])
	assert.Equal(t, "prv_1", gotArgs[1])
	assert.Equal(t, model.HealthHealthy, gotArgs[2])
}

func TestHealthLogService_Append_DBError(t *testing.T) {
	db := &mockDB{}
	svc := NewHealthLogService(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("connection reset"))

	err := svc.Append(ctx, &model.ProviderHealthLog{ID: "hl_1", ProviderID: "prv_1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert health log for prv_1")
}

func TestHealthLogService_QueryWindow(t *testing.T) {
	db := &mockDB{}
	svc := NewHealthLogService(db)
	ctx := context.Background()

	since := time.Now().UTC().Add(-24 * time.Hour)
	checkedAt := time.Now().UTC()

	var gotSQL string
	var gotArgs []any
	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).
		Run(func(args mock.Arguments) {
			gotSQL = args.String(1)
			gotArgs = args.Get(2).([]any)
		}).
		Return(newMockRows(
			scanHealthLog(model.ProviderHealthLog{ID: "hl_1", ProviderID: "prv_1", Status: model.HealthHealthy, LatencyMS: 40, CheckedAt: checkedAt}),
			scanHealthLog(model.ProviderHealthLog{ID: "hl_2", ProviderID: "prv_1", Status: model.HealthUnhealthy, LatencyMS: 900, CheckedAt: checkedAt}),
		), nil)

	logs, err := svc.QueryWindow(ctx, "prv_1", since)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "hl_1", logs[0].ID)
	assert.Contains(t, gotSQL, "checked_at >= $2")
	assert.Contains(t, gotSQL, "ORDER BY checked_at ASC")
	assert.Equal(t, []any{"prv_1", since}, gotArgs)
}

func TestHealthLogService_ListRecent_ClampsLimit(t *testing.T) {
	db := &mockDB{}
	svc := NewHealthLogService(db)
	ctx := context.Background()

	var gotSQL string
	var gotArgs []any
	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).
		Run(func(args mock.Arguments) {
			gotSQL = args.String(1)
			gotArgs = args.Get(2).([]any)
		}).
		Return(newEmptyMockRows(), nil)

	_, err := svc.ListRecent(ctx, "prv_1", 0)
	require.NoError(t, err)
	assert.True(t, strings.Contains(gotSQL, "ORDER BY checked_at DESC"))
	assert.Equal(t, []any{"prv_1", 100}, gotArgs)
}

func TestHealthLogService_PurgeOlderThan(t *testing.T) {
	db := &mockDB{}
	svc := NewHealthLogService(db)
	ctx := context.Background()

	cutoff := time.Now().UTC().Add(-90 * 24 * time.Hour)
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("DELETE 42"), nil)

	n, err := svc.PurgeOlderThan(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
}
