package connmgr

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// setupRedisManager wires a manager against an in-process Redis through the
// production client path, including the connect and error observers.
func setupRedisManager(t *testing.T, mr *miniredis.Miniredis) *RedisConnectionManager {
	t.Helper()

	factory, err := NewConfigFactory("redis://"+mr.Addr(), EnvDevelopment)
	require.NoError(t, err)

	cfg := DefaultPoolConfig()
	cfg.HealthCheckInterval = 0
	cfg.ConnectTimeout = 2 * time.Second
	cfg.ProbeTimeout = time.Second
	cfg.BaseReconnectDelay = 20 * time.Millisecond
	cfg.MaxReconnectDelay = 100 * time.Millisecond
	cfg.MaxReconnectAttempts = 2

	m, err := NewConnectionManager(factory, cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(m.CloseAllConnections)
	return m
}

func TestManager_RedisLifecycle(t *testing.T) {
	mr := miniredis.RunT(t)
	m := setupRedisManager(t, mr)
	ctx := context.Background()

	conn, err := m.GetConnection(ctx, UsageCaching)
	require.NoError(t, err)

	info, ok := m.GetConnectionInfo(UsageCaching)
	require.True(t, ok)
	assert.Equal(t, StatusConnected, info.Status)
	assert.Equal(t, 100, info.HealthScore)
	assert.Equal(t, mr.Host(), info.Host)

	// The handed-out connection is usable for real traffic
	require.NoError(t, conn.SetWithRetry(ctx, "session:abc", "state", time.Minute))
	got, err := conn.GetWithRetry(ctx, "session:abc")
	require.NoError(t, err)
	assert.Equal(t, "state", got)

	// Reacquisition hands back the same validated connection
	again, err := m.GetConnection(ctx, UsageCaching)
	require.NoError(t, err)
	assert.Same(t, conn, again)

	results := m.ValidateAllConnections(ctx)
	require.Len(t, results, 1)
	assert.True(t, results[0].Healthy)

	m.CloseAllConnections()
	assert.Equal(t, 0, m.GetConnectionStats().TotalConnections)
}

func TestManager_RedisMultipleUsageTypes(t *testing.T) {
	mr := miniredis.RunT(t)
	m := setupRedisManager(t, mr)
	ctx := context.Background()

	for _, usageType := range AllUsageTypes() {
		_, err := m.GetConnection(ctx, usageType)
		require.NoError(t, err, "usage type %s", usageType)
	}

	stats := m.GetConnectionStats()
	assert.Equal(t, len(AllUsageTypes()), stats.TotalConnections)
	assert.Equal(t, len(AllUsageTypes()), stats.ConnectedCount)
	assert.Equal(t, 100, stats.AverageHealthScore)
	for _, usageType := range AllUsageTypes() {
		assert.Equal(t, 1, stats.ByUsageType[usageType])
	}
}

func TestManager_RedisUnreachableEndpoint(t *testing.T) {
	mr := miniredis.RunT(t)
	m := setupRedisManager(t, mr)

	// Take the server down before the first acquisition
	mr.Close()

	_, err := m.GetConnection(context.Background(), UsageCaching)
	require.Error(t, err)
	assert.True(t, IsConnectionError(err))

	info, ok := m.GetConnectionInfo(UsageCaching)
	require.True(t, ok)
	assert.Equal(t, StatusError, info.Status)
	assert.Equal(t, 0, info.HealthScore)
	assert.NotEmpty(t, info.LastError)
}

func TestManager_RedisQuotaMonitor(t *testing.T) {
	mr := miniredis.RunT(t)
	m := setupRedisManager(t, mr)
	ctx := context.Background()

	conn, err := m.GetConnection(ctx, UsageHealthCheck)
	require.NoError(t, err)

	monitor := NewQuotaMonitor(conn)
	m.AttachQuotaMonitor(monitor)

	// miniredis reports no maxmemory, so usage is unknown and neutral
	assert.Equal(t, 1.0, monitor.IntervalMultiplier(ctx))
}
