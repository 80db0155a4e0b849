package connmgr

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JAAFAR1996/go-redis-connmgr/internal"
)

// clientFactory builds a Client from resolved connection parameters.
// Production wires internal.NewRedisClient; tests substitute mocks.
type clientFactory func(cfg *internal.Config) (Client, error)

// RedisConnectionManager owns the connection pool: one tracked connection
// per usage type, event-driven state tracking, reconnection scheduling with
// capped exponential backoff, global rate-limit suspension, and stats
// aggregation.
type RedisConnectionManager struct {
	mu       sync.Mutex
	pool     map[UsageType]Client
	info     map[UsageType]*ConnectionInfo
	pending  map[UsageType]*time.Timer // outstanding reconnect timers, one per usage type
	reserved map[UsageType]int         // in-flight creates holding a pool slot

	// Global circuit breaker: while now < rateLimitResetAt, every new
	// connection attempt for every usage type fails fast. Single value
	// because the upstream rate limit is provider-wide.
	rateLimitResetAt time.Time

	config    PoolConfig
	factory   *ConfigFactory
	health    *HealthMonitor
	quota     *QuotaMonitor
	logger    *zap.Logger
	newClient clientFactory

	// injectable for tests
	now             func() time.Time
	rateLimitWindow func(now time.Time) time.Time

	healthStop    chan struct{}
	healthWG      sync.WaitGroup
	healthStopped bool
}

var _ Manager = (*RedisConnectionManager)(nil)

// NewConnectionManager creates a manager backed by go-redis clients. A nil
// logger degrades to a no-op logger; logging never affects behavior. When
// PoolConfig.HealthCheckInterval is positive the internal periodic health
// check starts immediately; zero leaves health checking to an external
// centralized checker.
func NewConnectionManager(factory *ConfigFactory, config PoolConfig, logger *zap.Logger) (*RedisConnectionManager, error) {
	return NewConnectionManagerWithDependencies(factory, config, logger, func(cfg *internal.Config) (Client, error) {
		return internal.NewRedisClient(cfg)
	})
}

// NewConnectionManagerWithDependencies creates a manager with an injected
// client factory for testing
func NewConnectionManagerWithDependencies(factory *ConfigFactory, config PoolConfig, logger *zap.Logger, newClient clientFactory) (*RedisConnectionManager, error) {
	if factory == nil {
		return nil, internal.NewValidationError("", "config factory cannot be nil", nil)
	}
	if err := config.validate(); err != nil {
		return nil, internal.NewValidationError("", fmt.Sprintf("invalid pool configuration: %v", err), err)
	}
	if newClient == nil {
		return nil, internal.NewValidationError("", "client factory cannot be nil", nil)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	m := &RedisConnectionManager{
		pool:            make(map[UsageType]Client),
		info:            make(map[UsageType]*ConnectionInfo),
		pending:         make(map[UsageType]*time.Timer),
		reserved:        make(map[UsageType]int),
		config:          config,
		factory:         factory,
		health:          NewHealthMonitor(config.ProbeTimeout),
		logger:          logger.With(zap.String("component", "connmgr")),
		newClient:       newClient,
		now:             time.Now,
		rateLimitWindow: topOfNextHour,
		healthStop:      make(chan struct{}),
	}

	if config.HealthCheckInterval > 0 {
		m.healthWG.Add(1)
		go m.healthCheckLoop()
	}

	return m, nil
}

// AttachQuotaMonitor wires a quota monitor into health-check scheduling.
// Under quota pressure the periodic check interval is stretched by the
// monitor's recommended multiplier.
func (m *RedisConnectionManager) AttachQuotaMonitor(q *QuotaMonitor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quota = q
}

// topOfNextHour is the default rate-limit window: provider quotas reset on
// the hour
func topOfNextHour(now time.Time) time.Time {
	return now.Truncate(time.Hour).Add(time.Hour)
}

// GetConnection returns the tracked connection for a usage type, creating
// one when absent. A tracked connection marked connected is probed first
// with a bounded liveness check; stale connections are closed and replaced.
// Fails fast with a rate-limit error while the global window is active.
func (m *RedisConnectionManager) GetConnection(ctx context.Context, usageType UsageType) (Client, error) {
	if !usageType.Valid() {
		return nil, internal.NewValidationError(string(usageType), "unknown usage type", nil)
	}

	m.mu.Lock()
	if reset := m.rateLimitResetAt; m.now().Before(reset) {
		m.mu.Unlock()
		return nil, internal.NewRateLimitError(string(usageType), reset, nil)
	}
	conn := m.pool[usageType]
	rec := m.info[usageType]
	connected := conn != nil && rec != nil && rec.Status == StatusConnected
	m.mu.Unlock()

	if connected {
		if m.health.IsConnectionHealthy(ctx, conn, m.config.ProbeTimeout) {
			return conn, nil
		}
		m.logger.Warn("tracked connection failed liveness probe, recreating",
			zap.String("usage_type", string(usageType)))
		m.CloseConnection(usageType)
	}

	return m.CreateConnection(ctx, usageType)
}

// CreateConnection establishes, validates, and tracks a new connection for a
// usage type. Rejects immediately when the pool is at its ceiling or the
// global rate-limit window is active.
func (m *RedisConnectionManager) CreateConnection(ctx context.Context, usageType UsageType) (Client, error) {
	if !usageType.Valid() {
		return nil, internal.NewValidationError(string(usageType), "unknown usage type", nil)
	}

	m.mu.Lock()
	if reset := m.rateLimitResetAt; m.now().Before(reset) {
		m.mu.Unlock()
		return nil, internal.NewRateLimitError(string(usageType), reset, nil)
	}
	if !m.reserveSlotLocked(usageType) {
		m.mu.Unlock()
		return nil, internal.NewCapacityError(string(usageType),
			fmt.Sprintf("connection pool limit reached (%d)", m.config.MaxConnections))
	}

	cfg, err := m.factory.ConnectionConfig(usageType)
	if err != nil {
		m.releaseSlotLocked(usageType)
		m.mu.Unlock()
		return nil, err
	}

	// Record the connecting state before the underlying attempt
	rec := m.info[usageType]
	if rec == nil {
		rec = &ConnectionInfo{UsageType: usageType}
		m.info[usageType] = rec
	}
	rec.Status = StatusConnecting
	m.mu.Unlock()

	// Attach event observers before any validation so asynchronous failures
	// during the probe are still observed
	cfg.OnConnect = func() { m.HandleConnectionEvent(usageType, EventReady, nil) }
	cfg.OnError = func(err error) { m.HandleConnectionEvent(usageType, EventError, err) }

	conn, err := m.newClient(cfg)
	if err != nil {
		return nil, m.failCreate(usageType, err)
	}

	validateCtx, cancel := context.WithTimeout(ctx, m.config.ConnectTimeout)
	err = m.health.ValidateConnection(validateCtx, conn, usageType)
	cancel()
	if err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			m.logger.Debug("error closing unvalidated connection",
				zap.String("usage_type", string(usageType)), zap.Error(closeErr))
		}
		return nil, m.failCreate(usageType, err)
	}

	host, port := conn.Addr()

	m.mu.Lock()
	stale := m.pool[usageType]
	m.pool[usageType] = conn
	rec = m.info[usageType]
	if rec == nil {
		rec = &ConnectionInfo{UsageType: usageType}
		m.info[usageType] = rec
	}
	rec.Host = host
	rec.Port = port
	rec.Status = StatusConnected
	rec.ConnectedAt = m.now()
	rec.HealthScore = 100
	rec.LastError = ""
	rec.ReconnectAttempts = 0
	m.stopPendingLocked(usageType)
	m.releaseSlotLocked(usageType)
	m.mu.Unlock()

	if stale != nil && stale != conn {
		if err := stale.Close(); err != nil {
			m.logger.Warn("error closing replaced connection",
				zap.String("usage_type", string(usageType)), zap.Error(err))
		}
	}

	m.logger.Info("connection established",
		zap.String("usage_type", string(usageType)),
		zap.String("host", host),
		zap.Int("port", port))

	return conn, nil
}

// reserveSlotLocked claims a pool slot for an in-flight create. The ceiling
// counts distinct usage types that are tracked or mid-create, so concurrent
// creates cannot overshoot it while the pool state is unlocked during
// validation. Caller must hold m.mu.
func (m *RedisConnectionManager) reserveSlotLocked(usageType UsageType) bool {
	occupied := 0
	for ut := range m.pool {
		if ut != usageType {
			occupied++
		}
	}
	for ut, n := range m.reserved {
		if ut == usageType || n <= 0 {
			continue
		}
		if _, inPool := m.pool[ut]; !inPool {
			occupied++
		}
	}
	if occupied >= m.config.MaxConnections {
		return false
	}
	m.reserved[usageType]++
	return true
}

// releaseSlotLocked drops a reservation taken by reserveSlotLocked. Caller
// must hold m.mu.
func (m *RedisConnectionManager) releaseSlotLocked(usageType UsageType) {
	if m.reserved[usageType] <= 1 {
		delete(m.reserved, usageType)
	} else {
		m.reserved[usageType]--
	}
}

// failCreate classifies a creation failure, updates the record, and returns
// the typed error to propagate. Rate-limit failures arm the global window
// and schedule a resume at its expiry. Releases the slot reservation taken
// by CreateConnection.
func (m *RedisConnectionManager) failCreate(usageType UsageType, cause error) error {
	kind := internal.Classify(cause)

	m.mu.Lock()
	m.releaseSlotLocked(usageType)
	rec := m.info[usageType]
	if rec == nil {
		rec = &ConnectionInfo{UsageType: usageType}
		m.info[usageType] = rec
	}
	rec.Status = StatusError
	rec.HealthScore = 0
	rec.LastError = cause.Error()

	if kind == internal.ErrorTypeRateLimit {
		resetAt := m.rateLimitWindow(m.now())
		if at, ok := internal.RetryAt(cause); ok {
			resetAt = at
		}
		m.rateLimitResetAt = resetAt
		m.scheduleReconnectionLocked(usageType)
		m.mu.Unlock()

		m.logger.Warn("provider rate limit hit, suspending all connection attempts",
			zap.String("usage_type", string(usageType)),
			zap.Time("reset_at", resetAt))
		return internal.NewRateLimitError(string(usageType), resetAt, cause)
	}
	m.mu.Unlock()

	m.logger.Error("connection attempt failed",
		zap.String("usage_type", string(usageType)),
		zap.String("error_type", kind.String()),
		zap.Error(cause))

	switch kind {
	case internal.ErrorTypeValidation:
		var connErr *internal.ConnError
		if errors.As(cause, &connErr) {
			return connErr
		}
		return internal.NewValidationError(string(usageType), "connection failed validation", cause)
	case internal.ErrorTypeTimeout:
		return internal.NewTimeoutError(string(usageType), "connection attempt timed out", cause)
	default:
		return internal.NewConnectionError(string(usageType), "failed to establish connection", cause)
	}
}

// CreateTemporaryConnection establishes a validated connection outside the
// tracked pool. It is forcibly disconnected when the TTL expires, regardless
// of in-flight use. The global rate-limit window still applies.
func (m *RedisConnectionManager) CreateTemporaryConnection(ctx context.Context, usageType UsageType, ttl time.Duration) (Client, error) {
	if !usageType.Valid() {
		return nil, internal.NewValidationError(string(usageType), "unknown usage type", nil)
	}
	if ttl <= 0 {
		return nil, internal.NewValidationError(string(usageType), "temporary connection TTL must be positive", nil)
	}

	m.mu.Lock()
	if reset := m.rateLimitResetAt; m.now().Before(reset) {
		m.mu.Unlock()
		return nil, internal.NewRateLimitError(string(usageType), reset, nil)
	}
	m.mu.Unlock()

	cfg, err := m.factory.ConnectionConfig(usageType)
	if err != nil {
		return nil, err
	}

	conn, err := m.newClient(cfg)
	if err != nil {
		return nil, m.failTemporary(usageType, err)
	}

	validateCtx, cancel := context.WithTimeout(ctx, m.config.ConnectTimeout)
	err = m.health.ValidateConnection(validateCtx, conn, usageType)
	cancel()
	if err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			m.logger.Debug("error closing unvalidated temporary connection",
				zap.String("usage_type", string(usageType)), zap.Error(closeErr))
		}
		return nil, m.failTemporary(usageType, err)
	}

	time.AfterFunc(ttl, func() {
		if err := conn.Close(); err != nil {
			m.logger.Debug("error closing expired temporary connection",
				zap.String("usage_type", string(usageType)), zap.Error(err))
		}
		m.logger.Debug("temporary connection expired",
			zap.String("usage_type", string(usageType)),
			zap.Duration("ttl", ttl))
	})

	return conn, nil
}

// failTemporary classifies a temporary-connection failure and returns the
// typed error. Temporary connections are untracked, so no record is written
// and nothing is scheduled; a rate-limit rejection still arms the global
// window.
func (m *RedisConnectionManager) failTemporary(usageType UsageType, cause error) error {
	kind := internal.Classify(cause)

	if kind == internal.ErrorTypeRateLimit {
		m.mu.Lock()
		resetAt := m.rateLimitWindow(m.now())
		if at, ok := internal.RetryAt(cause); ok {
			resetAt = at
		}
		m.rateLimitResetAt = resetAt
		m.mu.Unlock()

		m.logger.Warn("provider rate limit hit on temporary connection, suspending all connection attempts",
			zap.String("usage_type", string(usageType)),
			zap.Time("reset_at", resetAt))
		return internal.NewRateLimitError(string(usageType), resetAt, cause)
	}

	m.logger.Warn("temporary connection attempt failed",
		zap.String("usage_type", string(usageType)),
		zap.String("error_type", kind.String()),
		zap.Error(cause))

	switch kind {
	case internal.ErrorTypeValidation:
		var connErr *internal.ConnError
		if errors.As(cause, &connErr) {
			return connErr
		}
		return internal.NewValidationError(string(usageType), "temporary connection failed validation", cause)
	case internal.ErrorTypeTimeout:
		return internal.NewTimeoutError(string(usageType), "temporary connection attempt timed out", cause)
	default:
		return internal.NewConnectionError(string(usageType), "temporary connection failed", cause)
	}
}

// HandleConnectionEvent drives the per-connection state machine. Events for
// usage types with no record are ignored. Failures surfacing here are never
// propagated to callers; they only update state and trigger scheduled
// recovery.
func (m *RedisConnectionManager) HandleConnectionEvent(usageType UsageType, event ConnEvent, err error) {
	m.mu.Lock()
	rec := m.info[usageType]
	if rec == nil {
		m.mu.Unlock()
		return
	}

	if event == EventError {
		kind := internal.Classify(err)
		rec.Status = StatusError
		rec.HealthScore = 0
		if err != nil {
			rec.LastError = err.Error()
		}

		switch kind {
		case internal.ErrorTypeRateLimit:
			resetAt := m.rateLimitWindow(m.now())
			if at, ok := internal.RetryAt(err); ok {
				resetAt = at
			}
			m.rateLimitResetAt = resetAt

			// Force-disconnect and resume when the window expires
			conn := m.pool[usageType]
			delete(m.pool, usageType)
			m.scheduleReconnectionLocked(usageType)
			m.mu.Unlock()

			if conn != nil {
				if closeErr := conn.Close(); closeErr != nil {
					m.logger.Debug("error force-disconnecting rate-limited connection",
						zap.String("usage_type", string(usageType)), zap.Error(closeErr))
				}
			}
			m.logger.Warn("rate limit detected on connection, suspending pool",
				zap.String("usage_type", string(usageType)),
				zap.Time("reset_at", resetAt))
			return
		case internal.ErrorTypeConnection, internal.ErrorTypeTimeout:
			m.scheduleReconnectionLocked(usageType)
		}
		m.mu.Unlock()

		m.logger.Warn("connection error observed",
			zap.String("usage_type", string(usageType)),
			zap.String("error_type", kind.String()),
			zap.Error(err))
		return
	}

	drop := applyEvent(rec, event, m.now())
	if drop {
		// Connection object discarded; the record is retained
		delete(m.pool, usageType)
	}
	status := rec.Status
	m.mu.Unlock()

	m.logger.Debug("connection event",
		zap.String("usage_type", string(usageType)),
		zap.String("event", event.String()),
		zap.String("status", string(status)))
}

// backoffDelay computes the reconnect delay for an attempt count:
// min(base * 2^attempts, cap)
func (m *RedisConnectionManager) backoffDelay(attempts int) time.Duration {
	delay := float64(m.config.BaseReconnectDelay) * math.Pow(2, float64(attempts))
	if delay > float64(m.config.MaxReconnectDelay) {
		return m.config.MaxReconnectDelay
	}
	return time.Duration(delay)
}

// scheduleReconnectionLocked arms a reconnect timer for a usage type. A
// second request while one is outstanding is a no-op, so the error-event and
// health-score triggers cannot double-schedule. Caller must hold m.mu.
func (m *RedisConnectionManager) scheduleReconnectionLocked(usageType UsageType) {
	if _, outstanding := m.pending[usageType]; outstanding {
		return
	}
	rec := m.info[usageType]
	if rec == nil {
		return
	}

	now := m.now()
	var delay time.Duration
	resumeFromRateLimit := false

	switch {
	case now.Before(m.rateLimitResetAt):
		delay = m.rateLimitResetAt.Sub(now)
		resumeFromRateLimit = true
	case rec.ReconnectAttempts >= m.config.MaxReconnectAttempts:
		// Terminal until an explicit external create/get call
		m.logger.Error("max reconnection attempts reached, giving up",
			zap.String("usage_type", string(usageType)),
			zap.Int("attempts", rec.ReconnectAttempts))
		return
	default:
		delay = m.backoffDelay(rec.ReconnectAttempts)
	}

	m.logger.Info("reconnection scheduled",
		zap.String("usage_type", string(usageType)),
		zap.Duration("delay", delay),
		zap.Bool("rate_limit_resume", resumeFromRateLimit))

	m.pending[usageType] = time.AfterFunc(delay, func() {
		m.retryConnection(usageType, resumeFromRateLimit)
	})
}

// retryConnection is the timer body for a scheduled reconnect: close the
// stale connection, then attempt a fresh create. Failures are logged only;
// the observers attached to the new attempt drive any further scheduling.
func (m *RedisConnectionManager) retryConnection(usageType UsageType, resumeFromRateLimit bool) {
	m.mu.Lock()
	delete(m.pending, usageType)

	rec := m.info[usageType]
	if rec == nil || rec.Status == StatusConnected {
		m.mu.Unlock()
		return
	}
	if resumeFromRateLimit {
		rec.ReconnectAttempts = 0
	}

	stale := m.pool[usageType]
	delete(m.pool, usageType)
	m.mu.Unlock()

	if !resumeFromRateLimit {
		m.HandleConnectionEvent(usageType, EventReconnecting, nil)
	}

	if stale != nil {
		if err := stale.Close(); err != nil {
			m.logger.Warn("error closing stale connection before reconnect",
				zap.String("usage_type", string(usageType)), zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.config.ConnectTimeout)
	defer cancel()

	if _, err := m.CreateConnection(ctx, usageType); err != nil {
		m.logger.Warn("reconnection attempt failed",
			zap.String("usage_type", string(usageType)), zap.Error(err))
	}
}

// stopPendingLocked cancels an outstanding reconnect timer. Caller must hold
// m.mu.
func (m *RedisConnectionManager) stopPendingLocked(usageType UsageType) {
	if t, ok := m.pending[usageType]; ok {
		t.Stop()
		delete(m.pending, usageType)
	}
}

// CloseConnection disconnects and untracks the connection for a usage type.
// Best-effort: close failures are logged, never propagated.
func (m *RedisConnectionManager) CloseConnection(usageType UsageType) {
	m.mu.Lock()
	conn := m.pool[usageType]
	delete(m.pool, usageType)
	delete(m.info, usageType)
	m.stopPendingLocked(usageType)
	m.mu.Unlock()

	if conn == nil {
		return
	}

	if err := conn.Close(); err != nil {
		m.logger.Warn("error closing connection",
			zap.String("usage_type", string(usageType)), zap.Error(err))
	}
	m.logger.Info("connection closed", zap.String("usage_type", string(usageType)))
}

// CloseAllConnections closes every tracked connection concurrently. Each
// close failure is swallowed individually so one failing close does not
// block others. The periodic health check stops if running.
func (m *RedisConnectionManager) CloseAllConnections() {
	m.mu.Lock()
	conns := make(map[UsageType]Client, len(m.pool))
	for usageType, conn := range m.pool {
		conns[usageType] = conn
	}
	m.pool = make(map[UsageType]Client)
	m.info = make(map[UsageType]*ConnectionInfo)
	for usageType := range m.pending {
		m.stopPendingLocked(usageType)
	}
	stopHealth := !m.healthStopped && m.config.HealthCheckInterval > 0
	if stopHealth {
		m.healthStopped = true
	}
	m.mu.Unlock()

	if stopHealth {
		close(m.healthStop)
		m.healthWG.Wait()
	}

	var wg sync.WaitGroup
	for usageType, conn := range conns {
		wg.Add(1)
		go func(usageType UsageType, conn Client) {
			defer wg.Done()
			if err := conn.Close(); err != nil {
				m.logger.Warn("error closing connection during shutdown",
					zap.String("usage_type", string(usageType)), zap.Error(err))
			}
		}(usageType, conn)
	}
	wg.Wait()

	m.logger.Info("all connections closed", zap.Int("count", len(conns)))
}

// GetConnectionInfo returns a copy of the tracked record for a usage type
func (m *RedisConnectionManager) GetConnectionInfo(usageType UsageType) (ConnectionInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.info[usageType]
	if rec == nil {
		return ConnectionInfo{}, false
	}
	return *rec, true
}

// GetConnectionStats aggregates the live connection-info map. The
// per-usage-type breakdown is zero-filled over the full enumerated set.
func (m *RedisConnectionManager) GetConnectionStats() ConnectionStats {
	stats := ConnectionStats{
		ByUsageType: make(map[UsageType]int, len(AllUsageTypes())),
	}
	for _, usageType := range AllUsageTypes() {
		stats.ByUsageType[usageType] = 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	scoreSum := 0
	for _, rec := range m.info {
		stats.TotalConnections++
		if rec.Status == StatusConnected {
			stats.ConnectedCount++
		}
		if rec.Status == StatusError {
			stats.ErrorCount++
		}
		stats.TotalReconnectAttempts += rec.ReconnectAttempts
		scoreSum += rec.HealthScore
		stats.ByUsageType[rec.UsageType]++
	}

	if stats.TotalConnections > 0 {
		stats.AverageHealthScore = (scoreSum + stats.TotalConnections/2) / stats.TotalConnections
	}

	return stats
}

// ValidateAllConnections probes every tracked connection and reports
// per-usage-type verdicts with observed latency
func (m *RedisConnectionManager) ValidateAllConnections(ctx context.Context) []ValidationResult {
	m.mu.Lock()
	conns := make(map[UsageType]Client, len(m.pool))
	for usageType, conn := range m.pool {
		conns[usageType] = conn
	}
	m.mu.Unlock()

	results := make([]ValidationResult, 0, len(conns))
	for usageType, conn := range conns {
		latency, err := m.health.PingLatency(ctx, conn, m.config.ProbeTimeout)
		result := ValidationResult{
			UsageType: usageType,
			Healthy:   err == nil && latency < time.Duration(float64(m.config.ProbeTimeout)*healthyLatencyFraction),
			Latency:   latency,
		}
		if err != nil {
			result.Error = err.Error()
		}
		results = append(results, result)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].UsageType < results[j].UsageType
	})
	return results
}

// healthCheckLoop is the internal periodic health check. Disabled when the
// interval is zero. Under quota pressure the interval stretches by the
// attached quota monitor's recommendation.
func (m *RedisConnectionManager) healthCheckLoop() {
	defer m.healthWG.Done()

	interval := m.config.HealthCheckInterval
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-m.healthStop:
			return
		case <-timer.C:
			ctx, cancel := context.WithTimeout(context.Background(), m.config.ConnectTimeout)
			m.runHealthChecks(ctx)

			next := interval
			m.mu.Lock()
			quota := m.quota
			m.mu.Unlock()
			if quota != nil {
				if mult := quota.IntervalMultiplier(ctx); mult > 1 {
					next = time.Duration(float64(interval) * mult)
					m.logger.Debug("health check interval stretched under quota pressure",
						zap.Duration("interval", next))
				}
			}
			cancel()
			timer.Reset(next)
		}
	}
}

// runHealthChecks probes each tracked connection once and applies the
// fixed-step score adjustments: +5 on success (clamped, clears a previous
// error), -10 on failure; status flips to error at or below the low
// threshold; a score of zero triggers reconnection scheduling.
func (m *RedisConnectionManager) runHealthChecks(ctx context.Context) {
	m.mu.Lock()
	conns := make(map[UsageType]Client, len(m.pool))
	for usageType, conn := range m.pool {
		conns[usageType] = conn
	}
	m.mu.Unlock()

	for usageType, conn := range conns {
		healthy := m.health.IsConnectionHealthy(ctx, conn, m.config.ProbeTimeout)

		m.mu.Lock()
		rec := m.info[usageType]
		if rec == nil || m.pool[usageType] != conn {
			m.mu.Unlock()
			continue
		}

		if healthy {
			rec.HealthScore = clampScore(rec.HealthScore + healthRecoveryStep)
			if rec.Status == StatusError {
				rec.Status = StatusConnected
				rec.LastError = ""
			}
		} else {
			rec.HealthScore = clampScore(rec.HealthScore - healthDecayStep)
			if rec.HealthScore <= healthErrorThreshold {
				rec.Status = StatusError
			}
			if rec.HealthScore == 0 {
				m.scheduleReconnectionLocked(usageType)
			}
		}
		score := rec.HealthScore
		m.mu.Unlock()

		if !healthy {
			m.logger.Warn("health probe failed",
				zap.String("usage_type", string(usageType)),
				zap.Int("health_score", score))
		}
	}
}

const (
	healthRecoveryStep   = 5
	healthDecayStep      = 10
	healthErrorThreshold = 20
)
