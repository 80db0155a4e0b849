package connmgr

import (
	"context"
	"fmt"
	"time"
)

// UsageType identifies the logical consumer of a pooled connection.
// Each usage type gets at most one tracked connection.
type UsageType string

const (
	// UsageCaching serves general response and media caching
	UsageCaching UsageType = "caching"
	// UsageHealthCheck serves liveness probing of the cache store itself
	UsageHealthCheck UsageType = "health_check"
	// UsageRateLimiting serves request-window counters
	UsageRateLimiting UsageType = "rate_limiting"
	// UsageSession serves conversation session state
	UsageSession UsageType = "session"
	// UsageAnalytics serves report and metrics aggregation
	UsageAnalytics UsageType = "analytics"
)

// AllUsageTypes returns the full enumerated usage-type set
func AllUsageTypes() []UsageType {
	return []UsageType{
		UsageCaching,
		UsageHealthCheck,
		UsageRateLimiting,
		UsageSession,
		UsageAnalytics,
	}
}

// Valid reports whether the usage type is part of the enumerated set
func (u UsageType) Valid() bool {
	switch u {
	case UsageCaching, UsageHealthCheck, UsageRateLimiting, UsageSession, UsageAnalytics:
		return true
	}
	return false
}

// ConnectionStatus represents the lifecycle state of a tracked connection
type ConnectionStatus string

const (
	// StatusConnecting means a connect or reconnect attempt is in flight
	StatusConnecting ConnectionStatus = "connecting"
	// StatusConnected means the connection passed validation and is usable
	StatusConnected ConnectionStatus = "connected"
	// StatusDisconnected means the connection was closed or ended
	StatusDisconnected ConnectionStatus = "disconnected"
	// StatusError means the last operation or probe on the connection failed
	StatusError ConnectionStatus = "error"
)

// ConnectionInfo is the tracked record for one usage type. Records survive
// transient errors; they are removed only by an explicit close.
type ConnectionInfo struct {
	UsageType         UsageType        `json:"usage_type"`
	Host              string           `json:"host,omitempty"`
	Port              int              `json:"port,omitempty"`
	Status            ConnectionStatus `json:"status"`
	ConnectedAt       time.Time        `json:"connected_at,omitzero"`
	LastError         string           `json:"last_error,omitempty"`
	ReconnectAttempts int              `json:"reconnect_attempts"`
	HealthScore       int              `json:"health_score"` // 0-100
}

// PoolConfig holds process-wide pool tuning values. Immutable after
// construction.
type PoolConfig struct {
	MaxConnections       int           `json:"max_connections"`        // hard ceiling on tracked connections
	ConnectTimeout       time.Duration `json:"connect_timeout"`        // bound on connect + validation
	ProbeTimeout         time.Duration `json:"probe_timeout"`          // bound on liveness probes
	HealthCheckInterval  time.Duration `json:"health_check_interval"`  // 0 disables the internal loop
	BaseReconnectDelay   time.Duration `json:"base_reconnect_delay"`   // backoff base
	MaxReconnectDelay    time.Duration `json:"max_reconnect_delay"`    // backoff cap
	MaxReconnectAttempts int           `json:"max_reconnect_attempts"` // terminal after this many
}

// DefaultPoolConfig returns a PoolConfig with safe default values
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxConnections:       10,
		ConnectTimeout:       5 * time.Second,
		ProbeTimeout:         1 * time.Second,
		HealthCheckInterval:  30 * time.Second,
		BaseReconnectDelay:   1 * time.Second,
		MaxReconnectDelay:    30 * time.Second,
		MaxReconnectAttempts: 5,
	}
}

// validate checks the pool tuning values
func (c PoolConfig) validate() error {
	if c.MaxConnections <= 0 {
		return fmt.Errorf("max connections must be positive, got %d", c.MaxConnections)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect timeout must be positive, got %v", c.ConnectTimeout)
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("probe timeout must be positive, got %v", c.ProbeTimeout)
	}
	if c.HealthCheckInterval < 0 {
		return fmt.Errorf("health check interval cannot be negative, got %v", c.HealthCheckInterval)
	}
	if c.BaseReconnectDelay <= 0 {
		return fmt.Errorf("base reconnect delay must be positive, got %v", c.BaseReconnectDelay)
	}
	if c.MaxReconnectDelay < c.BaseReconnectDelay {
		return fmt.Errorf("max reconnect delay (%v) cannot be less than base delay (%v)", c.MaxReconnectDelay, c.BaseReconnectDelay)
	}
	if c.MaxReconnectAttempts <= 0 {
		return fmt.Errorf("max reconnect attempts must be positive, got %d", c.MaxReconnectAttempts)
	}
	return nil
}

// ConnectionStats is the aggregate view over all tracked records
type ConnectionStats struct {
	TotalConnections       int               `json:"total_connections"`
	ConnectedCount         int               `json:"connected_count"`
	ErrorCount             int               `json:"error_count"`
	TotalReconnectAttempts int               `json:"total_reconnect_attempts"`
	AverageHealthScore     int               `json:"average_health_score"`
	ByUsageType            map[UsageType]int `json:"by_usage_type"`
}

// ValidationResult reports the outcome of validating one tracked connection
type ValidationResult struct {
	UsageType UsageType     `json:"usage_type"`
	Healthy   bool          `json:"healthy"`
	Latency   time.Duration `json:"latency"`
	Error     string        `json:"error,omitempty"`
}

// Client is the cache-store client abstraction the manager hands out.
// The production implementation wraps go-redis; tests substitute mocks.
type Client interface {
	Health(ctx context.Context) error
	HealthWithRetry(ctx context.Context) error
	SetWithRetry(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	GetWithRetry(ctx context.Context, key string) (string, error)
	DelWithRetry(ctx context.Context, keys ...string) error
	InfoWithRetry(ctx context.Context, section string) (string, error)
	Addr() (host string, port int)
	Close() error
}

// Manager defines the connection-lifecycle operations exposed to callers
type Manager interface {
	// Connection acquisition
	GetConnection(ctx context.Context, usageType UsageType) (Client, error)
	CreateConnection(ctx context.Context, usageType UsageType) (Client, error)
	CreateTemporaryConnection(ctx context.Context, usageType UsageType, ttl time.Duration) (Client, error)

	// Teardown (best-effort, never fails)
	CloseConnection(usageType UsageType)
	CloseAllConnections()

	// Observability
	GetConnectionInfo(usageType UsageType) (ConnectionInfo, bool)
	GetConnectionStats() ConnectionStats
	ValidateAllConnections(ctx context.Context) []ValidationResult
}
