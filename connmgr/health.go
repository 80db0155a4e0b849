package connmgr

import (
	"context"
	"fmt"
	"time"

	"github.com/JAAFAR1996/go-redis-connmgr/internal"
)

// healthyLatencyFraction is the share of the probe budget a ping must beat
// to count as healthy. A response that barely makes the deadline is treated
// as degraded.
const healthyLatencyFraction = 0.8

// probeTTL bounds the lifetime of validation probe keys so a failed delete
// cannot leak them
const probeTTL = 10 * time.Second

// HealthMonitor performs bounded liveness probes and correctness validation
// on cache-store connections
type HealthMonitor struct {
	probeTimeout time.Duration
	keyGen       internal.ProbeKeyGenerator
}

// NewHealthMonitor creates a HealthMonitor with the given default probe
// timeout (1s when non-positive)
func NewHealthMonitor(probeTimeout time.Duration) *HealthMonitor {
	if probeTimeout <= 0 {
		probeTimeout = time.Second
	}
	return &HealthMonitor{
		probeTimeout: probeTimeout,
		keyGen:       internal.NewProbeKeyGenerator(),
	}
}

// IsConnectionHealthy races a ping against the timeout budget. The
// connection counts as healthy only when the ping succeeds and the observed
// latency stays below healthyLatencyFraction of the budget.
func (h *HealthMonitor) IsConnectionHealthy(ctx context.Context, conn Client, timeout time.Duration) bool {
	latency, err := h.PingLatency(ctx, conn, timeout)
	if err != nil {
		return false
	}
	if timeout <= 0 {
		timeout = h.probeTimeout
	}
	return latency < time.Duration(float64(timeout)*healthyLatencyFraction)
}

// PingLatency measures a single bounded ping
func (h *HealthMonitor) PingLatency(ctx context.Context, conn Client, timeout time.Duration) (time.Duration, error) {
	if timeout <= 0 {
		timeout = h.probeTimeout
	}

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := conn.Health(probeCtx)
	latency := time.Since(start)
	if err != nil {
		return latency, err
	}
	return latency, nil
}

// ValidateConnection performs an active correctness check: ping, then a
// scoped write/read/delete cycle with a short-lived keyed value. It fails on
// any probe error or when the read-back value does not match what was
// written. The connection is treated as usable once these basic operations
// succeed, independent of the client's internal readiness flag.
func (h *HealthMonitor) ValidateConnection(ctx context.Context, conn Client, usageType UsageType) error {
	if err := conn.Health(ctx); err != nil {
		return fmt.Errorf("validation ping failed: %w", err)
	}

	key := h.keyGen.ProbeKey(string(usageType))
	if err := h.keyGen.ValidateKey(key); err != nil {
		return internal.NewValidationError(string(usageType), fmt.Sprintf("invalid probe key generated: %v", err), err)
	}

	value := fmt.Sprintf("probe-%d", time.Now().UnixNano())

	if err := conn.SetWithRetry(ctx, key, value, probeTTL); err != nil {
		return fmt.Errorf("validation write failed: %w", err)
	}

	got, err := conn.GetWithRetry(ctx, key)
	if err != nil {
		return fmt.Errorf("validation read failed: %w", err)
	}

	if got != value {
		return internal.NewValidationError(string(usageType),
			fmt.Sprintf("probe read-back mismatch: wrote %q, read %q", value, got), nil)
	}

	if err := conn.DelWithRetry(ctx, key); err != nil {
		return fmt.Errorf("validation cleanup failed: %w", err)
	}

	return nil
}
