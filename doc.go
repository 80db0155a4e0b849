// Package connmgr provides lifecycle management for pooled Redis connections,
// one per logical usage type (caching, health checks, rate limiting, sessions,
// analytics).
//
// This package implements the connection-lifecycle subsystem that sits between
// application code and the Redis client library:
//   - Per-usage-type connection tracking with at most one live connection each
//   - Event-driven state transitions (connect, ready, error, close,
//     reconnecting, end) expressed as a finite-state machine table
//   - Error classification into a closed taxonomy (connection, timeout,
//     rate-limit, validation, capacity, unknown)
//   - Reconnection scheduling with capped exponential backoff and a terminal
//     give-up state after a configured number of attempts
//   - A global rate-limit circuit breaker: once the provider rejects for
//     quota, all new connection attempts fail fast until the window expires
//   - Bounded health probes with a latency budget (a ping that barely makes
//     the deadline counts as degraded) and active write/read/delete validation
//   - Quota-aware health-check scheduling
//
// # Basic Usage
//
// Create a manager from an endpoint URL and environment:
//
//	factory, err := connmgr.NewConfigFactory("redis://localhost:6379", connmgr.EnvDevelopment)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	manager, err := connmgr.NewConnectionManager(factory, connmgr.DefaultPoolConfig(), logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer manager.CloseAllConnections()
//
// Acquire a connection for a usage type:
//
//	conn, err := manager.GetConnection(ctx, connmgr.UsageCaching)
//	if err != nil {
//	    if connmgr.IsRateLimitError(err) {
//	        retryAt, _ := connmgr.RetryAt(err)
//	        log.Printf("rate limited until %s", retryAt)
//	    }
//	    return err
//	}
//
//	err = conn.SetWithRetry(ctx, "response:42", payload, time.Hour)
//
// # Error Handling
//
// Creation-path failures are classified and returned typed; use the
// predicates (IsConnectionError, IsTimeoutError, IsRateLimitError,
// IsValidationError, IsCapacityError) to branch. Asynchronous failures
// observed on live connections are never returned to callers; they update
// the tracked record and drive scheduled recovery. Close operations never
// fail.
//
// # Observability
//
// GetConnectionInfo exposes the tracked record per usage type (status,
// health score, reconnect attempts, last error); GetConnectionStats
// aggregates across the pool; ValidateAllConnections probes every tracked
// connection and reports latency verdicts.
package connmgr
