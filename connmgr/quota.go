package connmgr

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// QuotaMonitor polls provider usage and recommends how much to stretch the
// health-check interval under quota pressure. The usage signal is the memory
// quota reported by INFO: used_memory against maxmemory.
type QuotaMonitor struct {
	conn Client
}

// NewQuotaMonitor creates a monitor polling through the given connection
func NewQuotaMonitor(conn Client) *QuotaMonitor {
	return &QuotaMonitor{conn: conn}
}

// UsagePercent returns the provider usage percentage in [0, 100]. When the
// provider reports no quota (maxmemory 0), usage is unknown and reported as 0.
func (q *QuotaMonitor) UsagePercent(ctx context.Context) (float64, error) {
	info, err := q.conn.InfoWithRetry(ctx, "memory")
	if err != nil {
		return 0, fmt.Errorf("failed to read memory info: %w", err)
	}

	used, err := parseInfoInt(info, "used_memory")
	if err != nil {
		return 0, err
	}

	max, err := parseInfoInt(info, "maxmemory")
	if err != nil {
		return 0, err
	}

	if max <= 0 {
		return 0, nil
	}

	pct := float64(used) / float64(max) * 100
	if pct > 100 {
		pct = 100
	}
	return pct, nil
}

// CheckIntervalMultiplier maps a usage percentage to a health-check interval
// multiplier: probing backs off as quota pressure rises.
func CheckIntervalMultiplier(usagePercent float64) float64 {
	switch {
	case usagePercent >= 95:
		return 8.0
	case usagePercent >= 85:
		return 4.0
	case usagePercent >= 70:
		return 2.0
	default:
		return 1.0
	}
}

// IntervalMultiplier polls usage and returns the recommended multiplier.
// When usage cannot be determined the recommendation is neutral (1.0).
func (q *QuotaMonitor) IntervalMultiplier(ctx context.Context) float64 {
	pct, err := q.UsagePercent(ctx)
	if err != nil {
		return 1.0
	}
	return CheckIntervalMultiplier(pct)
}

// parseInfoInt extracts an integer field from a Redis INFO section
func parseInfoInt(info, field string) (int64, error) {
	for _, line := range strings.Split(info, "\n") {
		line = strings.TrimSuffix(line, "\r")
		name, value, ok := strings.Cut(line, ":")
		if !ok || name != field {
			continue
		}
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("malformed %s value %q: %w", field, value, err)
		}
		return n, nil
	}
	return 0, fmt.Errorf("field %s not present in info section", field)
}
