package internal

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"
)

// ProbeKeyGenerator defines the interface for generating and validating
// the short-lived keys used by connection validation probes
type ProbeKeyGenerator interface {
	ProbeKey(usageType string) string
	ValidateKey(key string) error
}

// DefaultProbeKeyGenerator implements the ProbeKeyGenerator interface
type DefaultProbeKeyGenerator struct{}

// NewProbeKeyGenerator creates a new DefaultProbeKeyGenerator instance
func NewProbeKeyGenerator() ProbeKeyGenerator {
	return &DefaultProbeKeyGenerator{}
}

// ProbeKey generates a unique cache key for a validation probe.
// Format: /health/probe/<usage_type>/<nonce>
func (kg *DefaultProbeKeyGenerator) ProbeKey(usageType string) string {
	sanitized := kg.sanitizeName(usageType)
	nonce := fmt.Sprintf("%d-%04d", time.Now().UnixNano(), rand.Intn(10000))
	return fmt.Sprintf("/health/probe/%s/%s", sanitized, nonce)
}

// ValidateKey validates that a probe key follows the expected format and constraints
func (kg *DefaultProbeKeyGenerator) ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}

	if !strings.HasPrefix(key, "/health/probe/") {
		return fmt.Errorf("key does not match the probe namespace: %s", key)
	}

	// Control characters and null bytes (security)
	for i, r := range key {
		if r < 32 || r == 127 {
			return fmt.Errorf("key contains control character at position %d: %s", i, key)
		}
	}

	if strings.Contains(key, "../") || strings.Contains(key, "..\\") || strings.HasSuffix(key, "/..") {
		return fmt.Errorf("key contains path traversal sequence: %s", key)
	}

	invalidChars := regexp.MustCompile(`[^\w\-_/.%]`)
	if invalidChars.MatchString(key) {
		return fmt.Errorf("key contains invalid characters: %s", key)
	}

	if strings.Contains(key, "//") {
		return fmt.Errorf("key contains double slashes: %s", key)
	}

	if len(key) > 250 {
		return fmt.Errorf("key exceeds maximum length of 250 characters")
	}

	parts := strings.Split(key, "/")
	if len(parts) != 5 || parts[3] == "" || parts[4] == "" {
		return fmt.Errorf("invalid probe key format: %s", key)
	}

	return nil
}

// sanitizeName sanitizes a usage-type name for use in probe keys
func (kg *DefaultProbeKeyGenerator) sanitizeName(name string) string {
	if name == "" {
		return "unknown"
	}

	sanitized := strings.ToLower(name)
	sanitized = strings.ReplaceAll(sanitized, " ", "_")
	sanitized = strings.ReplaceAll(sanitized, "/", "-")
	sanitized = strings.ReplaceAll(sanitized, "\\", "-")

	return sanitized
}
