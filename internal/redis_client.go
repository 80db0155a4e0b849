package internal

import (
	"context"
	"crypto/tls"
	"fmt"
	"math"
	"math/rand"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration parameters for one logical connection
type Config struct {
	// Redis connection settings
	RedisAddr     string `json:"redis_addr"`     // Redis server address (host:port)
	RedisPassword string `json:"redis_password"` // Redis password (optional)
	RedisDB       int    `json:"redis_db"`       // Redis database number
	UseTLS        bool   `json:"use_tls"`        // Whether to dial with TLS (rediss endpoints)

	// Connection settings
	MaxRetries   int           `json:"max_retries"`   // Maximum number of client-level retries
	DialTimeout  time.Duration `json:"dial_timeout"`  // Timeout for establishing connection
	ReadTimeout  time.Duration `json:"read_timeout"`  // Timeout for socket reads
	WriteTimeout time.Duration `json:"write_timeout"` // Timeout for socket writes
	PoolSize     int           `json:"pool_size"`     // Maximum number of socket connections

	// Resilience settings
	RetryConfig *RetryConfig `json:"retry_config"` // Retry configuration for operations

	// Event observers, attached before any command is issued so that
	// asynchronous failures during validation are still observed.
	OnConnect func()          `json:"-"` // invoked when a new server connection is established
	OnError   func(err error) `json:"-"` // invoked when a dial or command fails
}

// RetryConfig defines operation-level retry behavior with exponential backoff
type RetryConfig struct {
	MaxAttempts  int           `json:"max_attempts"`  // Maximum number of retry attempts
	InitialDelay time.Duration `json:"initial_delay"` // Initial delay before first retry
	MaxDelay     time.Duration `json:"max_delay"`     // Maximum delay between retries
	Multiplier   float64       `json:"multiplier"`    // Backoff multiplier
	Jitter       bool          `json:"jitter"`        // Whether to add random jitter
	RetryableOps []string      `json:"retryable_ops"` // Operations that should be retried
}

// DefaultRetryConfig returns a RetryConfig with sensible default values
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
		RetryableOps: []string{"ping", "get", "set", "del", "info"},
	}
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		RedisAddr:     "localhost:6379",
		RedisPassword: "",
		RedisDB:       0,
		UseTLS:        false,
		MaxRetries:    3,
		DialTimeout:   5 * time.Second,
		ReadTimeout:   3 * time.Second,
		WriteTimeout:  3 * time.Second,
		PoolSize:      10,
		RetryConfig:   DefaultRetryConfig(),
	}
}

// RedisClientInterface defines the interface for Redis client operations
type RedisClientInterface interface {
	Health(ctx context.Context) error
	HealthWithRetry(ctx context.Context) error
	SetWithRetry(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	GetWithRetry(ctx context.Context, key string) (string, error)
	DelWithRetry(ctx context.Context, keys ...string) error
	InfoWithRetry(ctx context.Context, section string) (string, error)
	Addr() (host string, port int)
	Client() *redis.Client
	Config() *Config
	Close() error
}

// RedisClient wraps the go-redis client with retry logic and event observation
type RedisClient struct {
	client *redis.Client
	config *Config
}

// observerHook feeds dial and command failures to the configured error
// observer. Registered at client construction, before any command runs.
type observerHook struct {
	onError func(error)
}

func (h *observerHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil && h.onError != nil {
			h.onError(err)
		}
		return conn, err
	}
}

func (h *observerHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && err != redis.Nil && h.onError != nil {
			h.onError(err)
		}
		return err
	}
}

func (h *observerHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && err != redis.Nil && h.onError != nil {
			h.onError(err)
		}
		return err
	}
}

// NewRedisClient creates a new Redis client with the provided configuration
func NewRedisClient(config *Config) (*RedisClient, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	opts := &redis.Options{
		Addr:         config.RedisAddr,
		Password:     config.RedisPassword,
		DB:           config.RedisDB,
		MaxRetries:   config.MaxRetries,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		PoolSize:     config.PoolSize,
	}

	if config.UseTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	if config.OnConnect != nil {
		onConnect := config.OnConnect
		opts.OnConnect = func(ctx context.Context, cn *redis.Conn) error {
			onConnect()
			return nil
		}
	}

	client := redis.NewClient(opts)

	if config.OnError != nil {
		client.AddHook(&observerHook{onError: config.OnError})
	}

	return &RedisClient{
		client: client,
		config: config,
	}, nil
}

// validateConfig validates the Redis configuration parameters
func validateConfig(config *Config) error {
	if config.RedisAddr == "" {
		return fmt.Errorf("redis address cannot be empty")
	}

	if config.RedisDB < 0 || config.RedisDB > 15 {
		return fmt.Errorf("redis database must be between 0 and 15, got %d", config.RedisDB)
	}

	if config.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative, got %d", config.MaxRetries)
	}

	if config.DialTimeout <= 0 {
		return fmt.Errorf("dial timeout must be positive, got %v", config.DialTimeout)
	}

	if config.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive, got %v", config.ReadTimeout)
	}

	if config.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive, got %v", config.WriteTimeout)
	}

	if config.PoolSize <= 0 {
		return fmt.Errorf("pool size must be positive, got %d", config.PoolSize)
	}

	if config.RetryConfig != nil {
		if err := validateRetryConfig(config.RetryConfig); err != nil {
			return fmt.Errorf("invalid retry configuration: %w", err)
		}
	}

	return nil
}

// validateRetryConfig validates the retry configuration parameters
func validateRetryConfig(config *RetryConfig) error {
	if config.MaxAttempts < 0 {
		return fmt.Errorf("max attempts cannot be negative, got %d", config.MaxAttempts)
	}

	if config.InitialDelay < 0 {
		return fmt.Errorf("initial delay cannot be negative, got %v", config.InitialDelay)
	}

	if config.MaxDelay < 0 {
		return fmt.Errorf("max delay cannot be negative, got %v", config.MaxDelay)
	}

	if config.Multiplier < 1.0 {
		return fmt.Errorf("multiplier must be >= 1.0, got %f", config.Multiplier)
	}

	if config.InitialDelay > config.MaxDelay {
		return fmt.Errorf("initial delay (%v) cannot be greater than max delay (%v)", config.InitialDelay, config.MaxDelay)
	}

	return nil
}

// Health performs a health check on the Redis connection
func (rc *RedisClient) Health(ctx context.Context) error {
	pong, err := rc.client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}

	if pong != "PONG" {
		return fmt.Errorf("unexpected ping response: %s", pong)
	}

	return nil
}

// Addr returns the resolved host and port of the configured endpoint
func (rc *RedisClient) Addr() (string, int) {
	host, portStr, err := net.SplitHostPort(rc.config.RedisAddr)
	if err != nil {
		return rc.config.RedisAddr, 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 0
	}
	return host, port
}

// Client returns the underlying Redis client for direct access
func (rc *RedisClient) Client() *redis.Client {
	return rc.client
}

// Config returns the Redis client configuration
func (rc *RedisClient) Config() *Config {
	return rc.config
}

// Close closes the Redis client connection
func (rc *RedisClient) Close() error {
	return rc.client.Close()
}

// isRetryableError determines if an error should trigger an operation retry.
// Rate-limit rejections are never retried at this level; they must surface
// to the connection manager so the global suspension window can be set.
func (rc *RedisClient) isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	switch Classify(err) {
	case ErrorTypeConnection, ErrorTypeTimeout:
		return true
	}

	// Redis server states that resolve on their own
	msg := strings.ToUpper(err.Error())
	return strings.Contains(msg, "LOADING") ||
		strings.Contains(msg, "BUSY") ||
		strings.Contains(msg, "TRYAGAIN")
}

// isOperationRetryable checks if the given operation should be retried
func (rc *RedisClient) isOperationRetryable(operation string) bool {
	if rc.config.RetryConfig == nil {
		return false
	}

	for _, op := range rc.config.RetryConfig.RetryableOps {
		if op == operation {
			return true
		}
	}
	return false
}

// calculateBackoffDelay calculates the delay for the next retry attempt
func (rc *RedisClient) calculateBackoffDelay(attempt int) time.Duration {
	if rc.config.RetryConfig == nil {
		return time.Second
	}

	config := rc.config.RetryConfig

	delay := float64(config.InitialDelay) * math.Pow(config.Multiplier, float64(attempt))

	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}

	if config.Jitter {
		jitter := rand.Float64() * 0.1 * delay // 10% jitter
		delay += jitter
	}

	return time.Duration(delay)
}

// executeWithRetry executes a function with retry logic
func (rc *RedisClient) executeWithRetry(ctx context.Context, operation string, fn func() error) error {
	if !rc.isOperationRetryable(operation) || rc.config.RetryConfig == nil {
		return fn()
	}

	var lastErr error
	maxAttempts := rc.config.RetryConfig.MaxAttempts

	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if !rc.isRetryableError(err) {
			return err
		}

		// Don't wait after the last attempt
		if attempt == maxAttempts-1 {
			break
		}

		delay := rc.calculateBackoffDelay(attempt)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			// Continue to next attempt
		}
	}

	return fmt.Errorf("operation '%s' failed after %d attempts: %w", operation, maxAttempts, lastErr)
}

// HealthWithRetry performs a health check with retry logic
func (rc *RedisClient) HealthWithRetry(ctx context.Context) error {
	return rc.executeWithRetry(ctx, "ping", func() error {
		return rc.Health(ctx)
	})
}

// SetWithRetry performs a SET operation with retry logic
func (rc *RedisClient) SetWithRetry(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return rc.executeWithRetry(ctx, "set", func() error {
		return rc.client.Set(ctx, key, value, expiration).Err()
	})
}

// GetWithRetry performs a GET operation with retry logic
func (rc *RedisClient) GetWithRetry(ctx context.Context, key string) (string, error) {
	var result string
	err := rc.executeWithRetry(ctx, "get", func() error {
		val, err := rc.client.Get(ctx, key).Result()
		if err != nil {
			return err
		}
		result = val
		return nil
	})
	return result, err
}

// DelWithRetry performs a DEL operation with retry logic
func (rc *RedisClient) DelWithRetry(ctx context.Context, keys ...string) error {
	return rc.executeWithRetry(ctx, "del", func() error {
		return rc.client.Del(ctx, keys...).Err()
	})
}

// InfoWithRetry performs an INFO operation with retry logic
func (rc *RedisClient) InfoWithRetry(ctx context.Context, section string) (string, error) {
	var result string
	err := rc.executeWithRetry(ctx, "info", func() error {
		val, err := rc.client.Info(ctx, section).Result()
		if err != nil {
			return err
		}
		result = val
		return nil
	})
	return result, err
}
