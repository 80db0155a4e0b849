package connmgr

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/JAAFAR1996/go-redis-connmgr/internal"
)

// Environment indicates the deployment environment connections are derived for
type Environment string

const (
	// EnvDevelopment is the local development environment
	EnvDevelopment Environment = "development"
	// EnvStaging is the pre-production environment
	EnvStaging Environment = "staging"
	// EnvProduction is the production environment
	EnvProduction Environment = "production"
)

// Valid reports whether the environment is one of the supported values
func (e Environment) Valid() bool {
	switch e {
	case EnvDevelopment, EnvStaging, EnvProduction:
		return true
	}
	return false
}

const defaultRedisURL = "redis://localhost:6379"

// ConfigFactory derives per-usage-type connection parameters from the
// process-wide endpoint URL and deployment environment. Pure derivation,
// no network I/O.
type ConfigFactory struct {
	baseURL *url.URL
	db      int
	env     Environment
}

// NewConfigFactory creates a factory for the given endpoint URL and
// environment. Supported schemes are redis:// and rediss:// (TLS).
// Production requires a non-default TLS endpoint.
func NewConfigFactory(baseURL string, env Environment) (*ConfigFactory, error) {
	if !env.Valid() {
		return nil, internal.NewValidationError("", fmt.Sprintf("unsupported environment: %q", env), nil)
	}

	if baseURL == "" {
		baseURL = defaultRedisURL
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, internal.NewValidationError("", fmt.Sprintf("invalid endpoint URL %q", baseURL), err)
	}

	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, internal.NewValidationError("", fmt.Sprintf("unsupported endpoint scheme %q (want redis or rediss)", u.Scheme), nil)
	}

	db := 0
	if path := strings.TrimPrefix(u.Path, "/"); path != "" {
		db, err = strconv.Atoi(path)
		if err != nil {
			return nil, internal.NewValidationError("", fmt.Sprintf("invalid database number in endpoint URL: %q", path), err)
		}
	}

	if env == EnvProduction {
		host := u.Hostname()
		if host == "" || host == "localhost" || host == "127.0.0.1" {
			return nil, internal.NewValidationError("", "production requires a non-default endpoint", nil)
		}
		if u.Scheme != "rediss" {
			return nil, internal.NewValidationError("", "production requires a TLS (rediss) endpoint", nil)
		}
	}

	return &ConfigFactory{baseURL: u, db: db, env: env}, nil
}

// ConfigFactoryFromEnv builds a factory from the process environment:
// REDIS_URL for the endpoint and APP_ENV for the deployment environment,
// both with safe defaults.
func ConfigFactoryFromEnv() (*ConfigFactory, error) {
	env := Environment(os.Getenv("APP_ENV"))
	if env == "" {
		env = EnvDevelopment
	}
	return NewConfigFactory(os.Getenv("REDIS_URL"), env)
}

// Environment returns the deployment environment the factory derives for
func (f *ConfigFactory) Environment() Environment {
	return f.env
}

// ConnectionConfig derives the concrete connection parameters for a usage
// type. Timeouts and pool sizing differ per consumer: rate limiting cannot
// afford to stall callers, health checks must fail fast, analytics tolerates
// slower reads.
func (f *ConfigFactory) ConnectionConfig(usageType UsageType) (*internal.Config, error) {
	if !usageType.Valid() {
		return nil, internal.NewValidationError(string(usageType), "unknown usage type", nil)
	}

	host := f.baseURL.Hostname()
	if host == "" {
		host = "localhost"
	}
	port := f.baseURL.Port()
	if port == "" {
		port = "6379"
	}

	cfg := internal.DefaultConfig()
	cfg.RedisAddr = net.JoinHostPort(host, port)
	cfg.UseTLS = f.baseURL.Scheme == "rediss"
	cfg.RedisDB = f.db
	if f.baseURL.User != nil {
		if pw, ok := f.baseURL.User.Password(); ok {
			cfg.RedisPassword = pw
		}
	}

	switch usageType {
	case UsageCaching:
		cfg.PoolSize = 10
	case UsageHealthCheck:
		cfg.DialTimeout = 2 * time.Second
		cfg.ReadTimeout = 1 * time.Second
		cfg.WriteTimeout = 1 * time.Second
		cfg.PoolSize = 2
		cfg.MaxRetries = 1
	case UsageRateLimiting:
		cfg.ReadTimeout = 500 * time.Millisecond
		cfg.WriteTimeout = 500 * time.Millisecond
		cfg.PoolSize = 5
	case UsageSession:
		cfg.PoolSize = 8
	case UsageAnalytics:
		cfg.ReadTimeout = 5 * time.Second
		cfg.WriteTimeout = 5 * time.Second
		cfg.PoolSize = 4
	}

	if f.env == EnvProduction {
		cfg.DialTimeout = 10 * time.Second
	}

	return cfg, nil
}
