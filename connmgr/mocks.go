package connmgr

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockClient is a mock implementation of the Client interface for testing
type MockClient struct {
	mock.Mock
}

// NewMockClient creates a new mock client
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Health mocks the Health method
func (m *MockClient) Health(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// HealthWithRetry mocks the HealthWithRetry method
func (m *MockClient) HealthWithRetry(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// SetWithRetry mocks the SetWithRetry method
func (m *MockClient) SetWithRetry(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

// GetWithRetry mocks the GetWithRetry method
func (m *MockClient) GetWithRetry(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

// DelWithRetry mocks the DelWithRetry method
func (m *MockClient) DelWithRetry(ctx context.Context, keys ...string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

// InfoWithRetry mocks the InfoWithRetry method
func (m *MockClient) InfoWithRetry(ctx context.Context, section string) (string, error) {
	args := m.Called(ctx, section)
	return args.String(0), args.Error(1)
}

// Addr mocks the Addr method
func (m *MockClient) Addr() (string, int) {
	args := m.Called()
	return args.String(0), args.Int(1)
}

// Close mocks the Close method
func (m *MockClient) Close() error {
	args := m.Called()
	return args.Error(0)
}
