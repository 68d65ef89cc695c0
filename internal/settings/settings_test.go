package settings

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetSetting(ctx context.Context, key, defaultValue string) (string, error) {
	args := m.Called(ctx, key, defaultValue)
	return args.String(0), args.Error(1)
}

func (m *MockRepository) SetSetting(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string, result any) (bool, error) {
	args := m.Called(ctx, key, result)
	if args.Bool(0) {
		if s, ok := result.(*string); ok {
			*s = args.String(2)
		}
	}
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

func (m *MockCache) Invalidate(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestInt_CacheMiss(t *testing.T) {
	repo := new(MockRepository)
	cache := new(MockCache)
	service := New(repo, cache, newNoopLogger())

	cache.On("Get", mock.Anything, "settings:proxy_day_price", mock.Anything).Return(false, nil, "").Once()
	repo.On("GetSetting", mock.Anything, "proxy_day_price", "0").Return("10", nil).Once()
	cache.On("Set", mock.Anything, "settings:proxy_day_price", "10", cacheTTL).Return(nil).Once()

	got, err := service.Int(context.Background(), KeyProxyDayPrice, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(10), got)

	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestInt_CacheHit(t *testing.T) {
	repo := new(MockRepository)
	cache := new(MockCache)
	service := New(repo, cache, newNoopLogger())

	cache.On("Get", mock.Anything, "settings:max_active_proxies", mock.Anything).Return(true, nil, "7").Once()

	got, err := service.Int(context.Background(), KeyMaxActiveProxies, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got)

	// Репозиторий не должен быть задет
	repo.AssertNotCalled(t, "GetSetting")
}

func TestInt_InvalidValueFallsBackToDefault(t *testing.T) {
	repo := new(MockRepository)
	service := New(repo, nil, newNoopLogger())

	repo.On("GetSetting", mock.Anything, "proxy_day_price", "15").Return("not-a-number", nil).Once()

	got, err := service.Int(context.Background(), KeyProxyDayPrice, 15)
	require.NoError(t, err)
	assert.Equal(t, int64(15), got)
}

func TestBool(t *testing.T) {
	tests := []struct {
		name     string
		stored   string
		expected bool
	}{
		{name: "enabled", stored: "1", expected: true},
		{name: "disabled", stored: "0", expected: false},
		{name: "garbage is disabled", stored: "yes", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			service := New(repo, nil, newNoopLogger())
			repo.On("GetSetting", mock.Anything, "mtproto_enabled", "0").Return(tt.stored, nil).Once()

			got, err := service.Bool(context.Background(), KeyMTProtoEnabled, false)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestString_CacheErrorFallsThrough(t *testing.T) {
	repo := new(MockRepository)
	cache := new(MockCache)
	service := New(repo, cache, newNoopLogger())

	cache.On("Get", mock.Anything, "settings:free_credit", mock.Anything).Return(false, errors.New("redis down"), "").Once()
	repo.On("GetSetting", mock.Anything, "free_credit", "50").Return("50", nil).Once()
	cache.On("Set", mock.Anything, "settings:free_credit", "50", cacheTTL).Return(errors.New("redis down")).Once()

	got, err := service.String(context.Background(), KeyFreeCredit, "50")
	require.NoError(t, err)
	assert.Equal(t, "50", got)
}

func TestSet_InvalidatesCache(t *testing.T) {
	repo := new(MockRepository)
	cache := new(MockCache)
	service := New(repo, cache, newNoopLogger())

	repo.On("SetSetting", mock.Anything, "proxy_day_price", "20").Return(nil).Once()
	cache.On("Invalidate", mock.Anything, "settings:proxy_day_price").Return(nil).Once()

	require.NoError(t, service.Set(context.Background(), KeyProxyDayPrice, "20"))

	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}
