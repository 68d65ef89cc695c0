package proxies

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/proxy-manager/internal/models"
	"github.com/magabrotheeeer/proxy-manager/internal/storage/repository"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockRepo) CreateProxy(ctx context.Context, userID int64, login, password, ip string, port int) (int64, error) {
	args := m.Called(ctx, userID, login, password, ip, port)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRepo) GetProxy(ctx context.Context, proxyID int64) (*models.Proxy, error) {
	args := m.Called(ctx, proxyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Proxy), args.Error(1)
}

func (m *mockRepo) UpdateProxyPassword(ctx context.Context, proxyID int64, newPassword string) error {
	args := m.Called(ctx, proxyID, newPassword)
	return args.Error(0)
}

func (m *mockRepo) MarkProxyDeleted(ctx context.Context, proxyID int64) error {
	args := m.Called(ctx, proxyID)
	return args.Error(0)
}

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Provision(ctx context.Context, login, password string) (string, int, error) {
	args := m.Called(ctx, login, password)
	return args.String(0), args.Int(1), args.Error(2)
}

func (m *mockProvider) RotatePassword(ctx context.Context, login, password string) error {
	args := m.Called(ctx, login, password)
	return args.Error(0)
}

func (m *mockProvider) Revoke(ctx context.Context, login string) error {
	args := m.Called(ctx, login)
	return args.Error(0)
}

type mockSyncer struct {
	mock.Mock
}

func (m *mockSyncer) Sync(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func noopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCreate_ProvisionsAndStores(t *testing.T) {
	repo := new(mockRepo)
	provider := new(mockProvider)
	syncer := new(mockSyncer)

	repo.On("GetUser", mock.Anything, int64(100)).Return(&models.User{ID: 100}, nil)
	provider.On("Provision", mock.Anything, mock.Anything, mock.Anything).
		Return("10.0.0.5", 1080, nil)
	repo.On("CreateProxy", mock.Anything, int64(100), mock.Anything, mock.Anything, "10.0.0.5", 1080).
		Return(int64(7), nil)
	// Новому прокси нужен MTProto-секрет
	syncer.On("Sync", mock.Anything).Return(nil)

	svc := New(noopLogger(), repo, provider, syncer)

	result, err := svc.Create(context.Background(), 100)
	require.NoError(t, err)

	assert.Equal(t, int64(7), result.ProxyID)
	assert.Len(t, result.Login, 8)
	assert.Len(t, result.Password, 12)
	assert.Equal(t, "10.0.0.5", result.IP)
	assert.Equal(t, 1080, result.Port)
	assert.Contains(t, result.Link, "server=10.0.0.5")
	assert.Contains(t, result.Link, "user="+result.Login)
	repo.AssertExpectations(t)
	provider.AssertExpectations(t)
	syncer.AssertExpectations(t)
}

func TestCreate_UnknownUser(t *testing.T) {
	repo := new(mockRepo)
	provider := new(mockProvider)

	repo.On("GetUser", mock.Anything, int64(999)).Return(nil, repository.ErrUserNotFound)

	svc := New(noopLogger(), repo, provider, nil)

	_, err := svc.Create(context.Background(), 999)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
	provider.AssertNotCalled(t, "Provision", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreate_StoreFailureRevokesAccount(t *testing.T) {
	repo := new(mockRepo)
	provider := new(mockProvider)

	repo.On("GetUser", mock.Anything, int64(100)).Return(&models.User{ID: 100}, nil)
	provider.On("Provision", mock.Anything, mock.Anything, mock.Anything).
		Return("10.0.0.5", 1080, nil)
	repo.On("CreateProxy", mock.Anything, int64(100), mock.Anything, mock.Anything, "10.0.0.5", 1080).
		Return(int64(0), errors.New("db down"))
	// Учётная запись на узле не должна остаться осиротевшей
	provider.On("Revoke", mock.Anything, mock.Anything).Return(nil)

	svc := New(noopLogger(), repo, provider, nil)

	_, err := svc.Create(context.Background(), 100)
	require.Error(t, err)
	provider.AssertExpectations(t)
}

func TestRotatePassword_UpdatesNodeAndStore(t *testing.T) {
	repo := new(mockRepo)
	provider := new(mockProvider)

	repo.On("GetProxy", mock.Anything, int64(7)).
		Return(&models.Proxy{ID: 7, Login: "abc12345", Status: models.ProxyStatusActive}, nil)
	provider.On("RotatePassword", mock.Anything, "abc12345", mock.Anything).Return(nil)
	repo.On("UpdateProxyPassword", mock.Anything, int64(7), mock.Anything).Return(nil)

	svc := New(noopLogger(), repo, provider, nil)

	newPassword, err := svc.RotatePassword(context.Background(), 7)
	require.NoError(t, err)

	assert.Len(t, newPassword, 12)
	// Узлу и хранилищу отправлен один и тот же пароль
	provider.AssertCalled(t, "RotatePassword", mock.Anything, "abc12345", newPassword)
	repo.AssertCalled(t, "UpdateProxyPassword", mock.Anything, int64(7), newPassword)
}

func TestRotatePassword_DeletedProxy(t *testing.T) {
	repo := new(mockRepo)
	provider := new(mockProvider)

	repo.On("GetProxy", mock.Anything, int64(7)).
		Return(&models.Proxy{ID: 7, Login: "abc12345", Status: models.ProxyStatusDeleted}, nil)

	svc := New(noopLogger(), repo, provider, nil)

	_, err := svc.RotatePassword(context.Background(), 7)
	assert.ErrorIs(t, err, ErrProxyDeleted)
	provider.AssertNotCalled(t, "RotatePassword", mock.Anything, mock.Anything, mock.Anything)
}

func TestRotatePassword_NodeFailureKeepsStoredPassword(t *testing.T) {
	repo := new(mockRepo)
	provider := new(mockProvider)

	repo.On("GetProxy", mock.Anything, int64(7)).
		Return(&models.Proxy{ID: 7, Login: "abc12345", Status: models.ProxyStatusActive}, nil)
	provider.On("RotatePassword", mock.Anything, "abc12345", mock.Anything).
		Return(errors.New("node unreachable"))

	svc := New(noopLogger(), repo, provider, nil)

	_, err := svc.RotatePassword(context.Background(), 7)
	require.Error(t, err)
	repo.AssertNotCalled(t, "UpdateProxyPassword", mock.Anything, mock.Anything, mock.Anything)
}

func TestDelete_RevokesAndMarks(t *testing.T) {
	repo := new(mockRepo)
	provider := new(mockProvider)
	syncer := new(mockSyncer)

	repo.On("GetProxy", mock.Anything, int64(7)).
		Return(&models.Proxy{ID: 7, Login: "abc12345", Status: models.ProxyStatusActive}, nil)
	provider.On("Revoke", mock.Anything, "abc12345").Return(nil)
	repo.On("MarkProxyDeleted", mock.Anything, int64(7)).Return(nil)
	// Секрет удалённого прокси должен уйти из файла
	syncer.On("Sync", mock.Anything).Return(nil)

	svc := New(noopLogger(), repo, provider, syncer)

	require.NoError(t, svc.Delete(context.Background(), 7))
	repo.AssertExpectations(t)
	provider.AssertExpectations(t)
	syncer.AssertExpectations(t)
}

func TestDelete_AlreadyDeletedIsNoop(t *testing.T) {
	repo := new(mockRepo)
	provider := new(mockProvider)

	repo.On("GetProxy", mock.Anything, int64(7)).
		Return(&models.Proxy{ID: 7, Login: "abc12345", Status: models.ProxyStatusDeleted}, nil)

	svc := New(noopLogger(), repo, provider, nil)

	require.NoError(t, svc.Delete(context.Background(), 7))
	provider.AssertNotCalled(t, "Revoke", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "MarkProxyDeleted", mock.Anything, mock.Anything)
}
