package topup

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/proxy-manager/internal/models"
	"github.com/magabrotheeeer/proxy-manager/internal/paymentprovider"
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

func (m *mockRepo) CreatePayment(ctx context.Context, userID int64, amount int64, payload string) (int64, error) {
	args := m.Called(ctx, userID, amount, payload)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRepo) UpdatePaymentStatusIfPending(ctx context.Context, paymentID int64, status, providerPaymentID string) (bool, error) {
	args := m.Called(ctx, paymentID, status, providerPaymentID)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepo) AddUserBalance(ctx context.Context, userID int64, delta int64) error {
	args := m.Called(ctx, userID, delta)
	return args.Error(0)
}

type mockClient struct {
	mock.Mock
}

func (m *mockClient) CreateOrder(ctx context.Context, req paymentprovider.OrderRequest) (*paymentprovider.OrderResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentprovider.OrderResponse), args.Error(1)
}

type mockRestorer struct {
	mock.Mock
}

func (m *mockRestorer) RestoreForUser(ctx context.Context, userID int64) ([]*models.Proxy, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Proxy), args.Error(1)
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

func TestCreate(t *testing.T) {
	repo := new(mockRepo)
	client := new(mockClient)

	repo.On("GetUser", mock.Anything, int64(100)).Return(&models.User{ID: 100}, nil)
	repo.On("CreatePayment", mock.Anything, int64(100), int64(200), "").Return(int64(50), nil)
	client.On("CreateOrder", mock.Anything, paymentprovider.OrderRequest{
		PaymentID: 50,
		Amount:    200,
		Email:     "user@example.com",
		IP:        "127.0.0.1",
	}).Return(&paymentprovider.OrderResponse{
		PaymentLink: "https://pay.example/50",
		OrderID:     "FK-50",
	}, nil)

	svc := New(noopLogger(), repo, client, nil, nil)

	result, err := svc.Create(context.Background(), 100, 200, "user@example.com", "127.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, int64(50), result.PaymentID)
	assert.Equal(t, "https://pay.example/50", result.PaymentLink)
	repo.AssertExpectations(t)
	client.AssertExpectations(t)
}

func TestCreate_NonPositiveAmount(t *testing.T) {
	svc := New(noopLogger(), new(mockRepo), new(mockClient), nil, nil)

	_, err := svc.Create(context.Background(), 100, 0, "", "")
	assert.ErrorIs(t, err, ErrBadAmount)
}

func TestCreate_UnknownUser(t *testing.T) {
	repo := new(mockRepo)
	repo.On("GetUser", mock.Anything, int64(100)).Return(nil, repository.ErrUserNotFound)

	svc := New(noopLogger(), repo, new(mockClient), nil, nil)

	_, err := svc.Create(context.Background(), 100, 200, "", "")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestCreate_ProviderFailureCancelsPayment(t *testing.T) {
	repo := new(mockRepo)
	client := new(mockClient)

	repo.On("GetUser", mock.Anything, int64(100)).Return(&models.User{ID: 100}, nil)
	repo.On("CreatePayment", mock.Anything, int64(100), int64(200), "").Return(int64(50), nil)
	client.On("CreateOrder", mock.Anything, mock.Anything).Return(nil, assert.AnError)
	repo.On("UpdatePaymentStatusIfPending", mock.Anything, int64(50),
		models.PaymentStatusCanceled, "").Return(true, nil)

	svc := New(noopLogger(), repo, client, nil, nil)

	_, err := svc.Create(context.Background(), 100, 200, "", "")
	require.Error(t, err)
	repo.AssertExpectations(t)
}

func TestCredit_RestoresProxies(t *testing.T) {
	repo := new(mockRepo)
	restorer := new(mockRestorer)
	syncer := new(mockSyncer)

	repo.On("GetUser", mock.Anything, int64(100)).Return(&models.User{ID: 100}, nil)
	repo.On("AddUserBalance", mock.Anything, int64(100), int64(500)).Return(nil)
	restorer.On("RestoreForUser", mock.Anything, int64(100)).
		Return([]*models.Proxy{{ID: 1}}, nil)
	syncer.On("Sync", mock.Anything).Return(nil)

	svc := New(noopLogger(), repo, new(mockClient), restorer, syncer)

	require.NoError(t, svc.Credit(context.Background(), 100, 500))
	repo.AssertExpectations(t)
	restorer.AssertExpectations(t)
	syncer.AssertExpectations(t)
}

func TestCredit_NothingRestoredSkipsSync(t *testing.T) {
	repo := new(mockRepo)
	restorer := new(mockRestorer)
	syncer := new(mockSyncer)

	repo.On("GetUser", mock.Anything, int64(100)).Return(&models.User{ID: 100}, nil)
	repo.On("AddUserBalance", mock.Anything, int64(100), int64(500)).Return(nil)
	restorer.On("RestoreForUser", mock.Anything, int64(100)).Return([]*models.Proxy{}, nil)

	svc := New(noopLogger(), repo, new(mockClient), restorer, syncer)

	require.NoError(t, svc.Credit(context.Background(), 100, 500))
	syncer.AssertNotCalled(t, "Sync", mock.Anything)
}
