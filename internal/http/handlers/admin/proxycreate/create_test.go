package proxycreate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/proxy-manager/internal/services/proxies"
	"github.com/magabrotheeeer/proxy-manager/internal/storage/repository"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) Create(ctx context.Context, userID int64) (*proxies.Result, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*proxies.Result), args.Error(1)
}

func noopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func postJSON(handler http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/proxies", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestServeHTTP_ProvisionsProxy(t *testing.T) {
	service := new(mockService)
	service.On("Create", mock.Anything, int64(100)).Return(&proxies.Result{
		ProxyID:  7,
		Login:    "abc12345",
		Password: "secret123456",
		IP:       "10.0.0.5",
		Port:     1080,
		Link:     "https://t.me/socks?server=10.0.0.5&port=1080&user=abc12345&pass=secret123456",
	}, nil)

	rec := postJSON(New(noopLogger(), service), `{"user_id":100}`)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			ProxyID int64  `json:"proxy_id"`
			Login   string `json:"login"`
			Link    string `json:"link"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(7), body.Data.ProxyID)
	assert.Equal(t, "abc12345", body.Data.Login)
	assert.Contains(t, body.Data.Link, "server=10.0.0.5")
	service.AssertExpectations(t)
}

func TestServeHTTP_UnknownUser(t *testing.T) {
	service := new(mockService)
	service.On("Create", mock.Anything, int64(999)).Return(nil, repository.ErrUserNotFound)

	rec := postJSON(New(noopLogger(), service), `{"user_id":999}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeHTTP_ProviderFailure(t *testing.T) {
	service := new(mockService)
	service.On("Create", mock.Anything, int64(100)).Return(nil, errors.New("node unreachable"))

	rec := postJSON(New(noopLogger(), service), `{"user_id":100}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServeHTTP_ValidationFailure(t *testing.T) {
	service := new(mockService)

	rec := postJSON(New(noopLogger(), service), `{}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	service.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestServeHTTP_InvalidJSON(t *testing.T) {
	rec := postJSON(New(noopLogger(), new(mockService)), `{bad`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
