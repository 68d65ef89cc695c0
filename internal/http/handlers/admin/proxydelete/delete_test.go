package proxydelete

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/proxy-manager/internal/storage/repository"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) Delete(ctx context.Context, proxyID int64) error {
	args := m.Called(ctx, proxyID)
	return args.Error(0)
}

func noopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func postJSON(handler http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/proxies/delete", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestServeHTTP_DeletesProxy(t *testing.T) {
	service := new(mockService)
	service.On("Delete", mock.Anything, int64(7)).Return(nil)

	rec := postJSON(New(noopLogger(), service), `{"proxy_id":7}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	service.AssertExpectations(t)
}

func TestServeHTTP_UnknownProxy(t *testing.T) {
	service := new(mockService)
	service.On("Delete", mock.Anything, int64(7)).Return(repository.ErrProxyNotFound)

	rec := postJSON(New(noopLogger(), service), `{"proxy_id":7}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeHTTP_ValidationFailure(t *testing.T) {
	service := new(mockService)

	rec := postJSON(New(noopLogger(), service), `{}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	service.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestServeHTTP_InvalidJSON(t *testing.T) {
	rec := postJSON(New(noopLogger(), new(mockService)), `{bad`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
