package proxyrotate

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

	"github.com/magabrotheeeer/proxy-manager/internal/services/proxies"
	"github.com/magabrotheeeer/proxy-manager/internal/storage/repository"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) RotatePassword(ctx context.Context, proxyID int64) (string, error) {
	args := m.Called(ctx, proxyID)
	return args.String(0), args.Error(1)
}

func noopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func postJSON(handler http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/proxies/rotate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestServeHTTP_RotatesPassword(t *testing.T) {
	service := new(mockService)
	service.On("RotatePassword", mock.Anything, int64(7)).Return("newpass12345", nil)

	rec := postJSON(New(noopLogger(), service), `{"proxy_id":7}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "newpass12345")
	service.AssertExpectations(t)
}

func TestServeHTTP_UnknownProxy(t *testing.T) {
	service := new(mockService)
	service.On("RotatePassword", mock.Anything, int64(7)).
		Return("", repository.ErrProxyNotFound)

	rec := postJSON(New(noopLogger(), service), `{"proxy_id":7}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeHTTP_DeletedProxy(t *testing.T) {
	service := new(mockService)
	service.On("RotatePassword", mock.Anything, int64(7)).
		Return("", proxies.ErrProxyDeleted)

	rec := postJSON(New(noopLogger(), service), `{"proxy_id":7}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestServeHTTP_ValidationFailure(t *testing.T) {
	service := new(mockService)

	rec := postJSON(New(noopLogger(), service), `{}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	service.AssertNotCalled(t, "RotatePassword", mock.Anything, mock.Anything)
}
