package credit

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

func (m *mockService) Credit(ctx context.Context, userID, amount int64) error {
	args := m.Called(ctx, userID, amount)
	return args.Error(0)
}

func noopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func postJSON(handler http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/credit", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestServeHTTP_CreditsBalance(t *testing.T) {
	service := new(mockService)
	service.On("Credit", mock.Anything, int64(100), int64(500)).Return(nil)

	rec := postJSON(New(noopLogger(), service), `{"user_id":100,"amount":500}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	service.AssertExpectations(t)
}

func TestServeHTTP_UnknownUser(t *testing.T) {
	service := new(mockService)
	service.On("Credit", mock.Anything, int64(100), int64(500)).
		Return(repository.ErrUserNotFound)

	rec := postJSON(New(noopLogger(), service), `{"user_id":100,"amount":500}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeHTTP_ValidationFailure(t *testing.T) {
	service := new(mockService)

	rec := postJSON(New(noopLogger(), service), `{"user_id":100,"amount":-5}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	service.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything)
}

func TestServeHTTP_InvalidJSON(t *testing.T) {
	rec := postJSON(New(noopLogger(), new(mockService)), `{bad`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
