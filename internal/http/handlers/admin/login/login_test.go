package login

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/proxy-manager/internal/lib/jwt"
	"github.com/magabrotheeeer/proxy-manager/internal/lib/password"
)

func noopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHandler(t *testing.T) (*Handler, jwt.Maker) {
	t.Helper()
	hash, err := password.GetHash("correct-password")
	require.NoError(t, err)
	maker := jwt.NewJWTMaker("test-secret", time.Hour)
	return New(noopLogger(), maker, "admin", hash), maker
}

func postJSON(handler http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestServeHTTP_Success(t *testing.T) {
	handler, maker := newHandler(t)

	rec := postJSON(handler, `{"username":"admin","password":"correct-password"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Token string `json:"token"`
			Role  string `json:"role"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "OK", resp.Status)
	assert.Equal(t, "admin", resp.Data.Role)

	// Выданный токен валиден и несёт роль admin
	claims, err := maker.ParseToken(resp.Data.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)
	assert.Equal(t, "admin", claims.Role)
}

func TestServeHTTP_WrongPassword(t *testing.T) {
	handler, _ := newHandler(t)

	rec := postJSON(handler, `{"username":"admin","password":"wrong-password"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServeHTTP_WrongUsername(t *testing.T) {
	handler, _ := newHandler(t)

	rec := postJSON(handler, `{"username":"intruder","password":"correct-password"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServeHTTP_InvalidJSON(t *testing.T) {
	handler, _ := newHandler(t)

	rec := postJSON(handler, `{bad`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServeHTTP_ValidationFailure(t *testing.T) {
	handler, _ := newHandler(t)

	rec := postJSON(handler, `{"username":"ad","password":"short"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
