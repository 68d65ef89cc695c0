package middlewarectx

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/proxy-manager/internal/lib/jwt"
)

func noopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func nextHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestJWTMiddleware(t *testing.T) {
	maker := jwt.NewJWTMaker("test-secret", time.Hour)

	adminToken, err := maker.GenerateToken("admin", "admin")
	require.NoError(t, err)
	userToken, err := maker.GenerateToken("user", "user")
	require.NoError(t, err)

	foreign := jwt.NewJWTMaker("other-secret", time.Hour)
	foreignToken, err := foreign.GenerateToken("admin", "admin")
	require.NoError(t, err)

	cases := []struct {
		name       string // Название теста
		header     string
		wantStatus int
		wantNext   bool
	}{
		{"Валидный токен администратора", "Bearer " + adminToken, http.StatusOK, true},
		{"Нет заголовка", "", http.StatusUnauthorized, false},
		{"Не Bearer", "Basic abc", http.StatusUnauthorized, false},
		{"Чужая подпись", "Bearer " + foreignToken, http.StatusUnauthorized, false},
		{"Недостаточная роль", "Bearer " + userToken, http.StatusForbidden, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var called bool
			handler := JWTMiddleware(maker, noopLogger())(nextHandler(&called))

			req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/credit", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, tc.wantNext, called)
		})
	}
}

func TestJWTMiddleware_PutsUserIntoContext(t *testing.T) {
	maker := jwt.NewJWTMaker("test-secret", time.Hour)
	token, err := maker.GenerateToken("admin", "admin")
	require.NoError(t, err)

	var username string
	handler := JWTMiddleware(maker, noopLogger())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, _ = r.Context().Value(User).(string)
		}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "admin", username)
}

func TestRateLimitMiddleware(t *testing.T) {
	// Две мгновенные попытки при бюджете в один запрос
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)

	var calls int
	handler := RateLimitMiddleware(limiter, noopLogger())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
		}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, 1, calls)
}
