package proxymanager

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	admincredit "github.com/magabrotheeeer/proxy-manager/internal/http/handlers/admin/credit"
	adminlogin "github.com/magabrotheeeer/proxy-manager/internal/http/handlers/admin/login"
	adminproxycreate "github.com/magabrotheeeer/proxy-manager/internal/http/handlers/admin/proxycreate"
	adminproxydelete "github.com/magabrotheeeer/proxy-manager/internal/http/handlers/admin/proxydelete"
	adminproxyrotate "github.com/magabrotheeeer/proxy-manager/internal/http/handlers/admin/proxyrotate"
	"github.com/magabrotheeeer/proxy-manager/internal/http/handlers/health"
	"github.com/magabrotheeeer/proxy-manager/internal/http/handlers/payment/paymentcreate"
	"github.com/magabrotheeeer/proxy-manager/internal/http/handlers/payment/paymentnotify"
	"github.com/magabrotheeeer/proxy-manager/internal/http/middlewarectx"
	"github.com/magabrotheeeer/proxy-manager/internal/lib/jwt"
	proxiesservice "github.com/magabrotheeeer/proxy-manager/internal/services/proxies"
	settlementservice "github.com/magabrotheeeer/proxy-manager/internal/services/settlement"
	topupservice "github.com/magabrotheeeer/proxy-manager/internal/services/topup"
	"github.com/magabrotheeeer/proxy-manager/internal/storage/repository"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, db *repository.Storage,
	topupService *topupservice.Service, settlementService *settlementservice.Service,
	proxyService *proxiesservice.Service,
	jwtMaker jwt.Maker, adminUsername, adminPasswordHash string) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	// Уведомления провайдера не лимитируются: потерянный из-за лимита
	// ретрай провайдер может больше не прислать.
	publicLimiter := rate.NewLimiter(5, 10)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(publicLimiter, logger))
			r.Post("/payments", paymentcreate.New(logger, topupService).ServeHTTP)
			r.Post("/admin/login", adminlogin.New(logger, jwtMaker, adminUsername, adminPasswordHash).ServeHTTP)
		})

		r.Post("/payments/notify", paymentnotify.New(logger, settlementService).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(jwtMaker, logger))
			r.Post("/admin/credit", admincredit.New(logger, topupService).ServeHTTP)
			r.Post("/admin/proxies", adminproxycreate.New(logger, proxyService).ServeHTTP)
			r.Post("/admin/proxies/rotate", adminproxyrotate.New(logger, proxyService).ServeHTTP)
			r.Post("/admin/proxies/delete", adminproxydelete.New(logger, proxyService).ServeHTTP)
		})
	})

	r.Get("/health", health.New(logger, db).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
}
