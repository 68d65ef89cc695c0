// Package proxymanager собирает сервис целиком: хранилище, кеш, очередь
// событий, платёжного провайдера, HTTP-сервер и фоновые циклы биллинга,
// сверки платежей и наблюдателя.
package proxymanager

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi"

	"github.com/magabrotheeeer/proxy-manager/internal/config"
	"github.com/magabrotheeeer/proxy-manager/internal/lib/jwt"
	"github.com/magabrotheeeer/proxy-manager/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/proxy-manager/internal/lib/sl"
	"github.com/magabrotheeeer/proxy-manager/internal/migrations"
	"github.com/magabrotheeeer/proxy-manager/internal/paymentprovider"
	"github.com/magabrotheeeer/proxy-manager/internal/proxyprovider"
	billingservice "github.com/magabrotheeeer/proxy-manager/internal/services/billing"
	proxiesservice "github.com/magabrotheeeer/proxy-manager/internal/services/proxies"
	reenableservice "github.com/magabrotheeeer/proxy-manager/internal/services/reenable"
	secretsyncservice "github.com/magabrotheeeer/proxy-manager/internal/services/secretsync"
	settlementservice "github.com/magabrotheeeer/proxy-manager/internal/services/settlement"
	topupservice "github.com/magabrotheeeer/proxy-manager/internal/services/topup"
	watchdogservice "github.com/magabrotheeeer/proxy-manager/internal/services/watchdog"
	settingsservice "github.com/magabrotheeeer/proxy-manager/internal/settings"
	"github.com/magabrotheeeer/proxy-manager/internal/storage/cache"
	"github.com/magabrotheeeer/proxy-manager/internal/storage/repository"
	"github.com/magabrotheeeer/proxy-manager/internal/sysd"
)

// App — собранное приложение: HTTP-сервер и фоновые циклы.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cfg    *config.Config

	billing    *billingservice.Service
	settlement *settlementservice.Service
	watchdog   *watchdogservice.Service
}

// New собирает приложение из конфигурации. Недоступные необязательные
// зависимости (redis, rabbitmq) не мешают запуску: без кеша настройки
// читаются из базы, без очереди события только логируются.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	var settingsCache settingsservice.SettingsCache
	if cfg.RedisConnection.AddressRedis != "" {
		redisCache, err := cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			logger.Error("redis unavailable, settings cache disabled", sl.Err(err))
		} else {
			settingsCache = redisCache
		}
	}
	settingsService := settingsservice.New(db, settingsCache, logger)

	var publisher *rabbitmq.Publisher
	if cfg.RabbitMQURL != "" {
		conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
		if err != nil {
			logger.Error("rabbitmq unavailable, events disabled", sl.Err(err))
		} else {
			ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetEventQueues())
			if err != nil {
				logger.Error("rabbitmq channel setup failed, events disabled", sl.Err(err))
			} else {
				publisher = rabbitmq.NewPublisher(ch)
			}
		}
	}
	// Типизированный nil в интерфейсном поле ломает проверки на nil
	var events billingservice.EventPublisher
	if publisher != nil {
		events = publisher
	}

	controller := sysd.New(cfg.MTProxy.ServiceName, cfg.MTProxy.ControlTimeout)
	syncState := secretsyncservice.NewSyncState()
	secretSync := secretsyncservice.New(logger, db, settingsService, controller,
		syncState, cfg.MTProxy.SecretsFile, cfg.MTProxy.RestartCooldown)

	reenableService := reenableservice.New(logger, db, settingsService, events)
	billingService := billingservice.New(logger, db, settingsService, events, secretSync)

	providerClient := paymentprovider.NewClient(cfg.FreeKassa.APIBase,
		cfg.FreeKassa.ShopID, cfg.FreeKassa.APIKey, cfg.FreeKassa.RequestTimeout)

	settlementService := settlementservice.New(logger, db, providerClient,
		reenableService, secretSync, events, settlementservice.Config{
			ShopID:            cfg.FreeKassa.ShopID,
			SecretWord2:       cfg.FreeKassa.SecretWord2,
			FeePercent:        cfg.FreeKassa.FeePercent,
			StrictAmountCheck: cfg.FreeKassa.StrictAmountCheck,
		})

	topupService := topupservice.New(logger, db, providerClient, reenableService, secretSync)

	proxyProvider, err := proxyprovider.New(cfg.ProxyProvider)
	if err != nil {
		return nil, err
	}
	proxyService := proxiesservice.New(logger, db, proxyProvider, secretSync)

	watchdogService := watchdogservice.New(logger, controller, syncState, events,
		watchdogservice.Config{
			ServiceName: cfg.MTProxy.ServiceName,
			Cooldown:    cfg.MTProxy.RestartCooldown,
			Silence:     cfg.Scheduler.WatchdogSilence,
		})

	jwtMaker := jwt.NewJWTMaker(cfg.Admin.JWTSecretKey, cfg.Admin.TokenTTL)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, db, topupService, settlementService,
		proxyService, jwtMaker, cfg.Admin.Username, cfg.Admin.PasswordHash)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:     srv,
		logger:     logger,
		db:         db,
		cfg:        cfg,
		billing:    billingService,
		settlement: settlementService,
		watchdog:   watchdogService,
	}, nil
}

// Run запускает HTTP-сервер и фоновые циклы и блокируется до отмены
// контекста или падения сервера.
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		a.billing.Run(ctx, a.cfg.Scheduler.BillingInterval)
	}()
	go func() {
		defer wg.Done()
		a.settlement.Run(ctx, a.cfg.Scheduler.ReconcileInterval)
	}()
	go func() {
		defer wg.Done()
		a.watchdog.Run(ctx, a.cfg.Scheduler.WatchdogInterval)
	}()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		wg.Wait()
		_ = a.db.DB.Close()
		return err
	}
}
