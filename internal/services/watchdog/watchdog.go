// Package watchdog следит за состоянием системной службы mtproto-прокси:
// добирает отложенные синхронизатором перезапуски, поднимает упавшую
// службу и шлёт алерты, не зашумляя канал повторами.
package watchdog

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/proxy-manager/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/proxy-manager/internal/lib/sl"
	"github.com/magabrotheeeer/proxy-manager/internal/metrics"
	"github.com/magabrotheeeer/proxy-manager/internal/models"
	"github.com/magabrotheeeer/proxy-manager/internal/services/secretsync"
)

// ServiceController управляет наблюдаемой службой.
type ServiceController interface {
	IsActive(ctx context.Context) (bool, error)
	Restart(ctx context.Context) error
}

// EventPublisher публикует алерты. Доставка best-effort.
type EventPublisher interface {
	Publish(routingKey string, message any) error
}

// Config — параметры наблюдателя.
type Config struct {
	ServiceName string        // Имя наблюдаемой службы (для алертов)
	Cooldown    time.Duration // Минимальный интервал между перезапусками
	Silence     time.Duration // Окно тишины между повторными алертами
}

// Service реализует наблюдателя. Cooldown перезапусков общий с
// синхронизатором секретов через SyncState.
type Service struct {
	log        *slog.Logger
	controller ServiceController
	state      *secretsync.SyncState
	publisher  EventPublisher
	cfg        Config

	lastKnown   bool // Было ли уже наблюдение
	lastActive  bool // Состояние службы на прошлом тике
	lastAlertAt time.Time

	now func() time.Time
}

// New создает новый экземпляр Service. publisher может быть nil.
func New(log *slog.Logger, controller ServiceController,
	state *secretsync.SyncState, publisher EventPublisher, cfg Config) *Service {
	return &Service{
		log:        log,
		controller: controller,
		state:      state,
		publisher:  publisher,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Run выполняет тик сразу и далее по интервалу, до отмены контекста.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	s.Tick(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick выполняет один проход наблюдателя: добирает отложенный перезапуск,
// проверяет состояние службы и при падении алертит и перезапускает её.
func (s *Service) Tick(ctx context.Context) {
	now := s.now()

	if s.state.TakeDeferred(now, s.cfg.Cooldown) {
		s.log.Info("completing deferred restart")
		if err := s.controller.Restart(ctx); err != nil {
			s.log.Error("deferred restart failed", sl.Err(err))
		} else {
			metrics.ServiceRestartsTotal.WithLabelValues("deferred").Inc()
		}
	}

	active, err := s.controller.IsActive(ctx)
	if err != nil {
		s.log.Error("failed to query service state", sl.Err(err))
		return
	}

	stateChanged := !s.lastKnown || s.lastActive != active
	s.lastKnown = true
	s.lastActive = active

	if active {
		if stateChanged {
			s.log.Info("service is active", slog.String("service", s.cfg.ServiceName))
		}
		return
	}

	if stateChanged || now.Sub(s.lastAlertAt) >= s.cfg.Silence {
		s.lastAlertAt = now
		s.log.Error("service is down", slog.String("service", s.cfg.ServiceName))
		if s.publisher != nil {
			err := s.publisher.Publish(rabbitmq.KeyServiceAlert, models.ServiceAlertEvent{
				Service: s.cfg.ServiceName,
				State:   "down",
			})
			if err != nil {
				s.log.Error("failed to publish alert", sl.Err(err))
			}
		}
	}

	if !s.state.TryRestart(now, s.cfg.Cooldown) {
		metrics.RestartsDeferredTotal.Inc()
		s.log.Info("restart deferred until cooldown expires")
		return
	}
	if err := s.controller.Restart(ctx); err != nil {
		s.log.Error("failed to restart service", sl.Err(err))
		return
	}
	metrics.ServiceRestartsTotal.WithLabelValues("watchdog").Inc()
	s.log.Info("service restarted", slog.String("service", s.cfg.ServiceName))
}
