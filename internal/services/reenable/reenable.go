// Package reenable восстанавливает отключённые за недостаток средств
// прокси после пополнения баланса, в пределах свободных слотов владельца.
package reenable

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/proxy-manager/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/proxy-manager/internal/lib/sl"
	"github.com/magabrotheeeer/proxy-manager/internal/metrics"
	"github.com/magabrotheeeer/proxy-manager/internal/models"
	"github.com/magabrotheeeer/proxy-manager/internal/settings"
)

// Кандидатов на восстановление за один вызов больше этого числа не берём.
const restoreBatchLimit = 100

// ReenableRepository описывает операции хранилища для восстановления.
type ReenableRepository interface {
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	ListDisabledProxies(ctx context.Context, userID int64, limit int) ([]*models.Proxy, error)
	CountActiveProxies(ctx context.Context, userID int64) (int, error)
	ReenableProxy(ctx context.Context, proxyID int64, day time.Time) (bool, error)
}

// Settings описывает доступ к настройкам.
type Settings interface {
	Int(ctx context.Context, key string, defaultValue int64) (int64, error)
}

// EventPublisher публикует доменные события. Доставка best-effort.
type EventPublisher interface {
	Publish(routingKey string, message any) error
}

// Service реализует восстановление прокси.
type Service struct {
	log       *slog.Logger
	repo      ReenableRepository
	settings  Settings
	publisher EventPublisher

	now func() time.Time
}

// New создает новый экземпляр Service. publisher может быть nil.
func New(log *slog.Logger, repo ReenableRepository, stngs Settings,
	publisher EventPublisher) *Service {
	return &Service{
		log:       log,
		repo:      repo,
		settings:  stngs,
		publisher: publisher,
		now:       time.Now,
	}
}

// RestoreForUser восстанавливает отключённые прокси пользователя, начиная
// с самых старых, пока не кончатся кандидаты или свободные слоты.
// Лимит слотов задаётся настройкой max_active_proxies; ноль — без лимита.
// Восстановленный прокси считается оплаченным за сегодня.
//
// No-op, если биллинг выключен (нулевая суточная цена), владелец
// заблокирован или удалён, либо баланса не хватает даже на один день:
// восстановленный прокси следующий цикл тут же отключил бы обратно.
func (s *Service) RestoreForUser(ctx context.Context, userID int64) ([]*models.Proxy, error) {
	const op = "reenable.RestoreForUser"

	dayPrice, err := s.settings.Int(ctx, settings.KeyProxyDayPrice, 10)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if dayPrice <= 0 {
		return nil, nil
	}

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if user.IsBlocked() || user.IsDeleted() || user.Balance < dayPrice {
		return nil, nil
	}

	maxActive, err := s.settings.Int(ctx, settings.KeyMaxActiveProxies, 10)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	slots := restoreBatchLimit
	if maxActive > 0 {
		active, err := s.repo.CountActiveProxies(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		slots = int(maxActive) - active
		if slots <= 0 {
			return nil, nil
		}
	}

	candidates, err := s.repo.ListDisabledProxies(ctx, userID, slots)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	today := s.now().UTC().Truncate(24 * time.Hour)

	var restored []*models.Proxy
	for _, proxy := range candidates {
		ok, err := s.repo.ReenableProxy(ctx, proxy.ID, today)
		if err != nil {
			s.log.Error("failed to reenable proxy",
				sl.Err(err), slog.Int64("proxy_id", proxy.ID))
			continue
		}
		if !ok {
			continue
		}
		restored = append(restored, proxy)
		metrics.ProxiesRestoredTotal.Inc()

		if s.publisher != nil {
			if err := s.publisher.Publish(rabbitmq.KeyProxyRestored, models.ProxyRestoredEvent{
				UserID:  userID,
				ProxyID: proxy.ID,
				Login:   proxy.Login,
			}); err != nil {
				s.log.Error("failed to publish restore event", sl.Err(err))
			}
		}
	}

	if len(restored) > 0 {
		s.log.Info("proxies restored",
			slog.Int64("user_id", userID),
			slog.Int("count", len(restored)))
	}
	return restored, nil
}
