// Package billing реализует суточный биллинг прокси: списание платы
// за каждый активный прокси, отключение при нехватке средств и
// предупреждения владельцам о низком балансе.
package billing

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

// BillingRepository описывает операции хранилища, нужные биллингу.
type BillingRepository interface {
	ListActiveProxiesForBilling(ctx context.Context) ([]*models.BillingProxy, error)
	ChargeProxyForDay(ctx context.Context, proxyID, userID int64, price int64, day time.Time) (bool, error)
	DisableProxyForDay(ctx context.Context, proxyID int64, day time.Time) (bool, error)
	DisableProxy(ctx context.Context, proxyID int64) (bool, error)
	SetLowBalanceWarnDate(ctx context.Context, userID int64, day time.Time) (bool, error)
}

// Settings описывает доступ к настройкам биллинга.
type Settings interface {
	Int(ctx context.Context, key string, defaultValue int64) (int64, error)
}

// EventPublisher публикует доменные события. Доставка best-effort.
type EventPublisher interface {
	Publish(routingKey string, message any) error
}

// SecretSyncer запускает синхронизацию секретов после изменения
// набора активных прокси.
type SecretSyncer interface {
	Sync(ctx context.Context) error
}

// Service реализует биллинг.
type Service struct {
	log       *slog.Logger
	repo      BillingRepository
	settings  Settings
	publisher EventPublisher
	syncer    SecretSyncer

	now func() time.Time
}

// New создает новый экземпляр Service. publisher и syncer могут быть nil.
func New(log *slog.Logger, repo BillingRepository, stngs Settings,
	publisher EventPublisher, syncer SecretSyncer) *Service {
	return &Service{
		log:       log,
		repo:      repo,
		settings:  stngs,
		publisher: publisher,
		syncer:    syncer,
		now:       time.Now,
	}
}

// Run выполняет цикл биллинга сразу и далее по интервалу, до отмены контекста.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	s.runCycle(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

func (s *Service) runCycle(ctx context.Context) {
	result, err := s.RunOnce(ctx)
	if err != nil {
		s.log.Error("billing cycle failed", sl.Err(err))
		return
	}
	if result.Changed && s.syncer != nil {
		if err := s.syncer.Sync(ctx); err != nil {
			s.log.Error("secret sync after billing failed", sl.Err(err))
		}
	}
}

// RunOnce выполняет один цикл биллинга: по разу списывает суточную плату
// с каждого активного прокси, отключает прокси, на которые не хватает
// средств, и формирует предупреждения о низком балансе.
//
// Баланс владельца отслеживается в памяти по ходу цикла: последующие
// прокси того же владельца видят уже выполненные списания. Последнее
// слово за условным UPDATE в базе.
func (s *Service) RunOnce(ctx context.Context) (*models.BillingResult, error) {
	const op = "billing.RunOnce"

	result := &models.BillingResult{
		DisabledByBalance: make(map[int64][]*models.Proxy),
		Warnings:          make(map[int64]models.LowBalanceWarning),
	}

	dayPrice, err := s.settings.Int(ctx, settings.KeyProxyDayPrice, 10)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if dayPrice <= 0 {
		// Нулевая или отрицательная цена — биллинг выключен.
		return result, nil
	}

	warnDays, err := s.settings.Int(ctx, settings.KeyLowBalanceWarnDays, 3)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := s.repo.ListActiveProxiesForBilling(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	today := s.now().UTC().Truncate(24 * time.Hour)

	// Текущие балансы владельцев в рамках цикла и число их прокси,
	// оставшихся активными после обработки.
	balances := make(map[int64]int64)
	activeLeft := make(map[int64]int)

	for _, row := range rows {
		if _, seen := balances[row.UserID]; !seen {
			balances[row.UserID] = row.UserBalance
		}

		if row.UserBlocked || row.UserDeleted {
			disabled, err := s.repo.DisableProxy(ctx, row.ID)
			if err != nil {
				s.log.Error("failed to disable proxy of blocked user",
					sl.Err(err), slog.Int64("proxy_id", row.ID))
				continue
			}
			if disabled {
				result.Changed = true
			}
			continue
		}

		if row.LastBilledOn != nil && sameDay(*row.LastBilledOn, today) {
			activeLeft[row.UserID]++
			continue
		}

		if balances[row.UserID] >= dayPrice {
			charged, err := s.repo.ChargeProxyForDay(ctx, row.ID, row.UserID, dayPrice, today)
			if err != nil {
				s.log.Error("failed to charge proxy",
					sl.Err(err), slog.Int64("proxy_id", row.ID))
				continue
			}
			if charged {
				balances[row.UserID] -= dayPrice
				metrics.ProxiesChargedTotal.Inc()
			}
			activeLeft[row.UserID]++
			continue
		}

		disabled, err := s.repo.DisableProxyForDay(ctx, row.ID, today)
		if err != nil {
			s.log.Error("failed to disable proxy",
				sl.Err(err), slog.Int64("proxy_id", row.ID))
			continue
		}
		if disabled {
			result.Changed = true
			result.DisabledByBalance[row.UserID] = append(
				result.DisabledByBalance[row.UserID], &row.Proxy)
			metrics.ProxiesDisabledTotal.Inc()
			s.publish(rabbitmq.KeyProxyDisabled, models.ProxyDisabledEvent{
				UserID:  row.UserID,
				ProxyID: row.ID,
				Login:   row.Login,
			})
		}
	}

	s.collectWarnings(ctx, result, balances, activeLeft, dayPrice, warnDays, today)

	metrics.BillingCyclesTotal.Inc()
	s.log.Info("billing cycle completed",
		slog.Int("proxies_seen", len(rows)),
		slog.Int("owners_warned", len(result.Warnings)),
		slog.Bool("changed", result.Changed))
	return result, nil
}

// collectWarnings формирует предупреждения владельцам, чей баланс не
// покрывает warnDays суток всех оставшихся активных прокси. Предупреждение
// уходит не чаще раза в день: дату гасит условный UPDATE в базе.
func (s *Service) collectWarnings(ctx context.Context, result *models.BillingResult,
	balances map[int64]int64, activeLeft map[int64]int,
	dayPrice, warnDays int64, today time.Time) {

	for userID, count := range activeLeft {
		if count == 0 {
			continue
		}
		balance := balances[userID]
		required := dayPrice * int64(count)

		var level string
		switch {
		case balance < dayPrice:
			level = models.WarnLevelCritical
		case balance < required*warnDays:
			level = models.WarnLevelAdvance
		default:
			continue
		}

		warned, err := s.repo.SetLowBalanceWarnDate(ctx, userID, today)
		if err != nil {
			s.log.Error("failed to stamp low balance warn date",
				sl.Err(err), slog.Int64("user_id", userID))
			continue
		}
		if !warned {
			// Сегодня уже предупреждали.
			continue
		}

		warning := models.LowBalanceWarning{
			Balance:     balance,
			Required:    required,
			ActiveCount: count,
			Level:       level,
		}
		result.Warnings[userID] = warning
		s.publish(rabbitmq.KeyLowBalance, models.LowBalanceEvent{
			UserID:      userID,
			Balance:     balance,
			Required:    required,
			ActiveCount: count,
			Level:       level,
		})
	}
}

func (s *Service) publish(routingKey string, message any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(routingKey, message); err != nil {
		s.log.Error("failed to publish event",
			sl.Err(err), slog.String("routing_key", routingKey))
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
