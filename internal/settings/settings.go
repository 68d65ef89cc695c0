// Package settings предоставляет типизированный доступ к настройкам
// сервиса (цены, лимиты, фичефлаги), хранящимся в таблице key/value.
// Чтение идёт через кеш с коротким TTL; запись сбрасывает кеш.
package settings

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/magabrotheeeer/proxy-manager/internal/lib/sl"
)

// Ключи настроек.
const (
	KeyProxyCreatePrice   = "proxy_create_price"
	KeyProxyDayPrice      = "proxy_day_price"
	KeyFreeCredit         = "free_credit"
	KeyMaxActiveProxies   = "max_active_proxies"
	KeyMTProtoEnabled     = "mtproto_enabled"
	KeyLowBalanceWarnDays = "low_balance_warn_days"
)

const cacheTTL = 30 * time.Second

// SettingsRepository описывает операции хранилища настроек.
type SettingsRepository interface {
	GetSetting(ctx context.Context, key, defaultValue string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// SettingsCache описывает кеш настроек. Может быть nil — тогда каждое
// чтение идёт в базу.
type SettingsCache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// Service реализует типизированный доступ к настройкам.
type Service struct {
	repo  SettingsRepository
	cache SettingsCache
	log   *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo SettingsRepository, cache SettingsCache, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

func cacheKey(key string) string {
	return "settings:" + key
}

// String возвращает строковую настройку или default, если ключа нет.
func (s *Service) String(ctx context.Context, key, defaultValue string) (string, error) {
	if s.cache != nil {
		var cached string
		found, err := s.cache.Get(ctx, cacheKey(key), &cached)
		if err != nil {
			// Недоступный кеш не должен ломать чтение настроек.
			s.log.Warn("settings cache read failed", sl.Err(err), slog.String("key", key))
		} else if found {
			return cached, nil
		}
	}

	value, err := s.repo.GetSetting(ctx, key, defaultValue)
	if err != nil {
		return "", fmt.Errorf("settings.String: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey(key), value, cacheTTL); err != nil {
			s.log.Warn("settings cache write failed", sl.Err(err), slog.String("key", key))
		}
	}
	return value, nil
}

// Int возвращает целочисленную настройку. Некорректное значение в базе
// трактуется как default.
func (s *Service) Int(ctx context.Context, key string, defaultValue int64) (int64, error) {
	value, err := s.String(ctx, key, strconv.FormatInt(defaultValue, 10))
	if err != nil {
		return 0, err
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue, nil
	}
	return parsed, nil
}

// Bool возвращает булеву настройку: значением "1" включена, иначе выключена.
func (s *Service) Bool(ctx context.Context, key string, defaultValue bool) (bool, error) {
	def := "0"
	if defaultValue {
		def = "1"
	}
	value, err := s.String(ctx, key, def)
	if err != nil {
		return false, err
	}
	return value == "1", nil
}

// Set сохраняет настройку и сбрасывает её в кеше.
func (s *Service) Set(ctx context.Context, key, value string) error {
	if err := s.repo.SetSetting(ctx, key, value); err != nil {
		return fmt.Errorf("settings.Set: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, cacheKey(key)); err != nil {
			s.log.Warn("settings cache invalidate failed", sl.Err(err), slog.String("key", key))
		}
	}
	return nil
}
