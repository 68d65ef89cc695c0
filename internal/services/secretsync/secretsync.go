// Package secretsync поддерживает файл секретов mtproto-прокси в
// соответствии с набором активных прокси и перезапускает службу при
// изменении файла, соблюдая cooldown между перезапусками.
package secretsync

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/magabrotheeeer/proxy-manager/internal/lib/secrets"
	"github.com/magabrotheeeer/proxy-manager/internal/lib/sl"
	"github.com/magabrotheeeer/proxy-manager/internal/metrics"
	"github.com/magabrotheeeer/proxy-manager/internal/models"
	"github.com/magabrotheeeer/proxy-manager/internal/settings"
)

// SecretsRepository описывает операции хранилища для синхронизации.
type SecretsRepository interface {
	ListActiveProxies(ctx context.Context) ([]*models.Proxy, error)
	UpdateProxyMTProtoSecret(ctx context.Context, proxyID int64, secret string) error
}

// Settings описывает доступ к фичефлагу mtproto.
type Settings interface {
	Bool(ctx context.Context, key string, defaultValue bool) (bool, error)
}

// ServiceController управляет системной службой mtproto-прокси.
type ServiceController interface {
	Stop(ctx context.Context) error
	Restart(ctx context.Context) error
}

// Service реализует синхронизацию секретов. Писатель файла единственный:
// конкурентные вызовы Sync сериализуются мьютексом.
type Service struct {
	log         *slog.Logger
	repo        SecretsRepository
	settings    Settings
	controller  ServiceController
	state       *SyncState
	secretsFile string
	cooldown    time.Duration

	mu  sync.Mutex
	now func() time.Time
}

// New создает новый экземпляр Service.
func New(log *slog.Logger, repo SecretsRepository, stngs Settings,
	controller ServiceController, state *SyncState,
	secretsFile string, cooldown time.Duration) *Service {
	return &Service{
		log:         log,
		repo:        repo,
		settings:    stngs,
		controller:  controller,
		state:       state,
		secretsFile: secretsFile,
		cooldown:    cooldown,
		now:         time.Now,
	}
}

// Sync приводит файл секретов к набору активных прокси. При выключенном
// фичефлаге или пустом наборе служба останавливается, а файл очищается.
// Если файл изменился, служба перезапускается; перезапуск раньше, чем
// через cooldown после предыдущего, откладывается для наблюдателя.
func (s *Service) Sync(ctx context.Context) error {
	const op = "secretsync.Sync"

	s.mu.Lock()
	defer s.mu.Unlock()

	enabled, err := s.settings.Bool(ctx, settings.KeyMTProtoEnabled, false)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var desired []string
	if enabled {
		desired, err = s.collectSecrets(ctx)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if len(desired) == 0 {
		return s.shutdown(ctx)
	}

	// Текущий файл нормализуется перед сравнением: правленный руками,
	// но совпадающий по набору секретов файл не повод перезапускать службу
	if slicesEqual(desired, normalizeContent(s.readFile())) {
		return nil
	}
	content := strings.Join(desired, "\n") + "\n"

	if err := os.WriteFile(s.secretsFile, []byte(content), 0o644); err != nil {
		return fmt.Errorf("%s: write secrets file: %w", op, err)
	}
	s.log.Info("secrets file updated", slog.Int("secrets", len(desired)))

	s.restart(ctx)
	return nil
}

// collectSecrets собирает секреты активных прокси, лениво генерируя
// недостающие, и нормализует список: пустые отбрасываются, дубликаты
// схлопываются, порядок детерминированный.
func (s *Service) collectSecrets(ctx context.Context) ([]string, error) {
	proxies, err := s.repo.ListActiveProxies(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(proxies))
	var result []string
	for _, proxy := range proxies {
		secret := strings.TrimSpace(proxy.MTProtoSecret)
		if secret == "" {
			secret, err = secrets.GenerateMTProtoSecret()
			if err != nil {
				return nil, err
			}
			if err := s.repo.UpdateProxyMTProtoSecret(ctx, proxy.ID, secret); err != nil {
				s.log.Error("failed to persist generated secret",
					sl.Err(err), slog.Int64("proxy_id", proxy.ID))
				continue
			}
		}
		if _, ok := seen[secret]; ok {
			continue
		}
		seen[secret] = struct{}{}
		result = append(result, secret)
	}
	sort.Strings(result)
	return result, nil
}

// shutdown гасит службу: очищает непустой файл, останавливает службу и
// снимает отложенный перезапуск, чтобы наблюдатель не поднял её обратно.
// Стоп шлётся и при уже пустом файле, остановка остановленного — no-op.
func (s *Service) shutdown(ctx context.Context) error {
	const op = "secretsync.shutdown"

	if s.readFile() != "" {
		if err := os.WriteFile(s.secretsFile, nil, 0o644); err != nil {
			return fmt.Errorf("%s: clear secrets file: %w", op, err)
		}
		s.log.Info("mtproto disabled, secrets file cleared")
	}

	if err := s.controller.Stop(ctx); err != nil {
		s.log.Error("failed to stop mtproto service", sl.Err(err))
	}
	s.state.ClearDeferred()
	return nil
}

func (s *Service) restart(ctx context.Context) {
	if !s.state.TryRestart(s.now(), s.cooldown) {
		metrics.RestartsDeferredTotal.Inc()
		s.log.Info("restart deferred until cooldown expires")
		return
	}
	if err := s.controller.Restart(ctx); err != nil {
		s.log.Error("failed to restart mtproto service", sl.Err(err))
		return
	}
	metrics.ServiceRestartsTotal.WithLabelValues("sync").Inc()
	s.log.Info("mtproto service restarted")
}

func (s *Service) readFile() string {
	data, err := os.ReadFile(s.secretsFile)
	if err != nil {
		return ""
	}
	return string(data)
}

// normalizeContent приводит содержимое файла к каноническому виду набора
// секретов: по строке на секрет, без пустых, без дубликатов, по порядку.
func normalizeContent(content string) []string {
	seen := make(map[string]struct{})
	var result []string
	for _, line := range strings.Split(content, "\n") {
		secret := strings.TrimSpace(line)
		if secret == "" {
			continue
		}
		if _, ok := seen[secret]; ok {
			continue
		}
		seen[secret] = struct{}{}
		result = append(result, secret)
	}
	sort.Strings(result)
	return result
}

func slicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
