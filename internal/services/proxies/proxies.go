// Package proxies управляет жизненным циклом прокси: выдача новых
// креденшилов, ротация пароля и удаление. Учётные записи на узле
// заводит и отзывает провайдер, хранилище остаётся источником истины.
package proxies

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/proxy-manager/internal/lib/secrets"
	"github.com/magabrotheeeer/proxy-manager/internal/lib/sl"
	"github.com/magabrotheeeer/proxy-manager/internal/metrics"
	"github.com/magabrotheeeer/proxy-manager/internal/models"
)

// ErrProxyDeleted возвращается при операции над удалённым прокси.
var ErrProxyDeleted = errors.New("proxy is deleted")

// ProxyRepository описывает операции хранилища для жизненного цикла прокси.
type ProxyRepository interface {
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	CreateProxy(ctx context.Context, userID int64, login, password, ip string, port int) (int64, error)
	GetProxy(ctx context.Context, proxyID int64) (*models.Proxy, error)
	UpdateProxyPassword(ctx context.Context, proxyID int64, newPassword string) error
	MarkProxyDeleted(ctx context.Context, proxyID int64) error
}

// Provisioner управляет учётными записями на прокси-узле.
type Provisioner interface {
	Provision(ctx context.Context, login, password string) (host string, port int, err error)
	RotatePassword(ctx context.Context, login, password string) error
	Revoke(ctx context.Context, login string) error
}

// SecretSyncer синхронизирует набор MTProto-секретов после изменения
// состава активных прокси.
type SecretSyncer interface {
	Sync(ctx context.Context) error
}

// Result — выданный прокси со ссылкой на подключение.
type Result struct {
	ProxyID  int64
	Login    string
	Password string
	IP       string
	Port     int
	Link     string
}

// Service реализует операции жизненного цикла прокси.
type Service struct {
	log      *slog.Logger
	repo     ProxyRepository
	provider Provisioner
	syncer   SecretSyncer
}

// New создает новый экземпляр Service. syncer может быть nil.
func New(log *slog.Logger, repo ProxyRepository, provider Provisioner, syncer SecretSyncer) *Service {
	return &Service{
		log:      log,
		repo:     repo,
		provider: provider,
		syncer:   syncer,
	}
}

// Create выдаёт пользователю новый прокси: генерирует креденшилы, заводит
// учётную запись на узле и сохраняет запись в хранилище. Если хранилище
// отказало после успешного Provision, учётная запись отзывается.
func (s *Service) Create(ctx context.Context, userID int64) (*Result, error) {
	const op = "proxies.Create"

	if _, err := s.repo.GetUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	login, err := secrets.GenerateLogin()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	password, err := secrets.GeneratePassword()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	host, port, err := s.provider.Provision(ctx, login, password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	proxyID, err := s.repo.CreateProxy(ctx, userID, login, password, host, port)
	if err != nil {
		if revokeErr := s.provider.Revoke(ctx, login); revokeErr != nil {
			s.log.Error("failed to revoke orphaned account",
				sl.Err(revokeErr), slog.String("login", login))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("proxy provisioned",
		slog.Int64("proxy_id", proxyID),
		slog.Int64("user_id", userID),
		slog.String("login", login))
	metrics.ProxiesProvisionedTotal.Inc()

	s.syncSecrets(ctx)

	return &Result{
		ProxyID:  proxyID,
		Login:    login,
		Password: password,
		IP:       host,
		Port:     port,
		Link:     secrets.BuildProxyLink(host, port, login, password),
	}, nil
}

// RotatePassword меняет пароль прокси на узле и в хранилище,
// возвращает новый пароль.
func (s *Service) RotatePassword(ctx context.Context, proxyID int64) (string, error) {
	const op = "proxies.RotatePassword"

	proxy, err := s.repo.GetProxy(ctx, proxyID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if proxy.Status == models.ProxyStatusDeleted {
		return "", fmt.Errorf("%s: %w", op, ErrProxyDeleted)
	}

	newPassword, err := secrets.GeneratePassword()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err = s.provider.RotatePassword(ctx, proxy.Login, newPassword); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err = s.repo.UpdateProxyPassword(ctx, proxyID, newPassword); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("proxy password rotated",
		slog.Int64("proxy_id", proxyID),
		slog.String("login", proxy.Login))
	return newPassword, nil
}

// Delete отзывает учётную запись на узле и помечает прокси удалённым.
// Повторный вызов для уже удалённого прокси — no-op.
func (s *Service) Delete(ctx context.Context, proxyID int64) error {
	const op = "proxies.Delete"

	proxy, err := s.repo.GetProxy(ctx, proxyID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if proxy.Status == models.ProxyStatusDeleted {
		return nil
	}

	if err = s.provider.Revoke(ctx, proxy.Login); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = s.repo.MarkProxyDeleted(ctx, proxyID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("proxy deleted",
		slog.Int64("proxy_id", proxyID),
		slog.String("login", proxy.Login))

	s.syncSecrets(ctx)
	return nil
}

func (s *Service) syncSecrets(ctx context.Context) {
	if s.syncer == nil {
		return
	}
	if err := s.syncer.Sync(ctx); err != nil {
		s.log.Error("secret sync after proxy change failed", sl.Err(err))
	}
}
