// Package proxyprovider отвечает за учётные записи на прокси-узле:
// создание, смену пароля и отключение. Реализация либо заглушка для
// разработки, либо обёртка над командами администрирования узла.
package proxyprovider

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/magabrotheeeer/proxy-manager/internal/config"
)

// Provider управляет учётными записями прокси на узле.
type Provider interface {
	Provision(ctx context.Context, login, password string) (host string, port int, err error)
	RotatePassword(ctx context.Context, login, password string) error
	Revoke(ctx context.Context, login string) error
}

// New выбирает реализацию по конфигурации.
func New(cfg config.ProxyProvider) (Provider, error) {
	switch cfg.Provider {
	case "", "mock":
		return NewMock(cfg.DefaultIP, cfg.DefaultPort), nil
	case "command":
		return NewCommand(cfg), nil
	default:
		return nil, fmt.Errorf("proxyprovider.New: unknown provider %q", cfg.Provider)
	}
}

// Mock — заглушка для разработки и тестов: ничего не делает на узле,
// возвращает настроенные адрес и порт.
type Mock struct {
	host string
	port int
}

// NewMock создаёт заглушку провайдера.
func NewMock(host string, port int) *Mock {
	if host == "" {
		host = "127.0.0.1"
	}
	if port == 0 {
		port = 1080
	}
	return &Mock{host: host, port: port}
}

// Provision возвращает адрес узла без каких-либо действий.
func (m *Mock) Provision(_ context.Context, _, _ string) (string, int, error) {
	return m.host, m.port, nil
}

// RotatePassword ничего не делает.
func (m *Mock) RotatePassword(_ context.Context, _, _ string) error { return nil }

// Revoke ничего не делает.
func (m *Mock) Revoke(_ context.Context, _ string) error { return nil }

// Command выполняет команды администрирования узла. В шаблонах команд
// подставляются {login} и {password}; каждая команда ограничена таймаутом.
type Command struct {
	host    string
	port    int
	create  string
	update  string
	disable string
	timeout time.Duration
}

// NewCommand создаёт провайдера поверх команд узла.
func NewCommand(cfg config.ProxyProvider) *Command {
	timeout := cfg.CmdTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Command{
		host:    cfg.DefaultIP,
		port:    cfg.DefaultPort,
		create:  cfg.CmdCreate,
		update:  cfg.CmdUpdatePassword,
		disable: cfg.CmdDisable,
		timeout: timeout,
	}
}

func (c *Command) run(ctx context.Context, template, login, password string) error {
	if template == "" {
		return nil
	}
	rendered := strings.NewReplacer(
		"{login}", login,
		"{password}", password,
	).Replace(template)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", rendered)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("command failed: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Provision создаёт учётную запись на узле и возвращает его адрес.
func (c *Command) Provision(ctx context.Context, login, password string) (string, int, error) {
	const op = "proxyprovider.Provision"

	if err := c.run(ctx, c.create, login, password); err != nil {
		return "", 0, fmt.Errorf("%s: %w", op, err)
	}
	return c.host, c.port, nil
}

// RotatePassword меняет пароль учётной записи на узле.
func (c *Command) RotatePassword(ctx context.Context, login, password string) error {
	const op = "proxyprovider.RotatePassword"

	if err := c.run(ctx, c.update, login, password); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Revoke отключает учётную запись на узле.
func (c *Command) Revoke(ctx context.Context, login string) error {
	const op = "proxyprovider.Revoke"

	if err := c.run(ctx, c.disable, login, ""); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
