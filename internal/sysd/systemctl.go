// Package sysd управляет системной службой mtproto-прокси через systemctl.
package sysd

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Controller выполняет команды управления службой. Все вызовы ограничены
// таймаутом: зависший systemctl не должен блокировать циклы служб.
type Controller struct {
	service string
	timeout time.Duration
}

// New создаёт контроллер для указанной службы.
func New(service string, timeout time.Duration) *Controller {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Controller{service: service, timeout: timeout}
}

func (c *Controller) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "systemctl", args...)
	output, err := cmd.CombinedOutput()
	return strings.TrimSpace(string(output)), err
}

// Start запускает службу.
func (c *Controller) Start(ctx context.Context) error {
	const op = "sysd.Start"

	if output, err := c.run(ctx, "start", c.service); err != nil {
		return fmt.Errorf("%s: %w: %s", op, err, output)
	}
	return nil
}

// Stop останавливает службу.
func (c *Controller) Stop(ctx context.Context) error {
	const op = "sysd.Stop"

	if output, err := c.run(ctx, "stop", c.service); err != nil {
		return fmt.Errorf("%s: %w: %s", op, err, output)
	}
	return nil
}

// Restart перезапускает службу.
func (c *Controller) Restart(ctx context.Context) error {
	const op = "sysd.Restart"

	if output, err := c.run(ctx, "restart", c.service); err != nil {
		return fmt.Errorf("%s: %w: %s", op, err, output)
	}
	return nil
}

// IsActive сообщает, активна ли служба. systemctl is-active возвращает
// ненулевой код для неактивной службы, это не ошибка вызова.
func (c *Controller) IsActive(ctx context.Context) (bool, error) {
	const op = "sysd.IsActive"

	output, err := c.run(ctx, "is-active", c.service)
	if output == "active" {
		return true, nil
	}
	if err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return false, nil
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return false, nil
}

// Logs возвращает последние строки журнала службы.
func (c *Controller) Logs(ctx context.Context, lines int) (string, error) {
	const op = "sysd.Logs"

	if lines <= 0 {
		lines = 50
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "journalctl",
		"-u", c.service, "-n", strconv.Itoa(lines), "--no-pager")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%s: %w: %s", op, err, strings.TrimSpace(string(output)))
	}
	return strings.TrimSpace(string(output)), nil
}
