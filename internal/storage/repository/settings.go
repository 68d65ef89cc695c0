package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetSetting возвращает значение настройки или default, если ключа нет.
func (s *Storage) GetSetting(ctx context.Context, key, defaultValue string) (string, error) {
	const op = "storage.GetSetting"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var value string
	err := s.DB.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return defaultValue, nil
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return value, nil
}

// SetSetting сохраняет значение настройки, перезаписывая существующее.
func (s *Storage) SetSetting(ctx context.Context, key, value string) error {
	const op = "storage.SetSetting"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO settings(key, value) VALUES($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
