package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/proxy-manager/internal/models"
)

// GetUser возвращает пользователя по его идентификатору.
func (s *Storage) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, COALESCE(username, ''), balance, last_low_balance_warn_on,
			      created_at, blocked_at, deleted_at
			  FROM users
			  WHERE id = $1`
	u := &models.User{}
	row := s.DB.QueryRowContext(ctx, query, userID)

	var warnOn, blockedAt, deletedAt sql.NullTime
	if err := row.Scan(&u.ID, &u.Username, &u.Balance, &warnOn,
		&u.CreatedAt, &blockedAt, &deletedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if warnOn.Valid {
		u.LastLowBalanceWarnOn = &warnOn.Time
	}
	if blockedAt.Valid {
		u.BlockedAt = &blockedAt.Time
	}
	if deletedAt.Valid {
		u.DeletedAt = &deletedAt.Time
	}
	return u, nil
}

// AddUserBalance атомарно изменяет баланс пользователя на дельту.
func (s *Storage) AddUserBalance(ctx context.Context, userID int64, delta int64) error {
	const op = "storage.AddUserBalance"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE users SET balance = balance + $1 WHERE id = $2`, delta, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}

// SetLowBalanceWarnDate отмечает дату последнего предупреждения о низком
// балансе. Возвращает false, если предупреждение за этот день уже было —
// так рассылка ограничивается одним предупреждением в сутки.
func (s *Storage) SetLowBalanceWarnDate(ctx context.Context, userID int64, day time.Time) (bool, error) {
	const op = "storage.SetLowBalanceWarnDate"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE users SET last_low_balance_warn_on = $1
		 WHERE id = $2 AND last_low_balance_warn_on IS DISTINCT FROM $1`,
		day, userID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return affected > 0, nil
}
