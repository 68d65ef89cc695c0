package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/proxy-manager/internal/models"
)

func scanProxy(row interface{ Scan(...any) error }) (*models.Proxy, error) {
	p := &models.Proxy{}
	var secret sql.NullString
	var lastBilledOn, deletedAt sql.NullTime
	if err := row.Scan(&p.ID, &p.UserID, &p.Login, &p.Password, &p.IP, &p.Port,
		&p.Status, &secret, &lastBilledOn, &p.CreatedAt, &deletedAt); err != nil {
		return nil, err
	}
	if secret.Valid {
		p.MTProtoSecret = secret.String
	}
	if lastBilledOn.Valid {
		p.LastBilledOn = &lastBilledOn.Time
	}
	if deletedAt.Valid {
		p.DeletedAt = &deletedAt.Time
	}
	return p, nil
}

const proxyColumns = `id, user_id, login, password, ip, port, status,
			      mtproto_secret, last_billed_on, created_at, deleted_at`

// CreateProxy сохраняет выданные пользователю креденшилы и возвращает
// идентификатор записи. Прокси создаётся активным.
func (s *Storage) CreateProxy(ctx context.Context, userID int64, login, password, ip string, port int) (int64, error) {
	const op = "storage.CreateProxy"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var id int64
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO proxies (user_id, login, password, ip, port, status)
		 VALUES ($1, $2, $3, $4, $5, 'active')
		 RETURNING id`,
		userID, login, password, ip, port).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// GetProxy возвращает прокси по идентификатору.
func (s *Storage) GetProxy(ctx context.Context, proxyID int64) (*models.Proxy, error) {
	const op = "storage.GetProxy"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	row := s.DB.QueryRowContext(ctx,
		`SELECT `+proxyColumns+` FROM proxies WHERE id = $1`, proxyID)
	p, err := scanProxy(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrProxyNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// ListActiveProxiesForBilling возвращает все активные прокси вместе с данными
// владельца: балансом, флагами блокировки/удаления и датой последнего
// предупреждения. Выборка для одного цикла биллинга.
func (s *Storage) ListActiveProxiesForBilling(ctx context.Context) ([]*models.BillingProxy, error) {
	const op = "storage.ListActiveProxiesForBilling"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT p.id, p.user_id, p.login, p.password, p.ip, p.port, p.status,
			      p.mtproto_secret, p.last_billed_on, p.created_at, p.deleted_at,
			      u.balance, u.blocked_at IS NOT NULL, u.deleted_at IS NOT NULL,
			      u.last_low_balance_warn_on
			  FROM proxies p
			  JOIN users u ON u.id = p.user_id
			  WHERE p.status = 'active' AND p.deleted_at IS NULL
			  ORDER BY p.user_id, p.id`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.BillingProxy
	for rows.Next() {
		bp := &models.BillingProxy{}
		var secret sql.NullString
		var lastBilledOn, deletedAt, warnOn sql.NullTime
		if err := rows.Scan(&bp.ID, &bp.UserID, &bp.Login, &bp.Password, &bp.IP, &bp.Port,
			&bp.Status, &secret, &lastBilledOn, &bp.CreatedAt, &deletedAt,
			&bp.UserBalance, &bp.UserBlocked, &bp.UserDeleted, &warnOn); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if secret.Valid {
			bp.MTProtoSecret = secret.String
		}
		if lastBilledOn.Valid {
			bp.LastBilledOn = &lastBilledOn.Time
		}
		if deletedAt.Valid {
			bp.DeletedAt = &deletedAt.Time
		}
		if warnOn.Valid {
			bp.UserWarnOn = &warnOn.Time
		}
		result = append(result, bp)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ChargeProxyForDay списывает суточную цену и отмечает дату списания одним
// запросом. Списание происходит только если прокси ещё не оплачен за этот
// день и баланса владельца достаточно; иначе запрос не меняет ни одной
// строки. Возвращает true, если списание состоялось.
func (s *Storage) ChargeProxyForDay(ctx context.Context, proxyID, userID int64, price int64, day time.Time) (bool, error) {
	const op = "storage.ChargeProxyForDay"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `WITH charged AS (
			      UPDATE proxies SET last_billed_on = $4
			      WHERE id = $1 AND status = 'active' AND deleted_at IS NULL
			        AND (last_billed_on IS NULL OR last_billed_on <> $4)
			        AND EXISTS (
			            SELECT 1 FROM users
			            WHERE id = $2 AND balance >= $3
			              AND blocked_at IS NULL AND deleted_at IS NULL)
			      RETURNING user_id
			  )
			  UPDATE users SET balance = balance - $3
			  WHERE id IN (SELECT user_id FROM charged)`
	res, err := s.DB.ExecContext(ctx, query, proxyID, userID, price, day)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return affected > 0, nil
}

// DisableProxyForDay отключает прокси за недостаток средств и отмечает дату
// списания, чтобы попытка не повторялась в тот же день. Возвращает true,
// если отключение состоялось именно в этом вызове.
func (s *Storage) DisableProxyForDay(ctx context.Context, proxyID int64, day time.Time) (bool, error) {
	const op = "storage.DisableProxyForDay"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE proxies SET status = 'disabled', last_billed_on = $2
		 WHERE id = $1 AND status = 'active' AND deleted_at IS NULL
		   AND (last_billed_on IS NULL OR last_billed_on <> $2)`,
		proxyID, day)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return affected > 0, nil
}

// DisableProxy отключает прокси без отметки даты списания — для случаев,
// когда владелец заблокирован или удалён.
func (s *Storage) DisableProxy(ctx context.Context, proxyID int64) (bool, error) {
	const op = "storage.DisableProxy"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE proxies SET status = 'disabled'
		 WHERE id = $1 AND status = 'active' AND deleted_at IS NULL`, proxyID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return affected > 0, nil
}

// ReenableProxy возвращает отключённый прокси в строй и отмечает дату
// списания, чтобы биллинг не отключил его повторно в тот же день.
func (s *Storage) ReenableProxy(ctx context.Context, proxyID int64, day time.Time) (bool, error) {
	const op = "storage.ReenableProxy"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE proxies SET status = 'active', last_billed_on = $2
		 WHERE id = $1 AND status = 'disabled' AND deleted_at IS NULL`,
		proxyID, day)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return affected > 0, nil
}

// ListDisabledProxies возвращает отключённые (не удалённые) прокси
// пользователя, старейшие по дате создания первыми.
func (s *Storage) ListDisabledProxies(ctx context.Context, userID int64, limit int) ([]*models.Proxy, error) {
	const op = "storage.ListDisabledProxies"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + proxyColumns + `
			  FROM proxies
			  WHERE user_id = $1 AND status = 'disabled' AND deleted_at IS NULL
			  ORDER BY created_at ASC, id ASC
			  LIMIT $2`
	rows, err := s.DB.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Proxy
	for rows.Next() {
		p, err := scanProxy(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CountActiveProxies возвращает количество активных прокси пользователя.
func (s *Storage) CountActiveProxies(ctx context.Context, userID int64) (int, error) {
	const op = "storage.CountActiveProxies"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var count int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM proxies
		 WHERE user_id = $1 AND status = 'active' AND deleted_at IS NULL`,
		userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// ListActiveProxies возвращает все активные (не удалённые) прокси.
func (s *Storage) ListActiveProxies(ctx context.Context) ([]*models.Proxy, error) {
	const op = "storage.ListActiveProxies"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + proxyColumns + `
			  FROM proxies
			  WHERE status = 'active' AND deleted_at IS NULL
			  ORDER BY id`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Proxy
	for rows.Next() {
		p, err := scanProxy(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// UpdateProxyMTProtoSecret сохраняет сгенерированный MTProto-секрет.
// Секрет назначается один раз: уже назначенное значение не перезаписывается.
func (s *Storage) UpdateProxyMTProtoSecret(ctx context.Context, proxyID int64, secret string) error {
	const op = "storage.UpdateProxyMTProtoSecret"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	_, err := s.DB.ExecContext(ctx,
		`UPDATE proxies SET mtproto_secret = $2
		 WHERE id = $1 AND (mtproto_secret IS NULL OR mtproto_secret = '')`,
		proxyID, secret)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdateProxyPassword сохраняет новый пароль после ротации.
func (s *Storage) UpdateProxyPassword(ctx context.Context, proxyID int64, newPassword string) error {
	const op = "storage.UpdateProxyPassword"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	_, err := s.DB.ExecContext(ctx,
		`UPDATE proxies SET password = $2 WHERE id = $1`, proxyID, newPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// MarkProxyDeleted помечает прокси удалённым. Статус терминальный:
// прокси навсегда выбывает из биллинга и из набора секретов.
func (s *Storage) MarkProxyDeleted(ctx context.Context, proxyID int64) error {
	const op = "storage.MarkProxyDeleted"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	_, err := s.DB.ExecContext(ctx,
		`UPDATE proxies SET status = 'deleted', deleted_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL`, proxyID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
