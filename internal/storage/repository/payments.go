package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/proxy-manager/internal/models"
)

func scanPayment(row interface{ Scan(...any) error }) (*models.Payment, error) {
	p := &models.Payment{}
	var providerID, payload sql.NullString
	if err := row.Scan(&p.ID, &p.UserID, &p.Amount, &p.Status,
		&providerID, &payload, &p.CreatedAt); err != nil {
		return nil, err
	}
	if providerID.Valid {
		p.ProviderPaymentID = providerID.String
	}
	if payload.Valid {
		p.Payload = payload.String
	}
	return p, nil
}

const paymentColumns = `id, user_id, amount, status, provider_payment_id, payload, created_at`

// CreatePayment сохраняет новый платёж в статусе pending и возвращает его ID.
func (s *Storage) CreatePayment(ctx context.Context, userID int64, amount int64, payload string) (int64, error) {
	const op = "storage.CreatePayment"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newID int64
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO payments (user_id, amount, status, payload)
		 VALUES ($1, $2, 'pending', $3) RETURNING id`,
		userID, amount, payload).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetPayment возвращает платёж по идентификатору.
func (s *Storage) GetPayment(ctx context.Context, paymentID int64) (*models.Payment, error) {
	const op = "storage.GetPayment"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	row := s.DB.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, paymentID)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrPaymentNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// ListPendingPayments возвращает платёжи в статусе pending, не больше limit,
// старейшие первыми — батч для сверки с провайдером.
func (s *Storage) ListPendingPayments(ctx context.Context, limit int) ([]*models.Payment, error) {
	const op = "storage.ListPendingPayments"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + paymentColumns + `
			  FROM payments
			  WHERE status = 'pending'
			  ORDER BY id ASC
			  LIMIT $1`
	rows, err := s.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
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

// MarkPaymentPaid переводит платёж pending -> paid и зачисляет сумму на
// баланс пользователя одним запросом. Условие по статусу гарантирует,
// что при гонке вебхука и сверки зачисление произойдёт ровно один раз.
// Возвращает true, если переход и зачисление состоялись в этом вызове.
func (s *Storage) MarkPaymentPaid(ctx context.Context, paymentID int64, providerPaymentID string) (bool, error) {
	const op = "storage.MarkPaymentPaid"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `WITH paid AS (
			      UPDATE payments
			      SET status = 'paid',
			          provider_payment_id = COALESCE(NULLIF($2, ''), provider_payment_id)
			      WHERE id = $1 AND status = 'pending'
			      RETURNING user_id, amount
			  )
			  UPDATE users SET balance = balance + paid.amount
			  FROM paid
			  WHERE users.id = paid.user_id`
	res, err := s.DB.ExecContext(ctx, query, paymentID, providerPaymentID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return affected > 0, nil
}

// UpdatePaymentStatusIfPending переводит платёж из pending в указанный
// статус (failed или canceled). Терминальные статусы не перезаписываются.
func (s *Storage) UpdatePaymentStatusIfPending(ctx context.Context, paymentID int64, status, providerPaymentID string) (bool, error) {
	const op = "storage.UpdatePaymentStatusIfPending"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE payments
		 SET status = $2,
		     provider_payment_id = COALESCE(NULLIF($3, ''), provider_payment_id)
		 WHERE id = $1 AND status = 'pending'`,
		paymentID, status, providerPaymentID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return affected > 0, nil
}
