// Package topup создаёт платежи на пополнение баланса у провайдера и
// выполняет прямые зачисления администратором.
package topup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/proxy-manager/internal/lib/sl"
	"github.com/magabrotheeeer/proxy-manager/internal/models"
	"github.com/magabrotheeeer/proxy-manager/internal/paymentprovider"
)

// ErrBadAmount возвращается при неположительной сумме пополнения.
var ErrBadAmount = errors.New("topup amount must be positive")

// TopupRepository описывает операции хранилища для пополнений.
type TopupRepository interface {
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	CreatePayment(ctx context.Context, userID int64, amount int64, payload string) (int64, error)
	UpdatePaymentStatusIfPending(ctx context.Context, paymentID int64, status, providerPaymentID string) (bool, error)
	AddUserBalance(ctx context.Context, userID int64, delta int64) error
}

// OrderClient создаёт заказ у платёжного провайдера.
type OrderClient interface {
	CreateOrder(ctx context.Context, req paymentprovider.OrderRequest) (*paymentprovider.OrderResponse, error)
}

// Restorer восстанавливает отключённые прокси после зачисления.
type Restorer interface {
	RestoreForUser(ctx context.Context, userID int64) ([]*models.Proxy, error)
}

// SecretSyncer синхронизирует секреты после восстановления прокси.
type SecretSyncer interface {
	Sync(ctx context.Context) error
}

// Result — созданный платёж со ссылкой на оплату.
type Result struct {
	PaymentID   int64
	PaymentLink string
}

// Service реализует пополнения баланса.
type Service struct {
	log      *slog.Logger
	repo     TopupRepository
	client   OrderClient
	restorer Restorer
	syncer   SecretSyncer
}

// New создает новый экземпляр Service. restorer и syncer могут быть nil.
func New(log *slog.Logger, repo TopupRepository, client OrderClient,
	restorer Restorer, syncer SecretSyncer) *Service {
	return &Service{
		log:      log,
		repo:     repo,
		client:   client,
		restorer: restorer,
		syncer:   syncer,
	}
}

// Create регистрирует платёж и создаёт заказ у провайдера. Если провайдер
// заказ не принял, платёж сразу отменяется: сверке нечего опрашивать.
func (s *Service) Create(ctx context.Context, userID, amount int64, email, ip string) (*Result, error) {
	const op = "topup.Create"

	if amount <= 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrBadAmount)
	}
	if _, err := s.repo.GetUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	paymentID, err := s.repo.CreatePayment(ctx, userID, amount, "")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	order, err := s.client.CreateOrder(ctx, paymentprovider.OrderRequest{
		PaymentID: paymentID,
		Amount:    amount,
		Email:     email,
		IP:        ip,
	})
	if err != nil {
		if _, cancelErr := s.repo.UpdatePaymentStatusIfPending(ctx, paymentID,
			models.PaymentStatusCanceled, ""); cancelErr != nil {
			s.log.Error("failed to cancel unplaced payment",
				sl.Err(cancelErr), slog.Int64("payment_id", paymentID))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("payment created",
		slog.Int64("payment_id", paymentID),
		slog.Int64("user_id", userID),
		slog.Int64("amount", amount),
		slog.String("provider_order_id", order.OrderID))
	return &Result{PaymentID: paymentID, PaymentLink: order.PaymentLink}, nil
}

// Credit зачисляет сумму напрямую, минуя провайдера, и восстанавливает
// отключённые прокси пользователя. Используется администратором.
func (s *Service) Credit(ctx context.Context, userID, amount int64) error {
	const op = "topup.Credit"

	if amount <= 0 {
		return fmt.Errorf("%s: %w", op, ErrBadAmount)
	}
	if _, err := s.repo.GetUser(ctx, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.AddUserBalance(ctx, userID, amount); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("balance credited",
		slog.Int64("user_id", userID),
		slog.Int64("amount", amount))

	if s.restorer == nil {
		return nil
	}
	restored, err := s.restorer.RestoreForUser(ctx, userID)
	if err != nil {
		s.log.Error("failed to restore proxies after credit", sl.Err(err))
		return nil
	}
	if len(restored) > 0 && s.syncer != nil {
		if err := s.syncer.Sync(ctx); err != nil {
			s.log.Error("secret sync after credit failed", sl.Err(err))
		}
	}
	return nil
}
