// Package settlement переводит платежи в терминальные статусы по двум
// каналам: входящим уведомлениям провайдера и периодическому опросу
// статусов зависших платежей. Успешный платёж зачисляет баланс ровно
// один раз и запускает восстановление прокси владельца.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/magabrotheeeer/proxy-manager/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/proxy-manager/internal/lib/sl"
	"github.com/magabrotheeeer/proxy-manager/internal/metrics"
	"github.com/magabrotheeeer/proxy-manager/internal/models"
	"github.com/magabrotheeeer/proxy-manager/internal/paymentprovider"
	"github.com/magabrotheeeer/proxy-manager/internal/storage/repository"
)

// За один проход сверки обрабатывается не больше этого числа платежей.
const reconcileBatchLimit = 100

// Ошибки обработки уведомления. По ним обработчик HTTP выбирает код ответа.
var (
	ErrBadNotification  = errors.New("notification rejected")
	ErrUnknownPayment   = errors.New("unknown payment")
	ErrAmountMismatch   = errors.New("notification amount mismatch")
	ErrPaymentFinalized = errors.New("payment already in a terminal status")
)

// SettlementRepository описывает операции хранилища платежей.
type SettlementRepository interface {
	GetPayment(ctx context.Context, paymentID int64) (*models.Payment, error)
	ListPendingPayments(ctx context.Context, limit int) ([]*models.Payment, error)
	MarkPaymentPaid(ctx context.Context, paymentID int64, providerPaymentID string) (bool, error)
	UpdatePaymentStatusIfPending(ctx context.Context, paymentID int64, status, providerPaymentID string) (bool, error)
}

// StatusClient запрашивает статус заказа у провайдера.
type StatusClient interface {
	GetOrderStatus(ctx context.Context, paymentID int64) (map[string]any, error)
}

// Restorer восстанавливает отключённые прокси после пополнения.
type Restorer interface {
	RestoreForUser(ctx context.Context, userID int64) ([]*models.Proxy, error)
}

// SecretSyncer синхронизирует секреты после восстановления прокси.
type SecretSyncer interface {
	Sync(ctx context.Context) error
}

// EventPublisher публикует доменные события. Доставка best-effort.
type EventPublisher interface {
	Publish(routingKey string, message any) error
}

// Config — параметры проверки уведомлений.
type Config struct {
	ShopID            string  // Идентификатор магазина у провайдера
	SecretWord2       string  // Секрет подписи уведомлений
	FeePercent        float64 // Комиссия провайдера, добавляемая к сумме
	StrictAmountCheck bool    // Требовать точного совпадения суммы
}

// Service реализует зачёт платежей.
type Service struct {
	log       *slog.Logger
	repo      SettlementRepository
	client    StatusClient
	restorer  Restorer
	syncer    SecretSyncer
	publisher EventPublisher
	cfg       Config
}

// New создает новый экземпляр Service. client, restorer, syncer и
// publisher могут быть nil.
func New(log *slog.Logger, repo SettlementRepository, client StatusClient,
	restorer Restorer, syncer SecretSyncer, publisher EventPublisher,
	cfg Config) *Service {
	return &Service{
		log:       log,
		repo:      repo,
		client:    client,
		restorer:  restorer,
		syncer:    syncer,
		publisher: publisher,
		cfg:       cfg,
	}
}

// HandleNotification обрабатывает входящее уведомление провайдера.
// Уведомление о уже оплаченном платеже — успех без побочных эффектов:
// провайдер перестаёт ретраить. Любая ошибка аутентификации не меняет
// состояние платежа.
func (s *Service) HandleNotification(ctx context.Context, data map[string]string) error {
	const op = "settlement.HandleNotification"

	n := paymentprovider.ParseNotification(data)
	if err := paymentprovider.VerifyNotification(n, s.cfg.ShopID, s.cfg.SecretWord2); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrBadNotification, err)
	}

	paymentID, err := strconv.ParseInt(n.MerchantOrderID, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: %w: bad order id %q", op, ErrBadNotification, n.MerchantOrderID)
	}

	payment, err := s.repo.GetPayment(ctx, paymentID)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return fmt.Errorf("%s: %w: %d", op, ErrUnknownPayment, paymentID)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if payment.Status == models.PaymentStatusPaid {
		s.log.Info("duplicate notification for paid payment",
			slog.Int64("payment_id", paymentID))
		return nil
	}
	if payment.IsTerminal() {
		return fmt.Errorf("%s: %w: %d is %s", op, ErrPaymentFinalized, paymentID, payment.Status)
	}

	fee := s.cfg.FeePercent
	if s.cfg.StrictAmountCheck {
		fee = 0
	}
	if !paymentprovider.AmountMatches(payment.Amount, n.Amount, fee) {
		s.settleRejected(ctx, payment, models.PaymentStatusFailed, n.IntID)
		return fmt.Errorf("%s: %w: payment %d expected %d got %q",
			op, ErrAmountMismatch, paymentID, payment.Amount, n.Amount)
	}

	return s.settlePaid(ctx, payment, n.IntID)
}

// Run выполняет сверку сразу и далее по интервалу, до отмены контекста.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	if err := s.ReconcileOnce(ctx); err != nil {
		s.log.Error("reconcile failed", sl.Err(err))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.ReconcileOnce(ctx); err != nil {
				s.log.Error("reconcile failed", sl.Err(err))
			}
		}
	}
}

// ReconcileOnce опрашивает провайдера по пачке зависших платежей и
// применяет те же правила переходов, что и для уведомлений. Сбой на
// одном платеже не прерывает обработку остальных.
func (s *Service) ReconcileOnce(ctx context.Context) error {
	const op = "settlement.ReconcileOnce"

	if s.client == nil {
		return nil
	}

	pending, err := s.repo.ListPendingPayments(ctx, reconcileBatchLimit)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for _, payment := range pending {
		if err := s.reconcilePayment(ctx, payment); err != nil {
			s.log.Error("failed to reconcile payment",
				sl.Err(err), slog.Int64("payment_id", payment.ID))
		}
	}
	return nil
}

func (s *Service) reconcilePayment(ctx context.Context, payment *models.Payment) error {
	raw, err := s.client.GetOrderStatus(ctx, payment.ID)
	if err != nil {
		return err
	}

	switch paymentprovider.ClassifyStatus(raw) {
	case paymentprovider.StatusPaid:
		return s.settlePaid(ctx, payment, providerOrderID(raw))
	case paymentprovider.StatusCanceled:
		s.settleRejected(ctx, payment, models.PaymentStatusCanceled, providerOrderID(raw))
	case paymentprovider.StatusFailed:
		s.settleRejected(ctx, payment, models.PaymentStatusFailed, providerOrderID(raw))
	default:
		// Платёж ещё в обработке или статус не распознан: трогать нельзя.
	}
	return nil
}

// settlePaid выполняет переход pending→paid с зачислением суммы, затем
// восстанавливает прокси владельца. Проигранная гонка за переход —
// успех: кто-то уже зачислил этот платёж.
func (s *Service) settlePaid(ctx context.Context, payment *models.Payment, providerID string) error {
	const op = "settlement.settlePaid"

	credited, err := s.repo.MarkPaymentPaid(ctx, payment.ID, providerID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !credited {
		return nil
	}

	metrics.PaymentsSettledTotal.WithLabelValues(models.PaymentStatusPaid).Inc()
	s.log.Info("payment settled",
		slog.Int64("payment_id", payment.ID),
		slog.Int64("user_id", payment.UserID),
		slog.Int64("amount", payment.Amount))
	s.publish(payment, models.PaymentStatusPaid)

	if s.restorer == nil {
		return nil
	}
	restored, err := s.restorer.RestoreForUser(ctx, payment.UserID)
	if err != nil {
		s.log.Error("failed to restore proxies after payment", sl.Err(err))
		return nil
	}
	if len(restored) > 0 && s.syncer != nil {
		if err := s.syncer.Sync(ctx); err != nil {
			s.log.Error("secret sync after restore failed", sl.Err(err))
		}
	}
	return nil
}

// settleRejected переводит платёж в failed или canceled, если он всё ещё
// pending. Повторный перевод в тот же статус — безопасный no-op.
func (s *Service) settleRejected(ctx context.Context, payment *models.Payment, status, providerID string) {
	updated, err := s.repo.UpdatePaymentStatusIfPending(ctx, payment.ID, status, providerID)
	if err != nil {
		s.log.Error("failed to update payment status",
			sl.Err(err), slog.Int64("payment_id", payment.ID))
		return
	}
	if !updated {
		return
	}
	metrics.PaymentsSettledTotal.WithLabelValues(status).Inc()
	s.log.Info("payment rejected",
		slog.Int64("payment_id", payment.ID),
		slog.String("status", status))
	s.publish(payment, status)
}

func (s *Service) publish(payment *models.Payment, status string) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.Publish(rabbitmq.KeyPaymentSettled, models.PaymentSettledEvent{
		UserID:    payment.UserID,
		PaymentID: payment.ID,
		Amount:    payment.Amount,
		Status:    status,
	})
	if err != nil {
		s.log.Error("failed to publish settlement event", sl.Err(err))
	}
}

func providerOrderID(raw map[string]any) string {
	for _, key := range []string{"intid", "id", "orderId"} {
		switch v := raw[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatInt(int64(v), 10)
		}
	}
	if orders, ok := raw["orders"].([]any); ok && len(orders) > 0 {
		if inner, ok := orders[0].(map[string]any); ok {
			return providerOrderID(inner)
		}
	}
	return ""
}
