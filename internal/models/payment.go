package models

import "time"

// Статусы платежа. Переход paid/failed/canceled терминален,
// в paid можно попасть только из pending.
const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusCanceled = "canceled"
)

// Payment представляет платёж на пополнение баланса.
type Payment struct {
	ID                int64     // Уникальный идентификатор платежа (он же MERCHANT_ORDER_ID у провайдера)
	UserID            int64     // Пользователь, чей баланс пополняется
	Amount            int64     // Сумма в целых единицах валюты, строго положительная
	Status            string    // pending, paid, failed или canceled
	ProviderPaymentID string    // Идентификатор платежа на стороне провайдера (пустой, пока провайдер его не сообщил)
	Payload           string    // Произвольные данные платежа
	CreatedAt         time.Time // Дата создания
}

// IsTerminal сообщает, находится ли платёж в терминальном статусе.
func (p *Payment) IsTerminal() bool {
	return p.Status == PaymentStatusPaid ||
		p.Status == PaymentStatusFailed ||
		p.Status == PaymentStatusCanceled
}
