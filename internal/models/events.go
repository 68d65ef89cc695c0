package models

// События, публикуемые в очередь уведомлений. Доставка best-effort:
// ошибка публикации логируется и не влияет на транзакцию, породившую событие.

// ProxyDisabledEvent — прокси отключён за недостаток средств.
type ProxyDisabledEvent struct {
	UserID  int64  `json:"user_id"`
	ProxyID int64  `json:"proxy_id"`
	Login   string `json:"login"`
}

// ProxyRestoredEvent — прокси восстановлен после пополнения баланса.
type ProxyRestoredEvent struct {
	UserID  int64  `json:"user_id"`
	ProxyID int64  `json:"proxy_id"`
	Login   string `json:"login"`
}

// LowBalanceEvent — предупреждение о низком балансе.
type LowBalanceEvent struct {
	UserID      int64  `json:"user_id"`
	Balance     int64  `json:"balance"`
	Required    int64  `json:"required"`
	ActiveCount int    `json:"active_count"`
	Level       string `json:"level"`
}

// PaymentSettledEvent — платёж переведён в терминальный статус.
type PaymentSettledEvent struct {
	UserID    int64  `json:"user_id"`
	PaymentID int64  `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

// ServiceAlertEvent — алерт наблюдателя за состоянием прокси-сервиса.
type ServiceAlertEvent struct {
	Service string `json:"service"`
	State   string `json:"state"`
}
