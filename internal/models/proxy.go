package models

import "time"

// Статусы прокси. Переходы: active -> disabled (биллинг или блокировка
// владельца), disabled -> active (восстановление после пополнения),
// любой -> deleted (терминальный).
const (
	ProxyStatusActive   = "active"
	ProxyStatusDisabled = "disabled"
	ProxyStatusDeleted  = "deleted"
)

// Proxy представляет выданные пользователю прокси-креденшилы.
type Proxy struct {
	ID            int64      // Уникальный идентификатор прокси
	UserID        int64      // Владелец
	Login         string     // Логин (уникальный)
	Password      string     // Пароль доступа
	IP            string     // Адрес прокси-сервера
	Port          int        // Порт прокси-сервера
	Status        string     // active, disabled или deleted
	MTProtoSecret string     // Секрет для MTProto-прокси (может быть пустым до первой синхронизации)
	LastBilledOn  *time.Time // UTC-дата последнего списания
	CreatedAt     time.Time  // Дата создания
	DeletedAt     *time.Time // Дата удаления (nil — не удалён)
}

// BillingProxy — строка выборки для биллинга: прокси вместе с данными владельца.
type BillingProxy struct {
	Proxy
	UserBalance int64      // Баланс владельца на момент выборки
	UserBlocked bool       // Владелец заблокирован
	UserDeleted bool       // Владелец удалён
	UserWarnOn  *time.Time // Дата последнего предупреждения владельца о низком балансе
}
