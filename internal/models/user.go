// Package models содержит доменные структуры сервиса аренды прокси:
// пользователей с денежным балансом, прокси с жизненным циклом и платежи.
// Структуры используются в бизнес‑логике и при работе с хранилищем.
package models

import "time"

// User представляет пользователя с денежным балансом.
// Баланс хранится в целых единицах валюты и изменяется
// только атомарными дельтами на уровне хранилища.
type User struct {
	ID                   int64      // Уникальный идентификатор пользователя
	Username             string     // Имя пользователя (для уведомлений)
	Balance              int64      // Текущий баланс в целых единицах валюты
	LastLowBalanceWarnOn *time.Time // Дата последнего предупреждения о низком балансе (UTC-дата)
	CreatedAt            time.Time  // Дата регистрации
	BlockedAt            *time.Time // Дата блокировки (nil — не заблокирован)
	DeletedAt            *time.Time // Дата удаления (nil — не удалён)
}

// IsBlocked сообщает, заблокирован ли пользователь.
func (u *User) IsBlocked() bool { return u.BlockedAt != nil }

// IsDeleted сообщает, удалён ли пользователь.
func (u *User) IsDeleted() bool { return u.DeletedAt != nil }
