// Package repository реализует хранилище данных на основе PostgreSQL
// для управления пользователями, прокси и платежами. Все изменяющие
// операции условные: строка меняется только из ожидаемого состояния,
// поэтому конкурентные запуски биллинга и обработки платежей безопасны.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Ошибки уровня хранилища.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrProxyNotFound   = errors.New("proxy not found")
	ErrPaymentNotFound = errors.New("payment not found")
)

// Storage инкапсулирует соединение с базой данных PostgreSQL
// и реализует методы работы с пользователями, прокси и платежами.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// CheckDatabaseReady проверяет готовность базы данных.
func (s *Storage) CheckDatabaseReady(ctx context.Context) error {
	var exists bool
	err := s.DB.QueryRowContext(ctx, `SELECT EXISTS (
        SELECT FROM information_schema.tables
        WHERE table_name = 'proxies'
    )`).Scan(&exists)
	if err != nil || !exists {
		return fmt.Errorf("required table proxies missing or query error: %w", err)
	}
	return nil
}
