package models

// Уровни предупреждения о низком балансе.
const (
	WarnLevelAdvance  = "advance"  // баланса не хватит на все активные прокси
	WarnLevelCritical = "critical" // баланса не хватит даже на один день одного прокси
)

// LowBalanceWarning описывает предупреждение пользователю о том,
// что баланса не хватает на суточную оплату всех его активных прокси.
type LowBalanceWarning struct {
	Balance     int64  // Текущий баланс
	Required    int64  // Сумма, необходимая на день для всех активных прокси
	ActiveCount int    // Количество активных прокси
	Level       string // advance или critical
}

// BillingResult — итог одного цикла биллинга.
type BillingResult struct {
	Changed           bool                        // Изменился ли набор активных прокси
	DisabledByBalance map[int64][]*Proxy          // Отключённые за недостаток средств, по владельцам
	Warnings          map[int64]LowBalanceWarning // Предупреждения о низком балансе, по владельцам
}
