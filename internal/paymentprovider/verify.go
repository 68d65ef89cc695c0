package paymentprovider

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Ошибки проверки входящего уведомления.
var (
	ErrMissingFields = errors.New("notification missing required fields")
	ErrShopMismatch  = errors.New("notification merchant id mismatch")
	ErrBadSignature  = errors.New("notification signature mismatch")
)

// Notification — разобранные поля входящего уведомления провайдера.
type Notification struct {
	MerchantID      string // Идентификатор магазина
	Amount          string // Сумма, как её прислал провайдер
	MerchantOrderID string // Идентификатор платежа в нашей системе
	Sign            string // Подпись уведомления
	IntID           string // Идентификатор операции на стороне провайдера
}

func pick(data map[string]string, keys ...string) string {
	for _, k := range keys {
		if v, ok := data[k]; ok && v != "" {
			return v
		}
	}
	return ""
}

// ParseNotification извлекает известные поля из плоской карты уведомления.
// Провайдер шлёт и верхний, и нижний регистр имён, поэтому проверяются оба.
func ParseNotification(data map[string]string) Notification {
	return Notification{
		MerchantID:      pick(data, "MERCHANT_ID", "merchant_id"),
		Amount:          pick(data, "AMOUNT", "amount"),
		MerchantOrderID: pick(data, "MERCHANT_ORDER_ID", "merchant_order_id"),
		Sign:            pick(data, "SIGN", "sign"),
		IntID:           pick(data, "intid", "INTID"),
	}
}

// VerifyNotification аутентифицирует уведомление: проверяет наличие
// обязательных полей, совпадение магазина и подпись (без учёта регистра).
// Любая ошибка означает, что состояние платежа менять нельзя.
func VerifyNotification(n Notification, shopID, secretWord2 string) error {
	if n.MerchantID == "" || n.Amount == "" || n.MerchantOrderID == "" || n.Sign == "" {
		return ErrMissingFields
	}
	if n.MerchantID != shopID {
		return ErrShopMismatch
	}
	expected := NotificationSignature(n.MerchantID, n.Amount, secretWord2, n.MerchantOrderID)
	if !strings.EqualFold(expected, n.Sign) {
		return ErrBadSignature
	}
	return nil
}

// parseAmount переводит денежную строку провайдера в сотые доли единицы.
func parseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		return 0, fmt.Errorf("empty amount")
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad amount %q: %w", s, err)
	}
	cents := units * 100
	if frac != "" {
		if len(frac) > 2 {
			frac = frac[:2]
		}
		for len(frac) < 2 {
			frac += "0"
		}
		f, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("bad amount %q: %w", s, err)
		}
		if units < 0 {
			cents -= f
		} else {
			cents += f
		}
	}
	return cents, nil
}

// AmountMatches сравнивает ожидаемую сумму платежа (в целых единицах)
// с суммой из уведомления с точностью до сотых. При ненулевом feePercent
// допускается и вариант с добавленной комиссией провайдера.
func AmountMatches(expected int64, amount string, feePercent float64) bool {
	got, err := parseAmount(amount)
	if err != nil {
		return false
	}
	want := expected * 100
	if got == want {
		return true
	}
	if feePercent > 0 {
		withFee := int64(math.Round(float64(want) * (1 + feePercent/100)))
		return got == withFee
	}
	return false
}
