package paymentprovider

import (
	"fmt"
	"math"
	"strings"
)

// Словарь статусов провайдера. Провайдер возвращает статус то числовым
// кодом, то строкой, в разных полях ответа, поэтому классификатор
// тотальный: незнакомое значение даёт StatusUnknown, а не ошибку.
var statusSynonyms = map[string]Status{
	"paid":      StatusPaid,
	"success":   StatusPaid,
	"succeeded": StatusPaid,
	"completed": StatusPaid,
	"confirmed": StatusPaid,
	"1":         StatusPaid,

	"pending":    StatusPending,
	"process":    StatusPending,
	"processing": StatusPending,
	"new":        StatusPending,
	"created":    StatusPending,
	"wait":       StatusPending,
	"waiting":    StatusPending,
	"0":          StatusPending,

	"canceled":  StatusCanceled,
	"cancelled": StatusCanceled,
	"expired":   StatusCanceled,
	"refund":    StatusCanceled,
	"refunded":  StatusCanceled,
	"9":         StatusCanceled,

	"failed":   StatusFailed,
	"fail":     StatusFailed,
	"error":    StatusFailed,
	"declined": StatusFailed,
	"8":        StatusFailed,
}

func normalizeStatusValue(value any) string {
	switch v := value.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case float64:
		if v == math.Trunc(v) {
			return fmt.Sprintf("%d", int64(v))
		}
		return ""
	case int:
		return fmt.Sprintf("%d", v)
	case int64:
		return fmt.Sprintf("%d", v)
	default:
		return ""
	}
}

func classifyValue(value any) Status {
	normalized := normalizeStatusValue(value)
	if normalized == "" {
		return StatusUnknown
	}
	if status, ok := statusSynonyms[normalized]; ok {
		return status
	}
	return StatusUnknown
}

var statusFields = []string{"status", "state", "order_status", "paymentStatus"}

// ClassifyStatus ищет код статуса в известных полях ответа провайдера,
// включая вложенные объекты order/data и первый элемент массива orders,
// и сводит его к каноническому статусу.
func ClassifyStatus(payload map[string]any) Status {
	for _, field := range statusFields {
		if value, ok := payload[field]; ok {
			if status := classifyValue(value); status != StatusUnknown {
				return status
			}
		}
	}

	for _, nested := range []string{"order", "data"} {
		if inner, ok := payload[nested].(map[string]any); ok {
			if status := ClassifyStatus(inner); status != StatusUnknown {
				return status
			}
		}
	}

	if orders, ok := payload["orders"].([]any); ok && len(orders) > 0 {
		if inner, ok := orders[0].(map[string]any); ok {
			if status := ClassifyStatus(inner); status != StatusUnknown {
				return status
			}
		}
	}

	return StatusUnknown
}
