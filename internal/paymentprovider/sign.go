package paymentprovider

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"
)

func formatValue(value any) string {
	switch v := value.(type) {
	case float64:
		if v == math.Trunc(v) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%v", value)
	}
}

// GenerateAPISignature подписывает тело API-запроса: значения полей
// (кроме signature) сортируются по именам ключей, склеиваются через "|"
// и подписываются HMAC-SHA256 ключом магазина.
func GenerateAPISignature(payload map[string]any, apiKey string) string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		if k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make([]string, 0, len(keys))
	for _, k := range keys {
		values = append(values, formatValue(payload[k]))
	}
	signString := strings.Join(values, "|")

	mac := hmac.New(sha256.New, []byte(apiKey))
	mac.Write([]byte(signString))
	return hex.EncodeToString(mac.Sum(nil))
}

// NotificationSignature вычисляет подпись уведомления провайдера:
// md5 от "merchant_id:amount:secret_word2:order_id". Провайдер использует
// обычный хеш с общим секретом, не HMAC.
func NotificationSignature(merchantID, amount, secretWord2, orderID string) string {
	sum := md5.Sum([]byte(merchantID + ":" + amount + ":" + secretWord2 + ":" + orderID))
	return hex.EncodeToString(sum[:])
}
