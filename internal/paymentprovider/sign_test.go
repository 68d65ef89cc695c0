package paymentprovider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateAPISignature(t *testing.T) {
	payload := map[string]any{
		"shopId":    float64(12345),
		"nonce":     int64(1700000000000),
		"paymentId": "50",
	}

	// Ключи сортируются: nonce | paymentId | shopId
	mac := hmac.New(sha256.New, []byte("api-key"))
	mac.Write([]byte("1700000000000|50|12345"))
	expected := hex.EncodeToString(mac.Sum(nil))

	assert.Equal(t, expected, GenerateAPISignature(payload, "api-key"))
}

func TestGenerateAPISignature_IgnoresSignatureField(t *testing.T) {
	payload := map[string]any{
		"shopId":    int64(1),
		"paymentId": "7",
	}
	first := GenerateAPISignature(payload, "key")

	payload["signature"] = first
	second := GenerateAPISignature(payload, "key")

	assert.Equal(t, first, second)
}

func TestGenerateAPISignature_WholeFloatsFormattedAsIntegers(t *testing.T) {
	withFloat := map[string]any{"amount": float64(100)}
	withInt := map[string]any{"amount": int64(100)}

	assert.Equal(t,
		GenerateAPISignature(withInt, "key"),
		GenerateAPISignature(withFloat, "key"))
}

func TestNotificationSignature(t *testing.T) {
	// md5("1:100.00:secret2:50")
	sign := NotificationSignature("1", "100.00", "secret2", "50")
	assert.Len(t, sign, 32)
	assert.Equal(t, sign, NotificationSignature("1", "100.00", "secret2", "50"))
	assert.NotEqual(t, sign, NotificationSignature("1", "100.01", "secret2", "50"))
	assert.NotEqual(t, sign, NotificationSignature("1", "100.00", "other", "50"))
}
