// Package secrets генерирует учётные данные прокси: логины, пароли
// и MTProto-секреты, а также собирает ссылку на подключение.
package secrets

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomString(length int) (string, error) {
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return "", fmt.Errorf("secrets.randomString: %w", err)
		}
		buf[i] = alphabet[n.Int64()]
	}
	return string(buf), nil
}

// GenerateLogin возвращает случайный логин из 8 букв и цифр.
func GenerateLogin() (string, error) {
	return randomString(8)
}

// GeneratePassword возвращает случайный пароль из 12 букв и цифр.
func GeneratePassword() (string, error) {
	return randomString(12)
}

// GenerateMTProtoSecret возвращает 16 случайных байт в hex-кодировке —
// формат секрета, который понимает MTProto-прокси.
func GenerateMTProtoSecret() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("secrets.GenerateMTProtoSecret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// BuildProxyLink собирает ссылку на подключение к SOCKS-прокси.
func BuildProxyLink(ip string, port int, login, password string) string {
	return fmt.Sprintf("https://t.me/socks?server=%s&port=%d&user=%s&pass=%s", ip, port, login, password)
}
