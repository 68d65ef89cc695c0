package paymentprovider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyStatus(t *testing.T) {
	cases := []struct {
		name    string // Название теста
		payload map[string]any
		want    Status
	}{
		{
			name:    "Строковый статус paid",
			payload: map[string]any{"status": "paid"},
			want:    StatusPaid,
		},
		{
			name:    "Числовой код из JSON приходит как float64",
			payload: map[string]any{"status": float64(1)},
			want:    StatusPaid,
		},
		{
			name:    "Синоним success с пробелами и регистром",
			payload: map[string]any{"status": "  SUCCESS  "},
			want:    StatusPaid,
		},
		{
			name:    "Поле state вместо status",
			payload: map[string]any{"state": "processing"},
			want:    StatusPending,
		},
		{
			name:    "Вложенный объект order",
			payload: map[string]any{"order": map[string]any{"status": "expired"}},
			want:    StatusCanceled,
		},
		{
			name: "Первый элемент массива orders",
			payload: map[string]any{
				"orders": []any{
					map[string]any{"status": float64(8)},
				},
			},
			want: StatusFailed,
		},
		{
			name:    "Незнакомое значение",
			payload: map[string]any{"status": "mystery"},
			want:    StatusUnknown,
		},
		{
			name:    "Пустой ответ",
			payload: map[string]any{},
			want:    StatusUnknown,
		},
		{
			name: "Неизвестный статус сверху, известный внутри data",
			payload: map[string]any{
				"status": "mystery",
				"data":   map[string]any{"order_status": "refunded"},
			},
			want: StatusCanceled,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyStatus(tc.payload))
		})
	}
}
