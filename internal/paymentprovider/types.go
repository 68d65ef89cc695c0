// Package paymentprovider реализует клиента платёжного провайдера:
// создание заказа и запрос статуса (оба запроса подписываются HMAC-SHA256),
// проверку подписи входящих уведомлений и классификацию статусов.
package paymentprovider

// Status — канонический статус платежа на стороне провайдера.
type Status string

// Канонические статусы. Unknown означает «нет информации»:
// переход состояния по нему не выполняется.
const (
	StatusPaid     Status = "paid"
	StatusPending  Status = "pending"
	StatusCanceled Status = "canceled"
	StatusFailed   Status = "failed"
	StatusUnknown  Status = "unknown"
)

// OrderRequest — параметры создания заказа у провайдера.
type OrderRequest struct {
	PaymentID int64  // Идентификатор платежа в нашей системе (MERCHANT_ORDER_ID)
	Amount    int64  // Сумма в целых единицах валюты
	Currency  string // Код валюты, по умолчанию RUB
	Method    int    // Код способа оплаты у провайдера
	Email     string // Email плательщика
	IP        string // IP плательщика
}

// OrderResponse — результат создания заказа.
type OrderResponse struct {
	PaymentLink string // Ссылка для оплаты
	OrderID     string // Идентификатор заказа у провайдера
	Status      string // Статус заказа, как его вернул провайдер
}
