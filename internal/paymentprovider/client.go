package paymentprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Client — клиент API платёжного провайдера.
type Client struct {
	shopID     string
	apiKey     string
	apiBase    string
	httpClient *http.Client
}

// NewClient создаёт клиента провайдера. Все запросы выполняются
// с таймаутом: зависший провайдер не должен блокировать сверку.
func NewClient(apiBase, shopID, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		shopID:     shopID,
		apiKey:     apiKey,
		apiBase:    strings.TrimRight(apiBase, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) newRequest(ctx context.Context, path string, payload map[string]any) (*http.Request, error) {
	payload["signature"] = GenerateAPISignature(payload, c.apiKey)

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-KEY", c.apiKey)
	return req, nil
}

// CreateOrder создаёт заказ у провайдера и возвращает ссылку на оплату.
// Ссылка приходит либо в заголовке Location, либо в поле location ответа.
func (c *Client) CreateOrder(ctx context.Context, reqParams OrderRequest) (*OrderResponse, error) {
	const op = "paymentprovider.CreateOrder"

	shopID, err := strconv.ParseInt(c.shopID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: bad shop id: %w", op, err)
	}

	currency := reqParams.Currency
	if currency == "" {
		currency = "RUB"
	}
	payload := map[string]any{
		"shopId":    shopID,
		"nonce":     time.Now().UnixMilli(),
		"paymentId": strconv.FormatInt(reqParams.PaymentID, 10),
		"i":         reqParams.Method,
		"email":     reqParams.Email,
		"ip":        reqParams.IP,
		"amount":    reqParams.Amount,
		"currency":  currency,
	}

	req, err := c.newRequest(ctx, "/orders/create", payload)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var data map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		data = map[string]any{}
	}

	if resp.StatusCode != http.StatusOK {
		msg := firstString(data, "message", "error")
		if msg == "" {
			msg = resp.Status
		}
		return nil, fmt.Errorf("%s: provider error: %s", op, msg)
	}

	paymentLink := resp.Header.Get("Location")
	if paymentLink == "" {
		paymentLink = firstString(data, "location")
	}
	if paymentLink == "" {
		return nil, fmt.Errorf("%s: provider returned no payment link", op)
	}

	return &OrderResponse{
		PaymentLink: paymentLink,
		OrderID:     firstString(data, "orderId", "id"),
		Status:      firstString(data, "status"),
	}, nil
}

// GetOrderStatus запрашивает статус заказа по идентификатору платежа.
// Возвращает сырой ответ провайдера; классификация — отдельный шаг.
func (c *Client) GetOrderStatus(ctx context.Context, paymentID int64) (map[string]any, error) {
	const op = "paymentprovider.GetOrderStatus"

	shopID, err := strconv.ParseInt(c.shopID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: bad shop id: %w", op, err)
	}

	payload := map[string]any{
		"shopId":    shopID,
		"nonce":     time.Now().UnixMilli(),
		"paymentId": strconv.FormatInt(paymentID, 10),
	}

	req, err := c.newRequest(ctx, "/orders", payload)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var data map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("%s: bad response body: %w", op, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := firstString(data, "message", "error")
		if msg == "" {
			msg = resp.Status
		}
		return nil, fmt.Errorf("%s: provider error: %s", op, msg)
	}
	return data, nil
}

func firstString(data map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := data[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatInt(int64(v), 10)
		}
	}
	return ""
}
