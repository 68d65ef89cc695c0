// Package rabbitmq содержит подключение к RabbitMQ и публикацию
// доменных событий (отключение прокси, низкий баланс, платежи, алерты).
// Доставка best-effort: ошибки публикации логируются вызывающей стороной.
package rabbitmq

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

// Exchange — единый exchange для всех событий сервиса.
const Exchange = "proxy-manager.events"

// Ключи маршрутизации событий.
const (
	KeyProxyDisabled  = "proxy.disabled"
	KeyProxyRestored  = "proxy.restored"
	KeyLowBalance     = "balance.low"
	KeyPaymentSettled = "payment.settled"
	KeyServiceAlert   = "service.alert"
)

// QueueConfig описывает очередь и её ключ маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetEventQueues возвращает очереди, которые слушают воркеры уведомлений.
func GetEventQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "events.proxy.disabled", RoutingKey: KeyProxyDisabled},
		{QueueName: "events.proxy.restored", RoutingKey: KeyProxyRestored},
		{QueueName: "events.balance.low", RoutingKey: KeyLowBalance},
		{QueueName: "events.payment.settled", RoutingKey: KeyPaymentSettled},
		{QueueName: "events.service.alert", RoutingKey: KeyServiceAlert},
	}
}

// Connect подключается к RabbitMQ с повторными попытками.
func Connect(connection string, retries int, delay time.Duration) (*amqp.Connection, error) {
	const op = "rabbitmq.Connect"
	var conn *amqp.Connection
	var err error

	for range retries {
		conn, err = amqp.Dial(connection)
		if err == nil {
			return conn, nil
		}
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("%s: %w", op, err)
}

// SetupChannel открывает канал, объявляет exchange и привязывает очереди.
func SetupChannel(conn *amqp.Connection, queues []QueueConfig) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	err = ch.ExchangeDeclare(
		Exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			q.QueueName,
			true,
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, q.QueueName, err)
		}

		err = ch.QueueBind(
			q.QueueName,
			q.RoutingKey,
			Exchange,
			false,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to bind queue %s: %w", op, q.QueueName, err)
		}
	}

	return ch, nil
}

// PublishMessage публикует событие в exchange с указанным ключом маршрутизации.
func PublishMessage(ch *amqp.Channel, routingKey string, message any) error {
	const op = "rabbitmq.PublishMessage"
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = ch.Publish(
		Exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
