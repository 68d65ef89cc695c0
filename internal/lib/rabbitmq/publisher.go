package rabbitmq

import "github.com/streadway/amqp"

// Publisher — тонкая обёртка над каналом для публикации событий.
// Сервисы принимают её через собственные интерфейсы, что упрощает моки.
type Publisher struct {
	ch *amqp.Channel
}

// NewPublisher создаёт Publisher поверх открытого канала.
func NewPublisher(ch *amqp.Channel) *Publisher {
	return &Publisher{ch: ch}
}

// Publish публикует событие с указанным ключом маршрутизации.
func (p *Publisher) Publish(routingKey string, message any) error {
	return PublishMessage(p.ch, routingKey, message)
}
