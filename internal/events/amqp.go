package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// QueueName é a fila durável que recebe todos os eventos da biblioteca.
const QueueName = "biblioteca.eventos"

// AMQPPublisher mantém uma conexão com o RabbitMQ e reabre o canal quando ele cai.
type AMQPPublisher struct {
	url    string
	queue  string
	logger zerolog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPPublisher conecta ao broker e declara a fila durável.
func NewAMQPPublisher(url string, logger zerolog.Logger) (*AMQPPublisher, error) {
	if url == "" {
		return nil, errors.New("AMQP_URL obrigatório")
	}
	p := &AMQPPublisher{url: url, queue: QueueName, logger: logger}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *AMQPPublisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}
	p.conn = conn
	p.ch = ch
	return nil
}

// Publish envia o evento como mensagem persistente; o tipo vai no campo Type.
func (p *AMQPPublisher) Publish(ctx context.Context, evento Evento) error {
	if evento.Ocorreu.IsZero() {
		evento.Ocorreu = time.Now().UTC()
	}
	body, err := json.Marshal(evento)
	if err != nil {
		return fmt.Errorf("serializar evento: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil || p.conn.IsClosed() || p.ch == nil || p.ch.IsClosed() {
		p.logger.Warn().Msg("rabbitmq: reconectando")
		if err := p.connect(); err != nil {
			return err
		}
	}

	return p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    evento.Ocorreu,
		Type:         evento.Tipo,
		Body:         body,
	})
}

// Close encerra canal e conexão.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
