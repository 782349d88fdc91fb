package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/basel-ax/watermark-builder/internal/domain"
)

// OutcomeEvent is published when a submission reaches a terminal state
type OutcomeEvent struct {
	SessionID  string    `json:"session_id"`
	Seq        uint64    `json:"seq"`
	State      string    `json:"state"`
	Message    string    `json:"message,omitempty"`
	ResultSize int       `json:"result_size,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewOutcomeEvent describes outcome of submission seq. It never carries the image itself.
func NewOutcomeEvent(sessionID string, seq uint64, outcome domain.Outcome, now time.Time) OutcomeEvent {
	return OutcomeEvent{
		SessionID:  sessionID,
		Seq:        seq,
		State:      outcome.State.String(),
		Message:    outcome.Message,
		ResultSize: len(outcome.Data),
		Timestamp:  now,
	}
}

// Publisher sends outcome events to a durable RabbitMQ queue
type Publisher struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	queueName string
	logger    *zap.Logger
}

// NewPublisher connects to RabbitMQ and declares queueName
func NewPublisher(url, queueName string, logger *zap.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	_, err = channel.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	return &Publisher{
		conn:      conn,
		channel:   channel,
		queueName: queueName,
		logger:    logger,
	}, nil
}

// Publish sends event as a persistent JSON message
func (p *Publisher) Publish(ctx context.Context, event OutcomeEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.channel.Publish(
		"",          // exchange
		p.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.Timestamp,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("Outcome event published",
		zap.String("session", event.SessionID),
		zap.Uint64("seq", event.Seq),
		zap.String("state", event.State))
	return nil
}

// Close closes the channel and the connection
func (p *Publisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
