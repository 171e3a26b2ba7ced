// Package amqp publishes dashboard events to a RabbitMQ exchange.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"xpdash/internal/log"
	"xpdash/internal/metrics"
)

const (
	publishTimeout    = 5 * time.Second
	maxReconnectTries = 3
)

// Client owns one connection and one channel. Publishing is serialised
// because amqp091 channels are not safe for concurrent publishers.
type Client struct {
	mu           sync.Mutex
	url          string
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	routingKey   string
	logger       *log.Logger
	dial         func(url string) (*amqp091.Connection, error)
	wait         func(ctx context.Context, d time.Duration) error
}

func NewClient(url, exchangeName, routingKey string, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	client := &Client{
		url:          url,
		exchangeName: exchangeName,
		routingKey:   routingKey,
		logger:       logger.WithComponent(log.ComponentAMQP),
		dial:         amqp091.Dial,
		wait:         waitContext,
	}
	if err := client.connect(); err != nil {
		return nil, err
	}
	return client, nil
}

func (c *Client) connect() error {
	conn, err := c.dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	c.conn = conn
	c.channel = channel

	if err := c.setup(); err != nil {
		c.closeLocked()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}
	return nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	// The queue shares the routing key's name so events are retained even
	// before the first consumer attaches.
	_, err = c.channel.QueueDeclare(
		c.routingKey, // name
		true,         // durable
		false,        // delete when unused
		false,        // exclusive
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	err = c.channel.QueueBind(
		c.routingKey,   // queue name
		c.routingKey,   // routing key
		c.exchangeName, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishProfileLoaded publishes msg as a persistent JSON message. A broken
// connection is re-established with backoff before giving up. The lock is
// released while backing off, and ctx bounds the whole call.
func (c *Client) PublishProfileLoaded(ctx context.Context, msg *ProfileLoadedMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		metrics.RecordEvent("error")
		return fmt.Errorf("marshal message: %w", err)
	}

	err = ctx.Err()
	if err == nil {
		err = c.publishOnce(ctx, body, false)
	}
	for attempt := 0; err != nil && isConnectionError(err) && attempt < maxReconnectTries; attempt++ {
		c.logger.WarnContext(ctx, "AMQP connection lost, reconnecting",
			"attempt", attempt+1, log.FieldError, err)
		if werr := c.wait(ctx, exponentialBackoff(attempt)); werr != nil {
			err = werr
			break
		}
		err = c.publishOnce(ctx, body, true)
	}
	if err != nil {
		metrics.RecordEvent("error")
		return fmt.Errorf("publish message: %w", err)
	}

	metrics.RecordEvent("ok")
	c.logger.InfoContext(ctx, "Published profile loaded message",
		log.FieldUserID, msg.UserID,
		log.FieldLogin, msg.Login,
		"exchange", c.exchangeName,
		"routing_key", c.routingKey)
	return nil
}

// publishOnce sends body under the lock, reconnecting first when asked.
func (c *Client) publishOnce(ctx context.Context, body []byte, reconnect bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if reconnect {
		c.closeLocked()
		if err := c.connect(); err != nil {
			return err
		}
	}
	return c.publish(ctx, body)
}

func (c *Client) publish(ctx context.Context, body []byte) error {
	if c.channel == nil {
		return amqp091.ErrClosed
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.routingKey,   // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Client) closeLocked() error {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		if err != nil && !errors.Is(err, amqp091.ErrClosed) {
			return err
		}
	}
	return nil
}

// waitContext sleeps for d or until ctx is done.
func waitContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// exponentialBackoff doubles from one second and caps at thirty.
func exponentialBackoff(attempt int) time.Duration {
	if attempt > 4 {
		return 30 * time.Second
	}
	d := time.Second << attempt
	if d > 30*time.Second {
		return 30 * time.Second
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "channel/connection is not open", "eof", "broken pipe", "reset by peer"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
