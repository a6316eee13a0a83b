package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"cashflow/internal/notify"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	maxBackoff     = 30 * time.Second
	publishTimeout = 5 * time.Second
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

// Client publishes and consumes record change events on a topic exchange.
// The routing key of every message is the changed table.
type Client struct {
	url          string
	exchangeName string
	queueName    string
	// transient clients consume through a broker-named exclusive queue
	transient bool

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	lastFailure  time.Time
}

var _ notify.Publisher = (*Client)(nil)

// NewClient connects to the broker. A non-empty queueName declares a durable
// queue bound to every table, shared by all consumers of that name.
func NewClient(url, exchangeName, queueName string) (*Client, error) {
	return dial(&Client{url: url, exchangeName: exchangeName, queueName: queueName})
}

// NewSubscriber connects a client whose queue belongs to this process alone:
// broker-named, exclusive and deleted with the connection. Each subscriber
// receives every change. Changes sent while it is disconnected are lost.
func NewSubscriber(url, exchangeName string) (*Client, error) {
	return dial(&Client{url: url, exchangeName: exchangeName, transient: true})
}

func dial(c *Client) (*Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.connectLocked(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connectLocked() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := c.setupLocked(channel); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}
	c.conn, c.channel = conn, channel
	return nil
}

func (c *Client) setupLocked(ch *amqp091.Channel) error {
	err := ch.ExchangeDeclare(
		c.exchangeName, // name
		"topic",        // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	switch {
	case c.transient:
		q, err := ch.QueueDeclare(
			"",    // name chosen by the broker
			false, // durable
			true,  // delete when unused
			true,  // exclusive
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			return fmt.Errorf("declare subscriber queue: %w", err)
		}
		c.queueName = q.Name
	case c.queueName != "":
		_, err := ch.QueueDeclare(
			c.queueName, // name
			true,        // durable
			false,       // delete when unused
			false,       // exclusive
			false,       // no-wait
			nil,         // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue: %w", err)
		}
	default:
		return nil
	}

	for _, table := range notify.Tables {
		if err := ch.QueueBind(c.queueName, table, c.exchangeName, false, nil); err != nil {
			return fmt.Errorf("bind queue to %s: %w", table, err)
		}
	}
	return nil
}

// ensureChannel reconnects when the broker dropped the connection.
func (c *Client) ensureChannel() (*amqp091.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil && !c.channel.IsClosed() && c.conn != nil && !c.conn.IsClosed() {
		return c.channel, nil
	}
	c.closeLocked()
	if err := c.connectLocked(); err != nil {
		return nil, err
	}
	slog.Info("Reconnected to AMQP broker", "exchange", c.exchangeName)
	return c.channel, nil
}

// Publish implements notify.Publisher.
func (c *Client) Publish(ctx context.Context, e notify.Event) error {
	return c.PublishChange(ctx, e)
}

// PublishChange sends e with the table as routing key.
func (c *Client) PublishChange(ctx context.Context, e notify.Event) error {
	if c.isCircuitOpen() {
		return fmt.Errorf("publish %s change: %w", e.Table, ErrCircuitOpen)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := EncodeEvent(e)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ch, err := c.ensureChannel()
	if err != nil {
		c.recordFailure()
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = ch.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		e.Table,        // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			c.mu.Lock()
			c.closeLocked()
			c.mu.Unlock()
		}
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()

	slog.DebugContext(ctx, "Published change event",
		"table", e.Table,
		"op", e.Op,
		"user_id", e.UserID,
		"exchange", c.exchangeName)
	return nil
}

// ConsumeChanges delivers change events to handler until ctx is done,
// reconnecting with exponential backoff when the broker goes away.
// Handler errors requeue the message; undecodable messages are dropped.
func (c *Client) ConsumeChanges(ctx context.Context, handler func(context.Context, notify.Event) error) error {
	for attempt := 0; ; {
		err := c.consumeOnce(ctx, handler)
		if ctx.Err() != nil {
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		}
		wait := exponentialBackoff(attempt)
		slog.WarnContext(ctx, "Change consumer interrupted, retrying",
			"error", err,
			"attempt", attempt+1,
			"backoff", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		if errors.Is(err, errDeliveriesClosed) {
			attempt = 0
		} else {
			attempt++
		}
	}
}

var errDeliveriesClosed = errors.New("message channel closed")

// Forward returns a ConsumeChanges handler that republishes every event on
// pub, typically an in-process notify.Hub.
func Forward(pub notify.Publisher) func(context.Context, notify.Event) error {
	return func(ctx context.Context, e notify.Event) error {
		return pub.Publish(ctx, e)
	}
}

func (c *Client) consumeOnce(ctx context.Context, handler func(context.Context, notify.Event) error) error {
	ch, err := c.ensureChannel()
	if err != nil {
		return err
	}
	c.mu.Lock()
	queue := c.queueName
	c.mu.Unlock()
	msgs, err := ch.Consume(
		queue, // queue
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming change events", "queue", queue)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errDeliveriesClosed
			}
			e, err := DecodeEvent(delivery.Body)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to decode change event", "error", err)
				delivery.Nack(false, false)
				continue
			}
			if err := handler(ctx, e); err != nil {
				slog.ErrorContext(ctx, "Failed to handle change event",
					"error", err,
					"table", e.Table,
					"user_id", e.UserID)
				delivery.Nack(false, true)
				continue
			}
			delivery.Ack(false)
		}
	}
}

func (c *Client) isCircuitOpen() bool {
	switch atomic.LoadInt32(&c.state) {
	case StateOpen:
		c.mu.Lock()
		since := time.Since(c.lastFailure)
		c.mu.Unlock()
		if since > openTimeout {
			atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
			return false
		}
		return true
	default:
		return false
	}
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	n := atomic.AddInt64(&c.failureCount, 1)
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()
	if n >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

func exponentialBackoff(attempt int) time.Duration {
	if attempt > 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
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
	for _, s := range []string{"connection", "eof", "broken pipe", "closed"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) closeLocked() {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return nil
}
