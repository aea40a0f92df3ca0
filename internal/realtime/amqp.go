package realtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const amqpPublishTimeout = 5 * time.Second

// AMQPTransport maps destinations onto a topic exchange: "/topic/a/b" routes as "a.b".
type AMQPTransport struct {
	url      string
	exchange string
	username string
	log      zerolog.Logger
}

func NewAMQPTransport(amqpURL, exchange, username string, logger zerolog.Logger) *AMQPTransport {
	return &AMQPTransport{url: amqpURL, exchange: exchange, username: username, log: logger}
}

// RoutingKey converts a destination path into a routing key.
func RoutingKey(destination string) string {
	key := strings.TrimPrefix(destination, "/topic/")
	key = strings.TrimPrefix(key, "/app/")
	key = strings.Trim(key, "/")
	return strings.ReplaceAll(key, "/", ".")
}

// Dial connects with the credential as the PLAIN password.
func (t *AMQPTransport) Dial(ctx context.Context, credential string) (Link, error) {
	cfg := amqp.Config{
		SASL:       []amqp.Authentication{&amqp.PlainAuth{Username: t.username, Password: credential}},
		Dial:       amqp.DefaultDial(10 * time.Second),
		Properties: amqp.Table{"connection_name": "chat-client"},
	}

	type result struct {
		conn *amqp.Connection
		err  error
	}
	done := make(chan result, 1)
	go func() {
		conn, err := amqp.DialConfig(t.url, cfg)
		done <- result{conn, err}
	}()

	var conn *amqp.Connection
	select {
	case <-ctx.Done():
		go func() {
			if r := <-done; r.conn != nil {
				r.conn.Close()
			}
		}()
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("dial amqp: %w", r.err)
		}
		conn = r.conn
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	return newAMQPLink(conn, ch, t.exchange, closed, t.log), nil
}

// amqpChannel is the subset of *amqp.Channel a link uses.
type amqpChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Cancel(consumer string, noWait bool) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

func newAMQPLink(conn io.Closer, ch amqpChannel, exchange string, closed <-chan *amqp.Error, logger zerolog.Logger) *amqpLink {
	l := &amqpLink{
		conn:     conn,
		ch:       ch,
		exchange: exchange,
		frames:   make(chan Frame, stompFrameBuffer),
		done:     make(chan struct{}),
		log:      logger,
	}
	go func() {
		select {
		case err := <-closed:
			if err != nil {
				l.log.Warn().Str("reason", err.Reason).Msg("amqp connection closed")
			}
		case <-l.done:
		}
		l.shutdown()
	}()
	return l
}

type amqpLink struct {
	conn     io.Closer
	ch       amqpChannel
	exchange string
	frames   chan Frame
	done     chan struct{}
	log      zerolog.Logger

	mu       sync.Mutex
	stopping bool
	wg       sync.WaitGroup
	once     sync.Once
}

func (l *amqpLink) Frames() <-chan Frame { return l.frames }

func (l *amqpLink) Subscribe(id, destination string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopping {
		return errors.New("amqp link closed")
	}

	q, err := l.ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := l.ch.QueueBind(q.Name, RoutingKey(destination), l.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	deliveries, err := l.ch.Consume(q.Name, id, true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	l.wg.Add(1)
	go l.forward(id, destination, deliveries)
	return nil
}

func (l *amqpLink) forward(id, destination string, deliveries <-chan amqp.Delivery) {
	defer l.wg.Done()
	for {
		select {
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			select {
			case l.frames <- Frame{Subscription: id, Destination: destination, Body: d.Body}:
			case <-l.done:
				return
			}
		case <-l.done:
			return
		}
	}
}

func (l *amqpLink) Unsubscribe(id string) error {
	return l.ch.Cancel(id, false)
}

func (l *amqpLink) Send(destination string, body []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), amqpPublishTimeout)
	defer cancel()
	return l.ch.PublishWithContext(ctx, l.exchange, RoutingKey(destination), false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   time.Now(),
		Body:        body,
	})
}

func (l *amqpLink) Close() error {
	l.ch.Close()
	err := l.conn.Close()
	l.shutdown()
	if errors.Is(err, amqp.ErrClosed) {
		return nil
	}
	return err
}

func (l *amqpLink) shutdown() {
	l.once.Do(func() {
		l.mu.Lock()
		l.stopping = true
		l.mu.Unlock()
		close(l.done)
		l.wg.Wait()
		close(l.frames)
	})
}
