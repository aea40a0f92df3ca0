package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type binding struct {
	queue, key, exchange string
}

type fakeAMQPChannel struct {
	mu         sync.Mutex
	queues     int
	bindings   []binding
	consumers  map[string]chan amqp.Delivery
	cancelled  []string
	published  []amqp.Publishing
	publishKey []string
	closed     bool
	consumeErr error
}

func newFakeAMQPChannel() *fakeAMQPChannel {
	return &fakeAMQPChannel{consumers: make(map[string]chan amqp.Delivery)}
}

func (c *fakeAMQPChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queues++
	return amqp.Queue{Name: "amq.gen-" + string(rune('a'+c.queues))}, nil
}

func (c *fakeAMQPChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindings = append(c.bindings, binding{queue: name, key: key, exchange: exchange})
	return nil
}

func (c *fakeAMQPChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.consumeErr != nil {
		return nil, c.consumeErr
	}
	ch := make(chan amqp.Delivery)
	c.consumers[consumer] = ch
	return ch, nil
}

func (c *fakeAMQPChannel) Cancel(consumer string, noWait bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelled = append(c.cancelled, consumer)
	return nil
}

func (c *fakeAMQPChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, msg)
	c.publishKey = append(c.publishKey, exchange+"/"+key)
	return nil
}

func (c *fakeAMQPChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeAMQPChannel) consumer(tag string) chan amqp.Delivery {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.consumers[tag]
}

type fakeConn struct {
	mu     sync.Mutex
	closed bool
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return amqp.ErrClosed
	}
	c.closed = true
	return nil
}

func newTestAMQPLink(t *testing.T) (*amqpLink, *fakeAMQPChannel, *fakeConn, chan *amqp.Error) {
	t.Helper()
	ch := newFakeAMQPChannel()
	conn := &fakeConn{}
	closed := make(chan *amqp.Error, 1)
	return newAMQPLink(conn, ch, "amq.topic", closed, zerolog.Nop()), ch, conn, closed
}

func waitClosed(t *testing.T, frames <-chan Frame) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-frames:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("frames channel not closed")
		}
	}
}

func TestAMQPLinkSubscribeForwardsDeliveries(t *testing.T) {
	l, ch, _, _ := newTestAMQPLink(t)
	defer l.Close()

	require.NoError(t, l.Subscribe("sub-1", "/topic/group/rooms/4"))

	require.Len(t, ch.bindings, 1)
	assert.Equal(t, "group.rooms.4", ch.bindings[0].key)
	assert.Equal(t, "amq.topic", ch.bindings[0].exchange)

	deliveries := ch.consumer("sub-1")
	require.NotNil(t, deliveries)
	deliveries <- amqp.Delivery{Body: []byte(`{"id":1}`)}
	deliveries <- amqp.Delivery{Body: []byte(`{"id":2}`)}

	for _, want := range []string{`{"id":1}`, `{"id":2}`} {
		select {
		case f := <-l.Frames():
			assert.Equal(t, "sub-1", f.Subscription)
			assert.Equal(t, "/topic/group/rooms/4", f.Destination)
			assert.Equal(t, want, string(f.Body))
		case <-time.After(time.Second):
			t.Fatal("frame not forwarded")
		}
	}
}

func TestAMQPLinkSendAndUnsubscribe(t *testing.T) {
	l, ch, _, _ := newTestAMQPLink(t)
	defer l.Close()

	require.NoError(t, l.Send("/app/chats/sendMessage", []byte(`{"content":"hi"}`)))
	require.NoError(t, l.Unsubscribe("sub-1"))

	require.Len(t, ch.published, 1)
	assert.Equal(t, "amq.topic/chats.sendMessage", ch.publishKey[0])
	assert.Equal(t, "application/json", ch.published[0].ContentType)
	assert.Equal(t, []string{"sub-1"}, ch.cancelled)
}

func TestAMQPLinkSubscribeError(t *testing.T) {
	l, ch, _, _ := newTestAMQPLink(t)
	defer l.Close()
	ch.consumeErr = errors.New("access refused")

	assert.ErrorContains(t, l.Subscribe("sub-1", "/topic/group/rooms/4"), "access refused")
}

func TestAMQPLinkCloseWaitsForForwarders(t *testing.T) {
	l, ch, conn, _ := newTestAMQPLink(t)
	require.NoError(t, l.Subscribe("sub-1", "/topic/group/rooms/4"))

	// fill frames so the forwarder is parked on the send
	for i := 0; i < cap(l.frames)+1; i++ {
		select {
		case ch.consumer("sub-1") <- amqp.Delivery{Body: []byte("x")}:
		case <-time.After(time.Second):
			t.Fatal("forwarder stopped accepting deliveries")
		}
	}

	require.NoError(t, l.Close())
	waitClosed(t, l.Frames())

	assert.True(t, ch.closed)
	assert.True(t, conn.closed)
	assert.Error(t, l.Subscribe("sub-2", "/topic/group/rooms/5"))
	assert.NoError(t, l.Close())
}

func TestAMQPLinkBrokerCloseEndsFrames(t *testing.T) {
	l, _, _, closed := newTestAMQPLink(t)
	require.NoError(t, l.Subscribe("sub-1", "/topic/group/rooms/4"))

	closed <- &amqp.Error{Code: 320, Reason: "CONNECTION_FORCED"}

	waitClosed(t, l.Frames())
}

func TestManagerOverAMQPLinkReportsDrop(t *testing.T) {
	ch := newFakeAMQPChannel()
	closed := make(chan *amqp.Error, 1)
	link := newAMQPLink(&fakeConn{}, ch, "amq.topic", closed, zerolog.Nop())
	m := NewManager(linkTransport{link}, "amqp", zerolog.Nop())

	require.NoError(t, m.Connect(context.Background(), "tok", nil))
	got := make(chan string, 1)
	_, err := m.Subscribe("/topic/group/rooms/4", func(f Frame) { got <- string(f.Body) })
	require.NoError(t, err)

	var tag string
	ch.mu.Lock()
	for k := range ch.consumers {
		tag = k
	}
	ch.mu.Unlock()
	ch.consumer(tag) <- amqp.Delivery{Body: []byte("hello")}

	select {
	case body := <-got:
		assert.Equal(t, "hello", body)
	case <-time.After(time.Second):
		t.Fatal("frame not delivered")
	}

	closed <- &amqp.Error{Code: 320, Reason: "CONNECTION_FORCED"}
	assert.Eventually(t, func() bool { return m.State() == Disconnected }, time.Second, 5*time.Millisecond)
}

type linkTransport struct {
	link Link
}

func (t linkTransport) Dial(context.Context, string) (Link, error) { return t.link, nil }
