package realtime

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-stomp/stomp/v3/frame"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBroker answers CONNECT and echoes every SEND to subscribers of the same destination.
type fakeBroker struct {
	t         *testing.T
	rejectTok bool

	mu       sync.Mutex
	auth     string
	received []*frame.Frame
}

func (b *fakeBroker) router() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	r.GET("/ws", func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		b.serve(conn)
	})
	return r
}

func (b *fakeBroker) serve(conn *websocket.Conn) {
	subs := map[string]string{}
	write := func(f *frame.Frame) {
		var buf bytes.Buffer
		if err := frame.NewWriter(&buf).Write(f); err != nil {
			b.t.Errorf("encode frame: %v", err)
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, buf.Bytes())
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		f, err := frame.NewReader(bytes.NewReader(data)).Read()
		if err != nil || f == nil {
			continue
		}

		b.mu.Lock()
		b.received = append(b.received, f)
		b.mu.Unlock()

		switch f.Command {
		case frame.CONNECT:
			b.mu.Lock()
			b.auth = f.Header.Get("Authorization")
			b.mu.Unlock()
			if b.rejectTok {
				write(frame.New(frame.ERROR, frame.Message, "bad credentials"))
				return
			}
			write(frame.New(frame.CONNECTED, frame.Version, "1.2"))
		case frame.SUBSCRIBE:
			subs[f.Header.Get(frame.Id)] = f.Header.Get(frame.Destination)
		case frame.SEND:
			for id, dest := range subs {
				if dest == f.Header.Get(frame.Destination) {
					msg := frame.New(frame.MESSAGE,
						frame.Subscription, id,
						frame.Destination, dest,
						frame.MessageId, "1",
					)
					msg.Body = f.Body
					write(msg)
				}
			}
		case frame.DISCONNECT:
			return
		}
	}
}

func (b *fakeBroker) commands() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, f := range b.received {
		out = append(out, f.Command)
	}
	return out
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestStompTransportRoundTrip(t *testing.T) {
	broker := &fakeBroker{t: t}
	srv := httptest.NewServer(broker.router())
	defer srv.Close()

	transport := NewStompTransport(wsURL(srv), zerolog.Nop())
	link, err := transport.Dial(context.Background(), "tok")
	require.NoError(t, err)

	require.NoError(t, link.Subscribe("sub-1", "/topic/group/rooms/4"))
	require.NoError(t, link.Send("/topic/group/rooms/4", []byte(`{"content":"hi"}`)))

	select {
	case f := <-link.Frames():
		assert.Equal(t, "sub-1", f.Subscription)
		assert.Equal(t, "/topic/group/rooms/4", f.Destination)
		assert.JSONEq(t, `{"content":"hi"}`, string(f.Body))
	case <-time.After(2 * time.Second):
		t.Fatal("no frame delivered")
	}

	require.NoError(t, link.Close())
	broker.mu.Lock()
	assert.Equal(t, "Bearer tok", broker.auth)
	broker.mu.Unlock()

	assert.Eventually(t, func() bool {
		cmds := broker.commands()
		return len(cmds) > 0 && cmds[len(cmds)-1] == frame.DISCONNECT
	}, time.Second, 10*time.Millisecond)

	_, open := <-link.Frames()
	assert.False(t, open)
}

func TestStompTransportRejected(t *testing.T) {
	broker := &fakeBroker{t: t, rejectTok: true}
	srv := httptest.NewServer(broker.router())
	defer srv.Close()

	_, err := NewStompTransport(wsURL(srv), zerolog.Nop()).Dial(context.Background(), "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad credentials")
}

func TestStompTransportWithManager(t *testing.T) {
	broker := &fakeBroker{t: t}
	srv := httptest.NewServer(broker.router())
	defer srv.Close()

	m := NewManager(NewStompTransport(wsURL(srv), zerolog.Nop()), "stomp", zerolog.Nop())
	got := make(chan string, 1)
	require.NoError(t, m.Connect(context.Background(), "tok", func() {
		_, err := m.Subscribe("/topic/direct/rooms/9", func(f Frame) { got <- string(f.Body) })
		require.NoError(t, err)
	}))

	require.NoError(t, m.Publish("/topic/direct/rooms/9", map[string]string{"content": "yo"}))

	select {
	case body := <-got:
		assert.JSONEq(t, `{"content":"yo"}`, body)
	case <-time.After(2 * time.Second):
		t.Fatal("no message")
	}
	m.Disconnect()
	assert.Equal(t, Disconnected, m.State())
}
