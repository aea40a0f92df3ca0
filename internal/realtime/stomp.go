package realtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	stompFrameBuffer = 64
	stompWriteWait   = 10 * time.Second
)

// StompTransport speaks STOMP 1.2 over a WebSocket, one frame per text message.
type StompTransport struct {
	url    string
	dialer *websocket.Dialer
	log    zerolog.Logger
}

func NewStompTransport(wsURL string, logger zerolog.Logger) *StompTransport {
	return &StompTransport{
		url: wsURL,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		log: logger,
	}
}

// Dial opens the socket and completes the STOMP CONNECT handshake.
func (t *StompTransport) Dial(ctx context.Context, credential string) (Link, error) {
	u, err := url.Parse(t.url)
	if err != nil {
		return nil, fmt.Errorf("parse ws url: %w", err)
	}

	header := http.Header{}
	if credential != "" {
		header.Set("Authorization", "Bearer "+credential)
	}
	conn, _, err := t.dialer.DialContext(ctx, t.url, header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.Host, err)
	}

	l := &stompLink{
		conn:   conn,
		frames: make(chan Frame, stompFrameBuffer),
		log:    t.log,
	}

	connect := frame.New(frame.CONNECT,
		frame.AcceptVersion, "1.2,1.1",
		frame.Host, u.Hostname(),
		frame.HeartBeat, "0,0",
	)
	if credential != "" {
		connect.Header.Add("Authorization", "Bearer "+credential)
	}

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	if err := l.write(connect); err != nil {
		stop()
		conn.Close()
		return nil, fmt.Errorf("send CONNECT: %w", err)
	}
	reply, err := l.readFrame()
	if !stop() {
		conn.Close()
		return nil, ctx.Err()
	}
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("await CONNECTED: %w", err)
	}

	switch reply.Command {
	case frame.CONNECTED:
	case frame.ERROR:
		conn.Close()
		return nil, fmt.Errorf("broker refused connection: %s %s", reply.Header.Get(frame.Message), bytes.TrimSpace(reply.Body))
	default:
		conn.Close()
		return nil, fmt.Errorf("unexpected frame %s during handshake", reply.Command)
	}

	go l.readLoop()
	return l, nil
}

type stompLink struct {
	conn   *websocket.Conn
	frames chan Frame
	log    zerolog.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func (l *stompLink) Frames() <-chan Frame { return l.frames }

func (l *stompLink) Subscribe(id, destination string) error {
	return l.write(frame.New(frame.SUBSCRIBE,
		frame.Id, id,
		frame.Destination, destination,
		frame.Ack, "auto",
	))
}

func (l *stompLink) Unsubscribe(id string) error {
	return l.write(frame.New(frame.UNSUBSCRIBE, frame.Id, id))
}

func (l *stompLink) Send(destination string, body []byte) error {
	f := frame.New(frame.SEND,
		frame.Destination, destination,
		frame.ContentType, "application/json",
	)
	f.Body = body
	return l.write(f)
}

func (l *stompLink) Close() error {
	var err error
	l.closeOnce.Do(func() {
		_ = l.write(frame.New(frame.DISCONNECT))
		l.writeMu.Lock()
		_ = l.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		l.writeMu.Unlock()
		err = l.conn.Close()
	})
	return err
}

func (l *stompLink) write(f *frame.Frame) error {
	var buf bytes.Buffer
	if err := frame.NewWriter(&buf).Write(f); err != nil {
		return err
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	_ = l.conn.SetWriteDeadline(time.Now().Add(stompWriteWait))
	return l.conn.WriteMessage(websocket.TextMessage, buf.Bytes())
}

// readFrame returns the next non-heartbeat frame.
func (l *stompLink) readFrame() (*frame.Frame, error) {
	for {
		_, data, err := l.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if len(bytes.TrimSpace(data)) == 0 {
			continue
		}
		f, err := frame.NewReader(bytes.NewReader(data)).Read()
		if err != nil {
			return nil, fmt.Errorf("decode frame: %w", err)
		}
		if f == nil {
			continue
		}
		return f, nil
	}
}

func (l *stompLink) readLoop() {
	defer close(l.frames)
	for {
		f, err := l.readFrame()
		if err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				l.log.Debug().Err(err).Msg("stomp read ended")
			}
			return
		}

		switch f.Command {
		case frame.MESSAGE:
			l.frames <- Frame{
				Subscription: f.Header.Get(frame.Subscription),
				Destination:  f.Header.Get(frame.Destination),
				Body:         f.Body,
			}
		case frame.ERROR:
			l.log.Warn().Str("message", f.Header.Get(frame.Message)).Msg("stomp error frame")
			l.conn.Close()
			return
		}
	}
}
