package mocks

import (
	"context"
	"errors"
	"sync"

	"chat-client/internal/realtime"
)

// FakeTransport hands out FakeLinks. Set Block to hold Dial until it is closed or ctx ends.
type FakeTransport struct {
	mu          sync.Mutex
	DialErr     error
	Block       chan struct{}
	Links       []*FakeLink
	Credentials []string
}

func (t *FakeTransport) Dial(ctx context.Context, credential string) (realtime.Link, error) {
	t.mu.Lock()
	t.Credentials = append(t.Credentials, credential)
	block := t.Block
	dialErr := t.DialErr
	t.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if dialErr != nil {
		return nil, dialErr
	}

	l := NewFakeLink()
	t.mu.Lock()
	t.Links = append(t.Links, l)
	t.mu.Unlock()
	return l, nil
}

func (t *FakeTransport) DialCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Credentials)
}

func (t *FakeTransport) Last() *FakeLink {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.Links) == 0 {
		return nil
	}
	return t.Links[len(t.Links)-1]
}

type SentFrame struct {
	Destination string
	Body        []byte
}

// FakeLink records traffic and lets tests inject inbound frames.
type FakeLink struct {
	mu           sync.Mutex
	frames       chan realtime.Frame
	closed       bool
	Subs         map[string]string
	Unsubscribed []string
	Sent         []SentFrame
	SendErr      error

	hold    chan struct{}
	entered chan struct{}
}

func NewFakeLink() *FakeLink {
	return &FakeLink{
		frames: make(chan realtime.Frame, 64),
		Subs:   make(map[string]string),
	}
}

func (l *FakeLink) Subscribe(id, destination string) error {
	l.mu.Lock()
	hold, entered := l.hold, l.entered
	l.hold, l.entered = nil, nil
	l.mu.Unlock()
	if hold != nil {
		close(entered)
		<-hold
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return errors.New("link closed")
	}
	l.Subs[id] = destination
	return nil
}

// HoldSubscribe makes the next Subscribe block until release is called.
// entered is closed once that call is waiting.
func (l *FakeLink) HoldSubscribe() (entered <-chan struct{}, release func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hold = make(chan struct{})
	l.entered = make(chan struct{})
	hold := l.hold
	var once sync.Once
	return l.entered, func() { once.Do(func() { close(hold) }) }
}

func (l *FakeLink) Unsubscribe(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Unsubscribed = append(l.Unsubscribed, id)
	delete(l.Subs, id)
	return nil
}

func (l *FakeLink) Send(destination string, body []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.SendErr != nil {
		return l.SendErr
	}
	l.Sent = append(l.Sent, SentFrame{Destination: destination, Body: body})
	return nil
}

func (l *FakeLink) Frames() <-chan realtime.Frame { return l.frames }

func (l *FakeLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.closed = true
		close(l.frames)
	}
	return nil
}

// Drop simulates the broker going away.
func (l *FakeLink) Drop() { l.Close() }

func (l *FakeLink) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// SubscriptionFor returns the subscription id bound to destination.
func (l *FakeLink) SubscriptionFor(destination string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, dest := range l.Subs {
		if dest == destination {
			return id, true
		}
	}
	return "", false
}

// Deliver injects an inbound frame for destination's subscription.
func (l *FakeLink) Deliver(destination string, body []byte) bool {
	id, ok := l.SubscriptionFor(destination)
	if !ok {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	l.frames <- realtime.Frame{Subscription: id, Destination: destination, Body: body}
	return true
}

func (l *FakeLink) SentFrames() []SentFrame {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]SentFrame(nil), l.Sent...)
}

func (l *FakeLink) UnsubscribedIDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.Unsubscribed...)
}
