package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"chat-client/internal/observability"
)

const subscriptionBuffer = 256

// Handler receives frames for one subscription, one at a time, in arrival order.
type Handler func(Frame)

// Subscription is a live topic subscription.
type Subscription struct {
	id          string
	destination string
	handler     Handler
	queue       chan Frame
	quit        chan struct{}
	once        sync.Once
}

func (s *Subscription) ID() string          { return s.id }
func (s *Subscription) Destination() string { return s.destination }

func (s *Subscription) stop() {
	s.once.Do(func() { close(s.quit) })
}

func (s *Subscription) run() {
	for {
		select {
		case <-s.quit:
			return
		case f := <-s.queue:
			select {
			case <-s.quit:
				return
			default:
			}
			s.handler(f)
		}
	}
}

// Manager owns one broker link and the subscriptions on it.
type Manager struct {
	transport Transport
	driver    string
	log       zerolog.Logger

	mu         sync.Mutex
	state      State
	gen        uint64
	link       Link
	cancelDial context.CancelFunc
	subs       map[string]*Subscription
	onDrop     []func()
}

// NewManager constructs a Manager. driver labels metrics and logs.
func NewManager(transport Transport, driver string, logger zerolog.Logger) *Manager {
	return &Manager{
		transport: transport,
		driver:    driver,
		log:       logger.With().Str("driver", driver).Logger(),
		subs:      make(map[string]*Subscription),
	}
}

// OnDrop registers fn to run after the link goes down without a Disconnect call.
func (m *Manager) OnDrop(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDrop = append(m.onDrop, fn)
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect dials the broker. onConnected runs once after the link is up.
// Calling Connect while connecting or connected does nothing.
func (m *Manager) Connect(ctx context.Context, credential string, onConnected func()) error {
	m.mu.Lock()
	if m.state != Disconnected {
		m.mu.Unlock()
		return nil
	}
	m.state = Connecting
	m.gen++
	gen := m.gen
	dialCtx, cancel := context.WithCancel(ctx)
	m.cancelDial = cancel
	m.mu.Unlock()

	link, err := m.transport.Dial(dialCtx, credential)
	cancel()

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		if link != nil {
			link.Close()
		}
		observability.IncRealtimeEvent(m.driver, "connect_cancelled")
		return fmt.Errorf("connect: %w", context.Canceled)
	}
	m.cancelDial = nil
	if err != nil {
		m.state = Disconnected
		m.mu.Unlock()
		observability.IncRealtimeEvent(m.driver, "connect_error")
		m.log.Warn().Err(err).Msg("realtime connect failed")
		return fmt.Errorf("connect: %w", err)
	}
	m.state = Connected
	m.link = link
	m.mu.Unlock()

	observability.IncRealtimeActive(m.driver)
	observability.IncRealtimeEvent(m.driver, "connected")
	m.log.Info().Msg("realtime connected")

	go m.readLoop(gen, link)

	if onConnected != nil {
		onConnected()
	}
	return nil
}

func (m *Manager) readLoop(gen uint64, link Link) {
	for f := range link.Frames() {
		m.mu.Lock()
		sub := m.subs[f.Subscription]
		m.mu.Unlock()
		if sub == nil {
			continue
		}
		select {
		case sub.queue <- f:
		case <-sub.quit:
		}
	}

	m.mu.Lock()
	if m.gen != gen || m.state != Connected {
		m.mu.Unlock()
		return
	}
	m.gen++
	m.stopAllLocked()
	m.link = nil
	m.state = Disconnected
	hooks := append([]func(){}, m.onDrop...)
	m.mu.Unlock()

	link.Close()
	observability.DecRealtimeActive(m.driver)
	observability.IncRealtimeEvent(m.driver, "dropped")
	m.log.Warn().Msg("realtime link dropped")
	for _, fn := range hooks {
		fn()
	}
}

// Subscribe registers handler for destination.
// The link call runs outside the lock so inbound frames keep flowing meanwhile.
func (m *Manager) Subscribe(destination string, handler Handler) (*Subscription, error) {
	m.mu.Lock()
	if m.state != Connected {
		m.mu.Unlock()
		return nil, ErrChannelNotReady
	}
	sub := &Subscription{
		id:          uuid.NewString(),
		destination: destination,
		handler:     handler,
		queue:       make(chan Frame, subscriptionBuffer),
		quit:        make(chan struct{}),
	}
	m.subs[sub.id] = sub
	link := m.link
	m.mu.Unlock()

	if err := link.Subscribe(sub.id, destination); err != nil {
		sub.stop()
		m.mu.Lock()
		delete(m.subs, sub.id)
		m.mu.Unlock()
		return nil, fmt.Errorf("subscribe %s: %w", destination, err)
	}

	m.mu.Lock()
	_, live := m.subs[sub.id]
	m.mu.Unlock()
	if !live {
		return nil, ErrChannelNotReady
	}

	go sub.run()
	observability.IncRealtimeEvent(m.driver, "subscribed")
	m.log.Debug().Str("destination", destination).Str("subscription", sub.id).Msg("subscribed")
	return sub, nil
}

// Unsubscribe stops sub. It accepts nil and may be called repeatedly or after Disconnect.
func (m *Manager) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	sub.stop()

	m.mu.Lock()
	_, ok := m.subs[sub.id]
	delete(m.subs, sub.id)
	link := m.link
	connected := m.state == Connected
	m.mu.Unlock()

	if !ok || !connected || link == nil {
		return
	}
	if err := link.Unsubscribe(sub.id); err != nil {
		m.log.Warn().Err(err).Str("subscription", sub.id).Msg("unsubscribe failed")
	}
}

// Publish sends payload as JSON to destination. Delivery is not confirmed.
func (m *Manager) Publish(destination string, payload any) error {
	m.mu.Lock()
	if m.state != Connected {
		m.mu.Unlock()
		return ErrChannelNotReady
	}
	link := m.link
	m.mu.Unlock()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if err := link.Send(destination, body); err != nil {
		return fmt.Errorf("publish %s: %w", destination, err)
	}
	observability.IncRealtimeEvent(m.driver, "published")
	return nil
}

// Disconnect closes the link and stops every subscription. It also aborts a pending Connect.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	switch m.state {
	case Disconnected:
		m.mu.Unlock()
		return
	case Connecting:
		m.gen++
		if m.cancelDial != nil {
			m.cancelDial()
			m.cancelDial = nil
		}
		m.state = Disconnected
		m.mu.Unlock()
		return
	}

	m.gen++
	m.stopAllLocked()
	link := m.link
	m.link = nil
	m.state = Disconnected
	m.mu.Unlock()

	if err := link.Close(); err != nil {
		m.log.Debug().Err(err).Msg("close link")
	}
	observability.DecRealtimeActive(m.driver)
	observability.IncRealtimeEvent(m.driver, "disconnected")
	m.log.Info().Msg("realtime disconnected")
}

func (m *Manager) stopAllLocked() {
	for id, sub := range m.subs {
		sub.stop()
		delete(m.subs, id)
	}
}
