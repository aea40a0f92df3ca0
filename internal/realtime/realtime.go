// Package realtime manages the single broker connection shared by the client.
package realtime

import (
	"context"
	"errors"
)

// ErrChannelNotReady is returned by Subscribe and Publish outside the Connected state.
var ErrChannelNotReady = errors.New("realtime channel not ready")

// State is the connection state of a Manager.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "CONNECTING"
	case Connected:
		return "CONNECTED"
	default:
		return "DISCONNECTED"
	}
}

// Frame is one inbound message routed to a subscription.
type Frame struct {
	Subscription string
	Destination  string
	Body         []byte
}

// Transport opens links to the broker.
type Transport interface {
	Dial(ctx context.Context, credential string) (Link, error)
}

// Link is an open broker connection. Frames is closed when the link goes down.
type Link interface {
	Subscribe(id, destination string) error
	Unsubscribe(id string) error
	Send(destination string, body []byte) error
	Frames() <-chan Frame
	Close() error
}
