package channel

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrStopNotSupported is returned when a connection does not support graceful shutdown.
var ErrStopNotSupported = errors.New("channel connection stop not supported")

// InboundHandler is invoked for every event received from the platform.
type InboundHandler func(ctx context.Context, event Event) error

// Sender delivers outbound messages and answers button presses.
type Sender interface {
	Send(ctx context.Context, msg OutboundMessage) error
	// AnswerButton acknowledges a callback; a non-empty toast is shown to the user.
	AnswerButton(ctx context.Context, callbackID, toast string) error
}

// Receiver opens a long-lived inbound connection.
type Receiver interface {
	Connect(ctx context.Context, handler InboundHandler) (Connection, error)
}

// Adapter is a platform implementation able to both receive and send.
type Adapter interface {
	Sender
	Receiver
}

// Connection is a running inbound connection.
type Connection interface {
	Stop(ctx context.Context) error
	Running() bool
}

// BaseConnection is a default Connection implementation backed by a stop function.
type BaseConnection struct {
	stop    func(ctx context.Context) error
	running atomic.Bool
}

// NewConnection creates a running BaseConnection.
func NewConnection(stop func(ctx context.Context) error) *BaseConnection {
	conn := &BaseConnection{stop: stop}
	conn.running.Store(true)
	return conn
}

// Stop gracefully shuts down the connection.
func (c *BaseConnection) Stop(ctx context.Context) error {
	if c.stop == nil {
		return ErrStopNotSupported
	}
	if !c.running.Swap(false) {
		return nil
	}
	return c.stop(ctx)
}

// Running reports whether the connection is still active.
func (c *BaseConnection) Running() bool {
	return c.running.Load()
}
