package procsync

import (
	"context"
	"errors"
	"sync"
)

// ErrChannelClosed is returned for operations on a closed channel, and by
// Save when the message stream ends before a response arrives.
var ErrChannelClosed = errors.New("sync channel closed")

const channelBuffer = 16

// Channel is a bidirectional message link to the peer process. Messages()
// yields incoming messages until the channel ends; Faults() yields at most
// one channel-level fault. Send is safe for concurrent use.
type Channel interface {
	Send(ctx context.Context, msg *Message) error
	Messages() <-chan *Message
	Faults() <-chan error
	Close() error
}

// PairChannel is one end of an in-memory channel pair. Each end owns its
// outgoing stream and closes it on Close, which ends the peer's Messages
// stream.
type PairChannel struct {
	mu     sync.RWMutex
	closed bool

	out    chan *Message
	in     chan *Message
	faults chan error
}

// Pair creates two connected in-memory channel ends: messages sent on one
// arrive on the other.
func Pair() (*PairChannel, *PairChannel) {
	ab := make(chan *Message, channelBuffer)
	ba := make(chan *Message, channelBuffer)

	a := &PairChannel{out: ab, in: ba, faults: make(chan error, 1)}
	b := &PairChannel{out: ba, in: ab, faults: make(chan error, 1)}
	return a, b
}

func (c *PairChannel) Send(ctx context.Context, msg *Message) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrChannelClosed
	}

	select {
	case c.out <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *PairChannel) Messages() <-chan *Message {
	return c.in
}

func (c *PairChannel) Faults() <-chan error {
	return c.faults
}

// Fault injects a channel-level fault visible to this end's consumer.
// Only the first fault is retained.
func (c *PairChannel) Fault(err error) {
	select {
	case c.faults <- err:
	default:
	}
}

func (c *PairChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.out)
	return nil
}
