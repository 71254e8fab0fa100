package broadcast

import "sync"

// ChanSubscriber buffers messages on a channel. Used by the SSE stream.
type ChanSubscriber struct {
	ch     chan Message
	mu     sync.Mutex
	closed bool
}

// NewChanSubscriber creates a subscriber with the given buffer size.
func NewChanSubscriber(buffer int) *ChanSubscriber {
	return &ChanSubscriber{ch: make(chan Message, buffer)}
}

// Messages is closed when the hub removes the subscriber.
func (c *ChanSubscriber) Messages() <-chan Message {
	return c.ch
}

func (c *ChanSubscriber) Deliver(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrSlowSubscriber
	}
	select {
	case c.ch <- msg:
		return nil
	default:
		return ErrSlowSubscriber
	}
}

func (c *ChanSubscriber) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
}
