package shutdown

import "sync"

// Notifier is a one-shot broadcast with no payload.
//
// Fire closes a shared channel, so every Listener observes it, including
// listeners subscribed after the fact.
type Notifier struct {
	once sync.Once
	ch   chan struct{}
}

// NewNotifier creates a Notifier that has not fired.
func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan struct{})}
}

// Fire broadcasts shutdown. Calls after the first have no effect.
func (n *Notifier) Fire() {
	n.once.Do(func() {
		close(n.ch)
	})
}

// Fired reports whether Fire has been called.
func (n *Notifier) Fired() bool {
	select {
	case <-n.ch:
		return true
	default:
		return false
	}
}

// Subscribe returns a new Listener.
func (n *Notifier) Subscribe() *Listener {
	return &Listener{notify: n.ch}
}

// Listener is one subscriber's latched view of a Notifier.
// A Listener is owned by a single goroutine.
type Listener struct {
	notify   <-chan struct{}
	shutdown bool
}

// Poll reports whether shutdown has been observed, latching the result.
// It never blocks.
func (l *Listener) Poll() bool {
	if l.shutdown {
		return true
	}
	select {
	case <-l.notify:
		l.shutdown = true
	default:
	}
	return l.shutdown
}

// Wait blocks until shutdown fires.
func (l *Listener) Wait() {
	if l.shutdown {
		return
	}
	<-l.notify
	l.shutdown = true
}

// Done returns a channel closed when shutdown fires. It does not latch;
// call Poll after receiving from it.
func (l *Listener) Done() <-chan struct{} {
	return l.notify
}

// IsShutdown reports the latched state without checking the Notifier.
func (l *Listener) IsShutdown() bool {
	return l.shutdown
}
