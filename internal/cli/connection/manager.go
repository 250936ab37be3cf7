package connection

import (
	"context"
	"errors"
	"sync"
)

// ErrNotConnected is returned when no server is connected.
var ErrNotConnected = errors.New("not connected")

// Manager holds the current connection of an interactive session.
type Manager struct {
	opts *DialOptions

	mu      sync.Mutex
	current *Client
}

// NewManager creates a connection manager.
func NewManager(opts *DialOptions) *Manager {
	return &Manager{opts: opts}
}

// Connect dials addr and makes it the current connection, closing the
// previous one. On failure the previous connection is kept.
func (m *Manager) Connect(ctx context.Context, addr string) error {
	c, err := Dial(ctx, addr, m.opts)
	if err != nil {
		return err
	}

	m.mu.Lock()
	prev := m.current
	m.current = c
	m.mu.Unlock()

	if prev != nil {
		_ = prev.Close()
	}
	return nil
}

// Disconnect closes the current connection, if any.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	c := m.current
	m.current = nil
	m.mu.Unlock()

	if c == nil {
		return nil
	}
	return c.Close()
}

// Current returns the current connection.
func (m *Manager) Current() (*Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, ErrNotConnected
	}
	return m.current, nil
}

// IsConnected returns true if connected to a server.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}
