// SPDX-License-Identifier: Apache-2.0

// Package blackboard provides the shared state store mediating all data flow
// between behavior tree nodes. Clients never touch the store directly; each
// declares per-key read/write capabilities and every access is checked
// against that declaration.
package blackboard

import (
	"sync"

	"github.com/cxbxmxcx/agenticbt/pkg/errors"

	"github.com/cxbxmxcx/agenticbt/pkg/llm"
)

// Access is a per-key capability bitmask.
type Access uint8

const (
	// Read grants Get/GetOr on a key.
	Read Access = 1 << iota
	// Write grants Set on a key.
	Write
)

// ReadWrite grants both capabilities.
const ReadWrite = Read | Write

// Reserved keys shared by every conversation tree.
const (
	// KeyQuestion carries the user's free-text input for the current turn.
	KeyQuestion = "question"
	// KeyContent carries the latest agent output.
	KeyContent = "content"
	// KeyThread carries the shared conversation thread.
	KeyThread = "thread"
)

// Board is the process-wide key/value store. Keys are overwritten in place
// and never removed. Ticking is single-threaded, but the store guards its
// maps anyway so a misbehaving tool goroutine cannot corrupt it.
type Board struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewBoard creates an empty board.
func NewBoard() *Board {
	return &Board{values: make(map[string]any)}
}

// NewConversationBoard creates a board seeded with the reserved conversation
// keys: an empty thread and empty content.
func NewConversationBoard() *Board {
	b := NewBoard()
	b.values[KeyThread] = llm.NewThread()
	b.values[KeyContent] = ""
	return b
}

// Client returns a named handle onto the board with no capabilities. Keys
// must be registered before use.
func (b *Board) Client(name string) *Client {
	return &Client{
		board:  b,
		name:   name,
		access: make(map[string]Access),
	}
}

// Keys returns the keys currently present on the board.
func (b *Board) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.values))
	for k := range b.values {
		keys = append(keys, k)
	}
	return keys
}

func (b *Board) get(key string) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.values[key]
	return v, ok
}

func (b *Board) set(key string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[key] = value
}

// Client is a capability-scoped handle onto a board. An unregistered key is
// indistinguishable from one registered without the needed capability.
type Client struct {
	board  *Board
	name   string
	access map[string]Access
}

// Name returns the client name, used in access-denial errors and logs.
func (c *Client) Name() string { return c.name }

// RegisterKey declares the client's capabilities on a key. Repeat
// registrations accumulate.
func (c *Client) RegisterKey(key string, access Access) {
	c.access[key] |= access
}

func (c *Client) denied(key, op string) error {
	return errors.New(errors.CodeBlackboardAccess, "blackboard access denied", nil).
		WithContext("client", c.name).
		WithContext("key", key).
		WithContext("operation", op)
}

// Get reads a key. It fails with BLACKBOARD_ACCESS when the client has no
// READ capability on the key, and with NOT_FOUND when the key is absent.
func (c *Client) Get(key string) (any, error) {
	if c.access[key]&Read == 0 {
		return nil, c.denied(key, "read")
	}
	v, ok := c.board.get(key)
	if !ok {
		return nil, errors.New(errors.CodeNotFound, "blackboard key not set", nil).
			WithContext("client", c.name).
			WithContext("key", key)
	}
	return v, nil
}

// GetOr reads a key, returning fallback when the key is absent or the client
// lacks READ capability.
func (c *Client) GetOr(key string, fallback any) any {
	v, err := c.Get(key)
	if err != nil {
		return fallback
	}
	return v
}

// Set writes a key. It fails with BLACKBOARD_ACCESS when the client has no
// WRITE capability on the key.
func (c *Client) Set(key string, value any) error {
	if c.access[key]&Write == 0 {
		return c.denied(key, "write")
	}
	c.board.set(key, value)
	return nil
}

// GetString reads a key and coerces it to a string; non-strings and failed
// reads return the fallback.
func (c *Client) GetString(key, fallback string) string {
	if s, ok := c.GetOr(key, fallback).(string); ok {
		return s
	}
	return fallback
}
