// Package state provides Cell, a value persisted under a storage key that is
// namespaced by the active session.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/rcliao/nexuslearn/internal/model"
	"github.com/rcliao/nexuslearn/internal/store"
)

// ErrStorageRead marks a stored value that could not be decoded. It is
// logged and recorded, never returned from Get.
var ErrStorageRead = errors.New("storage read failure")

// Owner reports the active session and announces changes to it.
// *identity.Store satisfies it.
type Owner interface {
	Current() *model.Session
	Subscribe(fn func(*model.Session)) (unsubscribe func())
}

// ScopedKey returns the storage key of logicalKey for the account email.
func ScopedKey(logicalKey, email string) string {
	return logicalKey + "_" + email
}

// Cell holds a T bound to a logical key and to whoever the current session
// is. Writes persist to ScopedKey(key, owner); with no session the cell
// holds the initial value and never touches storage.
type Cell[T any] struct {
	kv      store.KV
	key     string
	initial T
	logger  *log.Logger

	mu      sync.Mutex
	owner   string
	value   T
	lastErr error
	unsub   func()
}

// New creates a cell and binds it to the owner's current session. A nil
// logger discards warnings.
func New[T any](kv store.KV, owner Owner, key string, initial T, logger *log.Logger) *Cell[T] {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	c := &Cell[T]{
		kv:      kv,
		key:     key,
		initial: initial,
		logger:  logger,
		value:   initial,
	}
	c.rebind(owner.Current())
	c.unsub = owner.Subscribe(c.rebind)
	return c
}

// Close detaches the cell from session changes.
func (c *Cell[T]) Close() {
	if c.unsub != nil {
		c.unsub()
	}
}

// Get returns the last known value.
func (c *Cell[T]) Get() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Set replaces the value and persists it.
func (c *Cell[T]) Set(v T) {
	c.Update(func(T) T { return v })
}

// Update replaces the value with fn(previous) and persists it. fn must not
// mutate its argument in place. It is a no-op without a session.
func (c *Cell[T]) Update(fn func(prev T) T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.owner == "" {
		return
	}
	c.applyLocked(fn)
}

// UpdateAs is Update restricted to the given owner. It reports false and
// leaves the cell untouched when the session has moved to someone else, so
// work started for one account can't land in another's records.
func (c *Cell[T]) UpdateAs(owner string, fn func(prev T) T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.owner == "" || c.owner != owner {
		return false
	}
	c.applyLocked(fn)
	return true
}

// Owner returns the email the cell is currently bound to, or "".
func (c *Cell[T]) Owner() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.owner
}

// Key returns the storage key in use, or "" with no session.
func (c *Cell[T]) Key() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.owner == "" {
		return ""
	}
	return ScopedKey(c.key, c.owner)
}

// Err returns the last storage error the cell swallowed.
func (c *Cell[T]) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Cell[T]) applyLocked(fn func(T) T) {
	c.value = fn(c.value)

	b, err := json.Marshal(c.value)
	if err != nil {
		c.warnLocked(fmt.Errorf("encode %s: %w", c.key, err))
		return
	}
	k := ScopedKey(c.key, c.owner)
	if err := c.kv.Set(context.Background(), k, string(b)); err != nil {
		c.warnLocked(fmt.Errorf("persist %s: %w", k, err))
	}
}

// rebind swaps the visible value to the new owner's copy.
func (c *Cell[T]) rebind(sess *model.Session) {
	owner := ""
	if sess != nil {
		owner = sess.Email
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if owner == c.owner && owner != "" {
		return
	}
	c.owner = owner
	c.value = c.loadLocked()
}

func (c *Cell[T]) loadLocked() T {
	if c.owner == "" {
		return c.initial
	}
	k := ScopedKey(c.key, c.owner)
	raw, ok, err := c.kv.Get(context.Background(), k)
	if err != nil {
		c.warnLocked(fmt.Errorf("%w: %s: %v", ErrStorageRead, k, err))
		return c.initial
	}
	if !ok {
		return c.initial
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		c.warnLocked(fmt.Errorf("%w: %s: %v", ErrStorageRead, k, err))
		return c.initial
	}
	return v
}

func (c *Cell[T]) warnLocked(err error) {
	c.lastErr = err
	c.logger.Printf("warning: %v", err)
}
