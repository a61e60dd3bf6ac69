// Package store defines the key/value seam handlers use to persist dialog
// state across process recreation, with in-process implementations.
//
// Store methods are synchronous and never return errors. Backends that can
// fail report to a diagnostics.Sink and behave as if the key were absent.
package store

import "sync"

// Store is a string key/value store. Implementations must be safe for
// concurrent use by several handlers writing distinct keys.
type Store interface {
	// SaveState stores value under key, replacing any previous value.
	SaveState(key, value string)
	// RestoreState returns the value stored under key.
	RestoreState(key string) (string, bool)
	// Clear removes key.
	Clear(key string)
}

// Nop is a Store that keeps nothing. It is the handlers' default.
type Nop struct{}

func (Nop) SaveState(string, string)           {}
func (Nop) RestoreState(string) (string, bool) { return "", false }
func (Nop) Clear(string)                       {}

// OrNop returns s, or Nop when s is nil.
func OrNop(s Store) Store {
	if s == nil {
		return Nop{}
	}
	return s
}

// Memory is a Store backed by a map. State survives handler recreation but
// not process death.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) SaveState(key, value string) {
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
}

func (m *Memory) RestoreState(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *Memory) Clear(key string) {
	m.mu.Lock()
	delete(m.values, key)
	m.mu.Unlock()
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}

// Prefixed namespaces every key of an underlying Store, so several handlers
// can share one backend.
type Prefixed struct {
	Store  Store
	Prefix string
}

func (p Prefixed) SaveState(key, value string) { p.Store.SaveState(p.Prefix+key, value) }

func (p Prefixed) RestoreState(key string) (string, bool) {
	return p.Store.RestoreState(p.Prefix + key)
}

func (p Prefixed) Clear(key string) { p.Store.Clear(p.Prefix + key) }
