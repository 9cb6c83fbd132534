// Package store persists the few values the logging core keeps across
// process restarts: the user ID, the log-user ID and a cached
// configuration blob.
//
// Stores are last-write-wins with read-after-write consistency within one
// process. No transactional guarantees.
package store

import "sync"

// Store is the persistent key-value collaborator.
type Store interface {
	UserID() string
	SetUserID(id string) error
	LogUserID() string
	SetLogUserID(id string) error
	ClientConfig() []byte
	SetClientConfig(blob []byte) error
}

// Memory is an in-process Store.
type Memory struct {
	mu     sync.Mutex
	record record
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// UserID implements Store.
func (m *Memory) UserID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.record.UserID
}

// SetUserID implements Store.
func (m *Memory) SetUserID(id string) error {
	m.mu.Lock()
	m.record.UserID = id
	m.mu.Unlock()
	return nil
}

// LogUserID implements Store.
func (m *Memory) LogUserID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.record.LogUserID
}

// SetLogUserID implements Store.
func (m *Memory) SetLogUserID(id string) error {
	m.mu.Lock()
	m.record.LogUserID = id
	m.mu.Unlock()
	return nil
}

// ClientConfig implements Store.
func (m *Memory) ClientConfig() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.record.ClientConfig...)
}

// SetClientConfig implements Store.
func (m *Memory) SetClientConfig(blob []byte) error {
	m.mu.Lock()
	m.record.ClientConfig = append([]byte(nil), blob...)
	m.mu.Unlock()
	return nil
}

// Verify implementations.
var (
	_ Store = (*Memory)(nil)
	_ Store = (*File)(nil)
)
