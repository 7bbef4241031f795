package wizard

import (
	"errors"
	"sync"
)

// ErrSessionNotFound is returned when a session id is unknown.
var ErrSessionNotFound = errors.New("session not found")

// Manager owns the live wizard sessions of the gateway. Sessions are
// independent; the manager only maps ids to sessions.
type Manager struct {
	source    TemplateSource
	validator DatasetValidator
	submitter Submitter

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a Manager wiring new sessions to the given
// collaborators.
func NewManager(source TemplateSource, validator DatasetValidator, submitter Submitter) *Manager {
	return &Manager{
		source:    source,
		validator: validator,
		submitter: submitter,
		sessions:  make(map[string]*Session),
	}
}

// Create starts a new wizard session.
// Parameters: none.
// Returns:
//   - *Session: the new session, registered under its id.
func (m *Manager) Create() *Session {
	s := NewSession(m.source, m.validator, m.submitter)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get looks up a session by id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete removes a session.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
