package workflow

import (
	"log"
	"sync"

	"github.com/passportpix/passportpix/internal/config"
	"github.com/passportpix/passportpix/internal/id"
)

// Registry holds the in-memory sessions. Sessions have no durable
// state; a process restart simply starts everyone over.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	logger     *log.Logger
	rules      config.PhotoRules
	compliance ComplianceChecker
	payments   PaymentVerifier
}

func NewRegistry(logger *log.Logger, rules config.PhotoRules, compliance ComplianceChecker, payments PaymentVerifier) *Registry {
	return &Registry{
		sessions:   make(map[string]*Session),
		logger:     logger,
		rules:      rules,
		compliance: compliance,
		payments:   payments,
	}
}

func (r *Registry) Create() *Session {
	s := NewSession(id.New(), r.logger, r.rules, r.compliance, r.payments)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID()] = s
	return s
}

func (r *Registry) Get(sessionID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionID]
	return s, ok
}

func (r *Registry) Delete(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
}
