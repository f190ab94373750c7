package services

import (
	"sync"

	"github.com/gofiber/fiber/v2"
)

// SessionState is the per-device protocol state that must not live in shared
// storage: which vacate requests this client initiated (so it never prompts
// itself to confirm its own request) and whether a finalization attempt is in
// flight (so a failed attempt can be retried). One instance per connected
// scoring session.
type SessionState struct {
	mu                sync.Mutex
	requestedVacates  map[string]bool
	finalizeAttempted map[string]bool
}

var defaultSessions = NewSessionRegistry()

// sessionFromCtx resolves the acting participant's session from the gateway
// identity header. Unauthenticated calls get no session and therefore no
// self-prompt suppression.
func sessionFromCtx(c *fiber.Ctx) *SessionState {
	memberID, _ := c.Locals("user_id").(string)
	if memberID == "" {
		return nil
	}
	return defaultSessions.Get(memberID)
}

// SessionRegistry hands out one SessionState per scoring participant. The
// registry is process-local on purpose: its contents must never reach the
// shared store.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*SessionState
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]*SessionState)}
}

func (r *SessionRegistry) Get(memberID string) *SessionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[memberID]; ok {
		return s
	}
	s := NewSessionState()
	r.sessions[memberID] = s
	return s
}

func NewSessionState() *SessionState {
	return &SessionState{
		requestedVacates:  make(map[string]bool),
		finalizeAttempted: make(map[string]bool),
	}
}

func (s *SessionState) MarkVacateRequested(gameID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requestedVacates[gameID] = true
}

func (s *SessionState) ClearVacateRequested(gameID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.requestedVacates, gameID)
}

// RequestedVacate reports whether this session initiated the vacate on a game.
func (s *SessionState) RequestedVacate(gameID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requestedVacates[gameID]
}

// BeginFinalize marks a finalization attempt for a match. Reports false if
// one is already in flight from this session.
func (s *SessionState) BeginFinalize(matchID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalizeAttempted[matchID] {
		return false
	}
	s.finalizeAttempted[matchID] = true
	return true
}

// EndFinalize clears the in-flight marker once an attempt concludes, whether
// it succeeded, lost the claim, or failed mid-sequence. Every remote step is
// idempotent, so a later retry replays safely.
func (s *SessionState) EndFinalize(matchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.finalizeAttempted, matchID)
}
