// Package session tracks per-chat conversation state. One session exists per
// (tenant, chat) pair; absence of a session means the chat is idle. Sessions
// live in memory only and reset on process restart.
package session

import "sync"

// State names the position of a chat inside one of the flows.
type State string

// Purchase flow states.
const (
	StateIdle            State = "idle"
	StateWelcome         State = "welcome"
	StatePremium         State = "premium"
	StatePayUPI          State = "pay_upi"
	StatePayCrypto       State = "pay_crypto"
	StateAwaitShotUPI    State = "await_screenshot_upi"
	StateAwaitShotCrypto State = "await_screenshot_crypto"
)

// Admin panel states.
const (
	StateAdminMenu         State = "admin_menu"
	StateAwaitWelcomeText  State = "await_welcome_text"
	StateAwaitWelcomePhoto State = "await_welcome_photo"
	StateAwaitPremiumText  State = "await_premium_text"
	StateAwaitPremiumPhoto State = "await_premium_photo"
	StateAwaitUPIQR        State = "await_upi_qr"
	StateAwaitUPIMsg       State = "await_upi_msg"
	StateAwaitCryptoQR     State = "await_crypto_qr"
	StateAwaitCryptoMsg    State = "await_crypto_msg"
	StateAwaitDemoURL      State = "await_demo_url"
	StateAwaitHowToURL     State = "await_howto_url"
	StateAwaitConfirmedMsg State = "await_confirmed_msg"
	StateAwaitBroadcast    State = "await_broadcast"
	StateAwaitAddAdmin     State = "await_add_admin"
)

// IsAdmin reports whether s belongs to the admin panel flow.
func (s State) IsAdmin() bool {
	switch s {
	case StateAdminMenu, StateAwaitWelcomeText, StateAwaitWelcomePhoto,
		StateAwaitPremiumText, StateAwaitPremiumPhoto,
		StateAwaitUPIQR, StateAwaitUPIMsg,
		StateAwaitCryptoQR, StateAwaitCryptoMsg,
		StateAwaitDemoURL, StateAwaitHowToURL,
		StateAwaitConfirmedMsg, StateAwaitBroadcast, StateAwaitAddAdmin:
		return true
	}
	return false
}

// AwaitsScreenshot reports whether s expects a payment screenshot next.
func (s State) AwaitsScreenshot() bool {
	return s == StateAwaitShotUPI || s == StateAwaitShotCrypto
}

// AwaitsInput reports whether s expects a free-form admin message next.
func (s State) AwaitsInput() bool {
	return s.IsAdmin() && s != StateAdminMenu
}

// Key identifies one conversation.
type Key struct {
	Tenant string
	ChatID int64
}

// Session holds the current state plus short-lived scratch values such as
// the message id of the last rendered view.
type Session struct {
	State   State
	Scratch map[string]string
}

// Store is a concurrency-safe map of live sessions.
type Store struct {
	mu       sync.RWMutex
	sessions map[Key]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[Key]*Session)}
}

// State returns the current state for the key, StateIdle if none exists.
func (s *Store) State(key Key) State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sess, ok := s.sessions[key]; ok {
		return sess.State
	}
	return StateIdle
}

// SetState transitions the key to the given state, creating the session if
// needed. Setting StateIdle removes the session entirely.
func (s *Store) SetState(key Key, st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st == StateIdle {
		delete(s.sessions, key)
		return
	}
	sess, ok := s.sessions[key]
	if !ok {
		sess = &Session{Scratch: make(map[string]string)}
		s.sessions[key] = sess
	}
	sess.State = st
}

// Put stores a scratch value on the key's session. No-op when the chat is
// idle; scratch never outlives its session.
func (s *Store) Put(key Key, name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[key]; ok {
		sess.Scratch[name] = value
	}
}

// Get returns a scratch value, empty if missing or the chat is idle.
func (s *Store) Get(key Key, name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sess, ok := s.sessions[key]; ok {
		return sess.Scratch[name]
	}
	return ""
}

// Reset drops the session for the key. Equivalent to SetState(key, StateIdle).
func (s *Store) Reset(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
}

// Len reports the number of live sessions. Used by shutdown logging.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
