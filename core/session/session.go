// Package session holds the client-held authentication context: the session
// state store, the navigation guard and the passive token verifier.
package session

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/user"
)

// ErrInvalidSessionData flags a success action invoked without the required
// fields. This is a caller defect: success actions must only run after a
// successful authentication response.
var ErrInvalidSessionData = errors.New("invalid session data")

type (
	// Entry is the durable form of a session, persisted so it survives a
	// process restart.
	Entry struct {
		Token string    `json:"token"`
		User  user.User `json:"user"`
	}

	// Keyring persists the session entry across restarts.
	Keyring interface {
		Save(entry Entry) error
		// Load returns ok=false when no entry is stored.
		Load() (entry Entry, ok bool, err error)
		Clear() error
	}

	// Snapshot is an atomic copy of the session state. Authenticated implies
	// User != nil and Token != ""; the reverse does not hold (a stale user and
	// token may linger with Authenticated false after an invalidation).
	Snapshot struct {
		User          *user.User
		Token         string
		Authenticated bool
	}

	// Store is the single authoritative holder of the session. All mutations
	// go through LoginSucceeded, RegisterSucceeded and Invalidate; readers get
	// consistent snapshots and never observe a half-written session.
	Store struct {
		mu      sync.RWMutex
		snap    Snapshot
		keyring Keyring
		logger  core.Logger
	}
)

func (s Snapshot) IsAdmin() bool {
	return s.Authenticated && s.User != nil && s.User.IsAdmin()
}

// NewStore creates a session store, rehydrated from the keyring if it holds a
// usable entry. A corrupt or partial entry reads as an absent session; process
// start must never fail on bad local state.
func NewStore(keyring Keyring, logger core.Logger) *Store {
	s := &Store{keyring: keyring, logger: logger}
	if keyring == nil {
		return s
	}

	entry, ok, err := keyring.Load()
	if err != nil {
		logger.Warn("loading persisted session", err)
		return s
	}
	if ok && entry.Token != "" && entry.User.ID != "" {
		usr := entry.User
		s.snap = Snapshot{User: &usr, Token: entry.Token, Authenticated: true}
	}
	return s
}

// LoginSucceeded installs a fresh authenticated session, overwriting any prior
// one, and persists it to the keyring.
func (s *Store) LoginSucceeded(usr user.User, token string) error {
	if token == "" || usr.ID == "" {
		return ErrInvalidSessionData
	}

	s.mu.Lock()
	u := usr
	s.snap = Snapshot{User: &u, Token: token, Authenticated: true}
	s.mu.Unlock()

	if s.keyring != nil {
		if err := s.keyring.Save(Entry{Token: token, User: usr}); err != nil {
			// persistence is best-effort: the in-memory session stays valid
			s.logger.Warn("persisting session", err)
		}
	}
	return nil
}

// RegisterSucceeded has the same contract as LoginSucceeded: registration
// auto-authenticates the new account.
func (s *Store) RegisterSucceeded(usr user.User, token string) error {
	return s.LoginSucceeded(usr, token)
}

// Invalidate clears the session wholesale and removes the persisted entry.
// Invalidating an already-empty session is a no-op.
func (s *Store) Invalidate() {
	s.mu.Lock()
	empty := s.snap.User == nil && s.snap.Token == "" && !s.snap.Authenticated
	s.snap = Snapshot{}
	s.mu.Unlock()

	if empty {
		return
	}
	if s.keyring != nil {
		if err := s.keyring.Clear(); err != nil {
			s.logger.Warn("clearing persisted session", err)
		}
	}
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Authenticated
}

func (s *Store) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.IsAdmin()
}

func (s *Store) CurrentUser() (user.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.snap.Authenticated || s.snap.User == nil {
		return user.User{}, false
	}
	return *s.snap.User, true
}

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Token
}

// Snapshot returns a consistent copy of the session state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.snap
	if snap.User != nil {
		u := *snap.User
		snap.User = &u
	}
	return snap
}
