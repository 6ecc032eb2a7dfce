package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/quickienotes/quickie/internal/remote"
	"github.com/quickienotes/quickie/internal/storage"
)

// Identity is the signed-in user as the client sees it.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Token  string `json:"token"`
}

// Event signals an authentication transition to subscribers. UserID is set
// only when SignedIn is true.
type Event struct {
	SignedIn bool
	UserID   string
}

// Session tracks the current identity and persists it, with an expiry, so
// a restart within the expiry window stays signed in. Subscribers are
// notified on transitions only — not on every observation of the state.
type Session struct {
	mu       sync.Mutex
	kv       storage.LocalKV
	client   *remote.Client
	identity *Identity
	subs     []func(Event)
}

func NewSession(kv storage.LocalKV, client *remote.Client) *Session {
	return &Session{kv: kv, client: client}
}

// Subscribe registers a transition listener. Listeners are invoked
// synchronously in subscription order.
func (s *Session) Subscribe(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// Current returns the signed-in identity, or nil.
func (s *Session) Current() *Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return nil
	}
	id := *s.identity
	return &id
}

// Restore loads a persisted identity if its expiry has not passed. An
// expired or missing session leaves the client signed out and clears the
// stale keys.
func (s *Session) Restore() error {
	expiryStr, hasExpiry, err := s.kv.Get(storage.AuthExpiryKey)
	if err != nil {
		return fmt.Errorf("failed to read auth expiry: %w", err)
	}

	if hasExpiry {
		expiry, err := strconv.ParseInt(expiryStr, 10, 64)
		if err != nil || time.Now().UnixMilli() > expiry {
			s.clearPersisted()
			return nil
		}
	}

	userJSON, ok, err := s.kv.Get(storage.UserKey)
	if err != nil {
		return fmt.Errorf("failed to read stored user: %w", err)
	}
	if !ok {
		return nil
	}

	// A user record with no expiry alongside it has no authority; treat the
	// pair as stale rather than granting an unbounded session.
	if !hasExpiry {
		s.clearPersisted()
		return nil
	}

	var identity Identity
	if err := json.Unmarshal([]byte(userJSON), &identity); err != nil {
		s.clearPersisted()
		return nil
	}

	s.client.SetToken(identity.Token)
	s.setIdentity(&identity)
	return nil
}

// SignIn authenticates against the backend and persists the session.
func (s *Session) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	resp, err := s.client.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.establish(resp)
}

// Register creates an account and signs in.
func (s *Session) Register(ctx context.Context, email, password string) (*Identity, error) {
	resp, err := s.client.Register(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.establish(resp)
}

func (s *Session) establish(resp *remote.LoginResponse) (*Identity, error) {
	identity := &Identity{
		UserID: resp.UserID,
		Email:  resp.Email,
		Token:  resp.Token,
	}

	userJSON, err := json.Marshal(identity)
	if err != nil {
		return nil, fmt.Errorf("failed to encode identity: %w", err)
	}
	if err := s.kv.Set(storage.UserKey, string(userJSON)); err != nil {
		log.Printf("Failed to persist session: %v", err)
	}

	// Token expiry is authoritative; stored in epoch ms like everything else.
	expiryMillis := resp.ExpiresAt * 1000
	if err := s.kv.Set(storage.AuthExpiryKey, strconv.FormatInt(expiryMillis, 10)); err != nil {
		log.Printf("Failed to persist session expiry: %v", err)
	}

	s.setIdentity(identity)
	return identity, nil
}

// SignOut clears the persisted session. Local notes are left to the
// caller: the working set survives a logout unless explicitly cleared.
func (s *Session) SignOut() {
	s.clearPersisted()
	s.client.SetToken("")

	s.mu.Lock()
	wasSignedIn := s.identity != nil
	s.identity = nil
	subs := append([]func(Event){}, s.subs...)
	s.mu.Unlock()

	if wasSignedIn {
		for _, fn := range subs {
			fn(Event{SignedIn: false})
		}
	}
}

func (s *Session) setIdentity(identity *Identity) {
	s.mu.Lock()
	wasSignedOut := s.identity == nil
	s.identity = identity
	subs := append([]func(Event){}, s.subs...)
	s.mu.Unlock()

	// Only the signed-out -> signed-in edge triggers subscribers; a token
	// refresh for the same user is not a transition.
	if wasSignedOut {
		for _, fn := range subs {
			fn(Event{SignedIn: true, UserID: identity.UserID})
		}
	}
}

func (s *Session) clearPersisted() {
	if err := s.kv.Remove(storage.UserKey); err != nil {
		log.Printf("Failed to remove stored user: %v", err)
	}
	if err := s.kv.Remove(storage.AuthExpiryKey); err != nil {
		log.Printf("Failed to remove stored expiry: %v", err)
	}
}
