// Package store owns the note collection. All mutations flow through the
// reducer from a single coordination point; persistence and remote
// mirroring are side effects that never roll back an applied change.
package store

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quickienotes/quickie/internal/auth"
	"github.com/quickienotes/quickie/internal/media"
	"github.com/quickienotes/quickie/internal/notes"
	"github.com/quickienotes/quickie/internal/remote"
	"github.com/quickienotes/quickie/internal/storage"
)

// PersistDelay is the trailing-edge debounce window for local writes.
const PersistDelay = 500 * time.Millisecond

// Store coordinates the reducer state with local persistence and, while a
// session is active, the remote store.
type Store struct {
	mu    sync.Mutex
	state notes.State

	kv     storage.LocalKV
	remote remote.Store
	blobs  media.Source

	persistDelay time.Duration
	persistTimer *time.Timer
	closed       bool

	userID   string
	lastSync time.Time
}

// Option tweaks a Store; used by tests to shrink the debounce window.
type Option func(*Store)

func WithPersistDelay(d time.Duration) Option {
	return func(s *Store) { s.persistDelay = d }
}

func New(kv storage.LocalKV, remoteStore remote.Store, blobs media.Source, opts ...Option) *Store {
	s := &Store{
		state:        notes.NewState(),
		kv:           kv,
		remote:       remoteStore,
		blobs:        blobs,
		persistDelay: PersistDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns a snapshot of the current state. Slices are shared but
// never mutated in place by the store; treat them as read-only.
func (s *Store) State() notes.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastSyncAt reports when the last reconciliation pass finished. Zero if
// none has run. Diagnostic only.
func (s *Store) LastSyncAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSync
}

// Load reads the persisted note list and dispatches the initial SetNotes.
// A missing key or corrupt payload degrades to an empty list.
func (s *Store) Load(ctx context.Context) {
	value, ok, err := s.kv.Get(storage.NotesKey)
	if err != nil {
		log.Printf("Failed to load notes: %v", err)
	}

	var list []notes.Note
	if ok && err == nil {
		if err := json.Unmarshal([]byte(value), &list); err != nil {
			log.Printf("Failed to decode stored notes: %v", err)
			list = nil
		}
	}
	if list == nil {
		list = []notes.Note{}
	}

	s.dispatch(notes.SetNotes{Notes: list})
}

// AddNote creates a note with a provisional local ID, applies it
// optimistically and mirrors it to the remote store when signed in. The
// capacity checks run before any state mutation; a limit violation is the
// only error surfaced to the caller.
func (s *Store) AddNote(ctx context.Context, title, content string, attachments []notes.Attachment) (notes.Note, error) {
	if err := notes.ValidateNew(title, content, attachments); err != nil {
		return notes.Note{}, err
	}
	if err := notes.ValidateAttachments(nil, attachments); err != nil {
		return notes.Note{}, err
	}

	s.mu.Lock()
	if len(s.state.Notes) >= notes.MaxNotesPerUser {
		s.mu.Unlock()
		return notes.Note{}, notes.ErrNoteLimit
	}
	s.mu.Unlock()

	now := notes.NowMillis()
	note := notes.Note{
		ID:          "local-" + uuid.NewString(),
		Title:       title,
		Content:     content,
		Attachments: append([]notes.Attachment{}, attachments...),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.dispatch(notes.AddNote{Note: note})
	s.schedulePersist()

	if userID := s.currentUser(); userID != "" {
		note = s.pushNote(ctx, userID, note)
	}

	return note, nil
}

// UpdateNote replaces the note's title, content and attachment set. An
// unknown ID is silently ignored. While signed in, the edit is mirrored
// remotely and the attachment sets are diffed by URI: dropped attachments
// are deleted remotely best-effort, new ones uploaded and rewritten.
func (s *Store) UpdateNote(ctx context.Context, id, title, content string, attachments []notes.Attachment) error {
	if err := notes.ValidateAttachments(nil, attachments); err != nil {
		return err
	}

	s.mu.Lock()
	var existing *notes.Note
	for i := range s.state.Notes {
		if s.state.Notes[i].ID == id {
			existing = &s.state.Notes[i]
			break
		}
	}
	if existing == nil {
		s.mu.Unlock()
		return nil
	}
	before := *existing
	s.mu.Unlock()

	updated := notes.Note{
		ID:          id,
		Title:       title,
		Content:     content,
		Attachments: append([]notes.Attachment{}, attachments...),
		CreatedAt:   before.CreatedAt,
		UpdatedAt:   notes.NowMillis(),
	}

	s.dispatch(notes.UpdateNote{Note: updated})
	s.schedulePersist()

	if userID := s.currentUser(); userID != "" {
		s.mirrorUpdate(ctx, userID, before, updated)
	}

	return nil
}

// DeleteNote removes the note locally, unconditionally, then attempts the
// remote delete. A failed remote delete is logged and not rolled back; the
// divergence heals on the next full reconciliation.
func (s *Store) DeleteNote(ctx context.Context, id string) {
	s.dispatch(notes.DeleteNote{ID: id})
	s.schedulePersist()

	if userID := s.currentUser(); userID != "" {
		if err := s.remote.Delete(ctx, userID, id); err != nil {
			log.Printf("Failed to delete remote note %s: %v", id, err)
		}
	}
}

// SetSearchQuery updates the filter. Not persisted; only notes are.
func (s *Store) SetSearchQuery(query string) {
	s.dispatch(notes.SetSearchQuery{Query: query})
}

// HandleAuth reacts to authentication transitions. Sign-in kicks off one
// reconciliation pass in the background; sign-out keeps the current notes
// as the local working set. With no remote store configured the store
// stays local-only regardless of session state.
func (s *Store) HandleAuth(event auth.Event) {
	if s.remote == nil {
		return
	}
	if event.SignedIn {
		s.mu.Lock()
		s.userID = event.UserID
		s.mu.Unlock()
		go s.Reconcile(context.Background(), event.UserID)
		return
	}

	s.mu.Lock()
	s.userID = ""
	s.mu.Unlock()
}

// Close cancels any pending debounced write and stops further persistence.
// In-flight remote calls are not cancelled; their dispatches land in
// whatever state exists when they resolve.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.persistTimer != nil {
		s.persistTimer.Stop()
		s.persistTimer = nil
	}
}

func (s *Store) currentUser() string {
	if s.remote == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

func (s *Store) dispatch(action notes.Action) {
	s.mu.Lock()
	s.state = notes.Reduce(s.state, action)
	s.mu.Unlock()
}

// schedulePersist arms the trailing-edge debounce timer, folding bursts of
// mutations into one storage write.
func (s *Store) schedulePersist() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.persistTimer != nil {
		s.persistTimer.Stop()
	}
	s.persistTimer = time.AfterFunc(s.persistDelay, s.persist)
}

func (s *Store) persist() {
	s.mu.Lock()
	if s.closed || s.state.IsLoading {
		s.mu.Unlock()
		return
	}
	list := s.state.Notes
	s.mu.Unlock()

	data, err := json.Marshal(list)
	if err != nil {
		log.Printf("Failed to encode notes: %v", err)
		return
	}
	// Memory stays authoritative for the session even if the write fails.
	if err := s.kv.Set(storage.NotesKey, string(data)); err != nil {
		log.Printf("Failed to save notes: %v", err)
	}
}
