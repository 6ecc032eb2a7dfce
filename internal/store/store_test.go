package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickienotes/quickie/internal/auth"
	"github.com/quickienotes/quickie/internal/notes"
	"github.com/quickienotes/quickie/internal/remote"
	"github.com/quickienotes/quickie/internal/storage"
)

// fakeRemote records calls and assigns sequential remote IDs.
type fakeRemote struct {
	mu       sync.Mutex
	notes    []notes.Note
	nextID   int
	creates  []notes.Note
	updates  map[string][]remote.NoteFields
	deletes  []string
	uploads  []string
	listErr  error
	createEr error
	updateEr error
	deleteEr error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{updates: make(map[string][]remote.NoteFields)}
}

func (f *fakeRemote) List(ctx context.Context, userID string) ([]notes.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]notes.Note{}, f.notes...), nil
}

func (f *fakeRemote) Create(ctx context.Context, userID string, n notes.Note) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createEr != nil {
		return "", f.createEr
	}
	f.nextID++
	id := fmt.Sprintf("remote-%d", f.nextID)
	f.creates = append(f.creates, n)
	n.ID = id
	f.notes = append(f.notes, n)
	return id, nil
}

func (f *fakeRemote) Update(ctx context.Context, userID, id string, fields remote.NoteFields) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateEr != nil {
		return f.updateEr
	}
	f.updates[id] = append(f.updates[id], fields)
	return nil
}

func (f *fakeRemote) Delete(ctx context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteEr != nil {
		return f.deleteEr
	}
	f.deletes = append(f.deletes, id)
	return nil
}

func (f *fakeRemote) UploadAttachment(ctx context.Context, userID, noteID string, blob []byte, name, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, noteID+"/"+name)
	return "https://remote.test/" + noteID + "/" + name, nil
}

func (f *fakeRemote) DeleteAttachment(ctx context.Context, userID, noteID, name string) error {
	return nil
}

// fakeBlobs serves fixed bytes for any local URI.
type fakeBlobs struct{}

func (fakeBlobs) Open(uri string) ([]byte, error) {
	return []byte("blob-bytes"), nil
}

// countingKV counts Set calls per key on top of the in-memory store.
type countingKV struct {
	*storage.MemoryKV
	mu   sync.Mutex
	sets map[string]int
}

func newCountingKV() *countingKV {
	return &countingKV{MemoryKV: storage.NewMemoryKV(), sets: make(map[string]int)}
}

func (kv *countingKV) Set(key, value string) error {
	kv.mu.Lock()
	kv.sets[key]++
	kv.mu.Unlock()
	return kv.MemoryKV.Set(key, value)
}

func (kv *countingKV) setCount(key string) int {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	return kv.sets[key]
}

func newTestStore(t *testing.T, rs remote.Store) (*Store, *countingKV) {
	t.Helper()
	kv := newCountingKV()
	s := New(kv, rs, fakeBlobs{}, WithPersistDelay(20*time.Millisecond))
	t.Cleanup(s.Close)
	s.Load(context.Background())
	return s, kv
}

func signIn(t *testing.T, s *Store, userID string) {
	t.Helper()
	s.HandleAuth(auth.Event{SignedIn: true, UserID: userID})
	// The sign-in edge reconciles in the background; wait for it so test
	// mutations do not race the initial pass.
	waitFor(t, func() bool { return !s.State().IsSyncing && !s.LastSyncAt().IsZero() })
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestLoadMissingKeyYieldsEmptyList(t *testing.T) {
	s, _ := newTestStore(t, newFakeRemote())

	state := s.State()
	assert.False(t, state.IsLoading)
	assert.Empty(t, state.Notes)
	assert.NotNil(t, state.Notes)
}

func TestLoadCorruptPayloadYieldsEmptyList(t *testing.T) {
	kv := newCountingKV()
	require.NoError(t, kv.Set(storage.NotesKey, "{not json"))

	s := New(kv, newFakeRemote(), fakeBlobs{}, WithPersistDelay(20*time.Millisecond))
	t.Cleanup(s.Close)
	s.Load(context.Background())

	state := s.State()
	assert.False(t, state.IsLoading)
	assert.Empty(t, state.Notes)
}

func TestAddNoteSignedOut(t *testing.T) {
	rs := newFakeRemote()
	s, _ := newTestStore(t, rs)

	note, err := s.AddNote(context.Background(), "hello", "world", nil)
	require.NoError(t, err)
	assert.Contains(t, note.ID, "local-")
	assert.Equal(t, note.CreatedAt, note.UpdatedAt)

	state := s.State()
	require.Len(t, state.Notes, 1)
	assert.Empty(t, rs.creates)
}

func TestAddNoteEmptyRejected(t *testing.T) {
	s, _ := newTestStore(t, newFakeRemote())

	_, err := s.AddNote(context.Background(), "", "", nil)
	assert.ErrorIs(t, err, notes.ErrEmptyNote)
	assert.Empty(t, s.State().Notes)
}

func TestAddNoteAtCapRejected(t *testing.T) {
	s, _ := newTestStore(t, newFakeRemote())

	for i := 0; i < notes.MaxNotesPerUser; i++ {
		_, err := s.AddNote(context.Background(), fmt.Sprintf("note %d", i), "", nil)
		require.NoError(t, err)
	}

	_, err := s.AddNote(context.Background(), "one too many", "", nil)
	assert.ErrorIs(t, err, notes.ErrNoteLimit)
	assert.Len(t, s.State().Notes, notes.MaxNotesPerUser)
}

func TestAddNoteOversizedAttachmentRejected(t *testing.T) {
	s, _ := newTestStore(t, newFakeRemote())

	big := notes.Attachment{URI: "file:///tmp/big.jpg", Name: "big.jpg", Size: notes.MaxAttachmentSize + 1}
	_, err := s.AddNote(context.Background(), "photo", "", []notes.Attachment{big})
	assert.ErrorIs(t, err, notes.ErrAttachmentSize)
}

func TestAddNoteSignedInPushesAndSwapsID(t *testing.T) {
	rs := newFakeRemote()
	s, _ := newTestStore(t, rs)
	signIn(t, s, "u1")

	note, err := s.AddNote(context.Background(), "synced", "body", nil)
	require.NoError(t, err)
	assert.Equal(t, "remote-1", note.ID)

	state := s.State()
	require.Len(t, state.Notes, 1)
	assert.Equal(t, "remote-1", state.Notes[0].ID)
	require.Len(t, rs.creates, 1)
	// The provisional local ID never reaches the backend.
	assert.Empty(t, rs.creates[0].ID)
}

func TestAddNoteRemoteFailureKeepsLocal(t *testing.T) {
	rs := newFakeRemote()
	rs.createEr = fmt.Errorf("backend down")
	s, _ := newTestStore(t, rs)
	signIn(t, s, "u1")

	note, err := s.AddNote(context.Background(), "offline", "", nil)
	require.NoError(t, err)
	assert.Contains(t, note.ID, "local-")
	assert.Len(t, s.State().Notes, 1)
}

func TestAddNoteUploadsAttachmentsAndRewritesURIs(t *testing.T) {
	rs := newFakeRemote()
	s, _ := newTestStore(t, rs)
	signIn(t, s, "u1")

	att := notes.Attachment{URI: "file:///tmp/pic.jpg", Type: "image/jpeg", Name: "pic.jpg", Size: 512}
	note, err := s.AddNote(context.Background(), "photo note", "", []notes.Attachment{att})
	require.NoError(t, err)

	require.Len(t, note.Attachments, 1)
	assert.Equal(t, "https://remote.test/remote-1/pic.jpg", note.Attachments[0].URI)
	assert.Equal(t, []string{"remote-1/pic.jpg"}, rs.uploads)

	state := s.State()
	require.Len(t, state.Notes, 1)
	assert.Equal(t, "https://remote.test/remote-1/pic.jpg", state.Notes[0].Attachments[0].URI)
}

func TestUpdateNoteUnknownIDIsSilentNoOp(t *testing.T) {
	s, _ := newTestStore(t, newFakeRemote())

	err := s.UpdateNote(context.Background(), "ghost", "title", "content", nil)
	assert.NoError(t, err)
	assert.Empty(t, s.State().Notes)
}

func TestUpdateNoteMirrorsRemotely(t *testing.T) {
	rs := newFakeRemote()
	s, _ := newTestStore(t, rs)
	signIn(t, s, "u1")

	note, err := s.AddNote(context.Background(), "before", "", nil)
	require.NoError(t, err)

	require.NoError(t, s.UpdateNote(context.Background(), note.ID, "after", "edited", nil))

	state := s.State()
	assert.Equal(t, "after", state.Notes[0].Title)
	require.NotEmpty(t, rs.updates[note.ID])
	assert.Equal(t, "after", *rs.updates[note.ID][0].Title)
}

func TestUpdateNoteBumpsUpdatedAt(t *testing.T) {
	s, _ := newTestStore(t, newFakeRemote())

	note, err := s.AddNote(context.Background(), "v1", "", nil)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, s.UpdateNote(context.Background(), note.ID, "v2", "", nil))

	state := s.State()
	assert.Greater(t, state.Notes[0].UpdatedAt, note.UpdatedAt)
	assert.Equal(t, note.CreatedAt, state.Notes[0].CreatedAt)
}

func TestDeleteNoteRemoteFailureStillDeletesLocally(t *testing.T) {
	rs := newFakeRemote()
	s, _ := newTestStore(t, rs)
	signIn(t, s, "u1")

	note, err := s.AddNote(context.Background(), "doomed", "", nil)
	require.NoError(t, err)

	rs.deleteEr = fmt.Errorf("backend down")
	s.DeleteNote(context.Background(), note.ID)

	assert.Empty(t, s.State().Notes)
}

func TestSearchQueryFiltersState(t *testing.T) {
	s, _ := newTestStore(t, newFakeRemote())

	_, err := s.AddNote(context.Background(), "Grocery list", "", nil)
	require.NoError(t, err)
	_, err = s.AddNote(context.Background(), "Meeting notes", "", nil)
	require.NoError(t, err)

	s.SetSearchQuery("cery")
	state := s.State()
	require.Len(t, state.FilteredNotes, 1)
	assert.Equal(t, "Grocery list", state.FilteredNotes[0].Title)
	assert.Len(t, state.Notes, 2)

	s.SetSearchQuery("")
	assert.Len(t, s.State().FilteredNotes, 2)
}

func TestDebounceFoldsBurstIntoOneWrite(t *testing.T) {
	s, kv := newTestStore(t, newFakeRemote())

	for i := 0; i < 5; i++ {
		_, err := s.AddNote(context.Background(), fmt.Sprintf("note %d", i), "", nil)
		require.NoError(t, err)
	}

	waitFor(t, func() bool { return kv.setCount(storage.NotesKey) > 0 })
	assert.Equal(t, 1, kv.setCount(storage.NotesKey))

	value, ok, err := kv.Get(storage.NotesKey)
	require.NoError(t, err)
	require.True(t, ok)

	var persisted []notes.Note
	require.NoError(t, json.Unmarshal([]byte(value), &persisted))
	assert.Len(t, persisted, 5)
}

func TestCloseCancelsPendingPersist(t *testing.T) {
	kv := newCountingKV()
	s := New(kv, newFakeRemote(), fakeBlobs{}, WithPersistDelay(30*time.Millisecond))
	s.Load(context.Background())

	_, err := s.AddNote(context.Background(), "never persisted", "", nil)
	require.NoError(t, err)

	s.Close()
	time.Sleep(60 * time.Millisecond)

	assert.Equal(t, 0, kv.setCount(storage.NotesKey))
}

func TestPersistRoundTrip(t *testing.T) {
	kv := newCountingKV()
	s := New(kv, newFakeRemote(), fakeBlobs{}, WithPersistDelay(10*time.Millisecond))
	s.Load(context.Background())

	att := notes.Attachment{URI: "file:///tmp/pic.jpg", Type: "image/jpeg", Name: "pic.jpg", Size: 512}
	saved, err := s.AddNote(context.Background(), "durable", "survives restart", []notes.Attachment{att})
	require.NoError(t, err)

	waitFor(t, func() bool { return kv.setCount(storage.NotesKey) > 0 })
	s.Close()

	// A second store over the same KV sees the persisted list.
	reborn := New(kv, newFakeRemote(), fakeBlobs{}, WithPersistDelay(10*time.Millisecond))
	t.Cleanup(reborn.Close)
	reborn.Load(context.Background())

	state := reborn.State()
	require.Len(t, state.Notes, 1)
	assert.Equal(t, "durable", state.Notes[0].Title)
	assert.Equal(t, "survives restart", state.Notes[0].Content)
	require.Len(t, state.Notes[0].Attachments, 1)
	assert.Equal(t, att, state.Notes[0].Attachments[0])
	assert.Equal(t, saved.CreatedAt, state.Notes[0].CreatedAt)
	assert.Equal(t, saved.UpdatedAt, state.Notes[0].UpdatedAt)
}

func TestSignOutStopsMirroring(t *testing.T) {
	rs := newFakeRemote()
	s, _ := newTestStore(t, rs)
	signIn(t, s, "u1")
	s.HandleAuth(auth.Event{SignedIn: false})

	note, err := s.AddNote(context.Background(), "local only", "", nil)
	require.NoError(t, err)
	assert.Contains(t, note.ID, "local-")
	assert.Empty(t, rs.creates)
}
