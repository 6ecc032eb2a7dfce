package remote_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickienotes/quickie/internal/auth"
	"github.com/quickienotes/quickie/internal/db"
	"github.com/quickienotes/quickie/internal/notes"
	"github.com/quickienotes/quickie/internal/remote"
	"github.com/quickienotes/quickie/internal/server"
)

// newBackend wires a real server over a real database so the client is
// tested against the wire format it will actually meet.
func newBackend(t *testing.T) *remote.Client {
	t.Helper()

	database, err := db.New(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	var srv *server.Server
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		srv.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)

	srv = server.New(database, auth.NewJWTManager("test-secret", time.Hour), ts.URL)
	return remote.NewClient(ts.URL)
}

func signedInClient(t *testing.T) (*remote.Client, string) {
	t.Helper()
	client := newBackend(t)

	resp, err := client.Register(context.Background(), "a@b.c", "password123")
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
	return client, resp.UserID
}

func TestClientPing(t *testing.T) {
	client := newBackend(t)
	assert.NoError(t, client.Ping(context.Background()))
}

func TestClientLoginError(t *testing.T) {
	client := newBackend(t)

	_, err := client.Login(context.Background(), "nobody@b.c", "password123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid credentials")
}

func TestClientNoteLifecycle(t *testing.T) {
	client, userID := signedInClient(t)
	ctx := context.Background()

	id, err := client.Create(ctx, userID, notes.Note{
		ID:        "local-abc",
		Title:     "first",
		Content:   "body",
		CreatedAt: 1000,
		UpdatedAt: 1000,
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.NotEqual(t, "local-abc", id)

	list, err := client.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
	assert.Equal(t, "first", list[0].Title)
	assert.Equal(t, int64(1000), list[0].UpdatedAt)
	assert.NotNil(t, list[0].Attachments)

	title := "edited"
	stamp := int64(2000)
	require.NoError(t, client.Update(ctx, userID, id, remote.NoteFields{Title: &title, UpdatedAt: &stamp}))

	list, err = client.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "edited", list[0].Title)
	assert.Equal(t, "body", list[0].Content)
	assert.Equal(t, int64(2000), list[0].UpdatedAt)

	require.NoError(t, client.Delete(ctx, userID, id))

	list, err = client.List(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestClientAttachmentUpload(t *testing.T) {
	client, userID := signedInClient(t)
	ctx := context.Background()

	id, err := client.Create(ctx, userID, notes.Note{Title: "with pic", CreatedAt: 1, UpdatedAt: 1})
	require.NoError(t, err)

	uri, err := client.UploadAttachment(ctx, userID, id, []byte("jpeg-bytes"), "pic.jpg", "image/jpeg")
	require.NoError(t, err)
	assert.Contains(t, uri, "/api/notes/"+id+"/attachments/pic.jpg")

	require.NoError(t, client.DeleteAttachment(ctx, userID, id, "pic.jpg"))
}

func TestClientUnauthenticated(t *testing.T) {
	client := newBackend(t)

	_, err := client.List(context.Background(), "u1")
	assert.Error(t, err)
}
