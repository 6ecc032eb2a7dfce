package remote

import (
	"context"

	"github.com/quickienotes/quickie/internal/notes"
)

// Store is the cloud document store the sync coordinator talks to. The
// backend assigns note IDs on create; everything else is keyed by the
// remote ID. Implementations scope all calls to the given user.
type Store interface {
	List(ctx context.Context, userID string) ([]notes.Note, error)
	Create(ctx context.Context, userID string, n notes.Note) (string, error)
	Update(ctx context.Context, userID, id string, fields NoteFields) error
	Delete(ctx context.Context, userID, id string) error
	UploadAttachment(ctx context.Context, userID, noteID string, blob []byte, name, contentType string) (string, error)
	DeleteAttachment(ctx context.Context, userID, noteID, name string) error
}

// NoteFields is a partial update: nil fields are left untouched remotely.
type NoteFields struct {
	Title       *string             `json:"title,omitempty"`
	Content     *string             `json:"content,omitempty"`
	Attachments *[]notes.Attachment `json:"attachments,omitempty"`
	UpdatedAt   *int64              `json:"updated_at,omitempty"`
}

// Fields builds the full-field update used when mirroring a local edit.
func Fields(n notes.Note) NoteFields {
	title := n.Title
	content := n.Content
	atts := n.Attachments
	updated := n.UpdatedAt
	return NoteFields{
		Title:       &title,
		Content:     &content,
		Attachments: &atts,
		UpdatedAt:   &updated,
	}
}

// AttachmentFields builds the update that persists a rewritten attachment
// list back to the remote note after uploads.
func AttachmentFields(atts []notes.Attachment) NoteFields {
	return NoteFields{Attachments: &atts}
}
