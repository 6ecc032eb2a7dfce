package notes

import (
	"errors"
	"time"
)

// Limits enforced at the mutation boundary, before any dispatch.
const (
	MaxNotesPerUser       = 20
	MaxAttachmentsPerNote = 2
	MaxAttachmentSize     = 150 * 1024 // bytes
)

var (
	ErrNoteLimit       = errors.New("note limit reached")
	ErrAttachmentCount = errors.New("too many attachments")
	ErrAttachmentSize  = errors.New("attachment too large")
	ErrEmptyNote       = errors.New("note needs a title, content or an attachment")
)

// Attachment is embedded in a note, never addressed on its own. The URI
// starts out as a local file path and is rewritten to the remote URL once
// the blob has been uploaded.
type Attachment struct {
	URI  string `json:"uri"`
	Type string `json:"type"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Note timestamps are epoch milliseconds. UpdatedAt is the authority for
// merge conflict resolution during reconciliation.
type Note struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments"`
	CreatedAt   int64        `json:"createdAt"`
	UpdatedAt   int64        `json:"updatedAt"`
}

// NowMillis returns the current time in epoch milliseconds.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// ValidateNew checks the creation-boundary rule: the title may be empty
// only if content or attachments are non-empty.
func ValidateNew(title, content string, attachments []Attachment) error {
	if title == "" && content == "" && len(attachments) == 0 {
		return ErrEmptyNote
	}
	return nil
}

// State is the whole note collection plus its derived view. FilteredNotes
// is always recomputed from Notes and SearchQuery, never maintained
// incrementally.
type State struct {
	Notes         []Note
	FilteredNotes []Note
	SearchQuery   string
	IsLoading     bool
	IsSyncing     bool
}

// NewState returns the initial state: empty and loading until the first
// SetNotes arrives.
func NewState() State {
	return State{IsLoading: true}
}
