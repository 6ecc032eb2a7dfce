package db

type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	CreatedAt    int64  `json:"created_at"`
	Active       bool   `json:"active"`
}

// Note is the stored document. Attachments holds the embedded metadata
// list as JSON; the blobs themselves live in attachment_blobs. Timestamps
// are epoch milliseconds, matching the client's merge key.
type Note struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	Attachments string `json:"attachments"`
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
}

type AttachmentBlob struct {
	NoteID      string `json:"note_id"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Data        []byte `json:"-"`
	CreatedAt   int64  `json:"created_at"`
}
