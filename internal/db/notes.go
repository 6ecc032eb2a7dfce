package db

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

func (db *DB) ListNotesByUser(userID string) ([]Note, error) {
	rows, err := db.conn.Query(`
		SELECT id, user_id, title, content, COALESCE(attachments, '[]'), created_at, updated_at
		FROM notes
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	var list []Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &n.Attachments, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

func (db *DB) GetNote(id, userID string) (*Note, error) {
	var n Note
	err := db.conn.QueryRow(`
		SELECT id, user_id, title, content, COALESCE(attachments, '[]'), created_at, updated_at
		FROM notes WHERE id = ? AND user_id = ?
	`, id, userID).Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &n.Attachments, &n.CreatedAt, &n.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	return &n, nil
}

// CreateNote inserts a new document and assigns its ID. Client-side
// provisional IDs never reach this layer.
func (db *DB) CreateNote(userID, title, content, attachments string, createdAt, updatedAt int64) (*Note, error) {
	note := &Note{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       title,
		Content:     content,
		Attachments: attachments,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}

	_, err := db.conn.Exec(`
		INSERT INTO notes (id, user_id, title, content, attachments, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, note.ID, note.UserID, note.Title, note.Content, note.Attachments, note.CreatedAt, note.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}

	return note, nil
}

// UpdateNote applies a partial update; nil pointers leave the column
// untouched.
func (db *DB) UpdateNote(id, userID string, title, content, attachments *string, updatedAt *int64) error {
	existing, err := db.GetNote(id, userID)
	if err != nil {
		return err
	}
	if existing == nil {
		return sql.ErrNoRows
	}

	if title != nil {
		existing.Title = *title
	}
	if content != nil {
		existing.Content = *content
	}
	if attachments != nil {
		existing.Attachments = *attachments
	}
	if updatedAt != nil {
		existing.UpdatedAt = *updatedAt
	}

	_, err = db.conn.Exec(`
		UPDATE notes SET title = ?, content = ?, attachments = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`, existing.Title, existing.Content, existing.Attachments, existing.UpdatedAt, id, userID)

	if err != nil {
		return fmt.Errorf("failed to update note: %w", err)
	}
	return nil
}

// SetAttachments overwrites only the attachment metadata column.
func (db *DB) SetAttachments(id, userID, attachments string) error {
	_, err := db.conn.Exec(`
		UPDATE notes SET attachments = ? WHERE id = ? AND user_id = ?
	`, attachments, id, userID)
	if err != nil {
		return fmt.Errorf("failed to set attachments: %w", err)
	}
	return nil
}

func (db *DB) DeleteNote(id, userID string) error {
	_, err := db.conn.Exec(`DELETE FROM notes WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	// Blobs go with the note.
	_, err = db.conn.Exec(`DELETE FROM attachment_blobs WHERE note_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete note blobs: %w", err)
	}
	return nil
}
