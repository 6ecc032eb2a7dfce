package db

import (
	"database/sql"
	"fmt"
	"time"
)

func (db *DB) PutBlob(noteID, name, contentType string, data []byte) error {
	_, err := db.conn.Exec(`
		INSERT INTO attachment_blobs (note_id, name, content_type, size, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(note_id, name) DO UPDATE SET
			content_type = excluded.content_type,
			size = excluded.size,
			data = excluded.data
	`, noteID, name, contentType, int64(len(data)), data, time.Now().UnixMilli())

	if err != nil {
		return fmt.Errorf("failed to store blob: %w", err)
	}
	return nil
}

func (db *DB) GetBlob(noteID, name string) (*AttachmentBlob, error) {
	var b AttachmentBlob
	err := db.conn.QueryRow(`
		SELECT note_id, name, content_type, size, data, created_at
		FROM attachment_blobs WHERE note_id = ? AND name = ?
	`, noteID, name).Scan(&b.NoteID, &b.Name, &b.ContentType, &b.Size, &b.Data, &b.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get blob: %w", err)
	}
	return &b, nil
}

func (db *DB) DeleteBlob(noteID, name string) error {
	_, err := db.conn.Exec(`DELETE FROM attachment_blobs WHERE note_id = ? AND name = ?`, noteID, name)
	if err != nil {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}
