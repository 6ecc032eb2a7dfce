// Package media bridges picker-produced attachments to the sync layer.
// The picker hands over {uri, type, name, size} tuples with compression
// already applied; this package only resolves the URI back to bytes when
// an upload needs the blob.
package media

import (
	"fmt"
	"os"
	"strings"
)

// Source resolves an attachment URI to its raw bytes.
type Source interface {
	Open(uri string) ([]byte, error)
}

// FileSource reads attachments from the local filesystem. Remote URIs are
// refused: an attachment whose URI has already been rewritten to a remote
// URL never needs re-uploading.
type FileSource struct{}

func (FileSource) Open(uri string) ([]byte, error) {
	if strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://") {
		return nil, fmt.Errorf("attachment %q is already remote", uri)
	}
	path := strings.TrimPrefix(uri, "file://")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment: %w", err)
	}
	return data, nil
}
