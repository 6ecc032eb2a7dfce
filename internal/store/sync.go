package store

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/quickienotes/quickie/internal/notes"
	"github.com/quickienotes/quickie/internal/remote"
)

// Reconcile runs one full local/remote reconciliation pass for the signed
// in user. It is invoked on the sign-in edge only, never on a timer.
//
// Precedence: a non-empty remote replaces an empty local wholesale; a
// non-empty local is pushed note by note to an empty remote; when both
// sides have notes, a last-write-wins merge keyed by updatedAt decides
// each conflict, and unknown remote notes are appended.
func (s *Store) Reconcile(ctx context.Context, userID string) {
	s.dispatch(notes.SetSyncing{Syncing: true})
	defer func() {
		s.dispatch(notes.SetSyncing{Syncing: false})
		s.mu.Lock()
		s.lastSync = time.Now()
		s.mu.Unlock()
	}()

	remoteNotes, err := s.remote.List(ctx, userID)
	if err != nil {
		log.Printf("Failed to fetch remote notes: %v", err)
		return
	}

	local := s.State().Notes

	switch {
	case len(local) == 0 && len(remoteNotes) > 0:
		s.dispatch(notes.SetNotes{Notes: remoteNotes})

	case len(local) > 0 && len(remoteNotes) == 0:
		s.pushAll(ctx, userID, local)

	case len(local) > 0 && len(remoteNotes) > 0:
		s.dispatch(notes.SetNotes{Notes: Merge(local, remoteNotes)})
	}

	s.schedulePersist()
}

// Merge applies last-write-wins reconciliation keyed by updatedAt. For
// each local note, a remote note with the same ID and a strictly greater
// updatedAt wins; otherwise the local copy is kept. Remote notes unknown
// locally are appended. No field-level merging, no conflict reporting.
func Merge(local, remoteNotes []notes.Note) []notes.Note {
	remoteByID := make(map[string]notes.Note, len(remoteNotes))
	for _, rn := range remoteNotes {
		remoteByID[rn.ID] = rn
	}

	merged := make([]notes.Note, 0, len(local)+len(remoteNotes))
	localIDs := make(map[string]bool, len(local))
	for _, ln := range local {
		localIDs[ln.ID] = true
		if rn, ok := remoteByID[ln.ID]; ok && rn.UpdatedAt > ln.UpdatedAt {
			merged = append(merged, rn)
		} else {
			merged = append(merged, ln)
		}
	}

	for _, rn := range remoteNotes {
		if !localIDs[rn.ID] {
			merged = append(merged, rn)
		}
	}

	return merged
}

// pushAll uploads every local note to an empty remote. The per-note pushes
// run concurrently; each completion dispatches only the replacement of its
// own note, so the final state does not depend on completion order.
func (s *Store) pushAll(ctx context.Context, userID string, local []notes.Note) {
	var wg sync.WaitGroup
	for _, note := range local {
		wg.Add(1)
		go func(n notes.Note) {
			defer wg.Done()
			s.pushNote(ctx, userID, n)
		}(note)
	}
	wg.Wait()
}

// pushNote creates the note remotely, swaps the provisional local ID for
// the remote-assigned one, then uploads any local attachments and rewrites
// their URIs. Every failure is logged and leaves the note with whatever
// IDs/URIs it had before; the next reconciliation pass retries.
func (s *Store) pushNote(ctx context.Context, userID string, n notes.Note) notes.Note {
	// The backend assigns IDs; the provisional local one never crosses the
	// Store boundary.
	oldID := n.ID
	n.ID = ""
	remoteID, err := s.remote.Create(ctx, userID, n)
	if err != nil {
		log.Printf("Failed to push note %s: %v", oldID, err)
		n.ID = oldID
		return n
	}

	n.ID = remoteID
	s.dispatch(notes.ReplaceNote{OldID: oldID, Note: n})
	s.schedulePersist()

	if rewritten, changed := s.uploadAttachments(ctx, userID, remoteID, n.Attachments); changed {
		n.Attachments = rewritten
		if err := s.remote.Update(ctx, userID, remoteID, remote.AttachmentFields(rewritten)); err != nil {
			log.Printf("Failed to update remote attachments for note %s: %v", remoteID, err)
		}
		s.dispatch(notes.UpdateNote{Note: n})
		s.schedulePersist()
	}

	return n
}

// mirrorUpdate pushes an edit to the remote note and reconciles the two
// attachment sets by URI.
func (s *Store) mirrorUpdate(ctx context.Context, userID string, before, after notes.Note) {
	if err := s.remote.Update(ctx, userID, after.ID, remote.Fields(after)); err != nil {
		log.Printf("Failed to update remote note %s: %v", after.ID, err)
		return
	}

	afterURIs := make(map[string]bool, len(after.Attachments))
	for _, a := range after.Attachments {
		afterURIs[a.URI] = true
	}
	for _, a := range before.Attachments {
		if !afterURIs[a.URI] {
			if err := s.remote.DeleteAttachment(ctx, userID, after.ID, a.Name); err != nil {
				log.Printf("Failed to delete remote attachment %s/%s: %v", after.ID, a.Name, err)
			}
		}
	}

	if rewritten, changed := s.uploadAttachments(ctx, userID, after.ID, after.Attachments); changed {
		after.Attachments = rewritten
		if err := s.remote.Update(ctx, userID, after.ID, remote.AttachmentFields(rewritten)); err != nil {
			log.Printf("Failed to update remote attachments for note %s: %v", after.ID, err)
		}
		s.dispatch(notes.UpdateNote{Note: after})
		s.schedulePersist()
	}
}

// uploadAttachments uploads every attachment that still has a local URI
// and rewrites it to the returned remote URL. A failed upload keeps the
// local URI for that attachment and moves on.
func (s *Store) uploadAttachments(ctx context.Context, userID, noteID string, atts []notes.Attachment) ([]notes.Attachment, bool) {
	if len(atts) == 0 {
		return atts, false
	}

	rewritten := append([]notes.Attachment{}, atts...)
	changed := false
	for i, a := range rewritten {
		if isRemoteURI(a.URI) {
			continue
		}

		blob, err := s.blobs.Open(a.URI)
		if err != nil {
			log.Printf("Failed to read attachment %s: %v", a.Name, err)
			continue
		}

		uri, err := s.remote.UploadAttachment(ctx, userID, noteID, blob, a.Name, a.Type)
		if err != nil {
			log.Printf("Failed to upload attachment %s for note %s: %v", a.Name, noteID, err)
			continue
		}

		rewritten[i].URI = uri
		changed = true
	}

	return rewritten, changed
}

func isRemoteURI(uri string) bool {
	return strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://")
}
