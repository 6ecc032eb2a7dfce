package notes

// Action is the closed set of state transitions. One variant per action
// kind, so a type switch covers them exhaustively.
type Action interface {
	isAction()
}

type AddNote struct{ Note Note }

type UpdateNote struct{ Note Note }

// ReplaceNote swaps the note stored under OldID for Note, used when a
// provisional local ID is promoted to the remote-assigned one.
type ReplaceNote struct {
	OldID string
	Note  Note
}

type DeleteNote struct{ ID string }

type SetNotes struct{ Notes []Note }

type SetSearchQuery struct{ Query string }

type SetSyncing struct{ Syncing bool }

func (AddNote) isAction()        {}
func (UpdateNote) isAction()     {}
func (ReplaceNote) isAction()    {}
func (DeleteNote) isAction()     {}
func (SetNotes) isAction()       {}
func (SetSearchQuery) isAction() {}
func (SetSyncing) isAction()     {}

// Reduce applies a single action and returns the next state. It never
// fails: an update or delete for an ID that does not exist is a no-op,
// and an add past the note cap returns the state unchanged. The callers
// that need to surface those conditions check before dispatching.
func Reduce(state State, action Action) State {
	switch a := action.(type) {
	case AddNote:
		if len(state.Notes) >= MaxNotesPerUser {
			return state
		}
		next := make([]Note, 0, len(state.Notes)+1)
		next = append(next, a.Note)
		next = append(next, state.Notes...)
		state.Notes = next
		state.FilteredNotes = FilterByTitle(next, state.SearchQuery)
		return state

	case UpdateNote:
		next := make([]Note, len(state.Notes))
		for i, n := range state.Notes {
			if n.ID == a.Note.ID {
				next[i] = a.Note
			} else {
				next[i] = n
			}
		}
		state.Notes = next
		state.FilteredNotes = FilterByTitle(next, state.SearchQuery)
		return state

	case ReplaceNote:
		next := make([]Note, len(state.Notes))
		for i, n := range state.Notes {
			if n.ID == a.OldID {
				next[i] = a.Note
			} else {
				next[i] = n
			}
		}
		state.Notes = next
		state.FilteredNotes = FilterByTitle(next, state.SearchQuery)
		return state

	case DeleteNote:
		next := make([]Note, 0, len(state.Notes))
		for _, n := range state.Notes {
			if n.ID != a.ID {
				next = append(next, n)
			}
		}
		state.Notes = next
		state.FilteredNotes = FilterByTitle(next, state.SearchQuery)
		return state

	case SetNotes:
		state.Notes = a.Notes
		state.FilteredNotes = FilterByTitle(a.Notes, state.SearchQuery)
		state.IsLoading = false
		return state

	case SetSearchQuery:
		state.SearchQuery = a.Query
		state.FilteredNotes = FilterByTitle(state.Notes, a.Query)
		return state

	case SetSyncing:
		state.IsSyncing = a.Syncing
		return state
	}

	return state
}
