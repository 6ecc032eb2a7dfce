package storage

// Fixed keys shared by the note store and the auth session.
const (
	NotesKey      = "quickie_notes_data"
	UserKey       = "quickie_notes_user"
	AuthExpiryKey = "quickie_notes_auth_expiry"
)

// LocalKV is the on-device key-value persistence contract. Get reports
// whether the key existed so an absent key is distinguishable from an
// empty value.
type LocalKV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}
