package models

// SyncAccount holds the remote endpoint credentials. It is a singleton row:
// Phoenix talks to at most one remote server.
//
// Password is stored encrypted. Token is an ephemeral bearer token obtained
// during a sync pass; it is never persisted.
type SyncAccount struct {
	ID       int64
	Username string
	Password string
	URL      string
	Token    string
}

// Configured reports whether a remote endpoint exists. The repository returns
// a zero-ID SyncAccount when no row is present.
func (s *SyncAccount) Configured() bool {
	return s.ID != 0
}
