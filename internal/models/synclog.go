package models

// SyncLogKind classifies a sync log entry. Only errors are recorded today,
// but the column is a numeric kind so further severities can be added
// without a migration.
type SyncLogKind int

const (
	SyncLogError SyncLogKind = 1
)

// SyncLog is one diagnostic breadcrumb from a reconciliation pass.
// Entries are surfaced to the user as a bounded most-recent window;
// they do not drive retries.
type SyncLog struct {
	ID        int64
	Message   string
	Kind      SyncLogKind
	Timestamp int64
}
